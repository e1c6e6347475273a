package connect

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config configures the connection flow.
type Config struct {
	// BaseURL is the origin of the server-side OAuth initiator.
	BaseURL string

	// AuthPath is the initiator path prefix (default: "/api/auth").
	AuthPath string

	// DefaultReturnURL is where the UI resumes when a connect call does not
	// carry its own return URL (default: "/").
	DefaultReturnURL string

	// StateTTL bounds pending handshakes (default: PendingStateTTL).
	StateTTL time.Duration
}

// Connector drives the OAuth redirect flow: it initiates connections and
// validates provider callbacks against the pending handshake state.
type Connector struct {
	store  CredentialStore
	config Config
	logger Logger
	clock  Clock
}

// ConnectorOption configures the connector.
type ConnectorOption func(*Connector)

// WithLogger sets a custom logger.
func WithLogger(logger Logger) ConnectorOption {
	return func(c *Connector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets a custom clock.
func WithClock(clock Clock) ConnectorOption {
	return func(c *Connector) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewConnector creates a connector over the given credential store.
func NewConnector(store CredentialStore, config Config, opts ...ConnectorOption) *Connector {
	cfg := config
	if cfg.AuthPath == "" {
		cfg.AuthPath = "/api/auth"
	}
	if cfg.DefaultReturnURL == "" {
		cfg.DefaultReturnURL = "/"
	}
	if cfg.StateTTL == 0 {
		cfg.StateTTL = PendingStateTTL
	}

	c := &Connector{
		store:  store,
		config: cfg,
		logger: defLogger{},
		clock:  time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Redirect is the terminal navigation handed to the caller. The flow does
// not return through this call; it resumes via the provider callback.
type Redirect struct {
	URL      string
	State    string
	Platform Platform
}

// ConnectOption configures a single connect call.
type ConnectOption func(*connectConfig)

type connectConfig struct {
	returnURL string
}

// WithReturnURL records where the UI should resume after the callback.
func WithReturnURL(url string) ConnectOption {
	return func(c *connectConfig) {
		c.returnURL = url
	}
}

// Connect starts the OAuth flow for a platform. It generates the CSRF state
// (and, for PKCE platforms, a verifier/challenge pair), persists the pending
// handshake, and returns the authorization redirect. Only the challenge ever
// leaves this process; the verifier stays in the pending store.
func (c *Connector) Connect(ctx context.Context, platform Platform, opts ...ConnectOption) (*Redirect, error) {
	if !platform.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrPlatformNotFound, platform)
	}

	cfg := &connectConfig{returnURL: c.config.DefaultReturnURL}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	state, err := GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	pending := PendingOAuthState{
		State:     state,
		Platform:  platform,
		ReturnURL: cfg.returnURL,
		CreatedAt: c.clock(),
	}

	var challenge string
	if platform.RequiresPKCE() {
		verifier, err := GenerateCodeVerifier()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code verifier: %w", err)
		}
		pending.CodeVerifier = verifier
		challenge = ComputeCodeChallenge(verifier)
	}

	if err := c.store.SavePendingState(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to save pending state: %w", err)
	}

	return &Redirect{
		URL:      c.authorizeURL(platform, state, challenge),
		State:    state,
		Platform: platform,
	}, nil
}

func (c *Connector) authorizeURL(platform Platform, state, challenge string) string {
	base := strings.TrimRight(c.config.BaseURL, "/")

	query := url.Values{}
	query.Set("state", state)
	if challenge != "" {
		query.Set("code_challenge", challenge)
		query.Set("code_challenge_method", "S256")
	}

	return fmt.Sprintf("%s%s/%s?%s", base, c.config.AuthPath, platform, query.Encode())
}

// Result is the UI-facing outcome of callback processing. Failures are
// values, never panics or raw errors; Error carries the message the
// dashboard renders.
type Result struct {
	Success   bool
	Error     string
	Platform  Platform
	Account   *SocialAccount
	Accounts  []SocialAccount
	ReturnURL string
}

func failure(platform Platform, msg string) *Result {
	return &Result{Platform: platform, Error: msg}
}

// ProcessCallback validates a provider callback and finalizes the account.
//
// Validation order is fixed: provider error, platform payload discovery,
// payload decode, pending-state consume, account construction. The pending
// state is consumed before the account is built so a replay of the same
// callback fails the state lookup.
func (c *Connector) ProcessCallback(ctx context.Context, params url.Values) *Result {
	if msg := params.Get("error"); msg != "" {
		c.logger.Info("oauth callback reported provider error: %s", msg)
		return &Result{Error: msg}
	}

	platform, raw, ok := FindCallbackPayload(params)
	if !ok {
		return failure("", MsgNoData)
	}
	if raw == "" {
		return failure(platform, MsgNoData)
	}

	data, err := DecodeCallbackData(raw)
	if err != nil {
		c.logger.Error("failed to decode %s callback payload: %v", platform, err)
		return failure(platform, MsgDecodeFailed)
	}

	pending, err := c.store.ConsumePendingState(ctx, data.State)
	if err != nil {
		c.logger.Error("pending state lookup failed: %v", err)
		pending = nil
	}
	if pending == nil || pending.Platform != platform {
		c.logger.Info("rejected %s callback with unknown or replayed state", platform)
		return failure(platform, MsgInvalidState)
	}

	now := c.clock()

	account := SocialAccount{
		ID:                NewAccountID(platform, data.PlatformAccountID, now),
		Platform:          platform,
		PlatformAccountID: data.PlatformAccountID,
		DisplayName:       data.DisplayName,
		Username:          data.Username,
		Email:             data.Email,
		AvatarURL:         data.AvatarURL,
		ProfileURL:        platform.ProfileURL(data.PlatformAccountID, data.Username),
		AccessToken:       data.AccessToken,
		RefreshToken:      data.RefreshToken,
		Scopes:            NormalizeScopes(data.Scopes),
		Followers:         data.Followers,
		Status:            StatusConnected,
		LastSync:          "Just now",
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if data.ExpiresIn > 0 {
		expiresAt := now.Add(time.Duration(data.ExpiresIn) * time.Second)
		account.TokenExpiresAt = &expiresAt
	}

	accounts, err := c.store.UpsertAccount(ctx, account)
	if err != nil {
		c.logger.Error("failed to save %s account: %v", platform, err)
		return failure(platform, MsgSaveFailed)
	}

	stored := findByIdentity(accounts, account)
	c.logger.Debug("connected %s account %s", platform, data.PlatformAccountID)

	return &Result{
		Success:   true,
		Platform:  platform,
		Account:   stored,
		Accounts:  accounts,
		ReturnURL: pending.ReturnURL,
	}
}

func findByIdentity(accounts []SocialAccount, target SocialAccount) *SocialAccount {
	for i := range accounts {
		if accounts[i].SameIdentity(target) {
			return &accounts[i]
		}
	}
	return nil
}

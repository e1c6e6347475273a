package connect

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Manager is the account session facade the dashboard consumes: the current
// connected-account list, a loading flag, and the connect, disconnect,
// refresh, and callback operations.
//
// All state lives in the injected CredentialStore; the manager keeps a local
// snapshot and notifies change listeners after every mutation.
type Manager struct {
	store     CredentialStore
	connector *Connector
	logger    Logger
	navigate  Navigator
	clock     Clock

	mu        sync.RWMutex
	accounts  []SocialAccount
	loading   bool
	listeners []func([]SocialAccount)
}

// ManagerOption configures the manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets a custom logger.
func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNavigator sets the callback that performs the full-page navigation to
// the provider. Without one, ConnectAccount only returns the redirect.
func WithNavigator(navigate Navigator) ManagerOption {
	return func(m *Manager) {
		m.navigate = navigate
	}
}

// WithManagerClock sets a custom clock.
func WithManagerClock(clock Clock) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewManager creates the facade and performs the initial synchronous load
// from the store. Storage failures degrade to an empty list; the caller
// never sees them as errors.
func NewManager(store CredentialStore, connector *Connector, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		connector: connector,
		logger:    defLogger{},
		clock:     time.Now,
		loading:   true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	m.reload(context.Background())

	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()

	return m
}

// Accounts returns a snapshot of the connected accounts.
func (m *Manager) Accounts() []SocialAccount {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SocialAccount, len(m.accounts))
	copy(out, m.accounts)
	return out
}

// IsLoading reports whether the initial store read has completed.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// OnChange registers a listener invoked with the account snapshot after
// every list mutation.
func (m *Manager) OnChange(fn func([]SocialAccount)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// ConnectAccount starts the OAuth flow for a platform. When a Navigator is
// configured the page navigates away; the returned redirect exists for
// transports that issue the redirect themselves.
func (m *Manager) ConnectAccount(ctx context.Context, platform Platform, opts ...ConnectOption) (*Redirect, error) {
	redirect, err := m.connector.Connect(ctx, platform, opts...)
	if err != nil {
		return nil, err
	}

	if m.navigate != nil {
		m.navigate(redirect.URL)
	}

	return redirect, nil
}

// DisconnectAccount removes an account. Always succeeds locally: unknown ids
// are a no-op and storage failures are logged, not surfaced.
func (m *Manager) DisconnectAccount(ctx context.Context, id string) {
	accounts, err := m.store.RemoveAccount(ctx, id)
	if err != nil {
		m.logger.Error("failed to remove account %s: %v", id, err)
		return
	}

	m.setAccounts(accounts)
}

// RefreshAccount re-enters the OAuth flow for the account's platform.
// Reconnecting is a fresh handshake, not a silent token refresh; the new
// callback upserts over the same provider identity.
func (m *Manager) RefreshAccount(ctx context.Context, id string, opts ...ConnectOption) (*Redirect, error) {
	account, ok := m.findAccount(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}

	return m.ConnectAccount(ctx, account.Platform, opts...)
}

// ProcessOAuthCallback validates a provider callback and refreshes the
// account list on success.
func (m *Manager) ProcessOAuthCallback(ctx context.Context, params url.Values) *Result {
	result := m.connector.ProcessCallback(ctx, params)
	if result.Success {
		m.setAccounts(result.Accounts)
	}
	return result
}

// MarkExpired flags connected accounts whose access token expiry has passed
// and returns how many were flagged.
func (m *Manager) MarkExpired(ctx context.Context) int {
	now := m.clock()
	flagged := 0

	var latest []SocialAccount
	for _, account := range m.Accounts() {
		if account.Status != StatusConnected || !account.TokenExpired(now) {
			continue
		}

		accounts, err := m.store.UpdateAccountStatus(ctx, account.ID, StatusExpired)
		if err != nil {
			m.logger.Error("failed to mark account %s expired: %v", account.ID, err)
			continue
		}
		latest = accounts
		flagged++
	}

	if flagged > 0 {
		m.setAccounts(latest)
	}

	return flagged
}

func (m *Manager) findAccount(id string) (SocialAccount, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, account := range m.accounts {
		if account.ID == id {
			return account, true
		}
	}
	return SocialAccount{}, false
}

func (m *Manager) reload(ctx context.Context) {
	accounts, err := m.store.ListAccounts(ctx)
	if err != nil {
		m.logger.Error("failed to load accounts, starting empty: %v", err)
		accounts = nil
	}

	m.setAccounts(accounts)
}

func (m *Manager) setAccounts(accounts []SocialAccount) {
	m.mu.Lock()
	m.accounts = accounts
	listeners := make([]func([]SocialAccount), len(m.listeners))
	copy(listeners, m.listeners)
	snapshot := make([]SocialAccount, len(accounts))
	copy(snapshot, accounts)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

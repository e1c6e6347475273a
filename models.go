package connect

import (
	"fmt"
	"sort"
	"time"
)

// AccountStatus is the lifecycle state of a connected account.
type AccountStatus string

const (
	// StatusConnected means the stored access token is believed valid.
	StatusConnected AccountStatus = "connected"
	// StatusExpired means the access token passed its expiry.
	StatusExpired AccountStatus = "expired"
	// StatusError means the last interaction with the platform failed.
	StatusError AccountStatus = "error"
)

// SocialAccount is a finalized, connected third-party account.
type SocialAccount struct {
	ID                string        `json:"id"`
	Platform          Platform      `json:"platform"`
	PlatformAccountID string        `json:"platform_account_id"`
	DisplayName       string        `json:"display_name"`
	Username          string        `json:"username,omitempty"`
	Email             string        `json:"email,omitempty"`
	AvatarURL         string        `json:"avatar_url,omitempty"`
	ProfileURL        string        `json:"profile_url"`
	AccessToken       string        `json:"-"`
	RefreshToken      string        `json:"-"`
	TokenExpiresAt    *time.Time    `json:"token_expires_at,omitempty"`
	Scopes            []string      `json:"scopes,omitempty"`
	Followers         int           `json:"followers,omitempty"`
	Status            AccountStatus `json:"status"`
	LastSync          string        `json:"last_sync,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// NewAccountID derives the locally generated account id.
func NewAccountID(platform Platform, platformAccountID string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%d", platform, platformAccountID, now.UnixMilli())
}

// SameIdentity reports whether two records describe the same provider
// identity. Upserts match on this, never on the local id.
func (a SocialAccount) SameIdentity(other SocialAccount) bool {
	return a.Platform == other.Platform && a.PlatformAccountID == other.PlatformAccountID
}

// TokenExpired reports whether the access token expiry has passed. Accounts
// without an expiry never expire.
func (a SocialAccount) TokenExpired(now time.Time) bool {
	return a.TokenExpiresAt != nil && now.After(*a.TokenExpiresAt)
}

// Merged applies a reconnect update onto an existing record. The local id
// and creation time survive; everything else reflects the fresh handshake.
func (a SocialAccount) Merged(update SocialAccount, now time.Time) SocialAccount {
	merged := update
	merged.ID = a.ID
	merged.CreatedAt = a.CreatedAt
	merged.UpdatedAt = now
	return merged
}

// PendingOAuthState is an ephemeral CSRF/PKCE handshake record, keyed by the
// state token. Single-use: consumed on successful callback validation.
type PendingOAuthState struct {
	State        string    `json:"state"`
	Platform     Platform  `json:"platform"`
	ReturnURL    string    `json:"return_url,omitempty"`
	CodeVerifier string    `json:"code_verifier,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Expired reports whether the pending handshake exceeded its TTL.
func (p PendingOAuthState) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.CreatedAt) > ttl
}

// NormalizeScopes dedupes and sorts granted scopes. Scope grants are a set;
// order from the provider is not meaningful.
func NormalizeScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return nil
	}

	seen := map[string]bool{}
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}

	sort.Strings(out)
	return out
}

package connect

import (
	"context"
	"time"
)

// PendingStateTTL bounds how long a handshake may remain outstanding. States
// older than this are invalid even if still physically present.
const PendingStateTTL = 10 * time.Minute

// CredentialStore persists finalized accounts and ephemeral handshake state.
//
// Mutating account operations return the full updated list so callers get
// read-after-write consistency without a second round-trip. Implementations
// must treat every mutation as a full read-modify-write of the backing
// collection; last-write-wins between concurrent writers is acceptable.
type CredentialStore interface {
	ListAccounts(ctx context.Context) ([]SocialAccount, error)

	// UpsertAccount matches by (platform, platform account id). An existing
	// record is merged in place, never duplicated.
	UpsertAccount(ctx context.Context, account SocialAccount) ([]SocialAccount, error)

	// RemoveAccount is idempotent; removing an unknown id is a no-op.
	RemoveAccount(ctx context.Context, id string) ([]SocialAccount, error)

	UpdateAccountStatus(ctx context.Context, id string, status AccountStatus) ([]SocialAccount, error)

	SavePendingState(ctx context.Context, pending PendingOAuthState) error

	// ReadPendingState returns nil for an absent state. Implementations purge
	// entries older than PendingStateTTL whenever the pending collection is
	// loaded, so an expired state reads as absent.
	ReadPendingState(ctx context.Context, state string) (*PendingOAuthState, error)

	// ConsumePendingState atomically reads and deletes a pending state,
	// returning nil when it is absent, expired, or already consumed. The
	// atomicity is the replay defense: two callbacks presenting the same
	// state cannot both observe it.
	ConsumePendingState(ctx context.Context, state string) (*PendingOAuthState, error)
}

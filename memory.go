package connect

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory CredentialStore. It backs tests and
// single-process deployments where connection state is a local cache rather
// than a source of truth.
type MemoryStore struct {
	mu       sync.Mutex
	accounts []SocialAccount
	pending  map[string]PendingOAuthState
	clock    Clock
	ttl      time.Duration
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryClock overrides the store clock.
func WithMemoryClock(clock Clock) MemoryStoreOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMemoryTTL overrides the pending-state TTL.
func WithMemoryTTL(ttl time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		pending: map[string]PendingOAuthState{},
		clock:   time.Now,
		ttl:     PendingStateTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// ListAccounts implements CredentialStore.
func (s *MemoryStore) ListAccounts(ctx context.Context) ([]SocialAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// UpsertAccount implements CredentialStore.
func (s *MemoryStore) UpsertAccount(ctx context.Context, account SocialAccount) ([]SocialAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	account.Scopes = NormalizeScopes(account.Scopes)

	for i, existing := range s.accounts {
		if existing.SameIdentity(account) {
			s.accounts[i] = existing.Merged(account, now)
			return s.snapshot(), nil
		}
	}

	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	s.accounts = append(s.accounts, account)

	return s.snapshot(), nil
}

// RemoveAccount implements CredentialStore.
func (s *MemoryStore) RemoveAccount(ctx context.Context, id string) ([]SocialAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.accounts[:0]
	for _, account := range s.accounts {
		if account.ID != id {
			kept = append(kept, account)
		}
	}
	s.accounts = kept

	return s.snapshot(), nil
}

// UpdateAccountStatus implements CredentialStore.
func (s *MemoryStore) UpdateAccountStatus(ctx context.Context, id string, status AccountStatus) ([]SocialAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, account := range s.accounts {
		if account.ID == id {
			s.accounts[i].Status = status
			s.accounts[i].UpdatedAt = s.clock()
			break
		}
	}

	return s.snapshot(), nil
}

// SavePendingState implements CredentialStore.
func (s *MemoryStore) SavePendingState(ctx context.Context, pending PendingOAuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()

	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = s.clock()
	}
	s.pending[pending.State] = pending

	return nil
}

// ReadPendingState implements CredentialStore.
func (s *MemoryStore) ReadPendingState(ctx context.Context, state string) (*PendingOAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()

	pending, ok := s.pending[state]
	if !ok {
		return nil, nil
	}

	return &pending, nil
}

// ConsumePendingState implements CredentialStore. Read and delete happen
// under one lock acquisition; a replayed state observes the deletion.
func (s *MemoryStore) ConsumePendingState(ctx context.Context, state string) (*PendingOAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()

	pending, ok := s.pending[state]
	if !ok {
		return nil, nil
	}
	delete(s.pending, state)

	return &pending, nil
}

// purgeExpired lazily garbage-collects expired handshakes. Called on every
// access of the pending collection; callers hold the lock.
func (s *MemoryStore) purgeExpired() {
	now := s.clock()
	for state, pending := range s.pending {
		if pending.Expired(now, s.ttl) {
			delete(s.pending, state)
		}
	}
}

func (s *MemoryStore) snapshot() []SocialAccount {
	out := make([]SocialAccount, len(s.accounts))
	copy(out, s.accounts)
	return out
}

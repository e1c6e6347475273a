// Package repository provides the bun-backed CredentialStore used when
// connection state must survive process restarts.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	connect "github.com/mejba13/brandflow-ai-sub000"
)

// SocialAccountModel is the bun row for connected accounts.
type SocialAccountModel struct {
	bun.BaseModel `bun:"table:social_accounts"`

	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid"`
	AccountID         string     `bun:"account_id,notnull,unique"`
	Platform          string     `bun:"platform,notnull"`
	PlatformAccountID string     `bun:"platform_account_id,notnull"`
	DisplayName       string     `bun:"display_name"`
	Username          string     `bun:"username"`
	Email             string     `bun:"email"`
	AvatarURL         string     `bun:"avatar_url"`
	ProfileURL        string     `bun:"profile_url"`
	AccessToken       string     `bun:"access_token"`
	RefreshToken      string     `bun:"refresh_token"`
	TokenExpiresAt    *time.Time `bun:"token_expires_at"`
	Scopes            []string   `bun:"scopes,type:jsonb"`
	Followers         int        `bun:"followers"`
	Status            string     `bun:"status,notnull"`
	LastSync          string     `bun:"last_sync"`
	CreatedAt         time.Time  `bun:"created_at,default:current_timestamp"`
	UpdatedAt         time.Time  `bun:"updated_at,default:current_timestamp"`
}

// Store implements connect.CredentialStore using bun.
type Store struct {
	db     *bun.DB
	logger connect.Logger
	clock  connect.Clock
	ttl    time.Duration
}

var _ connect.CredentialStore = (*Store)(nil)

// StoreOption configures the store.
type StoreOption func(*Store)

// WithLogger sets a custom logger.
func WithLogger(logger connect.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets a custom clock.
func WithClock(clock connect.Clock) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPendingTTL overrides the pending-state TTL.
func WithPendingTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewStore creates a credential store over a bun database.
func NewStore(db *bun.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:    db,
		clock: time.Now,
		ttl:   connect.PendingStateTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// ListAccounts implements connect.CredentialStore.
func (s *Store) ListAccounts(ctx context.Context) ([]connect.SocialAccount, error) {
	var models []SocialAccountModel
	err := s.db.NewSelect().
		Model(&models).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []connect.SocialAccount{}, nil
		}
		return nil, err
	}

	accounts := make([]connect.SocialAccount, len(models))
	for i, m := range models {
		accounts[i] = toAccount(&m)
	}
	return accounts, nil
}

// UpsertAccount implements connect.CredentialStore. Conflicts on the
// provider identity update in place; the local account id and creation time
// of the first connection survive reconnects.
func (s *Store) UpsertAccount(ctx context.Context, account connect.SocialAccount) ([]connect.SocialAccount, error) {
	model := fromAccount(&account)
	model.Scopes = connect.NormalizeScopes(model.Scopes)
	model.UpdatedAt = s.clock()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = model.UpdatedAt
	}

	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (platform, platform_account_id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("username = EXCLUDED.username").
		Set("email = EXCLUDED.email").
		Set("avatar_url = EXCLUDED.avatar_url").
		Set("profile_url = EXCLUDED.profile_url").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("token_expires_at = EXCLUDED.token_expires_at").
		Set("scopes = EXCLUDED.scopes").
		Set("followers = EXCLUDED.followers").
		Set("status = EXCLUDED.status").
		Set("last_sync = EXCLUDED.last_sync").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return s.ListAccounts(ctx)
}

// RemoveAccount implements connect.CredentialStore.
func (s *Store) RemoveAccount(ctx context.Context, id string) ([]connect.SocialAccount, error) {
	_, err := s.db.NewDelete().
		Model((*SocialAccountModel)(nil)).
		Where("account_id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return s.ListAccounts(ctx)
}

// UpdateAccountStatus implements connect.CredentialStore.
func (s *Store) UpdateAccountStatus(ctx context.Context, id string, status connect.AccountStatus) ([]connect.SocialAccount, error) {
	_, err := s.db.NewUpdate().
		Model((*SocialAccountModel)(nil)).
		Set("status = ?", string(status)).
		Set("updated_at = ?", s.clock()).
		Where("account_id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return s.ListAccounts(ctx)
}

func toAccount(m *SocialAccountModel) connect.SocialAccount {
	return connect.SocialAccount{
		ID:                m.AccountID,
		Platform:          connect.Platform(m.Platform),
		PlatformAccountID: m.PlatformAccountID,
		DisplayName:       m.DisplayName,
		Username:          m.Username,
		Email:             m.Email,
		AvatarURL:         m.AvatarURL,
		ProfileURL:        m.ProfileURL,
		AccessToken:       m.AccessToken,
		RefreshToken:      m.RefreshToken,
		TokenExpiresAt:    m.TokenExpiresAt,
		Scopes:            m.Scopes,
		Followers:         m.Followers,
		Status:            connect.AccountStatus(m.Status),
		LastSync:          m.LastSync,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func fromAccount(a *connect.SocialAccount) *SocialAccountModel {
	return &SocialAccountModel{
		ID:                uuid.New(),
		AccountID:         a.ID,
		Platform:          a.Platform.String(),
		PlatformAccountID: a.PlatformAccountID,
		DisplayName:       a.DisplayName,
		Username:          a.Username,
		Email:             a.Email,
		AvatarURL:         a.AvatarURL,
		ProfileURL:        a.ProfileURL,
		AccessToken:       a.AccessToken,
		RefreshToken:      a.RefreshToken,
		TokenExpiresAt:    a.TokenExpiresAt,
		Scopes:            a.Scopes,
		Followers:         a.Followers,
		Status:            string(a.Status),
		LastSync:          a.LastSync,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	connect "github.com/mejba13/brandflow-ai-sub000"
)

// PendingStateModel is the bun row for ephemeral OAuth handshakes, keyed by
// the state token.
type PendingStateModel struct {
	bun.BaseModel `bun:"table:oauth_pending_states"`

	State        string    `bun:"state,pk"`
	Platform     string    `bun:"platform,notnull"`
	ReturnURL    string    `bun:"return_url"`
	CodeVerifier string    `bun:"code_verifier"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

// SavePendingState implements connect.CredentialStore.
func (s *Store) SavePendingState(ctx context.Context, pending connect.PendingOAuthState) error {
	s.purgeExpired(ctx)

	model := &PendingStateModel{
		State:        pending.State,
		Platform:     pending.Platform.String(),
		ReturnURL:    pending.ReturnURL,
		CodeVerifier: pending.CodeVerifier,
		CreatedAt:    pending.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = s.clock()
	}

	_, err := s.db.NewInsert().Model(model).Exec(ctx)
	return err
}

// ReadPendingState implements connect.CredentialStore.
func (s *Store) ReadPendingState(ctx context.Context, state string) (*connect.PendingOAuthState, error) {
	s.purgeExpired(ctx)

	var model PendingStateModel
	err := s.db.NewSelect().
		Model(&model).
		Where("state = ?", state).
		Where("created_at >= ?", s.clock().Add(-s.ttl)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return toPending(&model), nil
}

// ConsumePendingState implements connect.CredentialStore. The read and
// delete run in one transaction; a deletion that affects no rows means
// another callback already consumed the state and the handshake is rejected.
func (s *Store) ConsumePendingState(ctx context.Context, state string) (*connect.PendingOAuthState, error) {
	s.purgeExpired(ctx)

	var consumed *connect.PendingOAuthState

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var model PendingStateModel
		err := tx.NewSelect().
			Model(&model).
			Where("state = ?", state).
			Where("created_at >= ?", s.clock().Add(-s.ttl)).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}

		res, err := tx.NewDelete().
			Model((*PendingStateModel)(nil)).
			Where("state = ?", state).
			Exec(ctx)
		if err != nil {
			return err
		}

		if rows, err := res.RowsAffected(); err == nil && rows == 0 {
			return nil
		}

		consumed = toPending(&model)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return consumed, nil
}

// purgeExpired lazily garbage-collects handshakes older than the TTL. Purge
// failures only log; an expired row that survives a failed purge is still
// unreadable through the cutoff filters on the lookups above.
func (s *Store) purgeExpired(ctx context.Context) {
	cutoff := s.clock().Add(-s.ttl)

	_, err := s.db.NewDelete().
		Model((*PendingStateModel)(nil)).
		Where("created_at < ?", cutoff).
		Exec(ctx)
	if err != nil && s.logger != nil {
		s.logger.Error("failed to purge expired oauth states: %v", err)
	}
}

func toPending(m *PendingStateModel) *connect.PendingOAuthState {
	return &connect.PendingOAuthState{
		State:        m.State,
		Platform:     connect.Platform(m.Platform),
		ReturnURL:    m.ReturnURL,
		CodeVerifier: m.CodeVerifier,
		CreatedAt:    m.CreatedAt,
	}
}

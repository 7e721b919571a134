package auth

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConsumeAppTokenSQL performs the atomic issued -> consumed transition. The
// WHERE clause on state is what guarantees a single winner under concurrent
// redemption; the database, not process-local locking, arbitrates.
var ConsumeAppTokenSQL = `UPDATE "app_tokens" AS "apt"
SET
	"state" = ?,
	"consumed_at" = ?
WHERE
	"apt"."id" = ?
AND "apt"."state" = ? RETURNING *;`

// BunTokenStateStore persists single-use token state in the app_tokens table.
type BunTokenStateStore struct {
	db  bun.IDB
	now func() time.Time
}

// BunTokenStateStoreOption customizes the store.
type BunTokenStateStoreOption func(*BunTokenStateStore)

// WithBunStoreClock injects a custom clock (useful for tests).
func WithBunStoreClock(clock func() time.Time) BunTokenStateStoreOption {
	return func(s *BunTokenStateStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewBunTokenStateStore creates a store backed by the given bun handle.
func NewBunTokenStateStore(db bun.IDB, opts ...BunTokenStateStoreOption) *BunTokenStateStore {
	s := &BunTokenStateStore{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var _ TokenStateStore = (*BunTokenStateStore)(nil)

// Issue inserts the record in the issued state.
func (s *BunTokenStateStore) Issue(ctx context.Context, record *AppToken) error {
	if record == nil || record.ID == uuid.Nil {
		return goerrors.New("token record requires an id", goerrors.CategoryBadInput)
	}

	if record.State == "" {
		record.State = AppTokenIssued
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist token state")
	}

	return nil
}

// Get loads a record without transitioning it.
func (s *BunTokenStateStore) Get(ctx context.Context, id uuid.UUID) (*AppToken, error) {
	record := &AppToken{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenStateNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load token state")
	}

	return record, nil
}

// Consume performs the conditional transition through a single UPDATE. Zero
// affected rows means the token lost the race or was never issued; the
// follow-up read decides which failure to report.
func (s *BunTokenStateStore) Consume(ctx context.Context, id uuid.UUID) (*AppToken, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if record.Expired(s.now()) {
		return nil, ErrTokenExpired
	}

	now := s.now()
	updated := &AppToken{}
	err = s.db.NewRaw(ConsumeAppTokenSQL, AppTokenConsumed, now, id, AppTokenIssued).Scan(ctx, updated)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenAlreadyUsed
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume token state")
	}

	return updated, nil
}

// Revoke marks an issued record revoked. Same conditional transition as
// Consume, different terminal state.
func (s *BunTokenStateStore) Revoke(ctx context.Context, id uuid.UUID) error {
	now := s.now()
	res, err := s.db.NewUpdate().
		Model((*AppToken)(nil)).
		Set("state = ?", AppTokenRevoked).
		Set("consumed_at = ?", now).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.state = ?", AppTokenIssued).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke token state")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to inspect revoke result")
	}

	if affected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrTokenAlreadyUsed
	}

	return nil
}

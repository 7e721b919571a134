package auth

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenStateStore tracks single-use token state keyed by jti. Consume and
// Revoke are atomic conditional transitions: concurrent calls on the same
// token succeed exactly once, regardless of how many processes share the
// store.
//
// State machine: issued -> consumed (terminal) via Consume, issued -> revoked
// (terminal) via Revoke. Expiry is checked before the transition, so an
// expired token fails with ErrTokenExpired no matter its state.
type TokenStateStore interface {
	Issue(ctx context.Context, record *AppToken) error
	Get(ctx context.Context, id uuid.UUID) (*AppToken, error)
	Consume(ctx context.Context, id uuid.UUID) (*AppToken, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}

// ErrTokenStateNotFound is returned when no record exists for a jti. Flows
// map it to the failure appropriate for their kind.
var ErrTokenStateNotFound = goerrors.New("token state not found", goerrors.CategoryNotFound).
	WithTextCode("TOKEN_STATE_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// MemoryTokenStateStore is a process-local TokenStateStore for tests and
// single-node development. Production deployments should use the Bun or
// Redis stores.
type MemoryTokenStateStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*AppToken
	now     func() time.Time
}

// MemoryTokenStateStoreOption customizes the memory store.
type MemoryTokenStateStoreOption func(*MemoryTokenStateStore)

// WithMemoryStoreClock injects a custom clock (useful for tests).
func WithMemoryStoreClock(clock func() time.Time) MemoryTokenStateStoreOption {
	return func(s *MemoryTokenStateStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewMemoryTokenStateStore creates an empty in-memory store.
func NewMemoryTokenStateStore(opts ...MemoryTokenStateStoreOption) *MemoryTokenStateStore {
	s := &MemoryTokenStateStore{
		records: map[uuid.UUID]*AppToken{},
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var _ TokenStateStore = (*MemoryTokenStateStore)(nil)

// Issue registers a new record in the issued state.
func (s *MemoryTokenStateStore) Issue(ctx context.Context, record *AppToken) error {
	if record == nil || record.ID == uuid.Nil {
		return goerrors.New("token record requires an id", goerrors.CategoryBadInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *record
	if clone.State == "" {
		clone.State = AppTokenIssued
	}
	s.records[clone.ID] = &clone
	return nil
}

// Get returns a copy of the record without transitioning it.
func (s *MemoryTokenStateStore) Get(ctx context.Context, id uuid.UUID) (*AppToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrTokenStateNotFound
	}

	clone := *record
	return &clone, nil
}

// Consume transitions issued -> consumed. The second and every later call on
// the same id fails with ErrTokenAlreadyUsed; expired records fail with
// ErrTokenExpired regardless of state.
func (s *MemoryTokenStateStore) Consume(ctx context.Context, id uuid.UUID) (*AppToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrTokenStateNotFound
	}

	if record.Expired(s.now()) {
		return nil, ErrTokenExpired
	}

	if record.State != AppTokenIssued {
		return nil, ErrTokenAlreadyUsed
	}

	now := s.now()
	record.State = AppTokenConsumed
	record.ConsumedAt = &now

	clone := *record
	return &clone, nil
}

// Revoke transitions issued -> revoked. Revoking a consumed or revoked
// record fails with ErrTokenAlreadyUsed.
func (s *MemoryTokenStateStore) Revoke(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return ErrTokenStateNotFound
	}

	if record.State != AppTokenIssued {
		return ErrTokenAlreadyUsed
	}

	now := s.now()
	record.State = AppTokenRevoked
	record.ConsumedAt = &now
	return nil
}

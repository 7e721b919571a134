package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// APIKeyTokenInput describes the key a workspace member wants a bearer token
// for. ExpiresAt comes from the stored key record, not the caller's clock.
type APIKeyTokenInput struct {
	WorkspaceID uuid.UUID
	APIKeyID    uuid.UUID
	ExpiresAt   time.Time
}

// APIKeyToken is a minted API key bearer token.
type APIKeyToken struct {
	Token    Token  `json:"token"`
	APIKeyID string `json:"api_key_id"`
}

// APIKeyTokenService mints long-lived workspace API key tokens. The caller
// must be a member of the target workspace, and the key's expiry must be in
// the future; there is no server-imposed TTL beyond it.
type APIKeyTokenService struct {
	store  CredentialStore
	codec  TokenCodec
	logger Logger
	sink   ActivitySink
	now    func() time.Time
}

// NewAPIKeyTokenService builds the service.
func NewAPIKeyTokenService(store CredentialStore, codec TokenCodec) *APIKeyTokenService {
	return &APIKeyTokenService{
		store:  store,
		codec:  codec,
		logger: defLogger{},
		sink:   noopActivitySink{},
		now:    time.Now,
	}
}

// WithLogger overrides the logger used by the service.
func (s *APIKeyTokenService) WithLogger(logger Logger) *APIKeyTokenService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for issuance events.
func (s *APIKeyTokenService) WithActivitySink(sink ActivitySink) *APIKeyTokenService {
	s.sink = normalizeActivitySink(sink)
	return s
}

// WithClock injects a custom clock (useful for tests).
func (s *APIKeyTokenService) WithClock(clock func() time.Time) *APIKeyTokenService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// GenerateAPIKeyToken mints a bearer token for the key, valid until the key's
// own expiry. Membership in the workspace is required; a missing or past
// expiry fails with ErrInvalidExpiry.
func (s *APIKeyTokenService) GenerateAPIKeyToken(ctx context.Context, user *User, input APIKeyTokenInput) (*APIKeyToken, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, goerrors.New("user is required", goerrors.CategoryBadInput)
	}
	if input.WorkspaceID == uuid.Nil || input.APIKeyID == uuid.Nil {
		return nil, goerrors.New("workspace and api key ids are required", goerrors.CategoryBadInput)
	}

	if _, err := s.store.FindMembership(ctx, user.ID, input.WorkspaceID); err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrNotAMember
		}
		return nil, err
	}

	ttl := input.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil, ErrInvalidExpiry
	}

	token, _, err := s.codec.Sign(TokenKindAPIKey, AppClaims{
		RegisteredClaims: registeredSubject(input.APIKeyID),
		WorkspaceID:      input.WorkspaceID.String(),
		APIKeyID:         input.APIKeyID.String(),
	}, ttl)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType:   ActivityEventTokenIssued,
		Actor:       ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:      user.ID.String(),
		WorkspaceID: input.WorkspaceID.String(),
		TokenKind:   TokenKindAPIKey,
		Metadata:    map[string]any{"api_key_id": input.APIKeyID.String()},
	})

	return &APIKeyToken{Token: token, APIKeyID: input.APIKeyID.String()}, nil
}

package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TransientToken carries an authenticated context across surfaces (browser to
// desktop, main window to embedded view). Short-lived and never refreshable.
type TransientToken struct {
	Token Token `json:"transient_token"`
}

// TransientTokenService mints cross-context handoff tokens bound to the
// user's membership in their default workspace.
type TransientTokenService struct {
	store  CredentialStore
	codec  TokenCodec
	ttl    time.Duration
	logger Logger
	sink   ActivitySink
}

// NewTransientTokenService builds the service with the configured TTL.
func NewTransientTokenService(store CredentialStore, codec TokenCodec, cfg Config) *TransientTokenService {
	return &TransientTokenService{
		store:  store,
		codec:  codec,
		ttl:    cfg.GetTransientTokenTTL(),
		logger: defLogger{},
		sink:   noopActivitySink{},
	}
}

// WithLogger overrides the logger used by the service.
func (s *TransientTokenService) WithLogger(logger Logger) *TransientTokenService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for issuance events.
func (s *TransientTokenService) WithActivitySink(sink ActivitySink) *TransientTokenService {
	s.sink = normalizeActivitySink(sink)
	return s
}

// GenerateTransientToken mints a handoff token for the user's default
// workspace. A user without a membership there gets (nil, nil): the handoff
// is simply unavailable, not an error.
func (s *TransientTokenService) GenerateTransientToken(ctx context.Context, user *User) (*TransientToken, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, goerrors.New("user is required", goerrors.CategoryBadInput)
	}
	if user.DefaultWorkspaceID == uuid.Nil {
		return nil, nil
	}

	membership, err := s.store.FindMembership(ctx, user.ID, user.DefaultWorkspaceID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	token, _, err := s.codec.Sign(TokenKindTransient, AppClaims{
		RegisteredClaims:  registeredSubject(user.ID),
		WorkspaceID:       user.DefaultWorkspaceID.String(),
		WorkspaceMemberID: membership.ID.String(),
	}, s.ttl)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType:   ActivityEventTokenIssued,
		Actor:       ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:      user.ID.String(),
		WorkspaceID: user.DefaultWorkspaceID.String(),
		TokenKind:   TokenKindTransient,
	})

	return &TransientToken{Token: token}, nil
}

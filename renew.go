package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// RenewTokenService rotates refresh tokens. The presented token is revoked
// before a new pair is minted, so replay of an already-rotated token fails
// with ErrTokenRevoked even when two renewals race: the state store's
// conditional transition admits exactly one winner.
//
// Rotation revokes the single presented token only. Full chain revocation on
// detected reuse is a hardening option layered on the ActivitySink events,
// not default behavior.
type RenewTokenService struct {
	store  CredentialStore
	codec  TokenCodec
	state  TokenStateStore
	issuer *TokenIssuer
	logger Logger
	sink   ActivitySink
}

// NewRenewTokenService builds the service.
func NewRenewTokenService(store CredentialStore, codec TokenCodec, state TokenStateStore, issuer *TokenIssuer) *RenewTokenService {
	return &RenewTokenService{
		store:  store,
		codec:  codec,
		state:  state,
		issuer: issuer,
		logger: defLogger{},
		sink:   noopActivitySink{},
	}
}

// WithLogger overrides the logger used by the service.
func (s *RenewTokenService) WithLogger(logger Logger) *RenewTokenService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for rotation events.
func (s *RenewTokenService) WithActivitySink(sink ActivitySink) *RenewTokenService {
	s.sink = normalizeActivitySink(sink)
	return s
}

// Renew verifies the refresh token, revokes it, and mints a new pair scoped
// identically to the original.
func (s *RenewTokenService) Renew(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	claims, err := s.codec.Verify(refreshToken, TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	jti, err := uuid.Parse(claims.TokenID())
	if err != nil {
		return nil, ErrTokenMalformed
	}

	if err := s.state.Revoke(ctx, jti); err != nil {
		switch {
		case goerrors.Is(err, ErrTokenStateNotFound):
			return nil, ErrTokenRevoked
		case IsTokenAlreadyUsedError(err):
			s.logger.Warn("refresh token replay detected: jti=%s", jti.String())
			return nil, ErrTokenRevoked
		case IsTokenExpiredError(err):
			return nil, ErrTokenExpired
		}
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject())
	if err != nil {
		return nil, ErrTokenMalformed
	}

	workspaceID, err := uuid.Parse(claims.WorkspaceID)
	if err != nil {
		return nil, ErrTokenMalformed
	}

	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrTokenRevoked
		}
		return nil, err
	}

	tokens, err := s.issuer.IssueAuthTokens(ctx, user, workspaceID)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType:   ActivityEventTokenRevoked,
		Actor:       ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:      user.ID.String(),
		WorkspaceID: workspaceID.String(),
		TokenKind:   TokenKindRefresh,
		Metadata:    map[string]any{"rotated": true},
	})

	return tokens, nil
}

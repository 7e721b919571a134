package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenIssuer mints the access/refresh pair every token-granting flow ends
// in. The access token is stateless; the refresh token's jti is registered
// with the TokenStateStore so rotation can revoke it atomically.
type TokenIssuer struct {
	codec      TokenCodec
	state      TokenStateStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     Logger
	sink       ActivitySink
}

// NewTokenIssuer wires a codec and state store with the configured TTLs.
func NewTokenIssuer(codec TokenCodec, state TokenStateStore, cfg Config) *TokenIssuer {
	return &TokenIssuer{
		codec:      codec,
		state:      state,
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		logger:     defLogger{},
		sink:       noopActivitySink{},
	}
}

// WithLogger overrides the logger used by the issuer.
func (ti *TokenIssuer) WithLogger(logger Logger) *TokenIssuer {
	if logger != nil {
		ti.logger = logger
	}
	return ti
}

// WithActivitySink configures an ActivitySink for issuance events.
func (ti *TokenIssuer) WithActivitySink(sink ActivitySink) *TokenIssuer {
	ti.sink = normalizeActivitySink(sink)
	return ti
}

// IssueAuthTokens mints a pair scoped to (user, workspace).
func (ti *TokenIssuer) IssueAuthTokens(ctx context.Context, user *User, workspaceID uuid.UUID) (*AuthTokens, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, goerrors.New("user is required", goerrors.CategoryBadInput)
	}
	if workspaceID == uuid.Nil {
		return nil, ErrWorkspaceNotFound
	}

	access, _, err := ti.codec.Sign(TokenKindAccess, AppClaims{
		RegisteredClaims: registeredSubject(user.ID),
		Email:            user.Email,
		WorkspaceID:      workspaceID.String(),
	}, ti.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, refreshClaims, err := ti.codec.Sign(TokenKindRefresh, AppClaims{
		RegisteredClaims: registeredSubject(user.ID),
		WorkspaceID:      workspaceID.String(),
	}, ti.refreshTTL)
	if err != nil {
		return nil, err
	}

	jti, err := uuid.Parse(refreshClaims.TokenID())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "refresh token has invalid jti")
	}

	userID := user.ID
	wsID := workspaceID
	if err := ti.state.Issue(ctx, &AppToken{
		ID:          jti,
		Kind:        TokenKindRefresh,
		UserID:      &userID,
		WorkspaceID: &wsID,
		ExpiresAt:   refresh.ExpiresAt,
	}); err != nil {
		return nil, err
	}

	recordActivity(ctx, ti.sink, ti.logger, ActivityEvent{
		EventType:   ActivityEventTokenIssued,
		Actor:       ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:      user.ID.String(),
		WorkspaceID: workspaceID.String(),
		TokenKind:   TokenKindRefresh,
	})

	return &AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

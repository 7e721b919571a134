package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Verified is the outcome of redeeming a LoginToken: a confirmed identity
// plus a fresh pair scoped to the user's default workspace.
type Verified struct {
	User   *User       `json:"user"`
	Tokens *AuthTokens `json:"tokens"`
}

// VerifyFlow redeems LoginTokens. Each token verifies at most once; the
// second redemption fails with ErrTokenAlreadyUsed no matter which process
// handled the first.
type VerifyFlow struct {
	store  CredentialStore
	codec  TokenCodec
	state  TokenStateStore
	issuer *TokenIssuer
	logger Logger
	sink   ActivitySink
}

// NewVerifyFlow builds the flow.
func NewVerifyFlow(store CredentialStore, codec TokenCodec, state TokenStateStore, issuer *TokenIssuer) *VerifyFlow {
	return &VerifyFlow{
		store:  store,
		codec:  codec,
		state:  state,
		issuer: issuer,
		logger: defLogger{},
		sink:   noopActivitySink{},
	}
}

// WithLogger overrides the logger used by the flow.
func (f *VerifyFlow) WithLogger(logger Logger) *VerifyFlow {
	if logger != nil {
		f.logger = logger
	}
	return f
}

// WithActivitySink configures an ActivitySink for verification events.
func (f *VerifyFlow) WithActivitySink(sink ActivitySink) *VerifyFlow {
	f.sink = normalizeActivitySink(sink)
	return f
}

// Verify decodes the login token, consumes it, and resolves the bound email
// to a confirmed user. First-login bookkeeping marks the email verified.
func (f *VerifyFlow) Verify(ctx context.Context, loginToken string) (*Verified, error) {
	claims, err := f.codec.Verify(loginToken, TokenKindLogin)
	if err != nil {
		return nil, err
	}

	jti, err := uuid.Parse(claims.TokenID())
	if err != nil {
		return nil, ErrTokenMalformed
	}

	if _, err := f.state.Consume(ctx, jti); err != nil {
		if goerrors.Is(err, ErrTokenStateNotFound) {
			return nil, ErrTokenMalformed
		}
		return nil, err
	}

	user, err := f.store.FindUserByEmail(ctx, normalizeEmail(claims.Email))
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.EmailVerified {
		if err := f.store.MarkEmailVerified(ctx, user.ID); err != nil {
			f.logger.Warn("verify could not mark email verified: %v", err)
		} else {
			user.EmailVerified = true
		}
	}

	tokens, err := f.issuer.IssueAuthTokens(ctx, user, user.DefaultWorkspaceID)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, f.sink, f.logger, ActivityEvent{
		EventType: ActivityEventLoginVerified,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		TokenKind: TokenKindLogin,
	})

	return &Verified{User: user, Tokens: tokens}, nil
}

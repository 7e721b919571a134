package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AuthorizeAppInput names the client a signed-in user is granting access to.
type AuthorizeAppInput struct {
	ClientID    string `json:"client_id"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// Validate implements input validation for the authorization request.
func (r AuthorizeAppInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ClientID, validation.Required, validation.Length(1, 200)),
	)
}

// AuthorizationCode is the single-use grant handed back to the client.
type AuthorizationCode struct {
	Code        Token  `json:"authorization_code"`
	ClientID    string `json:"client_id"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// AppAuthorizationService implements the third-party app handshake: a
// signed-in user authorizes a client and receives a short-lived code; the
// client exchanges the code exactly once for an AuthTokens pair.
type AppAuthorizationService struct {
	store   CredentialStore
	codec   TokenCodec
	state   TokenStateStore
	issuer  *TokenIssuer
	codeTTL time.Duration
	logger  Logger
	sink    ActivitySink
}

// NewAppAuthorizationService builds the service with the configured code TTL.
func NewAppAuthorizationService(store CredentialStore, codec TokenCodec, state TokenStateStore, issuer *TokenIssuer, cfg Config) *AppAuthorizationService {
	return &AppAuthorizationService{
		store:   store,
		codec:   codec,
		state:   state,
		issuer:  issuer,
		codeTTL: cfg.GetAuthorizationCodeTTL(),
		logger:  defLogger{},
		sink:    noopActivitySink{},
	}
}

// WithLogger overrides the logger used by the service.
func (s *AppAuthorizationService) WithLogger(logger Logger) *AppAuthorizationService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for authorization events.
func (s *AppAuthorizationService) WithActivitySink(sink ActivitySink) *AppAuthorizationService {
	s.sink = normalizeActivitySink(sink)
	return s
}

// AuthorizeApp mints a single-use authorization code bound to the user and
// the requesting client.
func (s *AppAuthorizationService) AuthorizeApp(ctx context.Context, user *User, input AuthorizeAppInput) (*AuthorizationCode, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, goerrors.New("user is required", goerrors.CategoryBadInput)
	}

	if err := input.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid authorization input")
	}

	code, claims, err := s.codec.Sign(TokenKindAuthorizationCode, AppClaims{
		RegisteredClaims: registeredSubject(user.ID),
		ClientID:         input.ClientID,
	}, s.codeTTL)
	if err != nil {
		return nil, err
	}

	jti, err := uuid.Parse(claims.TokenID())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "authorization code has invalid jti")
	}

	userID := user.ID
	if err := s.state.Issue(ctx, &AppToken{
		ID:        jti,
		Kind:      TokenKindAuthorizationCode,
		UserID:    &userID,
		ClientID:  input.ClientID,
		ExpiresAt: code.ExpiresAt,
	}); err != nil {
		return nil, err
	}

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType: ActivityEventTokenIssued,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		TokenKind: TokenKindAuthorizationCode,
		Metadata:  map[string]any{"client_id": input.ClientID},
	})

	return &AuthorizationCode{
		Code:        code,
		ClientID:    input.ClientID,
		RedirectURI: input.RedirectURI,
	}, nil
}

// ExchangeAuthorizationCode redeems a code for an AuthTokens pair. The code
// is consumed atomically: a second exchange fails with ErrCodeAlreadyUsed,
// and a client id other than the one the code was issued to fails with
// ErrClientMismatch without consuming the code.
func (s *AppAuthorizationService) ExchangeAuthorizationCode(ctx context.Context, code, clientID string) (*AuthTokens, error) {
	claims, err := s.codec.Verify(code, TokenKindAuthorizationCode)
	if err != nil {
		if IsTokenExpiredError(err) {
			return nil, ErrCodeExpired
		}
		return nil, ErrInvalidCode
	}

	if claims.ClientID == "" || claims.ClientID != clientID {
		return nil, ErrClientMismatch
	}

	jti, err := uuid.Parse(claims.TokenID())
	if err != nil {
		return nil, ErrInvalidCode
	}

	record, err := s.state.Consume(ctx, jti)
	if err != nil {
		switch {
		case goerrors.Is(err, ErrTokenStateNotFound):
			return nil, ErrInvalidCode
		case IsTokenAlreadyUsedError(err):
			s.logger.Warn("authorization code replay detected: jti=%s client=%s", jti.String(), clientID)
			return nil, ErrCodeAlreadyUsed
		case IsTokenExpiredError(err):
			return nil, ErrCodeExpired
		}
		return nil, err
	}

	if record.ClientID != clientID {
		return nil, ErrClientMismatch
	}

	userID, err := uuid.Parse(claims.Subject())
	if err != nil {
		return nil, ErrInvalidCode
	}

	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}

	tokens, err := s.issuer.IssueAuthTokens(ctx, user, user.DefaultWorkspaceID)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType: ActivityEventTokenConsumed,
		Actor:     ActorRef{ID: clientID, Type: "client"},
		UserID:    user.ID.String(),
		TokenKind: TokenKindAuthorizationCode,
		Metadata:  map[string]any{"client_id": clientID},
	})

	return tokens, nil
}

package auth

import (
	"context"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenValidator validates an externally issued assertion and maps it to
// AppClaims. The challenge flow only consumes the Email claim; everything
// else the IdP asserts is the validator's business.
type TokenValidator interface {
	Validate(tokenString string) (*AppClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (*AppClaims, error)

// Validate implements TokenValidator.
func (f TokenValidatorFunc) Validate(tokenString string) (*AppClaims, error) {
	if f == nil {
		return nil, ErrInvalidSSOAssertion
	}
	return f(tokenString)
}

// MultiTokenValidator tries each validator in order and returns the first
// success. Useful when a deployment trusts several identity providers.
type MultiTokenValidator struct {
	validators []TokenValidator
}

// NewMultiTokenValidator chains validators; nil entries are skipped.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	m := &MultiTokenValidator{}
	for _, v := range validators {
		if v != nil {
			m.validators = append(m.validators, v)
		}
	}
	return m
}

// Validate implements TokenValidator.
func (m *MultiTokenValidator) Validate(tokenString string) (*AppClaims, error) {
	for _, v := range m.validators {
		claims, err := v.Validate(tokenString)
		if err == nil {
			return claims, nil
		}
	}
	return nil, ErrInvalidSSOAssertion
}

// JWKSValidator validates IdP assertions against a remote JWKS endpoint. Keys
// refresh in the background; an unknown kid triggers an immediate refetch.
type JWKSValidator struct {
	jwks     *keyfunc.JWKS
	issuer   string
	audience string
	logger   Logger
}

// JWKSValidatorOption customizes the validator.
type JWKSValidatorOption func(*JWKSValidator)

// WithJWKSAudience requires the assertion to carry the audience.
func WithJWKSAudience(audience string) JWKSValidatorOption {
	return func(v *JWKSValidator) {
		v.audience = audience
	}
}

// WithJWKSLogger overrides the logger used for background refresh errors.
func WithJWKSLogger(logger Logger) JWKSValidatorOption {
	return func(v *JWKSValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewJWKSValidator fetches the provider's JWKS and returns a validator bound
// to its issuer. The provider record supplies both the issuer and the JWKS
// URI; Close must be called to stop the background refresh.
func NewJWKSValidator(ctx context.Context, provider *SSOIdentityProvider, opts ...JWKSValidatorOption) (*JWKSValidator, error) {
	if provider == nil || provider.JWKSURI == "" {
		return nil, goerrors.New("identity provider requires a jwks uri", goerrors.CategoryBadInput)
	}

	v := &JWKSValidator{
		issuer: provider.Issuer,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	jwks, err := keyfunc.Get(provider.JWKSURI, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			v.logger.Warn("jwks refresh error: %v", err)
		},
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to fetch jwks")
	}

	v.jwks = jwks
	return v, nil
}

// Close stops the background JWKS refresh.
func (v *JWKSValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// Validate implements TokenValidator. Signature, issuer, and (when set)
// audience are checked; the email claim is lifted into AppClaims.
func (v *JWKSValidator) Validate(tokenString string) (*AppClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSSOAssertion
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return nil, ErrInvalidSSOAssertion
	}

	out := &AppClaims{Email: email}
	if sub, err := claims.GetSubject(); err == nil {
		out.RegisteredClaims.Subject = sub
	}
	if iss, err := claims.GetIssuer(); err == nil {
		out.RegisteredClaims.Issuer = iss
	}

	return out, nil
}

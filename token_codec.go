package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenCodec signs and verifies typed tokens. Verification is strict about
// the kind discriminant: a structurally valid token of the wrong kind fails
// as malformed.
type TokenCodec interface {
	Sign(kind TokenKind, claims AppClaims, ttl time.Duration) (Token, *AppClaims, error)
	Verify(tokenString string, expected TokenKind) (*AppClaims, error)
}

// Codec is the HS256 implementation of TokenCodec. The signing key, issuer,
// and audience are fixed at construction; there is no ambient configuration.
type Codec struct {
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// CodecOption customizes Codec construction.
type CodecOption func(*Codec)

// WithCodecLogger overrides the logger.
func WithCodecLogger(logger Logger) CodecOption {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCodecClock injects a custom clock (useful for tests).
func WithCodecClock(clock func() time.Time) CodecOption {
	return func(c *Codec) {
		if clock != nil {
			c.now = clock
		}
	}
}

// NewTokenCodec creates a Codec with the given immutable signing config.
func NewTokenCodec(signingKey []byte, issuer string, audience []string, opts ...CodecOption) *Codec {
	var aud jwt.ClaimStrings
	if len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}

	c := &Codec{
		signingKey: signingKey,
		issuer:     issuer,
		audience:   aud,
		logger:     defLogger{},
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

var _ TokenCodec = (*Codec)(nil)

// Sign mints a token of the given kind. Registered claims (issuer, audience,
// jti, iat, exp) are owned by the codec; kind-specific claims come from the
// caller. The returned AppClaims mirror what was signed, jti included.
func (c *Codec) Sign(kind TokenKind, claims AppClaims, ttl time.Duration) (Token, *AppClaims, error) {
	if kind == "" {
		return Token{}, nil, errors.New("token kind is required", errors.CategoryBadInput)
	}
	if ttl <= 0 {
		return Token{}, nil, errors.New("token TTL must be positive", errors.CategoryBadInput)
	}

	now := c.now()
	expiresAt := now.Add(ttl)

	claims.Kind = kind
	claims.RegisteredClaims.Issuer = c.issuer
	if len(claims.RegisteredClaims.Audience) == 0 {
		claims.RegisteredClaims.Audience = c.audience
	}
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	if claims.RegisteredClaims.ID == "" {
		claims.RegisteredClaims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)

	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return Token{}, nil, errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return Token{Value: signed, ExpiresAt: expiresAt}, &claims, nil
}

// Verify parses and validates a token string against the expected kind.
func (c *Codec) Verify(tokenString string, expected TokenKind) (*AppClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}
	parserOptions = append(parserOptions, jwt.WithTimeFunc(c.now))

	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("Codec verify encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*AppClaims)
	if !ok || !token.Valid {
		c.logger.Error("Codec verify could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	if expected != "" && claims.Kind != expected {
		c.logger.Error("Codec verify token kind mismatch: want=%s got=%s", expected, claims.Kind)
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

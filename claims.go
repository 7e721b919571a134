package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind is the discriminant embedded in every token this package signs.
// Verification dispatches on it: a token presented against the wrong kind is
// malformed, not merely unauthorized.
type TokenKind = string

const (
	// TokenKindLogin is the short-lived, single-use challenge result. It
	// carries only an email claim; its holder has not confirmed an identity.
	TokenKindLogin TokenKind = "login"
	// TokenKindAccess is the stateless short-lived workspace token.
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh rotates on every renewal.
	TokenKindRefresh TokenKind = "refresh"
	// TokenKindTransient is the short-lived cross-context handoff token.
	TokenKindTransient TokenKind = "transient"
	// TokenKindAPIKey is long-lived and bound to a workspace API key.
	TokenKindAPIKey TokenKind = "api-key"
	// TokenKindPasswordReset is single-use and bound to a user id.
	TokenKindPasswordReset TokenKind = "password-reset"
	// TokenKindAuthorizationCode is exchanged exactly once for AuthTokens.
	TokenKindAuthorizationCode TokenKind = "authorization-code"
)

// AppClaims is the claim set for every token kind. Kind-specific fields stay
// empty for kinds that do not use them; Kind is the only mandatory extension.
type AppClaims struct {
	jwt.RegisteredClaims
	Kind              TokenKind `json:"kind"`
	Email             string    `json:"email,omitempty"`
	WorkspaceID       string    `json:"workspace_id,omitempty"`
	WorkspaceMemberID string    `json:"workspace_member_id,omitempty"`
	APIKeyID          string    `json:"api_key_id,omitempty"`
	ClientID          string    `json:"client_id,omitempty"`
}

func registeredSubject(id uuid.UUID) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: id.String()}
}

// Subject returns the subject claim.
func (c *AppClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// TokenID returns the jti, the key single-use state is tracked under.
func (c *AppClaims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Expires returns the expiration time.
func (c *AppClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAtTime returns the issued at time.
func (c *AppClaims) IssuedAtTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

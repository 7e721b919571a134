package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity record. The flows never mutate it directly except
// through UpdatePasswordHash and MarkEmailVerified.
type User struct {
	bun.BaseModel      `bun:"table:users,alias:usr"`
	ID                 uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName          string         `bun:"first_name" json:"first_name,omitempty"`
	LastName           string         `bun:"last_name" json:"last_name,omitempty"`
	Email              string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash       string         `bun:"password_hash" json:"-"`
	EmailVerified      bool           `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	DefaultWorkspaceID uuid.UUID      `bun:"default_workspace_id,nullzero,type:uuid" json:"default_workspace_id,omitempty"`
	Metadata           map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt          *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt          *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Workspace is the tenant boundary. SSO configuration hangs off
// SSOIdentityProvider records scoped to the workspace.
type Workspace struct {
	bun.BaseModel `bun:"table:workspaces,alias:wks"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	DisplayName   string     `bun:"display_name,notnull" json:"display_name,omitempty"`
	InviteHash    string     `bun:"invite_hash,unique" json:"invite_hash,omitempty"`
	RequireSSO    bool       `bun:"require_sso" json:"require_sso,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// WorkspaceMembership relates a user to a workspace. No workspace-scoped
// token is ever issued without one.
type WorkspaceMembership struct {
	bun.BaseModel `bun:"table:workspace_memberships,alias:wsm"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	WorkspaceID   uuid.UUID  `bun:"workspace_id,notnull,type:uuid" json:"workspace_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Workspace     *Workspace `bun:"rel:belongs-to,join:workspace_id=id" json:"workspace,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// SSOIdentityProvider is a workspace-scoped external IdP. Issuer and JWKS URI
// drive assertion validation; the display fields feed the SSO redirect
// decision returned by SwitchWorkspace.
type SSOIdentityProvider struct {
	bun.BaseModel `bun:"table:sso_identity_providers,alias:idp"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	WorkspaceID   uuid.UUID  `bun:"workspace_id,notnull,type:uuid" json:"workspace_id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Issuer        string     `bun:"issuer,notnull" json:"issuer,omitempty"`
	JWKSURI       string     `bun:"jwks_uri" json:"jwks_uri,omitempty"`
	RedirectURI   string     `bun:"redirect_uri" json:"redirect_uri,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AppTokenState is the lifecycle of a single-use token record.
type AppTokenState = string

const (
	// AppTokenIssued is the initial state
	AppTokenIssued AppTokenState = "issued"
	// AppTokenConsumed is terminal; no transition leaves it
	AppTokenConsumed AppTokenState = "consumed"
	// AppTokenRevoked is terminal; explicit invalidation (rotation, logout)
	AppTokenRevoked AppTokenState = "revoked"
)

// AppToken is the stored consumption record for a stateful token. One table
// serves every single-use kind; the Kind column is the variant tag.
type AppToken struct {
	bun.BaseModel `bun:"table:app_tokens,alias:apt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Kind          TokenKind  `bun:"kind,notnull" json:"kind,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,nullzero,type:uuid" json:"user_id,omitempty"`
	WorkspaceID   *uuid.UUID `bun:"workspace_id,nullzero,type:uuid" json:"workspace_id,omitempty"`
	ClientID      string     `bun:"client_id" json:"client_id,omitempty"`
	State         string     `bun:"state,notnull,default:'issued'" json:"state,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	ConsumedAt    *time.Time `bun:"consumed_at,nullzero" json:"consumed_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Expired reports whether the record is past its validity window.
func (t *AppToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

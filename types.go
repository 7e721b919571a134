package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// CredentialStore resolves the identity and authorization facts the token
// flows depend on. The package ships a Bun-backed implementation but the
// flows only ever talk to this interface.
type CredentialStore interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindWorkspace(ctx context.Context, id uuid.UUID) (*Workspace, error)
	FindWorkspaceByInviteHash(ctx context.Context, inviteHash string) (*Workspace, error)
	FindMembership(ctx context.Context, userID, workspaceID uuid.UUID) (*WorkspaceMembership, error)
	FindIdentityProviders(ctx context.Context, workspaceID uuid.UUID) ([]SSOIdentityProvider, error)
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error
	MarkEmailVerified(ctx context.Context, userID uuid.UUID) error
	RegisterUser(ctx context.Context, user *User) (*User, error)
}

// AbuseGate is the captcha-equivalent precondition check invoked before
// Challenge and SignUp. Denial surfaces as ErrAbuseCheckRejected; the flows
// carry no abuse logic of their own.
type AbuseGate interface {
	Check(ctx context.Context, input AbuseCheckInput) error
}

// AbuseCheckInput carries whatever the gate needs to score a request.
type AbuseCheckInput struct {
	Email    string
	RemoteIP string
	Solution string
}

// AbuseGateFunc adapts a function into an AbuseGate.
type AbuseGateFunc func(ctx context.Context, input AbuseCheckInput) error

func (f AbuseGateFunc) Check(ctx context.Context, input AbuseCheckInput) error {
	if f == nil {
		return nil
	}
	return f(ctx, input)
}

type noopAbuseGate struct{}

func (noopAbuseGate) Check(context.Context, AbuseCheckInput) error { return nil }

func normalizeAbuseGate(g AbuseGate) AbuseGate {
	if g == nil {
		return noopAbuseGate{}
	}
	return g
}

// NotificationSender delivers password-reset links. Delivery failures are
// reported as ErrDeliveryFailed but never roll back token issuance.
type NotificationSender interface {
	Send(ctx context.Context, email, link string) error
}

// NotificationSenderFunc adapts a function into a NotificationSender.
type NotificationSenderFunc func(ctx context.Context, email, link string) error

func (f NotificationSenderFunc) Send(ctx context.Context, email, link string) error {
	if f == nil {
		return nil
	}
	return f(ctx, email, link)
}

// AuthTokens is the access/refresh pair minted for a (user, workspace) scope.
type AuthTokens struct {
	AccessToken  Token `json:"access_token"`
	RefreshToken Token `json:"refresh_token"`
}

// Token is a signed token value with its expiry.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

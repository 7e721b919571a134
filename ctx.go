package auth

import (
	"context"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets the AppClaims in the given context
func WithClaimsContext(r context.Context, claims *AppClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AppClaims from the standard context
func GetClaims(ctx context.Context) (*AppClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*AppClaims)
	return raw, ok
}

// WorkspaceFromClaims returns the workspace scope carried by the context
// claims, if any.
func WorkspaceFromClaims(ctx context.Context) (string, bool) {
	claims, ok := GetClaims(ctx)
	if !ok || claims.WorkspaceID == "" {
		return "", false
	}
	return claims.WorkspaceID, true
}

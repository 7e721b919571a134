// Package auth implements the token lifecycle engine for a multi-tenant
// product: challenge/verify login, workspace switching with SSO branching,
// refresh-token rotation, OAuth authorization-code exchange, and the
// narrowly-scoped transient, API-key, and password-reset tokens.
//
// Token kinds:
//   - Every issued token is a signed JWT carrying a kind discriminant. The
//     Codec refuses to verify a token against the wrong kind, so a login
//     token can never be replayed as an access token.
//   - Stateful kinds (login, refresh, password-reset, authorization-code)
//     are single-use. Their jti is registered in a TokenStateStore and
//     consumption is an atomic conditional transition: concurrent redemption
//     of the same token yields exactly one success.
//
// Stores:
//   - CredentialStore resolves users, workspaces, memberships, and workspace
//     identity providers. A Bun-backed implementation ships with the package;
//     callers may supply their own.
//   - TokenStateStore tracks single-use consumption. In-memory, Bun, and
//     Redis implementations are provided; the Redis store is the one to use
//     when requests are distributed across processes.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the flows to
//     describe challenge, verification, rotation, and password reset events.
//     Sinks run best-effort (errors are logged) so you can forward to a
//     database or queue without blocking issuance.
package auth

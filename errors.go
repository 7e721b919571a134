package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Stable text codes surfaced to transport layers alongside each error kind.
const (
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenAlreadyUsed    = "TOKEN_ALREADY_USED"
	TextCodeTokenRevoked        = "TOKEN_REVOKED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeWorkspaceNotFound   = "WORKSPACE_NOT_FOUND"
	TextCodeNotAMember          = "NOT_A_WORKSPACE_MEMBER"
	TextCodeInvalidExpiry       = "INVALID_EXPIRY"
	TextCodeInvalidCode         = "INVALID_AUTHORIZATION_CODE"
	TextCodeCodeExpired         = "AUTHORIZATION_CODE_EXPIRED"
	TextCodeCodeAlreadyUsed     = "AUTHORIZATION_CODE_ALREADY_USED"
	TextCodeClientMismatch      = "CLIENT_MISMATCH"
	TextCodeDeliveryFailed      = "DELIVERY_FAILED"
	TextCodeAbuseCheckRejected  = "ABUSE_CHECK_REJECTED"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodeEmailAlreadyInUse   = "EMAIL_ALREADY_IN_USE"
	TextCodeInvalidSSOAssertion = "INVALID_SSO_ASSERTION"
)

// ErrInvalidCredentials is returned when a challenge claim does not resolve to
// a user. Deliberately indistinguishable from "user not found" so callers
// cannot enumerate accounts.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when a token is presented past its expiry.
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenAlreadyUsed is returned on the second and every later redemption of
// a single-use token.
var ErrTokenAlreadyUsed = goerrors.New("token has already been used", goerrors.CategoryConflict).
	WithTextCode(TextCodeTokenAlreadyUsed).
	WithCode(goerrors.CodeConflict)

// ErrTokenRevoked is returned when a refresh token was already rotated or
// explicitly logged out.
var ErrTokenRevoked = goerrors.New("token has been revoked", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers undecodable tokens and kind mismatches.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrWorkspaceNotFound is returned when a target workspace does not exist.
var ErrWorkspaceNotFound = goerrors.New("workspace not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeWorkspaceNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrNotAMember is returned when a workspace-scoped token is requested for a
// workspace the user has no membership in.
var ErrNotAMember = goerrors.New("user is not a member of the workspace", goerrors.CategoryAuthz).
	WithTextCode(TextCodeNotAMember).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidExpiry rejects API key tokens with a missing or past expiry.
var ErrInvalidExpiry = goerrors.New("expiration date must be in the future", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidExpiry).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidCode is returned when an authorization code does not exist or does
// not decode.
var ErrInvalidCode = goerrors.New("invalid authorization code", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCode).
	WithCode(goerrors.CodeUnauthorized)

// ErrCodeExpired is returned when an authorization code is past its window.
var ErrCodeExpired = goerrors.New("authorization code has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeCodeExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrCodeAlreadyUsed is returned when an authorization code is exchanged twice.
var ErrCodeAlreadyUsed = goerrors.New("authorization code has already been used", goerrors.CategoryConflict).
	WithTextCode(TextCodeCodeAlreadyUsed).
	WithCode(goerrors.CodeConflict)

// ErrClientMismatch is returned when the presenting client context does not
// match the one the code was issued to.
var ErrClientMismatch = goerrors.New("authorization code client mismatch", goerrors.CategoryAuthz).
	WithTextCode(TextCodeClientMismatch).
	WithCode(goerrors.CodeForbidden)

// ErrDeliveryFailed reports a failed reset-link delivery. The already issued
// token stays valid; issuance and delivery are decoupled.
var ErrDeliveryFailed = goerrors.New("notification delivery failed", goerrors.CategoryOperation).
	WithTextCode(TextCodeDeliveryFailed)

// ErrAbuseCheckRejected is the precondition failure raised when the abuse gate
// denies a challenge or sign-up request.
var ErrAbuseCheckRejected = goerrors.New("request rejected by abuse gate", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeAbuseCheckRejected)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword mirrors bcrypt's mismatch as an auth failure.
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailAlreadyInUse is returned by SignUp for duplicate emails.
var ErrEmailAlreadyInUse = goerrors.New("email already in use", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailAlreadyInUse).
	WithCode(goerrors.CodeConflict)

// ErrInvalidSSOAssertion is returned when a workspace IdP assertion fails
// validation.
var ErrInvalidSSOAssertion = goerrors.New("invalid sso assertion", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidSSOAssertion).
	WithCode(goerrors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsTokenAlreadyUsedError reports whether err marks a consumed single-use token.
func IsTokenAlreadyUsedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode == TextCodeTokenAlreadyUsed
}

// IsTokenRevokedError reports whether err marks a rotated or logged-out
// refresh token.
func IsTokenRevokedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode == TextCodeTokenRevoked
}

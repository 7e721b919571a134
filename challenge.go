package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ChallengeInput is the claim presented to start a login. Exactly one of
// Password or SSOAssertion must be set; WorkspaceInviteHash optionally scopes
// the challenge to an invited workspace.
type ChallengeInput struct {
	Email               string `json:"email"`
	Password            string `json:"password,omitempty"`
	SSOAssertion        string `json:"sso_assertion,omitempty"`
	WorkspaceInviteHash string `json:"workspace_invite_hash,omitempty"`
	AbuseCheck          AbuseCheckInput
}

// Validate implements input validation for the challenge claim.
func (r ChallengeInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.By(r.requireCredential),
		),
	)
}

// requireCredential enforces that a challenge carries a password unless an
// SSO assertion stands in for it.
func (r ChallengeInput) requireCredential(value interface{}) error {
	if password, _ := value.(string); password == "" && r.SSOAssertion == "" {
		return errors.New("either password or sso assertion is required")
	}
	return nil
}

// LoginToken is the single-use challenge result. It carries an email claim
// only; the holder has not yet confirmed an identity.
type LoginToken struct {
	Token Token  `json:"login_token"`
	Email string `json:"email"`
}

// ChallengeFlow validates a login claim and issues LoginTokens. It also
// answers the pre-login lookups (user exists, invite hash valid) the sign-in
// surface needs.
type ChallengeFlow struct {
	store        CredentialStore
	codec        TokenCodec
	state        TokenStateStore
	gate         AbuseGate
	ssoValidator TokenValidator
	loginTTL     time.Duration
	logger       Logger
	sink         ActivitySink
}

// NewChallengeFlow builds the flow with the configured login-token TTL.
func NewChallengeFlow(store CredentialStore, codec TokenCodec, state TokenStateStore, cfg Config) *ChallengeFlow {
	return &ChallengeFlow{
		store:    store,
		codec:    codec,
		state:    state,
		gate:     noopAbuseGate{},
		loginTTL: cfg.GetLoginTokenTTL(),
		logger:   defLogger{},
		sink:     noopActivitySink{},
	}
}

// WithAbuseGate sets the precondition gate checked before any challenge.
func (f *ChallengeFlow) WithAbuseGate(gate AbuseGate) *ChallengeFlow {
	f.gate = normalizeAbuseGate(gate)
	return f
}

// WithSSOValidator sets the validator used for workspace IdP assertions.
func (f *ChallengeFlow) WithSSOValidator(validator TokenValidator) *ChallengeFlow {
	f.ssoValidator = validator
	return f
}

// WithLogger overrides the logger used by the flow.
func (f *ChallengeFlow) WithLogger(logger Logger) *ChallengeFlow {
	if logger != nil {
		f.logger = logger
	}
	return f
}

// WithActivitySink configures an ActivitySink for challenge events.
func (f *ChallengeFlow) WithActivitySink(sink ActivitySink) *ChallengeFlow {
	f.sink = normalizeActivitySink(sink)
	return f
}

// Challenge validates the claim and issues a single-use LoginToken bound to
// the resolved email. Credential failures and unknown users are both
// reported as ErrInvalidCredentials.
func (f *ChallengeFlow) Challenge(ctx context.Context, input ChallengeInput) (*LoginToken, error) {
	if err := f.gate.Check(ctx, input.AbuseCheck); err != nil {
		return nil, ErrAbuseCheckRejected
	}

	if err := input.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid challenge input")
	}

	email := normalizeEmail(input.Email)

	if input.WorkspaceInviteHash != "" {
		if _, err := f.store.FindWorkspaceByInviteHash(ctx, input.WorkspaceInviteHash); err != nil {
			if goerrors.IsNotFound(err) {
				return nil, ErrWorkspaceNotFound
			}
			return nil, err
		}
	}

	user, err := f.store.FindUserByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			f.recordFailure(ctx, email, "unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := f.verifyClaim(user, input); err != nil {
		f.recordFailure(ctx, email, "claim rejected")
		return nil, err
	}

	return f.issueLoginToken(ctx, user)
}

func (f *ChallengeFlow) verifyClaim(user *User, input ChallengeInput) error {
	if input.SSOAssertion != "" {
		if f.ssoValidator == nil {
			return ErrInvalidSSOAssertion
		}
		claims, err := f.ssoValidator.Validate(input.SSOAssertion)
		if err != nil {
			return ErrInvalidSSOAssertion
		}
		if normalizeEmail(claims.Email) != normalizeEmail(user.Email) {
			return ErrInvalidSSOAssertion
		}
		return nil
	}

	if user.PasswordHash == "" {
		return ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(input.Password, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	return nil
}

func (f *ChallengeFlow) issueLoginToken(ctx context.Context, user *User) (*LoginToken, error) {
	token, claims, err := f.codec.Sign(TokenKindLogin, AppClaims{
		Email: user.Email,
	}, f.loginTTL)
	if err != nil {
		return nil, err
	}

	jti, err := uuid.Parse(claims.TokenID())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "login token has invalid jti")
	}

	userID := user.ID
	if err := f.state.Issue(ctx, &AppToken{
		ID:        jti,
		Kind:      TokenKindLogin,
		UserID:    &userID,
		ExpiresAt: token.ExpiresAt,
	}); err != nil {
		return nil, err
	}

	recordActivity(ctx, f.sink, f.logger, ActivityEvent{
		EventType: ActivityEventChallengeSuccess,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		TokenKind: TokenKindLogin,
	})

	return &LoginToken{Token: token, Email: user.Email}, nil
}

// CheckUserExists reports whether an account exists for the email. Exposed
// behind the abuse gate on the transport side; the flow itself only answers.
func (f *ChallengeFlow) CheckUserExists(ctx context.Context, email string) (bool, error) {
	_, err := f.store.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if goerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CheckWorkspaceInviteHash reports whether the invite hash maps to a
// workspace. The hash is validated, never consumed.
func (f *ChallengeFlow) CheckWorkspaceInviteHash(ctx context.Context, inviteHash string) (bool, error) {
	_, err := f.store.FindWorkspaceByInviteHash(ctx, inviteHash)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FindWorkspaceFromInviteHash resolves the invited workspace or fails with
// ErrWorkspaceNotFound.
func (f *ChallengeFlow) FindWorkspaceFromInviteHash(ctx context.Context, inviteHash string) (*Workspace, error) {
	workspace, err := f.store.FindWorkspaceByInviteHash(ctx, inviteHash)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, err
	}
	return workspace, nil
}

func (f *ChallengeFlow) recordFailure(ctx context.Context, email, reason string) {
	recordActivity(ctx, f.sink, f.logger, ActivityEvent{
		EventType: ActivityEventChallengeFailure,
		Actor:     ActorRef{Type: "unknown"},
		Metadata: map[string]any{
			"email":  email,
			"reason": reason,
		},
	})
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

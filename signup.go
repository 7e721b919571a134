package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// SignUpInput registers a new account. An invite hash, when present, joins
// the new user to the inviting workspace and makes it their default.
type SignUpInput struct {
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	Email               string `json:"email"`
	Password            string `json:"password"`
	WorkspaceInviteHash string `json:"workspace_invite_hash,omitempty"`
	UseHashid           bool   `json:"-"`
	AbuseCheck          AbuseCheckInput
}

// Validate implements input validation for sign-up.
func (r SignUpInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
	)
}

// SignUpFlow registers users and hands them a LoginToken so they continue
// through the same verify step as a returning login.
type SignUpFlow struct {
	repo      RepositoryManager
	challenge *ChallengeFlow
	gate      AbuseGate
	logger    Logger
	sink      ActivitySink
}

// NewSignUpFlow builds the flow on the repository manager; token issuance is
// delegated to the challenge flow.
func NewSignUpFlow(repo RepositoryManager, challenge *ChallengeFlow) *SignUpFlow {
	return &SignUpFlow{
		repo:      repo,
		challenge: challenge,
		gate:      noopAbuseGate{},
		logger:    defLogger{},
		sink:      noopActivitySink{},
	}
}

// WithAbuseGate sets the precondition gate checked before sign-up.
func (f *SignUpFlow) WithAbuseGate(gate AbuseGate) *SignUpFlow {
	f.gate = normalizeAbuseGate(gate)
	return f
}

// WithLogger overrides the logger used by the flow.
func (f *SignUpFlow) WithLogger(logger Logger) *SignUpFlow {
	if logger != nil {
		f.logger = logger
	}
	return f
}

// WithActivitySink configures an ActivitySink for sign-up events.
func (f *SignUpFlow) WithActivitySink(sink ActivitySink) *SignUpFlow {
	f.sink = normalizeActivitySink(sink)
	return f
}

// SignUp creates the account and issues a LoginToken for it.
func (f *SignUpFlow) SignUp(ctx context.Context, input SignUpInput) (*LoginToken, error) {
	if err := f.gate.Check(ctx, input.AbuseCheck); err != nil {
		return nil, ErrAbuseCheckRejected
	}

	if err := input.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sign-up input")
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := f.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		email := normalizeEmail(input.Email)

		if _, err := f.repo.Users().GetByIdentifierTx(ctx, tx, email); err == nil {
			return ErrEmailAlreadyInUse
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing account")
		}

		hash, err := HashPassword(input.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.Email = email
		user.PasswordHash = hash
		user.FirstName = input.FirstName
		user.LastName = input.LastName
		if input.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				user.ID = id
			}
		}

		var workspace *Workspace
		if input.WorkspaceInviteHash != "" {
			workspace = &Workspace{}
			err := tx.NewSelect().
				Model(workspace).
				Where("?TableAlias.invite_hash = ?", input.WorkspaceInviteHash).
				Limit(1).
				Scan(ctx)
			if err != nil {
				if repository.IsRecordNotFound(err) {
					return ErrWorkspaceNotFound
				}
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve invite workspace")
			}
			user.DefaultWorkspaceID = workspace.ID
		}

		if user, err = f.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		if workspace != nil {
			membership := &WorkspaceMembership{
				UserID:      user.ID,
				WorkspaceID: workspace.ID,
			}
			if _, err := f.repo.Memberships().CreateTx(ctx, tx, membership); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create workspace membership")
			}
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "sign-up transaction failed")
	}

	recordActivity(ctx, f.sink, f.logger, ActivityEvent{
		EventType: ActivityEventSignUp,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
	})

	return f.challenge.issueLoginToken(ctx, user)
}

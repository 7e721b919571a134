package auth

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// PasswordResetLink is the issued reset token plus the link a sender should
// deliver.
type PasswordResetLink struct {
	Token Token  `json:"reset_token"`
	Link  string `json:"link"`
}

// PasswordResetValidation is the non-consuming answer to "is this reset token
// still good": the bound user, with the token left redeemable.
type PasswordResetValidation struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// UpdatePasswordInput carries a reset token and the replacement password.
type UpdatePasswordInput struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

// Validate implements input validation for the password update.
func (r UpdatePasswordInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ResetToken, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(10, 100)),
	)
}

// PasswordResetFlow issues, validates, and redeems password-reset tokens.
// Validation never consumes; redemption invalidates the token only after the
// password write succeeds, so a failed write leaves the link usable.
type PasswordResetFlow struct {
	store    CredentialStore
	codec    TokenCodec
	state    TokenStateStore
	sender   NotificationSender
	resetTTL time.Duration
	linkBase string
	logger   Logger
	sink     ActivitySink
}

// NewPasswordResetFlow builds the flow with the configured TTL and link base.
func NewPasswordResetFlow(store CredentialStore, codec TokenCodec, state TokenStateStore, cfg Config) *PasswordResetFlow {
	return &PasswordResetFlow{
		store:    store,
		codec:    codec,
		state:    state,
		resetTTL: cfg.GetPasswordResetTokenTTL(),
		linkBase: cfg.GetPasswordResetLinkBase(),
		logger:   defLogger{},
		sink:     noopActivitySink{},
	}
}

// WithNotificationSender sets the delivery channel for reset links.
func (f *PasswordResetFlow) WithNotificationSender(sender NotificationSender) *PasswordResetFlow {
	f.sender = sender
	return f
}

// WithLogger overrides the logger used by the flow.
func (f *PasswordResetFlow) WithLogger(logger Logger) *PasswordResetFlow {
	if logger != nil {
		f.logger = logger
	}
	return f
}

// WithActivitySink configures an ActivitySink for reset events.
func (f *PasswordResetFlow) WithActivitySink(sink ActivitySink) *PasswordResetFlow {
	f.sink = normalizeActivitySink(sink)
	return f
}

// GeneratePasswordResetToken mints a single-use reset token for the account.
// An unknown email returns (nil, nil): the caller learns nothing about which
// addresses have accounts.
func (f *PasswordResetFlow) GeneratePasswordResetToken(ctx context.Context, email string) (*PasswordResetLink, error) {
	user, err := f.store.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if goerrors.IsNotFound(err) {
			f.logger.Debug("password reset requested for unknown email")
			return nil, nil
		}
		return nil, err
	}

	token, claims, err := f.codec.Sign(TokenKindPasswordReset, AppClaims{
		RegisteredClaims: registeredSubject(user.ID),
		Email:            user.Email,
	}, f.resetTTL)
	if err != nil {
		return nil, err
	}

	jti, err := uuid.Parse(claims.TokenID())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "reset token has invalid jti")
	}

	userID := user.ID
	if err := f.state.Issue(ctx, &AppToken{
		ID:        jti,
		Kind:      TokenKindPasswordReset,
		UserID:    &userID,
		ExpiresAt: token.ExpiresAt,
	}); err != nil {
		return nil, err
	}

	recordActivity(ctx, f.sink, f.logger, ActivityEvent{
		EventType: ActivityEventPasswordResetRequest,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		TokenKind: TokenKindPasswordReset,
	})

	return &PasswordResetLink{
		Token: token,
		Link:  fmt.Sprintf("%s?token=%s", f.linkBase, token.Value),
	}, nil
}

// SendPasswordResetLink issues a reset token and hands the link to the
// configured sender. Delivery failure surfaces as ErrDeliveryFailed but does
// not invalidate the already issued token.
func (f *PasswordResetFlow) SendPasswordResetLink(ctx context.Context, email string) error {
	link, err := f.GeneratePasswordResetToken(ctx, email)
	if err != nil {
		return err
	}
	if link == nil {
		return nil
	}

	if f.sender == nil {
		f.logger.Warn("no notification sender configured, reset link not delivered")
		return ErrDeliveryFailed
	}

	if err := f.sender.Send(ctx, normalizeEmail(email), link.Link); err != nil {
		f.logger.Error("password reset link delivery failed: %v", err)
		return ErrDeliveryFailed
	}

	return nil
}

// ValidatePasswordResetToken checks the token without consuming it and
// returns the bound user. An expired, consumed, or unknown token fails with
// the matching token error.
func (f *PasswordResetFlow) ValidatePasswordResetToken(ctx context.Context, resetToken string) (*PasswordResetValidation, error) {
	claims, record, err := f.inspectResetToken(ctx, resetToken)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject())
	if err != nil {
		return nil, ErrTokenMalformed
	}
	if record.UserID == nil || *record.UserID != userID {
		return nil, ErrTokenMalformed
	}

	user, err := f.store.FindUserByID(ctx, userID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrTokenMalformed
		}
		return nil, err
	}

	return &PasswordResetValidation{UserID: user.ID, Email: user.Email}, nil
}

// InvalidatePasswordResetToken consumes the token. Idempotent from the
// caller's view: an already-consumed token is reported as ErrTokenAlreadyUsed.
func (f *PasswordResetFlow) InvalidatePasswordResetToken(ctx context.Context, resetToken string) error {
	claims, err := f.codec.Verify(resetToken, TokenKindPasswordReset)
	if err != nil {
		return err
	}

	jti, err := uuid.Parse(claims.TokenID())
	if err != nil {
		return ErrTokenMalformed
	}

	if _, err := f.state.Consume(ctx, jti); err != nil {
		if goerrors.Is(err, ErrTokenStateNotFound) {
			return ErrTokenMalformed
		}
		return err
	}

	return nil
}

// UpdatePasswordViaResetToken validates the token, writes the new password
// hash, and only then invalidates the token. A failed hash or write leaves
// the token redeemable for a retry.
func (f *PasswordResetFlow) UpdatePasswordViaResetToken(ctx context.Context, input UpdatePasswordInput) error {
	if err := input.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password update input")
	}

	validated, err := f.ValidatePasswordResetToken(ctx, input.ResetToken)
	if err != nil {
		return err
	}

	hash, err := HashPassword(input.NewPassword)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	if err := f.store.UpdatePasswordHash(ctx, validated.UserID, hash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
	}

	if err := f.InvalidatePasswordResetToken(ctx, input.ResetToken); err != nil {
		// Password already changed; a dangling token is logged, not fatal.
		f.logger.Warn("could not invalidate reset token after password update: %v", err)
	}

	recordActivity(ctx, f.sink, f.logger, ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Actor:     ActorRef{ID: validated.UserID.String(), Type: "user"},
		UserID:    validated.UserID.String(),
		TokenKind: TokenKindPasswordReset,
	})

	return nil
}

func (f *PasswordResetFlow) inspectResetToken(ctx context.Context, resetToken string) (*AppClaims, *AppToken, error) {
	claims, err := f.codec.Verify(resetToken, TokenKindPasswordReset)
	if err != nil {
		return nil, nil, err
	}

	jti, err := uuid.Parse(claims.TokenID())
	if err != nil {
		return nil, nil, ErrTokenMalformed
	}

	record, err := f.state.Get(ctx, jti)
	if err != nil {
		if goerrors.Is(err, ErrTokenStateNotFound) {
			return nil, nil, ErrTokenMalformed
		}
		return nil, nil, err
	}

	if record.Expired(time.Now()) {
		return nil, nil, ErrTokenExpired
	}
	if record.State != AppTokenIssued {
		return nil, nil, ErrTokenAlreadyUsed
	}

	return claims, record, nil
}

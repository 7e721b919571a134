package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-workspace-auth"
)

func newResetFixture() (*auth.PasswordResetFlow, *MockCredentialStore) {
	cfg := newTestConfig()
	store := new(MockCredentialStore)
	flow := auth.NewPasswordResetFlow(store, newTestCodec(cfg), auth.NewMemoryTokenStateStore(), cfg)
	return flow, store
}

func TestGeneratePasswordResetToken(t *testing.T) {
	ctx := context.Background()
	flow, store := newResetFixture()

	user := newTestUser("user@example.com", "correct horse battery")
	store.On("FindUserByEmail", ctx, "user@example.com").Return(user, nil).Once()

	link, err := flow.GeneratePasswordResetToken(ctx, "User@Example.com")
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.NotEmpty(t, link.Token.Value)
	assert.True(t, strings.HasPrefix(link.Link, "https://app.test/reset-password?token="))
}

func TestGeneratePasswordResetTokenUnknownEmail(t *testing.T) {
	ctx := context.Background()
	flow, store := newResetFixture()

	store.On("FindUserByEmail", ctx, "ghost@example.com").
		Return(nil, auth.ErrTokenStateNotFound).Once()

	link, err := flow.GeneratePasswordResetToken(ctx, "ghost@example.com")
	assert.NoError(t, err)
	assert.Nil(t, link)
}

func TestSendPasswordResetLink(t *testing.T) {
	ctx := context.Background()
	flow, store := newResetFixture()

	user := newTestUser("user@example.com", "correct horse battery")
	store.On("FindUserByEmail", ctx, "user@example.com").Return(user, nil)

	sender := new(MockNotificationSender)
	sender.On("Send", ctx, "user@example.com", mock.Anything).Return(nil).Once()
	flow.WithNotificationSender(sender)

	require.NoError(t, flow.SendPasswordResetLink(ctx, "user@example.com"))
	sender.AssertExpectations(t)
}

func TestSendPasswordResetLinkDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	flow, store := newResetFixture()

	user := newTestUser("user@example.com", "correct horse battery")
	store.On("FindUserByEmail", ctx, "user@example.com").Return(user, nil)

	sender := new(MockNotificationSender)
	sender.On("Send", ctx, "user@example.com", mock.Anything).
		Return(errors.New("smtp down")).Once()
	flow.WithNotificationSender(sender)

	err := flow.SendPasswordResetLink(ctx, "user@example.com")
	assert.ErrorIs(t, err, auth.ErrDeliveryFailed)
}

func TestValidateDoesNotConsumeResetToken(t *testing.T) {
	ctx := context.Background()
	flow, store := newResetFixture()

	user := newTestUser("user@example.com", "correct horse battery")
	store.On("FindUserByEmail", ctx, "user@example.com").Return(user, nil)
	store.On("FindUserByID", ctx, user.ID).Return(user, nil)

	link, err := flow.GeneratePasswordResetToken(ctx, "user@example.com")
	require.NoError(t, err)

	// validation is repeatable
	for i := 0; i < 3; i++ {
		validated, err := flow.ValidatePasswordResetToken(ctx, link.Token.Value)
		require.NoError(t, err)
		assert.Equal(t, user.ID, validated.UserID)
		assert.Equal(t, user.Email, validated.Email)
	}
}

func TestUpdatePasswordViaResetToken(t *testing.T) {
	ctx := context.Background()
	flow, store := newResetFixture()

	user := newTestUser("user@example.com", "correct horse battery")
	store.On("FindUserByEmail", ctx, "user@example.com").Return(user, nil)
	store.On("FindUserByID", ctx, user.ID).Return(user, nil)
	store.On("UpdatePasswordHash", ctx, user.ID, mock.Anything).Return(nil).Once()

	link, err := flow.GeneratePasswordResetToken(ctx, "user@example.com")
	require.NoError(t, err)

	err = flow.UpdatePasswordViaResetToken(ctx, auth.UpdatePasswordInput{
		ResetToken:  link.Token.Value,
		NewPassword: "new secret passphrase",
	})
	require.NoError(t, err)

	// the token was invalidated after the successful write
	_, err = flow.ValidatePasswordResetToken(ctx, link.Token.Value)
	assert.True(t, auth.IsTokenAlreadyUsedError(err))

	store.AssertExpectations(t)
}

func TestUpdatePasswordLeavesTokenOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	flow, store := newResetFixture()

	user := newTestUser("user@example.com", "correct horse battery")
	store.On("FindUserByEmail", ctx, "user@example.com").Return(user, nil)
	store.On("FindUserByID", ctx, user.ID).Return(user, nil)
	store.On("UpdatePasswordHash", ctx, user.ID, mock.Anything).
		Return(errors.New("db down")).Once()

	link, err := flow.GeneratePasswordResetToken(ctx, "user@example.com")
	require.NoError(t, err)

	err = flow.UpdatePasswordViaResetToken(ctx, auth.UpdatePasswordInput{
		ResetToken:  link.Token.Value,
		NewPassword: "new secret passphrase",
	})
	require.Error(t, err)

	// token stays redeemable for a retry
	_, err = flow.ValidatePasswordResetToken(ctx, link.Token.Value)
	assert.NoError(t, err)
}

func TestUpdatePasswordValidatesInput(t *testing.T) {
	ctx := context.Background()
	flow, _ := newResetFixture()

	err := flow.UpdatePasswordViaResetToken(ctx, auth.UpdatePasswordInput{
		ResetToken:  "token",
		NewPassword: "short",
	})
	assert.Error(t, err)
}

func TestInvalidatePasswordResetToken(t *testing.T) {
	ctx := context.Background()
	flow, store := newResetFixture()

	user := newTestUser("user@example.com", "correct horse battery")
	store.On("FindUserByEmail", ctx, "user@example.com").Return(user, nil)

	link, err := flow.GeneratePasswordResetToken(ctx, "user@example.com")
	require.NoError(t, err)

	require.NoError(t, flow.InvalidatePasswordResetToken(ctx, link.Token.Value))

	err = flow.InvalidatePasswordResetToken(ctx, link.Token.Value)
	assert.True(t, auth.IsTokenAlreadyUsedError(err))
}

package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-workspace-auth"
)

func newChallengeFixture(t *testing.T) (*auth.ChallengeFlow, *MockCredentialStore, *auth.MemoryTokenStateStore) {
	t.Helper()
	cfg := newTestConfig()
	store := new(MockCredentialStore)
	state := auth.NewMemoryTokenStateStore()
	flow := auth.NewChallengeFlow(store, newTestCodec(cfg), state, cfg)
	return flow, store, state
}

func TestChallengeIssuesLoginToken(t *testing.T) {
	ctx := context.Background()
	flow, store, _ := newChallengeFixture(t)

	user := newTestUser("user@example.com", "correct horse battery")
	store.On("FindUserByEmail", ctx, "user@example.com").Return(user, nil).Once()

	result, err := flow.Challenge(ctx, auth.ChallengeInput{
		Email:    "User@Example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token.Value)
	assert.Equal(t, "user@example.com", result.Email)

	store.AssertExpectations(t)
}

func TestChallengeWrongPassword(t *testing.T) {
	ctx := context.Background()
	flow, store, _ := newChallengeFixture(t)

	user := newTestUser("user@example.com", "correct horse battery")
	store.On("FindUserByEmail", ctx, "user@example.com").Return(user, nil).Once()

	_, err := flow.Challenge(ctx, auth.ChallengeInput{
		Email:    "user@example.com",
		Password: "wrong password here",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestChallengeUnknownUserIndistinguishable(t *testing.T) {
	ctx := context.Background()
	flow, store, _ := newChallengeFixture(t)

	store.On("FindUserByEmail", ctx, "ghost@example.com").
		Return(nil, auth.ErrTokenStateNotFound).Once()

	_, err := flow.Challenge(ctx, auth.ChallengeInput{
		Email:    "ghost@example.com",
		Password: "whatever password",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestChallengeInvalidInput(t *testing.T) {
	ctx := context.Background()
	flow, _, _ := newChallengeFixture(t)

	_, err := flow.Challenge(ctx, auth.ChallengeInput{Email: "not-an-email", Password: "x"})
	assert.Error(t, err)

	_, err = flow.Challenge(ctx, auth.ChallengeInput{Email: "user@example.com"})
	assert.Error(t, err)
}

func TestChallengeInputCredentialRequirement(t *testing.T) {
	assert.Error(t, auth.ChallengeInput{Email: "user@example.com"}.Validate())

	assert.NoError(t, auth.ChallengeInput{
		Email:    "user@example.com",
		Password: "correct horse battery",
	}.Validate())

	// An SSO assertion stands in for the password.
	assert.NoError(t, auth.ChallengeInput{
		Email:        "user@example.com",
		SSOAssertion: "header.payload.signature",
	}.Validate())
}

func TestChallengeAbuseGateRejects(t *testing.T) {
	ctx := context.Background()
	flow, _, _ := newChallengeFixture(t)

	gate := new(MockAbuseGate)
	gate.On("Check", ctx, mock.Anything).Return(auth.ErrAbuseCheckRejected).Once()
	flow.WithAbuseGate(gate)

	_, err := flow.Challenge(ctx, auth.ChallengeInput{
		Email:    "user@example.com",
		Password: "correct horse battery",
	})
	assert.ErrorIs(t, err, auth.ErrAbuseCheckRejected)
	gate.AssertExpectations(t)
}

func TestChallengeUnknownInviteHash(t *testing.T) {
	ctx := context.Background()
	flow, store, _ := newChallengeFixture(t)

	store.On("FindWorkspaceByInviteHash", ctx, "bogus-hash").
		Return(nil, auth.ErrTokenStateNotFound).Once()

	_, err := flow.Challenge(ctx, auth.ChallengeInput{
		Email:               "user@example.com",
		Password:            "correct horse battery",
		WorkspaceInviteHash: "bogus-hash",
	})
	assert.ErrorIs(t, err, auth.ErrWorkspaceNotFound)
}

func TestChallengeSSOAssertion(t *testing.T) {
	ctx := context.Background()
	flow, store, _ := newChallengeFixture(t)

	user := newTestUser("sso@example.com", "unused password!")
	store.On("FindUserByEmail", ctx, "sso@example.com").Return(user, nil)

	flow.WithSSOValidator(auth.TokenValidatorFunc(func(tokenString string) (*auth.AppClaims, error) {
		if tokenString != "good-assertion" {
			return nil, auth.ErrInvalidSSOAssertion
		}
		return &auth.AppClaims{Email: "sso@example.com"}, nil
	}))

	result, err := flow.Challenge(ctx, auth.ChallengeInput{
		Email:        "sso@example.com",
		SSOAssertion: "good-assertion",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token.Value)

	_, err = flow.Challenge(ctx, auth.ChallengeInput{
		Email:        "sso@example.com",
		SSOAssertion: "bad-assertion",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidSSOAssertion)
}

func TestChallengeSSOEmailMismatch(t *testing.T) {
	ctx := context.Background()
	flow, store, _ := newChallengeFixture(t)

	user := newTestUser("sso@example.com", "unused password!")
	store.On("FindUserByEmail", ctx, "sso@example.com").Return(user, nil).Once()

	flow.WithSSOValidator(auth.TokenValidatorFunc(func(string) (*auth.AppClaims, error) {
		return &auth.AppClaims{Email: "other@example.com"}, nil
	}))

	_, err := flow.Challenge(ctx, auth.ChallengeInput{
		Email:        "sso@example.com",
		SSOAssertion: "assertion",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidSSOAssertion)
}

func TestCheckUserExists(t *testing.T) {
	ctx := context.Background()
	flow, store, _ := newChallengeFixture(t)

	store.On("FindUserByEmail", ctx, "known@example.com").
		Return(newTestUser("known@example.com", "some password!"), nil).Once()
	store.On("FindUserByEmail", ctx, "unknown@example.com").
		Return(nil, auth.ErrTokenStateNotFound).Once()

	exists, err := flow.CheckUserExists(ctx, "known@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = flow.CheckUserExists(ctx, "unknown@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInviteHashLookups(t *testing.T) {
	ctx := context.Background()
	flow, store, _ := newChallengeFixture(t)

	workspace := &auth.Workspace{ID: uuid.New(), DisplayName: "Acme", InviteHash: "acme-invite"}
	store.On("FindWorkspaceByInviteHash", ctx, "acme-invite").Return(workspace, nil)
	store.On("FindWorkspaceByInviteHash", ctx, "nope").Return(nil, auth.ErrTokenStateNotFound)

	ok, err := flow.CheckWorkspaceInviteHash(ctx, "acme-invite")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = flow.CheckWorkspaceInviteHash(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := flow.FindWorkspaceFromInviteHash(ctx, "acme-invite")
	require.NoError(t, err)
	assert.Equal(t, workspace.ID, found.ID)

	_, err = flow.FindWorkspaceFromInviteHash(ctx, "nope")
	assert.ErrorIs(t, err, auth.ErrWorkspaceNotFound)
}

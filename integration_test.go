package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-workspace-auth"
)

// Exercises the whole credential lifecycle against sqlite-backed stores:
// sign-up, challenge, verify, workspace switch, refresh rotation, replay.
func TestCredentialLifecycleIntegration(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	sink := &capturingSink{}

	repo := auth.NewRepositoryManager(setupTestDB(t))
	store := auth.NewCredentialStore(repo)
	codec := newTestCodec(cfg)
	state := auth.NewBunTokenStateStore(repo.DB())

	issuer := auth.NewTokenIssuer(codec, state, cfg).WithActivitySink(sink)
	challenge := auth.NewChallengeFlow(store, codec, state, cfg).WithActivitySink(sink)
	signup := auth.NewSignUpFlow(repo, challenge).WithActivitySink(sink)
	verify := auth.NewVerifyFlow(store, codec, state, issuer).WithActivitySink(sink)
	renew := auth.NewRenewTokenService(store, codec, state, issuer)

	workspace, err := repo.Workspaces().Create(ctx, &auth.Workspace{
		ID:          uuid.New(),
		DisplayName: "Acme",
		InviteHash:  "acme-invite",
	})
	require.NoError(t, err)

	switcher := auth.NewWorkspaceSwitchService(store, issuer).WithActivitySink(sink)

	// sign up through the invite so Acme becomes the default workspace
	login, err := signup.SignUp(ctx, auth.SignUpInput{
		FirstName:           "Ada",
		Email:               "ada@example.com",
		Password:            "analytical engine",
		WorkspaceInviteHash: "acme-invite",
	})
	require.NoError(t, err)

	verified, err := verify.Verify(ctx, login.Token.Value)
	require.NoError(t, err)
	assert.Equal(t, workspace.ID, verified.User.DefaultWorkspaceID)
	assert.True(t, verified.User.EmailVerified)

	// the login token is spent
	_, err = verify.Verify(ctx, login.Token.Value)
	assert.True(t, auth.IsTokenAlreadyUsedError(err))

	// switching back into the member workspace mints a fresh pair
	decision, err := switcher.SwitchWorkspace(ctx, verified.User, workspace.ID)
	require.NoError(t, err)
	require.NotNil(t, decision.Tokens)

	// rotate the refresh token, then replay the old one
	rotated, err := renew.Renew(ctx, decision.Tokens.RefreshToken.Value)
	require.NoError(t, err)
	assert.NotEqual(t, decision.Tokens.RefreshToken.Value, rotated.RefreshToken.Value)

	_, err = renew.Renew(ctx, decision.Tokens.RefreshToken.Value)
	assert.True(t, auth.IsTokenRevokedError(err))

	// activity trail covers the whole journey
	var types []auth.ActivityEventType
	for _, evt := range sink.events {
		types = append(types, evt.EventType)
	}
	assert.Contains(t, types, auth.ActivityEventSignUp)
	assert.Contains(t, types, auth.ActivityEventChallengeSuccess)
	assert.Contains(t, types, auth.ActivityEventLoginVerified)
	assert.Contains(t, types, auth.ActivityEventWorkspaceSwitch)
	assert.Contains(t, types, auth.ActivityEventTokenIssued)
}

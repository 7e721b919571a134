package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-workspace-auth"
)

func newSwitchFixture() (*auth.WorkspaceSwitchService, *MockCredentialStore) {
	cfg := newTestConfig()
	store := new(MockCredentialStore)
	issuer := auth.NewTokenIssuer(newTestCodec(cfg), auth.NewMemoryTokenStateStore(), cfg)
	return auth.NewWorkspaceSwitchService(store, issuer), store
}

func TestSwitchWorkspaceMintsTokensForMembers(t *testing.T) {
	ctx := context.Background()
	svc, store := newSwitchFixture()

	user := newTestUser("user@example.com", "correct horse battery")
	workspace := &auth.Workspace{ID: uuid.New(), DisplayName: "Acme"}

	store.On("FindWorkspace", ctx, workspace.ID).Return(workspace, nil).Once()
	store.On("FindMembership", ctx, user.ID, workspace.ID).
		Return(&auth.WorkspaceMembership{ID: uuid.New(), UserID: user.ID, WorkspaceID: workspace.ID}, nil).Once()

	decision, err := svc.SwitchWorkspace(ctx, user, workspace.ID)
	require.NoError(t, err)
	assert.False(t, decision.RequiresSSO())
	require.NotNil(t, decision.Tokens)
	assert.Empty(t, decision.SSOProviders)
	assert.NotEmpty(t, decision.Tokens.AccessToken.Value)

	store.AssertExpectations(t)
}

func TestSwitchWorkspaceSSORedirect(t *testing.T) {
	ctx := context.Background()
	svc, store := newSwitchFixture()

	user := newTestUser("user@example.com", "correct horse battery")
	workspace := &auth.Workspace{ID: uuid.New(), DisplayName: "Locked Corp", RequireSSO: true}
	providers := []auth.SSOIdentityProvider{
		{ID: uuid.New(), WorkspaceID: workspace.ID, Name: "Okta", Issuer: "https://idp.example.com", RedirectURI: "https://idp.example.com/sso"},
	}

	store.On("FindWorkspace", ctx, workspace.ID).Return(workspace, nil).Once()
	store.On("FindIdentityProviders", ctx, workspace.ID).Return(providers, nil).Once()

	decision, err := svc.SwitchWorkspace(ctx, user, workspace.ID)
	require.NoError(t, err)
	assert.True(t, decision.RequiresSSO())
	assert.Nil(t, decision.Tokens)
	require.Len(t, decision.SSOProviders, 1)
	assert.Equal(t, "Okta", decision.SSOProviders[0].Name)
	assert.Equal(t, "Locked Corp", decision.SSOProviders[0].WorkspaceDisplayName)

	store.AssertExpectations(t)
}

func TestSwitchWorkspaceNotAMember(t *testing.T) {
	ctx := context.Background()
	svc, store := newSwitchFixture()

	user := newTestUser("user@example.com", "correct horse battery")
	workspace := &auth.Workspace{ID: uuid.New(), DisplayName: "Acme"}

	store.On("FindWorkspace", ctx, workspace.ID).Return(workspace, nil).Once()
	store.On("FindMembership", ctx, user.ID, workspace.ID).
		Return(nil, auth.ErrTokenStateNotFound).Once()

	_, err := svc.SwitchWorkspace(ctx, user, workspace.ID)
	assert.ErrorIs(t, err, auth.ErrNotAMember)
}

func TestSwitchWorkspaceUnknownWorkspace(t *testing.T) {
	ctx := context.Background()
	svc, store := newSwitchFixture()

	user := newTestUser("user@example.com", "correct horse battery")
	missing := uuid.New()

	store.On("FindWorkspace", ctx, missing).Return(nil, auth.ErrTokenStateNotFound).Once()

	_, err := svc.SwitchWorkspace(ctx, user, missing)
	assert.ErrorIs(t, err, auth.ErrWorkspaceNotFound)
}

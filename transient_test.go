package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-workspace-auth"
)

func TestGenerateTransientToken(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	codec := newTestCodec(cfg)
	store := new(MockCredentialStore)
	svc := auth.NewTransientTokenService(store, codec, cfg)

	user := newTestUser("user@example.com", "correct horse battery")
	membership := &auth.WorkspaceMembership{
		ID:          uuid.New(),
		UserID:      user.ID,
		WorkspaceID: user.DefaultWorkspaceID,
	}

	store.On("FindMembership", ctx, user.ID, user.DefaultWorkspaceID).Return(membership, nil).Once()

	result, err := svc.GenerateTransientToken(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, result)

	claims, err := codec.Verify(result.Token.Value, auth.TokenKindTransient)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject())
	assert.Equal(t, user.DefaultWorkspaceID.String(), claims.WorkspaceID)
	assert.Equal(t, membership.ID.String(), claims.WorkspaceMemberID)

	store.AssertExpectations(t)
}

func TestGenerateTransientTokenNoMembership(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	store := new(MockCredentialStore)
	svc := auth.NewTransientTokenService(store, newTestCodec(cfg), cfg)

	user := newTestUser("user@example.com", "correct horse battery")

	store.On("FindMembership", ctx, user.ID, user.DefaultWorkspaceID).
		Return(nil, auth.ErrTokenStateNotFound).Once()

	result, err := svc.GenerateTransientToken(ctx, user)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestGenerateTransientTokenNoDefaultWorkspace(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	store := new(MockCredentialStore)
	svc := auth.NewTransientTokenService(store, newTestCodec(cfg), cfg)

	user := newTestUser("user@example.com", "correct horse battery")
	user.DefaultWorkspaceID = uuid.Nil

	result, err := svc.GenerateTransientToken(ctx, user)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

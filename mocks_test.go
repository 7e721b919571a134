package auth_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-workspace-auth"
)

// MockCredentialStore implements auth.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockCredentialStore) FindUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockCredentialStore) FindWorkspace(ctx context.Context, id uuid.UUID) (*auth.Workspace, error) {
	args := m.Called(ctx, id)
	workspace, _ := args.Get(0).(*auth.Workspace)
	return workspace, args.Error(1)
}

func (m *MockCredentialStore) FindWorkspaceByInviteHash(ctx context.Context, inviteHash string) (*auth.Workspace, error) {
	args := m.Called(ctx, inviteHash)
	workspace, _ := args.Get(0).(*auth.Workspace)
	return workspace, args.Error(1)
}

func (m *MockCredentialStore) FindMembership(ctx context.Context, userID, workspaceID uuid.UUID) (*auth.WorkspaceMembership, error) {
	args := m.Called(ctx, userID, workspaceID)
	membership, _ := args.Get(0).(*auth.WorkspaceMembership)
	return membership, args.Error(1)
}

func (m *MockCredentialStore) FindIdentityProviders(ctx context.Context, workspaceID uuid.UUID) ([]auth.SSOIdentityProvider, error) {
	args := m.Called(ctx, workspaceID)
	providers, _ := args.Get(0).([]auth.SSOIdentityProvider)
	return providers, args.Error(1)
}

func (m *MockCredentialStore) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	args := m.Called(ctx, userID, hash)
	return args.Error(0)
}

func (m *MockCredentialStore) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockCredentialStore) RegisterUser(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	created, _ := args.Get(0).(*auth.User)
	return created, args.Error(1)
}

// MockAbuseGate implements auth.AbuseGate
type MockAbuseGate struct {
	mock.Mock
}

func (m *MockAbuseGate) Check(ctx context.Context, input auth.AbuseCheckInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

// MockNotificationSender implements auth.NotificationSender
type MockNotificationSender struct {
	mock.Mock
}

func (m *MockNotificationSender) Send(ctx context.Context, email, link string) error {
	args := m.Called(ctx, email, link)
	return args.Error(0)
}

type capturingSink struct {
	events []auth.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt auth.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

// testConfig implements auth.Config with short, test-friendly TTLs.
type testConfig struct {
	signingKey string
	loginTTL   time.Duration
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey: "test-signing-key-for-the-suite",
		loginTTL:   time.Minute * 15,
		accessTTL:  time.Minute * 30,
		refreshTTL: time.Hour * 24,
	}
}

func (c *testConfig) GetSigningKey() string { return c.signingKey }

func (c *testConfig) GetIssuer() string { return "workspace-auth-test" }

func (c *testConfig) GetAudience() []string { return nil }

func (c *testConfig) GetLoginTokenTTL() time.Duration { return c.loginTTL }

func (c *testConfig) GetAccessTokenTTL() time.Duration { return c.accessTTL }

func (c *testConfig) GetRefreshTokenTTL() time.Duration { return c.refreshTTL }

func (c *testConfig) GetTransientTokenTTL() time.Duration { return time.Minute * 15 }

func (c *testConfig) GetPasswordResetTokenTTL() time.Duration { return time.Minute * 5 }

func (c *testConfig) GetAuthorizationCodeTTL() time.Duration { return time.Minute * 5 }

func (c *testConfig) GetPasswordResetLinkBase() string {
	return "https://app.test/reset-password"
}

func newTestCodec(cfg auth.Config) *auth.Codec {
	return auth.NewTokenCodec([]byte(cfg.GetSigningKey()), cfg.GetIssuer(), cfg.GetAudience())
}

func newTestUser(email, password string) *auth.User {
	hash, err := auth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return &auth.User{
		ID:                 uuid.New(),
		Email:              email,
		PasswordHash:       hash,
		EmailVerified:      true,
		DefaultWorkspaceID: uuid.New(),
	}
}

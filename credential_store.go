package auth

import (
	"context"
	"database/sql"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// BunCredentialStore is the Bun-backed CredentialStore. Reads go through the
// repository manager's db handle; the two writes this core is allowed
// (password hash, email-verified flag) go through the Users repository so
// they share its raw-SQL soft-delete handling.
type BunCredentialStore struct {
	repo   RepositoryManager
	logger Logger
}

// NewCredentialStore creates a store over the given repository manager.
func NewCredentialStore(repo RepositoryManager) *BunCredentialStore {
	return &BunCredentialStore{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the store.
func (s *BunCredentialStore) WithLogger(logger Logger) *BunCredentialStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

var _ CredentialStore = (*BunCredentialStore)(nil)

func (s *BunCredentialStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	err := s.repo.DB().NewSelect().
		Model(user).
		Where("?TableAlias.email = ?", strings.TrimSpace(strings.ToLower(email))).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, s.notFoundOrInternal(err, "user lookup failed")
	}

	return user, nil
}

func (s *BunCredentialStore) FindUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user := &User{}
	err := s.repo.DB().NewSelect().
		Model(user).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, s.notFoundOrInternal(err, "user lookup failed")
	}

	return user, nil
}

func (s *BunCredentialStore) FindWorkspace(ctx context.Context, id uuid.UUID) (*Workspace, error) {
	workspace := &Workspace{}
	err := s.repo.DB().NewSelect().
		Model(workspace).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, s.notFoundOrInternal(err, "workspace lookup failed")
	}

	return workspace, nil
}

func (s *BunCredentialStore) FindWorkspaceByInviteHash(ctx context.Context, inviteHash string) (*Workspace, error) {
	workspace := &Workspace{}
	err := s.repo.DB().NewSelect().
		Model(workspace).
		Where("?TableAlias.invite_hash = ?", inviteHash).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, s.notFoundOrInternal(err, "workspace invite lookup failed")
	}

	return workspace, nil
}

func (s *BunCredentialStore) FindMembership(ctx context.Context, userID, workspaceID uuid.UUID) (*WorkspaceMembership, error) {
	membership := &WorkspaceMembership{}
	err := s.repo.DB().NewSelect().
		Model(membership).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.workspace_id = ?", workspaceID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, s.notFoundOrInternal(err, "membership lookup failed")
	}

	return membership, nil
}

func (s *BunCredentialStore) FindIdentityProviders(ctx context.Context, workspaceID uuid.UUID) ([]SSOIdentityProvider, error) {
	var providers []SSOIdentityProvider
	err := s.repo.DB().NewSelect().
		Model(&providers).
		Where("?TableAlias.workspace_id = ?", workspaceID).
		Order("name ASC").
		Scan(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "identity provider lookup failed")
	}

	return providers, nil
}

func (s *BunCredentialStore) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	return s.repo.Users().UpdatePasswordHash(ctx, userID, hash)
}

func (s *BunCredentialStore) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	return s.repo.Users().MarkEmailVerified(ctx, userID)
}

func (s *BunCredentialStore) RegisterUser(ctx context.Context, user *User) (*User, error) {
	return s.repo.Users().Register(ctx, user)
}

func (s *BunCredentialStore) notFoundOrInternal(err error, msg string) error {
	if goerrors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return goerrors.New("record not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}
	s.logger.Error("credential store query error: %v", err)
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Workspaces() repository.Repository[*Workspace]
	Memberships() repository.Repository[*WorkspaceMembership]
	IdentityProviders() repository.Repository[*SSOIdentityProvider]
	AppTokens() repository.Repository[*AppToken]
	DB() *bun.DB
}

func NewWorkspacesRepository(db *bun.DB) repository.Repository[*Workspace] {
	handlers := repository.ModelHandlers[*Workspace]{
		NewRecord: func() *Workspace {
			return &Workspace{}
		},
		GetID: func(record *Workspace) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Workspace, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "invite_hash"
		},
	}
	return repository.NewRepository(db, handlers)
}

func NewMembershipsRepository(db *bun.DB) repository.Repository[*WorkspaceMembership] {
	handlers := repository.ModelHandlers[*WorkspaceMembership]{
		NewRecord: func() *WorkspaceMembership {
			return &WorkspaceMembership{}
		},
		GetID: func(record *WorkspaceMembership) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *WorkspaceMembership, id uuid.UUID) {
			record.ID = id
		},
	}
	return repository.NewRepository(db, handlers)
}

func NewIdentityProvidersRepository(db *bun.DB) repository.Repository[*SSOIdentityProvider] {
	handlers := repository.ModelHandlers[*SSOIdentityProvider]{
		NewRecord: func() *SSOIdentityProvider {
			return &SSOIdentityProvider{}
		},
		GetID: func(record *SSOIdentityProvider) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *SSOIdentityProvider, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "issuer"
		},
	}
	return repository.NewRepository(db, handlers)
}

func NewAppTokensRepository(db *bun.DB) repository.Repository[*AppToken] {
	handlers := repository.ModelHandlers[*AppToken]{
		NewRecord: func() *AppToken {
			return &AppToken{}
		},
		GetID: func(record *AppToken) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *AppToken, id uuid.UUID) {
			record.ID = id
		},
	}
	return repository.NewRepository(db, handlers)
}

type mngr struct {
	db                *bun.DB
	users             Users
	workspaces        repository.Repository[*Workspace]
	memberships       repository.Repository[*WorkspaceMembership]
	identityProviders repository.Repository[*SSOIdentityProvider]
	appTokens         repository.Repository[*AppToken]
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:                db,
		users:             NewUsersRepository(db),
		workspaces:        NewWorkspacesRepository(db),
		memberships:       NewMembershipsRepository(db),
		identityProviders: NewIdentityProvidersRepository(db),
		appTokens:         NewAppTokensRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.workspaces == nil {
		return errors.New("repository workspaces should be initialized")
	}

	if m.memberships == nil {
		return errors.New("repository memberships should be initialized")
	}

	if m.identityProviders == nil {
		return errors.New("repository identityProviders should be initialized")
	}

	if m.appTokens == nil {
		return errors.New("repository appTokens should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Workspaces() repository.Repository[*Workspace] {
	return m.workspaces
}

func (m mngr) Memberships() repository.Repository[*WorkspaceMembership] {
	return m.memberships
}

func (m mngr) IdentityProviders() repository.Repository[*SSOIdentityProvider] {
	return m.identityProviders
}

func (m mngr) AppTokens() repository.Repository[*AppToken] {
	return m.appTokens
}

func (m mngr) DB() *bun.DB {
	return m.db
}

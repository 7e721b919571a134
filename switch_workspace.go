package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SSOIdentityProviderDescriptor is the display/redirect descriptor returned
// when a workspace mandates SSO.
type SSOIdentityProviderDescriptor struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Issuer               string    `json:"issuer"`
	RedirectURI          string    `json:"redirect_uri"`
	WorkspaceID          uuid.UUID `json:"workspace_id"`
	WorkspaceDisplayName string    `json:"workspace_display_name"`
}

// SwitchDecision is the outcome of a workspace switch. Exactly one of
// Tokens or SSOProviders is set: either the caller gets a pair for the
// target workspace, or it must first complete an external IdP flow.
type SwitchDecision struct {
	Workspace    *Workspace                      `json:"workspace"`
	Tokens       *AuthTokens                     `json:"tokens,omitempty"`
	SSOProviders []SSOIdentityProviderDescriptor `json:"sso_providers,omitempty"`
}

// RequiresSSO reports whether the decision is the SSO-redirect branch.
func (d *SwitchDecision) RequiresSSO() bool {
	return d != nil && d.Tokens == nil
}

// WorkspaceSwitchService decides between minting workspace-scoped tokens and
// redirecting through the workspace's identity providers.
type WorkspaceSwitchService struct {
	store  CredentialStore
	issuer *TokenIssuer
	logger Logger
	sink   ActivitySink
}

// NewWorkspaceSwitchService builds the service.
func NewWorkspaceSwitchService(store CredentialStore, issuer *TokenIssuer) *WorkspaceSwitchService {
	return &WorkspaceSwitchService{
		store:  store,
		issuer: issuer,
		logger: defLogger{},
		sink:   noopActivitySink{},
	}
}

// WithLogger overrides the logger used by the service.
func (s *WorkspaceSwitchService) WithLogger(logger Logger) *WorkspaceSwitchService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for switch events.
func (s *WorkspaceSwitchService) WithActivitySink(sink ActivitySink) *WorkspaceSwitchService {
	s.sink = normalizeActivitySink(sink)
	return s
}

// SwitchWorkspace resolves the target workspace and returns exactly one of
// the SSO-redirect decision or a fresh AuthTokens pair. Tokens are only
// minted for existing members.
func (s *WorkspaceSwitchService) SwitchWorkspace(ctx context.Context, user *User, workspaceID uuid.UUID) (*SwitchDecision, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, goerrors.New("user is required", goerrors.CategoryBadInput)
	}

	workspace, err := s.store.FindWorkspace(ctx, workspaceID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, err
	}

	if workspace.RequireSSO {
		providers, err := s.store.FindIdentityProviders(ctx, workspace.ID)
		if err != nil {
			return nil, err
		}

		descriptors := make([]SSOIdentityProviderDescriptor, 0, len(providers))
		for _, p := range providers {
			descriptors = append(descriptors, SSOIdentityProviderDescriptor{
				ID:                   p.ID,
				Name:                 p.Name,
				Issuer:               p.Issuer,
				RedirectURI:          p.RedirectURI,
				WorkspaceID:          workspace.ID,
				WorkspaceDisplayName: workspace.DisplayName,
			})
		}

		recordActivity(ctx, s.sink, s.logger, ActivityEvent{
			EventType:   ActivityEventWorkspaceSwitch,
			Actor:       ActorRef{ID: user.ID.String(), Type: "user"},
			UserID:      user.ID.String(),
			WorkspaceID: workspace.ID.String(),
			Metadata:    map[string]any{"sso_redirect": true},
		})

		return &SwitchDecision{Workspace: workspace, SSOProviders: descriptors}, nil
	}

	if _, err := s.store.FindMembership(ctx, user.ID, workspace.ID); err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrNotAMember
		}
		return nil, err
	}

	tokens, err := s.issuer.IssueAuthTokens(ctx, user, workspace.ID)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType:   ActivityEventWorkspaceSwitch,
		Actor:       ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:      user.ID.String(),
		WorkspaceID: workspace.ID.String(),
	})

	return &SwitchDecision{Workspace: workspace, Tokens: tokens}, nil
}

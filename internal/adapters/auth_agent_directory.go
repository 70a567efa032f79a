package adapters

import (
	"context"

	agentsvc "deskhub_backend/internal/agents/service"
	authsvc "deskhub_backend/internal/auth/service"

	"github.com/google/uuid"
)

// AuthAgentDirectory adapts the agents module as the credential source for
// login and identity lookups.
type AuthAgentDirectory struct {
	agents *agentsvc.Service
}

// NewAuthAgentDirectory creates a new agent directory adapter.
func NewAuthAgentDirectory(agents *agentsvc.Service) *AuthAgentDirectory {
	return &AuthAgentDirectory{agents: agents}
}

// AccountByEmail returns the credential view of the agent behind an email.
func (a *AuthAgentDirectory) AccountByEmail(ctx context.Context, email string) (*authsvc.Account, error) {
	account, err := a.agents.AccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return toAuthAccount(account), nil
}

// AccountByID returns the credential view of an agent by ID.
func (a *AuthAgentDirectory) AccountByID(ctx context.Context, id uuid.UUID) (*authsvc.Account, error) {
	agent, err := a.agents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &authsvc.Account{
		ID:     agent.ID,
		Name:   agent.Name,
		Email:  agent.Email,
		Role:   agent.Role,
		Active: agent.Status == "ACTIVE",
	}, nil
}

func toAuthAccount(account *agentsvc.Account) *authsvc.Account {
	return &authsvc.Account{
		ID:           account.ID,
		Name:         account.Name,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		Role:         account.Role,
		Active:       account.Active,
	}
}

// Compile-time check that AuthAgentDirectory implements auth/service.AgentDirectory.
var _ authsvc.AgentDirectory = (*AuthAgentDirectory)(nil)

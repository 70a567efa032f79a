package service

import (
	"context"
	"strings"
	"time"

	"deskhub_backend/internal/agents/repository"
	"deskhub_backend/internal/agents/transport"
	"deskhub_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var hundred = decimal.NewFromInt(100)

// Service provides business logic for agent management.
type Service struct {
	repo repository.Repository
}

// New creates a new agents service.
func New(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// Create registers an agent with a hashed password.
func (s *Service) Create(ctx context.Context, req transport.CreateAgentRequest) (*transport.AgentResponse, error) {
	if err := validateCommission(req.CommissionRate); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	now := time.Now()
	agent := repository.Agent{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:   string(hash),
		Role:           repository.Role(req.Role),
		CommissionRate: req.CommissionRate,
		Status:         repository.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, &agent); err != nil {
		return nil, err
	}
	return buildResponse(&agent), nil
}

// GetByID returns an agent record.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.AgentResponse, error) {
	agent, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildResponse(agent), nil
}

// List returns agents matching the filters.
func (s *Service) List(ctx context.Context, req transport.ListAgentsRequest) (*transport.AgentListResponse, error) {
	params := repository.ListParams{
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Role != "" {
		role := repository.Role(req.Role)
		params.Role = &role
	}
	if req.Status != "" {
		status := repository.Status(req.Status)
		params.Status = &status
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 50
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]transport.AgentResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, *buildResponse(&result.Items[i]))
	}

	return &transport.AgentListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Update edits an agent. Deactivation goes through here and is always
// allowed, unlike a hard delete.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateAgentRequest) (*transport.AgentResponse, error) {
	agent, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		agent.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		agent.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
		}
		agent.PasswordHash = string(hash)
	}
	if req.Role != nil {
		agent.Role = repository.Role(*req.Role)
	}
	if req.CommissionRate != nil {
		if err := validateCommission(*req.CommissionRate); err != nil {
			return nil, err
		}
		agent.CommissionRate = *req.CommissionRate
	}
	if req.Status != nil {
		agent.Status = repository.Status(*req.Status)
	}
	agent.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, agent); err != nil {
		return nil, err
	}
	return buildResponse(agent), nil
}

// Delete hard-deletes an agent that has no assigned work.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	referenced, err := s.repo.IsReferenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return apperr.Conflict("agent is assigned to tickets, quotes, or invoices")
	}
	return s.repo.Delete(ctx, id)
}

// Account is an agent record including its credential hash, for the login flow.
type Account struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
}

// AccountByEmail returns the credential view of an agent. Only the auth
// module should call this.
func (s *Service) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	agent, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return &Account{
		ID:           agent.ID,
		Name:         agent.Name,
		Email:        agent.Email,
		PasswordHash: agent.PasswordHash,
		Role:         string(agent.Role),
		Active:       agent.Status == repository.StatusActive,
	}, nil
}

func validateCommission(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return apperr.Validation("commission rate must be between 0 and 100")
	}
	return nil
}

func buildResponse(agent *repository.Agent) *transport.AgentResponse {
	return &transport.AgentResponse{
		ID:             agent.ID,
		Name:           agent.Name,
		Email:          agent.Email,
		Role:           string(agent.Role),
		CommissionRate: agent.CommissionRate,
		Status:         string(agent.Status),
		CreatedAt:      agent.CreatedAt,
		UpdatedAt:      agent.UpdatedAt,
	}
}

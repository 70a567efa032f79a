package service

import (
	"context"
	"strings"
	"testing"

	"deskhub_backend/internal/agents/repository"
	"deskhub_backend/internal/agents/transport"
	"deskhub_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type fakeRepo struct {
	agents     map[uuid.UUID]*repository.Agent
	referenced map[uuid.UUID]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		agents:     make(map[uuid.UUID]*repository.Agent),
		referenced: make(map[uuid.UUID]bool),
	}
}

func (f *fakeRepo) Create(_ context.Context, agent *repository.Agent) error {
	for _, existing := range f.agents {
		if strings.EqualFold(existing.Email, agent.Email) {
			return apperr.Conflict("an agent with this email already exists")
		}
	}
	cp := *agent
	f.agents[agent.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Agent, error) {
	agent, ok := f.agents[id]
	if !ok {
		return nil, apperr.NotFound("agent not found")
	}
	cp := *agent
	return &cp, nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*repository.Agent, error) {
	for _, agent := range f.agents {
		if strings.EqualFold(agent.Email, email) {
			cp := *agent
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("agent not found")
}

func (f *fakeRepo) List(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	var items []repository.Agent
	for _, agent := range f.agents {
		if params.Status != nil && agent.Status != *params.Status {
			continue
		}
		items = append(items, *agent)
	}
	return &repository.ListResult{
		Items:      items,
		Total:      len(items),
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: 1,
	}, nil
}

func (f *fakeRepo) Update(_ context.Context, agent *repository.Agent) error {
	if _, ok := f.agents[agent.ID]; !ok {
		return apperr.NotFound("agent not found")
	}
	cp := *agent
	f.agents[agent.ID] = &cp
	return nil
}

func (f *fakeRepo) IsReferenced(_ context.Context, id uuid.UUID) (bool, error) {
	return f.referenced[id], nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.agents[id]; !ok {
		return apperr.NotFound("agent not found")
	}
	delete(f.agents, id)
	return nil
}

var _ repository.Repository = (*fakeRepo)(nil)

func mustCreate(t *testing.T, svc *Service, email string) *transport.AgentResponse {
	t.Helper()
	resp, err := svc.Create(context.Background(), transport.CreateAgentRequest{
		Name:           "Agent Smith",
		Email:          email,
		Password:       "correct-horse-battery",
		Role:           "AGENT",
		CommissionRate: decimal.RequireFromString("12.5"),
	})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	return resp
}

func TestCreate_HashesPassword(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)

	created := mustCreate(t, svc, "smith@example.com")

	stored := repo.agents[created.ID]
	if stored.PasswordHash == "correct-horse-battery" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct-horse-battery")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
	if created.Status != "ACTIVE" {
		t.Fatalf("status = %q, want ACTIVE", created.Status)
	}
}

func TestCreate_CommissionBounds(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)

	for _, rate := range []string{"-0.01", "100.01"} {
		_, err := svc.Create(context.Background(), transport.CreateAgentRequest{
			Name:           "A",
			Email:          "a@example.com",
			Password:       "correct-horse-battery",
			Role:           "AGENT",
			CommissionRate: decimal.RequireFromString(rate),
		})
		if !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("rate %s: expected validation error, got %v", rate, err)
		}
	}

	// Both bounds are inclusive.
	for _, rate := range []string{"0", "100"} {
		repo := newFakeRepo()
		svc := New(repo)
		if _, err := svc.Create(context.Background(), transport.CreateAgentRequest{
			Name:           "A",
			Email:          "a@example.com",
			Password:       "correct-horse-battery",
			Role:           "AGENT",
			CommissionRate: decimal.RequireFromString(rate),
		}); err != nil {
			t.Fatalf("rate %s: %v", rate, err)
		}
	}
}

func TestDelete_BlockedWhileAssigned(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)

	created := mustCreate(t, svc, "smith@example.com")
	repo.referenced[created.ID] = true

	if err := svc.Delete(context.Background(), created.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// Deactivation stays available even while assigned.
	inactive := "INACTIVE"
	updated, err := svc.Update(context.Background(), created.ID, transport.UpdateAgentRequest{Status: &inactive})
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if updated.Status != "INACTIVE" {
		t.Fatalf("status = %q, want INACTIVE", updated.Status)
	}

	repo.referenced[created.ID] = false
	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestAccountByEmail_ExposesRoleAndActivity(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)

	created := mustCreate(t, svc, "smith@example.com")

	account, err := svc.AccountByEmail(context.Background(), "SMITH@example.com")
	if err != nil {
		t.Fatalf("account by email: %v", err)
	}
	if account.ID != created.ID {
		t.Fatal("wrong account returned")
	}
	if account.Role != "AGENT" || !account.Active {
		t.Fatalf("account = %+v, want AGENT/active", account)
	}
}

package service

import (
	"context"
	"strings"
	"testing"

	"deskhub_backend/internal/clients/repository"
	"deskhub_backend/internal/clients/transport"
	"deskhub_backend/platform/apperr"
	"deskhub_backend/platform/events"
	"deskhub_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	clients    map[uuid.UUID]*repository.Client
	referenced map[uuid.UUID]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		clients:    make(map[uuid.UUID]*repository.Client),
		referenced: make(map[uuid.UUID]bool),
	}
}

func (f *fakeRepo) Create(_ context.Context, client *repository.Client) error {
	for _, existing := range f.clients {
		if strings.EqualFold(existing.Email, client.Email) {
			return apperr.Conflict("a client with this email already exists")
		}
	}
	cp := *client
	f.clients[client.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Client, error) {
	client, ok := f.clients[id]
	if !ok {
		return nil, apperr.NotFound("client not found")
	}
	cp := *client
	return &cp, nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*repository.Client, error) {
	for _, client := range f.clients {
		if strings.EqualFold(client.Email, email) {
			cp := *client
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("client not found")
}

func (f *fakeRepo) GetByWhatsAppID(_ context.Context, whatsappID string) (*repository.Client, error) {
	for _, client := range f.clients {
		if client.WhatsAppID != nil && *client.WhatsAppID == whatsappID {
			cp := *client
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("client not found")
}

func (f *fakeRepo) List(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	var items []repository.Client
	for _, client := range f.clients {
		items = append(items, *client)
	}
	return &repository.ListResult{
		Items:      items,
		Total:      len(items),
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: 1,
	}, nil
}

func (f *fakeRepo) Update(_ context.Context, client *repository.Client) error {
	if _, ok := f.clients[client.ID]; !ok {
		return apperr.NotFound("client not found")
	}
	cp := *client
	f.clients[client.ID] = &cp
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.clients[id]; !ok {
		return apperr.NotFound("client not found")
	}
	if f.referenced[id] {
		return apperr.Conflict("client has tickets, quotes, or invoices")
	}
	delete(f.clients, id)
	return nil
}

var _ repository.Repository = (*fakeRepo)(nil)

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	log := logger.New("test")
	repo := newFakeRepo()
	return New(repo, events.NewInMemoryBus(log), log), repo
}

func TestCreate_NormalizesContactFields(t *testing.T) {
	svc, _ := newTestService(t)

	wa := "+31 6 12345678"
	resp, err := svc.Create(context.Background(), transport.CreateClientRequest{
		Name:       "  Acme BV  ",
		Email:      "  Billing@Acme.COM ",
		WhatsAppID: &wa,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Email != "billing@acme.com" {
		t.Fatalf("email = %q, want lowercased", resp.Email)
	}
	if resp.Name != "Acme BV" {
		t.Fatalf("name = %q, want trimmed", resp.Name)
	}
	if resp.WhatsAppID == nil || *resp.WhatsAppID != "31612345678" {
		t.Fatalf("whatsappId = %v, want 31612345678", resp.WhatsAppID)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Create(context.Background(), transport.CreateClientRequest{
		Name: "Acme", Email: "billing@acme.com",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.Create(context.Background(), transport.CreateClientRequest{
		Name: "Other", Email: "BILLING@acme.com",
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}

func TestFindOrCreateByEmail_ReturnsExisting(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), transport.CreateClientRequest{
		Name: "Acme", Email: "billing@acme.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := svc.FindOrCreateByEmail(context.Background(), "Billing@Acme.com", "ignored")
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if found.ID != created.ID {
		t.Fatal("expected the existing client, got a new one")
	}
}

func TestFindOrCreateByEmail_CreatesWithNameFallback(t *testing.T) {
	svc, _ := newTestService(t)

	found, err := svc.FindOrCreateByEmail(context.Background(), "new@example.com", "")
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if found.Name != "new@example.com" {
		t.Fatalf("name = %q, want email fallback", found.Name)
	}
}

func TestFindOrCreateByWhatsApp_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)

	first, err := svc.FindOrCreateByWhatsApp(context.Background(), "+31612345678", "")
	if err != nil {
		t.Fatalf("first intake: %v", err)
	}
	if first.WhatsAppID == nil || *first.WhatsAppID != "31612345678" {
		t.Fatalf("whatsappId = %v, want normalized digits", first.WhatsAppID)
	}
	if first.Email != "31612345678@whatsapp.local" {
		t.Fatalf("email = %q, want placeholder", first.Email)
	}

	second, err := svc.FindOrCreateByWhatsApp(context.Background(), "31612345678", "Somebody")
	if err != nil {
		t.Fatalf("second intake: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("expected the same client on repeat intake")
	}
}

func TestDelete_BlockedWhileReferenced(t *testing.T) {
	svc, repo := newTestService(t)

	created, err := svc.Create(context.Background(), transport.CreateClientRequest{
		Name: "Acme", Email: "billing@acme.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.referenced[created.ID] = true

	if err := svc.Delete(context.Background(), created.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	repo.referenced[created.ID] = false
	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

package service

import (
	"context"
	"strings"
	"time"

	"deskhub_backend/internal/clients/repository"
	"deskhub_backend/internal/clients/transport"
	"deskhub_backend/internal/events"
	"deskhub_backend/platform/apperr"
	"deskhub_backend/platform/logger"
	"deskhub_backend/platform/phone"

	"github.com/google/uuid"
)

// Service provides business logic for client management.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new clients service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// Create registers a client. The CRM mirror happens asynchronously off the
// upsert event; a failed sync never fails the request.
func (s *Service) Create(ctx context.Context, req transport.CreateClientRequest) (*transport.ClientResponse, error) {
	now := time.Now()
	client := repository.Client{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(req.Name),
		Email:      normalizeEmail(req.Email),
		Phone:      normalizePhone(req.Phone),
		Company:    req.Company,
		WhatsAppID: normalizeWhatsApp(req.WhatsAppID),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, &client); err != nil {
		return nil, err
	}

	s.publishUpserted(ctx, client.ID)
	return buildResponse(&client), nil
}

// GetByID returns a client record.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.ClientResponse, error) {
	client, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildResponse(client), nil
}

// List returns clients matching the search filter.
func (s *Service) List(ctx context.Context, req transport.ListClientsRequest) (*transport.ClientListResponse, error) {
	params := repository.ListParams{
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
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

	items := make([]transport.ClientResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, *buildResponse(&result.Items[i]))
	}

	return &transport.ClientListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Update edits a client record.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateClientRequest) (*transport.ClientResponse, error) {
	client, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		client.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		client.Email = normalizeEmail(*req.Email)
	}
	if req.Phone != nil {
		client.Phone = normalizePhone(req.Phone)
	}
	if req.Company != nil {
		client.Company = req.Company
	}
	if req.WhatsAppID != nil {
		client.WhatsAppID = normalizeWhatsApp(req.WhatsAppID)
	}
	client.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, client); err != nil {
		return nil, err
	}

	s.publishUpserted(ctx, client.ID)
	return buildResponse(client), nil
}

// Delete removes a client that owns no tickets, quotes, or invoices.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// FindOrCreateByEmail resolves the client owning an email address, creating a
// minimal record when none exists. Used by inbound email and form intake.
func (s *Service) FindOrCreateByEmail(ctx context.Context, email, name string) (*transport.ClientResponse, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}

	client, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return buildResponse(client), nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		name = email
	}
	created, err := s.Create(ctx, transport.CreateClientRequest{Name: name, Email: email})
	if err != nil {
		// Lost a race with a concurrent intake on the same address.
		if apperr.IsKind(err, apperr.KindConflict) {
			if existing, getErr := s.repo.GetByEmail(ctx, email); getErr == nil {
				return buildResponse(existing), nil
			}
		}
		return nil, err
	}
	return created, nil
}

// FindOrCreateByWhatsApp resolves the client behind a WhatsApp identifier,
// creating a placeholder record when none exists. Used by chat intake.
func (s *Service) FindOrCreateByWhatsApp(ctx context.Context, whatsappID, name string) (*transport.ClientResponse, error) {
	normalized := phone.WhatsAppID(whatsappID)
	if normalized == "" {
		return nil, apperr.Validation("whatsapp id is required")
	}

	client, err := s.repo.GetByWhatsAppID(ctx, normalized)
	if err == nil {
		return buildResponse(client), nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		name = "WhatsApp " + normalized
	}
	// No real address is known yet; a placeholder keeps the email column unique.
	placeholder := normalized + "@whatsapp.local"
	created, err := s.Create(ctx, transport.CreateClientRequest{
		Name:       name,
		Email:      placeholder,
		WhatsAppID: &normalized,
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			if existing, getErr := s.repo.GetByWhatsAppID(ctx, normalized); getErr == nil {
				return buildResponse(existing), nil
			}
		}
		return nil, err
	}
	return created, nil
}

func (s *Service) publishUpserted(ctx context.Context, clientID uuid.UUID) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.ClientUpserted{
		BaseEvent: events.NewBaseEvent(),
		ClientID:  clientID,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(p *string) *string {
	if p == nil {
		return nil
	}
	normalized := phone.NormalizeE164(*p)
	if normalized == "" {
		return nil
	}
	return &normalized
}

func normalizeWhatsApp(id *string) *string {
	if id == nil {
		return nil
	}
	normalized := phone.WhatsAppID(*id)
	if normalized == "" {
		return nil
	}
	return &normalized
}

func buildResponse(client *repository.Client) *transport.ClientResponse {
	return &transport.ClientResponse{
		ID:         client.ID,
		Name:       client.Name,
		Email:      client.Email,
		Phone:      client.Phone,
		Company:    client.Company,
		WhatsAppID: client.WhatsAppID,
		CreatedAt:  client.CreatedAt,
		UpdatedAt:  client.UpdatedAt,
	}
}

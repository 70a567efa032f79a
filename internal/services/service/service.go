package service

import (
	"context"
	"strings"
	"time"

	"deskhub_backend/internal/billing"
	"deskhub_backend/internal/services/repository"
	"deskhub_backend/internal/services/transport"
	"deskhub_backend/platform/apperr"

	"github.com/google/uuid"
)

// Service provides business logic for the service catalog.
type Service struct {
	repo repository.Repository
}

// New creates a new catalog service.
func New(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// Create adds a catalog service.
func (s *Service) Create(ctx context.Context, req transport.CreateServiceRequest) (*transport.ServiceResponse, error) {
	if req.Rate.IsNegative() {
		return nil, apperr.Validation("rate cannot be negative")
	}

	now := time.Now()
	svc := repository.Service{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		SKU:         strings.ToUpper(strings.TrimSpace(req.SKU)),
		Category:    req.Category,
		Description: req.Description,
		Rate:        billing.Round2(req.Rate),
		Unit:        req.Unit,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, &svc); err != nil {
		return nil, err
	}
	return buildResponse(&svc), nil
}

// GetByID returns a catalog service.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.ServiceResponse, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildResponse(svc), nil
}

// List returns catalog services matching the filters.
func (s *Service) List(ctx context.Context, req transport.ListServicesRequest) (*transport.ServiceListResponse, error) {
	params := repository.ListParams{
		Search:     req.Search,
		ActiveOnly: req.ActiveOnly,
		Page:       req.Page,
		PageSize:   req.PageSize,
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

	items := make([]transport.ServiceResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, *buildResponse(&result.Items[i]))
	}

	return &transport.ServiceListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Update edits a catalog service.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateServiceRequest) (*transport.ServiceResponse, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		svc.Name = strings.TrimSpace(*req.Name)
	}
	if req.SKU != nil {
		svc.SKU = strings.ToUpper(strings.TrimSpace(*req.SKU))
	}
	if req.Category != nil {
		svc.Category = req.Category
	}
	if req.Description != nil {
		svc.Description = req.Description
	}
	if req.Unit != nil {
		svc.Unit = req.Unit
	}
	if req.Rate != nil {
		if req.Rate.IsNegative() {
			return nil, apperr.Validation("rate cannot be negative")
		}
		svc.Rate = billing.Round2(*req.Rate)
	}
	if req.Active != nil {
		svc.Active = *req.Active
	}
	svc.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, svc); err != nil {
		return nil, err
	}
	return buildResponse(svc), nil
}

// Delete removes a catalog service, or archives it when line items refer to
// it. Existing quotes and invoices keep their historical rates either way.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*transport.DeleteServiceResponse, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	referenced, err := s.repo.IsReferenced(ctx, id)
	if err != nil {
		return nil, err
	}
	if referenced {
		if err := s.repo.Archive(ctx, id); err != nil {
			return nil, err
		}
		return &transport.DeleteServiceResponse{Status: "archived"}, nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			// An item slipped in between the check and the delete.
			if archiveErr := s.repo.Archive(ctx, id); archiveErr != nil {
				return nil, archiveErr
			}
			return &transport.DeleteServiceResponse{Status: "archived"}, nil
		}
		return nil, err
	}
	return &transport.DeleteServiceResponse{Status: "deleted"}, nil
}

func buildResponse(svc *repository.Service) *transport.ServiceResponse {
	return &transport.ServiceResponse{
		ID:          svc.ID,
		Name:        svc.Name,
		SKU:         svc.SKU,
		Category:    svc.Category,
		Description: svc.Description,
		Rate:        svc.Rate,
		Unit:        svc.Unit,
		Active:      svc.Active,
		CreatedAt:   svc.CreatedAt,
		UpdatedAt:   svc.UpdatedAt,
	}
}

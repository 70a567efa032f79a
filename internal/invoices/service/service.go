package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deskhub_backend/internal/billing"
	"deskhub_backend/internal/events"
	"deskhub_backend/internal/invoices/domain"
	"deskhub_backend/internal/invoices/repository"
	"deskhub_backend/internal/invoices/transport"
	"deskhub_backend/platform/apperr"
	"deskhub_backend/platform/config"
	"deskhub_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// defaultPaymentTermDays applies when an invoice has no explicit due date.
const defaultPaymentTermDays = 30

// Service provides business logic for invoices.
type Service struct {
	repo    repository.Repository
	catalog CatalogReader
	bus     events.Bus
	log     *logger.Logger
	portal  config.PortalConfig
}

// New creates a new invoices service.
func New(repo repository.Repository, catalog CatalogReader, bus events.Bus, log *logger.Logger, portal config.PortalConfig) *Service {
	return &Service{repo: repo, catalog: catalog, bus: bus, log: log, portal: portal}
}

// Create builds an invoice directly from a request, computing totals
// server-side with the same arithmetic as quotes.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req transport.CreateInvoiceRequest) (*transport.InvoiceResponse, error) {
	if err := validateRates(req.TaxRate, req.DiscountRate); err != nil {
		return nil, err
	}

	number, err := s.repo.NextNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}

	now := time.Now()
	invoiceID := uuid.New()

	items := make([]repository.InvoiceItem, 0, len(req.Items))
	lineTotals := make([]decimal.Decimal, 0, len(req.Items))
	for i, itemReq := range req.Items {
		item, err := s.buildItem(ctx, invoiceID, i, itemReq, now)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
		lineTotals = append(lineTotals, item.LineTotal)
	}

	totals := billing.Calculate(lineTotals, req.TaxRate, req.DiscountRate)

	dueDate := req.DueDate
	if dueDate == nil {
		d := now.AddDate(0, 0, defaultPaymentTermDays)
		dueDate = &d
	}

	invoice := repository.Invoice{
		ID:             invoiceID,
		Number:         number,
		ClientID:       req.ClientID,
		AgentID:        &actorID,
		Status:         domain.StatusPending,
		Subtotal:       totals.Subtotal,
		TaxRate:        billing.Round2(req.TaxRate),
		TaxAmount:      totals.TaxAmount,
		DiscountRate:   billing.Round2(req.DiscountRate),
		DiscountAmount: totals.DiscountAmount,
		TotalAmount:    totals.Total,
		Notes:          req.Notes,
		Terms:          req.Terms,
		DueDate:        dueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.CreateWithItems(ctx, &invoice, items); err != nil {
		return nil, err
	}

	return s.buildResponse(&invoice, items, nil), nil
}

// CreateFromQuote builds an invoice from an accepted quote. The unique
// quote reference in the database arbitrates concurrent conversions.
func (s *Service) CreateFromQuote(ctx context.Context, params FromQuoteParams) (*transport.InvoiceResponse, error) {
	number, err := s.repo.NextNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}

	now := time.Now()
	invoiceID := uuid.New()

	items := make([]repository.InvoiceItem, 0, len(params.Items))
	lineTotals := make([]decimal.Decimal, 0, len(params.Items))
	for _, src := range params.Items {
		item := repository.InvoiceItem{
			ID:                uuid.New(),
			InvoiceID:         invoiceID,
			ServiceID:         src.ServiceID,
			Quantity:          src.Quantity,
			Rate:              src.Rate,
			LineTotal:         billing.LineTotal(src.Quantity, src.Rate),
			CustomDescription: src.CustomDescription,
			SortOrder:         src.SortOrder,
			CreatedAt:         now,
		}
		items = append(items, item)
		lineTotals = append(lineTotals, item.LineTotal)
	}

	totals := billing.Calculate(lineTotals, params.TaxRate, params.DiscountRate)

	dueDate := params.DueDate
	if dueDate == nil {
		d := now.AddDate(0, 0, defaultPaymentTermDays)
		dueDate = &d
	}

	quoteID := params.QuoteID
	invoice := repository.Invoice{
		ID:             invoiceID,
		Number:         number,
		ClientID:       params.ClientID,
		AgentID:        params.AgentID,
		QuoteID:        &quoteID,
		Status:         domain.StatusPending,
		Subtotal:       totals.Subtotal,
		TaxRate:        billing.Round2(params.TaxRate),
		TaxAmount:      totals.TaxAmount,
		DiscountRate:   billing.Round2(params.DiscountRate),
		DiscountAmount: totals.DiscountAmount,
		TotalAmount:    totals.Total,
		Notes:          params.Notes,
		Terms:          params.Terms,
		DueDate:        dueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.CreateWithItems(ctx, &invoice, items); err != nil {
		return nil, err
	}

	return s.buildResponse(&invoice, items, nil), nil
}

// GetByID returns an invoice with its items and billing record.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.InvoiceResponse, error) {
	invoice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ItemsByInvoiceID(ctx, id)
	if err != nil {
		return nil, err
	}
	bill, err := s.repo.BillByInvoiceID(ctx, id)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}
	return s.buildResponse(invoice, items, bill), nil
}

// List returns invoices matching the given filters.
func (s *Service) List(ctx context.Context, req transport.ListInvoicesRequest) (*transport.InvoiceListResponse, error) {
	params := repository.ListParams{
		Search:    req.Search,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 20
	}
	if req.Status != "" {
		status := domain.Status(req.Status)
		params.Status = &status
	}
	if req.ClientID != "" {
		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			return nil, apperr.BadRequest("invalid client id")
		}
		params.ClientID = &clientID
	}
	if req.AgentID != "" {
		agentID, err := uuid.Parse(req.AgentID)
		if err != nil {
			return nil, apperr.BadRequest("invalid agent id")
		}
		params.AgentID = &agentID
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]transport.InvoiceResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, *s.buildResponse(&result.Items[i], nil, nil))
	}

	return &transport.InvoiceListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// UpdateStatus moves an invoice to any valid status. Entering PAID stamps
// the paid date once; leaving PAID clears it.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req transport.UpdateInvoiceStatusRequest) (*transport.InvoiceResponse, error) {
	target := domain.Status(req.Status)
	if !target.IsValid() {
		return nil, apperr.Validation("unknown invoice status")
	}

	invoice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := invoice.Status
	if oldStatus == target {
		return s.buildResponse(invoice, nil, nil), nil
	}

	now := time.Now()
	invoice.Status = target
	invoice.UpdatedAt = now

	switch {
	case target == domain.StatusPaid && invoice.PaidDate == nil:
		if req.PaidDate != nil {
			invoice.PaidDate = req.PaidDate
		} else {
			invoice.PaidDate = &now
		}
	case target != domain.StatusPaid && oldStatus == domain.StatusPaid:
		invoice.PaidDate = nil
	}

	if err := s.repo.UpdateStatus(ctx, invoice); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.InvoiceStatusChanged{
		BaseEvent:     events.NewBaseEvent(),
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.Number,
		ClientID:      invoice.ClientID,
		OldStatus:     string(oldStatus),
		NewStatus:     string(target),
	})

	return s.buildResponse(invoice, nil, nil), nil
}

// Delete removes an invoice. Paid and externally billed invoices are kept
// for bookkeeping; the source quote (if any) becomes convertible again.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	invoice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status == domain.StatusPaid {
		return apperr.Conflict("paid invoices cannot be deleted")
	}
	billed, err := s.repo.HasBill(ctx, id)
	if err != nil {
		return err
	}
	if billed {
		return apperr.Conflict("invoice has an external billing record and cannot be deleted")
	}
	return s.repo.Delete(ctx, id)
}

// MarkOverdue sweeps unpaid invoices past their due date into OVERDUE.
// Returns the number of invoices flipped.
func (s *Service) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	invoices, err := s.repo.ListOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	flipped := 0
	for i := range invoices {
		inv := &invoices[i]
		if !domain.OverdueSweepable(inv.Status) {
			continue
		}
		oldStatus := inv.Status
		inv.Status = domain.StatusOverdue
		inv.UpdatedAt = now
		if err := s.repo.UpdateStatus(ctx, inv); err != nil {
			s.log.SyncError("scheduler", "invoice", inv.ID.String(), err)
			continue
		}
		flipped++

		s.bus.Publish(ctx, events.InvoiceStatusChanged{
			BaseEvent:     events.NewBaseEvent(),
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.Number,
			ClientID:      inv.ClientID,
			OldStatus:     string(oldStatus),
			NewStatus:     string(domain.StatusOverdue),
		})
	}
	return flipped, nil
}

// RecordBill stores the external billing reference after a successful push.
func (s *Service) RecordBill(ctx context.Context, invoiceID uuid.UUID, externalRef, vendor string) error {
	if strings.TrimSpace(externalRef) == "" {
		return apperr.Validation("external reference is required")
	}
	return s.repo.AddBill(ctx, repository.Bill{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		ExternalRef: externalRef,
		Vendor:      vendor,
		CreatedAt:   time.Now(),
	})
}

// ExistsForQuote reports whether a quote has already been converted.
func (s *Service) ExistsForQuote(ctx context.Context, quoteID uuid.UUID) (bool, error) {
	return s.repo.ExistsForQuote(ctx, quoteID)
}

// PaymentURL builds the customer portal payment link for an invoice.
func (s *Service) PaymentURL(ctx context.Context, id uuid.UUID) (string, error) {
	invoice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	base := strings.TrimRight(s.portal.GetAppBaseURL(), "/")
	return fmt.Sprintf("%s/pay/%s", base, invoice.Number), nil
}

func (s *Service) buildItem(ctx context.Context, invoiceID uuid.UUID, sortOrder int, req transport.InvoiceItemRequest, createdAt time.Time) (*repository.InvoiceItem, error) {
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.Validation("item quantity must be positive")
	}

	svc, err := s.catalog.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.Active {
		return nil, apperr.Validation("service is archived")
	}

	rate := svc.Rate
	if req.Rate != nil {
		if req.Rate.IsNegative() {
			return nil, apperr.Validation("item rate cannot be negative")
		}
		rate = *req.Rate
	}
	rate = billing.Round2(rate)

	if req.SortOrder > 0 {
		sortOrder = req.SortOrder
	}

	return &repository.InvoiceItem{
		ID:                uuid.New(),
		InvoiceID:         invoiceID,
		ServiceID:         req.ServiceID,
		Quantity:          req.Quantity,
		Rate:              rate,
		LineTotal:         billing.LineTotal(req.Quantity, rate),
		CustomDescription: req.CustomDescription,
		SortOrder:         sortOrder,
		CreatedAt:         createdAt,
	}, nil
}

func (s *Service) buildResponse(inv *repository.Invoice, items []repository.InvoiceItem, bill *repository.Bill) *transport.InvoiceResponse {
	resp := &transport.InvoiceResponse{
		ID:             inv.ID,
		Number:         inv.Number,
		ClientID:       inv.ClientID,
		AgentID:        inv.AgentID,
		QuoteID:        inv.QuoteID,
		Status:         string(inv.Status),
		Subtotal:       inv.Subtotal,
		TaxRate:        inv.TaxRate,
		TaxAmount:      inv.TaxAmount,
		DiscountRate:   inv.DiscountRate,
		DiscountAmount: inv.DiscountAmount,
		Total:          inv.TotalAmount,
		Notes:          inv.Notes,
		Terms:          inv.Terms,
		DueDate:        inv.DueDate,
		PaidDate:       inv.PaidDate,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, transport.InvoiceItemResponse{
			ID:                it.ID,
			ServiceID:         it.ServiceID,
			Quantity:          it.Quantity,
			Rate:              it.Rate,
			LineTotal:         it.LineTotal,
			CustomDescription: it.CustomDescription,
			SortOrder:         it.SortOrder,
			CreatedAt:         it.CreatedAt,
		})
	}
	if bill != nil {
		resp.Bill = &transport.BillResponse{
			ID:          bill.ID,
			ExternalRef: bill.ExternalRef,
			Vendor:      bill.Vendor,
			CreatedAt:   bill.CreatedAt,
		}
	}
	return resp
}

func validateRates(taxRate, discountRate decimal.Decimal) error {
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return apperr.Validation("tax rate must be between 0 and 100")
	}
	if discountRate.IsNegative() || discountRate.GreaterThan(hundred) {
		return apperr.Validation("discount rate must be between 0 and 100")
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deskhub_backend/internal/billing"
	"deskhub_backend/internal/events"
	"deskhub_backend/internal/quotes/domain"
	"deskhub_backend/internal/quotes/repository"
	"deskhub_backend/internal/quotes/transport"
	"deskhub_backend/platform/apperr"
	"deskhub_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

const quoteNotFoundPortalMsg = "quote not found"

// Service provides business logic for quotes.
type Service struct {
	repo     repository.Repository
	catalog  CatalogReader
	clients  ClientReader   // optional
	invoices InvoiceCreator // optional, nil until the invoices module is wired
	mailer   ProposalSender // optional
	bus      events.Bus
	log      *logger.Logger
}

// New creates a new quotes service.
func New(repo repository.Repository, catalog CatalogReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, bus: bus, log: log}
}

// SetInvoiceCreator injects the conversion port (set after construction to
// break the circular dependency with the invoices module).
func (s *Service) SetInvoiceCreator(ic InvoiceCreator) {
	s.invoices = ic
}

// SetClientReader injects the client lookup port.
func (s *Service) SetClientReader(cr ClientReader) {
	s.clients = cr
}

// SetProposalSender injects the outbound email port.
func (s *Service) SetProposalSender(ps ProposalSender) {
	s.mailer = ps
}

// Create creates a new quote in DRAFT with optional line items, computing
// totals server-side.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req transport.CreateQuoteRequest) (*transport.QuoteResponse, error) {
	if err := validateRates(req.TaxRate, req.DiscountRate); err != nil {
		return nil, err
	}

	number, err := s.repo.NextNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate quote number: %w", err)
	}

	now := time.Now()
	quoteID := uuid.New()

	items := make([]repository.QuoteItem, 0, len(req.Items))
	lineTotals := make([]decimal.Decimal, 0, len(req.Items))
	for i, itemReq := range req.Items {
		item, err := s.buildItem(ctx, quoteID, i, itemReq, now)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
		lineTotals = append(lineTotals, item.LineTotal)
	}

	totals := billing.Calculate(lineTotals, req.TaxRate, req.DiscountRate)

	quote := repository.Quote{
		ID:             quoteID,
		Number:         number,
		ClientID:       req.ClientID,
		AgentID:        &actorID,
		Status:         domain.StatusDraft,
		Subtotal:       totals.Subtotal,
		TaxRate:        billing.Round2(req.TaxRate),
		TaxAmount:      totals.TaxAmount,
		DiscountRate:   billing.Round2(req.DiscountRate),
		DiscountAmount: totals.DiscountAmount,
		TotalAmount:    totals.Total,
		Notes:          req.Notes,
		Terms:          req.Terms,
		ValidUntil:     req.ValidUntil,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	logEntry := repository.StatusLog{
		ID:        uuid.New(),
		QuoteID:   quoteID,
		Status:    domain.StatusDraft,
		ChangedBy: &actorID,
		CreatedAt: now,
	}

	if err := s.repo.CreateWithItems(ctx, &quote, items, logEntry); err != nil {
		return nil, err
	}

	return s.buildResponse(&quote, items, []repository.StatusLog{logEntry}), nil
}

// GetByID returns a quote with its items and status history.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.QuoteResponse, error) {
	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ItemsByQuoteID(ctx, id)
	if err != nil {
		return nil, err
	}
	logs, err := s.repo.LogsByQuoteID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(quote, items, logs), nil
}

// List returns quotes matching the given filters.
func (s *Service) List(ctx context.Context, req transport.ListQuotesRequest) (*transport.QuoteListResponse, error) {
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

	items := make([]transport.QuoteResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, *s.buildResponse(&result.Items[i], nil, nil))
	}

	return &transport.QuoteListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Update edits the quote header and recomputes totals. Headers are frozen
// once the line items are locked.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateQuoteRequest) (*transport.QuoteResponse, error) {
	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if domain.ItemsLocked(quote.Status) {
		return nil, apperr.Conflict("quote can no longer be edited")
	}

	if req.TaxRate != nil {
		quote.TaxRate = billing.Round2(*req.TaxRate)
	}
	if req.DiscountRate != nil {
		quote.DiscountRate = billing.Round2(*req.DiscountRate)
	}
	if err := validateRates(quote.TaxRate, quote.DiscountRate); err != nil {
		return nil, err
	}
	if req.Notes != nil {
		quote.Notes = req.Notes
	}
	if req.Terms != nil {
		quote.Terms = req.Terms
	}
	if req.ValidUntil != nil {
		quote.ValidUntil = req.ValidUntil
	}

	items, err := s.repo.ItemsByQuoteID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.applyTotals(quote, items)
	quote.UpdatedAt = time.Now()

	if err := s.repo.UpdateDetailsWithTotals(ctx, quote); err != nil {
		return nil, err
	}
	return s.buildResponse(quote, items, nil), nil
}

// UpdateStatus transitions a quote through its lifecycle. A request for the
// current status is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, actorID *uuid.UUID, req transport.UpdateQuoteStatusRequest) (*transport.QuoteResponse, error) {
	target := domain.Status(req.Status)
	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.transition(ctx, quote, target, actorID, req.Notes); err != nil {
		return nil, err
	}
	return s.buildResponse(quote, nil, nil), nil
}

// transition applies the status machine to a loaded quote, persisting the
// change and appending the audit row. Returns false for a same-state no-op.
func (s *Service) transition(ctx context.Context, quote *repository.Quote, target domain.Status, actorID *uuid.UUID, notes *string) (bool, error) {
	if quote.Status == target {
		return false, nil
	}
	if err := domain.ValidateTransition(quote.Status, target); err != nil {
		return false, apperr.Conflict(err.Error())
	}

	oldStatus := quote.Status
	now := time.Now()
	quote.Status = target
	quote.UpdatedAt = now

	// Lifecycle stamps are set on the first entry only, so a quote that
	// bounces back to DRAFT keeps its original history.
	switch target {
	case domain.StatusSent:
		if quote.SentAt == nil {
			quote.SentAt = &now
		}
	case domain.StatusAccepted:
		if quote.AcceptedAt == nil {
			quote.AcceptedAt = &now
		}
	case domain.StatusExpired:
		if quote.ExpiredAt == nil {
			quote.ExpiredAt = &now
		}
	}

	logEntry := repository.StatusLog{
		ID:        uuid.New(),
		QuoteID:   quote.ID,
		Status:    target,
		ChangedBy: actorID,
		Notes:     notes,
		CreatedAt: now,
	}

	if err := s.repo.UpdateStatus(ctx, quote, logEntry); err != nil {
		return false, err
	}

	s.bus.Publish(ctx, events.QuoteStatusChanged{
		BaseEvent:   events.NewBaseEvent(),
		QuoteID:     quote.ID,
		QuoteNumber: quote.Number,
		ClientID:    quote.ClientID,
		OldStatus:   string(oldStatus),
		NewStatus:   string(target),
	})
	return true, nil
}

// AddItem appends a line item and recomputes totals.
func (s *Service) AddItem(ctx context.Context, quoteID uuid.UUID, req transport.QuoteItemRequest) (*transport.QuoteResponse, error) {
	quote, items, err := s.editableQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	item, err := s.buildItem(ctx, quoteID, len(items), req, time.Now())
	if err != nil {
		return nil, err
	}

	items = append(items, *item)
	s.applyTotals(quote, items)
	quote.UpdatedAt = time.Now()

	if err := s.repo.InsertItemWithTotals(ctx, quote, item); err != nil {
		return nil, err
	}
	return s.buildResponse(quote, items, nil), nil
}

// UpdateItem edits a line item and recomputes totals.
func (s *Service) UpdateItem(ctx context.Context, quoteID, itemID uuid.UUID, req transport.QuoteItemRequest) (*transport.QuoteResponse, error) {
	quote, items, err := s.editableQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	var existing *repository.QuoteItem
	for i := range items {
		if items[i].ID == itemID {
			existing = &items[i]
			break
		}
	}
	if existing == nil {
		return nil, apperr.NotFound("quote item not found")
	}

	updated, err := s.buildItem(ctx, quoteID, req.SortOrder, req, existing.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated.ID = itemID
	*existing = *updated

	s.applyTotals(quote, items)
	quote.UpdatedAt = time.Now()

	if err := s.repo.UpdateItemWithTotals(ctx, quote, updated); err != nil {
		return nil, err
	}
	return s.buildResponse(quote, items, nil), nil
}

// DeleteItem removes a line item and recomputes totals.
func (s *Service) DeleteItem(ctx context.Context, quoteID, itemID uuid.UUID) (*transport.QuoteResponse, error) {
	quote, items, err := s.editableQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	remaining := items[:0]
	found := false
	for _, it := range items {
		if it.ID == itemID {
			found = true
			continue
		}
		remaining = append(remaining, it)
	}
	if !found {
		return nil, apperr.NotFound("quote item not found")
	}

	s.applyTotals(quote, remaining)
	quote.UpdatedAt = time.Now()

	if err := s.repo.DeleteItemWithTotals(ctx, quote, itemID); err != nil {
		return nil, err
	}
	return s.buildResponse(quote, remaining, nil), nil
}

// Convert turns an accepted quote into an invoice. The invoice keeps the
// quote's agent unless the request names an override; the acting agent is
// only a fallback for unassigned quotes.
func (s *Service) Convert(ctx context.Context, id uuid.UUID, actorID uuid.UUID, req transport.ConvertQuoteRequest) (*transport.ConvertQuoteResponse, error) {
	if s.invoices == nil {
		return nil, apperr.Internal("invoicing is not configured")
	}

	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != domain.StatusAccepted {
		return nil, apperr.Conflict("only accepted quotes can be converted")
	}

	items, err := s.repo.ItemsByQuoteID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.Validation("quote has no items")
	}

	converted, err := s.invoices.ExistsForQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if converted {
		return nil, apperr.Conflict("quote has already been converted")
	}

	agentID := quote.AgentID
	if req.AgentID != nil {
		agentID = req.AgentID
	}
	if agentID == nil {
		agentID = &actorID
	}

	params := ConvertParams{
		QuoteID:      quote.ID,
		QuoteNumber:  quote.Number,
		ClientID:     quote.ClientID,
		AgentID:      agentID,
		TaxRate:      quote.TaxRate,
		DiscountRate: quote.DiscountRate,
		Notes:        quote.Notes,
		Terms:        quote.Terms,
		DueDate:      req.DueDate,
	}
	for _, it := range items {
		params.Items = append(params.Items, ConvertItem{
			ServiceID:         it.ServiceID,
			Quantity:          it.Quantity,
			Rate:              it.Rate,
			CustomDescription: it.CustomDescription,
			SortOrder:         it.SortOrder,
		})
	}

	// The unique quote reference on invoices settles concurrent conversions:
	// the loser gets a conflict from the database.
	ref, err := s.invoices.CreateFromQuote(ctx, params)
	if err != nil {
		return nil, err
	}

	return &transport.ConvertQuoteResponse{InvoiceID: ref.ID, InvoiceNumber: ref.Number}, nil
}

// Delete removes a quote that has not been converted.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if s.invoices != nil {
		converted, err := s.invoices.ExistsForQuote(ctx, id)
		if err != nil {
			return err
		}
		if converted {
			return apperr.Conflict("quote has been converted and cannot be deleted")
		}
	}
	return s.repo.Delete(ctx, id)
}

// ExpireOverdue sweeps quotes whose validity lapsed and transitions them to
// EXPIRED. Returns the number of quotes expired.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	quotes, err := s.repo.ListExpirable(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range quotes {
		changed, err := s.transition(ctx, &quotes[i], domain.StatusExpired, nil, nil)
		if err != nil {
			s.log.SyncError("scheduler", "quote", quotes[i].ID.String(), err)
			continue
		}
		if changed {
			expired++
		}
	}
	return expired, nil
}

// Send transitions a quote to SENT and emails the proposal to the client.
// The email is best-effort: a failed send never rolls back the transition.
func (s *Service) Send(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*transport.QuoteResponse, error) {
	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.transition(ctx, quote, domain.StatusSent, &actorID, nil); err != nil {
		return nil, err
	}

	if s.mailer != nil && s.clients != nil {
		client, err := s.clients.GetClient(ctx, quote.ClientID)
		if err != nil {
			s.log.SyncError("email", "quote", quote.ID.String(), err)
		} else if err := s.mailer.SendQuoteProposal(ctx, client.Email, client.Name, quote.Number, quote.TotalAmount, quote.ValidUntil); err != nil {
			s.log.SyncError("email", "quote", quote.ID.String(), err)
		}
	}

	return s.buildResponse(quote, nil, nil), nil
}

// PortalView returns a quote for the customer portal and records the first
// view by moving a SENT quote to PENDING. The caller must present the
// client's email address; a mismatch reads as not found so quote numbers
// cannot be probed.
func (s *Service) PortalView(ctx context.Context, number, email string) (*transport.QuoteResponse, error) {
	quote, err := s.portalQuote(ctx, number, email)
	if err != nil {
		return nil, err
	}
	if quote.Status == domain.StatusSent {
		notes := "viewed by customer"
		if _, err := s.transition(ctx, quote, domain.StatusPending, nil, &notes); err != nil {
			return nil, err
		}
	}
	items, err := s.repo.ItemsByQuoteID(ctx, quote.ID)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(quote, items, nil), nil
}

// PortalDecide records the customer's accept or reject decision.
func (s *Service) PortalDecide(ctx context.Context, number, email string, accept bool, notes *string) (*transport.QuoteResponse, error) {
	quote, err := s.portalQuote(ctx, number, email)
	if err != nil {
		return nil, err
	}
	target := domain.StatusRejected
	if accept {
		target = domain.StatusAccepted
	}
	if _, err := s.transition(ctx, quote, target, nil, notes); err != nil {
		return nil, err
	}
	return s.buildResponse(quote, nil, nil), nil
}

func (s *Service) portalQuote(ctx context.Context, number, email string) (*repository.Quote, error) {
	quote, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if s.clients != nil {
		client, err := s.clients.GetClient(ctx, quote.ClientID)
		if err != nil {
			return nil, apperr.NotFound(quoteNotFoundPortalMsg)
		}
		if !strings.EqualFold(strings.TrimSpace(email), client.Email) {
			return nil, apperr.NotFound(quoteNotFoundPortalMsg)
		}
	}
	return quote, nil
}

func (s *Service) editableQuote(ctx context.Context, quoteID uuid.UUID) (*repository.Quote, []repository.QuoteItem, error) {
	quote, err := s.repo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}
	if domain.ItemsLocked(quote.Status) {
		return nil, nil, apperr.Conflict("quote items are locked")
	}
	items, err := s.repo.ItemsByQuoteID(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}
	return quote, items, nil
}

func (s *Service) buildItem(ctx context.Context, quoteID uuid.UUID, sortOrder int, req transport.QuoteItemRequest, createdAt time.Time) (*repository.QuoteItem, error) {
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

	return &repository.QuoteItem{
		ID:                uuid.New(),
		QuoteID:           quoteID,
		ServiceID:         req.ServiceID,
		Quantity:          req.Quantity,
		Rate:              rate,
		LineTotal:         billing.LineTotal(req.Quantity, rate),
		CustomDescription: req.CustomDescription,
		SortOrder:         sortOrder,
		CreatedAt:         createdAt,
	}, nil
}

func (s *Service) applyTotals(quote *repository.Quote, items []repository.QuoteItem) {
	lineTotals := make([]decimal.Decimal, 0, len(items))
	for _, it := range items {
		lineTotals = append(lineTotals, it.LineTotal)
	}
	totals := billing.Calculate(lineTotals, quote.TaxRate, quote.DiscountRate)
	quote.Subtotal = totals.Subtotal
	quote.TaxAmount = totals.TaxAmount
	quote.DiscountAmount = totals.DiscountAmount
	quote.TotalAmount = totals.Total
}

func (s *Service) buildResponse(q *repository.Quote, items []repository.QuoteItem, logs []repository.StatusLog) *transport.QuoteResponse {
	resp := &transport.QuoteResponse{
		ID:             q.ID,
		Number:         q.Number,
		ClientID:       q.ClientID,
		AgentID:        q.AgentID,
		Status:         string(q.Status),
		Subtotal:       q.Subtotal,
		TaxRate:        q.TaxRate,
		TaxAmount:      q.TaxAmount,
		DiscountRate:   q.DiscountRate,
		DiscountAmount: q.DiscountAmount,
		Total:          q.TotalAmount,
		Notes:          q.Notes,
		Terms:          q.Terms,
		ValidUntil:     q.ValidUntil,
		SentAt:         q.SentAt,
		AcceptedAt:     q.AcceptedAt,
		ExpiredAt:      q.ExpiredAt,
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, transport.QuoteItemResponse{
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
	for _, l := range logs {
		resp.StatusLogs = append(resp.StatusLogs, transport.StatusLogResponse{
			ID:        l.ID,
			Status:    string(l.Status),
			ChangedBy: l.ChangedBy,
			Notes:     l.Notes,
			CreatedAt: l.CreatedAt,
		})
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

package service

import (
	"context"
	"testing"
	"time"

	"deskhub_backend/internal/quotes/domain"
	"deskhub_backend/internal/quotes/repository"
	"deskhub_backend/internal/quotes/transport"
	"deskhub_backend/platform/apperr"
	"deskhub_backend/platform/events"
	"deskhub_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakeRepo struct {
	quotes  map[uuid.UUID]*repository.Quote
	items   map[uuid.UUID][]repository.QuoteItem
	logs    map[uuid.UUID][]repository.StatusLog
	counter int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		quotes: make(map[uuid.UUID]*repository.Quote),
		items:  make(map[uuid.UUID][]repository.QuoteItem),
		logs:   make(map[uuid.UUID][]repository.StatusLog),
	}
}

func (f *fakeRepo) NextNumber(ctx context.Context) (string, error) {
	f.counter++
	return "QT-2026-0001", nil
}

func (f *fakeRepo) CreateWithItems(ctx context.Context, quote *repository.Quote, items []repository.QuoteItem, logEntry repository.StatusLog) error {
	cp := *quote
	f.quotes[quote.ID] = &cp
	f.items[quote.ID] = append([]repository.QuoteItem(nil), items...)
	f.logs[quote.ID] = append(f.logs[quote.ID], logEntry)
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, apperr.NotFound("quote not found")
	}
	cp := *q
	return &cp, nil
}

func (f *fakeRepo) GetByNumber(ctx context.Context, number string) (*repository.Quote, error) {
	for _, q := range f.quotes {
		if q.Number == number {
			cp := *q
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("quote not found")
}

func (f *fakeRepo) List(ctx context.Context, params repository.ListParams) (*repository.ListResult, error) {
	var out []repository.Quote
	for _, q := range f.quotes {
		out = append(out, *q)
	}
	return &repository.ListResult{Items: out, Total: len(out), Page: params.Page, PageSize: params.PageSize}, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.quotes[id]; !ok {
		return apperr.NotFound("quote not found")
	}
	delete(f.quotes, id)
	return nil
}

func (f *fakeRepo) ItemsByQuoteID(ctx context.Context, quoteID uuid.UUID) ([]repository.QuoteItem, error) {
	return append([]repository.QuoteItem(nil), f.items[quoteID]...), nil
}

func (f *fakeRepo) GetItem(ctx context.Context, quoteID, itemID uuid.UUID) (*repository.QuoteItem, error) {
	for _, it := range f.items[quoteID] {
		if it.ID == itemID {
			cp := it
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("quote item not found")
}

func (f *fakeRepo) LogsByQuoteID(ctx context.Context, quoteID uuid.UUID) ([]repository.StatusLog, error) {
	return append([]repository.StatusLog(nil), f.logs[quoteID]...), nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, quote *repository.Quote, logEntry repository.StatusLog) error {
	if _, ok := f.quotes[quote.ID]; !ok {
		return apperr.NotFound("quote not found")
	}
	cp := *quote
	f.quotes[quote.ID] = &cp
	f.logs[quote.ID] = append(f.logs[quote.ID], logEntry)
	return nil
}

func (f *fakeRepo) InsertItemWithTotals(ctx context.Context, quote *repository.Quote, item *repository.QuoteItem) error {
	f.items[quote.ID] = append(f.items[quote.ID], *item)
	cp := *quote
	f.quotes[quote.ID] = &cp
	return nil
}

func (f *fakeRepo) UpdateItemWithTotals(ctx context.Context, quote *repository.Quote, item *repository.QuoteItem) error {
	items := f.items[quote.ID]
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = *item
			cp := *quote
			f.quotes[quote.ID] = &cp
			return nil
		}
	}
	return apperr.NotFound("quote item not found")
}

func (f *fakeRepo) DeleteItemWithTotals(ctx context.Context, quote *repository.Quote, itemID uuid.UUID) error {
	items := f.items[quote.ID]
	for i := range items {
		if items[i].ID == itemID {
			f.items[quote.ID] = append(items[:i], items[i+1:]...)
			cp := *quote
			f.quotes[quote.ID] = &cp
			return nil
		}
	}
	return apperr.NotFound("quote item not found")
}

func (f *fakeRepo) UpdateDetailsWithTotals(ctx context.Context, quote *repository.Quote) error {
	if _, ok := f.quotes[quote.ID]; !ok {
		return apperr.NotFound("quote not found")
	}
	cp := *quote
	f.quotes[quote.ID] = &cp
	return nil
}

func (f *fakeRepo) ListExpirable(ctx context.Context, now time.Time) ([]repository.Quote, error) {
	var out []repository.Quote
	for _, q := range f.quotes {
		if q.ValidUntil != nil && q.ValidUntil.Before(now) && domain.Expirable(q.Status) {
			out = append(out, *q)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	services map[uuid.UUID]CatalogService
}

func (f *fakeCatalog) GetService(ctx context.Context, id uuid.UUID) (*CatalogService, error) {
	svc, ok := f.services[id]
	if !ok {
		return nil, apperr.NotFound("service not found")
	}
	return &svc, nil
}

type fakeInvoices struct {
	existing map[uuid.UUID]bool
	created  []ConvertParams
}

func (f *fakeInvoices) CreateFromQuote(ctx context.Context, params ConvertParams) (*InvoiceRef, error) {
	if f.existing[params.QuoteID] {
		return nil, apperr.Conflict("quote has already been converted")
	}
	f.existing[params.QuoteID] = true
	f.created = append(f.created, params)
	return &InvoiceRef{ID: uuid.New(), Number: "INV-2026-0001"}, nil
}

func (f *fakeInvoices) ExistsForQuote(ctx context.Context, quoteID uuid.UUID) (bool, error) {
	return f.existing[quoteID], nil
}

type fakeClients struct {
	clients map[uuid.UUID]ClientRef
}

func (f *fakeClients) GetClient(ctx context.Context, id uuid.UUID) (*ClientRef, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, apperr.NotFound("client not found")
	}
	return &c, nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) SendQuoteProposal(ctx context.Context, to, clientName, quoteNumber string, total decimal.Decimal, validUntil *time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, quoteNumber)
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeCatalog, *fakeInvoices) {
	t.Helper()
	repo := newFakeRepo()
	catalog := &fakeCatalog{services: make(map[uuid.UUID]CatalogService)}
	invoices := &fakeInvoices{existing: make(map[uuid.UUID]bool)}
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	svc := New(repo, catalog, bus, log)
	svc.SetInvoiceCreator(invoices)
	return svc, repo, catalog, invoices
}

func addCatalogService(catalog *fakeCatalog, rate string) uuid.UUID {
	id := uuid.New()
	catalog.services[id] = CatalogService{
		ID:     id,
		Name:   "Consulting",
		Rate:   decimal.RequireFromString(rate),
		Active: true,
	}
	return id
}

func mustCreate(t *testing.T, svc *Service, catalog *fakeCatalog) *transport.QuoteResponse {
	t.Helper()
	serviceID := addCatalogService(catalog, "500.00")
	resp, err := svc.Create(context.Background(), uuid.New(), transport.CreateQuoteRequest{
		ClientID:     uuid.New(),
		TaxRate:      decimal.RequireFromString("15"),
		DiscountRate: decimal.RequireFromString("10"),
		Items: []transport.QuoteItemRequest{
			{ServiceID: serviceID, Quantity: decimal.NewFromInt(2)},
		},
	})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	return resp
}

func setStatus(t *testing.T, svc *Service, repo *fakeRepo, id uuid.UUID, path ...domain.Status) {
	t.Helper()
	for _, st := range path {
		q := repo.quotes[id]
		if _, err := svc.transition(context.Background(), q, st, nil, nil); err != nil {
			t.Fatalf("transition to %s: %v", st, err)
		}
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestCreate_ComputesTotalsServerSide(t *testing.T) {
	svc, repo, catalog, _ := newTestService(t)

	resp := mustCreate(t, svc, catalog)

	if resp.Status != "DRAFT" {
		t.Fatalf("expected DRAFT, got %s", resp.Status)
	}
	if !resp.Subtotal.Equal(decimal.RequireFromString("1000.00")) {
		t.Fatalf("expected subtotal 1000.00, got %s", resp.Subtotal)
	}
	if !resp.DiscountAmount.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected discount 100.00, got %s", resp.DiscountAmount)
	}
	if !resp.TaxAmount.Equal(decimal.RequireFromString("135.00")) {
		t.Fatalf("expected tax 135.00, got %s", resp.TaxAmount)
	}
	if !resp.Total.Equal(decimal.RequireFromString("1035.00")) {
		t.Fatalf("expected total 1035.00, got %s", resp.Total)
	}

	logs := repo.logs[resp.ID]
	if len(logs) != 1 || logs[0].Status != domain.StatusDraft {
		t.Fatalf("expected one DRAFT log entry, got %+v", logs)
	}
}

func TestCreate_RejectsArchivedService(t *testing.T) {
	svc, _, catalog, _ := newTestService(t)

	id := uuid.New()
	catalog.services[id] = CatalogService{ID: id, Rate: decimal.NewFromInt(100), Active: false}

	_, err := svc.Create(context.Background(), uuid.New(), transport.CreateQuoteRequest{
		ClientID: uuid.New(),
		Items:    []transport.QuoteItemRequest{{ServiceID: id, Quantity: decimal.NewFromInt(1)}},
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatus_InvalidTransitionRejected(t *testing.T) {
	svc, _, catalog, _ := newTestService(t)
	resp := mustCreate(t, svc, catalog)

	actor := uuid.New()
	_, err := svc.UpdateStatus(context.Background(), resp.ID, &actor, transport.UpdateQuoteStatusRequest{Status: "ACCEPTED"})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for DRAFT -> ACCEPTED, got %v", err)
	}
}

func TestUpdateStatus_SameStateIsNoOp(t *testing.T) {
	svc, repo, catalog, _ := newTestService(t)
	resp := mustCreate(t, svc, catalog)

	actor := uuid.New()
	if _, err := svc.UpdateStatus(context.Background(), resp.ID, &actor, transport.UpdateQuoteStatusRequest{Status: "DRAFT"}); err != nil {
		t.Fatalf("same-state update: %v", err)
	}
	if len(repo.logs[resp.ID]) != 1 {
		t.Fatalf("no-op must not append log rows, got %d", len(repo.logs[resp.ID]))
	}
}

func TestUpdateStatus_StampsAreFirstTimeOnly(t *testing.T) {
	svc, repo, catalog, _ := newTestService(t)
	resp := mustCreate(t, svc, catalog)

	setStatus(t, svc, repo, resp.ID, domain.StatusSent)
	first := repo.quotes[resp.ID].SentAt
	if first == nil {
		t.Fatal("expected sentAt to be stamped on first SENT")
	}

	setStatus(t, svc, repo, resp.ID, domain.StatusRejected, domain.StatusDraft, domain.StatusSent)
	if !repo.quotes[resp.ID].SentAt.Equal(*first) {
		t.Fatal("sentAt must keep its first value after rework")
	}
}

func TestUpdateStatus_AcceptedIsTerminal(t *testing.T) {
	svc, repo, catalog, _ := newTestService(t)
	resp := mustCreate(t, svc, catalog)
	setStatus(t, svc, repo, resp.ID, domain.StatusSent, domain.StatusAccepted)

	actor := uuid.New()
	for _, target := range []string{"DRAFT", "SENT", "REJECTED", "EXPIRED"} {
		if _, err := svc.UpdateStatus(context.Background(), resp.ID, &actor, transport.UpdateQuoteStatusRequest{Status: target}); err == nil {
			t.Fatalf("expected ACCEPTED -> %s to fail", target)
		}
	}
}

func TestAddItem_LockedWhenAccepted(t *testing.T) {
	svc, repo, catalog, _ := newTestService(t)
	resp := mustCreate(t, svc, catalog)
	setStatus(t, svc, repo, resp.ID, domain.StatusSent, domain.StatusAccepted)

	serviceID := addCatalogService(catalog, "50.00")
	_, err := svc.AddItem(context.Background(), resp.ID, transport.QuoteItemRequest{
		ServiceID: serviceID,
		Quantity:  decimal.NewFromInt(1),
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on locked quote, got %v", err)
	}
}

func TestAddItem_RecomputesTotals(t *testing.T) {
	svc, _, catalog, _ := newTestService(t)
	resp := mustCreate(t, svc, catalog)

	serviceID := addCatalogService(catalog, "250.00")
	updated, err := svc.AddItem(context.Background(), resp.ID, transport.QuoteItemRequest{
		ServiceID: serviceID,
		Quantity:  decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	// subtotal 1250, discount 125, tax 168.75, total 1293.75
	if !updated.Subtotal.Equal(decimal.RequireFromString("1250.00")) {
		t.Fatalf("expected subtotal 1250.00, got %s", updated.Subtotal)
	}
	if !updated.Total.Equal(decimal.RequireFromString("1293.75")) {
		t.Fatalf("expected total 1293.75, got %s", updated.Total)
	}
}

func TestConvert_RequiresAcceptedStatus(t *testing.T) {
	svc, _, catalog, _ := newTestService(t)
	resp := mustCreate(t, svc, catalog)

	_, err := svc.Convert(context.Background(), resp.ID, uuid.New(), transport.ConvertQuoteRequest{})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for unaccepted quote, got %v", err)
	}
}

func TestConvert_RejectsEmptyQuote(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	resp, err := svc.Create(context.Background(), uuid.New(), transport.CreateQuoteRequest{ClientID: uuid.New()})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	setStatus(t, svc, repo, resp.ID, domain.StatusSent, domain.StatusAccepted)

	_, convErr := svc.Convert(context.Background(), resp.ID, uuid.New(), transport.ConvertQuoteRequest{})
	if !apperr.IsKind(convErr, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty quote, got %v", convErr)
	}
}

func TestConvert_OnlyOnce(t *testing.T) {
	svc, repo, catalog, invoices := newTestService(t)
	resp := mustCreate(t, svc, catalog)
	setStatus(t, svc, repo, resp.ID, domain.StatusSent, domain.StatusAccepted)

	result, err := svc.Convert(context.Background(), resp.ID, uuid.New(), transport.ConvertQuoteRequest{})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if result.InvoiceNumber == "" {
		t.Fatal("expected invoice number")
	}
	if len(invoices.created) != 1 {
		t.Fatalf("expected one conversion, got %d", len(invoices.created))
	}

	if _, err := svc.Convert(context.Background(), resp.ID, uuid.New(), transport.ConvertQuoteRequest{}); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on second conversion, got %v", err)
	}
}

func TestConvert_KeepsQuoteAgentAndDueDate(t *testing.T) {
	svc, repo, catalog, invoices := newTestService(t)
	resp := mustCreate(t, svc, catalog)
	setStatus(t, svc, repo, resp.ID, domain.StatusSent, domain.StatusAccepted)

	due := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	actor := uuid.New()
	if _, err := svc.Convert(context.Background(), resp.ID, actor, transport.ConvertQuoteRequest{DueDate: &due}); err != nil {
		t.Fatalf("convert: %v", err)
	}

	params := invoices.created[0]
	if params.AgentID == nil || *params.AgentID != *resp.AgentID {
		t.Fatalf("invoice agent = %v, want quote agent %v", params.AgentID, resp.AgentID)
	}
	if *params.AgentID == actor {
		t.Fatal("invoice agent must not default to the acting agent")
	}
	if params.DueDate == nil || !params.DueDate.Equal(due) {
		t.Fatalf("invoice due date = %v, want %v", params.DueDate, due)
	}
}

func TestConvert_AgentOverride(t *testing.T) {
	svc, repo, catalog, invoices := newTestService(t)
	resp := mustCreate(t, svc, catalog)
	setStatus(t, svc, repo, resp.ID, domain.StatusSent, domain.StatusAccepted)

	override := uuid.New()
	if _, err := svc.Convert(context.Background(), resp.ID, uuid.New(), transport.ConvertQuoteRequest{AgentID: &override}); err != nil {
		t.Fatalf("convert: %v", err)
	}

	params := invoices.created[0]
	if params.AgentID == nil || *params.AgentID != override {
		t.Fatalf("invoice agent = %v, want override %v", params.AgentID, override)
	}
	if params.DueDate != nil {
		t.Fatalf("due date should stay unset for the invoicing default, got %v", params.DueDate)
	}
}

func TestDelete_BlockedAfterConversion(t *testing.T) {
	svc, repo, catalog, _ := newTestService(t)
	resp := mustCreate(t, svc, catalog)
	setStatus(t, svc, repo, resp.ID, domain.StatusSent, domain.StatusAccepted)

	if _, err := svc.Convert(context.Background(), resp.ID, uuid.New(), transport.ConvertQuoteRequest{}); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if err := svc.Delete(context.Background(), resp.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict deleting converted quote, got %v", err)
	}
	if _, ok := repo.quotes[resp.ID]; !ok {
		t.Fatal("quote must survive a blocked delete")
	}
}

func TestExpireOverdue_SweepsLapsedQuotes(t *testing.T) {
	svc, repo, catalog, _ := newTestService(t)
	resp := mustCreate(t, svc, catalog)
	setStatus(t, svc, repo, resp.ID, domain.StatusSent)

	past := time.Now().Add(-24 * time.Hour)
	repo.quotes[resp.ID].ValidUntil = &past

	expired, err := svc.ExpireOverdue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("expire sweep: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired quote, got %d", expired)
	}
	if repo.quotes[resp.ID].Status != domain.StatusExpired {
		t.Fatalf("expected EXPIRED, got %s", repo.quotes[resp.ID].Status)
	}
	if repo.quotes[resp.ID].ExpiredAt == nil {
		t.Fatal("expected expiredAt stamp")
	}
}

func TestPortalView_MarksSentAsPending(t *testing.T) {
	svc, repo, catalog, _ := newTestService(t)
	resp := mustCreate(t, svc, catalog)
	setStatus(t, svc, repo, resp.ID, domain.StatusSent)

	viewed, err := svc.PortalView(context.Background(), resp.Number, "client@example.com")
	if err != nil {
		t.Fatalf("portal view: %v", err)
	}
	if viewed.Status != "PENDING" {
		t.Fatalf("expected PENDING after first view, got %s", viewed.Status)
	}

	again, err := svc.PortalView(context.Background(), resp.Number, "client@example.com")
	if err != nil {
		t.Fatalf("second portal view: %v", err)
	}
	if again.Status != "PENDING" {
		t.Fatalf("second view must stay PENDING, got %s", again.Status)
	}
}

func TestPortalView_RejectsEmailMismatch(t *testing.T) {
	svc, repo, catalog, _ := newTestService(t)
	resp := mustCreate(t, svc, catalog)
	setStatus(t, svc, repo, resp.ID, domain.StatusSent)

	svc.SetClientReader(&fakeClients{clients: map[uuid.UUID]ClientRef{
		resp.ClientID: {ID: resp.ClientID, Name: "Acme", Email: "owner@acme.test"},
	}})

	if _, err := svc.PortalView(context.Background(), resp.Number, "intruder@evil.test"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for email mismatch, got %v", err)
	}
	if _, err := svc.PortalView(context.Background(), resp.Number, " OWNER@acme.test "); err != nil {
		t.Fatalf("case-insensitive email match should pass: %v", err)
	}
}

func TestSend_TransitionsAndEmailsBestEffort(t *testing.T) {
	svc, repo, catalog, _ := newTestService(t)
	resp := mustCreate(t, svc, catalog)

	mailer := &fakeMailer{err: apperr.Internal("smtp down")}
	svc.SetProposalSender(mailer)
	svc.SetClientReader(&fakeClients{clients: map[uuid.UUID]ClientRef{
		resp.ClientID: {ID: resp.ClientID, Name: "Acme", Email: "owner@acme.test"},
	}})

	sent, err := svc.Send(context.Background(), resp.ID, uuid.New())
	if err != nil {
		t.Fatalf("send must commit even when email fails: %v", err)
	}
	if sent.Status != "SENT" {
		t.Fatalf("expected SENT, got %s", sent.Status)
	}
	if repo.quotes[resp.ID].SentAt == nil {
		t.Fatal("expected sentAt stamp")
	}
}

func TestPortalDecide_AcceptFromPending(t *testing.T) {
	svc, repo, catalog, _ := newTestService(t)
	resp := mustCreate(t, svc, catalog)
	setStatus(t, svc, repo, resp.ID, domain.StatusSent, domain.StatusPending)

	decided, err := svc.PortalDecide(context.Background(), resp.Number, "client@example.com", true, nil)
	if err != nil {
		t.Fatalf("portal accept: %v", err)
	}
	if decided.Status != "ACCEPTED" {
		t.Fatalf("expected ACCEPTED, got %s", decided.Status)
	}
	if decided.AcceptedAt == nil {
		t.Fatal("expected acceptedAt stamp")
	}
}

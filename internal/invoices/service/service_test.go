package service

import (
	"context"
	"testing"
	"time"

	"deskhub_backend/internal/invoices/domain"
	"deskhub_backend/internal/invoices/repository"
	"deskhub_backend/internal/invoices/transport"
	"deskhub_backend/platform/apperr"
	"deskhub_backend/platform/events"
	"deskhub_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakeRepo struct {
	invoices map[uuid.UUID]*repository.Invoice
	items    map[uuid.UUID][]repository.InvoiceItem
	bills    map[uuid.UUID]repository.Bill
	counter  int
	// quoteResets records quote IDs reset to ACCEPTED during Delete.
	quoteResets []uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		invoices: make(map[uuid.UUID]*repository.Invoice),
		items:    make(map[uuid.UUID][]repository.InvoiceItem),
		bills:    make(map[uuid.UUID]repository.Bill),
	}
}

func (f *fakeRepo) NextNumber(ctx context.Context) (string, error) {
	f.counter++
	return "INV-2026-0001", nil
}

func (f *fakeRepo) CreateWithItems(ctx context.Context, invoice *repository.Invoice, items []repository.InvoiceItem) error {
	if invoice.QuoteID != nil {
		for _, existing := range f.invoices {
			if existing.QuoteID != nil && *existing.QuoteID == *invoice.QuoteID {
				return apperr.Conflict("quote has already been converted")
			}
		}
	}
	cp := *invoice
	f.invoices[invoice.ID] = &cp
	f.items[invoice.ID] = append([]repository.InvoiceItem(nil), items...)
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, apperr.NotFound("invoice not found")
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeRepo) GetByNumber(ctx context.Context, number string) (*repository.Invoice, error) {
	for _, inv := range f.invoices {
		if inv.Number == number {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("invoice not found")
}

func (f *fakeRepo) List(ctx context.Context, params repository.ListParams) (*repository.ListResult, error) {
	var out []repository.Invoice
	for _, inv := range f.invoices {
		out = append(out, *inv)
	}
	return &repository.ListResult{Items: out, Total: len(out), Page: params.Page, PageSize: params.PageSize}, nil
}

func (f *fakeRepo) ItemsByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]repository.InvoiceItem, error) {
	return append([]repository.InvoiceItem(nil), f.items[invoiceID]...), nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, invoice *repository.Invoice) error {
	if _, ok := f.invoices[invoice.ID]; !ok {
		return apperr.NotFound("invoice not found")
	}
	cp := *invoice
	f.invoices[invoice.ID] = &cp
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	inv, ok := f.invoices[id]
	if !ok {
		return apperr.NotFound("invoice not found")
	}
	if inv.QuoteID != nil {
		f.quoteResets = append(f.quoteResets, *inv.QuoteID)
	}
	delete(f.invoices, id)
	return nil
}

func (f *fakeRepo) ExistsForQuote(ctx context.Context, quoteID uuid.UUID) (bool, error) {
	for _, inv := range f.invoices {
		if inv.QuoteID != nil && *inv.QuoteID == quoteID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ListOverdue(ctx context.Context, now time.Time) ([]repository.Invoice, error) {
	var out []repository.Invoice
	for _, inv := range f.invoices {
		if inv.DueDate != nil && inv.DueDate.Before(now) && domain.OverdueSweepable(inv.Status) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeRepo) AddBill(ctx context.Context, bill repository.Bill) error {
	if _, ok := f.bills[bill.InvoiceID]; ok {
		return apperr.Conflict("invoice already has a billing record")
	}
	f.bills[bill.InvoiceID] = bill
	return nil
}

func (f *fakeRepo) BillByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*repository.Bill, error) {
	b, ok := f.bills[invoiceID]
	if !ok {
		return nil, apperr.NotFound("billing record not found")
	}
	return &b, nil
}

func (f *fakeRepo) HasBill(ctx context.Context, invoiceID uuid.UUID) (bool, error) {
	_, ok := f.bills[invoiceID]
	return ok, nil
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

type fakePortal struct{}

func (fakePortal) GetAppBaseURL() string { return "https://portal.example.com/" }

// ── Helpers ───────────────────────────────────────────────────────────────────

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeCatalog) {
	t.Helper()
	repo := newFakeRepo()
	catalog := &fakeCatalog{services: make(map[uuid.UUID]CatalogService)}
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	return New(repo, catalog, bus, log, fakePortal{}), repo, catalog
}

func mustCreate(t *testing.T, svc *Service, catalog *fakeCatalog) *transport.InvoiceResponse {
	t.Helper()
	serviceID := uuid.New()
	catalog.services[serviceID] = CatalogService{
		ID: serviceID, Name: "Consulting", Rate: decimal.RequireFromString("500.00"), Active: true,
	}
	resp, err := svc.Create(context.Background(), uuid.New(), transport.CreateInvoiceRequest{
		ClientID:     uuid.New(),
		TaxRate:      decimal.RequireFromString("15"),
		DiscountRate: decimal.RequireFromString("10"),
		Items: []transport.InvoiceItemRequest{
			{ServiceID: serviceID, Quantity: decimal.NewFromInt(2)},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return resp
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestCreate_UsesSharedCalculation(t *testing.T) {
	svc, repo, catalog := newTestService(t)
	resp := mustCreate(t, svc, catalog)

	if resp.Status != "PENDING" {
		t.Fatalf("expected PENDING, got %s", resp.Status)
	}
	if !resp.Total.Equal(decimal.RequireFromString("1035.00")) {
		t.Fatalf("expected total 1035.00, got %s", resp.Total)
	}
	if resp.DueDate == nil {
		t.Fatal("expected a defaulted due date")
	}
	if repo.invoices[resp.ID] == nil {
		t.Fatal("invoice not persisted")
	}
}

func TestCreateFromQuote_OnePerQuote(t *testing.T) {
	svc, _, _ := newTestService(t)

	quoteID := uuid.New()
	params := FromQuoteParams{
		QuoteID:     quoteID,
		QuoteNumber: "QT-2026-0007",
		ClientID:    uuid.New(),
		TaxRate:     decimal.RequireFromString("15"),
		Items: []FromQuoteItem{
			{ServiceID: uuid.New(), Quantity: decimal.NewFromInt(1), Rate: decimal.RequireFromString("100.00")},
		},
	}

	first, err := svc.CreateFromQuote(context.Background(), params)
	if err != nil {
		t.Fatalf("first conversion: %v", err)
	}
	if first.QuoteID == nil || *first.QuoteID != quoteID {
		t.Fatal("expected quote reference on converted invoice")
	}
	if !first.Total.Equal(decimal.RequireFromString("115.00")) {
		t.Fatalf("expected total 115.00, got %s", first.Total)
	}

	if _, err := svc.CreateFromQuote(context.Background(), params); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on second conversion, got %v", err)
	}
}

func TestUpdateStatus_PaidDateSetOnceAndCleared(t *testing.T) {
	svc, repo, catalog := newTestService(t)
	resp := mustCreate(t, svc, catalog)

	supplied := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	paid, err := svc.UpdateStatus(context.Background(), resp.ID, transport.UpdateInvoiceStatusRequest{
		Status: "PAID", PaidDate: &supplied,
	})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.PaidDate == nil || !paid.PaidDate.Equal(supplied) {
		t.Fatalf("expected caller-supplied paid date, got %v", paid.PaidDate)
	}

	// Away from PAID clears the date.
	unpaid, err := svc.UpdateStatus(context.Background(), resp.ID, transport.UpdateInvoiceStatusRequest{Status: "SENT"})
	if err != nil {
		t.Fatalf("unmark paid: %v", err)
	}
	if unpaid.PaidDate != nil {
		t.Fatalf("expected paid date cleared, got %v", unpaid.PaidDate)
	}
	if repo.invoices[resp.ID].PaidDate != nil {
		t.Fatal("paid date must be cleared in storage too")
	}
}

func TestUpdateStatus_SameStateKeepsPaidDate(t *testing.T) {
	svc, _, catalog := newTestService(t)
	resp := mustCreate(t, svc, catalog)

	first, err := svc.UpdateStatus(context.Background(), resp.ID, transport.UpdateInvoiceStatusRequest{Status: "PAID"})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	later := time.Now().Add(time.Hour)
	again, err := svc.UpdateStatus(context.Background(), resp.ID, transport.UpdateInvoiceStatusRequest{
		Status: "PAID", PaidDate: &later,
	})
	if err != nil {
		t.Fatalf("repeat paid: %v", err)
	}
	if !again.PaidDate.Equal(*first.PaidDate) {
		t.Fatal("repeating PAID must not move the paid date")
	}
}

func TestDelete_GuardsPaidAndBilled(t *testing.T) {
	svc, repo, catalog := newTestService(t)

	paid := mustCreate(t, svc, catalog)
	if _, err := svc.UpdateStatus(context.Background(), paid.ID, transport.UpdateInvoiceStatusRequest{Status: "PAID"}); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if err := svc.Delete(context.Background(), paid.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict deleting paid invoice, got %v", err)
	}

	billed := mustCreate(t, svc, catalog)
	if err := svc.RecordBill(context.Background(), billed.ID, "ZB-1234", "zoho-books"); err != nil {
		t.Fatalf("record bill: %v", err)
	}
	if err := svc.Delete(context.Background(), billed.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict deleting billed invoice, got %v", err)
	}

	if len(repo.invoices) != 2 {
		t.Fatalf("guarded invoices must survive, got %d", len(repo.invoices))
	}
}

func TestDelete_ConvertedInvoiceResetsQuote(t *testing.T) {
	svc, repo, _ := newTestService(t)

	quoteID := uuid.New()
	resp, err := svc.CreateFromQuote(context.Background(), FromQuoteParams{
		QuoteID:  quoteID,
		ClientID: uuid.New(),
		Items: []FromQuoteItem{
			{ServiceID: uuid.New(), Quantity: decimal.NewFromInt(1), Rate: decimal.RequireFromString("50.00")},
		},
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	if err := svc.Delete(context.Background(), resp.ID); err != nil {
		t.Fatalf("delete converted invoice: %v", err)
	}
	if len(repo.quoteResets) != 1 || repo.quoteResets[0] != quoteID {
		t.Fatalf("expected source quote reset, got %v", repo.quoteResets)
	}
}

func TestMarkOverdue_FlipsUnpaidPastDue(t *testing.T) {
	svc, repo, catalog := newTestService(t)
	resp := mustCreate(t, svc, catalog)

	past := time.Now().Add(-48 * time.Hour)
	repo.invoices[resp.ID].DueDate = &past

	flipped, err := svc.MarkOverdue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("overdue sweep: %v", err)
	}
	if flipped != 1 {
		t.Fatalf("expected 1 flipped invoice, got %d", flipped)
	}
	if repo.invoices[resp.ID].Status != domain.StatusOverdue {
		t.Fatalf("expected OVERDUE, got %s", repo.invoices[resp.ID].Status)
	}

	// Paid invoices stay untouched even when past due.
	if _, err := svc.UpdateStatus(context.Background(), resp.ID, transport.UpdateInvoiceStatusRequest{Status: "PAID"}); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	flipped, err = svc.MarkOverdue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if flipped != 0 {
		t.Fatalf("paid invoice must not be swept, flipped %d", flipped)
	}
}

func TestPaymentURL_UsesPortalBase(t *testing.T) {
	svc, _, catalog := newTestService(t)
	resp := mustCreate(t, svc, catalog)

	url, err := svc.PaymentURL(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("payment url: %v", err)
	}
	want := "https://portal.example.com/pay/" + resp.Number
	if url != want {
		t.Fatalf("expected %s, got %s", want, url)
	}
}

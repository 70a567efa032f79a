package notification

import (
	"context"
	"testing"
	"time"

	clienttransport "deskhub_backend/internal/clients/transport"
	"deskhub_backend/internal/email"
	"deskhub_backend/internal/events"
	invoicetransport "deskhub_backend/internal/invoices/transport"
	tickettransport "deskhub_backend/internal/tickets/transport"
	"deskhub_backend/internal/zoho"
	"deskhub_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type testSender struct {
	receiptCalls     int
	ticketReplyCalls int
	customCalls      int
	lastTo           string
}

func (s *testSender) SendQuoteProposalEmail(_ context.Context, to string, _, _, _ string, _ ...email.Attachment) error {
	s.lastTo = to
	return nil
}
func (s *testSender) SendInvoiceReceiptEmail(_ context.Context, to string, _, _, _ string) error {
	s.receiptCalls++
	s.lastTo = to
	return nil
}
func (s *testSender) SendTicketReplyEmail(_ context.Context, to string, _, _, _ string) error {
	s.ticketReplyCalls++
	s.lastTo = to
	return nil
}
func (s *testSender) SendCustomEmail(_ context.Context, to string, _, _ string) error {
	s.customCalls++
	s.lastTo = to
	return nil
}

type testWhatsApp struct {
	calls    int
	lastTo   string
	lastBody string
}

func (w *testWhatsApp) SendMessage(_ context.Context, phoneNumber, message string) error {
	w.calls++
	w.lastTo = phoneNumber
	w.lastBody = message
	return nil
}

type testBoard struct {
	lists      map[string]string
	created    int
	moved      int
	lastCardID string
	lastListID string
}

func (b *testBoard) ListIDForStatus(status string) string { return b.lists[status] }
func (b *testBoard) CreateCard(_ context.Context, listID, _, _ string) (string, error) {
	b.created++
	b.lastListID = listID
	return "card-1", nil
}
func (b *testBoard) MoveCard(_ context.Context, cardID, listID string) error {
	b.moved++
	b.lastCardID = cardID
	b.lastListID = listID
	return nil
}

type testCards struct {
	mapping map[uuid.UUID]string
}

func (c *testCards) Save(_ context.Context, ticketID uuid.UUID, cardID string) error {
	c.mapping[ticketID] = cardID
	return nil
}
func (c *testCards) CardID(_ context.Context, ticketID uuid.UUID) (string, error) {
	return c.mapping[ticketID], nil
}

type testCRM struct {
	contacts []zoho.Contact
	invoices []zoho.Invoice
	booksID  string
}

func (c *testCRM) SyncContact(_ context.Context, contact zoho.Contact) error {
	c.contacts = append(c.contacts, contact)
	return nil
}
func (c *testCRM) SyncInvoice(_ context.Context, invoice zoho.Invoice) (string, error) {
	c.invoices = append(c.invoices, invoice)
	return c.booksID, nil
}

type testClients struct {
	clients map[uuid.UUID]*clienttransport.ClientResponse
}

func (r *testClients) GetByID(_ context.Context, id uuid.UUID) (*clienttransport.ClientResponse, error) {
	return r.clients[id], nil
}

type testTickets struct {
	tickets map[uuid.UUID]*tickettransport.TicketResponse
}

func (r *testTickets) GetByID(_ context.Context, id uuid.UUID) (*tickettransport.TicketResponse, error) {
	return r.tickets[id], nil
}

type testInvoices struct {
	invoices map[uuid.UUID]*invoicetransport.InvoiceResponse
	bills    map[uuid.UUID]string
}

func (r *testInvoices) GetByID(_ context.Context, id uuid.UUID) (*invoicetransport.InvoiceResponse, error) {
	return r.invoices[id], nil
}
func (r *testInvoices) RecordBill(_ context.Context, invoiceID uuid.UUID, externalRef, _ string) error {
	r.bills[invoiceID] = externalRef
	return nil
}

type fixture struct {
	module   *Module
	sender   *testSender
	whatsapp *testWhatsApp
	board    *testBoard
	cards    *testCards
	crm      *testCRM
	clients  *testClients
	tickets  *testTickets
	invoices *testInvoices
}

func newFixture() *fixture {
	f := &fixture{
		sender:   &testSender{},
		whatsapp: &testWhatsApp{},
		board: &testBoard{lists: map[string]string{
			"OPEN": "list-open", "PENDING": "list-pending", "RESOLVED": "list-resolved", "CLOSED": "list-closed",
		}},
		cards:    &testCards{mapping: make(map[uuid.UUID]string)},
		crm:      &testCRM{booksID: "books-42"},
		clients:  &testClients{clients: make(map[uuid.UUID]*clienttransport.ClientResponse)},
		tickets:  &testTickets{tickets: make(map[uuid.UUID]*tickettransport.TicketResponse)},
		invoices: &testInvoices{invoices: make(map[uuid.UUID]*invoicetransport.InvoiceResponse), bills: make(map[uuid.UUID]string)},
	}
	f.module = NewModule(f.sender, f.whatsapp, f.board, f.cards, f.crm, f.clients, f.tickets, f.invoices, logger.New("test"))
	return f
}

func (f *fixture) addClient(whatsappID *string) uuid.UUID {
	id := uuid.New()
	f.clients.clients[id] = &clienttransport.ClientResponse{
		ID:         id,
		Name:       "Test Client",
		Email:      "client@example.com",
		WhatsAppID: whatsappID,
	}
	return id
}

func TestTicketCreated_CreatesBoardCard(t *testing.T) {
	f := newFixture()
	ticketID := uuid.New()

	err := f.module.Handle(context.Background(), events.TicketCreated{
		TicketID: ticketID, ClientID: uuid.New(), Channel: "FORM", Subject: "Broken widget", Priority: "MEDIUM",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if f.board.created != 1 || f.board.lastListID != "list-open" {
		t.Fatalf("board = %+v, want one card on list-open", f.board)
	}
	if f.cards.mapping[ticketID] != "card-1" {
		t.Fatal("card mapping was not saved")
	}
}

func TestTicketStatusChanged_MovesMappedCard(t *testing.T) {
	f := newFixture()
	ticketID := uuid.New()
	f.cards.mapping[ticketID] = "card-1"

	err := f.module.Handle(context.Background(), events.TicketStatusChanged{
		TicketID: ticketID, OldStatus: "OPEN", NewStatus: "RESOLVED",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if f.board.moved != 1 || f.board.lastCardID != "card-1" || f.board.lastListID != "list-resolved" {
		t.Fatalf("board = %+v, want card-1 moved to list-resolved", f.board)
	}
}

func TestTicketStatusChanged_NoCardNoMove(t *testing.T) {
	f := newFixture()

	err := f.module.Handle(context.Background(), events.TicketStatusChanged{
		TicketID: uuid.New(), OldStatus: "OPEN", NewStatus: "CLOSED",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.board.moved != 0 {
		t.Fatal("must not move a card for an unmapped ticket")
	}
}

func TestAgentReplied_WhatsAppChannel(t *testing.T) {
	f := newFixture()
	wa := "31612345678"
	clientID := f.addClient(&wa)

	err := f.module.Handle(context.Background(), events.AgentReplied{
		TicketID: uuid.New(), ClientID: clientID, Channel: "WHATSAPP", Content: "We are on it.",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if f.whatsapp.calls != 1 || f.whatsapp.lastTo != wa || f.whatsapp.lastBody != "We are on it." {
		t.Fatalf("whatsapp = %+v", f.whatsapp)
	}
	if f.sender.ticketReplyCalls != 0 {
		t.Fatal("whatsapp reply must not also send email")
	}
}

func TestAgentReplied_EmailChannel(t *testing.T) {
	f := newFixture()
	clientID := f.addClient(nil)
	ticketID := uuid.New()
	f.tickets.tickets[ticketID] = &tickettransport.TicketResponse{ID: ticketID, Subject: "Printer on fire"}

	err := f.module.Handle(context.Background(), events.AgentReplied{
		TicketID: ticketID, ClientID: clientID, Channel: "EMAIL", Content: "Try water.",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if f.sender.ticketReplyCalls != 1 || f.sender.lastTo != "client@example.com" {
		t.Fatalf("sender = %+v", f.sender)
	}
	if f.whatsapp.calls != 0 {
		t.Fatal("email reply must not also send whatsapp")
	}
}

func TestAgentReplied_ChatChannelIsInThreadOnly(t *testing.T) {
	f := newFixture()
	clientID := f.addClient(nil)

	err := f.module.Handle(context.Background(), events.AgentReplied{
		TicketID: uuid.New(), ClientID: clientID, Channel: "CHAT", Content: "hi",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.whatsapp.calls != 0 || f.sender.ticketReplyCalls != 0 {
		t.Fatal("chat replies stay in the thread")
	}
}

func TestQuoteAccepted_SendsConfirmation(t *testing.T) {
	f := newFixture()
	clientID := f.addClient(nil)

	err := f.module.Handle(context.Background(), events.QuoteStatusChanged{
		QuoteID: uuid.New(), QuoteNumber: "QT-2026-00007", ClientID: clientID,
		OldStatus: "SENT", NewStatus: "ACCEPTED",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.sender.customCalls != 1 {
		t.Fatal("expected a confirmation email")
	}
}

func TestQuoteSent_NoDuplicateProposal(t *testing.T) {
	f := newFixture()
	clientID := f.addClient(nil)

	err := f.module.Handle(context.Background(), events.QuoteStatusChanged{
		QuoteID: uuid.New(), QuoteNumber: "QT-2026-00007", ClientID: clientID,
		OldStatus: "DRAFT", NewStatus: "SENT",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.sender.customCalls != 0 {
		t.Fatal("SENT is mailed by the quotes module, not here")
	}
}

func TestInvoicePaid_ReceiptAndBooksPush(t *testing.T) {
	f := newFixture()
	clientID := f.addClient(nil)
	invoiceID := uuid.New()
	paid := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	f.invoices.invoices[invoiceID] = &invoicetransport.InvoiceResponse{
		ID:       invoiceID,
		Number:   "INV-2026-00012",
		ClientID: clientID,
		Status:   "PAID",
		Total:    decimal.RequireFromString("1035.00"),
		PaidDate: &paid,
	}

	err := f.module.Handle(context.Background(), events.InvoiceStatusChanged{
		InvoiceID: invoiceID, InvoiceNumber: "INV-2026-00012", ClientID: clientID,
		OldStatus: "SENT", NewStatus: "PAID",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if f.sender.receiptCalls != 1 {
		t.Fatal("expected a receipt email")
	}
	if len(f.crm.invoices) != 1 || f.crm.invoices[0].Total != "1035.00" {
		t.Fatalf("crm invoices = %+v", f.crm.invoices)
	}
	if f.invoices.bills[invoiceID] != "books-42" {
		t.Fatal("books ref was not recorded")
	}
}

func TestInvoicePaid_AlreadyBilledSkipsPush(t *testing.T) {
	f := newFixture()
	clientID := f.addClient(nil)
	invoiceID := uuid.New()
	f.invoices.invoices[invoiceID] = &invoicetransport.InvoiceResponse{
		ID:       invoiceID,
		Number:   "INV-2026-00012",
		ClientID: clientID,
		Status:   "PAID",
		Total:    decimal.RequireFromString("50.00"),
		Bill:     &invoicetransport.BillResponse{ExternalRef: "books-1"},
	}

	err := f.module.Handle(context.Background(), events.InvoiceStatusChanged{
		InvoiceID: invoiceID, InvoiceNumber: "INV-2026-00012", ClientID: clientID,
		OldStatus: "OVERDUE", NewStatus: "PAID",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.crm.invoices) != 0 {
		t.Fatal("an already billed invoice must not be pushed again")
	}
}

func TestClientUpserted_SyncsContact(t *testing.T) {
	f := newFixture()
	clientID := f.addClient(nil)

	err := f.module.Handle(context.Background(), events.ClientUpserted{ClientID: clientID})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.crm.contacts) != 1 || f.crm.contacts[0].Email != "client@example.com" {
		t.Fatalf("crm contacts = %+v", f.crm.contacts)
	}
}

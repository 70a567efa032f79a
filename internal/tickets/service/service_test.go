package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"deskhub_backend/internal/tickets/repository"
	"deskhub_backend/internal/tickets/transport"
	"deskhub_backend/internal/events"
	"deskhub_backend/platform/apperr"
	"deskhub_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	tickets     map[uuid.UUID]*repository.Ticket
	messages    map[uuid.UUID][]repository.Message
	attachments map[uuid.UUID][]repository.Attachment
	lastMarkIDs []uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tickets:     make(map[uuid.UUID]*repository.Ticket),
		messages:    make(map[uuid.UUID][]repository.Message),
		attachments: make(map[uuid.UUID][]repository.Attachment),
	}
}

func (f *fakeRepo) CreateTicket(_ context.Context, ticket *repository.Ticket, initial *repository.Message) error {
	cp := *ticket
	f.tickets[ticket.ID] = &cp
	if initial != nil {
		f.messages[ticket.ID] = append(f.messages[ticket.ID], *initial)
	}
	return nil
}

func (f *fakeRepo) GetTicket(_ context.Context, id uuid.UUID) (*repository.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, apperr.NotFound("ticket not found")
	}
	cp := *ticket
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	var items []repository.Ticket
	for _, ticket := range f.tickets {
		if params.Unread != nil && ticket.Unread != *params.Unread {
			continue
		}
		items = append(items, *ticket)
	}
	return &repository.ListResult{
		Items: items, Total: len(items), Page: params.Page, PageSize: params.PageSize, TotalPages: 1,
	}, nil
}

func (f *fakeRepo) UpdateTicket(_ context.Context, ticket *repository.Ticket) error {
	if _, ok := f.tickets[ticket.ID]; !ok {
		return apperr.NotFound("ticket not found")
	}
	cp := *ticket
	f.tickets[ticket.ID] = &cp
	return nil
}

func (f *fakeRepo) NewestOpenByClientChannel(_ context.Context, clientID uuid.UUID, channel repository.Channel) (*repository.Ticket, error) {
	var newest *repository.Ticket
	for _, ticket := range f.tickets {
		if ticket.ClientID != clientID || ticket.Channel != channel {
			continue
		}
		if ticket.Status != repository.StatusOpen && ticket.Status != repository.StatusPending {
			continue
		}
		if newest == nil || ticket.UpdatedAt.After(newest.UpdatedAt) {
			newest = ticket
		}
	}
	if newest == nil {
		return nil, apperr.NotFound("ticket not found")
	}
	cp := *newest
	return &cp, nil
}

func (f *fakeRepo) AddMessage(_ context.Context, ticket *repository.Ticket, msg *repository.Message) error {
	if _, ok := f.tickets[ticket.ID]; !ok {
		return apperr.NotFound("ticket not found")
	}
	f.messages[ticket.ID] = append(f.messages[ticket.ID], *msg)
	cp := *ticket
	f.tickets[ticket.ID] = &cp
	return nil
}

func (f *fakeRepo) MessagesByTicketID(_ context.Context, ticketID uuid.UUID) ([]repository.Message, error) {
	msgs := append([]repository.Message(nil), f.messages[ticketID]...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	return msgs, nil
}

func (f *fakeRepo) MarkClientMessagesRead(_ context.Context, ticketID uuid.UUID, ids []uuid.UUID) (int, error) {
	f.lastMarkIDs = ids
	ticket, ok := f.tickets[ticketID]
	if !ok {
		return 0, apperr.NotFound("ticket not found")
	}

	selected := func(id uuid.UUID) bool {
		if len(ids) == 0 {
			return true
		}
		for _, candidate := range ids {
			if candidate == id {
				return true
			}
		}
		return false
	}

	msgs := f.messages[ticketID]
	remaining := 0
	for i := range msgs {
		if msgs[i].SenderType != repository.SenderClient {
			continue
		}
		if !msgs[i].Read && selected(msgs[i].ID) {
			msgs[i].Read = true
		}
		if !msgs[i].Read {
			remaining++
		}
	}
	ticket.Unread = remaining > 0
	return remaining, nil
}

func (f *fakeRepo) CreateAttachment(_ context.Context, attachment *repository.Attachment) error {
	f.attachments[attachment.TicketID] = append(f.attachments[attachment.TicketID], *attachment)
	return nil
}

func (f *fakeRepo) AttachmentsByTicketID(_ context.Context, ticketID uuid.UUID) ([]repository.Attachment, error) {
	return append([]repository.Attachment(nil), f.attachments[ticketID]...), nil
}

func (f *fakeRepo) GetAttachment(_ context.Context, ticketID, attachmentID uuid.UUID) (*repository.Attachment, error) {
	for _, attachment := range f.attachments[ticketID] {
		if attachment.ID == attachmentID {
			cp := attachment
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("attachment not found")
}

var _ repository.Repository = (*fakeRepo)(nil)

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	log := logger.New("test")
	repo := newFakeRepo()
	return New(repo, events.NewInMemoryBus(log), log, nil, ""), repo
}

func mustCreate(t *testing.T, svc *Service, clientID uuid.UUID, message *string) *transport.TicketResponse {
	t.Helper()
	resp, err := svc.Create(context.Background(), transport.CreateTicketRequest{
		Subject:  "Printer on fire",
		ClientID: clientID,
		Channel:  "FORM",
		Message:  message,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return resp
}

func TestCreate_SeededThreadStartsUnread(t *testing.T) {
	svc, _ := newTestService(t)

	msg := "It is actually on fire."
	ticket := mustCreate(t, svc, uuid.New(), &msg)

	if !ticket.Unread {
		t.Fatal("ticket with a client message should start unread")
	}
	if ticket.Status != "OPEN" || ticket.Priority != "MEDIUM" {
		t.Fatalf("ticket = %s/%s, want OPEN/MEDIUM defaults", ticket.Status, ticket.Priority)
	}
	if len(ticket.Messages) != 1 || ticket.Messages[0].SenderType != "CLIENT" {
		t.Fatalf("messages = %+v, want one client message", ticket.Messages)
	}
}

func TestCreate_EmptyThreadStartsRead(t *testing.T) {
	svc, _ := newTestService(t)

	ticket := mustCreate(t, svc, uuid.New(), nil)
	if ticket.Unread {
		t.Fatal("ticket without messages should not be unread")
	}
}

func TestAgentReply_DoesNotMarkUnread(t *testing.T) {
	svc, repo := newTestService(t)

	ticket := mustCreate(t, svc, uuid.New(), nil)
	agentID := uuid.New()

	if _, err := svc.PostAgentMessage(context.Background(), ticket.ID, agentID, transport.PostMessageRequest{
		Content: "Have you tried turning it off?",
	}); err != nil {
		t.Fatalf("post agent message: %v", err)
	}

	stored := repo.tickets[ticket.ID]
	if stored.Unread {
		t.Fatal("agent reply must not mark the ticket unread")
	}
}

func TestIngest_AppendsToNewestOpenTicket(t *testing.T) {
	svc, repo := newTestService(t)
	clientID := uuid.New()

	msg := "First message"
	first := mustCreate(t, svc, clientID, &msg)

	resp, created, err := svc.IngestClientMessage(context.Background(), clientID, repository.ChannelForm, "", "Still broken")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if created {
		t.Fatal("expected append to the open ticket, not a new one")
	}
	if resp.ID != first.ID {
		t.Fatal("appended to the wrong ticket")
	}
	if len(repo.messages[first.ID]) != 2 {
		t.Fatalf("messages = %d, want 2", len(repo.messages[first.ID]))
	}
	if !repo.tickets[first.ID].Unread {
		t.Fatal("client message must mark the ticket unread")
	}
}

func TestIngest_ClosedTicketOpensANewOne(t *testing.T) {
	svc, repo := newTestService(t)
	clientID := uuid.New()

	msg := "First message"
	first := mustCreate(t, svc, clientID, &msg)
	closed := "CLOSED"
	if _, err := svc.Update(context.Background(), first.ID, transport.UpdateTicketRequest{Status: &closed}); err != nil {
		t.Fatalf("close ticket: %v", err)
	}

	resp, created, err := svc.IngestClientMessage(context.Background(), clientID, repository.ChannelForm, "", "New problem")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !created {
		t.Fatal("expected a fresh ticket after the old one closed")
	}
	if resp.ID == first.ID {
		t.Fatal("must not append to a closed ticket")
	}
	if resp.Subject != "Website form submission" {
		t.Fatalf("subject = %q, want channel default", resp.Subject)
	}
	if len(repo.tickets) != 2 {
		t.Fatalf("tickets = %d, want 2", len(repo.tickets))
	}
}

func TestMarkRead_ScopedToClientMessages(t *testing.T) {
	svc, repo := newTestService(t)
	clientID := uuid.New()

	msg := "Help"
	ticket := mustCreate(t, svc, clientID, &msg)
	if _, _, err := svc.IngestClientMessage(context.Background(), clientID, repository.ChannelForm, "", "Anyone?"); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// Partial read: only the first message. One unread client message remains.
	firstMsgID := repo.messages[ticket.ID][0].ID
	result, err := svc.MarkRead(context.Background(), ticket.ID, transport.MarkReadRequest{
		MessageIDs: []uuid.UUID{firstMsgID},
	})
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if result.RemainingUnread != 1 || !result.TicketUnread {
		t.Fatalf("result = %+v, want one remaining and ticket still unread", result)
	}
	if !repo.tickets[ticket.ID].Unread {
		t.Fatal("ticket must stay unread while a client message is unread")
	}

	// Full read clears the flag.
	result, err = svc.MarkRead(context.Background(), ticket.ID, transport.MarkReadRequest{})
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if result.RemainingUnread != 0 || result.TicketUnread {
		t.Fatalf("result = %+v, want fully read", result)
	}
	if repo.tickets[ticket.ID].Unread {
		t.Fatal("ticket must flip to read when no unread client messages remain")
	}
}

func TestMarkRead_NilIDListCoversWholeThread(t *testing.T) {
	svc, repo := newTestService(t)
	clientID := uuid.New()

	msg := "Help"
	ticket := mustCreate(t, svc, clientID, &msg)

	// A body of {} decodes to a nil slice. The driver would encode nil as
	// SQL NULL, so the service must hand the repository a real empty array.
	result, err := svc.MarkRead(context.Background(), ticket.ID, transport.MarkReadRequest{MessageIDs: nil})
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if repo.lastMarkIDs == nil {
		t.Fatal("repository received a nil ID slice; it must be an empty array")
	}
	if result.RemainingUnread != 0 || result.TicketUnread {
		t.Fatalf("result = %+v, want whole thread read", result)
	}
	if repo.tickets[ticket.ID].Unread {
		t.Fatal("ticket must flip to read after a whole-thread mark")
	}
}

func TestThread_OrderedByTimestampAscending(t *testing.T) {
	svc, repo := newTestService(t)
	clientID := uuid.New()

	ticket := mustCreate(t, svc, clientID, nil)

	// Insert out of order straight into the fake store.
	base := time.Now()
	for _, offset := range []time.Duration{3 * time.Minute, time.Minute, 2 * time.Minute} {
		repo.messages[ticket.ID] = append(repo.messages[ticket.ID], repository.Message{
			ID:         uuid.New(),
			TicketID:   ticket.ID,
			SenderType: repository.SenderClient,
			Content:    "msg",
			Timestamp:  base.Add(offset),
		})
	}

	resp, err := svc.GetByID(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	for i := 1; i < len(resp.Messages); i++ {
		if resp.Messages[i].Timestamp.Before(resp.Messages[i-1].Timestamp) {
			t.Fatal("messages are not in ascending timestamp order")
		}
	}
}

func TestAttachments_RequireStorage(t *testing.T) {
	svc, _ := newTestService(t)

	ticket := mustCreate(t, svc, uuid.New(), nil)
	_, err := svc.PresignAttachment(context.Background(), ticket.ID, transport.PresignAttachmentRequest{
		FileName: "log.txt", ContentType: "text/plain", SizeBytes: 10,
	})
	if !apperr.IsKind(err, apperr.KindInternal) {
		t.Fatalf("expected storage-unavailable error, got %v", err)
	}
}

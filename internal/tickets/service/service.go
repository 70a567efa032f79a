package service

import (
	"context"
	"strings"
	"time"

	"deskhub_backend/internal/adapters/storage"
	"deskhub_backend/internal/events"
	"deskhub_backend/internal/tickets/repository"
	"deskhub_backend/internal/tickets/transport"
	"deskhub_backend/platform/apperr"
	"deskhub_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const storageUnavailableMsg = "attachment storage is not configured"

// Service provides business logic for tickets and their threads.
type Service struct {
	repo    repository.Repository
	bus     events.Bus
	log     *logger.Logger
	storage storage.StorageService // nil when MinIO is not configured
	bucket  string
}

// New creates a new tickets service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger, storageSvc storage.StorageService, bucket string) *Service {
	return &Service{repo: repo, bus: bus, log: log, storage: storageSvc, bucket: bucket}
}

// Create opens a ticket, optionally seeding the thread with the client's
// first message. A seeded thread starts unread.
func (s *Service) Create(ctx context.Context, req transport.CreateTicketRequest) (*transport.TicketResponse, error) {
	now := time.Now()
	ticket := repository.Ticket{
		ID:        uuid.New(),
		Subject:   strings.TrimSpace(req.Subject),
		ClientID:  req.ClientID,
		AgentID:   req.AgentID,
		Channel:   repository.Channel(req.Channel),
		Status:    repository.StatusOpen,
		Priority:  repository.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Priority != "" {
		ticket.Priority = repository.Priority(req.Priority)
	}

	var initial *repository.Message
	if req.Message != nil && strings.TrimSpace(*req.Message) != "" {
		ticket.Unread = true
		initial = &repository.Message{
			ID:         uuid.New(),
			TicketID:   ticket.ID,
			SenderType: repository.SenderClient,
			Content:    strings.TrimSpace(*req.Message),
			Timestamp:  now,
		}
	}

	if err := s.repo.CreateTicket(ctx, &ticket, initial); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.TicketCreated{
		BaseEvent: events.NewBaseEvent(),
		TicketID:  ticket.ID,
		ClientID:  ticket.ClientID,
		Channel:   string(ticket.Channel),
		Subject:   ticket.Subject,
		Priority:  string(ticket.Priority),
	})

	return s.buildResponse(ctx, &ticket, initial != nil)
}

// GetByID returns a ticket with its full thread and attachments.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.TicketResponse, error) {
	ticket, err := s.repo.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, ticket, true)
}

// List returns tickets matching the filters, without threads.
func (s *Service) List(ctx context.Context, req transport.ListTicketsRequest) (*transport.TicketListResponse, error) {
	params := repository.ListParams{
		Search:    req.Search,
		Unread:    req.Unread,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	if req.Status != "" {
		status := repository.Status(req.Status)
		params.Status = &status
	}
	if req.Channel != "" {
		channel := repository.Channel(req.Channel)
		params.Channel = &channel
	}
	if req.Priority != "" {
		priority := repository.Priority(req.Priority)
		params.Priority = &priority
	}
	if req.AgentID != "" {
		agentID, err := uuid.Parse(req.AgentID)
		if err != nil {
			return nil, apperr.Validation("invalid agent filter")
		}
		params.AgentID = &agentID
	}
	if req.ClientID != "" {
		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			return nil, apperr.Validation("invalid client filter")
		}
		params.ClientID = &clientID
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 20
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]transport.TicketResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, *buildTicket(&result.Items[i]))
	}

	return &transport.TicketListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Update edits a ticket's subject, assignment, status, or priority.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateTicketRequest) (*transport.TicketResponse, error) {
	ticket, err := s.repo.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	if req.Subject != nil {
		ticket.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.AgentID != nil {
		ticket.AgentID = req.AgentID
	}
	if req.Status != nil {
		ticket.Status = repository.Status(*req.Status)
	}
	if req.Priority != nil {
		ticket.Priority = repository.Priority(*req.Priority)
	}
	ticket.UpdatedAt = time.Now()

	if err := s.repo.UpdateTicket(ctx, ticket); err != nil {
		return nil, err
	}

	if ticket.Status != oldStatus {
		s.bus.Publish(ctx, events.TicketStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			TicketID:  ticket.ID,
			OldStatus: string(oldStatus),
			NewStatus: string(ticket.Status),
		})
	}

	return buildTicket(ticket), nil
}

// PostAgentMessage appends an agent reply to the thread. Agent replies never
// mark the ticket unread.
func (s *Service) PostAgentMessage(ctx context.Context, ticketID, agentID uuid.UUID, req transport.PostMessageRequest) (*transport.MessageResponse, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	msg := repository.Message{
		ID:         uuid.New(),
		TicketID:   ticket.ID,
		SenderType: repository.SenderAgent,
		SenderID:   &agentID,
		Content:    strings.TrimSpace(req.Content),
		Timestamp:  time.Now(),
		Read:       true,
	}
	ticket.UpdatedAt = msg.Timestamp

	if err := s.repo.AddMessage(ctx, ticket, &msg); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.AgentReplied{
		BaseEvent: events.NewBaseEvent(),
		TicketID:  ticket.ID,
		MessageID: msg.ID,
		AgentID:   agentID,
		ClientID:  ticket.ClientID,
		Channel:   string(ticket.Channel),
		Content:   msg.Content,
	})

	return buildMessage(&msg), nil
}

// IngestClientMessage threads an inbound client message: when the client has
// an open ticket on the channel the message is appended to it, otherwise a
// new ticket is opened. Returns the ticket and whether it was newly created.
func (s *Service) IngestClientMessage(ctx context.Context, clientID uuid.UUID, channel repository.Channel, subject, content string) (*transport.TicketResponse, bool, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, false, apperr.Validation("message content is required")
	}

	ticket, err := s.repo.NewestOpenByClientChannel(ctx, clientID, channel)
	if err != nil {
		if !apperr.IsKind(err, apperr.KindNotFound) {
			return nil, false, err
		}

		if strings.TrimSpace(subject) == "" {
			subject = defaultSubject(channel)
		}
		created, createErr := s.Create(ctx, transport.CreateTicketRequest{
			Subject:  subject,
			ClientID: clientID,
			Channel:  string(channel),
			Message:  &content,
		})
		if createErr != nil {
			return nil, false, createErr
		}
		return created, true, nil
	}

	now := time.Now()
	msg := repository.Message{
		ID:         uuid.New(),
		TicketID:   ticket.ID,
		SenderType: repository.SenderClient,
		Content:    content,
		Timestamp:  now,
	}
	ticket.Unread = true
	ticket.UpdatedAt = now

	if err := s.repo.AddMessage(ctx, ticket, &msg); err != nil {
		return nil, false, err
	}

	resp, err := s.buildResponse(ctx, ticket, true)
	return resp, false, err
}

// MarkRead bulk-marks CLIENT messages read; an empty ID list covers the
// whole thread.
func (s *Service) MarkRead(ctx context.Context, ticketID uuid.UUID, req transport.MarkReadRequest) (*transport.MarkReadResponse, error) {
	if _, err := s.repo.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}

	// Normalize a missing ID list so the driver sends an empty array,
	// never SQL NULL.
	ids := req.MessageIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}

	remaining, err := s.repo.MarkClientMessagesRead(ctx, ticketID, ids)
	if err != nil {
		return nil, err
	}

	return &transport.MarkReadResponse{
		RemainingUnread: remaining,
		TicketUnread:    remaining > 0,
	}, nil
}

// PresignAttachment issues a presigned upload URL scoped to the ticket.
func (s *Service) PresignAttachment(ctx context.Context, ticketID uuid.UUID, req transport.PresignAttachmentRequest) (*transport.PresignAttachmentResponse, error) {
	if s.storage == nil {
		return nil, apperr.Internal(storageUnavailableMsg)
	}
	if _, err := s.repo.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}

	if err := s.storage.ValidateContentType(req.ContentType); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if err := s.storage.ValidateFileSize(req.SizeBytes); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	folder := "tickets/" + ticketID.String()
	presigned, err := s.storage.GenerateUploadURL(ctx, s.bucket, folder, req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to generate upload URL", err)
	}

	return &transport.PresignAttachmentResponse{
		UploadURL: presigned.URL,
		FileKey:   presigned.FileKey,
		ExpiresAt: presigned.ExpiresAt,
	}, nil
}

// RecordAttachment stores the metadata row after a successful upload.
func (s *Service) RecordAttachment(ctx context.Context, ticketID uuid.UUID, uploadedBy *uuid.UUID, req transport.RecordAttachmentRequest) (*transport.AttachmentResponse, error) {
	if _, err := s.repo.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}

	attachment := repository.Attachment{
		ID:          uuid.New(),
		TicketID:    ticketID,
		FileKey:     req.FileKey,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		UploadedBy:  uploadedBy,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.CreateAttachment(ctx, &attachment); err != nil {
		return nil, err
	}
	return buildAttachment(&attachment), nil
}

// AttachmentDownloadURL issues a short-lived download link.
func (s *Service) AttachmentDownloadURL(ctx context.Context, ticketID, attachmentID uuid.UUID) (*transport.DownloadURLResponse, error) {
	if s.storage == nil {
		return nil, apperr.Internal(storageUnavailableMsg)
	}

	attachment, err := s.repo.GetAttachment(ctx, ticketID, attachmentID)
	if err != nil {
		return nil, err
	}

	presigned, err := s.storage.GenerateDownloadURL(ctx, s.bucket, attachment.FileKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to generate download URL", err)
	}

	return &transport.DownloadURLResponse{
		URL:       presigned.URL,
		ExpiresAt: presigned.ExpiresAt,
	}, nil
}

func defaultSubject(channel repository.Channel) string {
	switch channel {
	case repository.ChannelWhatsApp:
		return "WhatsApp conversation"
	case repository.ChannelEmail:
		return "Email conversation"
	case repository.ChannelChat:
		return "Chat conversation"
	case repository.ChannelForm:
		return "Website form submission"
	default:
		return "New conversation"
	}
}

func (s *Service) buildResponse(ctx context.Context, ticket *repository.Ticket, withThread bool) (*transport.TicketResponse, error) {
	resp := buildTicket(ticket)
	if !withThread {
		return resp, nil
	}

	// Thread and attachments are independent queries.
	var (
		messages    []repository.Message
		attachments []repository.Attachment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		messages, err = s.repo.MessagesByTicketID(gctx, ticket.ID)
		return err
	})
	g.Go(func() error {
		var err error
		attachments, err = s.repo.AttachmentsByTicketID(gctx, ticket.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp.Messages = make([]transport.MessageResponse, 0, len(messages))
	for i := range messages {
		resp.Messages = append(resp.Messages, *buildMessage(&messages[i]))
	}
	resp.Attachments = make([]transport.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		resp.Attachments = append(resp.Attachments, *buildAttachment(&attachments[i]))
	}

	return resp, nil
}

func buildTicket(ticket *repository.Ticket) *transport.TicketResponse {
	return &transport.TicketResponse{
		ID:        ticket.ID,
		Subject:   ticket.Subject,
		ClientID:  ticket.ClientID,
		AgentID:   ticket.AgentID,
		Channel:   string(ticket.Channel),
		Status:    string(ticket.Status),
		Priority:  string(ticket.Priority),
		Unread:    ticket.Unread,
		CreatedAt: ticket.CreatedAt,
		UpdatedAt: ticket.UpdatedAt,
	}
}

func buildMessage(msg *repository.Message) *transport.MessageResponse {
	return &transport.MessageResponse{
		ID:         msg.ID,
		TicketID:   msg.TicketID,
		SenderType: string(msg.SenderType),
		SenderID:   msg.SenderID,
		Content:    msg.Content,
		Timestamp:  msg.Timestamp,
		Read:       msg.Read,
	}
}

func buildAttachment(attachment *repository.Attachment) *transport.AttachmentResponse {
	return &transport.AttachmentResponse{
		ID:          attachment.ID,
		TicketID:    attachment.TicketID,
		FileName:    attachment.FileName,
		ContentType: attachment.ContentType,
		SizeBytes:   attachment.SizeBytes,
		UploadedBy:  attachment.UploadedBy,
		CreatedAt:   attachment.CreatedAt,
	}
}

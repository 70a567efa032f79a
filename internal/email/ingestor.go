package email

import (
	"context"
	"fmt"
	"strings"

	"deskhub_backend/platform/config"
	"deskhub_backend/platform/logger"
	"deskhub_backend/platform/sanitize"

	imap "github.com/BrianLeishman/go-imap"
	"github.com/google/uuid"
)

// ClientResolver matches an inbound email address to a client record,
// creating one when no match exists.
type ClientResolver interface {
	FindOrCreateByEmail(ctx context.Context, email, name string) (uuid.UUID, error)
}

// TicketIntake routes an inbound client message into the ticket pipeline.
type TicketIntake interface {
	IngestClientMessage(ctx context.Context, clientID uuid.UUID, channel, subject, content string) (ticketID uuid.UUID, created bool, err error)
}

// Ingestor polls an IMAP mailbox for unseen messages and turns them into
// EMAIL tickets. Invoked by the scheduler worker.
type Ingestor struct {
	cfg      config.IMAPConfig
	resolver ClientResolver
	intake   TicketIntake
	log      *logger.Logger
}

// NewIngestor creates a new IMAP ingestor.
func NewIngestor(cfg config.IMAPConfig, resolver ClientResolver, intake TicketIntake, log *logger.Logger) *Ingestor {
	return &Ingestor{cfg: cfg, resolver: resolver, intake: intake, log: log}
}

// Poll fetches unseen messages, files each one as a ticket message, and
// marks it seen. Per-message failures are logged and skipped; a failed
// message stays unseen and is retried on the next poll.
func (in *Ingestor) Poll(ctx context.Context) (int, error) {
	if !in.cfg.IsIMAPEnabled() {
		return 0, nil
	}

	conn, err := imap.New(in.cfg.GetIMAPUsername(), in.cfg.GetIMAPPassword(), in.cfg.GetIMAPHost(), in.cfg.GetIMAPPort())
	if err != nil {
		return 0, fmt.Errorf("imap connect: %w", err)
	}
	defer conn.Close()

	if err := conn.SelectFolder(in.cfg.GetIMAPFolder()); err != nil {
		return 0, fmt.Errorf("imap select %s: %w", in.cfg.GetIMAPFolder(), err)
	}

	uids, err := conn.GetUIDs("UNSEEN")
	if err != nil {
		return 0, fmt.Errorf("imap search unseen: %w", err)
	}
	if len(uids) == 0 {
		return 0, nil
	}

	messages, err := conn.GetEmails(uids...)
	if err != nil {
		return 0, fmt.Errorf("imap fetch: %w", err)
	}

	processed := 0
	for uid, msg := range messages {
		if msg == nil {
			continue
		}
		if err := in.process(ctx, msg); err != nil {
			in.log.Error("email ingest failed", "uid", uid, "subject", msg.Subject, "error", err)
			continue
		}
		if err := conn.MarkSeen(uid); err != nil {
			in.log.Error("email mark seen failed", "uid", uid, "error", err)
			continue
		}
		processed++
	}

	return processed, nil
}

func (in *Ingestor) process(ctx context.Context, msg *imap.Email) error {
	fromAddr, fromName := senderOf(msg)
	if fromAddr == "" {
		return fmt.Errorf("message has no sender address")
	}

	clientID, err := in.resolver.FindOrCreateByEmail(ctx, fromAddr, fromName)
	if err != nil {
		return err
	}

	content := strings.TrimSpace(msg.Text)
	if content == "" {
		// HTML-only messages: store the stripped text, not the markup.
		content = sanitize.StripHTML(msg.HTML)
	}
	if content == "" {
		content = "(empty message)"
	}

	ticketID, created, err := in.intake.IngestClientMessage(ctx, clientID, "EMAIL", strings.TrimSpace(msg.Subject), content)
	if err != nil {
		return err
	}

	in.log.Info("email ingested",
		"from", fromAddr,
		"ticketId", ticketID,
		"ticketCreated", created,
	)
	return nil
}

func senderOf(msg *imap.Email) (addr, name string) {
	for a, n := range msg.From {
		return strings.ToLower(strings.TrimSpace(a)), strings.TrimSpace(n)
	}
	return "", ""
}

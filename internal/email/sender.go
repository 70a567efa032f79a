// Package email provides outbound transactional mail and inbound IMAP
// ingestion for the EMAIL ticket channel.
package email

import (
	"context"

	"deskhub_backend/platform/config"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte
	FileName string // e.g. "quote-QT-2026-00042.pdf"
	MIMEType string // e.g. "application/pdf"
}

type Sender interface {
	SendQuoteProposalEmail(ctx context.Context, toEmail, clientName, quoteNumber, proposalURL string, attachments ...Attachment) error
	SendInvoiceReceiptEmail(ctx context.Context, toEmail, clientName, invoiceNumber, totalFormatted string) error
	SendTicketReplyEmail(ctx context.Context, toEmail, clientName, subject, replyContent string) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender is used when email delivery is not configured. Sends succeed
// silently so business flows never depend on mail being set up.
type NoopSender struct{}

func (NoopSender) SendQuoteProposalEmail(ctx context.Context, toEmail, clientName, quoteNumber, proposalURL string, attachments ...Attachment) error {
	return nil
}

func (NoopSender) SendInvoiceReceiptEmail(ctx context.Context, toEmail, clientName, invoiceNumber, totalFormatted string) error {
	return nil
}

func (NoopSender) SendTicketReplyEmail(ctx context.Context, toEmail, clientName, subject, replyContent string) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

// NewSender returns an SMTP sender when email is enabled, NoopSender otherwise.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}

package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"deskhub_backend/internal/email"
	quotesvc "deskhub_backend/internal/quotes/service"
	"deskhub_backend/platform/config"

	"github.com/shopspring/decimal"
)

// QuoteProposalMailer adapts the email sender to the quotes module's
// ProposalSender port. It builds the customer portal link the client uses
// to view and accept the quote.
type QuoteProposalMailer struct {
	sender email.Sender
	cfg    config.PortalConfig
}

// NewQuoteProposalMailer creates a proposal mailer backed by the email sender.
func NewQuoteProposalMailer(sender email.Sender, cfg config.PortalConfig) *QuoteProposalMailer {
	return &QuoteProposalMailer{sender: sender, cfg: cfg}
}

func (a *QuoteProposalMailer) SendQuoteProposal(ctx context.Context, to, clientName, quoteNumber string, total decimal.Decimal, validUntil *time.Time) error {
	proposalURL := fmt.Sprintf("%s/portal/quotes/%s?email=%s",
		strings.TrimRight(a.cfg.GetAppBaseURL(), "/"),
		url.PathEscape(quoteNumber),
		url.QueryEscape(to),
	)
	return a.sender.SendQuoteProposalEmail(ctx, to, clientName, quoteNumber, proposalURL)
}

var _ quotesvc.ProposalSender = (*QuoteProposalMailer)(nil)

package email

import (
	"strings"
	"testing"
)

func TestRenderQuoteProposalTemplate(t *testing.T) {
	html, err := renderEmailTemplate("quote_proposal.html", quoteProposalEmailData{
		baseEmailData: baseEmailData{
			Title:    "Your quote",
			Heading:  "Your quote is ready",
			CTALabel: "View quote",
			CTAURL:   "https://example.com/portal/quotes/QT-2026-00042?email=jan%40example.com",
		},
		ClientName:  "Jan",
		QuoteNumber: "QT-2026-00042",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Jan", "QT-2026-00042", "https://example.com/portal/quotes/QT-2026-00042"} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered HTML missing %q:\n%s", want, html)
		}
	}
}

func TestRenderTicketReplyEscapesContent(t *testing.T) {
	html, err := renderEmailTemplate("ticket_reply.html", ticketReplyEmailData{
		baseEmailData: baseEmailData{Title: "Re: Printer", Heading: "Re: Printer"},
		ClientName:    "Jan",
		ReplyContent:  "<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("reply content was not HTML-escaped")
	}
}

func TestRenderUnknownTemplateFails(t *testing.T) {
	if _, err := renderEmailTemplate("nope.html", nil); err == nil {
		t.Fatal("expected error for missing template")
	}
}

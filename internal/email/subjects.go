package email

const (
	subjectQuoteProposalFmt  = "Quote %s from DeskHub"
	subjectInvoiceReceiptFmt = "Payment received for invoice %s"
	subjectTicketReplyFmt    = "Re: %s"
)

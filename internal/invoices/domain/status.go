// Package domain provides core business rules for the invoices bounded context.
package domain

// Status is the lifecycle state of an invoice. Unlike quotes, invoices may
// move between any two states; the interesting rules live on the paidDate
// and the delete guards.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusPaid    Status = "PAID"
	StatusOverdue Status = "OVERDUE"
)

// AllStatuses lists every invoice status.
var AllStatuses = []Status{StatusPending, StatusSent, StatusPaid, StatusOverdue}

// IsValid reports whether s is a known invoice status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// OverdueSweepable reports whether the overdue sweep may flip the invoice.
func OverdueSweepable(s Status) bool {
	return s == StatusPending || s == StatusSent
}

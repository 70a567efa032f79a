// Package domain provides core business rules for the quotes bounded context.
package domain

import "fmt"

// Status is the lifecycle state of a quote.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusSent     Status = "SENT"
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

// AllStatuses lists every quote status, used for validation and tests.
var AllStatuses = []Status{
	StatusDraft, StatusSent, StatusPending,
	StatusAccepted, StatusRejected, StatusExpired,
}

// allowedTransitions is the adjacency table for the quote lifecycle.
// ACCEPTED is terminal; REJECTED and EXPIRED can be reworked back to DRAFT.
var allowedTransitions = map[Status][]Status{
	StatusDraft:    {StatusSent, StatusExpired},
	StatusSent:     {StatusPending, StatusAccepted, StatusRejected, StatusExpired},
	StatusPending:  {StatusAccepted, StatusRejected, StatusExpired},
	StatusAccepted: {},
	StatusRejected: {StatusDraft},
	StatusExpired:  {StatusDraft},
}

// IsValid reports whether s is a known quote status.
func (s Status) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether moving from one status to another is allowed.
// A same-state transition is always permitted as a no-op update.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a typed reason when the transition is not allowed.
func ValidateTransition(from, to Status) error {
	if !to.IsValid() {
		return fmt.Errorf("unknown quote status %q", to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid status transition %s -> %s", from, to)
	}
	return nil
}

// ItemsLocked reports whether line items may no longer be mutated.
// Once a quote is accepted or expired its contents are frozen.
func ItemsLocked(s Status) bool {
	return s == StatusAccepted || s == StatusExpired
}

// Expirable reports whether the expiry sweep may move the quote to EXPIRED.
func Expirable(s Status) bool {
	return s == StatusDraft || s == StatusSent || s == StatusPending
}

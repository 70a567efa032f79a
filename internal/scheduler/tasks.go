// Package scheduler provides the asynq task definitions, enqueue client,
// periodic registration and worker for background jobs.
package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskInvoiceOverdueSweep = "invoices.overdue.sweep"

const TaskQuoteExpirySweep = "quotes.expiry.sweep"

const TaskEmailIMAPPoll = "email.imap.poll"

// SweepPayload carries the reference time for a sweep so a delayed task
// still evaluates against the moment it was scheduled for.
type SweepPayload struct {
	Now time.Time `json:"now"`
}

func NewInvoiceOverdueSweepTask(payload SweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceOverdueSweep, data), nil
}

func NewQuoteExpirySweepTask(payload SweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuoteExpirySweep, data), nil
}

func NewEmailIMAPPollTask() *asynq.Task {
	return asynq.NewTask(TaskEmailIMAPPoll, nil)
}

func ParseSweepPayload(task *asynq.Task) (SweepPayload, error) {
	var payload SweepPayload
	if len(task.Payload()) == 0 {
		return SweepPayload{Now: time.Now()}, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SweepPayload{}, err
	}
	if payload.Now.IsZero() {
		payload.Now = time.Now()
	}
	return payload, nil
}

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "deskhub-test" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestClient_EnqueuesTasks(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := testSchedulerConfig{redisURL: "redis://" + srv.Addr()}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	if err := client.EnqueueInvoiceOverdueSweep(ctx, now); err != nil {
		t.Fatalf("enqueue overdue sweep: %v", err)
	}
	if err := client.EnqueueQuoteExpirySweep(ctx, now); err != nil {
		t.Fatalf("enqueue expiry sweep: %v", err)
	}
	if err := client.EnqueueEmailPoll(ctx); err != nil {
		t.Fatalf("enqueue email poll: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	defer func() { _ = inspector.Close() }()

	pending, err := inspector.ListPendingTasks("deskhub-test")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("pending = %d, want 3", len(pending))
	}

	types := make(map[string]bool, len(pending))
	for _, task := range pending {
		types[task.Type] = true
	}
	for _, want := range []string{TaskInvoiceOverdueSweep, TaskQuoteExpirySweep, TaskEmailIMAPPoll} {
		if !types[want] {
			t.Fatalf("missing task type %s in %v", want, types)
		}
	}
}

func TestParseSweepPayload(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	task, err := NewInvoiceOverdueSweepTask(SweepPayload{Now: now})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}

	payload, err := ParseSweepPayload(task)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !payload.Now.Equal(now) {
		t.Fatalf("now = %v, want %v", payload.Now, now)
	}
}

func TestParseSweepPayload_EmptyDefaultsToNow(t *testing.T) {
	payload, err := ParseSweepPayload(NewEmailIMAPPollTask())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if payload.Now.IsZero() {
		t.Fatal("empty payload must default to the current time")
	}
}

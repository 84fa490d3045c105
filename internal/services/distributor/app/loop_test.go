package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/drillwire/drillwire/internal/drills"
	"github.com/drillwire/drillwire/internal/services/dialog/domain"
	"github.com/drillwire/drillwire/internal/services/dialog/event"
	"github.com/drillwire/drillwire/internal/services/dialog/storage"
	"github.com/drillwire/drillwire/internal/services/distributor/render"
)

const testPhone = "+15551230000"

type fakeOutbox struct {
	entries   []storage.OutboxEntry
	events    map[string]event.Event
	completed []int64
	retried   []retryCall
}

type retryCall struct {
	id          int64
	availableAt time.Time
	lastError   string
}

func (f *fakeOutbox) LeaseOutbox(_ context.Context, _ string, limit int, _ time.Duration, _ time.Time) ([]storage.OutboxEntry, error) {
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	leased := f.entries[:limit]
	f.entries = f.entries[limit:]
	return leased, nil
}

func (f *fakeOutbox) CompleteOutbox(_ context.Context, id int64) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeOutbox) RetryOutbox(_ context.Context, id int64, availableAt time.Time, lastError string) error {
	f.retried = append(f.retried, retryCall{id: id, availableAt: availableAt, lastError: lastError})
	return nil
}

func (f *fakeOutbox) GetEvent(_ context.Context, _ string, eventID string) (event.Event, error) {
	ev, ok := f.events[eventID]
	if !ok {
		return event.Event{}, errors.New("event not found")
	}
	return ev, nil
}

type fakeGateway struct {
	sent []render.OutboundSMS
	fail bool
}

func (g *fakeGateway) Send(_ context.Context, sms render.OutboundSMS) error {
	if g.fail {
		return errors.New("gateway down")
	}
	g.sent = append(g.sent, sms)
	return nil
}

func outboxFixture(t *testing.T) *fakeOutbox {
	t.Helper()
	started, err := event.New("ev-1", testPhone, time.Now(), event.TypeDrillStarted, domain.UserProfile{Name: "Ana"},
		event.DrillStartedPayload{
			DrillInstanceID: "i1",
			FirstPrompt: drills.Prompt{
				Slug: "intro",
				Messages: []drills.PromptMessage{
					{Text: "Welcome, {{name}}!"},
					{Text: "First question?"},
				},
			},
		})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	return &fakeOutbox{
		entries: []storage.OutboxEntry{
			{ID: 1, PhoneNumber: testPhone, EventID: "ev-1", EventType: event.TypeDrillStarted, Attempts: 1},
		},
		events: map[string]event.Event{"ev-1": started},
	}
}

func TestWorkerDeliversAndCompletes(t *testing.T) {
	outbox := outboxFixture(t)
	gateway := &fakeGateway{}
	worker := NewWorker(outbox, gateway, WorkerConfig{MessagePause: 10 * time.Millisecond})

	var pauses []time.Duration
	worker.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	completed, err := worker.ProcessOnce(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if completed != 1 {
		t.Errorf("completed = %d, want 1", completed)
	}
	if len(gateway.sent) != 2 || gateway.sent[0].Body != "Welcome, Ana!" {
		t.Fatalf("sent = %v", gateway.sent)
	}
	// Multi-part copy pauses between messages, not before the first.
	if len(pauses) != 1 || pauses[0] != 10*time.Millisecond {
		t.Errorf("pauses = %v", pauses)
	}
	if len(outbox.completed) != 1 || outbox.completed[0] != 1 {
		t.Errorf("completed entries = %v", outbox.completed)
	}
}

func TestWorkerRetriesFailedDeliveries(t *testing.T) {
	outbox := outboxFixture(t)
	gateway := &fakeGateway{fail: true}
	worker := NewWorker(outbox, gateway, WorkerConfig{RetryBackoff: time.Minute})

	now := time.Now()
	completed, err := worker.ProcessOnce(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if completed != 0 || len(outbox.completed) != 0 {
		t.Error("failed delivery must not complete the entry")
	}
	if len(outbox.retried) != 1 {
		t.Fatalf("retried = %v", outbox.retried)
	}
	if got := outbox.retried[0].availableAt; !got.Equal(now.Add(time.Minute)) {
		t.Errorf("retry at %v, want %v", got, now.Add(time.Minute))
	}
	if outbox.retried[0].lastError == "" {
		t.Error("retry must record the failure")
	}
}

func TestWorkerDropsEntryAfterMaxAttempts(t *testing.T) {
	outbox := outboxFixture(t)
	outbox.entries[0].Attempts = 2
	gateway := &fakeGateway{fail: true}
	worker := NewWorker(outbox, gateway, WorkerConfig{MaxAttempts: 3})

	completed, err := worker.ProcessOnce(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if completed != 1 {
		t.Errorf("completed = %d, want 1", completed)
	}
	if len(outbox.retried) != 0 {
		t.Errorf("exhausted entry must not be retried, got %v", outbox.retried)
	}
	// The entry is removed so it stops occupying batch slots; the journal
	// event itself is untouched.
	if len(outbox.completed) != 1 || outbox.completed[0] != 1 {
		t.Errorf("completed entries = %v", outbox.completed)
	}
}

func TestWorkerRetriesBelowMaxAttempts(t *testing.T) {
	outbox := outboxFixture(t)
	outbox.entries[0].Attempts = 1
	gateway := &fakeGateway{fail: true}
	worker := NewWorker(outbox, gateway, WorkerConfig{MaxAttempts: 3, RetryBackoff: time.Minute})

	if _, err := worker.ProcessOnce(context.Background(), time.Now()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if len(outbox.completed) != 0 || len(outbox.retried) != 1 {
		t.Errorf("completed=%v retried=%v", outbox.completed, outbox.retried)
	}
}

func TestWorkerSilentEventCompletesWithoutSend(t *testing.T) {
	validated, err := event.New("ev-2", testPhone, time.Now(), event.TypeUserValidated, domain.UserProfile{},
		event.UserValidatedPayload{})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	outbox := &fakeOutbox{
		entries: []storage.OutboxEntry{{ID: 2, PhoneNumber: testPhone, EventID: "ev-2", EventType: event.TypeUserValidated}},
		events:  map[string]event.Event{"ev-2": validated},
	}
	gateway := &fakeGateway{}
	worker := NewWorker(outbox, gateway, WorkerConfig{})

	completed, err := worker.ProcessOnce(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if completed != 1 || len(gateway.sent) != 0 {
		t.Errorf("completed=%d sent=%v", completed, gateway.sent)
	}
}

func TestWorkerBackoff(t *testing.T) {
	worker := NewWorker(nil, nil, WorkerConfig{RetryBackoff: 5 * time.Second, RetryMaxWait: time.Minute})

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{10, time.Minute},
	}
	for _, tc := range tests {
		if got := worker.backoff(tc.attempts); got != tc.want {
			t.Errorf("backoff(%d) = %v, want %v", tc.attempts, got, tc.want)
		}
	}
}

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/drillwire/drillwire/internal/services/dialog/storage"
	"github.com/drillwire/drillwire/internal/services/distributor/render"
	"github.com/drillwire/drillwire/internal/services/distributor/sender"
)

// WorkerConfig tunes the outbox consumer loop.
type WorkerConfig struct {
	WorkerID     string
	BatchSize    int
	PollInterval time.Duration
	LeaseTTL     time.Duration
	// MessagePause separates consecutive messages to the same phone so
	// multi-part prompt copy arrives in order.
	MessagePause time.Duration
	RetryBackoff time.Duration
	RetryMaxWait time.Duration
	// MaxAttempts caps delivery attempts per entry. An entry that still
	// fails on its final attempt is dropped from the outbox; the journal
	// event it points at is unaffected.
	MaxAttempts int
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.WorkerID == "" {
		c.WorkerID = "distributor"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 30 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 5 * time.Second
	}
	if c.RetryMaxWait <= 0 {
		c.RetryMaxWait = 5 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	return c
}

// Worker drains the dialog outbox, rendering journal events into SMS
// messages and handing them to the gateway.
type Worker struct {
	store   storage.OutboxStore
	gateway sender.Gateway
	cfg     WorkerConfig
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewWorker builds an outbox consumer.
func NewWorker(store storage.OutboxStore, gateway sender.Gateway, cfg WorkerConfig) *Worker {
	return &Worker{
		store:   store,
		gateway: gateway,
		cfg:     cfg.withDefaults(),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run polls the outbox until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if processed, err := w.ProcessOnce(ctx, time.Now().UTC()); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("distributor: process outbox: %v", err)
		} else if processed > 0 {
			// Drain eagerly while there is work.
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessOnce leases one batch of due entries and delivers them. It
// returns the number of entries completed.
func (w *Worker) ProcessOnce(ctx context.Context, now time.Time) (int, error) {
	entries, err := w.store.LeaseOutbox(ctx, w.cfg.WorkerID, w.cfg.BatchSize, w.cfg.LeaseTTL, now)
	if err != nil {
		return 0, fmt.Errorf("lease outbox: %w", err)
	}

	var completed int
	for _, entry := range entries {
		if err := w.deliver(ctx, entry); err != nil {
			if ctx.Err() != nil {
				return completed, ctx.Err()
			}
			// Leasing already counted this attempt; Attempts is the
			// pre-lease value.
			attempt := entry.Attempts + 1
			log.Printf("distributor: deliver outbox %d (%s for %s) attempt %d: %v",
				entry.ID, entry.EventType, entry.PhoneNumber, attempt, err)
			if attempt >= w.cfg.MaxAttempts {
				log.Printf("distributor: dropping outbox %d after %d attempts", entry.ID, attempt)
				if dropErr := w.store.CompleteOutbox(ctx, entry.ID); dropErr != nil {
					return completed, fmt.Errorf("drop outbox %d: %w", entry.ID, dropErr)
				}
				completed++
				continue
			}
			if retryErr := w.store.RetryOutbox(ctx, entry.ID, now.Add(w.backoff(entry.Attempts)), err.Error()); retryErr != nil {
				return completed, fmt.Errorf("retry outbox %d: %w", entry.ID, retryErr)
			}
			continue
		}
		if err := w.store.CompleteOutbox(ctx, entry.ID); err != nil {
			return completed, fmt.Errorf("complete outbox %d: %w", entry.ID, err)
		}
		completed++
	}
	return completed, nil
}

func (w *Worker) deliver(ctx context.Context, entry storage.OutboxEntry) error {
	ev, err := w.store.GetEvent(ctx, entry.PhoneNumber, entry.EventID)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}

	messages, err := render.Render(ev)
	if err != nil {
		return fmt.Errorf("render event: %w", err)
	}
	for i, sms := range messages {
		if i > 0 {
			if err := w.sleep(ctx, w.cfg.MessagePause); err != nil {
				return err
			}
		}
		if err := w.gateway.Send(ctx, sms); err != nil {
			return fmt.Errorf("send sms %d/%d: %w", i+1, len(messages), err)
		}
	}
	return nil
}

// backoff grows exponentially with the attempt count, capped at the
// configured maximum.
func (w *Worker) backoff(attempts int) time.Duration {
	wait := w.cfg.RetryBackoff
	for i := 1; i < attempts; i++ {
		wait *= 2
		if wait >= w.cfg.RetryMaxWait {
			return w.cfg.RetryMaxWait
		}
	}
	if wait > w.cfg.RetryMaxWait {
		return w.cfg.RetryMaxWait
	}
	return wait
}

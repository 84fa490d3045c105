// Package storage defines the persistence contracts for the dialog
// journal, the aggregate state, and the outbound delivery outbox.
package storage

import (
	"context"
	"time"

	"github.com/drillwire/drillwire/internal/services/dialog/domain"
	"github.com/drillwire/drillwire/internal/services/dialog/event"
)

// ListEventsOptions controls journal reads.
type ListEventsOptions struct {
	// Limit caps the number of events returned. Zero means no cap.
	Limit int
}

// Repository persists dialog state and its event journal.
type Repository interface {
	// FetchDialogState returns the aggregate for a phone number. Absence
	// is not an error: callers get the default empty state.
	FetchDialogState(ctx context.Context, phoneNumber string) (domain.DialogState, error)

	// PersistBatch durably appends the batch's events, enqueues them for
	// outbound delivery, and replaces the state row, all-or-nothing.
	// A batch with no events still advances the stored sequence number.
	PersistBatch(ctx context.Context, batch event.Batch, state domain.DialogState) error

	// ListEvents returns a phone number's journal in creation order.
	ListEvents(ctx context.Context, phoneNumber string, opts ListEventsOptions) ([]event.Event, error)
}

// OutboxEntry is one pending outbound delivery, pointing at the journal
// event it was derived from.
type OutboxEntry struct {
	ID          int64
	PhoneNumber string
	EventID     string
	EventType   event.Type
	Attempts    int
	AvailableAt time.Time
	LastError   string
	CreatedAt   time.Time
}

// OutboxStore hands pending deliveries to distributor workers under
// short-lived leases so crashed workers cannot strand entries.
type OutboxStore interface {
	// LeaseOutbox claims up to limit due entries for the given worker.
	LeaseOutbox(ctx context.Context, workerID string, limit int, leaseFor time.Duration, now time.Time) ([]OutboxEntry, error)

	// CompleteOutbox removes a delivered entry.
	CompleteOutbox(ctx context.Context, id int64) error

	// RetryOutbox releases an entry back to the queue with a new
	// availability time and a note about the failure.
	RetryOutbox(ctx context.Context, id int64, availableAt time.Time, lastError string) error

	// GetEvent loads the journal event an outbox entry refers to.
	GetEvent(ctx context.Context, phoneNumber, eventID string) (event.Event, error)
}

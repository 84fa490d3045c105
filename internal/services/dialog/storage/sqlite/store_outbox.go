package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/drillwire/drillwire/internal/platform/errors"
	"github.com/drillwire/drillwire/internal/services/dialog/event"
	"github.com/drillwire/drillwire/internal/services/dialog/storage"
)

// LeaseOutbox claims up to limit due entries for a worker. An entry is
// due when it is available and any previous lease has expired.
func (s *Store) LeaseOutbox(ctx context.Context, workerID string, limit int, leaseFor time.Duration, now time.Time) ([]storage.OutboxEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, fmt.Errorf("worker id is required")
	}
	if limit <= 0 {
		limit = 1
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	nowMillis := toMillis(now)
	rows, err := tx.QueryContext(ctx,
		`SELECT id, phone_number, event_id, event_type, attempts, available_at, last_error, created_at
		 FROM dialog_outbox
		 WHERE available_at <= ? AND lease_expires_at <= ?
		 ORDER BY id
		 LIMIT ?`, nowMillis, nowMillis, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}

	var entries []storage.OutboxEntry
	for rows.Next() {
		var (
			entry       storage.OutboxEntry
			eventType   string
			availableAt int64
			createdAt   int64
		)
		if err := rows.Scan(&entry.ID, &entry.PhoneNumber, &entry.EventID, &eventType,
			&entry.Attempts, &availableAt, &entry.LastError, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entry.EventType = event.Type(eventType)
		entry.AvailableAt = fromMillis(availableAt)
		entry.CreatedAt = fromMillis(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	rows.Close()

	expires := toMillis(now.Add(leaseFor))
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			`UPDATE dialog_outbox
			 SET leased_by = ?, lease_expires_at = ?, attempts = attempts + 1
			 WHERE id = ?`, workerID, expires, entry.ID); err != nil {
			return nil, fmt.Errorf("lease outbox entry %d: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return entries, nil
}

// CompleteOutbox removes a delivered entry.
func (s *Store) CompleteOutbox(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM dialog_outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete outbox entry %d: %w", id, err)
	}
	return nil
}

// RetryOutbox releases an entry back to the queue after a failed
// delivery attempt.
func (s *Store) RetryOutbox(ctx context.Context, id int64, availableAt time.Time, lastError string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`UPDATE dialog_outbox
		 SET leased_by = '', lease_expires_at = 0, available_at = ?, last_error = ?
		 WHERE id = ?`, toMillis(availableAt), lastError, id); err != nil {
		return fmt.Errorf("retry outbox entry %d: %w", id, err)
	}
	return nil
}

// GetEvent loads the journal event an outbox entry refers to.
func (s *Store) GetEvent(ctx context.Context, phoneNumber, eventID string) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT event_type, created_at, profile_json, payload_json
		 FROM dialog_events WHERE phone_number = ? AND event_id = ?`, phoneNumber, eventID)

	var (
		eventType   string
		createdAt   int64
		profileJSON string
		payloadJSON sql.NullString
	)
	err := row.Scan(&eventType, &createdAt, &profileJSON, &payloadJSON)
	if err == sql.ErrNoRows {
		return event.Event{}, apperrors.WithMetadata(apperrors.CodeNotFound, "event not found",
			map[string]string{"phone_number": phoneNumber, "event_id": eventID})
	}
	if err != nil {
		return event.Event{}, fmt.Errorf("scan event: %w", err)
	}

	ev := event.Event{
		EventID:     eventID,
		PhoneNumber: phoneNumber,
		Type:        event.Type(eventType),
		CreatedAt:   fromMillis(createdAt),
	}
	if err := json.Unmarshal([]byte(profileJSON), &ev.Profile); err != nil {
		return event.Event{}, fmt.Errorf("decode event profile: %w", err)
	}
	if payloadJSON.Valid {
		ev.PayloadJSON = []byte(payloadJSON.String)
	}
	return ev, nil
}

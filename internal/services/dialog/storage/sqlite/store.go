// Package sqlite provides a SQLite-backed dialog storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/drillwire/drillwire/internal/drills"
	"github.com/drillwire/drillwire/internal/platform/storage/sqlitemigrate"
	"github.com/drillwire/drillwire/internal/services/dialog/domain"
	"github.com/drillwire/drillwire/internal/services/dialog/event"
	"github.com/drillwire/drillwire/internal/services/dialog/storage"
	"github.com/drillwire/drillwire/internal/services/dialog/storage/sqlite/migrations"
)

// Store persists dialog state, the event journal, and the outbox in
// SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite dialog store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// FetchDialogState loads the aggregate for a phone number, returning
// the default empty state when the phone number has never been seen.
func (s *Store) FetchDialogState(ctx context.Context, phoneNumber string) (domain.DialogState, error) {
	if err := ctx.Err(); err != nil {
		return domain.DialogState{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.DialogState{}, fmt.Errorf("storage is not configured")
	}
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return domain.DialogState{}, fmt.Errorf("phone number is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT seq, profile_json, drill_instance_id, current_drill_json, current_prompt_json, completed_drills_json
		 FROM dialog_states WHERE phone_number = ?`, phoneNumber)

	var (
		seq             string
		profileJSON     string
		drillInstanceID string
		drillJSON       sql.NullString
		promptJSON      sql.NullString
		completedJSON   sql.NullString
	)
	err := row.Scan(&seq, &profileJSON, &drillInstanceID, &drillJSON, &promptJSON, &completedJSON)
	if err == sql.ErrNoRows {
		return domain.NewDialogState(phoneNumber), nil
	}
	if err != nil {
		return domain.DialogState{}, fmt.Errorf("scan dialog state: %w", err)
	}

	state := domain.DialogState{
		PhoneNumber:     phoneNumber,
		Seq:             seq,
		DrillInstanceID: drillInstanceID,
	}
	if err := json.Unmarshal([]byte(profileJSON), &state.Profile); err != nil {
		return domain.DialogState{}, fmt.Errorf("decode profile: %w", err)
	}
	if drillJSON.Valid && drillJSON.String != "" {
		var drill drills.Drill
		if err := json.Unmarshal([]byte(drillJSON.String), &drill); err != nil {
			return domain.DialogState{}, fmt.Errorf("decode current drill: %w", err)
		}
		state.CurrentDrill = &drill
	}
	if promptJSON.Valid && promptJSON.String != "" {
		var prompt domain.PromptState
		if err := json.Unmarshal([]byte(promptJSON.String), &prompt); err != nil {
			return domain.DialogState{}, fmt.Errorf("decode prompt state: %w", err)
		}
		state.CurrentPromptState = &prompt
	}
	if completedJSON.Valid && completedJSON.String != "" {
		if err := json.Unmarshal([]byte(completedJSON.String), &state.CompletedDrills); err != nil {
			return domain.DialogState{}, fmt.Errorf("decode completed drills: %w", err)
		}
	}
	return state, nil
}

// PersistBatch appends the batch's events, enqueues outbox rows for
// them, and replaces the state row in one transaction.
func (s *Store) PersistBatch(ctx context.Context, batch event.Batch, state domain.DialogState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(batch.PhoneNumber) == "" {
		return fmt.Errorf("batch phone number is required")
	}
	if state.PhoneNumber != batch.PhoneNumber {
		return fmt.Errorf("state phone number %q does not match batch %q", state.PhoneNumber, batch.PhoneNumber)
	}

	profileJSON, err := json.Marshal(state.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	var drillJSON, promptJSON, completedJSON any
	if state.CurrentDrill != nil {
		raw, err := json.Marshal(state.CurrentDrill)
		if err != nil {
			return fmt.Errorf("encode current drill: %w", err)
		}
		drillJSON = string(raw)
	}
	if state.CurrentPromptState != nil {
		raw, err := json.Marshal(state.CurrentPromptState)
		if err != nil {
			return fmt.Errorf("encode prompt state: %w", err)
		}
		promptJSON = string(raw)
	}
	if len(state.CompletedDrills) > 0 {
		raw, err := json.Marshal(state.CompletedDrills)
		if err != nil {
			return fmt.Errorf("encode completed drills: %w", err)
		}
		completedJSON = string(raw)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, ev := range batch.Events {
		eventProfile, err := json.Marshal(ev.Profile)
		if err != nil {
			return fmt.Errorf("encode event profile: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dialog_events (phone_number, event_id, seq, event_type, created_at, profile_json, payload_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ev.PhoneNumber, ev.EventID, batch.Seq, string(ev.Type),
			toMillis(ev.CreatedAt), string(eventProfile), string(ev.PayloadJSON),
		); err != nil {
			return fmt.Errorf("insert event %s: %w", ev.EventID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dialog_outbox (phone_number, event_id, event_type, available_at, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			ev.PhoneNumber, ev.EventID, string(ev.Type), toMillis(now), toMillis(now),
		); err != nil {
			return fmt.Errorf("enqueue outbox for %s: %w", ev.EventID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO dialog_states (phone_number, seq, profile_json, drill_instance_id, current_drill_json, current_prompt_json, completed_drills_json, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(phone_number) DO UPDATE SET
		   seq = excluded.seq,
		   profile_json = excluded.profile_json,
		   drill_instance_id = excluded.drill_instance_id,
		   current_drill_json = excluded.current_drill_json,
		   current_prompt_json = excluded.current_prompt_json,
		   completed_drills_json = excluded.completed_drills_json,
		   updated_at = excluded.updated_at`,
		state.PhoneNumber, state.Seq, string(profileJSON), state.DrillInstanceID,
		drillJSON, promptJSON, completedJSON, toMillis(now),
	); err != nil {
		return fmt.Errorf("replace dialog state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListEvents returns a phone number's journal in creation order.
func (s *Store) ListEvents(ctx context.Context, phoneNumber string, opts storage.ListEventsOptions) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, fmt.Errorf("phone number is required")
	}

	query := `SELECT event_id, event_type, created_at, profile_json, payload_json
		 FROM dialog_events WHERE phone_number = ? ORDER BY created_at, rowid`
	args := []any{phoneNumber}
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var (
			ev          event.Event
			eventType   string
			createdAt   int64
			profileJSON string
			payloadJSON sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &eventType, &createdAt, &profileJSON, &payloadJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.PhoneNumber = phoneNumber
		ev.Type = event.Type(eventType)
		ev.CreatedAt = fromMillis(createdAt)
		if err := json.Unmarshal([]byte(profileJSON), &ev.Profile); err != nil {
			return nil, fmt.Errorf("decode event profile: %w", err)
		}
		if payloadJSON.Valid {
			ev.PayloadJSON = []byte(payloadJSON.String)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

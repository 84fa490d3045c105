// Package event defines the immutable dialog event journal entries and
// their typed payloads.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/drillwire/drillwire/internal/services/dialog/domain"
)

// Type identifies the type of a dialog event.
type Type string

// Drill lifecycle events.
const (
	// TypeDrillStarted records a drill beginning for a phone number.
	TypeDrillStarted Type = "drill.started"
	// TypeDrillCompleted records the final prompt of a drill being passed.
	TypeDrillCompleted Type = "drill.completed"
	// TypeNextDrillRequested records a user asking for another drill.
	TypeNextDrillRequested Type = "drill.next_requested"
)

// Prompt progression events.
const (
	// TypePromptCompleted records an answer accepted for the current prompt.
	TypePromptCompleted Type = "prompt.completed"
	// TypePromptFailed records an answer rejected for the current prompt.
	TypePromptFailed Type = "prompt.failed"
	// TypePromptAdvanced records the conversation moving to the next prompt.
	TypePromptAdvanced Type = "prompt.advanced"
	// TypeReminderTriggered records a reminder being sent for a stalled prompt.
	TypeReminderTriggered Type = "reminder.triggered"
)

// Registration events.
const (
	// TypeUserValidated records a registration code being accepted.
	TypeUserValidated Type = "user.validated"
	// TypeUserValidationFailed records a registration code being rejected.
	TypeUserValidationFailed Type = "user.validation_failed"
	// TypeUserOptedOut records an opt-out keyword halting the conversation.
	TypeUserOptedOut Type = "user.opted_out"
)

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the domain prefix of the event type (e.g., "drill", "prompt").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}

// Event represents an immutable entry in a phone number's dialog journal.
type Event struct {
	// EventID uniquely identifies the event.
	EventID string
	// PhoneNumber is the journal key the event belongs to.
	PhoneNumber string
	// CreatedAt is when the event occurred.
	CreatedAt time.Time
	// Type identifies the kind of event.
	Type Type
	// Profile is a snapshot of the user profile as it stood BEFORE the
	// event was applied. Downstream consumers render copy from it.
	Profile domain.UserProfile
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON []byte
}

// Batch is the unit of persistence: all events produced by one command,
// together with the sequence number that gates replays of that command.
type Batch struct {
	PhoneNumber string
	Seq         string
	Events      []Event
}

// New builds an event with its payload marshaled to JSON.
func New(id, phoneNumber string, at time.Time, typ Type, profile domain.UserProfile, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Event{
		EventID:     id,
		PhoneNumber: phoneNumber,
		CreatedAt:   at.UTC(),
		Type:        typ,
		Profile:     profile.Clone(),
		PayloadJSON: raw,
	}, nil
}

// DecodePayload unmarshals the event payload into the given target.
func (e Event) DecodePayload(into any) error {
	if len(e.PayloadJSON) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.PayloadJSON, into); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

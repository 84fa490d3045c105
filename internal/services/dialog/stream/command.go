// Package stream decodes inbound transport records into engine commands.
package stream

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/drillwire/drillwire/internal/drills"
	apperrors "github.com/drillwire/drillwire/internal/platform/errors"
	"github.com/drillwire/drillwire/internal/services/dialog/engine"
	"github.com/drillwire/drillwire/internal/services/dialog/registration"
)

// CommandType identifies the kind of inbound record.
type CommandType string

const (
	// CommandInboundSMS is a free-text message from the user.
	CommandInboundSMS CommandType = "INBOUND_SMS"
	// CommandStartDrill asks the engine to begin a drill.
	CommandStartDrill CommandType = "START_DRILL"
	// CommandTriggerReminder nudges a stalled conversation.
	CommandTriggerReminder CommandType = "TRIGGER_REMINDER"
)

// SequenceNumber is a transport-assigned per-phone-number ordering
// value. It stays a digit string because some transports issue values
// wider than 64 bits; JSON numbers are accepted for convenience.
type SequenceNumber string

// UnmarshalJSON accepts both string and numeric encodings.
func (s *SequenceNumber) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("decode sequence number: %w", err)
		}
		*s = SequenceNumber(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("decode sequence number: %w", err)
	}
	*s = SequenceNumber(num.String())
	return nil
}

// InboundCommand is one record on the command transport.
type InboundCommand struct {
	PhoneNumber    string          `json:"phone_number"`
	SequenceNumber SequenceNumber  `json:"sequence_number"`
	CommandType    CommandType     `json:"command_type"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// InboundSMSPayload carries a free-text message body.
type InboundSMSPayload struct {
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

// StartDrillPayload names the drill to start, optionally with an inline
// content snapshot that bypasses the catalog.
type StartDrillPayload struct {
	DrillSlug string        `json:"drill_slug"`
	Drill     *drills.Drill `json:"drill,omitempty"`
}

// TriggerReminderPayload identifies the prompt the reminder targets.
type TriggerReminderPayload struct {
	DrillInstanceID string `json:"drill_instance_id"`
	PromptSlug      string `json:"prompt_slug"`
}

// ToEngineCommand converts an inbound record into an executable engine
// command, binding in the catalog and validator collaborators.
func ToEngineCommand(cmd InboundCommand, catalog drills.Catalog, validator registration.Validator) (engine.Command, error) {
	switch cmd.CommandType {
	case CommandInboundSMS:
		var payload InboundSMSPayload
		if err := decodePayload(cmd, &payload); err != nil {
			return nil, err
		}
		return engine.ProcessSMSMessage{
			Phone:     cmd.PhoneNumber,
			Content:   payload.Body,
			Validator: validator,
		}, nil

	case CommandStartDrill:
		var payload StartDrillPayload
		if err := decodePayload(cmd, &payload); err != nil {
			return nil, err
		}
		return engine.StartDrill{
			Phone:     cmd.PhoneNumber,
			DrillSlug: payload.DrillSlug,
			Catalog:   catalog,
			Drill:     payload.Drill,
		}, nil

	case CommandTriggerReminder:
		var payload TriggerReminderPayload
		if err := decodePayload(cmd, &payload); err != nil {
			return nil, err
		}
		return engine.TriggerReminder{
			Phone:           cmd.PhoneNumber,
			DrillInstanceID: payload.DrillInstanceID,
			PromptSlug:      payload.PromptSlug,
		}, nil

	default:
		return nil, apperrors.WithMetadata(apperrors.CodeCommandTypeUnknown, "unknown command type",
			map[string]string{"command_type": string(cmd.CommandType)})
	}
}

func decodePayload(cmd InboundCommand, into any) error {
	if len(cmd.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(cmd.Payload, into); err != nil {
		return apperrors.Wrap(apperrors.CodeCommandPayloadInvalid,
			fmt.Sprintf("decode %s payload", cmd.CommandType), err)
	}
	return nil
}

// Package render derives outbound SMS copy from dialog journal events.
package render

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/drillwire/drillwire/internal/drills"
	"github.com/drillwire/drillwire/internal/services/dialog/event"
)

// OutboundSMS is one message ready for the gateway.
type OutboundSMS struct {
	To       string `json:"to"`
	Body     string `json:"body"`
	MediaURL string `json:"media_url,omitempty"`
}

func printerFor(lang string) *message.Printer {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil || lang == "" {
		tag = language.English
	}
	return message.NewPrinter(tag)
}

// Render maps one journal event onto the SMS messages it should produce.
// Most events produce nothing: only prompt transitions and registration
// failures reach the user's phone.
func Render(ev event.Event) ([]OutboundSMS, error) {
	loc := printerFor(ev.Profile.Language)

	switch ev.Type {
	case event.TypeDrillStarted:
		var payload event.DrillStartedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return promptMessages(ev, payload.FirstPrompt), nil

	case event.TypePromptAdvanced:
		var payload event.PromptAdvancedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return promptMessages(ev, payload.Prompt), nil

	case event.TypePromptCompleted:
		var payload event.PromptCompletedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return nil, err
		}
		if payload.Prompt.CorrectResponse == "" {
			return nil, nil
		}
		return []OutboundSMS{{
			To:   ev.PhoneNumber,
			Body: loc.Sprintf("sms.correct_answer_match"),
		}}, nil

	case event.TypePromptFailed:
		var payload event.PromptFailedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return nil, err
		}
		if !payload.Abandoned {
			return []OutboundSMS{{
				To:   ev.PhoneNumber,
				Body: loc.Sprintf("sms.try_again"),
			}}, nil
		}
		if payload.Prompt.CorrectResponse == "" {
			return nil, nil
		}
		answer := drills.Localize(payload.Prompt.CorrectResponse, ev.Profile.Language, nil)
		return []OutboundSMS{{
			To:   ev.PhoneNumber,
			Body: loc.Sprintf("sms.corrected_answer", answer),
		}}, nil

	case event.TypeUserValidationFailed:
		return []OutboundSMS{{
			To:   ev.PhoneNumber,
			Body: loc.Sprintf("sms.invalid_code"),
		}}, nil

	default:
		return nil, nil
	}
}

func promptMessages(ev event.Event, prompt drills.Prompt) []OutboundSMS {
	args := map[string]string{
		"company": "your company",
	}
	// Copy addresses the user by first name only.
	if fields := strings.Fields(ev.Profile.Name); len(fields) > 0 {
		args["name"] = fields[0]
	}
	if company, ok := ev.Profile.AccountInfo["company"].(string); ok && company != "" {
		args["company"] = company
	}
	var messages []OutboundSMS
	for _, msg := range prompt.Messages {
		messages = append(messages, OutboundSMS{
			To:       ev.PhoneNumber,
			Body:     drills.Localize(msg.Text, ev.Profile.Language, args),
			MediaURL: msg.MediaURL,
		})
	}
	return messages
}

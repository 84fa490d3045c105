package engine

import (
	apperrors "github.com/drillwire/drillwire/internal/platform/errors"
	"github.com/drillwire/drillwire/internal/services/dialog/domain"
	"github.com/drillwire/drillwire/internal/services/dialog/event"
)

// Apply folds one event into the aggregate. Events own independent
// snapshots, so application never mutates the event.
func Apply(state *domain.DialogState, ev event.Event) error {
	switch ev.Type {
	case event.TypeDrillStarted:
		var p event.DrillStartedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return apperrors.Wrap(apperrors.CodeEventPayloadInvalid, "drill started payload", err)
		}
		drill := p.Drill.Clone()
		state.CurrentDrill = &drill
		state.DrillInstanceID = p.DrillInstanceID
		state.CurrentPromptState = &domain.PromptState{
			Slug:      p.FirstPrompt.Slug,
			StartTime: ev.CreatedAt,
		}

	case event.TypeReminderTriggered:
		if state.CurrentPromptState != nil {
			state.CurrentPromptState.ReminderTriggered = true
		}

	case event.TypeUserValidated:
		var p event.UserValidatedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return apperrors.Wrap(apperrors.CodeEventPayloadInvalid, "user validated payload", err)
		}
		state.Profile.Validated = true
		state.Profile.IsDemo = p.IsDemo
		state.Profile.AccountInfo = p.AccountInfo.Clone()

	case event.TypeUserValidationFailed:
		// Recorded for downstream copy only; the aggregate is unchanged.

	case event.TypePromptCompleted:
		var p event.PromptCompletedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return apperrors.Wrap(apperrors.CodeEventPayloadInvalid, "prompt completed payload", err)
		}
		if key := p.Prompt.ResponseUserProfileKey; key != "" {
			state.Profile.SetField(key, p.Response)
		}
		state.CurrentPromptState = nil

	case event.TypePromptFailed:
		var p event.PromptFailedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return apperrors.Wrap(apperrors.CodeEventPayloadInvalid, "prompt failed payload", err)
		}
		if p.Abandoned {
			state.CurrentPromptState = nil
		} else if state.CurrentPromptState != nil {
			state.CurrentPromptState.Failures++
		}

	case event.TypePromptAdvanced:
		var p event.PromptAdvancedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return apperrors.Wrap(apperrors.CodeEventPayloadInvalid, "prompt advanced payload", err)
		}
		state.CurrentPromptState = &domain.PromptState{
			Slug:      p.Prompt.Slug,
			StartTime: ev.CreatedAt,
		}

	case event.TypeDrillCompleted:
		if state.CurrentDrill != nil {
			state.CompletedDrills = append(state.CompletedDrills, state.CurrentDrill.Clone())
		}
		state.CurrentDrill = nil
		state.CurrentPromptState = nil
		state.DrillInstanceID = ""

	case event.TypeUserOptedOut:
		state.Profile.OptedOut = true
		state.CurrentDrill = nil
		state.CurrentPromptState = nil
		state.DrillInstanceID = ""

	case event.TypeNextDrillRequested:
		state.Profile.OptedOut = false

	default:
		return apperrors.WithMetadata(apperrors.CodeEventTypeMismatch, "unhandled event type",
			map[string]string{"event_type": string(ev.Type)})
	}
	return nil
}

package engine

import (
	"context"

	"github.com/drillwire/drillwire/internal/drills"
	"github.com/drillwire/drillwire/internal/services/dialog/domain"
	"github.com/drillwire/drillwire/internal/services/dialog/event"
	"github.com/drillwire/drillwire/internal/services/dialog/registration"
)

// optOutKeywords are the carrier-mandated stop words. Matching is done
// on the normalized message body.
var optOutKeywords = map[string]bool{
	"cancel":      true,
	"end":         true,
	"quit":        true,
	"stop":        true,
	"stopall":     true,
	"unsubscribe": true,
}

// ProcessSMSMessage interprets one inbound free-text message. The
// Validator is optional; without it the registration stage is skipped.
type ProcessSMSMessage struct {
	Phone     string
	Content   string
	Validator registration.Validator
}

// PhoneNumber implements Command.
func (c ProcessSMSMessage) PhoneNumber() string { return c.Phone }

// smsStage handles one interpretation of the message. A stage that
// reports handled short-circuits the rest of the chain, even with an
// empty event list.
type smsStage func(ctx context.Context, normalized string, state *domain.DialogState, env Env) ([]event.Event, bool, error)

// Execute implements Command. The stage order encodes precedence: stop
// words beat everything, opted-out users only ever opt back in, and
// registration runs before answer checking so a demo user can re-enter
// a code mid-drill.
func (c ProcessSMSMessage) Execute(ctx context.Context, state *domain.DialogState, env Env) ([]event.Event, error) {
	normalized := drills.NormalizeAnswer(c.Content)
	stages := []smsStage{
		c.handleHelp,
		c.handleOptOut,
		c.handleOptBackIn,
		c.handleRegistration,
		c.handleAnswer,
		c.handleMore,
	}
	for _, stage := range stages {
		events, handled, err := stage(ctx, normalized, state, env)
		if err != nil {
			return nil, err
		}
		if handled {
			return events, nil
		}
	}
	return nil, nil
}

// handleHelp leaves "help" to the transport's built-in responder.
func (c ProcessSMSMessage) handleHelp(_ context.Context, normalized string, _ *domain.DialogState, _ Env) ([]event.Event, bool, error) {
	if normalized == "help" {
		return nil, true, nil
	}
	return nil, false, nil
}

func (c ProcessSMSMessage) handleOptOut(_ context.Context, normalized string, state *domain.DialogState, env Env) ([]event.Event, bool, error) {
	if !optOutKeywords[normalized] {
		return nil, false, nil
	}
	ev, err := newEvent(env, c.Phone, event.TypeUserOptedOut, state.Profile,
		event.UserOptedOutPayload{DrillInstanceID: state.DrillInstanceID})
	if err != nil {
		return nil, false, err
	}
	return []event.Event{ev}, true, nil
}

// handleOptBackIn short-circuits for opted-out users no matter what
// they send: only "start" restarts the conversation.
func (c ProcessSMSMessage) handleOptBackIn(_ context.Context, normalized string, state *domain.DialogState, env Env) ([]event.Event, bool, error) {
	if !state.Profile.OptedOut {
		return nil, false, nil
	}
	if normalized != "start" {
		return nil, true, nil
	}
	ev, err := newEvent(env, c.Phone, event.TypeNextDrillRequested, state.Profile,
		event.NextDrillRequestedPayload{})
	if err != nil {
		return nil, false, err
	}
	return []event.Event{ev}, true, nil
}

// handleRegistration checks the message as an opt-in code for users who
// are unvalidated or on a demo account. An invalid code from an
// already-validated demo user falls through so their text can still be
// checked as a drill answer.
func (c ProcessSMSMessage) handleRegistration(ctx context.Context, normalized string, state *domain.DialogState, env Env) ([]event.Event, bool, error) {
	if c.Validator == nil {
		return nil, false, nil
	}
	if state.Profile.Validated && !state.Profile.IsDemo {
		return nil, false, nil
	}

	payload := c.Validator.Validate(ctx, normalized)
	if payload.Valid {
		ev, err := newEvent(env, c.Phone, event.TypeUserValidated, state.Profile,
			event.UserValidatedPayload{IsDemo: payload.IsDemo, AccountInfo: payload.AccountInfo})
		if err != nil {
			return nil, false, err
		}
		return []event.Event{ev}, true, nil
	}
	if !state.Profile.Validated {
		ev, err := newEvent(env, c.Phone, event.TypeUserValidationFailed, state.Profile,
			event.UserValidationFailedPayload{})
		if err != nil {
			return nil, false, err
		}
		return []event.Event{ev}, true, nil
	}
	return nil, false, nil
}

func (c ProcessSMSMessage) handleAnswer(_ context.Context, _ string, state *domain.DialogState, env Env) ([]event.Event, bool, error) {
	prompt, ok := state.CurrentPrompt()
	if !ok {
		return nil, false, nil
	}

	var events []event.Event
	appendEvent := func(typ event.Type, payload any) error {
		ev, err := newEvent(env, c.Phone, typ, state.Profile, payload)
		if err != nil {
			return err
		}
		events = append(events, ev)
		return nil
	}

	var shouldAdvance bool
	if prompt.ShouldAdvanceWithAnswer(c.Content, state.Profile.Language) {
		if err := appendEvent(event.TypePromptCompleted, event.PromptCompletedPayload{
			DrillInstanceID: state.DrillInstanceID,
			Prompt:          prompt,
			Response:        c.Content,
		}); err != nil {
			return nil, false, err
		}
		shouldAdvance = true
	} else {
		abandoned := state.CurrentPromptState.Failures+1 >= prompt.MaxFailuresOrDefault()
		if err := appendEvent(event.TypePromptFailed, event.PromptFailedPayload{
			DrillInstanceID: state.DrillInstanceID,
			Prompt:          prompt,
			Response:        c.Content,
			Abandoned:       abandoned,
		}); err != nil {
			return nil, false, err
		}
		shouldAdvance = abandoned
	}

	if shouldAdvance {
		next, ok := state.CurrentDrill.NextPrompt(prompt.Slug)
		if ok {
			if err := appendEvent(event.TypePromptAdvanced, event.PromptAdvancedPayload{
				DrillInstanceID: state.DrillInstanceID,
				Prompt:          next,
			}); err != nil {
				return nil, false, err
			}
		}
		// The terminal prompt never waits for a reply, so reaching it
		// completes the drill in the same batch.
		if !ok || state.CurrentDrill.IsLastPrompt(next.Slug) {
			if err := appendEvent(event.TypeDrillCompleted, event.DrillCompletedPayload{
				DrillInstanceID: state.DrillInstanceID,
				DrillSlug:       state.CurrentDrill.Slug,
			}); err != nil {
				return nil, false, err
			}
		}
	}
	return events, true, nil
}

func (c ProcessSMSMessage) handleMore(_ context.Context, normalized string, state *domain.DialogState, env Env) ([]event.Event, bool, error) {
	if normalized != "more" {
		return nil, true, nil
	}
	ev, err := newEvent(env, c.Phone, event.TypeNextDrillRequested, state.Profile,
		event.NextDrillRequestedPayload{})
	if err != nil {
		return nil, false, err
	}
	return []event.Event{ev}, true, nil
}

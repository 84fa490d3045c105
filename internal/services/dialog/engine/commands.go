package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/drillwire/drillwire/internal/drills"
	apperrors "github.com/drillwire/drillwire/internal/platform/errors"
	"github.com/drillwire/drillwire/internal/services/dialog/domain"
	"github.com/drillwire/drillwire/internal/services/dialog/event"
)

// StartDrill begins a drill for a phone number. When Drill is set it is
// used as the content snapshot directly; otherwise the slug is resolved
// against the catalog at execution time.
type StartDrill struct {
	Phone     string
	DrillSlug string
	Catalog   drills.Catalog
	Drill     *drills.Drill
}

// PhoneNumber implements Command.
func (c StartDrill) PhoneNumber() string { return c.Phone }

// Execute implements Command. Opted-out and unvalidated users get no
// events: drills are never pushed at someone who has not opted in.
func (c StartDrill) Execute(_ context.Context, state *domain.DialogState, env Env) ([]event.Event, error) {
	if state.Profile.OptedOut || !state.Profile.Validated {
		log.Printf("dialog: dropping start drill for %s (validated=%t opted_out=%t)",
			c.Phone, state.Profile.Validated, state.Profile.OptedOut)
		return nil, nil
	}

	drill, err := c.resolveDrill()
	if err != nil {
		return nil, err
	}
	first, ok := drill.FirstPrompt()
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeDrillEmptyPrompts, "drill has no prompts",
			map[string]string{"slug": drill.Slug})
	}

	instanceID, err := env.newID()
	if err != nil {
		return nil, fmt.Errorf("generate drill instance id: %w", err)
	}
	ev, err := newEvent(env, c.Phone, event.TypeDrillStarted, state.Profile,
		event.DrillStartedPayload{
			DrillInstanceID: instanceID,
			Drill:           drill,
			FirstPrompt:     first,
		})
	if err != nil {
		return nil, err
	}
	return []event.Event{ev}, nil
}

func (c StartDrill) resolveDrill() (drills.Drill, error) {
	if c.Drill != nil {
		return c.Drill.Clone(), nil
	}
	if c.Catalog == nil {
		return drills.Drill{}, fmt.Errorf("start drill requires a catalog or an inline drill")
	}
	return c.Catalog.GetDrill(c.DrillSlug)
}

// TriggerReminder nudges a user who stalled on a prompt. Every guard
// no-ops instead of erroring because the reminder scheduler redelivers:
// a reminder that no longer applies is stale fan-out, not a fault.
type TriggerReminder struct {
	Phone           string
	DrillInstanceID string
	PromptSlug      string
}

// PhoneNumber implements Command.
func (c TriggerReminder) PhoneNumber() string { return c.Phone }

// Execute implements Command.
func (c TriggerReminder) Execute(_ context.Context, state *domain.DialogState, env Env) ([]event.Event, error) {
	if state.Profile.OptedOut || !state.Profile.Validated {
		return nil, nil
	}
	if state.CurrentDrill == nil || state.CurrentPromptState == nil {
		return nil, nil
	}
	if state.DrillInstanceID != c.DrillInstanceID {
		return nil, nil
	}
	if state.CurrentPromptState.Slug != c.PromptSlug {
		return nil, nil
	}
	if state.CurrentPromptState.ReminderTriggered {
		return nil, nil
	}

	ev, err := newEvent(env, c.Phone, event.TypeReminderTriggered, state.Profile,
		event.ReminderTriggeredPayload{
			DrillInstanceID: c.DrillInstanceID,
			PromptSlug:      c.PromptSlug,
		})
	if err != nil {
		return nil, err
	}
	return []event.Event{ev}, nil
}

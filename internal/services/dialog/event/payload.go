package event

import (
	"github.com/drillwire/drillwire/internal/drills"
	"github.com/drillwire/drillwire/internal/services/dialog/domain"
)

// DrillStartedPayload captures the payload for drill.started events. The
// drill is embedded whole so replays fold the exact content that was live
// when the drill began, regardless of later catalog edits.
type DrillStartedPayload struct {
	DrillInstanceID string        `json:"drill_instance_id"`
	Drill           drills.Drill  `json:"drill"`
	FirstPrompt     drills.Prompt `json:"first_prompt"`
}

// DrillCompletedPayload captures the payload for drill.completed events.
type DrillCompletedPayload struct {
	DrillInstanceID string `json:"drill_instance_id"`
	DrillSlug       string `json:"drill_slug"`
}

// NextDrillRequestedPayload captures the payload for drill.next_requested events.
type NextDrillRequestedPayload struct{}

// PromptCompletedPayload captures the payload for prompt.completed events.
type PromptCompletedPayload struct {
	DrillInstanceID string        `json:"drill_instance_id"`
	Prompt          drills.Prompt `json:"prompt"`
	Response        string        `json:"response"`
}

// PromptFailedPayload captures the payload for prompt.failed events.
// Abandoned means the failure budget is spent and the conversation moves
// on without a correct answer.
type PromptFailedPayload struct {
	DrillInstanceID string        `json:"drill_instance_id"`
	Prompt          drills.Prompt `json:"prompt"`
	Response        string        `json:"response"`
	Abandoned       bool          `json:"abandoned"`
}

// PromptAdvancedPayload captures the payload for prompt.advanced events.
type PromptAdvancedPayload struct {
	DrillInstanceID string        `json:"drill_instance_id"`
	Prompt          drills.Prompt `json:"prompt"`
}

// ReminderTriggeredPayload captures the payload for reminder.triggered events.
type ReminderTriggeredPayload struct {
	DrillInstanceID string `json:"drill_instance_id"`
	PromptSlug      string `json:"prompt_slug"`
}

// UserValidatedPayload captures the payload for user.validated events.
type UserValidatedPayload struct {
	IsDemo      bool               `json:"is_demo"`
	AccountInfo domain.AccountInfo `json:"account_info,omitempty"`
}

// UserValidationFailedPayload captures the payload for user.validation_failed events.
type UserValidationFailedPayload struct{}

// UserOptedOutPayload captures the payload for user.opted_out events.
type UserOptedOutPayload struct {
	DrillInstanceID string `json:"drill_instance_id,omitempty"`
}

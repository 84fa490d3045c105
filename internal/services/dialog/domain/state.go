package domain

import (
	"time"

	"github.com/drillwire/drillwire/internal/drills"
	apperrors "github.com/drillwire/drillwire/internal/platform/errors"
)

// PromptState tracks the prompt the conversation is currently waiting on.
type PromptState struct {
	Slug              string    `json:"slug"`
	StartTime         time.Time `json:"start_time"`
	Failures          int       `json:"failures"`
	ReminderTriggered bool      `json:"reminder_triggered"`
}

// DialogState is the authoritative aggregate for one phone number. It is
// rebuilt in memory by folding events and persisted whole, never as a
// delta.
type DialogState struct {
	PhoneNumber string
	// Seq is the sequence number of the last successfully processed
	// command, kept as a digit string because upstream transports issue
	// sequence numbers wider than 64 bits.
	Seq                string
	Profile            UserProfile
	DrillInstanceID    string
	CurrentDrill       *drills.Drill
	CurrentPromptState *PromptState
	CompletedDrills    []drills.Drill
}

// NewDialogState returns the default state for a phone number that has
// never been seen: unvalidated, no drill in flight.
func NewDialogState(phoneNumber string) DialogState {
	return DialogState{PhoneNumber: phoneNumber}
}

// CurrentPrompt resolves the outstanding prompt definition, if any.
func (s *DialogState) CurrentPrompt() (drills.Prompt, bool) {
	if s.CurrentDrill == nil || s.CurrentPromptState == nil {
		return drills.Prompt{}, false
	}
	return s.CurrentDrill.PromptBySlug(s.CurrentPromptState.Slug)
}

// NextPrompt resolves the prompt after the outstanding one, if any.
func (s *DialogState) NextPrompt() (drills.Prompt, bool) {
	if s.CurrentDrill == nil || s.CurrentPromptState == nil {
		return drills.Prompt{}, false
	}
	return s.CurrentDrill.NextPrompt(s.CurrentPromptState.Slug)
}

// Clone returns a deep copy of the state.
func (s DialogState) Clone() DialogState {
	cp := s
	cp.Profile = s.Profile.Clone()
	if s.CurrentDrill != nil {
		drill := s.CurrentDrill.Clone()
		cp.CurrentDrill = &drill
	}
	if s.CurrentPromptState != nil {
		prompt := *s.CurrentPromptState
		cp.CurrentPromptState = &prompt
	}
	if s.CompletedDrills != nil {
		cp.CompletedDrills = make([]drills.Drill, len(s.CompletedDrills))
		for i, d := range s.CompletedDrills {
			cp.CompletedDrills[i] = d.Clone()
		}
	}
	return cp
}

// Validate checks the aggregate's structural invariants.
func (s DialogState) Validate() error {
	if s.PhoneNumber == "" {
		return apperrors.New(apperrors.CodeDialogPhoneNumberEmpty, "dialog state requires a phone number")
	}
	if s.CurrentPromptState != nil {
		if s.CurrentDrill == nil {
			return apperrors.WithMetadata(apperrors.CodeDialogPromptWithoutDrill,
				"prompt state present without a drill in progress",
				map[string]string{"phone_number": s.PhoneNumber})
		}
		if _, ok := s.CurrentDrill.PromptBySlug(s.CurrentPromptState.Slug); !ok {
			return apperrors.WithMetadata(apperrors.CodeDialogPromptUnknownSlug,
				"prompt state references a prompt outside the current drill",
				map[string]string{
					"phone_number": s.PhoneNumber,
					"prompt_slug":  s.CurrentPromptState.Slug,
					"drill_slug":   s.CurrentDrill.Slug,
				})
		}
	}
	return nil
}

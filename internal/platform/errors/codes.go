// Package errors provides structured error handling with machine-readable codes.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Dialog state errors
	CodeDialogPromptWithoutDrill Code = "DIALOG_PROMPT_WITHOUT_DRILL"
	CodeDialogPromptUnknownSlug  Code = "DIALOG_PROMPT_UNKNOWN_SLUG"
	CodeDialogSeqRegression      Code = "DIALOG_SEQ_REGRESSION"
	CodeDialogPhoneNumberEmpty   Code = "DIALOG_PHONE_NUMBER_EMPTY"

	// Command errors
	CodeCommandTypeUnknown    Code = "COMMAND_TYPE_UNKNOWN"
	CodeCommandPayloadInvalid Code = "COMMAND_PAYLOAD_INVALID"
	CodeCommandSeqEmpty       Code = "COMMAND_SEQ_EMPTY"

	// Event errors
	CodeEventPayloadInvalid Code = "EVENT_PAYLOAD_INVALID"
	CodeEventTypeMismatch   Code = "EVENT_TYPE_MISMATCH"

	// Drill catalog errors
	CodeDrillNotFound     Code = "DRILL_NOT_FOUND"
	CodeDrillEmptyPrompts Code = "DRILL_EMPTY_PROMPTS"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"
)

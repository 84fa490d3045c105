package engine

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/drillwire/drillwire/internal/platform/errors"
	"github.com/drillwire/drillwire/internal/services/dialog/domain"
	"github.com/drillwire/drillwire/internal/services/dialog/event"
)

func TestApplyUserValidated(t *testing.T) {
	state := domain.NewDialogState(testPhone)
	ev, err := event.New("id-1", testPhone, time.Now(), event.TypeUserValidated, state.Profile,
		event.UserValidatedPayload{IsDemo: true, AccountInfo: domain.AccountInfo{"employer": "acme"}})
	if err != nil {
		t.Fatalf("event.New: %v", err)
	}
	if err := Apply(&state, ev); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !state.Profile.Validated || !state.Profile.IsDemo {
		t.Errorf("profile = %+v", state.Profile)
	}
	if state.Profile.AccountInfo["employer"] != "acme" {
		t.Errorf("account info = %v", state.Profile.AccountInfo)
	}
}

func TestApplyValidationFailedLeavesStateUntouched(t *testing.T) {
	state := domain.NewDialogState(testPhone)
	ev, err := event.New("id-1", testPhone, time.Now(), event.TypeUserValidationFailed, state.Profile,
		event.UserValidationFailedPayload{})
	if err != nil {
		t.Fatalf("event.New: %v", err)
	}
	if err := Apply(&state, ev); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if state.Profile.Validated {
		t.Error("validation failure must not validate the profile")
	}
}

func TestApplyUnknownEventType(t *testing.T) {
	state := domain.NewDialogState(testPhone)
	err := Apply(&state, event.Event{Type: "bogus.type"})
	if !errors.Is(err, apperrors.New(apperrors.CodeEventTypeMismatch, "")) {
		t.Errorf("error = %v, want CodeEventTypeMismatch", err)
	}
}

func TestApplyMalformedPayload(t *testing.T) {
	state := domain.NewDialogState(testPhone)
	err := Apply(&state, event.Event{Type: event.TypeDrillStarted, PayloadJSON: []byte("{")})
	if !errors.Is(err, apperrors.New(apperrors.CodeEventPayloadInvalid, "")) {
		t.Errorf("error = %v, want CodeEventPayloadInvalid", err)
	}
}

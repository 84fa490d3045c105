package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := New(CodeNotFound, "record not found")
	if err.Error() != "record not found" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeNotFound, "record not found")
	other := New(CodeNotFound, "different message")

	if !errors.Is(err, other) {
		t.Fatal("expected errors with same code to match")
	}
	if errors.Is(err, New(CodeConflict, "record not found")) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(CodeConflict, "persist failed", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if err.Unwrap() != cause {
		t.Fatal("expected Unwrap to return cause")
	}
}

func TestWithMetadata(t *testing.T) {
	err := WithMetadata(CodeDrillNotFound, "no drill", map[string]string{"slug": "01-basics"})
	if err.Metadata["slug"] != "01-basics" {
		t.Fatalf("unexpected metadata: %v", err.Metadata)
	}
}

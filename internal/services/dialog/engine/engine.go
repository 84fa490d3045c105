// Package engine executes dialog commands: it gates replays by sequence
// number, runs the command's pure decision logic, folds the resulting
// events into the aggregate, and persists the batch atomically.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/drillwire/drillwire/internal/platform/errors"
	"github.com/drillwire/drillwire/internal/platform/id"
	"github.com/drillwire/drillwire/internal/services/dialog/domain"
	"github.com/drillwire/drillwire/internal/services/dialog/event"
	"github.com/drillwire/drillwire/internal/services/dialog/storage"
)

// Env supplies the non-deterministic inputs a command needs so that
// Execute stays a pure function of (command, state, env).
type Env struct {
	Now   func() time.Time
	NewID func() (string, error)
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func (e Env) newID() (string, error) {
	if e.NewID != nil {
		return e.NewID()
	}
	return id.NewID()
}

// newEvent stamps a fresh id and the env clock onto an event envelope.
func newEvent(env Env, phoneNumber string, typ event.Type, profile domain.UserProfile, payload any) (event.Event, error) {
	eventID, err := env.newID()
	if err != nil {
		return event.Event{}, fmt.Errorf("generate event id: %w", err)
	}
	return event.New(eventID, phoneNumber, env.now(), typ, profile, payload)
}

// Command is one dialog command. Execute must not perform I/O beyond
// what its collaborators (catalog snapshot, validator result) already
// carry; the engine owns all persistence.
type Command interface {
	PhoneNumber() string
	Execute(ctx context.Context, state *domain.DialogState, env Env) ([]event.Event, error)
}

// Engine processes commands against the dialog store.
type Engine struct {
	repo storage.Repository
	env  Env
}

// New builds an engine on top of a repository.
func New(repo storage.Repository) *Engine {
	return &Engine{repo: repo}
}

// NewWithEnv builds an engine with a fixed clock and ID source, for tests.
func NewWithEnv(repo storage.Repository, env Env) *Engine {
	return &Engine{repo: repo, env: env}
}

// ProcessCommand runs one command under the sequence gate. Replays
// (seq at or below the stored one) are silently skipped. The returned
// state reflects the post-fold aggregate and the events are the batch
// that was persisted; both are nil-ish on a skip.
func (e *Engine) ProcessCommand(ctx context.Context, cmd Command, seq string) (domain.DialogState, []event.Event, error) {
	if strings.TrimSpace(seq) == "" {
		return domain.DialogState{}, nil, apperrors.New(apperrors.CodeCommandSeqEmpty, "command sequence number is required")
	}
	phoneNumber := cmd.PhoneNumber()
	if phoneNumber == "" {
		return domain.DialogState{}, nil, apperrors.New(apperrors.CodeDialogPhoneNumberEmpty, "command requires a phone number")
	}

	state, err := e.repo.FetchDialogState(ctx, phoneNumber)
	if err != nil {
		return domain.DialogState{}, nil, fmt.Errorf("fetch dialog state: %w", err)
	}

	if CompareSeq(seq, state.Seq) <= 0 {
		log.Printf("dialog: skipping replayed command for %s (seq %s <= %s)", phoneNumber, seq, state.Seq)
		return state, nil, nil
	}

	events, err := cmd.Execute(ctx, &state, e.env)
	if err != nil {
		return domain.DialogState{}, nil, fmt.Errorf("execute command: %w", err)
	}

	for _, ev := range events {
		if err := Apply(&state, ev); err != nil {
			return domain.DialogState{}, nil, fmt.Errorf("apply %s: %w", ev.Type, err)
		}
	}
	state.Seq = seq

	if err := state.Validate(); err != nil {
		return domain.DialogState{}, nil, fmt.Errorf("validate dialog state: %w", err)
	}

	batch := event.Batch{PhoneNumber: phoneNumber, Seq: seq, Events: events}
	if err := e.repo.PersistBatch(ctx, batch, state); err != nil {
		return domain.DialogState{}, nil, fmt.Errorf("persist batch: %w", err)
	}
	return state, events, nil
}

// CompareSeq orders two sequence numbers by numeric value. Sequence
// numbers are digit strings because upstream transports issue values
// wider than 64 bits; an empty string sorts below everything.
func CompareSeq(a, b string) int {
	ta, tb := trimSeq(a), trimSeq(b)
	switch {
	case ta == tb:
		return 0
	case ta == "":
		return -1
	case tb == "":
		return 1
	case len(ta) != len(tb):
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	case ta < tb:
		return -1
	default:
		return 1
	}
}

func trimSeq(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "0")
	return s
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/drillwire/drillwire/internal/drills"
	apperrors "github.com/drillwire/drillwire/internal/platform/errors"
	"github.com/drillwire/drillwire/internal/services/dialog/engine"
	"github.com/drillwire/drillwire/internal/services/dialog/registration"
	"github.com/drillwire/drillwire/internal/services/dialog/stream"
)

// Handler processes inbound command records against the dialog engine.
type Handler struct {
	eng       *engine.Engine
	catalog   drills.Catalog
	validator registration.Validator
}

// NewHandler builds a command handler.
func NewHandler(eng *engine.Engine, catalog drills.Catalog, validator registration.Validator) *Handler {
	return &Handler{eng: eng, catalog: catalog, validator: validator}
}

// HandleInboundCommand runs one transport record through the engine and
// reports how many events it produced.
func (h *Handler) HandleInboundCommand(ctx context.Context, cmd stream.InboundCommand) (int, error) {
	engineCmd, err := stream.ToEngineCommand(cmd, h.catalog, h.validator)
	if err != nil {
		return 0, err
	}
	_, events, err := h.eng.ProcessCommand(ctx, engineCmd, string(cmd.SequenceNumber))
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// ingestResponse summarizes one ingest call.
type ingestResponse struct {
	Commands int `json:"commands"`
	Events   int `json:"events"`
}

// ServeHTTP accepts POST /v1/commands with a single command record or a
// JSON array of them. Records are processed in order; the first failure
// aborts the rest so the transport can redeliver from that point.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read request body", http.StatusBadRequest)
		return
	}

	commands, err := decodeCommands(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var response ingestResponse
	for _, cmd := range commands {
		events, err := h.HandleInboundCommand(r.Context(), cmd)
		if err != nil {
			log.Printf("dialog: handle %s for %s: %v", cmd.CommandType, cmd.PhoneNumber, err)
			http.Error(w, "process command", statusForError(err))
			return
		}
		response.Commands++
		response.Events += events
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(response)
}

func decodeCommands(body []byte) ([]stream.InboundCommand, error) {
	for _, c := range body {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			var commands []stream.InboundCommand
			if err := json.Unmarshal(body, &commands); err != nil {
				return nil, fmt.Errorf("decode command batch: %w", err)
			}
			return commands, nil
		default:
			var cmd stream.InboundCommand
			if err := json.Unmarshal(body, &cmd); err != nil {
				return nil, fmt.Errorf("decode command: %w", err)
			}
			return []stream.InboundCommand{cmd}, nil
		}
	}
	return nil, errors.New("empty request body")
}

// statusForError maps domain error codes onto HTTP statuses. Anything
// unrecognized is a server fault.
func statusForError(err error) int {
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}
	switch domainErr.Code {
	case apperrors.CodeCommandTypeUnknown,
		apperrors.CodeCommandPayloadInvalid,
		apperrors.CodeCommandSeqEmpty,
		apperrors.CodeDialogPhoneNumberEmpty:
		return http.StatusBadRequest
	case apperrors.CodeDrillNotFound, apperrors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

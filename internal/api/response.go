package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gyaneshwarpardhi/orchestrate/internal/config"
	"github.com/gyaneshwarpardhi/orchestrate/internal/dag"
	"github.com/gyaneshwarpardhi/orchestrate/internal/engine"
)

// errorResponse is the error envelope. Kind is a stable, machine-readable
// class; Error is the human-readable message.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// errorClasses maps error kinds to a status and a response kind, checked in order.
var errorClasses = []struct {
	target error
	status int
	kind   string
}{
	{dag.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{dag.ErrUnknownNode, http.StatusNotFound, "unknown_routine"},
	{dag.ErrCyclicDependency, http.StatusUnprocessableEntity, "cyclic_dependency"},
	{config.ErrInvalidPolicy, http.StatusUnprocessableEntity, "invalid_policy"},
	{engine.ErrQueueFull, http.StatusTooManyRequests, "queue_full"},
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure classifies err; anything unclassified is a 500.
func writeFailure(w http.ResponseWriter, err error) {
	for _, c := range errorClasses {
		if errors.Is(err, c.target) {
			writeJSON(w, c.status, errorResponse{Error: err.Error(), Kind: c.kind})
			return
		}
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

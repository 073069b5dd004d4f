package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/orchestrate/internal/config"
	"github.com/gyaneshwarpardhi/orchestrate/internal/dag"
	"github.com/gyaneshwarpardhi/orchestrate/internal/engine"
	"github.com/gyaneshwarpardhi/orchestrate/internal/metrics"
)

// Reloader re-reads the policy file. A successful reload must swap the
// engine snapshot through the loader's change callbacks before it returns;
// a rejected policy must leave both untouched.
type Reloader interface {
	Reload() (*config.Policy, error)
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader Reloader
	mux    *http.ServeMux
}

// runRequest is the body of POST /v1/runs. Omitting routines runs
// everything; an empty list is rejected.
type runRequest struct {
	Routines []string `json:"routines"`
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader Reloader) http.Handler {
	h := &Handler{eng: eng, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/runs", h.runSync)
	h.mux.HandleFunc("POST /v1/runs/async", h.runAsync)
	h.mux.HandleFunc("GET /v1/runs/{id}", h.getRun)
	h.mux.HandleFunc("GET /v1/plan", h.plan)
	h.mux.HandleFunc("GET /v1/routines", h.listRoutines)
	h.mux.HandleFunc("POST /v1/routines/reload", h.reloadRoutines)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// POST /v1/runs: run synchronously and return the report.
func (h *Handler) runSync(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRunRequest(w, r)
	if !ok {
		return
	}
	rep, err := h.eng.RunSync(r.Context(), req.Routines)
	var fatal *engine.FatalError
	switch {
	case errors.As(err, &fatal):
		// The partial report already carries the diagnostic.
		writeJSON(w, http.StatusUnprocessableEntity, rep)
	case err != nil:
		writeFailure(w, err)
	default:
		writeJSON(w, http.StatusOK, rep)
	}
}

// POST /v1/runs/async: queue a run and return its id.
func (h *Handler) runAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRunRequest(w, r)
	if !ok {
		return
	}
	id, err := h.eng.RunAsync(req.Routines)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"run_id": id,
		"status": "queued",
	})
}

// GET /v1/runs/{id}: fetch a finished run from the in-memory history.
func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if rep, ok := h.eng.Report(id); ok {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	if h.eng.Pending(id) {
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"run_id": id, "status": "pending"})
		return
	}
	writeError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", id))
}

// GET /v1/plan?routines=a,b: show the execution order without running it.
func (h *Handler) plan(w http.ResponseWriter, r *http.Request) {
	var start []string
	if q := r.URL.Query(); q.Has("routines") {
		list, err := dag.ParseRunList(strings.Split(q.Get("routines"), ","))
		if err != nil {
			writeFailure(w, err)
			return
		}
		start = list
	}
	order, err := h.eng.Plan(start...)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"order": dag.Names(order)})
}

// GET /v1/routines: list the routines and policy sets the engine runs.
func (h *Handler) listRoutines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Snapshot().Config)
}

// POST /v1/routines/reload: re-read the policy file; the loader's change
// callback swaps the graph.
func (h *Handler) reloadRoutines(w http.ResponseWriter, r *http.Request) {
	if _, err := h.loader.Reload(); err != nil {
		writeFailure(w, err)
		return
	}
	snap := h.eng.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":       true,
		"routines_count": snap.Graph.Len(),
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the run queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}

func decodeRunRequest(w http.ResponseWriter, r *http.Request) (runRequest, bool) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return req, false
	}
	if req.Routines != nil {
		list, err := dag.ParseRunList(req.Routines)
		if err != nil {
			writeFailure(w, err)
			return req, false
		}
		req.Routines = list
	}
	return req, true
}

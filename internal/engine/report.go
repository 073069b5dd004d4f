package engine

import (
	"encoding/json"
	"time"
)

// State is the terminal (or pending) state of one routine within a run.
type State string

const (
	StatePending           State = "pending"
	StateSkippedExplicit   State = "skipped-explicit"
	StateSkippedDependency State = "skipped-dependency"
	StateRan               State = "ran"
	StateAborted           State = "aborted"
)

// SkipReason tells explicit skips apart from cascaded ones.
type SkipReason string

const (
	SkipExplicit         SkipReason = "explicit"
	SkipDependencyFailed SkipReason = "dependency-failed"
)

// Outcome is the per-routine line of a Report, in plan order.
type Outcome struct {
	Name     string        `json:"name"`
	State    State         `json:"state"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"-"`
}

// Report is the result of one pass. It is not modified after Run returns.
type Report struct {
	RunID     string                `json:"run_id"`
	Order     []string              `json:"order"`
	Results   map[string]int        `json:"results"`
	Skipped   map[string]SkipReason `json:"skipped"`
	Outcomes  []Outcome             `json:"outcomes"`
	StartedAt time.Time             `json:"started_at"`
	Duration  time.Duration         `json:"-"`
	Fatal     string                `json:"fatal,omitempty"`
}

// Failed returns routines that ran and exited non-zero, in plan order.
func (r *Report) Failed() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.State == StateRan && o.ExitCode != 0 {
			out = append(out, o.Name)
		}
	}
	return out
}

// OK reports whether every routine either succeeded or was explicitly skipped.
func (r *Report) OK() bool {
	if r.Fatal != "" || len(r.Failed()) > 0 {
		return false
	}
	for _, reason := range r.Skipped {
		if reason == SkipDependencyFailed {
			return false
		}
	}
	return true
}

// Status is "aborted", "failed" or "ok".
func (r *Report) Status() string {
	switch {
	case r.Fatal != "":
		return "aborted"
	case !r.OK():
		return "failed"
	}
	return "ok"
}

// MarshalJSON adds millisecond durations and the status.
func (r *Report) MarshalJSON() ([]byte, error) {
	type alias Report
	outcomes := make([]outcomeJSON, len(r.Outcomes))
	for i, o := range r.Outcomes {
		outcomes[i] = outcomeJSON{Outcome: o, DurationMs: o.Duration.Milliseconds()}
	}
	return json.Marshal(struct {
		*alias
		Outcomes   []outcomeJSON `json:"outcomes"`
		Status     string        `json:"status"`
		DurationMs int64         `json:"duration_ms"`
	}{
		alias:      (*alias)(r),
		Outcomes:   outcomes,
		Status:     r.Status(),
		DurationMs: r.Duration.Milliseconds(),
	})
}

type outcomeJSON struct {
	Outcome
	DurationMs int64 `json:"duration_ms"`
}

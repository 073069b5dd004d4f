package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/orchestrate/internal/command"
	"github.com/gyaneshwarpardhi/orchestrate/internal/dag"
	"github.com/gyaneshwarpardhi/orchestrate/internal/metrics"
	"github.com/gyaneshwarpardhi/orchestrate/internal/telemetry"
)

// FatalError aborts a run: the routine's command could not be started.
// errors.Is(err, command.ErrNotFound) / command.ErrNotExecutable tell the
// two cases apart.
type FatalError struct {
	Node    string
	Command string
	Source  string
	Err     error
}

func (e *FatalError) Error() string {
	msg := fmt.Sprintf("routine %s: command %q: %v", e.Node, e.Command, e.Err)
	if e.Source != "" {
		msg += fmt.Sprintf("; fix the command for %s in %s", e.Node, e.Source)
	}
	return msg
}

func (e *FatalError) Unwrap() error { return e.Err }

// Run executes order in one sequential pass.
//
// A routine in pol.Skip is never executed. Otherwise, if any direct
// dependency has no recorded exit code or a non-zero one, the routine is
// skipped unless it is in pol.IgnoreDependencyFailure. Skips therefore cascade
// one hop at a time down the order.
//
// If a command cannot be started the pass stops immediately; the partial
// report is returned together with a *FatalError. Routines after the
// offending one stay StatePending.
func Run(ctx context.Context, order []*dag.Node, pol Policy, r command.Runner) (*Report, error) {
	return runPass(ctx, uuid.NewString(), order, pol, r)
}

func runPass(ctx context.Context, runID string, order []*dag.Node, pol Policy, r command.Runner) (*Report, error) {
	log := telemetry.WithRunID(telemetry.FromContext(ctx), runID)
	rep := &Report{
		RunID:     runID,
		Order:     dag.Names(order),
		Results:   make(map[string]int, len(order)),
		Skipped:   make(map[string]SkipReason),
		Outcomes:  make([]Outcome, len(order)),
		StartedAt: time.Now(),
	}
	for i, n := range order {
		rep.Outcomes[i] = Outcome{Name: n.Name(), State: StatePending}
	}
	defer func() {
		rep.Duration = time.Since(rep.StartedAt)
		metrics.RunDuration.Observe(rep.Duration.Seconds())
		metrics.RunsCompleted.WithLabelValues(rep.Status()).Inc()
	}()

	log.Info("run started", "order", rep.Order, "skip", pol.Skip.Sorted())
	for i, n := range order {
		out := &rep.Outcomes[i]
		name := n.Name()

		if pol.Skip.Has(name) {
			skip(log, rep, out, SkipExplicit)
			continue
		}
		if failed := failedDependency(n, rep.Results); failed != "" && !pol.IgnoreDependencyFailure.Has(name) {
			log.Info("dependency did not succeed", "routine", name, "dependency", failed)
			skip(log, rep, out, SkipDependencyFailed)
			continue
		}

		spec := n.Command()
		log.Debug("executing routine", "routine", name, "command", spec.String())
		start := time.Now()
		code, err := r.Execute(ctx, spec)
		out.Duration = time.Since(start)
		if err != nil {
			out.State = StateAborted
			fatal := &FatalError{Node: name, Command: spec.String(), Source: pol.Source, Err: err}
			rep.Fatal = fatal.Error()
			metrics.RoutinesExecuted.WithLabelValues(name, "aborted").Inc()
			log.Error("run aborted", "routine", name, "command", spec.String(),
				"not_found", errors.Is(err, command.ErrNotFound),
				"not_executable", errors.Is(err, command.ErrNotExecutable),
				"err", err)
			return rep, fatal
		}

		out.State = StateRan
		out.ExitCode = code
		rep.Results[name] = code
		status := "success"
		if code != 0 {
			status = "failure"
		}
		metrics.RoutinesExecuted.WithLabelValues(name, status).Inc()
		log.Info("routine finished", "routine", name, "exit_code", code, "duration", out.Duration)
	}
	log.Info("run finished", "executed", len(rep.Results), "skipped", len(rep.Skipped))
	return rep, nil
}

// failedDependency returns the first direct dependency that has no result
// or a non-zero one, or "" when all succeeded.
func failedDependency(n *dag.Node, results map[string]int) string {
	for _, d := range n.Dependencies() {
		if code, ok := results[d]; !ok || code != 0 {
			return d
		}
	}
	return ""
}

func skip(log *slog.Logger, rep *Report, out *Outcome, reason SkipReason) {
	rep.Skipped[out.Name] = reason
	if reason == SkipExplicit {
		out.State = StateSkippedExplicit
		log.Info("skipping routine, found in skip list", "routine", out.Name)
	} else {
		out.State = StateSkippedDependency
		log.Info("skipping routine, dependencies had errors", "routine", out.Name)
	}
	metrics.RoutinesSkipped.WithLabelValues(out.Name, string(reason)).Inc()
}

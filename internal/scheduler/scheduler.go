// Package scheduler triggers full runs on a cron schedule in server mode.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Trigger queues a run; the engine satisfies it.
type Trigger interface {
	RunAsync(start []string) (string, error)
}

// Scheduler fires a full run on each tick of a single cron expression.
type Scheduler struct {
	trigger Trigger
	cron    *cron.Cron

	mu    sync.Mutex
	expr  string
	entry cron.EntryID
}

// New creates a stopped Scheduler.
func New(t Trigger) *Scheduler {
	return &Scheduler{trigger: t, cron: cron.New()}
}

// Set replaces the schedule. An empty expression disables scheduled runs.
// On a parse error the previous schedule stays in effect.
func (s *Scheduler) Set(expr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expr == s.expr {
		return nil
	}
	var id cron.EntryID
	if expr != "" {
		var err error
		if id, err = s.cron.AddFunc(expr, s.fire); err != nil {
			return fmt.Errorf("schedule %q: %w", expr, err)
		}
	}
	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.expr, s.entry = expr, id
	slog.Info("run schedule updated", "schedule", expr)
	return nil
}

// Expr returns the active cron expression.
func (s *Scheduler) Expr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expr
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the cron loop and waits for a firing tick to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) fire() {
	id, err := s.trigger.RunAsync(nil)
	if err != nil {
		slog.Warn("scheduled run not queued", "err", err)
		return
	}
	slog.Info("scheduled run queued", "run_id", id)
}

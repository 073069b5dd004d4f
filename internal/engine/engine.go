package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/orchestrate/internal/command"
	"github.com/gyaneshwarpardhi/orchestrate/internal/config"
	"github.com/gyaneshwarpardhi/orchestrate/internal/dag"
	"github.com/gyaneshwarpardhi/orchestrate/internal/metrics"
)

// ErrQueueFull is returned when a run cannot be queued.
var ErrQueueFull = errors.New("run queue full")

// Engine queues run requests against the current snapshot and executes
// them on a worker pool. Every run is still a single sequential pass; the
// pool only bounds how many runs may be in flight at once.
type Engine struct {
	snap   atomic.Pointer[Snapshot]
	runner command.Runner
	pool   *workerPool[*runJob]
	conf   config.EngineConf

	mu      sync.Mutex
	pending map[string]struct{}
	history map[string]*Report
	recent  []string // run ids, oldest first
}

type runJob struct {
	id      string
	order   []*dag.Node
	policy  Policy
	resultC chan runResult
}

type runResult struct {
	report *Report
	err    error
}

// New creates an Engine using conf and starts the worker pool.
// Workers stop when ctx is cancelled or Shutdown is called.
func New(ctx context.Context, snap *Snapshot, r command.Runner, conf config.EngineConf) *Engine {
	e := &Engine{
		runner:  r,
		conf:    conf,
		pending: make(map[string]struct{}),
		history: make(map[string]*Report),
	}
	e.snap.Store(snap)
	e.pool = newWorkerPool[*runJob](ctx, conf.RunWorkers, conf.QueueDepth, e.execute)
	return e
}

// SwapSnapshot atomically replaces the graph and policy (used on hot-reload).
// Runs already queued keep the snapshot they were planned against.
func (e *Engine) SwapSnapshot(s *Snapshot) {
	e.snap.Store(s)
}

// Snapshot returns the current graph and policy.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// Plan returns the ordering a run of start would use.
func (e *Engine) Plan(start ...string) ([]*dag.Node, error) {
	return e.snap.Load().Graph.Ordering(start...)
}

// RunSync queues a run and waits for its report.
// A fatal run returns both the partial report and the *FatalError.
func (e *Engine) RunSync(ctx context.Context, start []string) (*Report, error) {
	resultC := make(chan runResult, 1)
	if _, err := e.submit(start, resultC); err != nil {
		return nil, err
	}

	timeout := time.Duration(e.conf.RunTimeoutMs) * time.Millisecond
	select {
	case res := <-resultC:
		return res.report, res.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("run timeout after %v", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RunAsync queues a run and returns its id. Use Report to fetch the result.
func (e *Engine) RunAsync(start []string) (string, error) {
	return e.submit(start, nil)
}

// Report returns a finished run from the in-memory history.
func (e *Engine) Report(runID string) (*Report, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rep, ok := e.history[runID]
	return rep, ok
}

// Pending reports whether runID is queued or running.
func (e *Engine) Pending(runID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pending[runID]
	return ok
}

// QueueUtilization returns queue used / capacity (0 to 1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// Shutdown stops accepting runs and waits for queued ones to finish.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}

// submit plans against the current snapshot so a bad run list is rejected
// before anything is queued.
func (e *Engine) submit(start []string, resultC chan runResult) (string, error) {
	s := e.snap.Load()
	order, err := s.Graph.Ordering(start...)
	if err != nil {
		return "", err
	}
	j := &runJob{id: uuid.NewString(), order: order, policy: s.Policy, resultC: resultC}

	e.mu.Lock()
	e.pending[j.id] = struct{}{}
	e.mu.Unlock()

	if !e.pool.Submit(j) {
		e.mu.Lock()
		delete(e.pending, j.id)
		e.mu.Unlock()
		metrics.RunsDropped.Inc()
		return "", fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.pool.QueueCap())
	}
	metrics.RunsEnqueued.Inc()
	return j.id, nil
}

func (e *Engine) execute(ctx context.Context, j *runJob) {
	rep, err := runPass(ctx, j.id, j.order, j.policy, e.runner)
	e.record(rep)
	if j.resultC != nil {
		j.resultC <- runResult{report: rep, err: err}
	}
}

func (e *Engine) record(rep *Report) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, rep.RunID)
	e.history[rep.RunID] = rep
	e.recent = append(e.recent, rep.RunID)
	for len(e.recent) > e.conf.HistorySize && e.conf.HistorySize > 0 {
		delete(e.history, e.recent[0])
		e.recent = e.recent[1:]
	}
}

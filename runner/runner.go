// Package runner owns the in-environment test lifecycle: the pending
// registration queue, the Idle → Running → Reporting cycle, sequential
// execution with per-test failure isolation, and result aggregation.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/hostedenv/dom-harness/dom"
	"github.com/hostedenv/dom-harness/reporting"
	"github.com/hostedenv/dom-harness/types"
)

// State is the runner's lifecycle state. Idle is both the initial state
// and the per-run terminal state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateReporting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateReporting:
		return "reporting"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// ErrRunInProgress is returned when a run is requested while another run
// is active. The request is remembered and honored as the next run.
var ErrRunInProgress = errors.New("test run already in progress")

// Config holds configuration for creating a Runner
type Config struct {
	Document *dom.Document // hosting document; required for UI tests and auto-run signals
	Console  io.Writer     // wire-format destination; defaults to the document console
	Log      log.Logger
}

// Runner executes registered test cases sequentially, in registration
// order, and reports results over the console channel.
type Runner struct {
	doc      *dom.Document
	log      log.Logger
	reporter *reporting.ConsoleReporter
	state    atomic.Int32
	started  atomic.Bool
	trigger  chan struct{}

	mu        sync.Mutex // guards pending, scheduled, ready
	pending   []types.TestCase
	scheduled bool
	ready     bool

	resMu   sync.Mutex // guards results and counters
	results []types.RunResult
	passed  int
	failed  int
}

// New creates a Runner. When a document is attached, its readiness events
// (content loaded, full load) both schedule an auto-run through the same
// debounce, so a burst of signals collapses into a single run.
func New(cfg Config) *Runner {
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	console := cfg.Console
	if console == nil {
		if cfg.Document != nil {
			console = cfg.Document.Console()
		} else {
			console = os.Stdout
		}
	}

	r := &Runner{
		doc:      cfg.Document,
		log:      cfg.Log,
		reporter: reporting.NewConsoleReporter(console),
		trigger:  make(chan struct{}, 1),
	}

	if r.doc != nil {
		r.doc.AddEventListener(dom.EventContentLoaded, func() {
			r.mu.Lock()
			r.ready = true
			r.mu.Unlock()
			r.requestRun()
		})
		r.doc.AddEventListener(dom.EventLoad, r.requestRun)
	}
	return r
}

// Register enqueues a test case. Valid in any state: a registration
// arriving mid-run starts the next pending batch rather than joining the
// batch in flight. Once the document's content-loaded signal has fired,
// registration also schedules an auto-run.
func (r *Runner) Register(name string, action func(ctx context.Context) error) {
	r.mu.Lock()
	r.pending = append(r.pending, types.TestCase{Name: name, Action: action})
	ready := r.ready
	r.mu.Unlock()

	r.log.Debug("Registered test", "name", name, "state", r.State())
	if ready {
		r.requestRun()
	}
}

// RegisterUI enqueues a UI test: the action runs inside a sandbox seeded
// with the fixture template addressed by selector. Fixture failures fail
// the test like any other test-body error.
func (r *Runner) RegisterUI(name, selector string, fn func(sb *dom.Sandbox) error) {
	r.Register(name, func(ctx context.Context) error {
		if r.doc == nil {
			return fmt.Errorf("ui test %q: no document attached", name)
		}
		return r.doc.WithSandbox(func(sb *dom.Sandbox) error {
			if err := sb.InstantiateFixture(selector); err != nil {
				return err
			}
			return fn(sb)
		})
	})
}

// State returns the runner's current lifecycle state
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Results returns a copy of the results of the most recent run, in
// execution order
func (r *Runner) Results() []types.RunResult {
	r.resMu.Lock()
	defer r.resMu.Unlock()
	out := make([]types.RunResult, len(r.results))
	copy(out, r.results)
	return out
}

// Start launches the scheduling loop that services auto-run requests.
// It returns immediately; the loop exits when ctx is canceled.
func (r *Runner) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.loop(ctx)
}

func (r *Runner) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Context canceled, stopping runner loop")
			return
		case <-r.trigger:
			r.mu.Lock()
			r.scheduled = false
			r.mu.Unlock()
			if _, err := r.RunPending(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
				r.log.Error("Scheduled run failed", "error", err)
			}
		}
	}
}

// requestRun schedules a run. Requests arriving within one scheduling
// window collapse into a single trigger; a request arriving while a run
// is active becomes the next run.
func (r *Runner) requestRun() {
	r.mu.Lock()
	if r.scheduled {
		r.mu.Unlock()
		return
	}
	r.scheduled = true
	r.mu.Unlock()

	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// RunPending drains the pending queue and executes the captured batch
// sequentially, then reports. Returns true iff no test failed. An empty
// queue is a no-op: no state transition, no report. If a run is already
// active, the request is re-scheduled and ErrRunInProgress returned.
func (r *Runner) RunPending(ctx context.Context) (bool, error) {
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		r.requestRun()
		return false, ErrRunInProgress
	}

	// Capture-and-clear: registrations from here on belong to the next
	// batch and can neither join nor race the in-flight iteration.
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		r.state.Store(int32(StateIdle))
		return true, nil
	}

	start := time.Now()
	r.resMu.Lock()
	r.results = r.results[:0]
	r.passed, r.failed = 0, 0
	r.resMu.Unlock()

	r.log.Info("Running tests", "count", len(batch))
	for _, tc := range batch {
		res := r.execute(ctx, tc)
		r.resMu.Lock()
		r.results = append(r.results, res)
		if res.Passed {
			r.passed++
		} else {
			r.failed++
		}
		r.resMu.Unlock()
	}

	r.state.Store(int32(StateReporting))
	defer r.state.Store(int32(StateIdle))

	r.resMu.Lock()
	results := make([]types.RunResult, len(r.results))
	copy(results, r.results)
	failed := r.failed
	r.resMu.Unlock()

	summary := types.Summarize(results, start)
	if err := r.reporter.Report(results, summary); err != nil {
		return failed == 0, fmt.Errorf("reporting results: %w", err)
	}

	if failed > 0 && r.doc != nil {
		r.doc.Alert(fmt.Sprintf("%d of %d tests failed", failed, summary.Total))
	}

	r.log.Info("Test run completed",
		"total", summary.Total, "passed", summary.Passed, "failed", summary.Failed,
		"duration", summary.Duration)
	return failed == 0, nil
}

// execute runs one case to completion, converting returned errors and
// recovered panics into a failing result. A failing case never aborts
// the batch.
func (r *Runner) execute(ctx context.Context, tc types.TestCase) (res types.RunResult) {
	start := time.Now()
	res = types.RunResult{Name: tc.Name}
	defer func() {
		res.Duration = time.Since(start)
		if rec := recover(); rec != nil {
			res.Passed = false
			res.Err = fmt.Errorf("panic: %v", rec)
			r.log.Error("Test panicked", "name", tc.Name, "panic", rec)
		}
	}()

	if err := tc.Action(ctx); err != nil {
		res.Err = err
		r.log.Debug("Test failed", "name", tc.Name, "error", err)
		return res
	}
	res.Passed = true
	r.log.Debug("Test passed", "name", tc.Name)
	return res
}

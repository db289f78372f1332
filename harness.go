// Package harness supervises hosted document environments. Each
// environment runs its tests in-process and reports over its console; the
// harness captures that console text, re-extracts structured results from
// it, and renders a verdict.
package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/hostedenv/dom-harness/exitcodes"
	"github.com/hostedenv/dom-harness/extract"
	"github.com/hostedenv/dom-harness/hostenv"
	"github.com/hostedenv/dom-harness/logging"
	"github.com/hostedenv/dom-harness/metrics"
	"github.com/hostedenv/dom-harness/registry"
	"github.com/hostedenv/dom-harness/types"
)

// Harness supervises document environments and extracts their results.
type Harness struct {
	ctx       context.Context
	config    *Config
	version   string
	registry  *registry.Registry
	scheduler RunScheduler
	tracer    trace.Tracer
	result    *HarnessResult

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*Harness, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating harness with config",
		"manifest", config.ManifestFile,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"captureTimeout", config.CaptureTimeout,
		"logDir", config.LogDir)

	reg, err := registry.NewRegistry(registry.Config{
		Log:            config.Log,
		ManifestFile:   config.ManifestFile,
		DefaultTimeout: config.CaptureTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}
	config.Log.Info("harness.New: created registry", "environments", len(reg.GetEnvironments()))

	h := &Harness{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		scheduler:        NewDefaultRunScheduler(config.RunInterval, config.RunOnce, config.Log),
		tracer:           otel.Tracer("dom-harness"),
		shutdownCallback: shutdownCallback,
	}
	h.scheduler.RegisterCallback(h.runDocuments)
	return h, nil
}

// Start runs the harness once, then periodically at the configured
// interval unless in run-once mode.
func (h *Harness) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			h.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	h.ctx = ctx
	h.running.Store(true)

	if h.config.RunOnce {
		h.config.Log.Info("Starting dom-harness in run-once mode")
	} else {
		h.config.Log.Info("Starting dom-harness in continuous mode", "interval", h.config.RunInterval)
	}

	if err := h.scheduler.Start(ctx); err != nil {
		h.config.Log.Error("Runtime error running documents", "error", err)
		return NewRuntimeError(err)
	}

	// If in run-once mode, trigger shutdown and return
	if h.config.RunOnce {
		h.config.Log.Info("Run completed, exiting (run-once mode)")

		if h.result != nil && h.result.Status == types.TestStatusFail {
			h.config.Log.Warn("Run-once completed with failures, returning exit code 1")
			return NewTestFailureError(h.result.String())
		}

		// Only need to call this when we're in run-once mode and all tests passed
		go func() {
			h.shutdownCallback(nil)
		}()
		return nil
	}

	h.config.Log.Debug("dom-harness started successfully")
	return nil
}

// runDocuments supervises every configured environment once: capture the
// console, persist the raw capture, extract records, then render the
// aggregate verdict. A launch or protocol failure is a runtime error; it
// is surfaced after all environments have had their turn so one broken
// document does not hide the others' results.
func (h *Harness) runDocuments() error {
	start := time.Now()
	runID := uuid.New().String()
	h.config.Log.Info("Running all documents...", "run_id", runID)

	ctx, span := h.tracer.Start(h.ctx, "harness run")
	defer span.End()

	fileLogger, err := logging.NewFileLogger(h.config.LogDir, runID)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}

	result := &HarnessResult{RunID: runID}
	var runtimeErrs []error

	for _, env := range h.registry.GetEnvironments() {
		doc, err := h.superviseDocument(ctx, runID, env, fileLogger)
		if err != nil {
			runtimeErrs = append(runtimeErrs, fmt.Errorf("%s: %w", env.Name, err))
		}
		result.Documents = append(result.Documents, doc)
	}
	result.Duration = time.Since(start)
	result.summarize()
	h.result = result

	h.printResultsTable(result)
	fmt.Println(result.String())

	if err := fileLogger.WriteSummary(result.String() + "\n"); err != nil {
		h.config.Log.Error("Failed to write run summary", "run_id", runID, "error", err)
	}

	metrics.RecordHarnessRun(
		runID,
		string(result.Status),
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.Failed,
		result.Duration,
	)

	if len(runtimeErrs) > 0 {
		return NewRuntimeError(errors.Join(runtimeErrs...))
	}
	h.config.Log.Info("Run completed", "run_id", runID, "status", result.Status)
	return nil
}

// superviseDocument captures and extracts one environment. The returned
// DocumentResult is always populated; the error reports launch or
// protocol failures.
func (h *Harness) superviseDocument(ctx context.Context, runID string, env hostenv.Environment, fileLogger *logging.FileLogger) (*DocumentResult, error) {
	start := time.Now()
	name := env.Name
	doc := &DocumentResult{Environment: name, Status: types.TestStatusFail}
	defer func() { doc.Duration = time.Since(start) }()

	_, span := h.tracer.Start(ctx, name)
	defer span.End()

	lines, err := env.Capture(ctx, h.config.Log)
	if err != nil {
		doc.Err = err
		metrics.RecordExtraction(runID, name, "launch_error")
		return doc, err
	}
	if err := fileLogger.WriteConsoleCapture(name, lines); err != nil {
		h.config.Log.Error("Failed to persist console capture", "document", name, "error", err)
	}

	ext, err := extract.Extract(lines)
	if err != nil {
		doc.Err = err
		metrics.RecordExtraction(runID, name, "protocol_error")
		return doc, err
	}
	doc.Extraction = ext

	if ext.FailedCount() == 0 {
		doc.Status = types.TestStatusPass
		metrics.RecordExtraction(runID, name, "pass")
	} else {
		metrics.RecordExtraction(runID, name, "fail")
	}
	return doc, nil
}

// Stop stops the harness service.
func (h *Harness) Stop(ctx context.Context) error {
	h.config.Log.Info("Stopping dom-harness")

	// Check if we're already stopped
	if !h.running.Load() {
		h.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}

	h.running.Store(false)
	if err := h.scheduler.Stop(); err != nil {
		return err
	}

	h.config.Log.Info("dom-harness stopped successfully")
	return nil
}

// Stopped returns true if the harness service is stopped.
func (h *Harness) Stopped() bool {
	return !h.running.Load()
}

// WaitForShutdown blocks until all goroutines have terminated.
func (h *Harness) WaitForShutdown(ctx context.Context) error {
	return h.scheduler.WaitForShutdown(ctx)
}

// printResultsTable prints the per-document and per-record results.
func (h *Harness) printResultsTable(result *HarnessResult) {
	h.config.Log.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Document Test Results (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Tests", "Passed", "Failed", "Status", "Error",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, doc := range result.Documents {
		var passed, failed int
		var records []types.ExtractedTestResult
		if doc.Extraction != nil {
			passed = doc.Extraction.PassedCount()
			failed = doc.Extraction.FailedCount()
			records = doc.Extraction.Results
		}

		errMsg := ""
		if doc.Err != nil {
			errMsg = firstLine(doc.Err.Error())
		}

		t.AppendRow(table.Row{
			"Document",
			doc.Environment,
			formatDuration(doc.Duration),
			"-", // Don't count the document as a test
			passed,
			failed,
			getResultString(doc.Status),
			errMsg,
		})

		for i, rec := range records {
			prefix := "├──"
			if i == len(records)-1 {
				prefix = "└──"
			}

			status := types.TestStatusPass
			if !rec.Passed() {
				status = types.TestStatusFail
			}

			t.AppendRow(table.Row{
				"Test",
				fmt.Sprintf("%s %s", prefix, rec.Name),
				"-",
				"1", // Count actual test
				boolToInt(rec.Passed()),
				boolToInt(!rec.Passed()),
				getResultString(status),
				rec.Error,
			})
		}

		t.AppendSeparator()
	}

	if result.Status == types.TestStatusPass {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(result.Duration),
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.Failed,
		getResultString(result.Status),
		"",
	})

	t.Render()
}

// Helper function to convert bool to int
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// getResultString returns a string representing the test result
func getResultString(status types.TestStatus) string {
	if status == types.TestStatusPass {
		return "✓ pass"
	}
	return "✗ fail"
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// firstLine truncates multi-line error text for table display
func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	if len(s) > 80 {
		return s[:70] + "..."
	}
	return s
}

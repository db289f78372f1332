package types

import (
	"context"
	"time"
)

// TestStatus represents the possible states of a test execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
)

// TestCase is a registered test: a name and the action that runs it.
// Immutable after registration; owned by the pending queue until drained.
type TestCase struct {
	Name   string
	Action func(ctx context.Context) error
}

// RunResult captures the outcome of a single executed test case
type RunResult struct {
	Name     string
	Passed   bool
	Err      error // nil for passing cases
	Duration time.Duration
}

// Status returns the status corresponding to the result's pass flag
func (r RunResult) Status() TestStatus {
	if r.Passed {
		return TestStatusPass
	}
	return TestStatusFail
}

// RunSummary aggregates the results of one run. It is derived from the
// result list and a start timestamp, never stored independently.
type RunSummary struct {
	Total    int
	Passed   int
	Failed   int
	Duration time.Duration
}

// Summarize computes a RunSummary from a result list and the run start time
func Summarize(results []RunResult, start time.Time) RunSummary {
	s := RunSummary{Total: len(results), Duration: time.Since(start)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// DurationSeconds returns the run duration in seconds
func (s RunSummary) DurationSeconds() float64 {
	return s.Duration.Seconds()
}

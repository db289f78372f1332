// Package reporting renders a run's results as the line-oriented wire
// format the supervisor re-parses. The marker prefixes are chosen so that
// ordinary diagnostic text cannot be mistaken for a result line.
package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/hostedenv/dom-harness/types"
)

// Wire-format markers. The supervisor-side extractor matches on these
// exact prefixes; change them in lockstep with package extract.
const (
	HeaderPrefix = "📊 Tests: "
	PassMarker   = "✅ "
	FailMarker   = "❌ "
	PassedPrefix = "✅ Passed: "
	FailedPrefix = "❌ Failed: "
	AllClearLine = "🎉 All tests passed!"
)

// ConsoleReporter writes the wire format to a console channel
type ConsoleReporter struct {
	w io.Writer
}

// NewConsoleReporter creates a reporter writing to w
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

// Report emits the header, one line per result in execution order, and
// the summary lines. Failure detail goes on indented continuation lines
// that match none of the markers.
func (r *ConsoleReporter) Report(results []types.RunResult, summary types.RunSummary) error {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s%d\n", HeaderPrefix, summary.Total))

	for _, res := range results {
		if res.Passed {
			b.WriteString(fmt.Sprintf("%s%s\n", PassMarker, res.Name))
			continue
		}
		b.WriteString(fmt.Sprintf("%s%s\n", FailMarker, res.Name))
		if res.Err != nil {
			for _, line := range strings.Split(res.Err.Error(), "\n") {
				b.WriteString(fmt.Sprintf("   %s\n", line))
			}
		}
	}

	b.WriteString(fmt.Sprintf("%s%d\n", PassedPrefix, summary.Passed))
	if summary.Failed > 0 {
		b.WriteString(fmt.Sprintf("%s%d\n", FailedPrefix, summary.Failed))
	} else {
		b.WriteString(AllClearLine + "\n")
	}
	b.WriteString(fmt.Sprintf("⏱  %.1fs\n", summary.DurationSeconds()))

	_, err := io.WriteString(r.w, b.String())
	return err
}

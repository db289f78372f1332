package harness

import (
	"fmt"
	"strings"
	"time"

	"github.com/hostedenv/dom-harness/extract"
	"github.com/hostedenv/dom-harness/types"
)

// ResultStats tracks pass/fail totals across extracted records
type ResultStats struct {
	Total  int
	Passed int
	Failed int
}

// DocumentResult is the outcome of supervising one hosted document
// environment: the capture, its extraction, and the verdict.
type DocumentResult struct {
	Environment string
	Extraction  *extract.Extraction
	Status      types.TestStatus
	Err         error // launch or protocol error; nil when extraction succeeded
	Duration    time.Duration
}

// HarnessResult aggregates one run across all configured environments
type HarnessResult struct {
	RunID     string
	Documents []*DocumentResult
	Stats     ResultStats
	Status    types.TestStatus
	Duration  time.Duration
}

// String returns a human-readable summary of the run
func (r *HarnessResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Harness run %s: %s\n", r.RunID, r.Status)
	fmt.Fprintf(&b, "Total: %d, Passed: %d, Failed: %d, Duration: %.1fs\n",
		r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Duration.Seconds())
	for _, doc := range r.Documents {
		if doc.Status == types.TestStatusPass {
			continue
		}
		if doc.Err != nil {
			fmt.Fprintf(&b, "  %s: %v\n", doc.Environment, doc.Err)
			continue
		}
		for _, rec := range doc.Extraction.Results {
			if rec.Passed() {
				continue
			}
			fmt.Fprintf(&b, "  %s: %s: %s\n", doc.Environment, rec.Name, rec.Error)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// summarize derives the aggregate stats and status from the per-document
// results. A document with no extraction counts as failed.
func (r *HarnessResult) summarize() {
	r.Status = types.TestStatusPass
	for _, doc := range r.Documents {
		if doc.Extraction != nil {
			r.Stats.Total += len(doc.Extraction.Results)
			r.Stats.Passed += doc.Extraction.PassedCount()
			r.Stats.Failed += doc.Extraction.FailedCount()
		}
		if doc.Status == types.TestStatusFail {
			r.Status = types.TestStatusFail
		}
	}
	if r.Stats.Total == 0 {
		r.Status = types.TestStatusFail
	}
}

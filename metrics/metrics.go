package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "dom_harness"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "extractions_total",
		Help:      "Count of result extractions from captured console output",
	}, []string{
		"run_id",
		"document",
		"result",
	})

	harnessResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "harness_results",
		Help:      "Result of harness runs",
	}, []string{
		"run_id",
		"result",
	})

	harnessTestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "harness_test_total",
		Help:      "Total number of extracted test records",
	}, []string{
		"run_id",
	})

	harnessTestPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "harness_test_passed",
		Help:      "Number of passed test records",
	}, []string{
		"run_id",
	})

	harnessTestFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "harness_test_failed",
		Help:      "Number of failed test records",
	}, []string{
		"run_id",
	})

	harnessRunDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "harness_run_duration",
		Help:      "Duration of harness runs",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordExtraction records the outcome of extracting one document's
// console capture
func RecordExtraction(runID string, document string, result string) {
	if Debug {
		log.Debug("metric inc",
			"m", "extractions_total",
			"run_id", runID,
			"document", document,
			"result", result)
	}
	extractionsTotal.WithLabelValues(runID, document, result).Inc()
}

// RecordHarnessRun records the aggregate outcome of one harness run
func RecordHarnessRun(
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	duration time.Duration,
) {
	harnessResults.WithLabelValues(runID, result).Set(1)
	harnessTestTotal.WithLabelValues(runID).Add(float64(total))
	harnessTestPassed.WithLabelValues(runID).Add(float64(passed))
	harnessTestFailed.WithLabelValues(runID).Add(float64(failed))
	harnessRunDuration.WithLabelValues(runID).Set(duration.Seconds())
}

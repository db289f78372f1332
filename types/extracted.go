package types

// ExtractedStatus is the status of a test result reconstructed from
// captured console output. Only pass/fail survives the text protocol.
type ExtractedStatus string

const (
	ExtractedStatusPassed ExtractedStatus = "passed"
	ExtractedStatusFailed ExtractedStatus = "failed"
)

// ExtractedTestResult is a structured record reconstructed by the
// supervisor from the hosted environment's console lines. Error holds a
// generic placeholder for failed records; no structured detail crosses
// the text boundary.
type ExtractedTestResult struct {
	Name   string
	Status ExtractedStatus
	Error  string
}

// Passed reports whether the record represents a passing test
func (r ExtractedTestResult) Passed() bool {
	return r.Status == ExtractedStatusPassed
}

// Package exitcodes defines standardized exit codes for the application
package exitcodes

const (
	// Success indicates all extracted tests passed
	Success = 0

	// TestFailure indicates at least one extracted test failed
	TestFailure = 1

	// RuntimeErr indicates an operational error (config, launch, protocol)
	RuntimeErr = 2
)

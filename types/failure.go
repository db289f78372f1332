package types

import (
	"errors"
	"fmt"
	"strings"
)

// Difference is a single leaf-level mismatch discovered by a structural
// comparison. Path is the sequence of keys/indices from the comparison root.
type Difference struct {
	Path     []string
	Actual   any
	Expected any
}

// PathString renders the difference path as a dotted key sequence
func (d Difference) PathString() string {
	if len(d.Path) == 0 {
		return "(root)"
	}
	return strings.Join(d.Path, ".")
}

func (d Difference) String() string {
	return fmt.Sprintf("%s: actual=%v expected=%v", d.PathString(), d.Actual, d.Expected)
}

// AssertionError is the failure raised by the assertion operations.
// For structural comparisons it carries the full difference list along
// with the raw operands; identity and truthiness checks carry only the
// operands. Any other error raised inside a test body is treated as an
// opaque failure and needs no type of its own.
type AssertionError struct {
	Message     string
	Actual      any
	Expected    any
	Differences []Difference
}

func (e *AssertionError) Error() string {
	if len(e.Differences) == 0 {
		return e.Message
	}
	var b strings.Builder
	b.WriteString(e.Message)
	for _, d := range e.Differences {
		b.WriteString("\n  ")
		b.WriteString(d.String())
	}
	return b.String()
}

// IsAssertionError checks if the error is or wraps an AssertionError
func IsAssertionError(err error) bool {
	var assertErr *AssertionError
	return err != nil && errors.As(err, &assertErr)
}

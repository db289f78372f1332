// Package assert provides the checks available to hosted test bodies.
// Each check returns a *types.AssertionError on failure and nil on
// success; test actions propagate the error back to the runner.
package assert

import (
	"fmt"
	"reflect"

	"github.com/hostedenv/dom-harness/diff"
	"github.com/hostedenv/dom-harness/types"
)

// Equal checks strict equality: identical dynamic type and ==.
// It does not compare structurally; use DeepEqual for that.
func Equal(actual, expected any) error {
	if strictEqual(actual, expected) {
		return nil
	}
	return &types.AssertionError{
		Message:  fmt.Sprintf("expected %v to equal %v", actual, expected),
		Actual:   actual,
		Expected: expected,
	}
}

// DeepEqual compares the two values structurally and fails iff the
// comparison yields at least one difference. The failure carries the
// full difference list for diagnostics.
func DeepEqual(actual, expected any) error {
	diffs := diff.Diff(actual, expected)
	if len(diffs) == 0 {
		return nil
	}
	return &types.AssertionError{
		Message:     fmt.Sprintf("expected %v to deep equal %v", actual, expected),
		Actual:      actual,
		Expected:    expected,
		Differences: diffs,
	}
}

// OK fails when value is falsy: nil, false, numeric zero or the empty
// string. An optional message overrides the default.
func OK(value any, msg ...string) error {
	if truthy(value) {
		return nil
	}
	message := fmt.Sprintf("expected %v to be truthy", value)
	if len(msg) > 0 && msg[0] != "" {
		message = msg[0]
	}
	return &types.AssertionError{
		Message:  message,
		Actual:   value,
		Expected: true,
	}
}

func strictEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func truthy(value any) bool {
	if value == nil {
		return false
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return v.Float() != 0
	case reflect.String:
		return v.Len() != 0
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return !v.IsNil()
	default:
		return true
	}
}

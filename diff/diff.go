// Package diff implements the structural comparison used by assertions.
// It walks two values in lockstep and reports every leaf-level mismatch
// together with the key path at which it was found.
package diff

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/hostedenv/dom-harness/types"
)

type absent struct{}

func (absent) String() string { return "<absent>" }

// Absent is reported as the value of a key that exists in only one of the
// two operands. Comparing any value against Absent yields one Difference.
var Absent any = absent{}

// Diff compares actual against expected and returns every leaf-level
// mismatch, in deterministic order (sorted key enumeration, numeric
// indices in numeric order). Each call performs a fresh traversal, so
// repeated calls on unchanged inputs return identical sequences.
//
// Maps, structs, slices and arrays (through any level of pointers) are
// treated as key-indexed composites and compared over the union of their
// keys; everything else is a leaf compared by strict equality (identical
// dynamic type and ==). Cyclic structures are handled by a visited-pair
// guard: a pair of nodes already on the current descent path is not
// descended into again.
func Diff(actual, expected any) []types.Difference {
	w := &walker{active: make(map[visit]bool)}
	return w.diff(actual, expected, nil)
}

// visit identifies a pair of composite nodes on the current descent path
type visit struct {
	actual   uintptr
	expected uintptr
}

type walker struct {
	active map[visit]bool
}

func (w *walker) diff(actual, expected any, path []string) []types.Difference {
	if leafEqual(actual, expected) {
		return nil
	}

	av, aid, aok := compositeValue(actual)
	bv, bid, bok := compositeValue(expected)
	if !aok || !bok {
		return []types.Difference{{Path: clonePath(path), Actual: actual, Expected: expected}}
	}

	if aid != 0 && bid != 0 {
		v := visit{actual: aid, expected: bid}
		if w.active[v] {
			return nil
		}
		w.active[v] = true
		defer delete(w.active, v)
	}

	var out []types.Difference
	for _, key := range unionKeys(av, bv) {
		aval, apresent := lookupKey(av, key)
		bval, bpresent := lookupKey(bv, key)
		if !apresent {
			aval = Absent
		}
		if !bpresent {
			bval = Absent
		}
		child := append(path[:len(path):len(path)], key)
		out = append(out, w.diff(aval, bval, child)...)
	}
	return out
}

// leafEqual reports strict equality: identical dynamic type and ==.
// Values of non-comparable types are never leaf-equal.
func leafEqual(a, b any) bool {
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

// compositeValue reports whether x is a key-indexed composite. It unwraps
// pointer chains and returns the underlying value plus a pointer identity
// (0 when the value carries none) used for cycle detection.
func compositeValue(x any) (reflect.Value, uintptr, bool) {
	if x == nil {
		return reflect.Value{}, 0, false
	}
	if _, ok := x.(absent); ok {
		return reflect.Value{}, 0, false
	}

	v := reflect.ValueOf(x)
	var id uintptr
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, 0, false
		}
		if v.Kind() == reflect.Pointer {
			id = v.Pointer()
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map, reflect.Slice:
		if !v.IsNil() {
			id = v.Pointer()
		}
		return v, id, true
	case reflect.Struct, reflect.Array:
		return v, id, true
	default:
		return reflect.Value{}, 0, false
	}
}

// unionKeys enumerates the union of own keys across both composites,
// sorted so that traversal order is deterministic
func unionKeys(a, b reflect.Value) []string {
	set := make(map[string]bool)
	collectKeys(a, set)
	collectKeys(b, set)

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, erri := strconv.Atoi(keys[i])
		nj, errj := strconv.Atoi(keys[j])
		if erri == nil && errj == nil {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func collectKeys(v reflect.Value, set map[string]bool) {
	switch v.Kind() {
	case reflect.Map:
		for _, k := range v.MapKeys() {
			set[fmt.Sprint(k.Interface())] = true
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() {
				set[t.Field(i).Name] = true
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			set[strconv.Itoa(i)] = true
		}
	}
}

func lookupKey(v reflect.Value, key string) (any, bool) {
	switch v.Kind() {
	case reflect.Map:
		for _, k := range v.MapKeys() {
			if fmt.Sprint(k.Interface()) == key {
				return v.MapIndex(k).Interface(), true
			}
		}
	case reflect.Struct:
		f, ok := v.Type().FieldByName(key)
		if ok && f.IsExported() {
			return v.FieldByIndex(f.Index).Interface(), true
		}
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err == nil && i >= 0 && i < v.Len() {
			return v.Index(i).Interface(), true
		}
	}
	return nil, false
}

func clonePath(path []string) []string {
	if len(path) == 0 {
		return nil
	}
	out := make([]string, len(path))
	copy(out, path)
	return out
}

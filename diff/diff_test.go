package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffIdenticalValues(t *testing.T) {
	tests := []struct {
		name string
		a    any
		b    any
	}{
		{name: "identical ints", a: 1, b: 1},
		{name: "identical strings", a: "x", b: "x"},
		{name: "both nil", a: nil, b: nil},
		{name: "equal maps", a: map[string]int{"a": 1}, b: map[string]int{"a": 1}},
		{name: "equal nested", a: map[string]any{"a": 1, "b": map[string]any{"c": 2}}, b: map[string]any{"a": 1, "b": map[string]any{"c": 2}}},
		{name: "equal slices", a: []int{1, 2, 3}, b: []int{1, 2, 3}},
		{name: "equal structs", a: struct{ X int }{1}, b: struct{ X int }{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Diff(tt.a, tt.b))
		})
	}
}

func TestDiffPrimitiveMismatch(t *testing.T) {
	diffs := Diff(1, 2)
	require.Len(t, diffs, 1)
	assert.Empty(t, diffs[0].Path)
	assert.Equal(t, 1, diffs[0].Actual)
	assert.Equal(t, 2, diffs[0].Expected)
}

func TestDiffMixedTypes(t *testing.T) {
	// A composite against a primitive is a single mismatch at the
	// current path, with no descent.
	diffs := Diff(map[string]int{"a": 1}, 5)
	require.Len(t, diffs, 1)
	assert.Empty(t, diffs[0].Path)
}

func TestDiffNestedMismatch(t *testing.T) {
	a := map[string]any{"a": 1, "b": map[string]any{"c": 2}}
	b := map[string]any{"a": 1, "b": map[string]any{"c": 3}}

	diffs := Diff(a, b)
	require.Len(t, diffs, 1)
	assert.Equal(t, []string{"b", "c"}, diffs[0].Path)
	assert.Equal(t, 2, diffs[0].Actual)
	assert.Equal(t, 3, diffs[0].Expected)
}

func TestDiffMissingKeys(t *testing.T) {
	a := map[string]any{"a": 1, "only_a": true}
	b := map[string]any{"a": 1, "only_b": "x"}

	diffs := Diff(a, b)
	require.Len(t, diffs, 2)

	// Keys are enumerated in sorted order.
	assert.Equal(t, []string{"only_a"}, diffs[0].Path)
	assert.Equal(t, true, diffs[0].Actual)
	assert.Equal(t, Absent, diffs[0].Expected)

	assert.Equal(t, []string{"only_b"}, diffs[1].Path)
	assert.Equal(t, Absent, diffs[1].Actual)
	assert.Equal(t, "x", diffs[1].Expected)
}

func TestDiffSlices(t *testing.T) {
	diffs := Diff([]int{1, 2, 3}, []int{1, 5})
	require.Len(t, diffs, 2)
	assert.Equal(t, []string{"1"}, diffs[0].Path)
	assert.Equal(t, 2, diffs[0].Actual)
	assert.Equal(t, 5, diffs[0].Expected)
	assert.Equal(t, []string{"2"}, diffs[1].Path)
	assert.Equal(t, Absent, diffs[1].Expected)
}

func TestDiffSliceIndexOrdering(t *testing.T) {
	// Indices sort numerically, not lexically: 2 before 10.
	a := make([]int, 11)
	b := make([]int, 11)
	b[2] = 1
	b[10] = 1

	diffs := Diff(a, b)
	require.Len(t, diffs, 2)
	assert.Equal(t, []string{"2"}, diffs[0].Path)
	assert.Equal(t, []string{"10"}, diffs[1].Path)
}

func TestDiffStructs(t *testing.T) {
	type inner struct{ C int }
	type outer struct {
		A int
		B inner
	}

	diffs := Diff(outer{A: 1, B: inner{C: 2}}, outer{A: 1, B: inner{C: 3}})
	require.Len(t, diffs, 1)
	assert.Equal(t, []string{"B", "C"}, diffs[0].Path)
}

func TestDiffPointersFollowed(t *testing.T) {
	type point struct{ X, Y int }
	a := &point{X: 1, Y: 2}
	b := &point{X: 1, Y: 9}

	diffs := Diff(a, b)
	require.Len(t, diffs, 1)
	assert.Equal(t, []string{"Y"}, diffs[0].Path)
}

func TestDiffTypeMismatchIsLeaf(t *testing.T) {
	// Same numeric value, different dynamic type: strict inequality.
	diffs := Diff(1, int64(1))
	require.Len(t, diffs, 1)
}

func TestDiffIdempotent(t *testing.T) {
	a := map[string]any{"x": []int{1, 2}, "y": "a", "z": map[string]int{"k": 1}}
	b := map[string]any{"x": []int{1, 3}, "y": "b", "z": map[string]int{"k": 2}}

	first := Diff(a, b)
	second := Diff(a, b)
	require.Equal(t, first, second)
}

func TestDiffCyclicStructures(t *testing.T) {
	a := map[string]any{"v": 1}
	a["self"] = a
	b := map[string]any{"v": 1}
	b["self"] = b

	// Equal cyclic structures terminate and report nothing.
	assert.Empty(t, Diff(a, b))

	c := map[string]any{"v": 2}
	c["self"] = c
	diffs := Diff(a, c)
	require.NotEmpty(t, diffs)
	assert.Equal(t, []string{"v"}, diffs[0].Path)
}

func TestDiffNilOperands(t *testing.T) {
	diffs := Diff(nil, map[string]int{"a": 1})
	require.Len(t, diffs, 1)
	assert.Nil(t, diffs[0].Actual)
}

package models

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies the element type carried by a Value.
type Kind int

const (
	Float Kind = iota
	Int
	String
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float64"
	case Int:
		return "int64"
	case String:
		return "string"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a typed leaf payload: a scalar or an N-dimensional array of
// floats, integers or strings stored in row-major order.
type Value struct {
	// Kind selects which of the payload slices is populated
	Kind Kind

	// Shape is nil for scalars. A 1-D array of n elements has Shape {n}
	Shape []int

	Floats  []float64
	Ints    []int64
	Strings []string
}

// Attributes are the named values attached to a group or a dataset.
type Attributes map[string]Value

// Keys returns the attribute names in lexical order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func FloatScalar(f float64) Value { return Value{Kind: Float, Floats: []float64{f}} }
func IntScalar(i int64) Value     { return Value{Kind: Int, Ints: []int64{i}} }
func StringScalar(s string) Value { return Value{Kind: String, Strings: []string{s}} }

func FloatArray(v []float64) Value {
	return Value{Kind: Float, Shape: []int{len(v)}, Floats: v}
}

func IntArray(v []int64) Value {
	return Value{Kind: Int, Shape: []int{len(v)}, Ints: v}
}

func StringArray(v []string) Value {
	return Value{Kind: String, Shape: []int{len(v)}, Strings: v}
}

// FloatMatrix flattens rows into a 2-D array. All rows must share a length.
func FloatMatrix(rows [][]float64) Value {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	flat := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		flat = append(flat, r...)
	}
	return Value{Kind: Float, Shape: []int{len(rows), cols}, Floats: flat}
}

// IntMatrix flattens rows into a 2-D array. All rows must share a length.
func IntMatrix(rows [][]int64) Value {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	flat := make([]int64, 0, len(rows)*cols)
	for _, r := range rows {
		flat = append(flat, r...)
	}
	return Value{Kind: Int, Shape: []int{len(rows), cols}, Ints: flat}
}

// IsScalar reports whether the value has no array dimensions.
func (v Value) IsScalar() bool { return len(v.Shape) == 0 }

// Len returns the number of stored elements.
func (v Value) Len() int {
	switch v.Kind {
	case Float:
		return len(v.Floats)
	case Int:
		return len(v.Ints)
	case String:
		return len(v.Strings)
	}
	return 0
}

// Validate checks that the payload length agrees with the shape.
func (v Value) Validate() error {
	want := 1
	for _, d := range v.Shape {
		if d < 0 {
			return fmt.Errorf("negative dimension in shape %v", v.Shape)
		}
		want *= d
	}
	if got := v.Len(); got != want {
		return fmt.Errorf("%s value holds %d elements, shape %v needs %d", v.Kind, got, v.Shape, want)
	}
	return nil
}

// Rows slices the value along its first axis, returning rows [start, end).
func (v Value) Rows(start, end int) (Value, error) {
	if v.IsScalar() {
		return Value{}, fmt.Errorf("cannot slice rows of a scalar")
	}
	if start < 0 || end > v.Shape[0] || start > end {
		return Value{}, fmt.Errorf("row range [%d, %d) outside first dimension %d", start, end, v.Shape[0])
	}
	stride := 1
	for _, d := range v.Shape[1:] {
		stride *= d
	}
	out := Value{Kind: v.Kind, Shape: append([]int{end - start}, v.Shape[1:]...)}
	lo, hi := start*stride, end*stride
	switch v.Kind {
	case Float:
		out.Floats = append([]float64(nil), v.Floats[lo:hi]...)
	case Int:
		out.Ints = append([]int64(nil), v.Ints[lo:hi]...)
	case String:
		out.Strings = append([]string(nil), v.Strings[lo:hi]...)
	}
	return out, nil
}

// Float64s returns the payload as floats, converting integers.
func (v Value) Float64s() []float64 {
	switch v.Kind {
	case Float:
		return v.Floats
	case Int:
		out := make([]float64, len(v.Ints))
		for i, x := range v.Ints {
			out[i] = float64(x)
		}
		return out
	}
	return nil
}

// Interface converts the value into plain Go data: a scalar becomes
// float64, int64 or string and arrays become nested []any.
func (v Value) Interface() any {
	elem := func(i int) any {
		switch v.Kind {
		case Float:
			return v.Floats[i]
		case Int:
			return v.Ints[i]
		default:
			return v.Strings[i]
		}
	}
	if v.IsScalar() {
		if v.Len() == 0 {
			return nil
		}
		return elem(0)
	}
	var build func(dim, offset int) ([]any, int)
	build = func(dim, offset int) ([]any, int) {
		out := make([]any, v.Shape[dim])
		for i := range out {
			if dim == len(v.Shape)-1 {
				out[i] = elem(offset)
				offset++
				continue
			}
			out[i], offset = build(dim+1, offset)
		}
		return out, offset
	}
	out, _ := build(0, 0)
	return out
}

func (v Value) String() string {
	if v.IsScalar() {
		return fmt.Sprint(v.Interface())
	}
	dims := make([]string, len(v.Shape))
	for i, d := range v.Shape {
		dims[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("%s[%s]", v.Kind, strings.Join(dims, "x"))
}

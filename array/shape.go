package array

import (
	"fmt"
	"strconv"
	"strings"
)

// Unknown marks a dimension that is only resolved once a deferred array is
// materialized, such as the variant axis after an unevaluated mask selection.
const Unknown = -1

// AxisAll reduces over every element and yields a scalar.
const AxisAll = -1

// Shape holds the dimensions of an array, outermost first.
type Shape []int

// NDim is the number of dimensions.
func (s Shape) NDim() int { return len(s) }

// Known reports whether every dimension is resolved.
func (s Shape) Known() bool {
	for _, d := range s {
		if d == Unknown {
			return false
		}
	}
	return true
}

// Size is the number of elements. It is Unknown if any dimension is.
func (s Shape) Size() int {
	n := 1
	for _, d := range s {
		if d == Unknown {
			return Unknown
		}
		n *= d
	}
	return n
}

// Dim returns dimension i, failing with ErrNotMaterialized when unresolved.
func (s Shape) Dim(i int) (int, error) {
	if i < 0 || i >= len(s) {
		return 0, fmt.Errorf("%w: axis %d out of range for %v", ErrShape, i, s)
	}
	if s[i] == Unknown {
		return 0, fmt.Errorf("%w: axis %d of %v", ErrNotMaterialized, i, s)
	}
	return s[i], nil
}

// Equal reports whether s and o have the same dimensions, Unknown included.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of s.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		if d == Unknown {
			parts[i] = "?"
			continue
		}
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// without returns the shape with axis removed.
func (s Shape) without(axis int) Shape {
	out := make(Shape, 0, len(s)-1)
	out = append(out, s[:axis]...)
	return append(out, s[axis+1:]...)
}

// withDim0 returns a copy of s whose first dimension is n.
func (s Shape) withDim0(n int) Shape {
	out := s.Clone()
	out[0] = n
	return out
}

// strides returns row-major element strides.
func (s Shape) strides() []int {
	st := make([]int, len(s))
	acc := 1
	for i := len(s) - 1; i >= 0; i-- {
		st[i] = acc
		acc *= s[i]
	}
	return st
}

// broadcastShapes applies numpy broadcasting rules to a and b. Unknown only
// broadcasts against itself or 1.
func broadcastShapes(a, b Shape) (Shape, error) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Shape, n)
	for i := 0; i < n; i++ {
		da, db := 1, 1
		if j := len(a) - n + i; j >= 0 {
			da = a[j]
		}
		if j := len(b) - n + i; j >= 0 {
			db = b[j]
		}
		switch {
		case da == db:
			out[i] = da
		case da == 1:
			out[i] = db
		case db == 1:
			out[i] = da
		default:
			return nil, fmt.Errorf("%w: cannot broadcast %v with %v", ErrShape, a, b)
		}
	}
	return out, nil
}

// checkAxis validates axis against ndim. Negative axes are reserved for
// AxisAll and are not resolved from the end.
func checkAxis(axis, ndim int) (int, error) {
	if axis < 0 || axis >= ndim {
		return 0, fmt.Errorf("%w: axis %d out of range for %d dimensions", ErrShape, axis, ndim)
	}
	return axis, nil
}

package array

import (
	"fmt"
	"math"
)

// The functions in this file are the dense kernels shared by both backends:
// the eager backend applies them directly, the deferred backend applies them
// to one chunk at a time.

// reduceKind is the kind of reducing an array of kind k with op.
func reduceKind(op ReduceOp, k Kind) (Kind, error) {
	st := storageOf(k)
	if st == storageString || k == Invalid {
		return Invalid, fmt.Errorf("%w: cannot %s %s values", ErrKind, op, k)
	}
	switch op {
	case Sum, NaNSum:
		if st == storageFloat {
			return Float64, nil
		}
		return Int64, nil
	case Min, Max:
		if st == storageBool {
			return Int64, nil
		}
		return k, nil
	case Any, All:
		return Bool, nil
	case CountNonzero:
		return Int64, nil
	}
	return Invalid, fmt.Errorf("%w: unknown reduction %d", ErrKind, op)
}

// reduceDense reduces d along axis, or over every element for AxisAll.
func reduceDense(op ReduceOp, d *Dense, axis int) (*Dense, error) {
	outer, n, inner := 1, d.Len(), 1
	outShape := Shape{}
	if axis != AxisAll {
		if _, err := checkAxis(axis, d.shape.NDim()); err != nil {
			return nil, err
		}
		outer = Shape(d.shape[:axis]).Size()
		n = d.shape[axis]
		inner = Shape(d.shape[axis+1:]).Size()
		outShape = d.shape.without(axis)
	}

	kind, err := reduceKind(op, d.kind)
	if err != nil {
		return nil, err
	}
	if (op == Min || op == Max) && n == 0 {
		return nil, fmt.Errorf("%w: %s over an empty axis", ErrEmptyReduction, op)
	}
	st := storageOf(d.kind)
	out := newDense(kind, outShape)

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*n*inner + in
			dst := o*inner + in
			switch op {
			case Sum, NaNSum:
				if st == storageFloat {
					var acc float64
					for k := 0; k < n; k++ {
						v := d.floats[base+k*inner]
						if op == NaNSum && math.IsNaN(v) {
							continue
						}
						acc += v
					}
					out.floats[dst] = acc
					continue
				}
				var acc int64
				for k := 0; k < n; k++ {
					acc += d.intAt(base + k*inner)
				}
				out.ints[dst] = acc
			case Min, Max:
				if st == storageFloat {
					acc := d.floats[base]
					for k := 1; k < n && !math.IsNaN(acc); k++ {
						v := d.floats[base+k*inner]
						if math.IsNaN(v) || (op == Min && v < acc) || (op == Max && v > acc) {
							acc = v
						}
					}
					out.floats[dst] = acc
					continue
				}
				acc := d.intAt(base)
				for k := 1; k < n; k++ {
					v := d.intAt(base + k*inner)
					if (op == Min && v < acc) || (op == Max && v > acc) {
						acc = v
					}
				}
				out.ints[dst] = acc
			case Any:
				acc := false
				for k := 0; k < n && !acc; k++ {
					acc = d.boolAt(base + k*inner)
				}
				out.bools[dst] = acc
			case All:
				acc := true
				for k := 0; k < n && acc; k++ {
					acc = d.boolAt(base + k*inner)
				}
				out.bools[dst] = acc
			case CountNonzero:
				var acc int64
				for k := 0; k < n; k++ {
					if d.boolAt(base + k*inner) {
						acc++
					}
				}
				out.ints[dst] = acc
			}
		}
	}
	return out, nil
}

func unaryDense(op UnaryOp, d *Dense) *Dense {
	if op == IsMissing {
		return missingMask(d)
	}
	out := newDense(Bool, d.shape)
	st := storageOf(d.kind)
	for i := range out.bools {
		switch op {
		case IsNaN:
			out.bools[i] = st == storageFloat && math.IsNaN(d.floats[i])
		case IsInf:
			out.bools[i] = st == storageFloat && math.IsInf(d.floats[i], 0)
		case IsFinite:
			out.bools[i] = st != storageFloat || !(math.IsNaN(d.floats[i]) || math.IsInf(d.floats[i], 0))
		case Not:
			out.bools[i] = !d.boolAt(i)
		}
	}
	return out
}

// broadcastIndex maps every flat position of out to the flat position of src
// it reads from. It returns nil when src already has shape out.
func broadcastIndex(src, out Shape) []int {
	if src.Equal(out) {
		return nil
	}
	n := out.Size()
	idx := make([]int, n)
	if n == 0 {
		return idx
	}
	off := len(out) - len(src)
	srcStrides := src.strides()
	st := make([]int, len(out))
	for i := range out {
		if j := i - off; j >= 0 && src[j] != 1 {
			st[i] = srcStrides[j]
		}
	}
	coord := make([]int, len(out))
	pos := 0
	for k := 0; k < n; k++ {
		idx[k] = pos
		for dim := len(out) - 1; dim >= 0; dim-- {
			coord[dim]++
			pos += st[dim]
			if coord[dim] < out[dim] {
				break
			}
			pos -= st[dim] * coord[dim]
			coord[dim] = 0
		}
	}
	return idx
}

func at(idx []int, k int) int {
	if idx == nil {
		return k
	}
	return idx[k]
}

// binaryDense applies op elementwise with broadcasting. The second result is
// the number of invalid floating-point operations, such as 0/0, that produced
// NaN.
func binaryDense(op BinaryOp, a, b *Dense) (*Dense, int, error) {
	shape, err := broadcastShapes(a.shape, b.shape)
	if err != nil {
		return nil, 0, err
	}
	kind, err := binaryKind(op, a.kind, b.kind)
	if err != nil {
		return nil, 0, err
	}
	ia, ib := broadcastIndex(a.shape, shape), broadcastIndex(b.shape, shape)
	n := shape.Size()
	sa, sb := storageOf(a.kind), storageOf(b.kind)

	if op.isLogical() {
		out := newDense(Bool, shape)
		for k := 0; k < n; k++ {
			x, y := a.boolAt(at(ia, k)), b.boolAt(at(ib, k))
			if op == And {
				out.bools[k] = x && y
			} else {
				out.bools[k] = x || y
			}
		}
		return out, 0, nil
	}

	if op.isComparison() {
		out := newDense(Bool, shape)
		for k := 0; k < n; k++ {
			i, j := at(ia, k), at(ib, k)
			var c int
			switch {
			case sa == storageString:
				c = compareStrings(a.strs[i], b.strs[j])
			case sa == storageFloat || sb == storageFloat:
				x, y := a.floatAt(i), b.floatAt(j)
				if math.IsNaN(x) || math.IsNaN(y) {
					out.bools[k] = op == NotEqual
					continue
				}
				c = compareFloats(x, y)
			default:
				c = compareInts(a.intAt(i), b.intAt(j))
			}
			out.bools[k] = comparisonHolds(op, c)
		}
		return out, 0, nil
	}

	if kind == Float64 {
		out := newDense(Float64, shape)
		invalid := 0
		for k := 0; k < n; k++ {
			x, y := a.floatAt(at(ia, k)), b.floatAt(at(ib, k))
			v := arithFloat(op, x, y)
			if math.IsNaN(v) && !math.IsNaN(x) && !math.IsNaN(y) {
				invalid++
			}
			out.floats[k] = v
		}
		return out, invalid, nil
	}

	out := newDense(Int64, shape)
	for k := 0; k < n; k++ {
		x, y := a.intAt(at(ia, k)), b.intAt(at(ib, k))
		switch op {
		case Add:
			out.ints[k] = x + y
		case Subtract:
			out.ints[k] = x - y
		case Multiply:
			out.ints[k] = x * y
		case Maximum:
			out.ints[k] = max(x, y)
		case Minimum:
			out.ints[k] = min(x, y)
		}
	}
	return out, 0, nil
}

// binaryKind is the kind op produces from operands of kinds a and b.
func binaryKind(op BinaryOp, a, b Kind) (Kind, error) {
	sa, sb := storageOf(a), storageOf(b)
	switch {
	case op.isLogical():
		return Bool, nil
	case (sa == storageString) != (sb == storageString):
		return Invalid, fmt.Errorf("%w: cannot %s %s and %s", ErrKind, op, a, b)
	case op.isComparison():
		return Bool, nil
	case sa == storageString:
		return Invalid, fmt.Errorf("%w: cannot %s strings", ErrKind, op)
	case op == Divide || promote(a, b) == Float64:
		return Float64, nil
	}
	return Int64, nil
}

// arithFloat never divides by zero: a zero denominator yields NaN.
func arithFloat(op BinaryOp, x, y float64) float64 {
	switch op {
	case Add:
		return x + y
	case Subtract:
		return x - y
	case Multiply:
		return x * y
	case Divide:
		if y == 0 {
			return math.NaN()
		}
		return x / y
	case Maximum, Minimum:
		if math.IsNaN(x) || math.IsNaN(y) {
			return math.NaN()
		}
		if op == Maximum {
			return math.Max(x, y)
		}
		return math.Min(x, y)
	}
	return math.NaN()
}

func compareInts(x, y int64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func compareFloats(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func compareStrings(x, y string) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func comparisonHolds(op BinaryOp, c int) bool {
	switch op {
	case Equal:
		return c == 0
	case NotEqual:
		return c != 0
	case Less:
		return c < 0
	case LessEqual:
		return c <= 0
	case Greater:
		return c > 0
	case GreaterEqual:
		return c >= 0
	}
	return false
}

// resultKind is the kind Where produces from its two value operands.
func resultKind(a, b Kind) (Kind, error) {
	sa, sb := storageOf(a), storageOf(b)
	switch {
	case a == b:
		return a, nil
	case sa == storageString || sb == storageString:
		return Invalid, fmt.Errorf("%w: cannot mix %s and %s", ErrKind, a, b)
	case sa == storageBool && sb == storageBool:
		return Bool, nil
	}
	return promote(a, b), nil
}

func whereDense(cond, x, y *Dense) (*Dense, error) {
	kind, err := resultKind(x.kind, y.kind)
	if err != nil {
		return nil, err
	}
	shape, err := broadcastShapes(cond.shape, x.shape)
	if err != nil {
		return nil, err
	}
	if shape, err = broadcastShapes(shape, y.shape); err != nil {
		return nil, err
	}
	ic, ix, iy := broadcastIndex(cond.shape, shape), broadcastIndex(x.shape, shape), broadcastIndex(y.shape, shape)
	out := newDense(kind, shape)
	for k := 0; k < shape.Size(); k++ {
		if cond.boolAt(at(ic, k)) {
			out.copyElem(k, x, at(ix, k))
		} else {
			out.copyElem(k, y, at(iy, k))
		}
	}
	return out, nil
}

// assignMaskedDense returns a copy of dst where mask holds, filled with src.
// src is broadcast to the shape of dst and read positionally.
func assignMaskedDense(dst, mask, src *Dense) (*Dense, error) {
	if !mask.shape.Equal(dst.shape) {
		return nil, fmt.Errorf("%w: mask %v does not match %v", ErrShape, mask.shape, dst.shape)
	}
	if shape, err := broadcastShapes(dst.shape, src.shape); err != nil || !shape.Equal(dst.shape) {
		return nil, fmt.Errorf("%w: values %v do not fit %v", ErrShape, src.shape, dst.shape)
	}
	if (storageOf(src.kind) == storageString) != (storageOf(dst.kind) == storageString) {
		return nil, fmt.Errorf("%w: cannot assign %s into %s", ErrKind, src.kind, dst.kind)
	}
	is := broadcastIndex(src.shape, dst.shape)
	out := newDense(dst.kind, dst.shape)
	out.copyRange(0, dst, 0, dst.Len())
	for k := 0; k < dst.Len(); k++ {
		if mask.boolAt(k) {
			out.copyElem(k, src, at(is, k))
		}
	}
	return out, nil
}

func takeDense(d *Dense, axis int, idx []int) (*Dense, error) {
	if _, err := checkAxis(axis, d.shape.NDim()); err != nil {
		return nil, err
	}
	n := d.shape[axis]
	for _, i := range idx {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: index %d out of range for axis %d of %v", ErrShape, i, axis, d.shape)
		}
	}
	outer := Shape(d.shape[:axis]).Size()
	inner := Shape(d.shape[axis+1:]).Size()
	outShape := d.shape.Clone()
	outShape[axis] = len(idx)
	out := newDense(d.kind, outShape)
	for o := 0; o < outer; o++ {
		for k, i := range idx {
			out.copyRange((o*len(idx)+k)*inner, d, (o*n+i)*inner, inner)
		}
	}
	return out, nil
}

// compressDense keeps the rows of d (axis 0) where mask holds.
func compressDense(d *Dense, mask *Dense) (*Dense, error) {
	if d.shape.NDim() == 0 {
		return nil, fmt.Errorf("%w: cannot select rows of a scalar", ErrShape)
	}
	if mask.shape.NDim() != 1 || mask.shape[0] != d.shape[0] {
		return nil, fmt.Errorf("%w: mask %v does not select rows of %v", ErrShape, mask.shape, d.shape)
	}
	rows := 0
	for i := 0; i < mask.Len(); i++ {
		if mask.boolAt(i) {
			rows++
		}
	}
	inner := Shape(d.shape[1:]).Size()
	out := newDense(d.kind, d.shape.withDim0(rows))
	r := 0
	for i := 0; i < mask.Len(); i++ {
		if mask.boolAt(i) {
			out.copyRange(r*inner, d, i*inner, inner)
			r++
		}
	}
	return out, nil
}

func sliceDense(d *Dense, axis, from, to int) (*Dense, error) {
	if _, err := checkAxis(axis, d.shape.NDim()); err != nil {
		return nil, err
	}
	n := d.shape[axis]
	if from < 0 || to > n || from > to {
		return nil, fmt.Errorf("%w: slice [%d:%d] out of range for axis %d of %v", ErrShape, from, to, axis, d.shape)
	}
	idx := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		idx = append(idx, i)
	}
	return takeDense(d, axis, idx)
}

func expandDimsShape(s Shape, axis int) (Shape, error) {
	if axis < 0 || axis > s.NDim() {
		return nil, fmt.Errorf("%w: cannot insert axis %d into %v", ErrShape, axis, s)
	}
	out := make(Shape, 0, s.NDim()+1)
	out = append(out, s[:axis]...)
	out = append(out, 1)
	return append(out, s[axis:]...), nil
}

func expandDimsDense(d *Dense, axis int) (*Dense, error) {
	shape, err := expandDimsShape(d.shape, axis)
	if err != nil {
		return nil, err
	}
	out := *d
	out.shape = shape
	return &out, nil
}

// stackDense joins equally shaped arrays along a new axis.
func stackDense(ds []*Dense, axis int) (*Dense, error) {
	if len(ds) == 0 {
		return nil, fmt.Errorf("%w: nothing to stack", ErrShape)
	}
	first := ds[0]
	for _, d := range ds[1:] {
		if !d.shape.Equal(first.shape) {
			return nil, fmt.Errorf("%w: cannot stack %v with %v", ErrShape, d.shape, first.shape)
		}
		if storageOf(d.kind) != storageOf(first.kind) {
			return nil, fmt.Errorf("%w: cannot stack %s with %s", ErrKind, d.kind, first.kind)
		}
	}
	if axis < 0 || axis > first.shape.NDim() {
		return nil, fmt.Errorf("%w: stack axis %d out of range for %v", ErrShape, axis, first.shape)
	}
	outShape, _ := expandDimsShape(first.shape, axis)
	outShape[axis] = len(ds)
	outer := Shape(first.shape[:axis]).Size()
	inner := Shape(first.shape[axis:]).Size()
	out := newDense(first.kind, outShape)
	for o := 0; o < outer; o++ {
		for k, d := range ds {
			out.copyRange((o*len(ds)+k)*inner, d, o*inner, inner)
		}
	}
	return out, nil
}

// ConcatRows joins blocks of one kind along axis 0.
func ConcatRows(kind Kind, trailing Shape, ds []*Dense) (*Dense, error) {
	return concatRows(kind, trailing, ds)
}

func concatRows(kind Kind, trailing Shape, ds []*Dense) (*Dense, error) {
	rows := 0
	for _, d := range ds {
		if d.shape.NDim() == 0 || !Shape(d.shape[1:]).Equal(trailing) {
			return nil, fmt.Errorf("%w: cannot join %v onto rows of %v", ErrShape, d.shape, trailing)
		}
		if storageOf(d.kind) != storageOf(kind) {
			return nil, fmt.Errorf("%w: cannot join %s onto %s", ErrKind, d.kind, kind)
		}
		rows += d.shape[0]
	}
	shape := append(Shape{rows}, trailing...)
	out := newDense(kind, shape)
	inner := trailing.Size()
	off := 0
	for _, d := range ds {
		out.copyRange(off, d, 0, d.shape[0]*inner)
		off += d.shape[0] * inner
	}
	return out, nil
}

func castDense(d *Dense, kind Kind) (*Dense, error) {
	if kind == d.kind {
		return d, nil
	}
	from, to := storageOf(d.kind), storageOf(kind)
	if kind == Invalid || (from == storageString) != (to == storageString) {
		return nil, fmt.Errorf("%w: cannot cast %s to %s", ErrKind, d.kind, kind)
	}
	if from == to {
		out := *d
		out.kind = kind
		return &out, nil
	}
	out := newDense(kind, d.shape)
	for i := 0; i < d.Len(); i++ {
		out.copyElem(i, d, i)
	}
	return out, nil
}

// fullDense fills a new array of shape with value, which may be a Go bool,
// integer, float or string.
func fullDense(shape Shape, kind Kind, value any) (*Dense, error) {
	src, err := scalarOf(value)
	if err != nil {
		return nil, err
	}
	if kind == Invalid {
		kind = src.kind
	}
	if (storageOf(src.kind) == storageString) != (storageOf(kind) == storageString) {
		return nil, fmt.Errorf("%w: cannot fill %s with %T", ErrKind, kind, value)
	}
	out := newDense(kind, shape)
	for i := 0; i < out.Len(); i++ {
		out.copyElem(i, src, 0)
	}
	return out, nil
}

// scalarOf converts a Go value into a zero-dimensional array.
func scalarOf(value any) (*Dense, error) {
	switch v := value.(type) {
	case *Dense:
		if v.Len() != 1 {
			return nil, fmt.Errorf("%w: %v is not a scalar", ErrShape, v.shape)
		}
		return v, nil
	case bool:
		return ScalarBool(v), nil
	case int:
		return ScalarInt(int64(v)), nil
	case int8:
		return ScalarInt(int64(v)), nil
	case int16:
		return ScalarInt(int64(v)), nil
	case int32:
		return ScalarInt(int64(v)), nil
	case int64:
		return ScalarInt(v), nil
	case float32:
		return ScalarFloat(float64(v)), nil
	case float64:
		return ScalarFloat(v), nil
	case string:
		return mustDense(NewStrings(Shape{}, []string{v})), nil
	}
	return nil, fmt.Errorf("%w: unsupported scalar %T", ErrKind, value)
}

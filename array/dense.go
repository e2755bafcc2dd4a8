package array

import (
	"fmt"
	"math"
)

// Dense is the eager representation: a fully resident, row-major array whose
// shape is always known. Dense values are immutable once built; operations
// return new arrays and the slices returned by accessors must not be modified.
type Dense struct {
	kind  Kind
	shape Shape

	ints   []int64
	floats []float64
	bools  []bool
	strs   []string
}

type storage uint8

const (
	storageInt storage = iota
	storageFloat
	storageBool
	storageString
)

func storageOf(k Kind) storage {
	switch {
	case k.IsInteger():
		return storageInt
	case k.IsFloat():
		return storageFloat
	case k == String:
		return storageString
	}
	return storageBool
}

// newDense allocates a zero-filled Dense. shape must be known.
func newDense(kind Kind, shape Shape) *Dense {
	d := &Dense{kind: kind, shape: shape.Clone()}
	n := shape.Size()
	switch storageOf(kind) {
	case storageInt:
		d.ints = make([]int64, n)
	case storageFloat:
		d.floats = make([]float64, n)
	case storageBool:
		d.bools = make([]bool, n)
	case storageString:
		d.strs = make([]string, n)
	}
	return d
}

func checkSize(shape Shape, n int) error {
	if !shape.Known() {
		return fmt.Errorf("%w: dense arrays need a known shape, got %v", ErrShape, shape)
	}
	if shape.Size() != n {
		return fmt.Errorf("%w: %d values do not fill shape %v", ErrShape, n, shape)
	}
	return nil
}

// NewInts wraps data as an integer array of the given kind. data is not copied.
func NewInts(kind Kind, shape Shape, data []int64) (*Dense, error) {
	if !kind.IsInteger() {
		return nil, fmt.Errorf("%w: %s is not an integer kind", ErrKind, kind)
	}
	if err := checkSize(shape, len(data)); err != nil {
		return nil, err
	}
	return &Dense{kind: kind, shape: shape.Clone(), ints: data}, nil
}

// NewFloats wraps data as a float array of the given kind. data is not copied.
func NewFloats(kind Kind, shape Shape, data []float64) (*Dense, error) {
	if !kind.IsFloat() {
		return nil, fmt.Errorf("%w: %s is not a float kind", ErrKind, kind)
	}
	if err := checkSize(shape, len(data)); err != nil {
		return nil, err
	}
	return &Dense{kind: kind, shape: shape.Clone(), floats: data}, nil
}

// NewBools wraps data as a boolean array. data is not copied.
func NewBools(shape Shape, data []bool) (*Dense, error) {
	if err := checkSize(shape, len(data)); err != nil {
		return nil, err
	}
	return &Dense{kind: Bool, shape: shape.Clone(), bools: data}, nil
}

// NewStrings wraps data as a string array. data is not copied.
func NewStrings(shape Shape, data []string) (*Dense, error) {
	if err := checkSize(shape, len(data)); err != nil {
		return nil, err
	}
	return &Dense{kind: String, shape: shape.Clone(), strs: data}, nil
}

// Zeros returns a zero-filled array.
func Zeros(kind Kind, dims ...int) *Dense {
	return newDense(kind, Shape(dims))
}

func mustDense(d *Dense, err error) *Dense {
	if err != nil {
		panic(err)
	}
	return d
}

// FromInts builds an Int64 array; without dims it is one-dimensional. It
// panics if dims do not match len(data).
func FromInts(data []int64, dims ...int) *Dense {
	if len(dims) == 0 {
		dims = []int{len(data)}
	}
	return mustDense(NewInts(Int64, Shape(dims), data))
}

// FromFloats builds a Float64 array; without dims it is one-dimensional.
func FromFloats(data []float64, dims ...int) *Dense {
	if len(dims) == 0 {
		dims = []int{len(data)}
	}
	return mustDense(NewFloats(Float64, Shape(dims), data))
}

// FromBools builds a Bool array; without dims it is one-dimensional.
func FromBools(data []bool, dims ...int) *Dense {
	if len(dims) == 0 {
		dims = []int{len(data)}
	}
	return mustDense(NewBools(Shape(dims), data))
}

// FromStrings builds a String array; without dims it is one-dimensional.
func FromStrings(data []string, dims ...int) *Dense {
	if len(dims) == 0 {
		dims = []int{len(data)}
	}
	return mustDense(NewStrings(Shape(dims), data))
}

// Ints2 builds a [len(rows), len(rows[0])] Int64 array.
func Ints2(rows [][]int64) *Dense {
	if len(rows) == 0 {
		return Zeros(Int64, 0, 0)
	}
	cols := len(rows[0])
	data := make([]int64, 0, len(rows)*cols)
	for _, r := range rows {
		if len(r) != cols {
			panic(fmt.Errorf("%w: ragged rows", ErrShape))
		}
		data = append(data, r...)
	}
	return FromInts(data, len(rows), cols)
}

// Ints3 builds a [V, S, P] Int64 array, the genotype tensor layout.
func Ints3(v [][][]int64) *Dense {
	if len(v) == 0 || len(v[0]) == 0 {
		return Zeros(Int64, 0, 0, 0)
	}
	s, p := len(v[0]), len(v[0][0])
	data := make([]int64, 0, len(v)*s*p)
	for _, calls := range v {
		if len(calls) != s {
			panic(fmt.Errorf("%w: ragged calls", ErrShape))
		}
		for _, call := range calls {
			if len(call) != p {
				panic(fmt.Errorf("%w: ragged ploidy", ErrShape))
			}
			data = append(data, call...)
		}
	}
	return FromInts(data, len(v), s, p)
}

// Floats2 builds a [len(rows), len(rows[0])] Float64 array.
func Floats2(rows [][]float64) *Dense {
	if len(rows) == 0 {
		return Zeros(Float64, 0, 0)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		if len(r) != cols {
			panic(fmt.Errorf("%w: ragged rows", ErrShape))
		}
		data = append(data, r...)
	}
	return FromFloats(data, len(rows), cols)
}

// ScalarInt, ScalarFloat and ScalarBool build zero-dimensional arrays.
func ScalarInt(v int64) *Dense { return mustDense(NewInts(Int64, Shape{}, []int64{v})) }
func ScalarFloat(v float64) *Dense {
	return mustDense(NewFloats(Float64, Shape{}, []float64{v}))
}
func ScalarBool(v bool) *Dense { return mustDense(NewBools(Shape{}, []bool{v})) }

func (d *Dense) Kind() Kind   { return d.kind }
func (d *Dense) Shape() Shape { return d.shape }

// Len is the number of elements.
func (d *Dense) Len() int { return d.shape.Size() }

// Ints returns the backing slice of an integer array, nil otherwise.
func (d *Dense) Ints() []int64 { return d.ints }

// Floats returns the backing slice of a float array, nil otherwise.
func (d *Dense) Floats() []float64 { return d.floats }

// Bools returns the backing slice of a boolean array, nil otherwise.
func (d *Dense) Bools() []bool { return d.bools }

// Strings returns the backing slice of a string array, nil otherwise.
func (d *Dense) Strings() []string { return d.strs }

// Float64s returns a float64 copy of a numeric or boolean array.
func (d *Dense) Float64s() []float64 {
	out := make([]float64, d.Len())
	for i := range out {
		out[i] = d.floatAt(i)
	}
	return out
}

// Int returns the value of a single-element numeric array, truncating floats.
func (d *Dense) Int() int64 {
	if storageOf(d.kind) == storageFloat {
		return int64(d.floats[0])
	}
	return d.intAt(0)
}

// Float returns the value of a single-element numeric array.
func (d *Dense) Float() float64 {
	return d.floatAt(0)
}

func (d *Dense) floatAt(i int) float64 {
	switch storageOf(d.kind) {
	case storageInt:
		return float64(d.ints[i])
	case storageFloat:
		return d.floats[i]
	case storageBool:
		if d.bools[i] {
			return 1
		}
		return 0
	}
	return math.NaN()
}

func (d *Dense) intAt(i int) int64 {
	switch storageOf(d.kind) {
	case storageInt:
		return d.ints[i]
	case storageFloat:
		return int64(d.floats[i])
	case storageBool:
		if d.bools[i] {
			return 1
		}
	}
	return 0
}

func (d *Dense) boolAt(i int) bool {
	switch storageOf(d.kind) {
	case storageInt:
		return d.ints[i] != 0
	case storageFloat:
		return d.floats[i] != 0
	case storageBool:
		return d.bools[i]
	case storageString:
		return d.strs[i] != ""
	}
	return false
}

// copyRange copies n elements from src[srcOff:] into d[dstOff:]. Both arrays
// must share the same storage.
func (d *Dense) copyRange(dstOff int, src *Dense, srcOff, n int) {
	switch storageOf(d.kind) {
	case storageInt:
		copy(d.ints[dstOff:dstOff+n], src.ints[srcOff:srcOff+n])
	case storageFloat:
		copy(d.floats[dstOff:dstOff+n], src.floats[srcOff:srcOff+n])
	case storageBool:
		copy(d.bools[dstOff:dstOff+n], src.bools[srcOff:srcOff+n])
	case storageString:
		copy(d.strs[dstOff:dstOff+n], src.strs[srcOff:srcOff+n])
	}
}

// copyElem sets d[dst] to src[i], converting between storages when needed.
func (d *Dense) copyElem(dst int, src *Dense, i int) {
	switch storageOf(d.kind) {
	case storageInt:
		d.ints[dst] = src.intAt(i)
	case storageFloat:
		d.floats[dst] = src.floatAt(i)
	case storageBool:
		d.bools[dst] = src.boolAt(i)
	case storageString:
		d.strs[dst] = src.strs[i]
	}
}

func (d *Dense) String() string {
	switch storageOf(d.kind) {
	case storageInt:
		return fmt.Sprintf("Dense%v%v", d.shape, d.ints)
	case storageFloat:
		return fmt.Sprintf("Dense%v%v", d.shape, d.floats)
	case storageBool:
		return fmt.Sprintf("Dense%v%v", d.shape, d.bools)
	}
	return fmt.Sprintf("Dense%v%q", d.shape, d.strs)
}

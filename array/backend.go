package array

import (
	"context"
	"fmt"
)

// Array is either a *Dense (eager) or a *Deferred (a chunk graph evaluated on
// Materialize). Any other implementation is rejected with
// ErrUnsupportedBackend.
type Array interface {
	Kind() Kind
	Shape() Shape
}

// BlockFunc is a row-wise kernel for Map. It receives one block per operand,
// all covering the same rows, and must return a block with that many rows.
type BlockFunc func(blocks []*Dense) (*Dense, error)

// MapResult describes the output of a BlockFunc: its kind and the dimensions
// after the row axis.
type MapResult struct {
	Kind     Kind
	Trailing Shape
}

// Backend is the capability set shared by the eager and deferred
// representations. Eager operations compute immediately; Lazy operations only
// extend the chunk graph.
type Backend interface {
	Name() string

	Reduce(op ReduceOp, a Array, axis int) (Array, error)
	NaNMean(a Array, axis int) (Array, error)
	Unary(op UnaryOp, a Array) (Array, error)
	Binary(op BinaryOp, a, b Array) (Array, error)
	Where(cond, x, y Array) (Array, error)

	// AssignMasked returns a copy of dst with the masked entries replaced by
	// src. src is a scalar or has the shape of dst.
	AssignMasked(dst, mask, src Array) (Array, error)
	Take(a Array, axis int, idx []int) (Array, error)
	// Compress keeps the rows (axis 0) where the boolean vector mask holds.
	Compress(a, mask Array) (Array, error)
	Slice(a Array, axis, from, to int) (Array, error)
	ExpandDims(a Array, axis int) (Array, error)
	Stack(arrays []Array, axis int) (Array, error)
	// Full builds an array of shape filled with value. like decides the
	// representation and, for deferred arrays, the chunk geometry.
	Full(shape Shape, kind Kind, value any, like Array) (Array, error)
	Cast(a Array, kind Kind) (Array, error)
	Histogram(a Array, opts HistogramOptions) (*Histogram, error)
	Map(fn BlockFunc, result MapResult, arrays ...Array) (Array, error)

	Materialize(ctx context.Context, arrays []Array, opts ...Option) ([]*Dense, error)
}

// BackendOf resolves the backend of a.
func BackendOf(a Array) (Backend, error) {
	switch a.(type) {
	case *Dense:
		return Eager, nil
	case *Deferred:
		return Lazy, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedBackend, a)
}

// pick returns Lazy if any operand is deferred and Eager otherwise.
func pick(arrays ...Array) (Backend, error) {
	be := Backend(Eager)
	for _, a := range arrays {
		b, err := BackendOf(a)
		if err != nil {
			return nil, err
		}
		if b == Lazy {
			be = b
		}
	}
	return be, nil
}

// Ones is Full with the value 1 (true for Bool).
func Ones(be Backend, shape Shape, kind Kind, like Array) (Array, error) {
	if kind == Bool {
		return be.Full(shape, kind, true, like)
	}
	return be.Full(shape, kind, 1, like)
}

// Reduce applies op with the backend of a.
func Reduce(op ReduceOp, a Array, axis int) (Array, error) {
	be, err := pick(a)
	if err != nil {
		return nil, err
	}
	return be.Reduce(op, a, axis)
}

// NaNMean averages the non-NaN entries along axis.
func NaNMean(a Array, axis int) (Array, error) {
	be, err := pick(a)
	if err != nil {
		return nil, err
	}
	return be.NaNMean(a, axis)
}

// Unary applies op with the backend of a.
func Unary(op UnaryOp, a Array) (Array, error) {
	be, err := pick(a)
	if err != nil {
		return nil, err
	}
	return be.Unary(op, a)
}

// Binary applies op with Lazy if either operand is deferred.
func Binary(op BinaryOp, a, b Array) (Array, error) {
	be, err := pick(a, b)
	if err != nil {
		return nil, err
	}
	return be.Binary(op, a, b)
}

// Where picks x where cond holds and y elsewhere.
func Where(cond, x, y Array) (Array, error) {
	be, err := pick(cond, x, y)
	if err != nil {
		return nil, err
	}
	return be.Where(cond, x, y)
}

// nanMean is shared by both backends: NaNSum divided by the non-NaN count.
func nanMean(be Backend, a Array, axis int) (Array, error) {
	sum, err := be.Reduce(NaNSum, a, axis)
	if err != nil {
		return nil, err
	}
	isNaN, err := be.Unary(IsNaN, a)
	if err != nil {
		return nil, err
	}
	valid, err := be.Unary(Not, isNaN)
	if err != nil {
		return nil, err
	}
	count, err := be.Reduce(CountNonzero, valid, axis)
	if err != nil {
		return nil, err
	}
	return be.Binary(Divide, sum, count)
}

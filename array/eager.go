package array

import (
	"context"
	"fmt"
)

// Eager computes every operation immediately on *Dense arrays.
var Eager Backend = eager{}

type eager struct{}

func (eager) Name() string { return "eager" }

func dense(a Array) (*Dense, error) {
	d, ok := a.(*Dense)
	if !ok {
		return nil, fmt.Errorf("%w: eager backend got %T", ErrUnsupportedBackend, a)
	}
	return d, nil
}

func denseAll(arrays ...Array) ([]*Dense, error) {
	out := make([]*Dense, len(arrays))
	for i, a := range arrays {
		d, err := dense(a)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func (eager) Reduce(op ReduceOp, a Array, axis int) (Array, error) {
	d, err := dense(a)
	if err != nil {
		return nil, err
	}
	return reduceDense(op, d, axis)
}

func (e eager) NaNMean(a Array, axis int) (Array, error) {
	return nanMean(e, a, axis)
}

func (eager) Unary(op UnaryOp, a Array) (Array, error) {
	d, err := dense(a)
	if err != nil {
		return nil, err
	}
	return unaryDense(op, d), nil
}

// Binary drops the invalid-operation count; warnings are only reported by
// Materialize.
func (eager) Binary(op BinaryOp, a, b Array) (Array, error) {
	ds, err := denseAll(a, b)
	if err != nil {
		return nil, err
	}
	out, _, err := binaryDense(op, ds[0], ds[1])
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (eager) Where(cond, x, y Array) (Array, error) {
	ds, err := denseAll(cond, x, y)
	if err != nil {
		return nil, err
	}
	return whereDense(ds[0], ds[1], ds[2])
}

func (eager) AssignMasked(dst, mask, src Array) (Array, error) {
	ds, err := denseAll(dst, mask, src)
	if err != nil {
		return nil, err
	}
	return assignMaskedDense(ds[0], ds[1], ds[2])
}

func (eager) Take(a Array, axis int, idx []int) (Array, error) {
	d, err := dense(a)
	if err != nil {
		return nil, err
	}
	return takeDense(d, axis, idx)
}

func (eager) Compress(a, mask Array) (Array, error) {
	ds, err := denseAll(a, mask)
	if err != nil {
		return nil, err
	}
	return compressDense(ds[0], ds[1])
}

func (eager) Slice(a Array, axis, from, to int) (Array, error) {
	d, err := dense(a)
	if err != nil {
		return nil, err
	}
	return sliceDense(d, axis, from, to)
}

func (eager) ExpandDims(a Array, axis int) (Array, error) {
	d, err := dense(a)
	if err != nil {
		return nil, err
	}
	return expandDimsDense(d, axis)
}

func (eager) Stack(arrays []Array, axis int) (Array, error) {
	if len(arrays) == 0 {
		return nil, ErrReferenceRequired
	}
	ds, err := denseAll(arrays...)
	if err != nil {
		return nil, err
	}
	return stackDense(ds, axis)
}

func (eager) Full(shape Shape, kind Kind, value any, like Array) (Array, error) {
	if like == nil {
		return nil, ErrReferenceRequired
	}
	if _, err := dense(like); err != nil {
		return nil, err
	}
	if !shape.Known() {
		return nil, fmt.Errorf("%w: cannot fill %v", ErrNotMaterialized, shape)
	}
	return fullDense(shape, kind, value)
}

func (eager) Cast(a Array, kind Kind) (Array, error) {
	d, err := dense(a)
	if err != nil {
		return nil, err
	}
	return castDense(d, kind)
}

func (eager) Histogram(a Array, opts HistogramOptions) (*Histogram, error) {
	d, err := dense(a)
	if err != nil {
		return nil, err
	}
	var w *Dense
	if opts.Weights != nil {
		if w, err = dense(opts.Weights); err != nil {
			return nil, err
		}
	}
	counts, edges, err := histogramDense(d, w, opts)
	if err != nil {
		return nil, err
	}
	return &Histogram{Counts: counts, Edges: edges}, nil
}

func (eager) Map(fn BlockFunc, result MapResult, arrays ...Array) (Array, error) {
	ds, err := denseAll(arrays...)
	if err != nil {
		return nil, err
	}
	rows := Unknown
	if len(ds) > 0 && ds[0].shape.NDim() > 0 {
		rows = ds[0].shape[0]
	}
	return runBlock(fn, result, rows, ds)
}

// runBlock calls fn and checks its output against result.
func runBlock(fn BlockFunc, result MapResult, rows int, blocks []*Dense) (*Dense, error) {
	out, err := fn(blocks)
	if err != nil {
		return nil, err
	}
	want := append(Shape{rows}, result.Trailing...)
	if rows == Unknown && out.shape.NDim() > 0 {
		want[0] = out.shape[0]
	}
	if !out.shape.Equal(want) {
		return nil, fmt.Errorf("%w: kernel returned %v, expected %v", ErrShape, out.shape, want)
	}
	if storageOf(out.kind) != storageOf(result.Kind) {
		return nil, fmt.Errorf("%w: kernel returned %s, expected %s", ErrKind, out.kind, result.Kind)
	}
	return castDense(out, result.Kind)
}

func (eager) Materialize(_ context.Context, arrays []Array, _ ...Option) ([]*Dense, error) {
	return denseAll(arrays...)
}

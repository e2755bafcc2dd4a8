package array

import (
	"context"
	"fmt"
)

// Lazy records every operation as chunk tasks on *Deferred arrays. Dense
// operands are lifted: shared by every chunk when they broadcast, split to the
// chunk rows otherwise.
var Lazy Backend = lazy{}

type lazy struct{}

func (lazy) Name() string { return "lazy" }

func deferred(a Array) (*Deferred, error) {
	switch v := a.(type) {
	case *Deferred:
		return v, nil
	case *Dense:
		return lift(v), nil
	}
	return nil, fmt.Errorf("%w: lazy backend got %T", ErrUnsupportedBackend, a)
}

// result assembles the output of an aligned operation. Row-chunked outputs
// take their first dimension from the chunk rows.
func (al alignment) result(kind Kind, shape Shape, tasks []*task) *Deferred {
	switch {
	case al.split && shape.NDim() > 0:
		shape = rowShape(shape[1:], tasks)
	case shape.NDim() > 0:
		tasks[0].rows = shape[0]
	default:
		tasks[0].rows = 1
	}
	return &Deferred{kind: kind, shape: shape, chunks: tasks}
}

// single wraps one task whose result has the given shape.
func single(kind Kind, shape Shape, t *task) *Deferred {
	al := alignment{rows: []int{Unknown}}
	return al.result(kind, shape, []*task{t})
}

func (lazy) Reduce(op ReduceOp, a Array, axis int) (Array, error) {
	d, err := deferred(a)
	if err != nil {
		return nil, err
	}
	kind, err := reduceKind(op, d.kind)
	if err != nil {
		return nil, err
	}
	outShape := Shape{}
	if axis != AxisAll {
		if _, err := checkAxis(axis, d.shape.NDim()); err != nil {
			return nil, err
		}
		outShape = d.shape.without(axis)
	}
	kernel := func(_ context.Context, in []*Dense) (*Dense, int, error) {
		out, err := reduceDense(op, in[0], axis)
		return out, 0, err
	}

	if axis != AxisAll && axis > 0 {
		al := alignment{rows: d.ChunkRows(), tasks: [][]*task{d.chunks}, split: len(d.chunks) > 1}
		return al.result(kind, outShape, al.build(op.String(), sameRows, kernel)), nil
	}
	if len(d.chunks) == 1 {
		t := &task{label: op.String(), deps: d.chunks, run: kernel}
		return single(kind, outShape, t), nil
	}

	// Reductions across chunks: one partial per chunk, then a combine.
	partials := make([]*task, len(d.chunks))
	for i, c := range d.chunks {
		partials[i] = &task{
			label: op.String() + "-partial",
			deps:  []*task{c},
			rows:  Unknown,
			run: func(ctx context.Context, in []*Dense) (*Dense, int, error) {
				if (op == Min || op == Max) && in[0].Len() == 0 {
					return nil, 0, nil
				}
				return kernel(ctx, in)
			},
		}
	}
	combine := &task{
		label: op.String() + "-combine",
		deps:  partials,
		run: func(_ context.Context, in []*Dense) (*Dense, int, error) {
			return combinePartials(op, kind, in)
		},
	}
	return single(kind, outShape, combine), nil
}

func combinePartials(op ReduceOp, kind Kind, parts []*Dense) (*Dense, int, error) {
	var join BinaryOp
	switch op {
	case Sum, NaNSum, CountNonzero:
		join = Add
	case Min:
		join = Minimum
	case Max:
		join = Maximum
	case Any:
		join = Or
	case All:
		join = And
	}
	var acc *Dense
	invalid := 0
	for _, p := range parts {
		if p == nil {
			continue
		}
		if acc == nil {
			acc = p
			continue
		}
		next, n, err := binaryDense(join, acc, p)
		if err != nil {
			return nil, 0, err
		}
		acc = next
		invalid += n
	}
	if acc == nil {
		return nil, 0, fmt.Errorf("%w: %s over an empty axis", ErrEmptyReduction, op)
	}
	out, err := castDense(acc, kind)
	return out, invalid, err
}

func (l lazy) NaNMean(a Array, axis int) (Array, error) {
	return nanMean(l, a, axis)
}

func (lazy) Unary(op UnaryOp, a Array) (Array, error) {
	d, err := deferred(a)
	if err != nil {
		return nil, err
	}
	al, err := align(d)
	if err != nil {
		return nil, err
	}
	tasks := al.build(op.String(), sameRows, func(_ context.Context, in []*Dense) (*Dense, int, error) {
		return unaryDense(op, in[0]), 0, nil
	})
	return al.result(Bool, d.shape, tasks), nil
}

func (lazy) Binary(op BinaryOp, a, b Array) (Array, error) {
	if _, err := BackendOf(a); err != nil {
		return nil, err
	}
	if _, err := BackendOf(b); err != nil {
		return nil, err
	}
	kind, err := binaryKind(op, a.Kind(), b.Kind())
	if err != nil {
		return nil, err
	}
	shape, err := broadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		return nil, err
	}
	al, err := align(a, b)
	if err != nil {
		return nil, err
	}
	tasks := al.build(op.String(), sameRows, func(_ context.Context, in []*Dense) (*Dense, int, error) {
		return binaryDense(op, in[0], in[1])
	})
	return al.result(kind, shape, tasks), nil
}

func (lazy) Where(cond, x, y Array) (Array, error) {
	for _, a := range []Array{cond, x, y} {
		if _, err := BackendOf(a); err != nil {
			return nil, err
		}
	}
	kind, err := resultKind(x.Kind(), y.Kind())
	if err != nil {
		return nil, err
	}
	shape, err := broadcastShapes(cond.Shape(), x.Shape())
	if err != nil {
		return nil, err
	}
	if shape, err = broadcastShapes(shape, y.Shape()); err != nil {
		return nil, err
	}
	al, err := align(cond, x, y)
	if err != nil {
		return nil, err
	}
	tasks := al.build("where", sameRows, func(_ context.Context, in []*Dense) (*Dense, int, error) {
		out, err := whereDense(in[0], in[1], in[2])
		return out, 0, err
	})
	return al.result(kind, shape, tasks), nil
}

// AssignMasked broadcasts src into every chunk of dst as is.
func (lazy) AssignMasked(dst, mask, src Array) (Array, error) {
	for _, a := range []Array{dst, mask, src} {
		if _, err := BackendOf(a); err != nil {
			return nil, err
		}
	}
	if !mask.Shape().Equal(dst.Shape()) {
		return nil, fmt.Errorf("%w: mask %v does not match %v", ErrShape, mask.Shape(), dst.Shape())
	}
	al, err := align(dst, mask, src)
	if err != nil {
		return nil, err
	}
	tasks := al.build("assign-masked", sameRows, func(_ context.Context, in []*Dense) (*Dense, int, error) {
		out, err := assignMaskedDense(in[0], in[1], in[2])
		return out, 0, err
	})
	return al.result(dst.Kind(), dst.Shape(), tasks), nil
}

func (lazy) Take(a Array, axis int, idx []int) (Array, error) {
	d, err := deferred(a)
	if err != nil {
		return nil, err
	}
	if _, err := checkAxis(axis, d.shape.NDim()); err != nil {
		return nil, err
	}
	if axis == 0 {
		return nil, fmt.Errorf("%w: deferred arrays are taken along the sample axes only", ErrShape)
	}
	for _, i := range idx {
		if i < 0 || i >= d.shape[axis] {
			return nil, fmt.Errorf("%w: index %d out of range for axis %d of %v", ErrShape, i, axis, d.shape)
		}
	}
	shape := d.shape.Clone()
	shape[axis] = len(idx)
	idx = append([]int(nil), idx...)
	al, _ := align(d)
	tasks := al.build("take", sameRows, func(_ context.Context, in []*Dense) (*Dense, int, error) {
		out, err := takeDense(in[0], axis, idx)
		return out, 0, err
	})
	return al.result(d.kind, shape, tasks), nil
}

func (lazy) Compress(a, mask Array) (Array, error) {
	d, err := deferred(a)
	if err != nil {
		return nil, err
	}
	if _, err := BackendOf(mask); err != nil {
		return nil, err
	}
	if d.shape.NDim() == 0 || mask.Shape().NDim() != 1 {
		return nil, fmt.Errorf("%w: mask %v does not select rows of %v", ErrShape, mask.Shape(), d.shape)
	}
	al, err := alignRows(d, mask)
	if err != nil {
		return nil, err
	}
	tasks := al.build("compress", unknownRows, func(_ context.Context, in []*Dense) (*Dense, int, error) {
		out, err := compressDense(in[0], in[1])
		return out, 0, err
	})
	shape := d.shape.withDim0(Unknown)
	return &Deferred{kind: d.kind, shape: shape, chunks: tasks}, nil
}

func (lazy) Slice(a Array, axis, from, to int) (Array, error) {
	d, err := deferred(a)
	if err != nil {
		return nil, err
	}
	if _, err := checkAxis(axis, d.shape.NDim()); err != nil {
		return nil, err
	}
	if axis > 0 {
		n := d.shape[axis]
		if from < 0 || to > n || from > to {
			return nil, fmt.Errorf("%w: slice [%d:%d] out of range for axis %d of %v", ErrShape, from, to, axis, d.shape)
		}
		shape := d.shape.Clone()
		shape[axis] = to - from
		al, _ := align(d)
		tasks := al.build("slice", sameRows, func(_ context.Context, in []*Dense) (*Dense, int, error) {
			out, err := sliceDense(in[0], axis, from, to)
			return out, 0, err
		})
		return al.result(d.kind, shape, tasks), nil
	}

	n, err := d.shape.Dim(0)
	if err != nil {
		return nil, err
	}
	if from < 0 || to > n || from > to {
		return nil, fmt.Errorf("%w: slice [%d:%d] out of range for axis 0 of %v", ErrShape, from, to, d.shape)
	}
	var tasks []*task
	start := 0
	for _, c := range d.chunks {
		lo, hi := max(from-start, 0), min(to-start, c.rows)
		start += c.rows
		if lo >= hi {
			continue
		}
		tasks = append(tasks, sliceTask(c, lo, hi))
	}
	if len(tasks) == 0 {
		tasks = append(tasks, sliceTask(d.chunks[0], 0, 0))
	}
	return &Deferred{kind: d.kind, shape: rowShape(d.shape[1:], tasks), chunks: tasks}, nil
}

func sliceTask(c *task, lo, hi int) *task {
	return &task{
		label: "slice",
		deps:  []*task{c},
		rows:  hi - lo,
		run: func(_ context.Context, in []*Dense) (*Dense, int, error) {
			out, err := sliceDense(in[0], 0, lo, hi)
			return out, 0, err
		},
	}
}

func (lazy) ExpandDims(a Array, axis int) (Array, error) {
	d, err := deferred(a)
	if err != nil {
		return nil, err
	}
	shape, err := expandDimsShape(d.shape, axis)
	if err != nil {
		return nil, err
	}
	if axis == 0 && len(d.chunks) > 1 {
		return nil, fmt.Errorf("%w: cannot add a leading axis to %d chunks", ErrChunkMismatch, len(d.chunks))
	}
	al, _ := align(d)
	if axis == 0 {
		al.split = false
	}
	tasks := al.build("expand-dims", sameRows, func(_ context.Context, in []*Dense) (*Dense, int, error) {
		out, err := expandDimsDense(in[0], axis)
		return out, 0, err
	})
	return al.result(d.kind, shape, tasks), nil
}

func (lazy) Stack(arrays []Array, axis int) (Array, error) {
	if len(arrays) == 0 {
		return nil, ErrReferenceRequired
	}
	first := arrays[0]
	for _, a := range arrays {
		if _, err := BackendOf(a); err != nil {
			return nil, err
		}
		if !a.Shape().Equal(first.Shape()) {
			return nil, fmt.Errorf("%w: cannot stack %v with %v", ErrShape, a.Shape(), first.Shape())
		}
		if storageOf(a.Kind()) != storageOf(first.Kind()) {
			return nil, fmt.Errorf("%w: cannot stack %s with %s", ErrKind, a.Kind(), first.Kind())
		}
	}
	shape, err := expandDimsShape(first.Shape(), axis)
	if err != nil {
		return nil, err
	}
	shape[axis] = len(arrays)
	al, err := align(arrays...)
	if err != nil {
		return nil, err
	}
	if axis == 0 && al.split {
		return nil, fmt.Errorf("%w: cannot stack chunked arrays along the row axis", ErrChunkMismatch)
	}
	tasks := al.build("stack", sameRows, func(_ context.Context, in []*Dense) (*Dense, int, error) {
		out, err := stackDense(in, axis)
		return out, 0, err
	})
	return al.result(first.Kind(), shape, tasks), nil
}

// Full is chunk-aligned with like when both share their first dimension.
func (lazy) Full(shape Shape, kind Kind, value any, like Array) (Array, error) {
	if like == nil {
		return nil, ErrReferenceRequired
	}
	ref, err := deferred(like)
	if err != nil {
		return nil, err
	}
	src, err := scalarOf(value)
	if err != nil {
		return nil, err
	}
	if kind == Invalid {
		kind = src.kind
	}
	aligned := shape.NDim() > 0 && ref.shape.NDim() > 0 && shape[0] == ref.shape[0] &&
		(len(ref.chunks) > 1 || shape[0] == Unknown)
	if aligned {
		trailing := shape[1:].Clone()
		tasks := make([]*task, len(ref.chunks))
		for i, c := range ref.chunks {
			t := &task{label: "full", rows: c.rows}
			if c.rows != Unknown {
				block, err := fullDense(append(Shape{c.rows}, trailing...), kind, src)
				if err != nil {
					return nil, err
				}
				t.run = func(context.Context, []*Dense) (*Dense, int, error) { return block, 0, nil }
			} else {
				t.deps = []*task{c}
				t.run = func(_ context.Context, in []*Dense) (*Dense, int, error) {
					out, err := fullDense(append(Shape{in[0].shape[0]}, trailing...), kind, src)
					return out, 0, err
				}
			}
			tasks[i] = t
		}
		return &Deferred{kind: kind, shape: rowShape(trailing, tasks), chunks: tasks}, nil
	}
	if !shape.Known() {
		return nil, fmt.Errorf("%w: cannot fill %v", ErrNotMaterialized, shape)
	}
	d, err := fullDense(shape, kind, src)
	if err != nil {
		return nil, err
	}
	return lift(d), nil
}

func (lazy) Cast(a Array, kind Kind) (Array, error) {
	d, err := deferred(a)
	if err != nil {
		return nil, err
	}
	from, to := storageOf(d.kind), storageOf(kind)
	if kind == Invalid || (from == storageString) != (to == storageString) {
		return nil, fmt.Errorf("%w: cannot cast %s to %s", ErrKind, d.kind, kind)
	}
	al, _ := align(d)
	tasks := al.build("cast", sameRows, func(_ context.Context, in []*Dense) (*Dense, int, error) {
		out, err := castDense(in[0], kind)
		return out, 0, err
	})
	return al.result(kind, d.shape, tasks), nil
}

func (lazy) Map(fn BlockFunc, result MapResult, arrays ...Array) (Array, error) {
	if len(arrays) == 0 {
		return nil, ErrReferenceRequired
	}
	for _, a := range arrays {
		if _, err := BackendOf(a); err != nil {
			return nil, err
		}
	}
	al, err := alignRows(arrays...)
	if err != nil {
		return nil, err
	}
	tasks := al.build("map", sameRows, func(_ context.Context, in []*Dense) (*Dense, int, error) {
		rows := Unknown
		if in[0].shape.NDim() > 0 {
			rows = in[0].shape[0]
		}
		out, err := runBlock(fn, result, rows, in)
		return out, 0, err
	})
	dim0 := Unknown
	if s := arrays[0].Shape(); s.NDim() > 0 {
		dim0 = s[0]
	}
	return al.result(result.Kind, append(Shape{dim0}, result.Trailing...), tasks), nil
}

func (lazy) Materialize(ctx context.Context, arrays []Array, opts ...Option) ([]*Dense, error) {
	return Materialize(ctx, arrays, opts...)
}

package array

import (
	"context"
	"fmt"
)

// runFunc computes one chunk from the results of its dependencies. The int
// result counts invalid floating-point operations.
type runFunc func(ctx context.Context, in []*Dense) (*Dense, int, error)

// task is one node of the chunk graph.
type task struct {
	label string
	deps  []*task
	rows  int // first dimension of the result, Unknown if data dependent
	run   runFunc
}

// Deferred is an array described by a graph of chunk tasks. Row-chunked
// arrays hold one task per block of variants, concatenated along axis 0 on
// materialization; reduced arrays hold a single task.
type Deferred struct {
	kind   Kind
	shape  Shape
	chunks []*task
}

func (d *Deferred) Kind() Kind   { return d.kind }
func (d *Deferred) Shape() Shape { return d.shape }

// NumChunks is the number of chunk tasks.
func (d *Deferred) NumChunks() int { return len(d.chunks) }

// ChunkRows returns the rows of every chunk; entries are Unknown where the
// row count depends on data.
func (d *Deferred) ChunkRows() []int {
	rows := make([]int, len(d.chunks))
	for i, t := range d.chunks {
		rows[i] = t.rows
	}
	return rows
}

// Chunk returns a single-chunk view of chunk i.
func (d *Deferred) Chunk(i int) (*Deferred, error) {
	if i < 0 || i >= len(d.chunks) {
		return nil, fmt.Errorf("%w: chunk %d of %d", ErrShape, i, len(d.chunks))
	}
	if len(d.chunks) == 1 {
		return d, nil
	}
	t := d.chunks[i]
	return &Deferred{kind: d.kind, shape: d.shape.withDim0(t.rows), chunks: []*task{t}}, nil
}

func (d *Deferred) String() string {
	return fmt.Sprintf("Deferred%v<%s, %d chunks>", d.shape, d.kind, len(d.chunks))
}

// rowShape is the shape of a row-chunked array.
func rowShape(trailing Shape, chunks []*task) Shape {
	rows := 0
	for _, t := range chunks {
		if t.rows == Unknown {
			rows = Unknown
			break
		}
		rows += t.rows
	}
	return append(Shape{rows}, trailing...)
}

func constTask(d *Dense) *task {
	rows := 1
	if d.shape.NDim() > 0 {
		rows = d.shape[0]
	}
	return &task{
		label: "const",
		rows:  rows,
		run: func(context.Context, []*Dense) (*Dense, int, error) {
			return d, 0, nil
		},
	}
}

// Chunk is a block of rows loaded on demand, typically from a store.
type Chunk struct {
	Rows int
	Load func(ctx context.Context) (*Dense, error)
}

// FromChunks builds a deferred array whose blocks are loaded when
// materialized. Every block must have Rows rows and the trailing dimensions.
func FromChunks(kind Kind, trailing Shape, chunks []Chunk) (*Deferred, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks", ErrShape)
	}
	tasks := make([]*task, len(chunks))
	for i, c := range chunks {
		c := c
		want := append(Shape{c.Rows}, trailing...)
		tasks[i] = &task{
			label: "load",
			rows:  c.Rows,
			run: func(ctx context.Context, _ []*Dense) (*Dense, int, error) {
				d, err := c.Load(ctx)
				if err != nil {
					return nil, 0, err
				}
				if !d.shape.Equal(want) {
					return nil, 0, fmt.Errorf("%w: loaded block %v, expected %v", ErrShape, d.shape, want)
				}
				return d, 0, nil
			},
		}
	}
	return &Deferred{kind: kind, shape: rowShape(trailing, tasks), chunks: tasks}, nil
}

// Chunked splits d along axis 0 into chunks of rows rows. rows <= 0 keeps a
// single chunk.
func Chunked(d *Dense, rows int) *Deferred {
	if d.shape.NDim() == 0 {
		return &Deferred{kind: d.kind, shape: d.shape.Clone(), chunks: []*task{constTask(d)}}
	}
	n := d.shape[0]
	if rows <= 0 || rows >= n {
		return &Deferred{kind: d.kind, shape: d.shape.Clone(), chunks: []*task{constTask(d)}}
	}
	var tasks []*task
	for from := 0; from < n; from += rows {
		to := min(from+rows, n)
		block, _ := sliceDense(d, 0, from, to)
		tasks = append(tasks, constTask(block))
	}
	return &Deferred{kind: d.kind, shape: d.shape.Clone(), chunks: tasks}
}

// lift wraps a dense array as a single-chunk deferred one.
func lift(d *Dense) *Deferred {
	return &Deferred{kind: d.kind, shape: d.shape.Clone(), chunks: []*task{constTask(d)}}
}

// alignment is the chunk geometry shared by the operands of a deferred
// operation.
type alignment struct {
	rows  []int     // rows of every output chunk
	tasks [][]*task // tasks[operand][chunk]
	split bool      // the output is row-chunked
}

func (al alignment) n() int { return len(al.rows) }

// deps returns the dependencies of output chunk i.
func (al alignment) deps(i int) []*task {
	deps := make([]*task, len(al.tasks))
	for k := range al.tasks {
		deps[k] = al.tasks[k][i]
	}
	return deps
}

// align matches operands chunk by chunk. An operand is shared by every chunk
// when it has fewer dimensions than the widest operand or is a single chunk
// with one row; other deferred operands must agree on their chunking, and
// dense ones are split to the same rows.
func align(arrays ...Array) (alignment, error) {
	return alignWith(false, arrays...)
}

// alignRows aligns operands whose first axis is the row axis whatever their
// rank, as for row selection and row-wise kernels. Only scalars are shared.
func alignRows(arrays ...Array) (alignment, error) {
	return alignWith(true, arrays...)
}

func alignWith(rowwise bool, arrays ...Array) (alignment, error) {
	ndim := 0
	for _, a := range arrays {
		ndim = max(ndim, a.Shape().NDim())
	}
	shared := func(a Array) bool {
		s := a.Shape()
		if s.NDim() == 0 {
			return true
		}
		if rowwise {
			return false
		}
		if s.NDim() < ndim {
			return true
		}
		if d, ok := a.(*Deferred); ok {
			return len(d.chunks) == 1 && s[0] == 1
		}
		return s[0] == 1
	}

	var ref *Deferred
	for _, a := range arrays {
		d, ok := a.(*Deferred)
		if !ok || shared(a) {
			continue
		}
		if ref == nil {
			ref = d
			continue
		}
		if len(d.chunks) != len(ref.chunks) {
			return alignment{}, fmt.Errorf("%w: %d chunks against %d", ErrChunkMismatch, len(d.chunks), len(ref.chunks))
		}
		for i, t := range d.chunks {
			if r := ref.chunks[i].rows; t.rows != Unknown && r != Unknown && t.rows != r {
				return alignment{}, fmt.Errorf("%w: chunk %d has %d rows against %d", ErrChunkMismatch, i, t.rows, r)
			}
		}
	}

	al := alignment{rows: []int{Unknown}}
	if ref != nil {
		al.rows = ref.ChunkRows()
		al.split = true
	}
	n := al.n()
	for _, a := range arrays {
		ts := make([]*task, n)
		switch v := a.(type) {
		case *Deferred:
			if shared(a) || ref == nil {
				if len(v.chunks) != 1 {
					return alignment{}, fmt.Errorf("%w: cannot broadcast %d chunks", ErrChunkMismatch, len(v.chunks))
				}
				for i := range ts {
					ts[i] = v.chunks[0]
				}
			} else {
				copy(ts, v.chunks)
			}
		case *Dense:
			if shared(a) || ref == nil {
				t := constTask(v)
				for i := range ts {
					ts[i] = t
				}
				break
			}
			from := 0
			for i, r := range al.rows {
				if r == Unknown {
					return alignment{}, fmt.Errorf("%w: cannot split a dense operand along unresolved chunks", ErrChunkMismatch)
				}
				if from+r > v.shape[0] {
					return alignment{}, fmt.Errorf("%w: dense operand has %d rows", ErrChunkMismatch, v.shape[0])
				}
				block, _ := sliceDense(v, 0, from, from+r)
				ts[i] = constTask(block)
				from += r
			}
			if from != v.shape[0] {
				return alignment{}, fmt.Errorf("%w: dense operand has %d rows, chunks cover %d", ErrChunkMismatch, v.shape[0], from)
			}
		default:
			return alignment{}, fmt.Errorf("%w: %T", ErrUnsupportedBackend, a)
		}
		al.tasks = append(al.tasks, ts)
	}
	return al, nil
}

// build creates one task per aligned chunk. rows computes the first dimension
// of output chunk i from the rows of the aligned chunk.
func (al alignment) build(label string, rows func(int) int, run runFunc) []*task {
	out := make([]*task, al.n())
	for i := range out {
		out[i] = &task{label: label, deps: al.deps(i), rows: rows(al.rows[i]), run: run}
	}
	return out
}

func sameRows(r int) int { return r }

func unknownRows(int) int { return Unknown }

package variation

import (
	"context"
	"fmt"

	"github.com/carbocation/variation/array"
)

// ChunkReader walks a container as eager sub-containers of consecutive
// variants: blocks of chunkSize rows for eager containers, one stored chunk at
// a time for deferred ones.
type ChunkReader struct {
	ChunksSeen int

	v         *Variations
	ctx       context.Context
	chunkSize int
	opts      []array.Option
	offset    int
	err       error
}

// NewChunkReader returns a reader over v. chunkSize is ignored for deferred
// containers, whose chunks are already fixed.
func (v *Variations) NewChunkReader(ctx context.Context, chunkSize int, opts ...array.Option) *ChunkReader {
	return &ChunkReader{v: v, ctx: ctx, chunkSize: chunkSize, opts: opts}
}

// Error returns the failure that ended the iteration, if any.
func (cr *ChunkReader) Error() error {
	return cr.err
}

// Read returns the next chunk, or nil once the container is exhausted or an
// error occurred.
func (cr *ChunkReader) Read() *Variations {
	if cr.err != nil {
		return nil
	}
	var (
		chunk *Variations
		err   error
	)
	if cr.v.Backend() == array.Lazy {
		chunk, err = cr.readDeferred()
	} else {
		chunk, err = cr.readEager()
	}
	if err != nil {
		cr.err = fmt.Errorf("reading chunk %d: %w", cr.ChunksSeen, err)
		return nil
	}
	if chunk != nil {
		cr.ChunksSeen++
	}
	return chunk
}

func (cr *ChunkReader) readEager() (*Variations, error) {
	n, err := cr.v.NumVariations()
	if err != nil {
		return nil, err
	}
	if cr.offset >= n {
		return nil, nil
	}
	to := n
	if cr.chunkSize > 0 {
		to = min(cr.offset+cr.chunkSize, n)
	}
	out := cr.v.derive(cr.v.samples)
	for _, name := range cr.v.order {
		a, err := array.Eager.Slice(cr.v.fields[name], 0, cr.offset, to)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out.put(name, a)
	}
	cr.offset = to
	return out, nil
}

func (cr *ChunkReader) readDeferred() (*Variations, error) {
	if len(cr.v.order) == 0 {
		return nil, nil
	}
	arrays := make([]array.Array, len(cr.v.order))
	numChunks := -1
	for i, name := range cr.v.order {
		d, ok := cr.v.fields[name].(*array.Deferred)
		if !ok {
			return nil, fmt.Errorf("%w: field %s", ErrUnsupportedBackend, name)
		}
		if numChunks == -1 {
			numChunks = d.NumChunks()
		} else if d.NumChunks() != numChunks {
			return nil, fmt.Errorf("%w: field %s has %d chunks, expected %d", array.ErrChunkMismatch, name, d.NumChunks(), numChunks)
		}
		if cr.offset >= numChunks {
			return nil, nil
		}
		c, err := d.Chunk(cr.offset)
		if err != nil {
			return nil, err
		}
		arrays[i] = c
	}
	ds, err := array.Materialize(cr.ctx, arrays, cr.opts...)
	if err != nil {
		return nil, err
	}
	out := cr.v.derive(cr.v.samples)
	out.backend = array.Eager
	for i, name := range cr.v.order {
		out.put(name, ds[i])
	}
	cr.offset++
	return out, nil
}

package blockstore

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v2"

	"github.com/carbocation/variation"
	"github.com/carbocation/variation/array"
)

// Loader opens block stores for the statistics and filter pipelines.
var Loader variation.Loader = variation.LoaderFunc(Load)

// Load opens the store at path. With chunkSize <= 0 every field is read into
// memory and the store is closed before returning. Otherwise the fields are
// deferred: consecutive stored blocks are grouped into chunks of at least
// chunkSize variants and read when materialized, so the returned Closer must
// outlive every computation on the container.
func Load(ctx context.Context, path string, chunkSize int) (*variation.Variations, io.Closer, error) {
	s, err := Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	v, err := s.Variations(chunkSize)
	if err != nil {
		s.Close()
		return nil, nil, err
	}

	if chunkSize > 0 {
		return v, s, nil
	}

	mem, err := v.ToMemory(ctx)
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, nil, err
	}
	return mem, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Variations builds a deferred container over the store. chunkSize <= 0 keeps
// one chunk per stored block.
func (s *Store) Variations(chunkSize int) (*variation.Variations, error) {
	samples, err := s.Index.Samples()
	if err != nil {
		return nil, err
	}
	md := make(map[string]any)
	if err := yaml.Unmarshal([]byte(s.Index.Metadata.Metadata), &md); err != nil {
		return nil, fmt.Errorf("metadata of %s: %w", s.Path, err)
	}

	v, err := variation.New(
		variation.WithSamples(samples),
		variation.WithMetadata(md),
		variation.WithBackend(array.Lazy),
	)
	if err != nil {
		return nil, err
	}

	fields, err := s.Index.Fields()
	if err != nil {
		return nil, err
	}
	for _, fi := range fields {
		d, err := s.field(fi, chunkSize)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fi.Name, err)
		}
		if err := v.Set(fi.Name, d); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (s *Store) field(fi FieldIndex, chunkSize int) (*array.Deferred, error) {
	trailing, err := parseDims(fi.Trailing)
	if err != nil {
		return nil, err
	}
	blocks, err := s.Index.Blocks(fi.Name)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		dims := append([]int{0}, trailing...)
		return array.Chunked(array.Zeros(fi.Kind, dims...), 0), nil
	}

	var chunks []array.Chunk
	for _, group := range groupBlocks(blocks, chunkSize) {
		group := group
		rows := 0
		for _, b := range group {
			rows += b.Rows
		}
		chunks = append(chunks, array.Chunk{
			Rows: rows,
			Load: func(ctx context.Context) (*array.Dense, error) {
				parts := make([]*array.Dense, 0, len(group))
				for _, b := range group {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
					d, err := s.ReadBlock(fi, trailing, b)
					if err != nil {
						return nil, err
					}
					parts = append(parts, d)
				}
				if len(parts) == 1 {
					return parts[0], nil
				}
				return array.ConcatRows(fi.Kind, trailing, parts)
			},
		})
	}
	return array.FromChunks(fi.Kind, trailing, chunks)
}

// groupBlocks splits blocks into runs holding at least chunkSize rows. Only
// the last run may hold fewer.
func groupBlocks(blocks []BlockIndex, chunkSize int) [][]BlockIndex {
	var (
		groups [][]BlockIndex
		cur    []BlockIndex
		rows   int
	)
	for _, b := range blocks {
		cur = append(cur, b)
		rows += b.Rows
		if rows >= chunkSize {
			groups = append(groups, cur)
			cur, rows = nil, 0
		}
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

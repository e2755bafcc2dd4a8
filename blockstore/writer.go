package blockstore

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/carbocation/pfx"
	"gopkg.in/yaml.v2"

	"github.com/carbocation/variation"
	"github.com/carbocation/variation/array"
)

// DefaultChunkRows is the number of variants per block when WriteOptions
// leaves it unset.
const DefaultChunkRows = 10000

// WriteOptions configures Write.
type WriteOptions struct {
	// ChunkRows is the block size for eager containers. Deferred containers
	// keep their own chunks.
	ChunkRows   int
	Compression Compression
}

// Write stores v under the directory dir, replacing any store already there.
func Write(ctx context.Context, dir string, v *variation.Variations, opts WriteOptions) error {
	names := v.Fields()
	if len(names) == 0 {
		return variation.ErrEmptyVariations
	}
	if opts.ChunkRows <= 0 {
		opts.ChunkRows = DefaultChunkRows
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pfx.Err(err)
	}
	indexPath := filepath.Join(dir, IndexFileName)
	if err := os.Remove(indexPath); err != nil && !os.IsNotExist(err) {
		return pfx.Err(err)
	}

	f, err := os.Create(filepath.Join(dir, BlockFileName))
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)

	ix, err := createIndex(indexPath)
	if err != nil {
		return err
	}
	defer ix.Close()

	tx, err := ix.DB.Beginx()
	if err != nil {
		return pfx.Err(err)
	}
	defer tx.Rollback()

	for i, s := range v.Samples() {
		if _, err := tx.NamedExec("INSERT INTO Sample (position, sample_id) VALUES (:position, :sample_id)", Sample{Position: i, SampleID: s}); err != nil {
			return pfx.Err(err)
		}
	}

	for i, name := range names {
		a, _ := v.Get(name)
		trailing := array.Shape(a.Shape()[1:])
		if !trailing.Known() {
			return fmt.Errorf("field %s: %w", name, variation.ErrNotMaterialized)
		}
		fi := FieldIndex{Position: i, Name: name, Kind: a.Kind(), Trailing: formatDims(trailing)}
		if _, err := tx.NamedExec("INSERT INTO Field (position, name, kind, trailing) VALUES (:position, :name, :kind, :trailing)", fi); err != nil {
			return pfx.Err(err)
		}
	}

	var (
		offset int64
		rows   int
		chunk  int
	)
	cr := v.NewChunkReader(ctx, opts.ChunkRows)
	for part := cr.Read(); part != nil; part = cr.Read() {
		n, err := part.NumVariations()
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		for _, name := range names {
			a, _ := part.Get(name)
			d, ok := a.(*array.Dense)
			if !ok {
				return fmt.Errorf("%w: field %s", variation.ErrUnsupportedBackend, name)
			}

			raw, err := encodeBlock(d)
			if err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
			packed, used, err := compress(opts.Compression, raw)
			if err != nil {
				return pfx.Err(err)
			}
			if _, err := bw.Write(packed); err != nil {
				return pfx.Err(err)
			}

			b := BlockIndex{
				Field:             name,
				Chunk:             chunk,
				Rows:              n,
				Compression:       used,
				FileStartPosition: offset,
				SizeInBytes:       int64(len(packed)),
				DecompressedSize:  int64(len(raw)),
			}
			if _, err := tx.NamedExec(`INSERT INTO Block (field, chunk, rows, compression, file_start_position, size_in_bytes, decompressed_size)
				VALUES (:field, :chunk, :rows, :compression, :file_start_position, :size_in_bytes, :decompressed_size)`, b); err != nil {
				return pfx.Err(err)
			}
			offset += b.SizeInBytes
		}
		rows += n
		chunk++
	}
	if err := cr.Error(); err != nil {
		return err
	}

	md, err := yaml.Marshal(v.Metadata())
	if err != nil {
		return pfx.Err(err)
	}
	meta := StoreMetadata{
		FormatVersion: FormatVersion,
		Compression:   opts.Compression,
		NumVariations: rows,
		ChunkRows:     opts.ChunkRows,
		CreationTime:  Time(time.Now()),
		Metadata:      string(md),
	}
	if _, err := tx.NamedExec(`INSERT INTO Metadata (format_version, compression, num_variations, chunk_rows, creation_time, metadata)
		VALUES (:format_version, :compression, :num_variations, :chunk_rows, :creation_time, :metadata)`, meta); err != nil {
		return pfx.Err(err)
	}

	if err := bw.Flush(); err != nil {
		return pfx.Err(err)
	}
	if err := f.Sync(); err != nil {
		return pfx.Err(err)
	}
	if err := tx.Commit(); err != nil {
		return pfx.Err(err)
	}
	return nil
}

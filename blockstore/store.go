// Package blockstore keeps a variation container on disk as one SQLite index
// and one file of compressed blocks, one block per field and chunk of
// variants. Stores are directories named <name>.vstore, locally or under
// gs://.
package blockstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"

	"github.com/carbocation/variation/array"
)

// A store is a directory named with Suffix holding the index and the block
// file.
const (
	Suffix        = ".vstore"
	IndexFileName = "index.db"
	BlockFileName = "blocks.bin"
)

// Store is an open block store. It is safe for concurrent block reads.
type Store struct {
	Path  string
	Index *Index

	blocks  io.ReaderAt
	cleanup []func() error
}

// Open opens the store at path, a local directory or a gs:// prefix.
func Open(ctx context.Context, path string) (*Store, error) {
	s := &Store{Path: path}

	indexPath := filepath.Join(path, IndexFileName)
	if isGS(path) {
		ip, blocks, cleanup, err := openGS(ctx, path)
		if err != nil {
			return nil, err
		}
		indexPath, s.blocks = ip, blocks
		s.cleanup = append(s.cleanup, cleanup)
	} else {
		if _, err := os.Stat(indexPath); err != nil {
			return nil, pfx.Err(err)
		}
		f, err := os.Open(filepath.Join(path, BlockFileName))
		if err != nil {
			return nil, pfx.Err(err)
		}
		s.blocks = f
		s.cleanup = append(s.cleanup, f.Close)
	}

	ix, err := OpenIndex(indexPath)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Index = ix

	return s, nil
}

// Close releases the index, the block file and any temporary download.
func (s *Store) Close() error {
	var err error
	if s.Index != nil {
		err = s.Index.Close()
		s.Index = nil
	}
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		if cerr := s.cleanup[i](); cerr != nil && err == nil {
			err = cerr
		}
	}
	s.cleanup = nil
	return err
}

// ReadBlock loads and decodes one block of field.
func (s *Store) ReadBlock(field FieldIndex, trailing array.Shape, b BlockIndex) (*array.Dense, error) {
	buf := make([]byte, b.SizeInBytes)
	if _, err := s.blocks.ReadAt(buf, b.FileStartPosition); err != nil {
		return nil, pfx.Err(fmt.Errorf("block %d of %s: %w", b.Chunk, field.Name, err))
	}

	raw, err := decompress(b.Compression, buf, int(b.DecompressedSize))
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("block %d of %s: %w", b.Chunk, field.Name, err))
	}

	shape := append(array.Shape{b.Rows}, trailing...)
	return decodeBlock(field.Kind, shape, raw)
}

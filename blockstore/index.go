package blockstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"

	"github.com/carbocation/variation/array"
)

// FormatVersion is written to the Metadata table of every new index.
const FormatVersion = 1

const schema = `
CREATE TABLE Metadata (
	format_version INTEGER NOT NULL,
	compression INTEGER NOT NULL,
	num_variations INTEGER NOT NULL,
	chunk_rows INTEGER NOT NULL,
	creation_time INTEGER NOT NULL,
	metadata TEXT NOT NULL
);
CREATE TABLE Sample (
	position INTEGER PRIMARY KEY,
	sample_id TEXT NOT NULL
);
CREATE TABLE Field (
	position INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	kind INTEGER NOT NULL,
	trailing TEXT NOT NULL
);
CREATE TABLE Block (
	field TEXT NOT NULL,
	chunk INTEGER NOT NULL,
	rows INTEGER NOT NULL,
	compression INTEGER NOT NULL,
	file_start_position INTEGER NOT NULL,
	size_in_bytes INTEGER NOT NULL,
	decompressed_size INTEGER NOT NULL,
	PRIMARY KEY (field, chunk)
);
`

// Index is the SQLite file of a store: what the store holds and where every
// block lives in the block file.
// Index is the opened SQLite index of a store.
type Index struct {
	DB       *sqlx.DB
	Metadata *StoreMetadata
}

// Close closes the database.
func (ix *Index) Close() error {
	return ix.DB.Close()
}

// StoreMetadata conforms to the single row of the "Metadata" table.
type StoreMetadata struct {
	FormatVersion int         `db:"format_version"`
	Compression   Compression `db:"compression"`
	NumVariations int         `db:"num_variations"`
	ChunkRows     int         `db:"chunk_rows"`
	CreationTime  Time        `db:"creation_time"`
	// Metadata is the container metadata as YAML.
	Metadata string `db:"metadata"`
}

// Sample conforms to the rows of the "Sample" table.
type Sample struct {
	Position int    `db:"position"`
	SampleID string `db:"sample_id"`
}

// FieldIndex conforms to the rows of the "Field" table. Trailing holds the
// dimensions after the variant axis, comma separated.
type FieldIndex struct {
	Position int        `db:"position"`
	Name     string     `db:"name"`
	Kind     array.Kind `db:"kind"`
	Trailing string     `db:"trailing"`
}

// BlockIndex conforms to the rows of the "Block" table.
type BlockIndex struct {
	Field             string      `db:"field"`
	Chunk             int         `db:"chunk"`
	Rows              int         `db:"rows"`
	Compression       Compression `db:"compression"`
	FileStartPosition int64       `db:"file_start_position"`
	SizeInBytes       int64       `db:"size_in_bytes"`
	DecompressedSize  int64       `db:"decompressed_size"`
}

// OpenIndex opens an existing index and reads its metadata.
func OpenIndex(path string) (*Index, error) {
	db, err := connect(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	ix := &Index{DB: db, Metadata: &StoreMetadata{}}
	if err := ix.DB.Get(ix.Metadata, "SELECT * FROM Metadata LIMIT 1"); err != nil {
		db.Close()
		return nil, pfx.Err(fmt.Errorf("%s has no store metadata: %w", path, err))
	}
	if ix.Metadata.FormatVersion != FormatVersion {
		db.Close()
		return nil, pfx.Err(fmt.Errorf("%s has format version %d, expected %d", path, ix.Metadata.FormatVersion, FormatVersion))
	}
	return ix, nil
}

func createIndex(path string) (*Index, error) {
	db, err := connect(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}
	return &Index{DB: db, Metadata: &StoreMetadata{}}, nil
}

// Samples returns the sample identifiers in column order.
func (ix *Index) Samples() ([]string, error) {
	var rows []Sample
	if err := ix.DB.Select(&rows, "SELECT * FROM Sample ORDER BY position"); err != nil {
		return nil, pfx.Err(err)
	}
	samples := make([]string, len(rows))
	for i, s := range rows {
		samples[i] = s.SampleID
	}
	return samples, nil
}

// Fields lists the stored fields in insertion order.
func (ix *Index) Fields() ([]FieldIndex, error) {
	var fields []FieldIndex
	if err := ix.DB.Select(&fields, "SELECT * FROM Field ORDER BY position"); err != nil {
		return nil, pfx.Err(err)
	}
	return fields, nil
}

// Blocks returns the blocks of field in row order.
func (ix *Index) Blocks(field string) ([]BlockIndex, error) {
	var blocks []BlockIndex
	if err := ix.DB.Select(&blocks, "SELECT * FROM Block WHERE field = ? ORDER BY chunk", field); err != nil {
		return nil, pfx.Err(err)
	}
	return blocks, nil
}

func formatDims(s array.Shape) string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func parseDims(s string) (array.Shape, error) {
	shape := array.Shape{}
	if s == "" {
		return shape, nil
	}
	for _, part := range strings.Split(s, ",") {
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("bad dimensions %q: %w", s, err))
		}
		shape = append(shape, d)
	}
	return shape, nil
}

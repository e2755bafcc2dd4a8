// Package filetype tells the storage formats of variation matrices apart.
package filetype

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"

	"github.com/carbocation/variation"
)

// Format is a storage format of variation matrices.
type Format byte

const (
	FormatInvalid Format = iota
	FormatHDF5
	FormatZarr
	FormatBlockStore
)

func (f Format) String() string {
	switch f {
	case FormatHDF5:
		return "hdf5"
	case FormatZarr:
		return "zarr"
	case FormatBlockStore:
		return "vstore"
	}
	return "Illegal selection"
}

// HeaderSize is the number of leading bytes Detect inspects.
const HeaderSize = 32

// HDF5Signature opens every HDF5 file.
var HDF5Signature = []byte{0x89, 0x48, 0x44, 0x46, 0x0d, 0x0a, 0x1a, 0x0a}

var suffixes = map[string]Format{
	".h5":     FormatHDF5,
	".hdf5":   FormatHDF5,
	".zarr":   FormatZarr,
	".vstore": FormatBlockStore,
}

// dirFormats are the formats stored as directories.
var dirFormats = map[Format]bool{
	FormatZarr:       true,
	FormatBlockStore: true,
}

// Detect returns the format of path. Remote (gs://) and absent paths are
// judged by their suffix, directories by their suffix among the directory
// formats, and files by their header. Anything else is
// variation.ErrUnsupportedFileType.
func Detect(path string) (Format, error) {
	if strings.HasPrefix(path, "gs://") {
		return bySuffix(path)
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return bySuffix(path)
	case err != nil:
		return FormatInvalid, pfx.Err(err)
	case info.IsDir():
		f, err := bySuffix(path)
		if err != nil {
			return FormatInvalid, err
		}
		if !dirFormats[f] {
			return FormatInvalid, fmt.Errorf("%w: %s is a directory, but not %s or %s", variation.ErrUnsupportedFileType, path, FormatZarr, FormatBlockStore)
		}
		return f, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return FormatInvalid, pfx.Err(err)
	}
	defer f.Close()
	return DetectHeader(f, path)
}

// DetectHeader reads the first HeaderSize bytes of r, which must open with a
// known signature. name is only used in errors.
func DetectHeader(r io.Reader, name string) (Format, error) {
	header := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatInvalid, pfx.Err(err)
	}
	if bytes.HasPrefix(header[:n], HDF5Signature) {
		return FormatHDF5, nil
	}
	return FormatInvalid, fmt.Errorf("%w: %s", variation.ErrUnsupportedFileType, name)
}

func bySuffix(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimRight(path, "/")))
	if f, ok := suffixes[ext]; ok {
		return f, nil
	}
	return FormatInvalid, fmt.Errorf("%w: %s", variation.ErrUnsupportedFileType, path)
}

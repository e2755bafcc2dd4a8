package blockstore

import (
	"io"
)

// Boolean blocks are packed eight values per byte, most significant bit
// first.

type bitReader struct {
	reader io.ByteReader
	byte   byte
	offset byte
}

func newBitReader(r io.ByteReader) *bitReader {
	return &bitReader{reader: r}
}

func (r *bitReader) ReadBit() (bool, error) {
	if r.offset == 8 {
		r.offset = 0
	}
	if r.offset == 0 {
		var err error
		if r.byte, err = r.reader.ReadByte(); err != nil {
			return false, err
		}
	}
	bit := (r.byte & (0x80 >> r.offset)) != 0
	r.offset++
	return bit, nil
}

type bitWriter struct {
	out    []byte
	offset byte
}

func (w *bitWriter) WriteBit(bit bool) {
	if w.offset == 0 {
		w.out = append(w.out, 0)
	}
	if bit {
		w.out[len(w.out)-1] |= 0x80 >> w.offset
	}
	w.offset = (w.offset + 1) % 8
}

// Bytes returns the packed bits; the last byte is padded with zeros.
func (w *bitWriter) Bytes() []byte {
	return w.out
}

package blockstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/carbocation/variation/array"
)

// encodeBlock serializes the values of d. Integers are zigzag varints,
// floats little-endian IEEE 754, strings length-prefixed and booleans
// bit-packed. The shape is kept in the index, not in the block.
func encodeBlock(d *array.Dense) ([]byte, error) {
	kind := d.Kind()
	switch {
	case kind.IsInteger():
		out := make([]byte, 0, d.Len())
		for _, v := range d.Ints() {
			out = binary.AppendVarint(out, v)
		}
		return out, nil
	case kind.IsFloat():
		out := make([]byte, 8*d.Len())
		for i, v := range d.Floats() {
			binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
		}
		return out, nil
	case kind == array.Bool:
		var bw bitWriter
		for _, v := range d.Bools() {
			bw.WriteBit(v)
		}
		return bw.Bytes(), nil
	case kind == array.String:
		var out []byte
		for _, v := range d.Strings() {
			out = binary.AppendUvarint(out, uint64(len(v)))
			out = append(out, v...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: cannot store %s", array.ErrKind, kind)
}

// decodeBlock is the inverse of encodeBlock.
func decodeBlock(kind array.Kind, shape array.Shape, data []byte) (*array.Dense, error) {
	n := shape.Size()
	switch {
	case kind.IsInteger():
		values := make([]int64, n)
		for i := range values {
			v, k := binary.Varint(data)
			if k <= 0 {
				return nil, fmt.Errorf("corrupt integer block at value %d", i)
			}
			values[i], data = v, data[k:]
		}
		return array.NewInts(kind, shape, values)
	case kind.IsFloat():
		if len(data) != 8*n {
			return nil, fmt.Errorf("float block has %d bytes, expected %d", len(data), 8*n)
		}
		values := make([]float64, n)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
		}
		return array.NewFloats(kind, shape, values)
	case kind == array.Bool:
		br := newBitReader(bytes.NewReader(data))
		values := make([]bool, n)
		for i := range values {
			bit, err := br.ReadBit()
			if err != nil {
				return nil, fmt.Errorf("corrupt boolean block at value %d: %w", i, err)
			}
			values[i] = bit
		}
		return array.NewBools(shape, values)
	case kind == array.String:
		values := make([]string, n)
		for i := range values {
			size, k := binary.Uvarint(data)
			if k <= 0 || uint64(len(data)-k) < size {
				return nil, fmt.Errorf("corrupt string block at value %d", i)
			}
			values[i] = string(data[k : k+int(size)])
			data = data[k+int(size):]
		}
		return array.NewStrings(shape, values)
	}
	return nil, fmt.Errorf("%w: cannot load %s", array.ErrKind, kind)
}

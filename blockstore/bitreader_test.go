package blockstore

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitReader(t *testing.T) {
	br := newBitReader(bytes.NewBuffer([]byte{0xa0, 0x01}))
	var bits []bool
	for i := 0; i < 16; i++ {
		bit, err := br.ReadBit()
		require.NoError(t, err)
		bits = append(bits, bit)
	}
	assert.Equal(t, []bool{true, false, true}, bits[:3])
	assert.True(t, bits[15])
	assert.Equal(t, 2, count(bits[:15]))

	_, err := br.ReadBit()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBitWriter(t *testing.T) {
	values := []bool{true, false, true, true, false, false, false, false, true, true}
	var bw bitWriter
	for _, v := range values {
		bw.WriteBit(v)
	}
	require.Len(t, bw.Bytes(), 2)
	assert.Equal(t, byte(0xb0), bw.Bytes()[0])

	br := newBitReader(bytes.NewReader(bw.Bytes()))
	for i, want := range values {
		got, err := br.ReadBit()
		require.NoError(t, err)
		assert.Equal(t, want, got, "bit %d", i)
	}
}

func count(bits []bool) int {
	n := 0
	for _, b := range bits {
		if b {
			n++
		}
	}
	return n
}

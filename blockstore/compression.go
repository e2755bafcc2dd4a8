package blockstore

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/carbocation/pfx"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression indicates how (and whether) the blocks of a store are
// compressed.
type Compression uint32

const (
	CompressionDisabled Compression = iota
	CompressionZLIB
	CompressionZStandard
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionDisabled:
		return "none"
	case CompressionZLIB:
		return "zlib"
	case CompressionZStandard:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	}
	return "Illegal selection"
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// compress encodes one block. It returns the compression actually used: lz4
// blocks that do not compress and empty blocks are stored as they are.
func compress(c Compression, data []byte) ([]byte, Compression, error) {
	if len(data) == 0 {
		return data, CompressionDisabled, nil
	}
	switch c {
	case CompressionDisabled:
		return data, c, nil
	case CompressionZLIB:
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, c, pfx.Err(err)
		}
		if err := w.Close(); err != nil {
			return nil, c, pfx.Err(err)
		}
		return buf.Bytes(), c, nil
	case CompressionZStandard:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), c, nil
	case CompressionLZ4:
		out := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, out, nil)
		if err != nil {
			return nil, c, pfx.Err(err)
		}
		if n == 0 {
			return data, CompressionDisabled, nil
		}
		return out[:n], c, nil
	}
	return nil, c, fmt.Errorf("unknown compression %d", c)
}

// decompress decodes one block of size bytes.
func decompress(c Compression, src []byte, size int) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch c {
	case CompressionDisabled:
		out = src
	case CompressionZLIB:
		var r io.ReadCloser
		if r, err = zlib.NewReader(bytes.NewReader(src)); err != nil {
			return nil, pfx.Err(err)
		}
		defer r.Close()
		out = make([]byte, size)
		if _, err = io.ReadFull(r, out); err != nil {
			return nil, pfx.Err(err)
		}
	case CompressionZStandard:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		if out, err = dec.DecodeAll(src, make([]byte, 0, size)); err != nil {
			return nil, pfx.Err(err)
		}
	case CompressionLZ4:
		out = make([]byte, size)
		var n int
		if n, err = lz4.UncompressBlock(src, out); err != nil {
			return nil, pfx.Err(err)
		}
		out = out[:n]
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}
	if len(out) != size {
		return nil, fmt.Errorf("decompressed %d bytes, expected %d", len(out), size)
	}
	return out, nil
}

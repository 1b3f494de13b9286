package blob

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the per-payload compression scheme.
type Compression uint8

const (
	// None stores payloads verbatim.
	None Compression = iota
	// Zstd compresses payloads with zstandard.
	Zstd
	// LZ4 compresses payloads with lz4 block compression.
	LZ4
)

// Encoder/decoder reuse. zstd encoders are expensive to construct, so they
// are pooled across blobs.
var (
	zstdEncPool = sync.Pool{New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		return enc
	}}
	zstdDecPool = sync.Pool{New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	}}
)

// compress attempts the requested scheme and falls back to None when the
// result would not be smaller (e.g. lz4 on incompressible input).
func compress(want Compression, raw []byte) ([]byte, Compression) {
	if len(raw) == 0 {
		return raw, None
	}

	switch want {
	case Zstd:
		enc := zstdEncPool.Get().(*zstd.Encoder)
		out := enc.EncodeAll(raw, nil)
		zstdEncPool.Put(enc)
		if len(out) < len(raw) {
			return out, Zstd
		}
	case LZ4:
		out := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, out, nil)
		if err == nil && n > 0 && n < len(raw) {
			return out[:n], LZ4
		}
	}
	return raw, None
}

func decompress(comp Compression, stored []byte, rawLen int) ([]byte, error) {
	switch comp {
	case None:
		return stored, nil
	case Zstd:
		dec := zstdDecPool.Get().(*zstd.Decoder)
		out, err := dec.DecodeAll(stored, make([]byte, 0, rawLen))
		zstdDecPool.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
		return out, nil
	case LZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}
		return out[:n], nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, comp)
	}
}

// Package blob implements the combined opaque-values file of a pack
// directory.
//
// The format is self-describing and supports keyed partial access: a fixed
// header records the payload codec, followed by an index of
// (name, nested key, offset, length) records, followed by the payloads.
// A reader can decode a subset of entries without touching the payload
// bytes of skipped ones, which keeps name-level skips cheap on large blobs.
package blob

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/varpack/codec"
)

// FileName is the fixed blob file name within a pack directory.
const FileName = "__misc_vars__.blob"

const (
	version    = 1
	headerSize = 4 + 2 + 1 + 1 // magic, version, compression, codec name length
)

var magic = [4]byte{'V', 'P', 'B', 'L'}

var (
	// ErrBadMagic is returned when the file does not start with the blob magic.
	ErrBadMagic = errors.New("blob: bad magic")
	// ErrUnsupportedVersion is returned for format versions newer than this library.
	ErrUnsupportedVersion = errors.New("blob: unsupported format version")
	// ErrCorrupt is returned when the index or a payload is malformed.
	ErrCorrupt = errors.New("blob: corrupt file")
	// ErrUnknownCodec is returned when the recorded codec name is not registered.
	ErrUnknownCodec = errors.New("blob: unknown codec")
)

// Entry is one opaque value with its container location.
type Entry struct {
	// Name is the top-level variable name.
	Name string
	// Key is the nested mapping key, empty for top-level values.
	Key string
	// Value is the codec-decoded payload.
	Value any
}

type indexEntry struct {
	name        string
	key         string
	compression Compression
	offset      uint64 // absolute file offset of the stored payload
	storedLen   uint64
	rawLen      uint64 // uncompressed payload length
}

// Writer accumulates entries and renders them as one blob file.
// Payloads are encoded on Add, so encode errors surface at the offending
// entry rather than at flush time.
type Writer struct {
	codec       codec.Codec
	compression Compression

	entries  []indexEntry
	payloads [][]byte
}

// NewWriter creates a Writer. Payloads are encoded with c (codec.Default if
// nil) and compressed with comp where it shrinks them.
func NewWriter(c codec.Codec, comp Compression) *Writer {
	if c == nil {
		c = codec.Default
	}
	return &Writer{codec: c, compression: comp}
}

// Len returns the number of entries added so far.
func (w *Writer) Len() int { return len(w.entries) }

// Add encodes v and appends it under (name, key). key is empty for
// top-level values.
func (w *Writer) Add(name, key string, v any) error {
	if len(name) > 0xFFFF || len(key) > 0xFFFF {
		return fmt.Errorf("blob: name or key of %s exceeds 65535 bytes", logicalPath(name, key))
	}

	raw, err := w.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("blob: encode %s: %w", logicalPath(name, key), err)
	}

	stored, comp := compress(w.compression, raw)
	w.entries = append(w.entries, indexEntry{
		name:        name,
		key:         key,
		compression: comp,
		storedLen:   uint64(len(stored)),
		rawLen:      uint64(len(raw)),
	})
	w.payloads = append(w.payloads, stored)
	return nil
}

// WriteTo renders the blob file to out.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	codecName := w.codec.Name()
	if len(codecName) > 0xFF {
		return 0, fmt.Errorf("blob: codec name too long")
	}

	// Index size is needed up front to assign absolute payload offsets.
	indexSize := 4 // entry count
	for _, e := range w.entries {
		indexSize += 2 + len(e.name) + 2 + len(e.key) + 1 + 8 + 8 + 8
	}

	offset := uint64(headerSize + len(codecName) + indexSize)
	for i := range w.entries {
		w.entries[i].offset = offset
		offset += w.entries[i].storedLen
	}

	buf := make([]byte, 0, offset)
	buf = append(buf, magic[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, version)
	buf = append(buf, byte(w.compression))
	buf = append(buf, byte(len(codecName)))
	buf = append(buf, codecName...)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(w.entries)))
	for _, e := range w.entries {
		buf = appendString16(buf, e.name)
		buf = appendString16(buf, e.key)
		buf = append(buf, byte(e.compression))
		buf = binary.LittleEndian.AppendUint64(buf, e.offset)
		buf = binary.LittleEndian.AppendUint64(buf, e.storedLen)
		buf = binary.LittleEndian.AppendUint64(buf, e.rawLen)
	}
	for _, p := range w.payloads {
		buf = append(buf, p...)
	}

	n, err := out.Write(buf)
	return int64(n), err
}

func appendString16(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func logicalPath(name, key string) string {
	if key == "" {
		return name
	}
	return name + "[" + key + "]"
}

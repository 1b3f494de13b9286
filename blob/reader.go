package blob

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/varpack/codec"
)

// Reader parses a blob file and decodes entries selectively.
//
// Construction only reads the header and index; payload bytes are touched
// lazily by Decode, and only for entries the caller does not skip.
type Reader struct {
	data      []byte
	codec     codec.Codec
	codecName string
	index     []indexEntry
}

// NewReader parses the header and index of a blob file held in data.
// The payload codec is selected by the name recorded in the header.
func NewReader(data []byte) (*Reader, error) {
	if len(data) < headerSize || [4]byte(data[:4]) != magic {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	// data[6] is the writer's requested compression; per-entry records are
	// authoritative, so it is informational only.
	nameLen := int(data[7])
	if len(data) < headerSize+nameLen+4 {
		return nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	codecName := string(data[headerSize : headerSize+nameLen])

	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codecName)
	}

	r := &Reader{data: data, codec: c, codecName: codecName}

	pos := headerSize + nameLen
	count := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4

	r.index = make([]indexEntry, 0, count)
	for i := 0; i < count; i++ {
		var e indexEntry
		var err error
		if e.name, pos, err = readString16(data, pos); err != nil {
			return nil, err
		}
		if e.key, pos, err = readString16(data, pos); err != nil {
			return nil, err
		}
		if pos+1+8+8+8 > len(data) {
			return nil, fmt.Errorf("%w: truncated index", ErrCorrupt)
		}
		e.compression = Compression(data[pos])
		pos++
		e.offset = binary.LittleEndian.Uint64(data[pos:])
		e.storedLen = binary.LittleEndian.Uint64(data[pos+8:])
		e.rawLen = binary.LittleEndian.Uint64(data[pos+16:])
		pos += 24

		// Checked per operand: the sum can wrap around uint64.
		if e.offset > uint64(len(data)) || e.storedLen > uint64(len(data))-e.offset {
			return nil, fmt.Errorf("%w: payload of %s out of bounds", ErrCorrupt, logicalPath(e.name, e.key))
		}
		r.index = append(r.index, e)
	}

	return r, nil
}

// UseCodec overrides the payload codec selected from the header, for custom
// codecs not registered under a built-in name.
func (r *Reader) UseCodec(c codec.Codec) { r.codec = c }

// CodecName returns the codec name recorded in the header.
func (r *Reader) CodecName() string { return r.codecName }

// Len returns the number of entries in the blob.
func (r *Reader) Len() int { return len(r.index) }

// Names returns the distinct top-level names present, in index order.
func (r *Reader) Names() []string {
	seen := make(map[string]struct{}, len(r.index))
	var names []string
	for _, e := range r.index {
		if _, ok := seen[e.name]; ok {
			continue
		}
		seen[e.name] = struct{}{}
		names = append(names, e.name)
	}
	return names
}

// Decode decompresses and decodes every entry whose top-level name is not
// skipped, in index order. Skipped payloads are never decompressed or
// decoded.
func (r *Reader) Decode(skip func(name string) bool) ([]Entry, error) {
	var out []Entry
	for _, e := range r.index {
		if skip != nil && skip(e.name) {
			continue
		}

		raw, err := decompress(e.compression, r.data[e.offset:e.offset+e.storedLen], int(e.rawLen))
		if err != nil {
			return nil, err
		}

		var v any
		if err := r.codec.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %w", ErrCorrupt, logicalPath(e.name, e.key), err)
		}
		out = append(out, Entry{Name: e.name, Key: e.key, Value: v})
	}
	return out, nil
}

func readString16(data []byte, pos int) (string, int, error) {
	if pos+2 > len(data) {
		return "", 0, fmt.Errorf("%w: truncated index", ErrCorrupt)
	}
	n := int(binary.LittleEndian.Uint16(data[pos:]))
	pos += 2
	if pos+n > len(data) {
		return "", 0, fmt.Errorf("%w: truncated index", ErrCorrupt)
	}
	return string(data[pos : pos+n]), pos + n, nil
}

package blob

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/varpack/codec"
)

func render(t *testing.T, w *Writer) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := w.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestWriteRead_RoundTrip(t *testing.T) {
	w := NewWriter(nil, None)
	require.NoError(t, w.Add("var2", "", 20.0))
	require.NoError(t, w.Add("var3", "", "s"))
	require.NoError(t, w.Add("var4", "meta", map[string]any{"unit": "mV"}))
	assert.Equal(t, 3, w.Len())

	r, err := NewReader(render(t, w))
	require.NoError(t, err)
	assert.Equal(t, codec.Default.Name(), r.CodecName())
	assert.Equal(t, []string{"var2", "var3", "var4"}, r.Names())

	entries, err := r.Decode(nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, Entry{Name: "var2", Value: 20.0}, entries[0])
	assert.Equal(t, Entry{Name: "var3", Value: "s"}, entries[1])
	assert.Equal(t, "meta", entries[2].Key)
	assert.Equal(t, map[string]any{"unit": "mV"}, entries[2].Value)
}

func TestCompression_RoundTrip(t *testing.T) {
	long := strings.Repeat("varpack ", 4096)

	for _, comp := range []Compression{None, Zstd, LZ4} {
		w := NewWriter(codec.JSON{}, comp)
		require.NoError(t, w.Add("text", "", long))
		require.NoError(t, w.Add("n", "", 1.0)) // too small to compress

		data := render(t, w)
		if comp != None {
			assert.Less(t, len(data), len(long), "compression %d", comp)
		}

		r, err := NewReader(data)
		require.NoError(t, err)
		entries, err := r.Decode(nil)
		require.NoError(t, err)
		assert.Equal(t, long, entries[0].Value)
		assert.Equal(t, 1.0, entries[1].Value)
	}
}

// countingCodec counts Unmarshal calls to prove skipped entries are never
// decoded.
type countingCodec struct {
	codec.Codec
	decodes *int
}

func (c countingCodec) Unmarshal(data []byte, v any) error {
	*c.decodes++
	return c.Codec.Unmarshal(data, v)
}

func TestDecode_SkipAvoidsDecoding(t *testing.T) {
	w := NewWriter(nil, Zstd)
	require.NoError(t, w.Add("big", "", strings.Repeat("x", 1<<20)))
	require.NoError(t, w.Add("small", "", 7.0))

	r, err := NewReader(render(t, w))
	require.NoError(t, err)

	decodes := 0
	r.UseCodec(countingCodec{Codec: codec.Default, decodes: &decodes})

	entries, err := r.Decode(func(name string) bool { return name == "big" })
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "small", entries[0].Name)
	assert.Equal(t, 1, decodes)
}

func TestNewReader_BadMagic(t *testing.T) {
	_, err := NewReader([]byte("definitely not a blob"))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestNewReader_UnsupportedVersion(t *testing.T) {
	w := NewWriter(nil, None)
	require.NoError(t, w.Add("a", "", 1.0))
	data := render(t, w)
	data[4] = 0xFF

	_, err := NewReader(data)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestNewReader_Truncated(t *testing.T) {
	w := NewWriter(nil, None)
	require.NoError(t, w.Add("a", "", "value"))
	data := render(t, w)

	_, err := NewReader(data[:len(data)-3])
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestNewReader_OverflowingIndex(t *testing.T) {
	w := NewWriter(nil, None)
	require.NoError(t, w.Add("a", "", "value"))
	data := render(t, w)

	// Patch offset and stored length so their sum wraps around uint64
	// while each operand alone is out of bounds.
	pos := headerSize + len(codec.Default.Name()) + 4 + 2 + 1 + 2 + 0 + 1
	binary.LittleEndian.PutUint64(data[pos:], math.MaxUint64-9)
	binary.LittleEndian.PutUint64(data[pos+8:], 20)

	_, err := NewReader(data)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestAdd_OversizedNameOrKey(t *testing.T) {
	w := NewWriter(nil, None)

	assert.Error(t, w.Add(strings.Repeat("n", 0x10000), "", 1.0))
	assert.Error(t, w.Add("a", strings.Repeat("k", 0x10000), 1.0))
	assert.Equal(t, 0, w.Len())
}

package npy

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/varpack/array"
	"github.com/hupe1980/varpack/internal/mmap"
)

func writeTemp(t *testing.T, a *array.Array) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arr"+Ext)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, Write(f, a))
	require.NoError(t, f.Close())
	return path
}

func TestWriteRead_RoundTrip(t *testing.T) {
	tests := []*array.Array{
		array.Ones(array.Float64, 3, 4),
		array.Zeros(array.Float32, 7),
		array.Ones(array.Int64, 2, 2, 2),
		array.Zeros(array.Uint8, 5, 1),
	}

	for _, want := range tests {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, want))

		got, err := Read(&buf)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), want.String())
	}
}

func TestWrite_DataSectionAligned(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, array.Ones(array.Float64, 10)))

	h, err := ReadHeader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Zero(t, h.DataOffset%64)
	assert.Equal(t, int64(80), h.ByteSize())
}

func TestReadHeader_OneDimensionalTuple(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, array.Zeros(array.Int32, 9)))

	h, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, array.Int32, h.DType)
	assert.Equal(t, []int{9}, h.Shape)
}

func TestReadHeader_BadMagic(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte("not a numpy file")))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestReadHeader_UnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, array.Zeros(array.Float64, 2)))
	raw := buf.Bytes()
	raw[6] = 3 // bump major version

	_, err := ReadHeader(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestReadHeader_FortranOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, array.Zeros(array.Float64, 2)))
	raw := bytes.Replace(buf.Bytes(), []byte("'fortran_order': False"), []byte("'fortran_order': True "), 1)

	_, err := ReadHeader(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrFortranOrder)
}

func TestOpen_MmapReadOnly(t *testing.T) {
	want, err := array.FromFloat64s([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	path := writeTemp(t, want)

	got, err := Open(path, mmap.ReadOnly)
	require.NoError(t, err)
	defer got.Close()

	assert.True(t, got.Mapped())
	assert.True(t, want.Equal(got))
	assert.Equal(t, 6.0, got.At(1, 2))
}

func TestOpen_MmapReadWrite(t *testing.T) {
	path := writeTemp(t, array.Zeros(array.Float64, 4))

	a, err := Open(path, mmap.ReadWrite)
	require.NoError(t, err)
	a.Float64s()[2] = 42
	require.NoError(t, a.Flush())
	require.NoError(t, a.Close())

	// Mutation is visible on re-open.
	b, err := Open(path, mmap.ReadOnly)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, 42.0, b.At(2))
}

func TestOpen_TruncatedData(t *testing.T) {
	path := writeTemp(t, array.Ones(array.Float64, 100))
	require.NoError(t, os.Truncate(path, 100))

	_, err := Open(path, mmap.ReadOnly)
	assert.Error(t, err)
}

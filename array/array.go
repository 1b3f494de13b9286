package array

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unsafe"
)

// Flusher syncs dirty pages of a writable backing store to disk.
type Flusher interface {
	Flush() error
}

// Array is a multi-dimensional numeric buffer with a fixed shape and a
// homogeneous element type. Elements are stored row-major, little-endian.
type Array struct {
	dtype DType
	shape []int
	data  []byte

	// Set when the data slice aliases a memory-mapped file.
	closer  io.Closer
	flusher Flusher
}

// New allocates a zero-filled array with the given element type and shape.
// A zero-dimensional shape is rejected; use a length-1 axis for scalars.
func New(dtype DType, shape ...int) (*Array, error) {
	n, err := checkShape(dtype, shape)
	if err != nil {
		return nil, err
	}
	return &Array{
		dtype: dtype,
		shape: append([]int(nil), shape...),
		data:  make([]byte, n*dtype.Size()),
	}, nil
}

// NewBacked wraps an existing byte buffer, typically a view into a
// memory-mapped file. closer (optional) is invoked by Close; flusher
// (optional) is invoked by Flush. The buffer length must match the shape.
func NewBacked(dtype DType, shape []int, data []byte, closer io.Closer, flusher Flusher) (*Array, error) {
	n, err := checkShape(dtype, shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n*dtype.Size() {
		return nil, fmt.Errorf("array: buffer size %d does not match shape %v of %s", len(data), shape, dtype)
	}
	return &Array{
		dtype:   dtype,
		shape:   append([]int(nil), shape...),
		data:    data,
		closer:  closer,
		flusher: flusher,
	}, nil
}

// Zeros allocates a zero-filled array. It panics on an invalid shape.
func Zeros(dtype DType, shape ...int) *Array {
	a, err := New(dtype, shape...)
	if err != nil {
		panic(err)
	}
	return a
}

// Ones allocates an array with every element set to one.
// It panics on an invalid shape.
func Ones(dtype DType, shape ...int) *Array {
	a := Zeros(dtype, shape...)
	for i := 0; i < a.Len(); i++ {
		a.setFlat(i, 1)
	}
	return a
}

// FromFloat64s copies vals into a new Float64 array with the given shape.
func FromFloat64s(vals []float64, shape ...int) (*Array, error) {
	a, err := New(Float64, shape...)
	if err != nil {
		return nil, err
	}
	if len(vals) != a.Len() {
		return nil, fmt.Errorf("array: %d values do not fill shape %v", len(vals), shape)
	}
	copy(a.Float64s(), vals)
	return a, nil
}

func checkShape(dtype DType, shape []int) (int, error) {
	if dtype.Size() == 0 {
		return 0, fmt.Errorf("array: invalid element type")
	}
	if len(shape) == 0 {
		return 0, fmt.Errorf("array: empty shape")
	}
	n := 1
	for _, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("array: negative dimension in shape %v", shape)
		}
		n *= dim
	}
	return n, nil
}

// DType returns the element type.
func (a *Array) DType() DType { return a.dtype }

// Shape returns a copy of the dimensions.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Len returns the total number of elements.
func (a *Array) Len() int {
	n := 1
	for _, dim := range a.shape {
		n *= dim
	}
	return n
}

// ByteSize returns the size of the element data in bytes.
func (a *Array) ByteSize() int64 { return int64(len(a.data)) }

// Bytes returns the raw little-endian element data.
// For mapped arrays the slice aliases the file and is invalid after Close.
func (a *Array) Bytes() []byte { return a.data }

// Mapped reports whether the array is backed by a memory-mapped file.
func (a *Array) Mapped() bool { return a.closer != nil }

// Flush syncs a writable mapped array to disk. It is a no-op for in-memory
// arrays and read-only mappings.
func (a *Array) Flush() error {
	if a.flusher == nil {
		return nil
	}
	return a.flusher.Flush()
}

// Close releases the backing mapping, if any. In-memory arrays need no
// Close. After Close, element access is invalid.
func (a *Array) Close() error {
	if a.closer == nil {
		return nil
	}
	c := a.closer
	a.closer = nil
	a.flusher = nil
	a.data = nil
	return c.Close()
}

// Float32s returns the elements as a []float32 view without copying.
// It panics if the element type is not Float32.
func (a *Array) Float32s() []float32 { return view[float32](a, Float32) }

// Float64s returns the elements as a []float64 view without copying.
// It panics if the element type is not Float64.
func (a *Array) Float64s() []float64 { return view[float64](a, Float64) }

// Int32s returns the elements as an []int32 view without copying.
// It panics if the element type is not Int32.
func (a *Array) Int32s() []int32 { return view[int32](a, Int32) }

// Int64s returns the elements as an []int64 view without copying.
// It panics if the element type is not Int64.
func (a *Array) Int64s() []int64 { return view[int64](a, Int64) }

// Uint8s returns the elements as a []uint8 view without copying.
// It panics if the element type is not Uint8.
func (a *Array) Uint8s() []uint8 { return view[uint8](a, Uint8) }

func view[T any](a *Array, want DType) []T {
	if a.dtype != want {
		panic(fmt.Sprintf("array: %s view of %s array", want, a.dtype))
	}
	if len(a.data) == 0 {
		return nil
	}
	// The buffer comes from make or a page-aligned mapping plus a 64-byte
	// aligned data offset, so the cast below is always aligned.
	if uintptr(unsafe.Pointer(&a.data[0]))%uintptr(a.dtype.Size()) != 0 {
		panic("array: misaligned backing buffer")
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&a.data[0])), a.Len())
}

// At returns the element at the given indices, widened to float64.
func (a *Array) At(idx ...int) float64 {
	return a.atFlat(a.offset(idx))
}

// SetAt stores v (narrowed to the element type) at the given indices.
func (a *Array) SetAt(v float64, idx ...int) {
	a.setFlat(a.offset(idx), v)
}

func (a *Array) offset(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("array: %d indices for %d-dimensional array", len(idx), len(a.shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= a.shape[i] {
			panic(fmt.Sprintf("array: index %d out of range for axis %d (size %d)", x, i, a.shape[i]))
		}
		off = off*a.shape[i] + x
	}
	return off
}

func (a *Array) atFlat(i int) float64 {
	sz := a.dtype.Size()
	b := a.data[i*sz : (i+1)*sz]
	switch a.dtype {
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case Int8:
		return float64(int8(b[0]))
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(b)))
	case Uint8:
		return float64(b[0])
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case Uint64:
		return float64(binary.LittleEndian.Uint64(b))
	default:
		panic("array: invalid element type")
	}
}

func (a *Array) setFlat(i int, v float64) {
	sz := a.dtype.Size()
	b := a.data[i*sz : (i+1)*sz]
	switch a.dtype {
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	case Int8:
		b[0] = byte(int8(v))
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case Int64:
		binary.LittleEndian.PutUint64(b, uint64(int64(v)))
	case Uint8:
		b[0] = byte(v)
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case Uint64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	default:
		panic("array: invalid element type")
	}
}

// Equal reports whether two arrays have the same element type, shape and
// element content. Mapped and in-memory arrays compare by content.
func (a *Array) Equal(other *Array) bool {
	if a == nil || other == nil {
		return a == other
	}
	if a.dtype != other.dtype || len(a.shape) != len(other.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != other.shape[i] {
			return false
		}
	}
	return bytes.Equal(a.data, other.data)
}

// String returns a short description, e.g. "float64[200 1000]".
func (a *Array) String() string {
	return fmt.Sprintf("%s%v", a.dtype, a.shape)
}

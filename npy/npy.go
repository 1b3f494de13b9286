// Package npy reads and writes NumPy ".npy" files (format version 1.0).
//
// The format is a 6-byte magic, a version, a python-dict header describing
// element type, memory order and shape, padding to a 64-byte boundary, and
// the raw little-endian element data. Because the data section is 64-byte
// aligned, a file can be memory-mapped and its data region reinterpreted as
// a typed slice without copying; Open does exactly that.
package npy

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hupe1980/varpack/array"
	"github.com/hupe1980/varpack/internal/mmap"
)

// Ext is the file extension for array files.
const Ext = ".npy"

var magic = []byte{0x93, 'N', 'U', 'M', 'P', 'Y'}

const headerAlign = 64

var (
	// ErrBadMagic is returned when a file does not start with the npy magic.
	ErrBadMagic = errors.New("npy: bad magic")
	// ErrUnsupportedVersion is returned for format versions other than 1.0.
	ErrUnsupportedVersion = errors.New("npy: unsupported format version")
	// ErrBadHeader is returned when the header dict is malformed.
	ErrBadHeader = errors.New("npy: malformed header")
	// ErrFortranOrder is returned for column-major files, which are not supported.
	ErrFortranOrder = errors.New("npy: fortran (column-major) order not supported")
)

// Header describes the array stored in an npy file.
type Header struct {
	DType array.DType
	Shape []int
	// DataOffset is the byte offset of the element data within the file.
	DataOffset int64
}

// ByteSize returns the expected size of the data section.
func (h Header) ByteSize() int64 {
	n := int64(1)
	for _, dim := range h.Shape {
		n *= int64(dim)
	}
	return n * int64(h.DType.Size())
}

func descr(d array.DType) string {
	switch d {
	case array.Float32:
		return "<f4"
	case array.Float64:
		return "<f8"
	case array.Int8:
		return "|i1"
	case array.Int16:
		return "<i2"
	case array.Int32:
		return "<i4"
	case array.Int64:
		return "<i8"
	case array.Uint8:
		return "|u1"
	case array.Uint16:
		return "<u2"
	case array.Uint32:
		return "<u4"
	case array.Uint64:
		return "<u8"
	default:
		return ""
	}
}

func parseDescr(s string) (array.DType, error) {
	switch s {
	case "<f4", "=f4":
		return array.Float32, nil
	case "<f8", "=f8":
		return array.Float64, nil
	case "|i1", "<i1":
		return array.Int8, nil
	case "<i2":
		return array.Int16, nil
	case "<i4":
		return array.Int32, nil
	case "<i8":
		return array.Int64, nil
	case "|u1", "<u1":
		return array.Uint8, nil
	case "<u2":
		return array.Uint16, nil
	case "<u4":
		return array.Uint32, nil
	case "<u8":
		return array.Uint64, nil
	default:
		return array.Invalid, fmt.Errorf("%w: unsupported descr %q", ErrBadHeader, s)
	}
}

// Write writes a in npy v1.0 format.
func Write(w io.Writer, a *array.Array) error {
	d := descr(a.DType())
	if d == "" {
		return fmt.Errorf("npy: cannot encode element type %s", a.DType())
	}

	dims := make([]string, 0, len(a.Shape()))
	for _, dim := range a.Shape() {
		dims = append(dims, strconv.Itoa(dim))
	}
	// NumPy writes 1-tuples with a trailing comma: (100,)
	shape := strings.Join(dims, ", ")
	if len(dims) == 1 {
		shape += ","
	}

	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", d, shape)

	// Pad with spaces so the data section starts on a 64-byte boundary.
	// Prefix is magic (6) + version (2) + header length (2).
	total := len(magic) + 2 + 2 + len(header) + 1
	pad := (headerAlign - total%headerAlign) % headerAlign
	header += strings.Repeat(" ", pad) + "\n"

	if len(header) > 0xFFFF {
		return fmt.Errorf("%w: header too large", ErrBadHeader)
	}

	if _, err := w.Write(magic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}
	var hlen [2]byte
	binary.LittleEndian.PutUint16(hlen[:], uint16(len(header)))
	if _, err := w.Write(hlen[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	_, err := w.Write(a.Bytes())
	return err
}

// ReadHeader parses the npy header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var pre [10]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrBadMagic, err)
	}
	for i, b := range magic {
		if pre[i] != b {
			return Header{}, ErrBadMagic
		}
	}
	if pre[6] != 1 || pre[7] != 0 {
		return Header{}, fmt.Errorf("%w: %d.%d", ErrUnsupportedVersion, pre[6], pre[7])
	}

	hlen := int(binary.LittleEndian.Uint16(pre[8:10]))
	buf := make([]byte, hlen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}

	h, err := parseHeaderDict(string(buf))
	if err != nil {
		return Header{}, err
	}
	h.DataOffset = int64(10 + hlen)
	return h, nil
}

// parseHeaderDict parses the python dict literal NumPy writes. It only
// understands the three keys NumPy itself emits.
func parseHeaderDict(s string) (Header, error) {
	var h Header

	d, err := dictValue(s, "descr")
	if err != nil {
		return h, err
	}
	d = strings.Trim(d, "'\"")
	if h.DType, err = parseDescr(d); err != nil {
		return h, err
	}

	fo, err := dictValue(s, "fortran_order")
	if err != nil {
		return h, err
	}
	switch fo {
	case "False":
	case "True":
		return h, ErrFortranOrder
	default:
		return h, fmt.Errorf("%w: fortran_order %q", ErrBadHeader, fo)
	}

	sh, err := dictValue(s, "shape")
	if err != nil {
		return h, err
	}
	if len(sh) < 2 || sh[0] != '(' || sh[len(sh)-1] != ')' {
		return h, fmt.Errorf("%w: shape %q", ErrBadHeader, sh)
	}
	for _, part := range strings.Split(sh[1:len(sh)-1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dim, err := strconv.Atoi(part)
		if err != nil || dim < 0 {
			return h, fmt.Errorf("%w: shape %q", ErrBadHeader, sh)
		}
		h.Shape = append(h.Shape, dim)
	}
	if len(h.Shape) == 0 {
		return h, fmt.Errorf("%w: zero-dimensional arrays not supported", ErrBadHeader)
	}

	return h, nil
}

// dictValue extracts the raw value for key from a python dict literal.
func dictValue(s, key string) (string, error) {
	marker := "'" + key + "':"
	i := strings.Index(s, marker)
	if i < 0 {
		return "", fmt.Errorf("%w: missing %q", ErrBadHeader, key)
	}
	rest := strings.TrimLeft(s[i+len(marker):], " ")
	if rest == "" {
		return "", fmt.Errorf("%w: missing value for %q", ErrBadHeader, key)
	}

	var end int
	switch rest[0] {
	case '\'', '"':
		j := strings.IndexByte(rest[1:], rest[0])
		if j < 0 {
			return "", fmt.Errorf("%w: unterminated string for %q", ErrBadHeader, key)
		}
		end = j + 2
	case '(':
		j := strings.IndexByte(rest, ')')
		if j < 0 {
			return "", fmt.Errorf("%w: unterminated tuple for %q", ErrBadHeader, key)
		}
		end = j + 1
	default:
		end = len(rest)
		for j, c := range rest {
			if c == ',' || c == '}' {
				end = j
				break
			}
		}
	}
	return strings.TrimSpace(rest[:end]), nil
}

// Read fully materializes the array from r.
func Read(r io.Reader) (*array.Array, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	data := make([]byte, h.ByteSize())
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("npy: truncated data section: %w", err)
	}
	return array.NewBacked(h.DType, h.Shape, data, nil, nil)
}

// Open memory-maps the npy file at path and returns an array whose element
// data aliases the mapped region. With mode mmap.ReadWrite, element stores
// write through to the file; Close on the array releases the mapping.
func Open(path string, mode mmap.Mode) (*array.Array, error) {
	m, err := mmap.OpenMode(path, mode)
	if err != nil {
		return nil, err
	}

	h, err := ReadHeader(bytes.NewReader(m.Bytes()))
	if err != nil {
		m.Close()
		return nil, err
	}

	reg, err := m.Region(int(h.DataOffset), int(h.ByteSize()))
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("npy: data section out of bounds: %w", err)
	}

	var flusher array.Flusher
	if mode == mmap.ReadWrite {
		flusher = m
	}

	a, err := array.NewBacked(h.DType, h.Shape, reg.Bytes(), m, flusher)
	if err != nil {
		m.Close()
		return nil, err
	}
	return a, nil
}

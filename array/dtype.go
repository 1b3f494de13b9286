package array

import "fmt"

// DType identifies the homogeneous element type of an Array.
type DType uint8

const (
	// Invalid is the zero DType.
	Invalid DType = iota
	// Float32 is a 32-bit IEEE 754 float.
	Float32
	// Float64 is a 64-bit IEEE 754 float.
	Float64
	// Int8 is a signed 8-bit integer.
	Int8
	// Int16 is a signed 16-bit integer.
	Int16
	// Int32 is a signed 32-bit integer.
	Int32
	// Int64 is a signed 64-bit integer.
	Int64
	// Uint8 is an unsigned 8-bit integer.
	Uint8
	// Uint16 is an unsigned 16-bit integer.
	Uint16
	// Uint32 is an unsigned 32-bit integer.
	Uint32
	// Uint64 is an unsigned 64-bit integer.
	Uint64
)

// Size returns the element size in bytes. It returns 0 for Invalid.
func (d DType) Size() int {
	switch d {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Float32, Int32, Uint32:
		return 4
	case Float64, Int64, Uint64:
		return 8
	default:
		return 0
	}
}

// String returns the stable name of the element type, as recorded in
// manifests (e.g. "float64").
func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	default:
		return "invalid"
	}
}

// ParseDType parses a stable element type name produced by DType.String.
func ParseDType(s string) (DType, error) {
	switch s {
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	case "int8":
		return Int8, nil
	case "int16":
		return Int16, nil
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	case "uint8":
		return Uint8, nil
	case "uint16":
		return Uint16, nil
	case "uint32":
		return Uint32, nil
	case "uint64":
		return Uint64, nil
	default:
		return Invalid, fmt.Errorf("array: unknown element type %q", s)
	}
}

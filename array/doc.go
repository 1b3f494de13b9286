// Package array provides the fixed-shape, homogeneously-typed numeric buffer
// that varpack splits into individually memory-mappable files.
//
// An Array is a row-major (C-order) multi-dimensional view over a flat byte
// buffer. The buffer is either heap-allocated (constructors like New, Zeros,
// FromFloat64s) or borrowed from a memory-mapped file region after a load;
// Mapped reports which. Both variants expose the same element access
// contract, so callers cannot accidentally assume eager materialization.
//
// Typed views (Float64s, Int32s, ...) reinterpret the backing bytes without
// copying and remain valid until Close is called on a mapped Array.
package array

// Package testutil provides helpers for tests and benchmarks.
//
// It offers a seeded, thread-safe random number generator for filling
// numeric slices:
//
//	rng := testutil.NewRNG(42)
//	data := make([]float64, 1000)
//	rng.FillUniform(data)
package testutil

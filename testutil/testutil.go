package testutil

import (
	"math/rand"
	"sync"
)

// RNG is a seeded random number generator, safe for concurrent use.
type RNG struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRNG creates a generator with the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{rnd: rand.New(rand.NewSource(seed))}
}

// FillUniform fills dst with uniform values in [0, 1).
func (r *RNG) FillUniform(dst []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rnd.Float64()
	}
}

// FillUniform32 fills dst with uniform float32 values in [0, 1).
func (r *RNG) FillUniform32(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rnd.Float32()
	}
}

// FillGaussian fills dst with standard normal values.
func (r *RNG) FillGaussian(dst []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rnd.NormFloat64()
	}
}

// Intn returns a uniform value in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// Package testutil provides deterministic data generators for tests and
// benchmarks.
package testutil

import (
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/coldb/column"
)

// RNG is a seeded random number generator. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Int64 returns a pseudo-random int64.
func (r *RNG) Int64() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(r.rand.Uint64())
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

const stringAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// String returns a random alphanumeric string of length n.
func (r *RNG) String(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = stringAlphabet[r.rand.Intn(len(stringAlphabet))]
	}
	return string(b)
}

// Bytes returns n random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	r.rand.Read(b) //nolint:errcheck
	return b
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float64 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// Embedding returns a random vector of the given length.
func (r *RNG) Embedding(dim int) []float32 {
	v := make([]float32, dim)
	r.FillUniform(v)
	return v
}

// Bools returns n random boolean values.
func (r *RNG) Bools(n int) []column.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]column.Value, n)
	for i := range out {
		out[i] = column.Bool(r.rand.Intn(2) == 1)
	}
	return out
}

// Ints returns n random integer values in [0, limit).
func (r *RNG) Ints(n int, limit int64) []column.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]column.Value, n)
	for i := range out {
		out[i] = column.Int(r.rand.Int63n(limit))
	}
	return out
}

// Floats returns n random float values in [0, 1).
func (r *RNG) Floats(n int) []column.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]column.Value, n)
	for i := range out {
		out[i] = column.Float(r.rand.Float64())
	}
	return out
}

// Strings returns n random string values of the given length.
func (r *RNG) Strings(n, length int) []column.Value {
	out := make([]column.Value, n)
	for i := range out {
		out[i] = column.Str(r.String(length))
	}
	return out
}

// DateTimes returns n random timestamps within a day of the base time.
func (r *RNG) DateTimes(n int, base time.Time) []column.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]column.Value, n)
	for i := range out {
		out[i] = column.DateTime(base.Add(time.Duration(r.rand.Int63n(int64(24 * time.Hour)))))
	}
	return out
}

// Embeddings returns n random embedding values of the given length.
func (r *RNG) Embeddings(n, dim int) []column.Value {
	out := make([]column.Value, n)
	for i := range out {
		out[i] = column.Embedding(r.Embedding(dim))
	}
	return out
}

// Categories returns n random picks from the given category names.
func (r *RNG) Categories(n int, names ...string) []column.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]column.Value, n)
	for i := range out {
		out[i] = column.Category(names[r.rand.Intn(len(names))])
	}
	return out
}

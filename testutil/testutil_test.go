package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNGDeterminism(t *testing.T) {
	a := NewRNG(42)
	b := NewRNG(42)

	assert.Equal(t, a.String(16), b.String(16))
	assert.Equal(t, a.Intn(1000), b.Intn(1000))
	assert.Equal(t, a.Embedding(8), b.Embedding(8))
}

func TestRNGReset(t *testing.T) {
	r := NewRNG(7)
	first := r.String(12)
	_ = r.String(12)

	r.Reset()
	assert.Equal(t, first, r.String(12))
	assert.Equal(t, int64(7), r.Seed())
}

func TestGenerators(t *testing.T) {
	r := NewRNG(1)

	ints := r.Ints(10, 100)
	require.Len(t, ints, 10)
	for _, v := range ints {
		assert.GreaterOrEqual(t, v.I64, int64(0))
		assert.Less(t, v.I64, int64(100))
	}

	cats := r.Categories(10, "red", "green", "blue")
	require.Len(t, cats, 10)
	for _, v := range cats {
		assert.Contains(t, []string{"red", "green", "blue"}, v.S)
	}

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	stamps := r.DateTimes(5, base)
	for _, v := range stamps {
		assert.False(t, v.TS.Before(base))
		assert.True(t, v.TS.Before(base.Add(24*time.Hour)))
	}
}

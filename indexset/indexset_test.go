package indexset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAt(t *testing.T) {
	pos, err := NormalizeAt(2, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), pos)

	pos, err = NormalizeAt(-1, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), pos)

	_, err = NormalizeAt(5, 5)
	require.Error(t, err)

	_, err = NormalizeAt(-6, 5)
	require.Error(t, err)
}

func TestSpanSemantics(t *testing.T) {
	tests := []struct {
		name string
		sel  Span
		want []uint32
	}{
		{name: "all", sel: All(), want: []uint32{0, 1, 2, 3, 4}},
		{name: "head", sel: Head(2), want: []uint32{0, 1}},
		{name: "tail", sel: Tail(3), want: []uint32{3, 4}},
		{name: "between", sel: Between(1, 3), want: []uint32{1, 2}},
		{name: "negative bounds", sel: Between(-3, -1), want: []uint32{2, 3}},
		{name: "step two", sel: Span{Step: 2}, want: []uint32{0, 2, 4}},
		{name: "reversed", sel: Span{Step: -1}, want: []uint32{4, 3, 2, 1, 0}},
		{name: "clamped", sel: Between(2, 100), want: []uint32{2, 3, 4}},
		{name: "empty", sel: Between(3, 1), want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NormalizeRead(tt.sel, 5)
			require.NoError(t, err)
			assert.Equal(t, tt.want, set.Order)
		})
	}
}

func TestMask(t *testing.T) {
	set, err := NormalizeRead(Mask{true, false, true}, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2}, set.Order)

	_, err = NormalizeRead(Mask{true}, 3)
	var idxErr *InvalidIndexError
	require.ErrorAs(t, err, &idxErr)
}

func TestListOrderAndDuplicates(t *testing.T) {
	set, err := NormalizeRead(List{3, 0, 3, -1}, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint32{3, 0, 3, 4}, set.Order)
	assert.Equal(t, []uint32{0, 3, 4}, set.Unique)
	assert.True(t, set.HasDuplicates())

	// Writes reject duplicate positions, including aliased negatives.
	_, err = NormalizeWrite(List{3, 0, 3}, 5)
	require.Error(t, err)
	_, err = NormalizeWrite(List{4, -1}, 5)
	require.Error(t, err)

	set, err = NormalizeWrite(List{2, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
}

func TestListOutOfRange(t *testing.T) {
	_, err := NormalizeRead(List{0, 7}, 5)
	var idxErr *InvalidIndexError
	require.ErrorAs(t, err, &idxErr)
}

func TestEmptySelection(t *testing.T) {
	set, err := NormalizeWrite(Mask{false, false}, 2)
	require.NoError(t, err)
	assert.True(t, set.Empty())
	assert.Zero(t, set.Len())
}

func TestBitmap(t *testing.T) {
	set, err := NormalizeRead(List{1, 1, 3}, 5)
	require.NoError(t, err)
	bm := set.Bitmap()
	assert.Equal(t, uint64(2), bm.GetCardinality())
	assert.True(t, bm.Contains(1))
	assert.True(t, bm.Contains(3))
}

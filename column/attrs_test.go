package column

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryTableBidirectional(t *testing.T) {
	table, err := NewCategoryTable(map[string]int32{"red": 0, "green": 7})
	require.NoError(t, err)

	code, ok := table.Code("green")
	require.True(t, ok)
	assert.Equal(t, int32(7), code)

	name, ok := table.Name(7)
	require.True(t, ok)
	assert.Equal(t, "green", name)

	_, ok = table.Code("blue")
	assert.False(t, ok)
	assert.Equal(t, 2, table.Len())
}

func TestCategoryTableRejectsCollisions(t *testing.T) {
	_, err := NewCategoryTable(map[string]int32{"a": 1, "b": 1})
	require.Error(t, err)

	_, err = NewCategoryTable(map[string]int32{"a": AbsentCode})
	require.Error(t, err)
}

func TestCategoryTableFromNames(t *testing.T) {
	table, err := NewCategoryTableFromNames([]string{"c", "a", "b"})
	require.NoError(t, err)

	// Codes follow sorted name order.
	for i, name := range []string{"a", "b", "c"} {
		code, ok := table.Code(name)
		require.True(t, ok)
		assert.Equal(t, int32(i), code)
	}

	_, err = NewCategoryTableFromNames([]string{"a", "a"})
	require.Error(t, err)
}

func TestLookupPutIdempotent(t *testing.T) {
	l := NewLookup()
	require.NoError(t, l.Put("k", "ref-1"))
	require.NoError(t, l.Put("k", "ref-2")) // overwrite, not growth

	ref, ok := l.Ref("k")
	require.True(t, ok)
	assert.Equal(t, "ref-2", ref)
	assert.Equal(t, 1, l.Len())

	l.Delete("k")
	_, ok = l.Ref("k")
	assert.False(t, ok)
}

func TestLookupCap(t *testing.T) {
	l := NewLookup()
	for i := 0; i < MaxLookupEntries; i++ {
		require.NoError(t, l.Put(fmt.Sprintf("k%d", i), "ref"))
	}
	err := l.Put("one-too-many", "ref")
	require.Error(t, err)

	// Overwriting an existing key is still allowed at the cap.
	require.NoError(t, l.Put("k0", "other"))
}

func TestAttrsCloneIsDeep(t *testing.T) {
	table, err := NewCategoryTable(map[string]int32{"a": 0})
	require.NoError(t, err)
	l := NewLookup()
	require.NoError(t, l.Put("k", "ref"))

	a := &Attrs{
		Name:       "c",
		Kind:       KindCategory,
		Tags:       []string{"t1"},
		Categories: table,
		Lookup:     l,
		ShapePin:   []int{3},
	}
	clone := a.Clone()

	clone.Tags[0] = "changed"
	clone.ShapePin[0] = 9
	require.NoError(t, clone.Lookup.Put("k2", "ref2"))

	assert.Equal(t, "t1", a.Tags[0])
	assert.Equal(t, 3, a.ShapePin[0])
	assert.Equal(t, 1, a.Lookup.Len())
}

func TestHasNaturalEmpty(t *testing.T) {
	assert.True(t, (&Attrs{Kind: KindFloat}).HasNaturalEmpty())
	assert.True(t, (&Attrs{Kind: KindString}).HasNaturalEmpty())
	assert.True(t, (&Attrs{Kind: KindCategory}).HasNaturalEmpty())
	assert.True(t, (&Attrs{Kind: KindImage}).HasNaturalEmpty())
	assert.False(t, (&Attrs{Kind: KindInt}).HasNaturalEmpty())
	assert.False(t, (&Attrs{Kind: KindBool}).HasNaturalEmpty())
	assert.False(t, (&Attrs{Kind: KindWindow}).HasNaturalEmpty())
}

func TestNDArrayValidate(t *testing.T) {
	arr := NewFloat32Array([]float32{1, 2, 3})
	require.NoError(t, arr.Validate())

	bad := &NDArray{DType: DTypeFloat32, Shape: []int{2}, Data: []byte{0}}
	require.Error(t, bad.Validate())
}

func TestKindTags(t *testing.T) {
	for _, k := range Kinds() {
		tag := k.Tag()
		require.NotEmpty(t, tag)
		back, err := KindFromTag(tag)
		require.NoError(t, err)
		assert.Equal(t, k, back)
	}

	_, err := KindFromTag("nope")
	require.Error(t, err)
}

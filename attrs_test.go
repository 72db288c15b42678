package coldb

import (
	"fmt"
	"testing"

	"github.com/hupe1980/coldb/column"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool          { return &b }
func intPtr(i int) *int             { return &i }
func strPtr(s string) *string       { return &s }
func valPtr(v column.Value) *column.Value { return &v }

func TestGetColumnAttributesReturnsCopy(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, nil, WithDescription("counter")))

	a, err := ds.GetColumnAttributes("x")
	require.NoError(t, err)
	assert.Equal(t, "counter", a.Description)

	// Mutating the copy never reaches the stored record.
	a.Description = "changed"
	again, err := ds.GetColumnAttributes("x")
	require.NoError(t, err)
	assert.Equal(t, "counter", again.Description)
}

func TestSetColumnAttributesBasics(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, nil))
	gen, _ := ds.GenerationID()

	tags := []string{"a", "b"}
	require.NoError(t, ds.SetColumnAttributes("x", AttrUpdate{
		Description: strPtr("described"),
		Tags:        &tags,
		Order:       intPtr(7),
		Editable:    boolPtr(false),
	}))

	a, err := ds.GetColumnAttributes("x")
	require.NoError(t, err)
	assert.Equal(t, "described", a.Description)
	assert.Equal(t, []string{"a", "b"}, a.Tags)
	assert.Equal(t, 7, a.Order)
	assert.False(t, a.Editable)

	genAfter, _ := ds.GenerationID()
	assert.Equal(t, gen+1, genAfter)
}

func TestOptionalTransition(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("x", column.KindFloat, []column.Value{column.Float(1)}))

	// Relaxing to optional is allowed.
	require.NoError(t, ds.SetColumnAttributes("x", AttrUpdate{Optional: boolPtr(true)}))
	require.NoError(t, ds.SetCell("x", 0, column.Null()))

	// Going back is not.
	err := ds.SetColumnAttributes("x", AttrUpdate{Optional: boolPtr(false)})
	var attrErr *InvalidAttributeError
	require.ErrorAs(t, err, &attrErr)
	assert.Equal(t, "optional", attrErr.Attribute)
}

func TestSetDefault(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, []column.Value{column.Int(1)},
		WithOptional(), WithDefault(column.Int(0))))

	require.NoError(t, ds.SetColumnAttributes("x", AttrUpdate{Default: valPtr(column.Int(42))}))
	require.NoError(t, ds.AppendRow(Row{}))

	v, err := ds.GetCell("x", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.I64)

	// A default of the wrong kind is rejected and the old one kept.
	err = ds.SetColumnAttributes("x", AttrUpdate{Default: valPtr(column.Str("nope"))})
	var attrErr *InvalidAttributeError
	require.ErrorAs(t, err, &attrErr)

	a, err := ds.GetColumnAttributes("x")
	require.NoError(t, err)
	assert.Equal(t, int64(42), a.Default.I64)
}

func TestDefaultRequiresOptional(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, nil))

	err := ds.SetColumnAttributes("x", AttrUpdate{Default: valPtr(column.Int(1))})
	var attrErr *InvalidAttributeError
	require.ErrorAs(t, err, &attrErr)
	assert.Equal(t, "default", attrErr.Attribute)
}

func TestTypeInappropriateAttributes(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, nil))

	for _, update := range []AttrUpdate{
		{Categories: map[string]int32{"a": 0}},
		{Lookup: map[string]string{"k": "ref"}},
		{Format: strPtr("zstd")},
		{Lossy: boolPtr(true)},
	} {
		err := ds.SetColumnAttributes("x", update)
		var attrErr *InvalidAttributeError
		require.ErrorAs(t, err, &attrErr)
	}
}

func TestCategoryTableReplacement(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("color", column.KindCategory, []column.Value{
		column.Category("red"), column.Category("green"),
	}, WithCategories(map[string]int32{"red": 0, "green": 1})))

	// Dropping a category that is still present in the column fails and
	// keeps the prior table.
	err := ds.SetColumnAttributes("color", AttrUpdate{
		Categories: map[string]int32{"red": 0},
	})
	var attrErr *InvalidAttributeError
	require.ErrorAs(t, err, &attrErr)

	v, err := ds.GetCell("color", 1)
	require.NoError(t, err)
	assert.Equal(t, "green", v.S)

	// Growing the table keeps existing codes valid.
	require.NoError(t, ds.SetColumnAttributes("color", AttrUpdate{
		Categories: map[string]int32{"red": 0, "green": 1, "blue": 2},
	}))
	require.NoError(t, ds.SetCell("color", 0, column.Category("blue")))

	v, err = ds.GetCell("color", 0)
	require.NoError(t, err)
	assert.Equal(t, "blue", v.S)
}

func TestCategoryReplacementChecksDefault(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("color", column.KindCategory, nil,
		WithCategories(map[string]int32{"red": 0, "green": 1}),
		WithOptional(), WithDefault(column.Category("green"))))

	err := ds.SetColumnAttributes("color", AttrUpdate{
		Categories: map[string]int32{"red": 0},
	})
	var attrErr *InvalidAttributeError
	require.ErrorAs(t, err, &attrErr)
}

func TestLookupEnableDisable(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("img", column.KindImage, nil, WithOptional()))

	require.NoError(t, ds.SetColumnAttributes("img", AttrUpdate{Lookup: map[string]string{}}))
	a, err := ds.GetColumnAttributes("img")
	require.NoError(t, err)
	require.NotNil(t, a.Lookup)

	require.NoError(t, ds.SetColumnAttributes("img", AttrUpdate{DisableLookup: true}))
	a, err = ds.GetColumnAttributes("img")
	require.NoError(t, err)
	assert.Nil(t, a.Lookup)
}

func TestLookupCap(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("img", column.KindImage, nil, WithOptional()))

	big := make(map[string]string, column.MaxLookupEntries+1)
	for i := 0; i <= column.MaxLookupEntries; i++ {
		big[fmt.Sprintf("key-%d", i)] = "ref"
	}
	err := ds.SetColumnAttributes("img", AttrUpdate{Lookup: big})
	var attrErr *InvalidAttributeError
	require.ErrorAs(t, err, &attrErr)
	assert.Equal(t, "lookup", attrErr.Attribute)
}

func TestFormatValidation(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("img", column.KindImage, nil, WithOptional()))

	require.NoError(t, ds.SetColumnAttributes("img", AttrUpdate{Format: strPtr("zstd")}))
	a, err := ds.GetColumnAttributes("img")
	require.NoError(t, err)
	assert.Equal(t, "zstd", a.Format)

	err = ds.SetColumnAttributes("img", AttrUpdate{Format: strPtr("brotli")})
	var attrErr *InvalidAttributeError
	require.ErrorAs(t, err, &attrErr)
}

func TestBookkeepingAttributesLocked(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, nil))

	err := ds.SetColumnAttributes(ColLastEditedBy, AttrUpdate{Hidden: boolPtr(false)})
	var nameErr *InvalidColumnNameError
	require.ErrorAs(t, err, &nameErr)
}

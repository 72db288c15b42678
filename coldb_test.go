package coldb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/coldb/column"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, optFns ...Option) *Dataset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.coldb")
	optFns = append([]Option{WithEditor("tester")}, optFns...)
	ds, err := Open(path, ModeCreate, optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	return ds
}

func TestOpenInvalidMode(t *testing.T) {
	_, err := Open("whatever.coldb", Mode("rw"))
	var modeErr *InvalidModeError
	require.ErrorAs(t, err, &modeErr)
	assert.Equal(t, Mode("rw"), modeErr.Mode)
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.coldb")

	_, err := Open(path, ModeRead)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Open(path, ModeReadWrite)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenCreateWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.coldb")

	ds, err := Open(path, ModeCreate, WithEditor("tester"), WithName("points"))
	require.NoError(t, err)
	defer ds.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)

	name, err := ds.Name()
	require.NoError(t, err)
	assert.Equal(t, "points", name)

	uid, err := ds.UID()
	require.NoError(t, err)
	assert.NotEmpty(t, uid)
}

func TestOpenCreateExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excl.coldb")

	ds, err := Open(path, ModeCreateExclusive)
	require.NoError(t, err)
	require.NoError(t, ds.Close())

	_, err = Open(path, ModeCreateExclusive)
	require.ErrorIs(t, err, os.ErrExist)
}

func TestOpenAppendCreatesWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appended.coldb")

	ds, err := Open(path, ModeAppend, WithEditor("tester"))
	require.NoError(t, err)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, []column.Value{column.Int(1)}))
	require.NoError(t, ds.Close())

	ds2, err := Open(path, ModeAppend, WithEditor("tester"))
	require.NoError(t, err)
	defer ds2.Close()

	n, err := ds2.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRoundTripThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rt.coldb")

	ds, err := Open(path, ModeCreate, WithEditor("alice"), WithName("trips"))
	require.NoError(t, err)
	require.NoError(t, ds.AppendColumn("city", column.KindString, []column.Value{
		column.Str("berlin"), column.Str("tokyo"),
	}))
	require.NoError(t, ds.AppendColumn("dist", column.KindFloat, []column.Value{
		column.Float(1.5), column.Float(2.25),
	}))
	gen, err := ds.GenerationID()
	require.NoError(t, err)
	uid, err := ds.UID()
	require.NoError(t, err)
	require.NoError(t, ds.Close())

	rd, err := Open(path, ModeRead)
	require.NoError(t, err)
	defer rd.Close()

	keys, err := rd.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "dist"}, keys)

	v, err := rd.GetCell("city", 1)
	require.NoError(t, err)
	assert.Equal(t, "tokyo", v.S)

	v, err = rd.GetCell("dist", -1)
	require.NoError(t, err)
	assert.Equal(t, 2.25, v.F64)

	gotGen, err := rd.GenerationID()
	require.NoError(t, err)
	assert.Equal(t, gen, gotGen)

	gotUID, err := rd.UID()
	require.NoError(t, err)
	assert.Equal(t, uid, gotUID)

	gotName, err := rd.Name()
	require.NoError(t, err)
	assert.Equal(t, "trips", gotName)
}

func TestRoundTripWithMmap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mmap.coldb")

	ds, err := Open(path, ModeCreate, WithEditor("tester"))
	require.NoError(t, err)
	require.NoError(t, ds.AppendColumn("n", column.KindInt, []column.Value{
		column.Int(10), column.Int(20), column.Int(30),
	}))
	require.NoError(t, ds.Close())

	rd, err := Open(path, ModeRead, WithMmap(true))
	require.NoError(t, err)
	defer rd.Close()

	values, err := rd.GetColumn("n", nil)
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, int64(20), values[1].I64)
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.coldb")

	ds, err := Open(path, ModeCreate, WithEditor("tester"))
	require.NoError(t, err)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, []column.Value{column.Int(1)}))
	require.NoError(t, ds.Close())

	rd, err := Open(path, ModeRead)
	require.NoError(t, err)
	defer rd.Close()

	err = rd.SetCell("x", 0, column.Int(2))
	require.ErrorIs(t, err, ErrReadOnlyDataset)

	err = rd.Flush(context.Background())
	require.ErrorIs(t, err, ErrReadOnlyDataset)
}

func TestCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "close.coldb")

	ds, err := Open(path, ModeCreate, WithEditor("tester"))
	require.NoError(t, err)
	require.NoError(t, ds.Close())
	require.NoError(t, ds.Close())

	_, err = ds.Len()
	require.ErrorIs(t, err, ErrClosedDataset)

	err = ds.SetCell("x", 0, column.Int(1))
	require.ErrorIs(t, err, ErrClosedDataset)
}

func TestGenerationSemantics(t *testing.T) {
	ds := testStore(t)

	gen, err := ds.GenerationID()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), gen)

	require.NoError(t, ds.AppendColumn("x", column.KindInt, []column.Value{column.Int(1)}))
	gen1, _ := ds.GenerationID()
	assert.Equal(t, gen+1, gen1)

	// Reads never advance the generation.
	_, err = ds.GetCell("x", 0)
	require.NoError(t, err)
	gen2, _ := ds.GenerationID()
	assert.Equal(t, gen1, gen2)

	// Failed mutations never advance the generation.
	err = ds.SetCell("x", 99, column.Int(2))
	require.Error(t, err)
	gen3, _ := ds.GenerationID()
	assert.Equal(t, gen1, gen3)

	// Flush never advances the generation.
	require.NoError(t, ds.Flush(context.Background()))
	gen4, _ := ds.GenerationID()
	assert.Equal(t, gen1, gen4)
}

func TestCheckGeneration(t *testing.T) {
	ds := testStore(t)

	gen, err := ds.GenerationID()
	require.NoError(t, err)
	require.NoError(t, ds.CheckGeneration(gen))

	require.NoError(t, ds.AppendColumn("x", column.KindInt, []column.Value{column.Int(1)}))

	err = ds.CheckGeneration(gen)
	var mismatch *GenerationMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, gen, mismatch.Expected)
	assert.Equal(t, gen+1, mismatch.Actual)
}

func TestCorruptFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.coldb")

	ds, err := Open(path, ModeCreate, WithEditor("tester"))
	require.NoError(t, err)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, []column.Value{column.Int(7)}))
	require.NoError(t, ds.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Open(path, ModeRead)
	require.Error(t, err)
}

func TestDataSourceContract(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, []column.Value{
		column.Int(1), column.Int(2),
	}))

	var src DataSource = ds

	names, err := src.ColumnNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, names)

	values, err := src.GetColumnValues("x", nil)
	require.NoError(t, err)
	require.Len(t, values, 2)

	gen, err := src.GetGenerationID()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)

	uid, err := src.GetUID()
	require.NoError(t, err)
	assert.NotEmpty(t, uid)
}

func TestNilDataset(t *testing.T) {
	var ds *Dataset
	_, err := ds.Len()
	assert.True(t, errors.Is(err, ErrClosedDataset))
}

package coldb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/coldb/column"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crash abandons the handle without flushing, as a process kill would.
func crash(t *testing.T, ds *Dataset) {
	t.Helper()
	if ds.journal != nil {
		require.NoError(t, ds.journal.Close())
	}
	ds.closed = true
}

func TestJournalRecoversUnflushedMutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.coldb")

	ds, err := Open(path, ModeCreate, WithEditor("tester"), WithWAL())
	require.NoError(t, err)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, []column.Value{
		column.Int(1), column.Int(2),
	}))
	require.NoError(t, ds.AppendColumn("name", column.KindString, []column.Value{
		column.Str("a"), column.Str("b"),
	}))
	require.NoError(t, ds.SetCell("x", 0, column.Int(10)))
	require.NoError(t, ds.RenameColumn("name", "label"))
	gen, _ := ds.GenerationID()
	crash(t, ds)

	// The snapshot on disk is still the empty one from creation; the journal
	// carries everything.
	re, err := Open(path, ModeReadWrite, WithEditor("tester"), WithWAL())
	require.NoError(t, err)
	defer re.Close()

	reGen, err := re.GenerationID()
	require.NoError(t, err)
	assert.Equal(t, gen, reGen)

	keys, err := re.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "label"}, keys)

	v, err := re.GetCell("x", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), v.I64)

	v, err = re.GetCell("label", 1)
	require.NoError(t, err)
	assert.Equal(t, "b", v.S)
}

func TestJournalReplaysOnlyAfterSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.coldb")

	ds, err := Open(path, ModeCreate, WithEditor("tester"), WithWAL())
	require.NoError(t, err)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, []column.Value{column.Int(1)}))
	require.NoError(t, ds.Flush(context.Background()))

	// Post-flush mutations live only in the journal.
	require.NoError(t, ds.SetCell("x", 0, column.Int(2)))
	gen, _ := ds.GenerationID()
	crash(t, ds)

	re, err := Open(path, ModeReadWrite, WithEditor("tester"), WithWAL())
	require.NoError(t, err)
	defer re.Close()

	reGen, _ := re.GenerationID()
	assert.Equal(t, gen, reGen)

	v, err := re.GetCell("x", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.I64)
}

func TestJournalRecoversBlobWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobrec.coldb")

	ds, err := Open(path, ModeCreate, WithEditor("tester"), WithWAL())
	require.NoError(t, err)
	img := testImage(t)
	require.NoError(t, ds.AppendColumn("img", column.KindImage, []column.Value{column.Image(img)}))
	crash(t, ds)

	re, err := Open(path, ModeReadWrite, WithEditor("tester"), WithWAL())
	require.NoError(t, err)
	defer re.Close()

	v, err := re.GetCell("img", 0)
	require.NoError(t, err)
	assert.True(t, img.Equal(v.Img))
}

func TestJournalRecoversRowStructure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rowrec.coldb")

	ds, err := Open(path, ModeCreate, WithEditor("tester"), WithWAL())
	require.NoError(t, err)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, []column.Value{
		column.Int(0), column.Int(1), column.Int(2),
	}))
	require.NoError(t, ds.InsertRow(1, Row{"x": column.Int(99)}))
	require.NoError(t, ds.DeleteRow(3))
	require.NoError(t, ds.AppendRow(Row{"x": column.Int(7)}))
	crash(t, ds)

	re, err := Open(path, ModeReadWrite, WithEditor("tester"), WithWAL())
	require.NoError(t, err)
	defer re.Close()

	values, err := re.GetColumn("x", nil)
	require.NoError(t, err)
	got := make([]int64, len(values))
	for i, v := range values {
		got[i] = v.I64
	}
	assert.Equal(t, []int64{0, 99, 1, 7}, got)
}

func TestJournalCheckpointOnFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.coldb")

	ds, err := Open(path, ModeCreate, WithEditor("tester"), WithWAL())
	require.NoError(t, err)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, []column.Value{column.Int(1)}))

	size, err := ds.journal.Size()
	require.NoError(t, err)
	assert.Positive(t, size)

	require.NoError(t, ds.Flush(context.Background()))

	size, err = ds.journal.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
	require.NoError(t, ds.Close())
}

func TestTornJournalTailIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torn.coldb")

	ds, err := Open(path, ModeCreate, WithEditor("tester"), WithWAL())
	require.NoError(t, err)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, []column.Value{column.Int(1)}))
	crash(t, ds)

	// Truncate mid-frame to fake a torn append.
	walPath := path + journalSuffix
	fi, err := os.Stat(walPath)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(walPath, fi.Size()-3))

	re, err := Open(path, ModeReadWrite, WithEditor("tester"), WithWAL())
	require.NoError(t, err)
	defer re.Close()

	// The torn entry never committed from the reader's point of view.
	gen, _ := re.GenerationID()
	assert.Equal(t, uint64(0), gen)
}

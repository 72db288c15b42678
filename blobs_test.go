package coldb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/coldb/blobstore"
	"github.com/hupe1980/coldb/column"
	"github.com/hupe1980/coldb/media"
	"github.com/hupe1980/coldb/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(t *testing.T) *media.Image {
	t.Helper()
	img, err := media.NewImage(2, 2, []byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 255, 255, 255, 255,
	})
	require.NoError(t, err)
	return img
}

func TestMediaRoundTrips(t *testing.T) {
	ds := testStore(t)

	img := testImage(t)
	require.NoError(t, ds.AppendColumn("img", column.KindImage, []column.Value{column.Image(img)}))

	aud, err := media.NewAudio(8000, 1, []int16{0, 100, -100, 50})
	require.NoError(t, err)
	require.NoError(t, ds.AppendColumn("aud", column.KindAudio, []column.Value{column.Audio(aud)}))

	msh, err := media.NewMesh([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, []uint32{0, 1, 2})
	require.NoError(t, err)
	require.NoError(t, ds.AppendColumn("msh", column.KindMesh, []column.Value{column.Mesh(msh)}))

	seq := media.NewSequence1DFromValues([]float32{1, 2, 3})
	require.NoError(t, ds.AppendColumn("seq", column.KindSequence1D, []column.Value{column.Sequence(seq)}))

	raw := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p'}
	require.NoError(t, ds.AppendColumn("vid", column.KindVideo, []column.Value{column.Video(raw)}))

	row, err := ds.GetRow(0)
	require.NoError(t, err)
	assert.True(t, img.Equal(row["img"].Img))
	assert.True(t, aud.Equal(row["aud"].Aud))
	assert.True(t, msh.Equal(row["msh"].Msh))
	assert.True(t, seq.Equal(row["seq"].Seq))
	assert.Equal(t, raw, row["vid"].Raw)
}

func TestMediaSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media.coldb")

	ds, err := Open(path, ModeCreate, WithEditor("tester"))
	require.NoError(t, err)
	img := testImage(t)
	require.NoError(t, ds.AppendColumn("img", column.KindImage, []column.Value{column.Image(img)},
		WithFormat("zstd")))
	require.NoError(t, ds.Close())

	rd, err := Open(path, ModeRead)
	require.NoError(t, err)
	defer rd.Close()

	v, err := rd.GetCell("img", 0)
	require.NoError(t, err)
	assert.True(t, img.Equal(v.Img))
}

func TestLookupDedupesByKey(t *testing.T) {
	ds := testStore(t)
	img := testImage(t)

	require.NoError(t, ds.AppendColumn("img", column.KindImage, []column.Value{
		column.Image(img).WithKey("frame-1"),
		column.Image(img).WithKey("frame-1"),
		column.Image(img).WithKey("frame-2"),
	}, WithLookup()))

	// Two distinct keys mean two stored payloads for three cells.
	assert.Len(t, ds.blobs, 2)

	cs := ds.cols["img"]
	assert.Equal(t, cs.strs[0], cs.strs[1])
	assert.NotEqual(t, cs.strs[0], cs.strs[2])
}

func TestWithoutLookupEveryWriteStores(t *testing.T) {
	ds := testStore(t)
	img := testImage(t)

	require.NoError(t, ds.AppendColumn("img", column.KindImage, []column.Value{
		column.Image(img).WithKey("frame-1"),
		column.Image(img).WithKey("frame-1"),
	}))

	assert.Len(t, ds.blobs, 2)
}

func TestBroadcastStoresOnePayload(t *testing.T) {
	ds := testStore(t)
	img := testImage(t)

	require.NoError(t, ds.AppendColumn("n", column.KindInt, []column.Value{
		column.Int(0), column.Int(1), column.Int(2),
	}))
	require.NoError(t, ds.AppendColumn("img", column.KindImage, nil, WithOptional()))

	// One broadcast value means one stored payload shared by every cell.
	require.NoError(t, ds.SetColumn("img", nil, []column.Value{column.Image(img)}))
	assert.Len(t, ds.blobs, 1)

	cs := ds.cols["img"]
	assert.Equal(t, cs.strs[0], cs.strs[1])
	assert.Equal(t, cs.strs[0], cs.strs[2])

	v, err := ds.GetCell("img", 2)
	require.NoError(t, err)
	assert.True(t, img.Equal(v.Img))
}

func TestCompactDropsOrphanBlobs(t *testing.T) {
	ds := testStore(t)
	img := testImage(t)

	require.NoError(t, ds.AppendColumn("img", column.KindImage, []column.Value{
		column.Image(img), column.Image(img), column.Image(img),
	}))
	require.Len(t, ds.blobs, 3)

	require.NoError(t, ds.DeleteRow(0))
	// Deleting the row leaves its payload in the namespace until compaction.
	assert.Len(t, ds.blobs, 3)

	gen, _ := ds.GenerationID()
	require.NoError(t, ds.Compact(context.Background()))
	assert.Len(t, ds.blobs, 2)

	// Compaction never advances the generation.
	genAfter, _ := ds.GenerationID()
	assert.Equal(t, gen, genAfter)

	// The surviving cells still decode.
	v, err := ds.GetCell("img", 0)
	require.NoError(t, err)
	assert.True(t, img.Equal(v.Img))
}

func TestCompactRecodesBlobsAfterFormatChange(t *testing.T) {
	ds := testStore(t)
	img := testImage(t)

	require.NoError(t, ds.AppendColumn("img", column.KindImage, []column.Value{column.Image(img)}))
	require.NoError(t, ds.SetColumnAttributes("img", AttrUpdate{Format: strPtr("zstd")}))
	require.NoError(t, ds.Compact(context.Background()))

	for _, rec := range ds.blobs {
		assert.Equal(t, persistence.BlobCodecZstd, rec.Codec)
	}

	v, err := ds.GetCell("img", 0)
	require.NoError(t, err)
	assert.True(t, img.Equal(v.Img))
}

func TestImportObject(t *testing.T) {
	store := blobstore.NewMemoryStore()
	img := testImage(t)
	payload, err := img.EncodePNG()
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "frames/0001.png", payload))

	ds := testStore(t, WithObjectStore(store))
	require.NoError(t, ds.AppendColumn("img", column.KindImage, nil, WithOptional(), WithLookup()))
	require.NoError(t, ds.AppendRow(Row{}))

	require.NoError(t, ds.ImportObject(context.Background(), "img", 0, "frames/0001.png"))

	v, err := ds.GetCell("img", 0)
	require.NoError(t, err)
	assert.True(t, img.Equal(v.Img))
}

func TestImportObjectWithoutStore(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("img", column.KindImage, nil, WithOptional()))
	require.NoError(t, ds.AppendRow(Row{}))

	err := ds.ImportObject(context.Background(), "img", 0, "missing")
	require.Error(t, err)
}

func TestArchive(t *testing.T) {
	ds := testStore(t)
	require.NoError(t, ds.AppendColumn("x", column.KindInt, []column.Value{column.Int(1)}))
	require.NoError(t, ds.Flush(context.Background()))

	store := blobstore.NewMemoryStore()
	require.NoError(t, ds.Archive(context.Background(), store, "backups/test.coldb"))

	data, err := blobstore.ReadAll(context.Background(), store, "backups/test.coldb")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

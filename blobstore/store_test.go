package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the BlobStore behavior every implementation
// must share.
func runStoreContract(t *testing.T, store BlobStore) {
	ctx := context.Background()

	t.Run("put and open", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a/one", []byte("hello")))

		blob, err := store.Open(ctx, "a/one")
		require.NoError(t, err)
		defer blob.Close()

		assert.Equal(t, int64(5), blob.Size())

		p := make([]byte, 3)
		n, err := blob.ReadAt(ctx, p, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, "ell", string(p))
	})

	t.Run("read all", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a/two", []byte("payload")))

		data, err := ReadAll(ctx, store, "a/two")
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), data)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a/three", []byte("first")))
		require.NoError(t, store.Put(ctx, "a/three", []byte("second")))

		data, err := ReadAll(ctx, store, "a/three")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), data)
	})

	t.Run("streaming create", func(t *testing.T) {
		w, err := store.Create(ctx, "a/four")
		require.NoError(t, err)
		_, err = w.Write([]byte("str"))
		require.NoError(t, err)
		_, err = w.Write([]byte("eamed"))
		require.NoError(t, err)
		require.NoError(t, w.Sync())
		require.NoError(t, w.Close())

		data, err := ReadAll(ctx, store, "a/four")
		require.NoError(t, err)
		assert.Equal(t, []byte("streamed"), data)
	})

	t.Run("list by prefix", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "b/x", []byte("1")))
		require.NoError(t, store.Put(ctx, "b/y", []byte("2")))

		names, err := store.List(ctx, "b/")
		require.NoError(t, err)
		assert.Equal(t, []string{"b/x", "b/y"}, names)
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := store.Open(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)

		_, err = ReadAll(ctx, store, "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a/gone", []byte("x")))
		require.NoError(t, store.Delete(ctx, "a/gone"))

		_, err := store.Open(ctx, "a/gone")
		require.ErrorIs(t, err, ErrNotFound)

		// Deleting a missing object is not an error.
		require.NoError(t, store.Delete(ctx, "a/gone"))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	runStoreContract(t, NewLocalStore(t.TempDir()))
}

func TestMappableBytes(t *testing.T) {
	ctx := context.Background()

	for _, tt := range []struct {
		name  string
		store BlobStore
	}{
		{name: "memory", store: NewMemoryStore()},
		{name: "local", store: NewLocalStore(t.TempDir())},
	} {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.store.Put(ctx, "m", []byte("mapped")))

			blob, err := tt.store.Open(ctx, "m")
			require.NoError(t, err)
			defer blob.Close()

			m, ok := blob.(Mappable)
			require.True(t, ok)
			data, err := m.Bytes()
			require.NoError(t, err)
			assert.Equal(t, []byte("mapped"), data)
		})
	}
}

func TestReadAtPastEnd(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "m", []byte("abc")))

	blob, err := store.Open(ctx, "m")
	require.NoError(t, err)
	defer blob.Close()

	p := make([]byte, 8)
	n, err := blob.ReadAt(ctx, p, 1)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = blob.ReadAt(ctx, p, 10)
	assert.ErrorIs(t, err, io.EOF)
}

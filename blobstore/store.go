package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when an object does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction over external object storage. Datasets use it
// to ingest media payloads from files or buckets and to archive store files
// to remote storage.
type BlobStore interface {
	// Open opens an existing object for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Put writes an object atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Create creates an object for streaming writes. The object becomes
	// visible when the returned blob is closed.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all object names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to an object.
type Blob interface {
	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Size returns the size of the object in bytes.
	Size() int64
	io.Closer
}

// WritableBlob is a write handle for streaming uploads.
type WritableBlob interface {
	io.WriteCloser
	// Sync flushes written data where the backend supports it.
	Sync() error
}

// Mappable is an optional interface for Blobs that expose their contents as
// a byte slice without copying.
type Mappable interface {
	// Bytes returns the underlying byte slice. The slice is valid until the
	// Blob is closed.
	Bytes() ([]byte, error)
}

// ReadAll fetches a whole object into memory.
func ReadAll(ctx context.Context, store BlobStore, name string) ([]byte, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	if m, ok := blob.(Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	out := make([]byte, blob.Size())
	if len(out) == 0 {
		return out, nil
	}
	if _, err := blob.ReadAt(ctx, out, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}

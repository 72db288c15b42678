package coldb

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/hupe1980/coldb/blobstore"
	"github.com/hupe1980/coldb/column"
	"github.com/hupe1980/coldb/persistence"
)

// putBlob stores a payload in the blob namespace and returns its key.
//
// On a lookup-enabled column a caller-supplied key that was stored before
// resolves to the existing reference without writing new bytes; a fresh key
// stores the payload once and records the association. Without a lookup key
// every payload gets a generated key.
func (d *Dataset) putBlob(t *txn, columnName string, a *column.Attrs, payload []byte, lookupKey string) (string, error) {
	if lookupKey != "" && a.Lookup != nil {
		if ref, ok := a.Lookup.Ref(lookupKey); ok {
			return ref, nil
		}
	}

	blobCodec, err := persistence.BlobCodecFromFormat(a.Format)
	if err != nil {
		return "", &InvalidValueError{Column: a.Name, Reason: err.Error()}
	}
	data, err := persistence.CompressBlob(blobCodec, payload)
	if err != nil {
		return "", &InvalidValueError{Column: a.Name, Reason: err.Error()}
	}

	key := uuid.NewString()
	rec := persistence.BlobRecord{Codec: blobCodec, Data: data}
	d.blobs[key] = rec
	t.onRollback(func() { delete(d.blobs, key) })
	t.addBlob(key, rec)

	if lookupKey != "" && a.Lookup != nil {
		if err := a.Lookup.Put(lookupKey, key); err != nil {
			return "", &InvalidAttributeError{Column: a.Name, Attribute: "lookup", Reason: err.Error()}
		}
		t.addLookup(columnName, lookupKey, key)
	}
	return key, nil
}

// getBlob fetches and decompresses one blob payload.
func (d *Dataset) getBlob(key string) ([]byte, error) {
	rec, ok := d.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %q: %w", key, blobstore.ErrNotFound)
	}
	return persistence.DecompressBlob(rec.Codec, rec.Data)
}

// liveBlobKeys returns the set of blob keys referenced by any cell of any
// ref column.
func (d *Dataset) liveBlobKeys() map[string]struct{} {
	live := make(map[string]struct{})
	for _, name := range d.order {
		cs := d.cols[name]
		if cs.attrs.Kind.Storage() != column.StorageRef {
			continue
		}
		for i, key := range cs.strs {
			if key != "" && !cs.nulls.Contains(uint32(i)) {
				live[key] = struct{}{}
			}
		}
	}
	return live
}

// ImportObject ingests an external object into a reference column cell. The
// object is fetched from the configured object store (or the store given via
// WithObjectStore), run through the column's media decoder for validation,
// and stored under the object key so lookup-enabled columns dedupe repeated
// imports of the same object.
func (d *Dataset) ImportObject(ctx context.Context, columnName string, row int, objectKey string) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	store := d.opts.objectStore
	if store == nil {
		return fmt.Errorf("no object store configured")
	}

	cs, err := d.col(columnName)
	if err != nil {
		return err
	}
	if cs.attrs.Kind.Storage() != column.StorageRef {
		return &InvalidDTypeError{Column: columnName, Want: cs.attrs.Kind, Got: "external object"}
	}

	blob, err := store.Open(ctx, objectKey)
	if err != nil {
		return fmt.Errorf("fetch %q: %w", objectKey, err)
	}
	size := blob.Size()
	if err := blob.Close(); err != nil {
		return err
	}
	if d.rc != nil {
		if err := d.rc.AcquireMemory(ctx, size); err != nil {
			return err
		}
		defer d.rc.ReleaseMemory(size)
	}

	payload, err := blobstore.ReadAll(ctx, store, objectKey)
	if err != nil {
		return fmt.Errorf("fetch %q: %w", objectKey, err)
	}

	v, err := decodeObjectPayload(cs.attrs.Kind, payload)
	if err != nil {
		return &InvalidValueError{Column: columnName, Reason: err.Error()}
	}

	return d.SetCell(columnName, row, v.WithKey(objectKey))
}

// decodeObjectPayload interprets raw external bytes as a value of the target
// kind. Video payloads pass through unparsed; everything else must decode.
func decodeObjectPayload(kind column.Kind, payload []byte) (column.Value, error) {
	a := &column.Attrs{Kind: kind}
	return column.Decode(a, column.Cell{}, payload)
}

// Archive uploads the current store file to an external object store under
// the given key. The dataset must have been flushed for the upload to
// contain the latest generation.
func (d *Dataset) Archive(ctx context.Context, store blobstore.BlobStore, key string) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("read store file: %w", err)
	}
	return store.Put(ctx, key, data)
}

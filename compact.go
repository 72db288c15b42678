package coldb

import (
	"context"
	"sync"

	"github.com/hupe1980/coldb/column"
	"github.com/hupe1980/coldb/persistence"
	"golang.org/x/sync/errgroup"
)

// Compact reclaims space in the blob namespace and rewrites the store file.
//
// Blobs no longer referenced by any cell (after deletes and overwrites) are
// dropped, and blobs whose column's format attribute changed since they were
// stored are re-encoded with the current codec. Compaction changes the
// physical layout only, never the observable data, so it does not advance
// the generation id.
func (d *Dataset) Compact(ctx context.Context) error {
	if err := d.ensureWritable(); err != nil {
		return err
	}

	live := d.liveBlobKeys()
	dropped := 0
	for key := range d.blobs {
		if _, ok := live[key]; !ok {
			delete(d.blobs, key)
			dropped++
		}
	}

	if err := d.recodeBlobs(ctx); err != nil {
		d.opts.logger.LogCompact(ctx, len(d.blobs), dropped, err)
		return err
	}

	err := d.writeSnapshot(ctx)
	if err == nil && d.journal != nil {
		err = d.journal.Checkpoint()
	}
	d.opts.logger.LogCompact(ctx, len(d.blobs), dropped, err)
	return err
}

// recodeBlobs re-encodes blobs whose stored codec no longer matches their
// column's format attribute. Work is fanned out across background workers
// bounded by the resource controller. A re-encoded blob carries the same
// payload, so partial progress before an error is harmless.
func (d *Dataset) recodeBlobs(ctx context.Context) error {
	targets := d.blobCodecTargets()

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for key, want := range targets {
		rec, ok := d.blobs[key]
		if !ok || rec.Codec == want {
			continue
		}
		key, rec, want := key, rec, want
		g.Go(func() error {
			if err := d.rc.AcquireBackground(gctx); err != nil {
				return err
			}
			defer d.rc.ReleaseBackground()

			payload, err := persistence.DecompressBlob(rec.Codec, rec.Data)
			if err != nil {
				return err
			}
			if err := d.rc.AcquireIO(gctx, len(payload)); err != nil {
				return err
			}
			data, err := persistence.CompressBlob(want, payload)
			if err != nil {
				return err
			}

			mu.Lock()
			d.blobs[key] = persistence.BlobRecord{Codec: want, Data: data}
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// blobCodecTargets maps every referenced blob key to the codec its column's
// format attribute currently selects.
func (d *Dataset) blobCodecTargets() map[string]uint8 {
	targets := make(map[string]uint8)
	for _, name := range d.order {
		cs := d.cols[name]
		if cs.attrs.Kind.Storage() != column.StorageRef {
			continue
		}
		want, err := persistence.BlobCodecFromFormat(cs.attrs.Format)
		if err != nil {
			continue
		}
		for i, key := range cs.strs {
			if key != "" && !cs.nulls.Contains(uint32(i)) {
				targets[key] = want
			}
		}
	}
	return targets
}

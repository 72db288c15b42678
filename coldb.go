package coldb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/coldb/internal/resource"
	"github.com/hupe1980/coldb/persistence"
	"github.com/hupe1980/coldb/wal"
)

// journalSuffix is appended to the store path to form the journal path.
const journalSuffix = ".wal"

// Open opens or creates a store file at path according to mode.
//
// ModeRead and ModeReadWrite require an existing file. ModeCreate starts a
// fresh store, replacing any file at path; ModeCreateExclusive fails if the
// file exists. ModeAppend opens an existing store for mutation and creates
// one when missing.
func Open(path string, mode Mode, optFns ...Option) (*Dataset, error) {
	if !mode.valid() {
		return nil, &InvalidModeError{Mode: mode}
	}

	opts := applyOptions(optFns)
	if opts.editor == "" {
		if u, err := user.Current(); err == nil && u.Username != "" {
			opts.editor = u.Username
		} else {
			opts.editor = "unknown"
		}
	}

	d := &Dataset{
		path:  path,
		mode:  mode,
		opts:  opts,
		cols:  make(map[string]*columnState),
		blobs: make(map[string]persistence.BlobRecord),
		rc:    resource.NewController(opts.resourceCfg),
	}

	exists := true
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		exists = false
	}

	fresh := false
	switch mode {
	case ModeRead, ModeReadWrite:
		if !exists {
			return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
		}
	case ModeCreate:
		fresh = true
	case ModeCreateExclusive:
		if exists {
			return nil, fmt.Errorf("create %s: %w", path, os.ErrExist)
		}
		fresh = true
	case ModeAppend:
		fresh = !exists
	}

	if fresh {
		now := time.Now().UTC()
		d.uid = uuid.NewString()
		d.name = opts.name
		d.createdBy = opts.editor
		d.createdAt = now
		d.lastEditedBy = opts.editor
		d.lastEditedAt = now
	} else {
		snap, err := persistence.LoadSnapshot(path, opts.useMmap)
		if err != nil {
			return nil, err
		}
		if err := d.fromSnapshot(snap); err != nil {
			return nil, err
		}
	}

	if mode.writable() {
		d.ensureBookkeeping()
	}

	if opts.walEnabled {
		walFns := make([]func(*wal.Options), 0, len(opts.walOptions)+1)
		walFns = append(walFns, func(o *wal.Options) { o.Path = path + journalSuffix })
		walFns = append(walFns, opts.walOptions...)

		journal, err := wal.New(walFns...)
		if err != nil {
			return nil, err
		}

		if fresh {
			// A journal left over from a replaced store does not apply.
			if err := journal.Checkpoint(); err != nil {
				journal.Close() //nolint:errcheck
				return nil, err
			}
		} else {
			replayed := 0
			err := journal.Replay(d.generation, func(entry wal.Entry) error {
				replayed++
				return d.applyJournal(entry)
			})
			d.opts.logger.LogRecovery(context.Background(), replayed, err)
			if err != nil {
				journal.Close() //nolint:errcheck
				return nil, fmt.Errorf("replay journal: %w", err)
			}
		}

		if mode.writable() {
			d.journal = journal
		} else if err := journal.Close(); err != nil {
			return nil, err
		}
	}

	if fresh {
		if err := d.writeSnapshot(context.Background()); err != nil {
			if d.journal != nil {
				d.journal.Close() //nolint:errcheck
			}
			return nil, err
		}
	}

	return d, nil
}

// Flush persists the current state to the store file. The file is replaced
// atomically, and on success the journal is checkpointed.
func (d *Dataset) Flush(ctx context.Context) error {
	if err := d.ensureWritable(); err != nil {
		return err
	}

	err := d.writeSnapshot(ctx)
	d.opts.logger.LogFlush(ctx, d.path, d.generation, err)
	if err != nil {
		return err
	}

	if d.journal != nil {
		if err := d.journal.Checkpoint(); err != nil {
			return fmt.Errorf("checkpoint journal: %w", err)
		}
	}
	return nil
}

func (d *Dataset) writeSnapshot(ctx context.Context) error {
	snap := d.toSnapshot()
	return persistence.SaveToFile(d.path, func(w io.Writer) error {
		var out io.Writer = w
		if d.rc != nil {
			out = resource.NewRateLimitedWriter(ctx, w, d.rc)
		}
		return persistence.WriteSnapshot(out, snap, d.opts.codec)
	})
}

// Close flushes a writable dataset and releases the handle. It is
// idempotent; every call after the first returns nil.
func (d *Dataset) Close() error {
	if d == nil || d.closed {
		return nil
	}

	var err error
	if d.mode.writable() {
		err = d.Flush(context.Background())
	}
	d.closed = true

	if d.journal != nil {
		if cerr := d.journal.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// GenerationID returns the monotonic mutation counter. It increases by
// exactly one on every successful mutating call and never otherwise.
func (d *Dataset) GenerationID() (uint64, error) {
	if err := d.ensureOpen(); err != nil {
		return 0, err
	}
	return d.generation, nil
}

// CheckGeneration verifies that the dataset is still at the generation the
// caller observed, returning a GenerationMismatchError otherwise. Cache
// layers use this to detect staleness before trusting derived state.
func (d *Dataset) CheckGeneration(expected uint64) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	if d.generation != expected {
		return &GenerationMismatchError{Expected: expected, Actual: d.generation}
	}
	return nil
}

// UID returns the store's stable unique identifier, assigned at creation.
func (d *Dataset) UID() (string, error) {
	if err := d.ensureOpen(); err != nil {
		return "", err
	}
	return d.uid, nil
}

// Name returns the human-readable dataset name from the manifest.
func (d *Dataset) Name() (string, error) {
	if err := d.ensureOpen(); err != nil {
		return "", err
	}
	return d.name, nil
}

// Path returns the store file path.
func (d *Dataset) Path() string { return d.path }

package coldb

import (
	"log/slog"

	"github.com/hupe1980/coldb/blobstore"
	"github.com/hupe1980/coldb/codec"
	"github.com/hupe1980/coldb/internal/resource"
	"github.com/hupe1980/coldb/wal"
)

type options struct {
	codec       codec.Codec
	logger      *Logger
	editor      string
	name        string
	useMmap     bool
	walEnabled  bool
	walOptions  []func(*wal.Options)
	resourceCfg resource.Config
	objectStore blobstore.BlobStore
}

// Option configures Open behavior.
type Option func(*options)

// WithCodec configures the codec used for the manifest and journal payloads.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithEditor sets the identity recorded by the bookkeeping columns and the
// manifest's last-editor field. Defaults to the OS username.
func WithEditor(editor string) Option {
	return func(o *options) {
		o.editor = editor
	}
}

// WithName sets the human-readable dataset name recorded in the manifest on
// creation.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMmap memory-maps the store file while loading instead of reading it
// into a heap buffer. The dataset owns copies of all data either way.
func WithMmap(useMmap bool) Option {
	return func(o *options) {
		o.useMmap = useMmap
	}
}

// WithWAL enables the journal. Committed mutations are appended to a journal
// file next to the store file and replayed on the next writable open, so a
// crash between flushes loses nothing.
func WithWAL(optFns ...func(*wal.Options)) Option {
	return func(o *options) {
		o.walEnabled = true
		o.walOptions = optFns
	}
}

// WithResourceLimits bounds background work: compaction concurrency, ingest
// memory, and flush/compaction IO throughput.
func WithResourceLimits(cfg resource.Config) Option {
	return func(o *options) {
		o.resourceCfg = cfg
	}
}

// WithObjectStore configures the external object store used by
// ImportObject to ingest payloads into reference columns.
func WithObjectStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.objectStore = store
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:  codec.Default,
		logger: NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

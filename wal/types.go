// Package wal implements the coldb journal: an append-only log of committed
// mutations written between store file snapshots. On a writable open, entries
// newer than the loaded snapshot's generation are replayed to recover
// mutations that never made it into a snapshot.
package wal

import "errors"

// OpType identifies the mutation recorded by a journal entry.
type OpType uint8

const (
	// OpInvalid represents an invalid operation.
	OpInvalid OpType = iota
	// OpAppendRow records a row append.
	OpAppendRow
	// OpInsertRow records a row insert.
	OpInsertRow
	// OpDeleteRows records a row deletion.
	OpDeleteRows
	// OpSetCell records a single-cell write.
	OpSetCell
	// OpSetColumn records a column-wide write.
	OpSetColumn
	// OpSetRow records a row-wide write.
	OpSetRow
	// OpAppendColumn records a column append.
	OpAppendColumn
	// OpDeleteColumn records a column deletion.
	OpDeleteColumn
	// OpRenameColumn records a column rename.
	OpRenameColumn
	// OpSetAttrs records a column attribute change.
	OpSetAttrs
	// OpCheckpoint marks a snapshot boundary; entries at or before the
	// checkpointed generation are obsolete.
	OpCheckpoint
)

// Entry is a single journal record. Payload is opaque to the journal; the
// dataset encodes and decodes it with its manifest codec.
type Entry struct {
	Seq     uint64 // generation id after the mutation
	Op      OpType
	Payload []byte
}

// DurabilityMode defines the fsync behavior for journal writes.
type DurabilityMode int

const (
	// DurabilitySync fsyncs after every append. Slowest, strongest.
	DurabilitySync DurabilityMode = iota
	// DurabilityAsync never fsyncs explicitly; the OS decides. Fastest,
	// but a crash may lose the tail of the journal.
	DurabilityAsync
)

// Options contains configuration for the journal.
type Options struct {
	// Path is the journal file path.
	Path string

	// Compress enables zstd compression of entry payloads.
	Compress bool

	// DurabilityMode controls fsync behavior.
	DurabilityMode DurabilityMode
}

// DefaultOptions returns default journal options.
var DefaultOptions = Options{
	Compress:       false,
	DurabilityMode: DurabilitySync,
}

var (
	// ErrClosed is returned when operations are attempted on a closed
	// journal.
	ErrClosed = errors.New("wal: journal is closed")

	// ErrCorruptEntry is returned by Replay's callback path when an entry
	// fails its checksum; replay stops at the first corrupt entry, treating
	// it as a torn tail.
	ErrCorruptEntry = errors.New("wal: corrupt entry")
)

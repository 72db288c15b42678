package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Frame layout: u32 body length, u32 CRC32(body), body.
// Body layout: u64 seq, u8 op, u8 flags, payload.
const (
	frameHeaderSize = 8
	bodyHeaderSize  = 10

	flagZstd = 1 << 0
)

var (
	walZstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	walZstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
)

// WAL is an append-only journal of committed mutations.
//
// It is safe for use by a single writer with concurrent Replay calls
// serialized externally, matching the store's single-writer model.
type WAL struct {
	mu     sync.Mutex
	f      *os.File
	opts   Options
	closed bool
}

// New opens (or creates) the journal at opts.Path.
func New(optFns ...func(*Options)) (*WAL, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("wal: no path configured")
	}

	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", opts.Path, err)
	}
	return &WAL{f: f, opts: opts}, nil
}

// Append writes one entry and, in sync mode, makes it durable before
// returning.
func (w *WAL) Append(entry Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	payload := entry.Payload
	var flags byte
	if w.opts.Compress && len(payload) > 0 {
		payload = walZstdEncoder.EncodeAll(payload, make([]byte, 0, len(payload)/2))
		flags |= flagZstd
	}

	body := make([]byte, bodyHeaderSize+len(payload))
	binary.LittleEndian.PutUint64(body, entry.Seq)
	body[8] = byte(entry.Op)
	body[9] = flags
	copy(body[bodyHeaderSize:], payload)

	frame := make([]byte, frameHeaderSize+len(body))
	binary.LittleEndian.PutUint32(frame, uint32(len(body)))
	binary.LittleEndian.PutUint32(frame[4:], crc32.ChecksumIEEE(body))
	copy(frame[frameHeaderSize:], body)

	if _, err := w.f.Write(frame); err != nil {
		return fmt.Errorf("wal: append: %w", err)
	}
	if w.opts.DurabilityMode == DurabilitySync {
		if err := w.f.Sync(); err != nil {
			return fmt.Errorf("wal: sync: %w", err)
		}
	}
	return nil
}

// Replay streams every intact entry with Seq > afterSeq to fn, in append
// order. A torn or corrupt tail ends replay without error: everything before
// it was committed, everything after it never was.
func (w *WAL) Replay(afterSeq uint64, fn func(Entry) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wal: seek: %w", err)
	}
	// Restore append position when done.
	defer w.f.Seek(0, io.SeekEnd) //nolint:errcheck

	header := make([]byte, frameHeaderSize)
	for {
		if _, err := io.ReadFull(w.f, header); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("wal: read frame header: %w", err)
		}
		bodyLen := binary.LittleEndian.Uint32(header)
		wantCRC := binary.LittleEndian.Uint32(header[4:])
		if bodyLen < bodyHeaderSize {
			return nil // torn tail
		}
		body := make([]byte, bodyLen)
		if _, err := io.ReadFull(w.f, body); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("wal: read frame body: %w", err)
		}
		if crc32.ChecksumIEEE(body) != wantCRC {
			return nil // torn tail
		}

		entry := Entry{
			Seq: binary.LittleEndian.Uint64(body),
			Op:  OpType(body[8]),
		}
		payload := body[bodyHeaderSize:]
		if body[9]&flagZstd != 0 {
			decoded, err := walZstdDecoder.DecodeAll(payload, nil)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorruptEntry, err)
			}
			payload = decoded
		}
		entry.Payload = payload

		if entry.Seq <= afterSeq {
			continue
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
}

// Checkpoint truncates the journal after a successful snapshot; all recorded
// mutations are contained in the snapshot.
func (w *WAL) Checkpoint() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.f.Truncate(0); err != nil {
		return fmt.Errorf("wal: truncate: %w", err)
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wal: seek: %w", err)
	}
	return w.f.Sync()
}

// Size returns the current journal size in bytes.
func (w *WAL) Size() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}
	fi, err := w.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Close syncs and closes the journal file. It is idempotent.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.f.Sync()
	return w.f.Close()
}

package persistence

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/hupe1980/coldb/codec"
)

var byteOrder = binary.LittleEndian

// WriteSnapshot serializes a snapshot to w. The manifest is encoded with c
// and the codec name is recorded in the header so files are self-describing.
func WriteSnapshot(w io.Writer, snap *Snapshot, c codec.Codec) error {
	if c == nil {
		c = codec.Default
	}

	manifest, err := c.Marshal(&snap.Manifest)
	if err != nil {
		return fmt.Errorf("persistence: manifest encode: %w", err)
	}

	var data bytes.Buffer
	for i := range snap.Columns {
		if err := writeColumnData(&data, &snap.Columns[i]); err != nil {
			return err
		}
	}

	var blobs bytes.Buffer
	if err := writeBlobSection(&blobs, snap.Blobs); err != nil {
		return err
	}

	header := FileHeader{
		Magic:       MagicNumber,
		Version:     Version,
		ManifestLen: uint64(len(manifest)),
		DataLen:     uint64(data.Len()),
		BlobLen:     uint64(blobs.Len()),
	}
	copy(header.CodecName[:], c.Name())

	crc := NewChecksumWriter(io.Discard)
	_, _ = crc.Write(manifest)
	_, _ = crc.Write(data.Bytes())
	_, _ = crc.Write(blobs.Bytes())
	header.Checksum = crc.Sum()

	if err := binary.Write(w, byteOrder, &header); err != nil {
		return err
	}
	if _, err := w.Write(manifest); err != nil {
		return err
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return err
	}
	if _, err := w.Write(blobs.Bytes()); err != nil {
		return err
	}
	return nil
}

// ReadSnapshot parses a snapshot from r, validating magic, version and
// checksum.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var header FileHeader
	if err := binary.Read(r, byteOrder, &header); err != nil {
		return nil, fmt.Errorf("persistence: header: %w", err)
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, header.Version)
	}

	codecName := string(bytes.TrimRight(header.CodecName[:], "\x00"))
	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codecName)
	}

	cr := NewChecksumReader(r)
	manifest := make([]byte, header.ManifestLen)
	if _, err := io.ReadFull(cr, manifest); err != nil {
		return nil, fmt.Errorf("%w: manifest section: %v", ErrTruncated, err)
	}
	data := make([]byte, header.DataLen)
	if _, err := io.ReadFull(cr, data); err != nil {
		return nil, fmt.Errorf("%w: data section: %v", ErrTruncated, err)
	}
	blobs := make([]byte, header.BlobLen)
	if _, err := io.ReadFull(cr, blobs); err != nil {
		return nil, fmt.Errorf("%w: blob section: %v", ErrTruncated, err)
	}
	if err := cr.Verify(header.Checksum); err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	if err := c.Unmarshal(manifest, &snap.Manifest); err != nil {
		return nil, fmt.Errorf("persistence: manifest decode: %w", err)
	}

	dr := bytes.NewReader(data)
	snap.Columns = make([]ColumnData, len(snap.Manifest.Columns))
	for i := range snap.Columns {
		if err := readColumnData(dr, &snap.Columns[i]); err != nil {
			return nil, err
		}
	}
	if dr.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing data bytes", ErrTruncated, dr.Len())
	}

	var err error
	if snap.Blobs, err = readBlobSection(bytes.NewReader(blobs)); err != nil {
		return nil, err
	}
	return snap, nil
}

func writeColumnData(w io.Writer, col *ColumnData) error {
	if err := writeBytes(w, col.Fixed); err != nil {
		return err
	}
	if err := binary.Write(w, byteOrder, uint32(len(col.Strs))); err != nil {
		return err
	}
	for _, s := range col.Strs {
		if err := writeBytes(w, []byte(s)); err != nil {
			return err
		}
	}
	return writeBytes(w, col.Nulls)
}

func readColumnData(r *bytes.Reader, col *ColumnData) error {
	var err error
	if col.Fixed, err = readBytes(r); err != nil {
		return err
	}
	var count uint32
	if err := binary.Read(r, byteOrder, &count); err != nil {
		return fmt.Errorf("%w: string count", ErrTruncated)
	}
	if count > 0 {
		col.Strs = make([]string, count)
		for i := range col.Strs {
			b, err := readBytes(r)
			if err != nil {
				return err
			}
			col.Strs[i] = string(b)
		}
	}
	col.Nulls, err = readBytes(r)
	return err
}

// writeBlobSection persists blobs in sorted key order so saves are
// deterministic. Keys are escaped as path segments.
func writeBlobSection(w io.Writer, blobs map[string]BlobRecord) error {
	keys := make([]string, 0, len(blobs))
	for key := range blobs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if err := binary.Write(w, byteOrder, uint32(len(keys))); err != nil {
		return err
	}
	for _, key := range keys {
		rec := blobs[key]
		if err := writeBytes(w, []byte(EscapeKey(key))); err != nil {
			return err
		}
		if _, err := w.Write([]byte{rec.Codec}); err != nil {
			return err
		}
		if err := writeBytes(w, rec.Data); err != nil {
			return err
		}
	}
	return nil
}

func readBlobSection(r *bytes.Reader) (map[string]BlobRecord, error) {
	var count uint32
	if err := binary.Read(r, byteOrder, &count); err != nil {
		return nil, fmt.Errorf("%w: blob count", ErrTruncated)
	}
	blobs := make(map[string]BlobRecord, count)
	for i := uint32(0); i < count; i++ {
		keyBytes, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		blobCodec, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: blob codec", ErrTruncated)
		}
		data, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		blobs[UnescapeKey(string(keyBytes))] = BlobRecord{Codec: blobCodec, Data: data}
	}
	return blobs, nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, byteOrder, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var n uint64
	if err := binary.Read(r, byteOrder, &n); err != nil {
		return nil, fmt.Errorf("%w: length prefix", ErrTruncated)
	}
	if n == 0 {
		return nil, nil
	}
	if n > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d byte field with %d bytes left", ErrTruncated, n, r.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// SaveToFile writes a file atomically: content goes to a temp file in the
// same directory which is then renamed over the target, so an interrupted
// save leaves the original untouched.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	// Match typical file permissions (best-effort).
	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// SaveSnapshot writes a snapshot to path atomically.
func SaveSnapshot(path string, snap *Snapshot, c codec.Codec) error {
	return SaveToFile(path, func(w io.Writer) error {
		return WriteSnapshot(w, snap, c)
	})
}

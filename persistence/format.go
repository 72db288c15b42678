// Package persistence implements the coldb store file: a single hierarchical
// binary container holding the manifest, every column's payload and the blob
// namespace, protected by a CRC32 trailer and replaced atomically on save.
package persistence

import (
	"errors"
	"strings"
	"time"
)

const (
	// MagicNumber identifies coldb store files (ASCII: "CLDB").
	MagicNumber = 0x434C4442
	// Version is the current file format version (v1.0.0).
	Version = 0x00010000

	// FormatVersion is the human-readable schema version recorded in the
	// manifest.
	FormatVersion = "1.0"

	// Blob compression codecs recorded per blob record.
	BlobCodecNone uint8 = 0
	BlobCodecZstd uint8 = 1
	BlobCodecLZ4  uint8 = 2
)

var (
	// ErrInvalidMagic is returned when a file does not start with the coldb
	// magic number.
	ErrInvalidMagic = errors.New("invalid magic number")
	// ErrInvalidVersion is returned for unsupported file format versions.
	ErrInvalidVersion = errors.New("unsupported version")
	// ErrTruncated is returned when a section overruns the file.
	ErrTruncated = errors.New("truncated store file")
	// ErrUnknownCodec is returned when the header names a codec that is not
	// built in.
	ErrUnknownCodec = errors.New("unknown manifest codec")
	// ErrUnknownBlobCodec is returned for unrecognized blob compression
	// codecs.
	ErrUnknownBlobCodec = errors.New("unknown blob compression codec")
)

// FileHeader is the fixed-size header at the start of every store file.
type FileHeader struct {
	Magic       uint32
	Version     uint32
	CodecName   [8]byte // manifest codec name, NUL padded
	ManifestLen uint64
	DataLen     uint64
	BlobLen     uint64
	Checksum    uint32 // CRC32 of the three sections
	Reserved    [20]byte
}

// Manifest is the self-describing schema record of a store file.
type Manifest struct {
	FormatVersion string    `json:"version"`
	UID           string    `json:"uid"`
	Name          string    `json:"name"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	LastEditedBy  string    `json:"last_edited_by"`
	LastEditedAt  time.Time `json:"last_edited_at"`
	Generation    uint64    `json:"generation_id"`
	Rows          int       `json:"rows"`

	Columns []ColumnManifest `json:"columns"`
}

// ColumnManifest carries one column's attributes in persisted form. The
// default value is stored in the column's own storable representation.
type ColumnManifest struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Order       int      `json:"order"`
	Hidden      bool     `json:"hidden,omitempty"`
	Optional    bool     `json:"optional,omitempty"`
	Editable    bool     `json:"editable,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	DefaultNull  bool   `json:"default_null,omitempty"`
	DefaultFixed []byte `json:"default_fixed,omitempty"`
	DefaultStr   string `json:"default_str,omitempty"`
	HasDefault   bool   `json:"has_default,omitempty"`

	CategoryKeys   []string `json:"category_keys,omitempty"`
	CategoryValues []int32  `json:"category_values,omitempty"`

	LookupKeys   []string `json:"lookup_keys,omitempty"`
	LookupValues []string `json:"lookup_values,omitempty"`
	HasLookup    bool     `json:"has_lookup,omitempty"`

	ValueDType string `json:"value_dtype,omitempty"`
	ValueShape []int  `json:"value_shape,omitempty"`

	Lossy  bool   `json:"lossy,omitempty"`
	Format string `json:"format,omitempty"`
}

// ColumnData is the serialized payload of one column, aligned with its
// ColumnManifest entry.
type ColumnData struct {
	// Fixed holds rows*stride bytes for fixed-width columns.
	Fixed []byte
	// Strs holds one entry per row for string and ref columns.
	Strs []string
	// Nulls is the serialized roaring bitmap of null positions.
	Nulls []byte
}

// BlobRecord is one stored blob payload.
type BlobRecord struct {
	Codec uint8
	Data  []byte
}

// Snapshot is the full in-memory image of a store file.
type Snapshot struct {
	Manifest Manifest
	Columns  []ColumnData
	Blobs    map[string]BlobRecord
}

// EscapeKey escapes a blob key for use as a path segment in the blob
// namespace: `\` becomes `\\` and `/` becomes `\s`.
func EscapeKey(key string) string {
	key = strings.ReplaceAll(key, `\`, `\\`)
	return strings.ReplaceAll(key, "/", `\s`)
}

// UnescapeKey reverses EscapeKey.
func UnescapeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		if key[i] == '\\' && i+1 < len(key) {
			switch key[i+1] {
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			case 's':
				b.WriteByte('/')
				i++
				continue
			}
		}
		b.WriteByte(key[i])
	}
	return b.String()
}

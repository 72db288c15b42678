// Package column defines the closed set of semantic column types, the typed
// Value union that moves through the public API, and the per-kind codecs that
// translate between native values and their storable representation.
//
// The type set is intentionally closed: behavior is selected by exhaustive
// switches over Kind rather than by runtime name lookup, so an unsupported
// kind is a compile-time hole, not a silent fallthrough.
package column

import "fmt"

// Kind identifies the semantic type of a column.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindBool represents a boolean column.
	KindBool
	// KindInt represents a 64-bit integer column.
	KindInt
	// KindFloat represents a 64-bit float column.
	KindFloat
	// KindString represents a variable-length string column.
	KindString
	// KindDateTime represents a timestamp column (nanosecond precision).
	KindDateTime
	// KindCategory represents a bounded categorical column backed by a
	// name/code table.
	KindCategory
	// KindWindow represents a (start, end) pair of float32 values.
	KindWindow
	// KindBoundingBox represents an (x1, y1, x2, y2) quadruple of float32 values.
	KindBoundingBox
	// KindEmbedding represents a fixed-length float32 vector whose length is
	// pinned by the first written value.
	KindEmbedding
	// KindArray represents an n-dimensional numeric array.
	KindArray
	// KindImage represents a PNG-encoded image blob.
	KindImage
	// KindAudio represents a muxed audio blob.
	KindAudio
	// KindVideo represents an opaque video blob.
	KindVideo
	// KindMesh represents a triangle mesh blob (binary glTF subset).
	KindMesh
	// KindSequence1D represents a paired index/value series blob.
	KindSequence1D
)

// Storage classifies how cells of a kind are held in the column's primary
// array.
type Storage uint8

const (
	// StorageFixed stores the value inline as a fixed-width cell.
	StorageFixed Storage = iota
	// StorageString stores the value inline as a variable-length string.
	StorageString
	// StorageRef stores a key referencing an out-of-line blob payload.
	StorageRef
)

// kindInfo is the static registry entry for one Kind.
type kindInfo struct {
	tag     string
	storage Storage
	stride  int // cell width in bytes, StorageFixed only
}

var kindTable = [...]kindInfo{
	KindBool:        {tag: "bool", storage: StorageFixed, stride: 1},
	KindInt:         {tag: "int", storage: StorageFixed, stride: 8},
	KindFloat:       {tag: "float", storage: StorageFixed, stride: 8},
	KindString:      {tag: "str", storage: StorageString},
	KindDateTime:    {tag: "datetime", storage: StorageFixed, stride: 8},
	KindCategory:    {tag: "category", storage: StorageFixed, stride: 4},
	KindWindow:      {tag: "window", storage: StorageFixed, stride: 8},
	KindBoundingBox: {tag: "bounding_box", storage: StorageFixed, stride: 16},
	KindEmbedding:   {tag: "embedding", storage: StorageRef},
	KindArray:       {tag: "array", storage: StorageRef},
	KindImage:       {tag: "image", storage: StorageRef},
	KindAudio:       {tag: "audio", storage: StorageRef},
	KindVideo:       {tag: "video", storage: StorageRef},
	KindMesh:        {tag: "mesh", storage: StorageRef},
	KindSequence1D:  {tag: "sequence1d", storage: StorageRef},
}

// Tag returns the stable string tag persisted in the store file manifest.
func (k Kind) Tag() string {
	if int(k) < len(kindTable) && kindTable[k].tag != "" {
		return kindTable[k].tag
	}
	return "invalid"
}

// String returns the string representation of the Kind.
func (k Kind) String() string { return k.Tag() }

// Storage returns the storage class of the kind.
func (k Kind) Storage() Storage {
	if int(k) < len(kindTable) {
		return kindTable[k].storage
	}
	return StorageFixed
}

// Stride returns the fixed cell width in bytes for StorageFixed kinds and 0
// otherwise.
func (k Kind) Stride() int {
	if int(k) < len(kindTable) {
		return kindTable[k].stride
	}
	return 0
}

// Simple reports whether values of the kind are stored inline in the column's
// primary array (no blob indirection).
func (k Kind) Simple() bool { return k.Storage() != StorageRef }

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k > KindInvalid && int(k) < len(kindTable)
}

// KindFromTag resolves a manifest type tag back to its Kind.
func KindFromTag(tag string) (Kind, error) {
	for k, info := range kindTable {
		if info.tag == tag && Kind(k) != KindInvalid {
			return Kind(k), nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown column type tag %q", tag)
}

// Kinds returns all valid kinds in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindTable)-1)
	for k := range kindTable {
		if Kind(k).Valid() {
			out = append(out, Kind(k))
		}
	}
	return out
}

package column

import (
	"math"
	"time"

	"github.com/hupe1980/coldb/media"
)

// Value is the typed union carried through the public API. Exactly one set
// of fields is meaningful, selected by Kind; the zero Value is the null
// value.
//
// NOTE: Value is also what the per-kind codecs consume and produce; keep the
// representation stable.
type Value struct {
	Kind Kind

	B   bool
	I64 int64
	F64 float64
	S   string
	TS  time.Time
	// V carries small fixed-length vectors: window (2), bounding box (4),
	// embedding (n).
	V   []float32
	A   *NDArray
	Raw []byte
	Img *media.Image
	Aud *media.Audio
	Msh *media.Mesh
	Seq *media.Sequence1D

	// LookupKey is an optional caller-supplied identity for ref-column
	// values. On a lookup-enabled column a repeated key reuses the already
	// stored blob.
	LookupKey string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBool, B: v} }

// Int returns an integer Value.
func Int(v int64) Value { return Value{Kind: KindInt, I64: v} }

// Float returns a float Value.
func Float(v float64) Value { return Value{Kind: KindFloat, F64: v} }

// Str returns a string Value.
func Str(v string) Value { return Value{Kind: KindString, S: v} }

// DateTime returns a timestamp Value.
func DateTime(v time.Time) Value { return Value{Kind: KindDateTime, TS: v} }

// Category returns a categorical Value addressed by name.
func Category(name string) Value { return Value{Kind: KindCategory, S: name} }

// Window returns a (start, end) window Value.
func Window(start, end float32) Value {
	return Value{Kind: KindWindow, V: []float32{start, end}}
}

// BBox returns an (x1, y1, x2, y2) bounding box Value.
func BBox(x1, y1, x2, y2 float32) Value {
	return Value{Kind: KindBoundingBox, V: []float32{x1, y1, x2, y2}}
}

// Embedding returns a fixed-length vector Value.
func Embedding(v []float32) Value { return Value{Kind: KindEmbedding, V: v} }

// Array returns an n-dimensional array Value.
func Array(a *NDArray) Value { return Value{Kind: KindArray, A: a} }

// Image returns an image Value.
func Image(img *media.Image) Value { return Value{Kind: KindImage, Img: img} }

// Audio returns an audio Value.
func Audio(a *media.Audio) Value { return Value{Kind: KindAudio, Aud: a} }

// Video returns an opaque video Value.
func Video(raw []byte) Value { return Value{Kind: KindVideo, Raw: raw} }

// Mesh returns a mesh Value.
func Mesh(m *media.Mesh) Value { return Value{Kind: KindMesh, Msh: m} }

// Sequence returns a 1-D sequence Value.
func Sequence(s *media.Sequence1D) Value { return Value{Kind: KindSequence1D, Seq: s} }

// WithKey returns a copy of the value tagged with a caller-supplied lookup
// key.
func (v Value) WithKey(key string) Value {
	v.LookupKey = key
	return v
}

// IsNull reports whether the value is the null value.
func (v Value) IsNull() bool { return v.Kind == KindInvalid }

// Equal reports semantic equality between two values. Media values compare
// observationally; NaN floats compare equal to NaN.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindInvalid:
		return true
	case KindBool:
		return v.B == other.B
	case KindInt:
		return v.I64 == other.I64
	case KindFloat:
		if math.IsNaN(v.F64) && math.IsNaN(other.F64) {
			return true
		}
		return v.F64 == other.F64
	case KindString, KindCategory:
		return v.S == other.S
	case KindDateTime:
		return v.TS.Equal(other.TS)
	case KindWindow, KindBoundingBox, KindEmbedding:
		if len(v.V) != len(other.V) {
			return false
		}
		for i := range v.V {
			a, b := v.V[i], other.V[i]
			if a != b && !(math.IsNaN(float64(a)) && math.IsNaN(float64(b))) {
				return false
			}
		}
		return true
	case KindArray:
		return v.A.Equal(other.A)
	case KindImage:
		return v.Img.Equal(other.Img)
	case KindAudio:
		return v.Aud.Equal(other.Aud)
	case KindVideo:
		if len(v.Raw) != len(other.Raw) {
			return false
		}
		for i := range v.Raw {
			if v.Raw[i] != other.Raw[i] {
				return false
			}
		}
		return true
	case KindMesh:
		return v.Msh.Equal(other.Msh)
	case KindSequence1D:
		return v.Seq.Equal(other.Seq)
	default:
		return false
	}
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	out := v
	if v.V != nil {
		out.V = append([]float32(nil), v.V...)
	}
	if v.A != nil {
		out.A = v.A.Clone()
	}
	if v.Raw != nil {
		out.Raw = append([]byte(nil), v.Raw...)
	}
	return out
}

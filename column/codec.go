package column

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/coldb/media"
)

// Cell is the storable inline form of one value. For StorageFixed kinds
// Fixed holds exactly Kind.Stride() bytes; for StorageString kinds Str holds
// the value; for StorageRef kinds Str holds the blob key (assigned by the
// store) and Null marks an absent reference.
type Cell struct {
	Null  bool
	Fixed []byte
	Str   string
}

// Encode translates a native value into its storable form. For ref kinds the
// returned payload is the opaque blob body (uncompressed) and the cell key is
// left for the store to assign. Encode may pin the column's dtype/shape on
// the first array-like write.
//
// A null input encodes to the column's configured default if the column is
// optional and fails with InvalidDTypeError otherwise.
func Encode(a *Attrs, v Value) (Cell, []byte, error) {
	if v.IsNull() {
		if !a.Optional {
			return Cell{}, nil, &InvalidDTypeError{Column: a.Name, Want: a.Kind, Got: "null"}
		}
		return encodeEmpty(a)
	}
	switch a.Kind {
	case KindBool:
		if v.Kind != KindBool {
			return Cell{}, nil, kindMismatch(a, v)
		}
		b := []byte{0}
		if v.B {
			b[0] = 1
		}
		return Cell{Fixed: b}, nil, nil

	case KindInt:
		if v.Kind != KindInt {
			return Cell{}, nil, kindMismatch(a, v)
		}
		return Cell{Fixed: binary.LittleEndian.AppendUint64(nil, uint64(v.I64))}, nil, nil

	case KindFloat:
		// An integer literal is acceptable where a float is declared.
		var f float64
		switch v.Kind {
		case KindFloat:
			f = v.F64
		case KindInt:
			f = float64(v.I64)
		default:
			return Cell{}, nil, kindMismatch(a, v)
		}
		return Cell{Fixed: binary.LittleEndian.AppendUint64(nil, math.Float64bits(f))}, nil, nil

	case KindDateTime:
		if v.Kind != KindDateTime {
			return Cell{}, nil, kindMismatch(a, v)
		}
		return Cell{Fixed: binary.LittleEndian.AppendUint64(nil, uint64(v.TS.UnixNano()))}, nil, nil

	case KindString:
		if v.Kind != KindString {
			return Cell{}, nil, kindMismatch(a, v)
		}
		return Cell{Str: v.S}, nil, nil

	case KindCategory:
		if v.Kind != KindCategory && v.Kind != KindString {
			return Cell{}, nil, kindMismatch(a, v)
		}
		if v.S == "" {
			return Cell{Fixed: encodeCode(AbsentCode)}, nil, nil
		}
		code, ok := a.Categories.Code(v.S)
		if !ok {
			return Cell{}, nil, &InvalidValueError{Column: a.Name, Reason: fmt.Sprintf("unknown category %q", v.S)}
		}
		return Cell{Fixed: encodeCode(code)}, nil, nil

	case KindWindow:
		if v.Kind != KindWindow {
			return Cell{}, nil, kindMismatch(a, v)
		}
		if len(v.V) != 2 {
			return Cell{}, nil, &InvalidShapeError{Column: a.Name, Want: "(2,)", Got: shapeOf(len(v.V))}
		}
		return Cell{Fixed: encodeVec(v.V)}, nil, nil

	case KindBoundingBox:
		if v.Kind != KindBoundingBox {
			return Cell{}, nil, kindMismatch(a, v)
		}
		if len(v.V) != 4 {
			return Cell{}, nil, &InvalidShapeError{Column: a.Name, Want: "(4,)", Got: shapeOf(len(v.V))}
		}
		return Cell{Fixed: encodeVec(v.V)}, nil, nil

	case KindEmbedding:
		if v.Kind != KindEmbedding {
			return Cell{}, nil, kindMismatch(a, v)
		}
		if len(v.V) == 0 {
			return Cell{}, nil, &InvalidShapeError{Column: a.Name, Want: "(n,), n>0", Got: "(0,)"}
		}
		// The first written value pins the vector length.
		if len(a.ShapePin) == 0 {
			a.ShapePin = []int{len(v.V)}
			a.DTypePin = DTypeFloat32
		} else if a.ShapePin[0] != len(v.V) {
			return Cell{}, nil, &InvalidShapeError{Column: a.Name, Want: shapeOf(a.ShapePin[0]), Got: shapeOf(len(v.V))}
		}
		payload := encodeArrayPayload(NewFloat32Array(v.V))
		return Cell{}, payload, nil

	case KindArray:
		if v.Kind != KindArray {
			return Cell{}, nil, kindMismatch(a, v)
		}
		if err := v.A.Validate(); err != nil {
			return Cell{}, nil, &InvalidValueError{Column: a.Name, Reason: err.Error()}
		}
		// The first written value pins the element dtype; the shape stays
		// free unless a pin was declared at creation.
		if a.DTypePin == DTypeInvalid {
			a.DTypePin = v.A.DType
		} else if a.DTypePin != v.A.DType {
			return Cell{}, nil, &InvalidValueError{Column: a.Name, Reason: fmt.Sprintf("dtype %s not representable by pinned dtype %s", v.A.DType, a.DTypePin)}
		}
		if len(a.ShapePin) > 0 && !shapeEqual(a.ShapePin, v.A.Shape) {
			return Cell{}, nil, &InvalidShapeError{Column: a.Name, Want: fmt.Sprint(a.ShapePin), Got: fmt.Sprint(v.A.Shape)}
		}
		return Cell{}, encodeArrayPayload(v.A), nil

	case KindImage:
		if v.Kind != KindImage || v.Img == nil {
			return Cell{}, nil, kindMismatch(a, v)
		}
		payload, err := v.Img.EncodePNG()
		if err != nil {
			return Cell{}, nil, &InvalidValueError{Column: a.Name, Reason: err.Error()}
		}
		return Cell{}, payload, nil

	case KindAudio:
		if v.Kind != KindAudio || v.Aud == nil {
			return Cell{}, nil, kindMismatch(a, v)
		}
		payload, err := v.Aud.EncodeWAV()
		if err != nil {
			return Cell{}, nil, &InvalidValueError{Column: a.Name, Reason: err.Error()}
		}
		return Cell{}, payload, nil

	case KindVideo:
		if v.Kind != KindVideo {
			return Cell{}, nil, kindMismatch(a, v)
		}
		if len(v.Raw) == 0 {
			return Cell{}, nil, &InvalidValueError{Column: a.Name, Reason: "empty video payload"}
		}
		return Cell{}, v.Raw, nil

	case KindMesh:
		if v.Kind != KindMesh || v.Msh == nil {
			return Cell{}, nil, kindMismatch(a, v)
		}
		payload, err := v.Msh.EncodeGLB()
		if err != nil {
			return Cell{}, nil, &InvalidValueError{Column: a.Name, Reason: err.Error()}
		}
		return Cell{}, payload, nil

	case KindSequence1D:
		if v.Kind != KindSequence1D || v.Seq == nil {
			return Cell{}, nil, kindMismatch(a, v)
		}
		payload, err := v.Seq.Encode()
		if err != nil {
			return Cell{}, nil, &InvalidValueError{Column: a.Name, Reason: err.Error()}
		}
		return Cell{}, payload, nil

	default:
		return Cell{}, nil, &InvalidDTypeError{Column: a.Name, Want: a.Kind, Got: v.Kind.String()}
	}
}

// encodeEmpty produces the storable form of "no value" for an optional
// column: the configured default if set, otherwise the kind's natural empty
// representation.
func encodeEmpty(a *Attrs) (Cell, []byte, error) {
	if !a.Default.IsNull() {
		return Encode(a, a.Default)
	}
	switch {
	case a.Kind == KindFloat:
		return Cell{Fixed: binary.LittleEndian.AppendUint64(nil, math.Float64bits(math.NaN()))}, nil, nil
	case a.Kind == KindString:
		return Cell{Str: ""}, nil, nil
	case a.Kind == KindCategory:
		return Cell{Fixed: encodeCode(AbsentCode)}, nil, nil
	case a.Kind.Storage() == StorageRef:
		return Cell{Null: true}, nil, nil
	default:
		// Column creation requires a default for these kinds; reaching this
		// point means the attribute record is inconsistent.
		return Cell{}, nil, &InvalidDTypeError{Column: a.Name, Want: a.Kind, Got: "null (no default configured)"}
	}
}

// Decode translates a storable cell (and, for ref kinds, its blob payload)
// back into a native value.
func Decode(a *Attrs, c Cell, payload []byte) (Value, error) {
	if c.Null {
		return Null(), nil
	}
	switch a.Kind {
	case KindBool:
		return Bool(c.Fixed[0] != 0), nil
	case KindInt:
		return Int(int64(binary.LittleEndian.Uint64(c.Fixed))), nil
	case KindFloat:
		return Float(math.Float64frombits(binary.LittleEndian.Uint64(c.Fixed))), nil
	case KindDateTime:
		return DateTime(time.Unix(0, int64(binary.LittleEndian.Uint64(c.Fixed))).UTC()), nil
	case KindString:
		return Str(c.Str), nil
	case KindCategory:
		code := int32(binary.LittleEndian.Uint32(c.Fixed))
		if code == AbsentCode {
			return Null(), nil
		}
		name, ok := a.Categories.Name(code)
		if !ok {
			return Null(), &InvalidValueError{Column: a.Name, Reason: fmt.Sprintf("category code %d has no name", code)}
		}
		return Category(name), nil
	case KindWindow:
		v := decodeVec(c.Fixed, 2)
		return Value{Kind: KindWindow, V: v}, nil
	case KindBoundingBox:
		v := decodeVec(c.Fixed, 4)
		return Value{Kind: KindBoundingBox, V: v}, nil
	case KindEmbedding:
		arr, err := decodeArrayPayload(payload)
		if err != nil {
			return Null(), &InvalidValueError{Column: a.Name, Reason: err.Error()}
		}
		return Embedding(arr.Float32s()), nil
	case KindArray:
		arr, err := decodeArrayPayload(payload)
		if err != nil {
			return Null(), &InvalidValueError{Column: a.Name, Reason: err.Error()}
		}
		return Array(arr), nil
	case KindImage:
		img, err := media.DecodePNG(payload)
		if err != nil {
			return Null(), &InvalidValueError{Column: a.Name, Reason: err.Error()}
		}
		return Image(img), nil
	case KindAudio:
		aud, err := media.DecodeWAV(payload)
		if err != nil {
			return Null(), &InvalidValueError{Column: a.Name, Reason: err.Error()}
		}
		return Audio(aud), nil
	case KindVideo:
		return Video(append([]byte(nil), payload...)), nil
	case KindMesh:
		msh, err := media.DecodeGLB(payload)
		if err != nil {
			return Null(), &InvalidValueError{Column: a.Name, Reason: err.Error()}
		}
		return Mesh(msh), nil
	case KindSequence1D:
		seq, err := media.DecodeSequence1D(payload)
		if err != nil {
			return Null(), &InvalidValueError{Column: a.Name, Reason: err.Error()}
		}
		return Sequence(seq), nil
	default:
		return Null(), &InvalidDTypeError{Column: a.Name, Want: a.Kind, Got: "unknown"}
	}
}

func kindMismatch(a *Attrs, v Value) error {
	return &InvalidDTypeError{Column: a.Name, Want: a.Kind, Got: v.Kind.String()}
}

func encodeCode(code int32) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(code))
}

func encodeVec(v []float32) []byte {
	out := make([]byte, 0, len(v)*4)
	for _, f := range v {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}

func decodeVec(b []byte, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func shapeOf(n int) string { return fmt.Sprintf("(%d,)", n) }

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// encodeArrayPayload frames an NDArray as a self-describing blob body:
// u8 dtype, u8 ndim, ndim x u32 dims, raw little-endian data.
func encodeArrayPayload(arr *NDArray) []byte {
	out := make([]byte, 0, 2+len(arr.Shape)*4+len(arr.Data))
	out = append(out, byte(arr.DType), byte(len(arr.Shape)))
	for _, d := range arr.Shape {
		out = binary.LittleEndian.AppendUint32(out, uint32(d))
	}
	return append(out, arr.Data...)
}

func decodeArrayPayload(payload []byte) (*NDArray, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("array payload too short (%d bytes)", len(payload))
	}
	arr := &NDArray{DType: DType(payload[0])}
	ndim := int(payload[1])
	off := 2
	if len(payload) < off+ndim*4 {
		return nil, fmt.Errorf("array payload truncated in shape")
	}
	arr.Shape = make([]int, ndim)
	for i := range arr.Shape {
		arr.Shape[i] = int(binary.LittleEndian.Uint32(payload[off:]))
		off += 4
	}
	arr.Data = append([]byte(nil), payload[off:]...)
	if err := arr.Validate(); err != nil {
		return nil, err
	}
	return arr, nil
}

package column

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// DType identifies the element type of an NDArray.
type DType uint8

const (
	// DTypeInvalid represents an unset dtype.
	DTypeInvalid DType = iota
	// DTypeBool represents a boolean element.
	DTypeBool
	// DTypeInt8 represents an int8 element.
	DTypeInt8
	// DTypeInt16 represents an int16 element.
	DTypeInt16
	// DTypeInt32 represents an int32 element.
	DTypeInt32
	// DTypeInt64 represents an int64 element.
	DTypeInt64
	// DTypeUint8 represents a uint8 element.
	DTypeUint8
	// DTypeUint16 represents a uint16 element.
	DTypeUint16
	// DTypeUint32 represents a uint32 element.
	DTypeUint32
	// DTypeUint64 represents a uint64 element.
	DTypeUint64
	// DTypeFloat32 represents a float32 element.
	DTypeFloat32
	// DTypeFloat64 represents a float64 element.
	DTypeFloat64
)

var dtypeNames = [...]string{
	DTypeInvalid: "",
	DTypeBool:    "bool",
	DTypeInt8:    "int8",
	DTypeInt16:   "int16",
	DTypeInt32:   "int32",
	DTypeInt64:   "int64",
	DTypeUint8:   "uint8",
	DTypeUint16:  "uint16",
	DTypeUint32:  "uint32",
	DTypeUint64:  "uint64",
	DTypeFloat32: "float32",
	DTypeFloat64: "float64",
}

var dtypeSizes = [...]int{
	DTypeInvalid: 0,
	DTypeBool:    1,
	DTypeInt8:    1,
	DTypeInt16:   2,
	DTypeInt32:   4,
	DTypeInt64:   8,
	DTypeUint8:   1,
	DTypeUint16:  2,
	DTypeUint32:  4,
	DTypeUint64:  8,
	DTypeFloat32: 4,
	DTypeFloat64: 8,
}

// String returns the persisted name of the dtype.
func (t DType) String() string {
	if int(t) < len(dtypeNames) {
		return dtypeNames[t]
	}
	return "invalid"
}

// Size returns the element size in bytes.
func (t DType) Size() int {
	if int(t) < len(dtypeSizes) {
		return dtypeSizes[t]
	}
	return 0
}

// DTypeFromName resolves a persisted dtype name.
func DTypeFromName(name string) (DType, error) {
	for t, n := range dtypeNames {
		if n == name && DType(t) != DTypeInvalid {
			return DType(t), nil
		}
	}
	return DTypeInvalid, fmt.Errorf("unknown dtype %q", name)
}

// NDArray is an n-dimensional numeric array with a flat little-endian
// backing buffer. It is the native form of array-like column values.
type NDArray struct {
	DType DType
	Shape []int
	Data  []byte
}

// NewFloat32Array builds a 1-D float32 NDArray from vals.
func NewFloat32Array(vals []float32) *NDArray {
	data := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return &NDArray{DType: DTypeFloat32, Shape: []int{len(vals)}, Data: data}
}

// NewFloat64Array builds a 1-D float64 NDArray from vals.
func NewFloat64Array(vals []float64) *NDArray {
	data := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return &NDArray{DType: DTypeFloat64, Shape: []int{len(vals)}, Data: data}
}

// NewInt64Array builds a 1-D int64 NDArray from vals.
func NewInt64Array(vals []int64) *NDArray {
	data := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(data[i*8:], uint64(v))
	}
	return &NDArray{DType: DTypeInt64, Shape: []int{len(vals)}, Data: data}
}

// NewUint8Array builds a 1-D uint8 NDArray from vals.
func NewUint8Array(vals []byte) *NDArray {
	data := make([]byte, len(vals))
	copy(data, vals)
	return &NDArray{DType: DTypeUint8, Shape: []int{len(vals)}, Data: data}
}

// Len returns the total number of elements.
func (a *NDArray) Len() int {
	if a == nil {
		return 0
	}
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Validate checks that the backing buffer matches dtype and shape.
func (a *NDArray) Validate() error {
	if a == nil {
		return fmt.Errorf("nil array")
	}
	if a.DType.Size() == 0 {
		return fmt.Errorf("array has invalid dtype")
	}
	for _, d := range a.Shape {
		if d < 0 {
			return fmt.Errorf("array has negative dimension %d", d)
		}
	}
	if want := a.Len() * a.DType.Size(); len(a.Data) != want {
		return fmt.Errorf("array data is %d bytes, shape/dtype require %d", len(a.Data), want)
	}
	return nil
}

// Float32s decodes the buffer as float32 elements.
func (a *NDArray) Float32s() []float32 {
	if a == nil || a.DType != DTypeFloat32 {
		return nil
	}
	out := make([]float32, a.Len())
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(a.Data[i*4:]))
	}
	return out
}

// Float64s decodes the buffer as float64 elements.
func (a *NDArray) Float64s() []float64 {
	if a == nil || a.DType != DTypeFloat64 {
		return nil
	}
	out := make([]float64, a.Len())
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(a.Data[i*8:]))
	}
	return out
}

// Int64s decodes the buffer as int64 elements.
func (a *NDArray) Int64s() []int64 {
	if a == nil || a.DType != DTypeInt64 {
		return nil
	}
	out := make([]int64, a.Len())
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(a.Data[i*8:]))
	}
	return out
}

// Clone returns a deep copy of the array.
func (a *NDArray) Clone() *NDArray {
	if a == nil {
		return nil
	}
	return &NDArray{
		DType: a.DType,
		Shape: append([]int(nil), a.Shape...),
		Data:  append([]byte(nil), a.Data...),
	}
}

// Equal reports whether two arrays have identical dtype, shape and data.
func (a *NDArray) Equal(b *NDArray) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.DType != b.DType || len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return bytes.Equal(a.Data, b.Data)
}

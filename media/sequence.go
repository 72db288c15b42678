package media

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Sequence1D is a decoded one-dimensional series of (index, value) pairs.
type Sequence1D struct {
	Index []float32
	Value []float32
}

// seqMagic marks a sequence payload ("SQ1\0" little-endian).
const seqMagic = 0x00315153

// NewSequence1D builds a Sequence1D and validates pairing.
func NewSequence1D(index, value []float32) (*Sequence1D, error) {
	if len(index) != len(value) {
		return nil, fmt.Errorf("%w: %d index points vs %d values", ErrMalformedPayload, len(index), len(value))
	}
	return &Sequence1D{Index: index, Value: value}, nil
}

// NewSequence1DFromValues builds a sequence with an implicit 0..n-1 index.
func NewSequence1DFromValues(value []float32) *Sequence1D {
	index := make([]float32, len(value))
	for i := range index {
		index[i] = float32(i)
	}
	return &Sequence1D{Index: index, Value: value}
}

// Encode serializes the sequence as paired little-endian float32 arrays.
func (s *Sequence1D) Encode() ([]byte, error) {
	out := make([]byte, 0, 8+len(s.Index)*8)
	out = binary.LittleEndian.AppendUint32(out, seqMagic)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(s.Index)))
	for _, v := range s.Index {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	for _, v := range s.Value {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out, nil
}

// DecodeSequence1D parses a sequence payload.
func DecodeSequence1D(payload []byte) (*Sequence1D, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(payload) < 8 || binary.LittleEndian.Uint32(payload) != seqMagic {
		return nil, fmt.Errorf("%w: missing sequence magic", ErrMalformedPayload)
	}
	n := int(binary.LittleEndian.Uint32(payload[4:]))
	if len(payload) != 8+n*8 {
		return nil, fmt.Errorf("%w: %d bytes for %d points", ErrMalformedPayload, len(payload), n)
	}
	seq := &Sequence1D{
		Index: make([]float32, n),
		Value: make([]float32, n),
	}
	off := 8
	for i := 0; i < n; i++ {
		seq.Index[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[off:]))
		off += 4
	}
	for i := 0; i < n; i++ {
		seq.Value[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[off:]))
		off += 4
	}
	return seq, nil
}

// Equal reports observational equality (same index and value points).
func (s *Sequence1D) Equal(other *Sequence1D) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Index) != len(other.Index) {
		return false
	}
	for i := range s.Index {
		if s.Index[i] != other.Index[i] || s.Value[i] != other.Value[i] {
			return false
		}
	}
	return true
}

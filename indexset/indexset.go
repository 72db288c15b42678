// Package indexset normalizes the supported index selector forms (single
// index, slice, boolean mask, fancy integer list) into unique ascending
// positional sets over a column of known length.
//
// The normalization exists because the underlying storage primitive cannot do
// random non-monotonic access: every read or write is planned against the
// unique ascending set, and reads gather results back into selector order.
package indexset

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// InvalidIndexError indicates an out-of-range index, a malformed mask or
// slice, or non-unique write positions.
type InvalidIndexError struct {
	Reason string
}

func (e *InvalidIndexError) Error() string {
	return "invalid index: " + e.Reason
}

func errf(format string, args ...any) error {
	return &InvalidIndexError{Reason: fmt.Sprintf(format, args...)}
}

// Selector is the closed set of index forms accepted by the row engine.
type Selector interface {
	isSelector()
}

// At selects a single row. Negative values count from the end.
type At int

func (At) isSelector() {}

// Span selects a half-open slice with standard slice semantics over the
// column length. Nil bounds take the step-dependent defaults; Step 0 means 1
// and negative steps walk backwards.
type Span struct {
	Start *int
	Stop  *int
	Step  int
}

func (Span) isSelector() {}

// All returns a Span covering every row.
func All() Span { return Span{} }

// Head builds a Span equivalent to [:stop].
func Head(stop int) Span { return Span{Stop: &stop} }

// Tail builds a Span equivalent to [start:].
func Tail(start int) Span { return Span{Start: &start} }

// Between builds a Span equivalent to [start:stop].
func Between(start, stop int) Span { return Span{Start: &start, Stop: &stop} }

// Mask selects the true positions of a boolean mask. The mask length must
// equal the column length.
type Mask []bool

func (Mask) isSelector() {}

// List selects arbitrary positions. Negative values count from the end.
type List []int

func (List) isSelector() {}

// Set is a normalized index set. Unique holds the distinct positions in
// ascending order; Order holds the absolute positions in selector order and
// may contain repeats for read access.
type Set struct {
	Unique []uint32
	Order  []uint32
}

// Len returns the number of selected positions in selector order.
func (s *Set) Len() int { return len(s.Order) }

// Empty reports whether the set selects nothing.
func (s *Set) Empty() bool { return len(s.Order) == 0 }

// HasDuplicates reports whether the selector addressed a position more than
// once.
func (s *Set) HasDuplicates() bool { return len(s.Order) != len(s.Unique) }

// Bitmap returns the unique positions as a roaring bitmap.
func (s *Set) Bitmap() *roaring.Bitmap {
	return roaring.BitmapOf(s.Unique...)
}

// NormalizeRead resolves a selector against a column of the given length.
// Duplicate positions are permitted and serviced by reading each unique
// position once and gathering results back into selector order.
func NormalizeRead(sel Selector, length int) (*Set, error) {
	return normalize(sel, length, false)
}

// NormalizeWrite resolves a selector for writing. Duplicate positions are
// rejected to avoid last-write-wins ambiguity.
func NormalizeWrite(sel Selector, length int) (*Set, error) {
	return normalize(sel, length, true)
}

// NormalizeAt resolves a single row index, applying sign normalization and
// bounds validation.
func NormalizeAt(i, length int) (uint32, error) {
	pos := i
	if pos < 0 {
		pos += length
	}
	if pos < 0 || pos >= length {
		return 0, errf("row %d out of range for length %d", i, length)
	}
	return uint32(pos), nil
}

func normalize(sel Selector, length int, write bool) (*Set, error) {
	if length < 0 {
		return nil, errf("negative length %d", length)
	}
	var order []uint32
	switch s := sel.(type) {
	case At:
		pos, err := NormalizeAt(int(s), length)
		if err != nil {
			return nil, err
		}
		order = []uint32{pos}
	case Span:
		var err error
		if order, err = expandSpan(s, length); err != nil {
			return nil, err
		}
	case Mask:
		if len(s) != length {
			return nil, errf("boolean mask has length %d, want %d", len(s), length)
		}
		for i, b := range s {
			if b {
				order = append(order, uint32(i))
			}
		}
	case List:
		order = make([]uint32, 0, len(s))
		for _, i := range s {
			pos, err := NormalizeAt(i, length)
			if err != nil {
				return nil, err
			}
			order = append(order, pos)
		}
	default:
		return nil, errf("unsupported selector type %T", sel)
	}

	bm := roaring.New()
	bm.AddMany(order)
	set := &Set{
		Unique: bm.ToArray(),
		Order:  order,
	}
	if write && set.HasDuplicates() {
		return nil, errf("indices should be unique")
	}
	return set, nil
}

// expandSpan resolves a Span exactly as standard slice semantics over the
// length, including negative steps.
func expandSpan(s Span, length int) ([]uint32, error) {
	step := s.Step
	if step == 0 {
		step = 1
	}

	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	resolve := func(p *int, def int, lo, hi int) int {
		if p == nil {
			return def
		}
		v := *p
		if v < 0 {
			v += length
		}
		return clamp(v, lo, hi)
	}

	var start, stop int
	if step > 0 {
		start = resolve(s.Start, 0, 0, length)
		stop = resolve(s.Stop, length, 0, length)
	} else {
		start = resolve(s.Start, length-1, -1, length-1)
		stop = resolve(s.Stop, -1, -1, length-1)
	}

	var out []uint32
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, uint32(i))
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, uint32(i))
		}
	}
	return out, nil
}

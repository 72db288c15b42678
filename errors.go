package coldb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/coldb/column"
	"github.com/hupe1980/coldb/indexset"
	"github.com/hupe1980/coldb/persistence"
)

var (
	// ErrClosedDataset is returned for any operation on a closed handle.
	ErrClosedDataset = errors.New("dataset is closed")

	// ErrReadOnlyDataset is returned for mutating calls on a dataset opened
	// in read mode.
	ErrReadOnlyDataset = errors.New("dataset is read-only")
)

// Errors raised by the lower layers surface unchanged; the aliases keep the
// full taxonomy addressable from the root package.
type (
	// InvalidIndexError indicates an out-of-range row index, non-unique
	// write indices, or a malformed slice/mask.
	InvalidIndexError = indexset.InvalidIndexError

	// InvalidDTypeError indicates a value incompatible with the column's
	// declared kind, or a null value given to a non-optional column.
	InvalidDTypeError = column.InvalidDTypeError

	// InvalidValueError indicates a value that is not convertible, e.g. an
	// unknown category name.
	InvalidValueError = column.InvalidValueError

	// InvalidShapeError indicates a wrong-shaped array, window, bounding box
	// or embedding value, or a length mismatch between a value set and its
	// target index set.
	InvalidShapeError = column.InvalidShapeError

	// InvalidAttributeError indicates a column attribute validation failure.
	InvalidAttributeError = column.InvalidAttributeError

	// ChecksumMismatchError indicates store file corruption detected on
	// open.
	ChecksumMismatchError = persistence.ChecksumMismatchError
)

// InvalidModeError indicates an unrecognized open mode.
type InvalidModeError struct {
	Mode Mode
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid open mode %q", string(e.Mode))
}

// ColumnExistsError indicates an append or rename targeting a name that is
// already taken.
type ColumnExistsError struct {
	Name string
}

func (e *ColumnExistsError) Error() string {
	return fmt.Sprintf("column %q already exists", e.Name)
}

// ColumnNotExistsError indicates access to a missing column.
type ColumnNotExistsError struct {
	Name string
}

func (e *ColumnNotExistsError) Error() string {
	return fmt.Sprintf("column %q does not exist", e.Name)
}

// InvalidColumnNameError indicates a reserved or malformed column name.
type InvalidColumnNameError struct {
	Name   string
	Reason string
}

func (e *InvalidColumnNameError) Error() string {
	return fmt.Sprintf("invalid column name %q: %s", e.Name, e.Reason)
}

// InconsistentDatasetError indicates an on-open schema self-check failure,
// e.g. a reserved bookkeeping column persisted with the wrong type.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type InconsistentDatasetError struct {
	Reason string
	cause  error
}

func (e *InconsistentDatasetError) Error() string {
	return fmt.Sprintf("inconsistent dataset: %s", e.Reason)
}

func (e *InconsistentDatasetError) Unwrap() error { return e.cause }

// GenerationMismatchError signals that a cached generation id no longer
// matches the dataset, invalidating any values cached under it.
type GenerationMismatchError struct {
	Expected uint64
	Actual   uint64
}

func (e *GenerationMismatchError) Error() string {
	return fmt.Sprintf("generation mismatch: expected %d, got %d", e.Expected, e.Actual)
}

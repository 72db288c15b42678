package column

import "fmt"

// InvalidDTypeError indicates a value incompatible with the column's declared
// kind, or a null value given to a non-optional column.
type InvalidDTypeError struct {
	Column string
	Want   Kind
	Got    string
}

func (e *InvalidDTypeError) Error() string {
	return fmt.Sprintf("invalid dtype for column %q: want %s, got %s", e.Column, e.Want, e.Got)
}

// InvalidValueError indicates a value that is the right kind but not
// representable, e.g. an unknown category name.
type InvalidValueError struct {
	Column string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for column %q: %s", e.Column, e.Reason)
}

// InvalidShapeError indicates a wrong-shaped array, window, bounding box or
// embedding value.
type InvalidShapeError struct {
	Column string
	Want   string
	Got    string
}

func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("invalid shape for column %q: want %s, got %s", e.Column, e.Want, e.Got)
}

// InvalidAttributeError indicates an attribute validation failure.
type InvalidAttributeError struct {
	Column    string
	Attribute string
	Reason    string
}

func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("invalid attribute %q for column %q: %s", e.Attribute, e.Column, e.Reason)
}

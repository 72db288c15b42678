// Package frame provides a column-major in-memory table used to move data in
// and out of a store in bulk, plus delimited-text import and export.
package frame

import (
	"fmt"

	"github.com/hupe1980/coldb/column"
)

// Column is one named, typed value vector.
type Column struct {
	Name   string
	Kind   column.Kind
	Values []column.Value
}

// Frame is a column-major table. All columns share one length.
type Frame struct {
	cols  []Column
	index map[string]int
}

// New returns an empty frame.
func New() *Frame {
	return &Frame{index: make(map[string]int)}
}

// AddColumn appends a column. Every column after the first must match the
// frame's length.
func (f *Frame) AddColumn(name string, kind column.Kind, values []column.Value) error {
	if name == "" {
		return fmt.Errorf("frame: empty column name")
	}
	if !kind.Valid() {
		return fmt.Errorf("frame: column %q: invalid kind", name)
	}
	if _, ok := f.index[name]; ok {
		return fmt.Errorf("frame: column %q already exists", name)
	}
	if len(f.cols) > 0 && len(values) != f.NumRows() {
		return fmt.Errorf("frame: column %q has %d values, frame has %d rows", name, len(values), f.NumRows())
	}
	f.index[name] = len(f.cols)
	f.cols = append(f.cols, Column{Name: name, Kind: kind, Values: values})
	return nil
}

// NumRows returns the frame length.
func (f *Frame) NumRows() int {
	if len(f.cols) == 0 {
		return 0
	}
	return len(f.cols[0].Values)
}

// NumColumns returns the number of columns.
func (f *Frame) NumColumns() int { return len(f.cols) }

// Names returns the column names in insertion order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns a column by name.
func (f *Frame) Column(name string) (Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return Column{}, false
	}
	return f.cols[i], true
}

// Columns returns all columns in insertion order.
func (f *Frame) Columns() []Column { return f.cols }

// Row gathers one row as a name-to-value map.
func (f *Frame) Row(i int) (map[string]column.Value, error) {
	if i < 0 || i >= f.NumRows() {
		return nil, fmt.Errorf("frame: row %d out of range [0, %d)", i, f.NumRows())
	}
	row := make(map[string]column.Value, len(f.cols))
	for _, c := range f.cols {
		row[c.Name] = c.Values[i]
	}
	return row, nil
}

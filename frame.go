package coldb

import (
	"fmt"
	"io"

	"github.com/hupe1980/coldb/column"
	"github.com/hupe1980/coldb/frame"
	"github.com/hupe1980/coldb/indexset"
)

// ExportFrame reads whole columns into a column-major frame. With no names
// given, every visible column is exported in display order.
func (d *Dataset) ExportFrame(columns ...string) (*frame.Frame, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}

	if len(columns) == 0 {
		var err error
		if columns, err = d.Keys(); err != nil {
			return nil, err
		}
	}

	f := frame.New()
	for _, name := range columns {
		cs, err := d.col(name)
		if err != nil {
			return nil, err
		}
		values, err := d.GetColumn(name, indexset.All())
		if err != nil {
			return nil, err
		}
		if err := f.AddColumn(name, cs.attrs.Kind, values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ImportFrame writes a frame into the dataset. Missing columns are appended
// with the frame's kind; existing columns are overwritten in full. Each
// column lands as its own mutation, so the generation id advances once per
// column. Columns pre-declared on an empty dataset are filled row-wise
// instead (one mutation per row), since a column write cannot grow the
// dataset.
func (d *Dataset) ImportFrame(f *frame.Frame) error {
	if err := d.ensureWritable(); err != nil {
		return err
	}
	if d.rows > 0 && f.NumRows() != d.rows {
		return fmt.Errorf("import frame: %d rows, dataset has %d", f.NumRows(), d.rows)
	}

	filled := make(map[string]bool)
	if d.rows == 0 && f.NumRows() > 0 {
		var existing []frame.Column
		for _, c := range f.Columns() {
			if d.HasColumn(c.Name) {
				existing = append(existing, c)
				filled[c.Name] = true
			}
		}
		for i := 0; i < f.NumRows() && len(existing) > 0; i++ {
			row := make(Row, len(existing))
			for _, c := range existing {
				row[c.Name] = c.Values[i]
			}
			if err := d.AppendRow(row); err != nil {
				return err
			}
		}
	}

	for _, c := range f.Columns() {
		var err error
		switch {
		case filled[c.Name]:
			continue
		case d.HasColumn(c.Name):
			err = d.SetColumn(c.Name, indexset.All(), c.Values)
		default:
			err = d.AppendColumn(c.Name, c.Kind, c.Values)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ExportCSV writes the selected columns as delimited text. Only scalar
// columns can be exported this way.
func (d *Dataset) ExportCSV(w io.Writer, columns ...string) error {
	f, err := d.ExportFrame(columns...)
	if err != nil {
		return err
	}
	return frame.WriteCSV(w, f)
}

// ImportCSV parses delimited text and writes it into the dataset. kinds
// maps column names to their kind; unmapped columns import as strings.
func (d *Dataset) ImportCSV(r io.Reader, kinds map[string]column.Kind) error {
	f, err := frame.ReadCSV(r, kinds)
	if err != nil {
		return err
	}
	return d.ImportFrame(f)
}

package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/hupe1980/coldb/column"
)

// Delimited text covers the scalar kinds only; vector and media kinds have
// no sensible cell rendering. Null values render as empty cells and empty
// cells parse back to null, so a string column cannot round-trip an empty
// string through CSV.

// WriteCSV writes the frame as delimited text with a header row.
func WriteCSV(w io.Writer, f *Frame) error {
	for _, c := range f.cols {
		if !csvKind(c.Kind) {
			return fmt.Errorf("frame: column %q: %s columns have no text rendering", c.Name, c.Kind)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return err
	}

	record := make([]string, len(f.cols))
	for i := 0; i < f.NumRows(); i++ {
		for j, c := range f.cols {
			record[j] = formatCell(c.Values[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses delimited text with a header row into a frame. kinds maps
// column names to their kind; unmapped columns parse as strings.
func ReadCSV(r io.Reader, kinds map[string]column.Kind) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("frame: read header: %w", err)
	}

	names := append([]string(nil), header...)
	colKinds := make([]column.Kind, len(names))
	for i, name := range names {
		kind, ok := kinds[name]
		if !ok {
			kind = column.KindString
		}
		if !csvKind(kind) {
			return nil, fmt.Errorf("frame: column %q: %s columns have no text rendering", name, kind)
		}
		colKinds[i] = kind
	}

	values := make([][]column.Value, len(names))
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("frame: read line %d: %w", line, err)
		}
		if len(record) != len(names) {
			return nil, fmt.Errorf("frame: line %d has %d fields, header has %d", line, len(record), len(names))
		}
		for i, field := range record {
			v, err := parseCell(colKinds[i], field)
			if err != nil {
				return nil, fmt.Errorf("frame: line %d, column %q: %w", line, names[i], err)
			}
			values[i] = append(values[i], v)
		}
	}

	f := New()
	for i, name := range names {
		if err := f.AddColumn(name, colKinds[i], values[i]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func csvKind(kind column.Kind) bool {
	switch kind {
	case column.KindBool, column.KindInt, column.KindFloat, column.KindString,
		column.KindDateTime, column.KindCategory:
		return true
	default:
		return false
	}
}

func formatCell(v column.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind {
	case column.KindBool:
		return strconv.FormatBool(v.B)
	case column.KindInt:
		return strconv.FormatInt(v.I64, 10)
	case column.KindFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case column.KindDateTime:
		return v.TS.Format(time.RFC3339Nano)
	default:
		return v.S
	}
}

func parseCell(kind column.Kind, field string) (column.Value, error) {
	if field == "" {
		return column.Null(), nil
	}
	switch kind {
	case column.KindBool:
		b, err := strconv.ParseBool(field)
		if err != nil {
			return column.Null(), err
		}
		return column.Bool(b), nil
	case column.KindInt:
		i, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return column.Null(), err
		}
		return column.Int(i), nil
	case column.KindFloat:
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return column.Null(), err
		}
		return column.Float(f), nil
	case column.KindDateTime:
		ts, err := time.Parse(time.RFC3339Nano, field)
		if err != nil {
			return column.Null(), err
		}
		return column.DateTime(ts), nil
	case column.KindCategory:
		return column.Category(field), nil
	default:
		return column.Str(field), nil
	}
}

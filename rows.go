package coldb

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/hupe1980/coldb/column"
	"github.com/hupe1980/coldb/indexset"
	"github.com/hupe1980/coldb/persistence"
	"github.com/hupe1980/coldb/wal"
)

// Row is one row's decoded values keyed by column name. It is a view
// constructed on read, never a stored entity.
type Row map[string]column.Value

// Len returns the row count.
func (d *Dataset) Len() (int, error) {
	if err := d.ensureOpen(); err != nil {
		return 0, err
	}
	return d.rows, nil
}

// Keys returns the visible column names ordered by their order attribute,
// declaration order breaking ties. Bookkeeping columns are excluded.
func (d *Dataset) Keys() ([]string, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(d.order))
	for _, name := range d.order {
		if !d.cols[name].attrs.Hidden {
			names = append(names, name)
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return d.cols[names[i]].attrs.Order < d.cols[names[j]].attrs.Order
	})
	return names, nil
}

// HasColumn reports whether a visible column with the given name exists.
func (d *Dataset) HasColumn(name string) bool {
	if d.ensureOpen() != nil {
		return false
	}
	cs, ok := d.cols[name]
	return ok && !cs.attrs.Hidden
}

// validateColumnName enforces the naming rules for caller-created columns.
func validateColumnName(name string) error {
	if name == "" {
		return &InvalidColumnNameError{Name: name, Reason: "empty name"}
	}
	if strings.ContainsAny(name, "/\\") {
		return &InvalidColumnNameError{Name: name, Reason: "path separator characters are not allowed"}
	}
	if name == ColLastEditedBy || name == ColLastEditedAt {
		return &InvalidColumnNameError{Name: name, Reason: "reserved name"}
	}
	return nil
}

// GetCell returns one decoded cell. Negative rows count from the end.
func (d *Dataset) GetCell(columnName string, row int) (column.Value, error) {
	if err := d.ensureOpen(); err != nil {
		return column.Null(), err
	}
	cs, err := d.col(columnName)
	if err != nil {
		return column.Null(), err
	}
	pos, err := indexset.NormalizeAt(row, d.rows)
	if err != nil {
		return column.Null(), err
	}
	return d.decodeCell(cs, cs.cellAt(pos))
}

// GetColumn returns the decoded values selected by sel, in selector order.
// A nil selector selects every row. Duplicate read positions are serviced by
// decoding each unique position once and gathering the results.
func (d *Dataset) GetColumn(columnName string, sel indexset.Selector) ([]column.Value, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	cs, err := d.col(columnName)
	if err != nil {
		return nil, err
	}
	if sel == nil {
		sel = indexset.All()
	}
	set, err := indexset.NormalizeRead(sel, d.rows)
	if err != nil {
		return nil, err
	}
	if set.Empty() {
		return nil, nil
	}

	decoded := make(map[uint32]column.Value, len(set.Unique))
	for _, pos := range set.Unique {
		v, err := d.decodeCell(cs, cs.cellAt(pos))
		if err != nil {
			return nil, err
		}
		decoded[pos] = v
	}

	out := make([]column.Value, len(set.Order))
	for i, pos := range set.Order {
		out[i] = decoded[pos]
	}
	return out, nil
}

// GetRow returns one decoded row, restricted to the given columns if any.
func (d *Dataset) GetRow(row int, columns ...string) (Row, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	pos, err := indexset.NormalizeAt(row, d.rows)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		if columns, err = d.Keys(); err != nil {
			return nil, err
		}
	}

	out := make(Row, len(columns))
	for _, name := range columns {
		cs, err := d.col(name)
		if err != nil {
			return nil, err
		}
		v, err := d.decodeCell(cs, cs.cellAt(pos))
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// SetCell writes one cell.
func (d *Dataset) SetCell(columnName string, row int, v column.Value) error {
	return d.mutate(wal.OpSetCell, "set cell", func(t *txn) error {
		if columnName == ColLastEditedBy || columnName == ColLastEditedAt {
			return &InvalidColumnNameError{Name: columnName, Reason: "reserved name"}
		}
		cs, err := d.col(columnName)
		if err != nil {
			return err
		}
		pos, err := indexset.NormalizeAt(row, d.rows)
		if err != nil {
			return err
		}

		w, err := d.encodeValue(t, columnName, cs, v)
		if err != nil {
			return err
		}

		old := cs.cellAt(pos)
		t.onRollback(func() { cs.setCellAt(pos, old) })
		cs.setCellAt(pos, w)

		d.touchRows(t, []uint32{pos})
		t.rec.Column = columnName
		t.rec.Rows = []uint32{pos}
		t.rec.Cells = []journalCell{toJournalCell(w)}
		return nil
	})
}

// SetColumn writes the selected positions of one column. values must have
// one entry per selected position, or exactly one entry which is broadcast.
// An empty effective selection is a no-op (logged, not an error).
func (d *Dataset) SetColumn(columnName string, sel indexset.Selector, values []column.Value) error {
	return d.mutate(wal.OpSetColumn, "set column", func(t *txn) error {
		if columnName == ColLastEditedBy || columnName == ColLastEditedAt {
			return &InvalidColumnNameError{Name: columnName, Reason: "reserved name"}
		}
		cs, err := d.col(columnName)
		if err != nil {
			return err
		}
		if sel == nil {
			sel = indexset.All()
		}
		set, err := indexset.NormalizeWrite(sel, d.rows)
		if err != nil {
			return err
		}
		if set.Empty() {
			d.opts.logger.LogEmptyWrite(context.Background(), columnName)
			t.noop = true
			return nil
		}
		if len(values) != set.Len() && len(values) != 1 {
			return &InvalidShapeError{
				Column: columnName,
				Want:   fmt.Sprintf("(%d,)", set.Len()),
				Got:    fmt.Sprintf("(%d,)", len(values)),
			}
		}

		writes := make([]cellWrite, set.Len())
		if len(values) == 1 {
			// Encode the broadcast value once; ref cells then share a
			// single stored payload.
			w, err := d.encodeValue(t, columnName, cs, values[0])
			if err != nil {
				return err
			}
			for i := range writes {
				writes[i] = w
			}
		} else {
			for i := range writes {
				if writes[i], err = d.encodeValue(t, columnName, cs, values[i]); err != nil {
					return err
				}
			}
		}

		cells := make([]journalCell, set.Len())
		for i, pos := range set.Order {
			pos := pos
			old := cs.cellAt(pos)
			t.onRollback(func() { cs.setCellAt(pos, old) })
			cs.setCellAt(pos, writes[i])
			cells[i] = toJournalCell(writes[i])
		}

		d.touchRows(t, set.Order)
		t.rec.Column = columnName
		t.rec.Rows = set.Order
		t.rec.Cells = cells
		return nil
	})
}

// SetRow writes several cells of one row.
func (d *Dataset) SetRow(row int, values Row) error {
	return d.mutate(wal.OpSetRow, "set row", func(t *txn) error {
		pos, err := indexset.NormalizeAt(row, d.rows)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(values))
		for name := range values {
			if err := validateColumnName(name); err != nil {
				return err
			}
			if _, err := d.col(name); err != nil {
				return err
			}
			names = append(names, name)
		}
		sort.Strings(names)

		jvalues := make(map[string]journalCell, len(names))
		for _, name := range names {
			cs := d.cols[name]
			w, err := d.encodeValue(t, name, cs, values[name])
			if err != nil {
				return err
			}
			old := cs.cellAt(pos)
			csLocal := cs
			t.onRollback(func() { csLocal.setCellAt(pos, old) })
			cs.setCellAt(pos, w)
			jvalues[name] = toJournalCell(w)
		}

		d.touchRows(t, []uint32{pos})
		t.rec.Row = int(pos)
		t.rec.Values = jvalues
		return nil
	})
}

// AppendRow appends one row. Missing columns take their default (null for
// optional columns without one); a missing value for a non-optional column
// fails and rolls the append back.
func (d *Dataset) AppendRow(values Row) error {
	return d.mutate(wal.OpAppendRow, "append row", func(t *txn) error {
		return d.insertRowAt(t, uint32(d.rows), values, false)
	})
}

// InsertRow inserts one row before the given index, shifting later rows.
// row may equal the current length, which appends.
func (d *Dataset) InsertRow(row int, values Row) error {
	return d.mutate(wal.OpInsertRow, "insert row", func(t *txn) error {
		pos := row
		if pos < 0 {
			pos += d.rows
		}
		if pos < 0 || pos > d.rows {
			return &InvalidIndexError{Reason: fmt.Sprintf("row %d out of range for length %d", row, d.rows)}
		}
		return d.insertRowAt(t, uint32(pos), values, true)
	})
}

func (d *Dataset) insertRowAt(t *txn, pos uint32, values Row, shift bool) error {
	for name := range values {
		if err := validateColumnName(name); err != nil {
			return err
		}
		if _, err := d.col(name); err != nil {
			return err
		}
	}

	// Encode everything before touching any column so a failing value
	// leaves all lengths at their pre-call value.
	writes := make(map[string]cellWrite, len(d.order))
	jvalues := make(map[string]journalCell, len(d.order))
	for _, name := range d.order {
		cs := d.cols[name]
		if name == ColLastEditedBy || name == ColLastEditedAt {
			writes[name] = cellWrite{null: true}
			jvalues[name] = journalCell{Null: true}
			continue
		}
		w, err := d.encodeValue(t, name, cs, values[name])
		if err != nil {
			return err
		}
		writes[name] = w
		jvalues[name] = toJournalCell(w)
	}

	for _, name := range d.order {
		cs := d.cols[name]
		csLocal := cs
		t.onRollback(func() { csLocal.removePositions([]uint32{pos}) })
		cs.insertAt(pos, writes[name])
	}
	oldRows := d.rows
	d.rows++
	t.onRollback(func() { d.rows = oldRows })

	if shift {
		touched := make([]uint32, 0, d.rows-int(pos))
		for i := int(pos); i < d.rows; i++ {
			touched = append(touched, uint32(i))
		}
		d.touchRows(t, touched)
	} else {
		d.touchRows(t, []uint32{pos})
	}

	t.rec.Row = int(pos)
	t.rec.Values = jvalues
	return nil
}

// DeleteRows removes the selected rows from every column, closing the gaps.
// An empty effective selection is a no-op.
func (d *Dataset) DeleteRows(sel indexset.Selector) error {
	return d.mutate(wal.OpDeleteRows, "delete rows", func(t *txn) error {
		set, err := indexset.NormalizeWrite(sel, d.rows)
		if err != nil {
			return err
		}
		if set.Empty() {
			d.opts.logger.LogEmptyWrite(context.Background(), "")
			t.noop = true
			return nil
		}

		for _, name := range d.order {
			cs := d.cols[name]
			removed := make([]cellWrite, len(set.Unique))
			for i, pos := range set.Unique {
				removed[i] = cs.cellAt(pos)
			}
			csLocal := cs
			positions := set.Unique
			t.onRollback(func() {
				for i, pos := range positions {
					csLocal.insertAt(pos, removed[i])
				}
			})
			cs.removePositions(set.Unique)
		}

		oldRows := d.rows
		d.rows -= len(set.Unique)
		t.onRollback(func() { d.rows = oldRows })

		touched := make([]uint32, 0, d.rows-int(set.Unique[0]))
		for i := int(set.Unique[0]); i < d.rows; i++ {
			touched = append(touched, uint32(i))
		}
		d.touchRows(t, touched)

		t.rec.Rows = set.Unique
		return nil
	})
}

// DeleteRow removes one row.
func (d *Dataset) DeleteRow(row int) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	pos, err := indexset.NormalizeAt(row, d.rows)
	if err != nil {
		return err
	}
	return d.DeleteRows(indexset.At(int(pos)))
}

// AppendColumn declares a new column. values pre-fills it: on an empty
// dataset the values define the row count; otherwise their number must match
// it. A nil values fills the column with its empty representation, which
// requires the column to be optional unless the dataset is empty.
func (d *Dataset) AppendColumn(name string, kind column.Kind, values []column.Value, optFns ...ColumnOption) error {
	return d.mutate(wal.OpAppendColumn, "append column", func(t *txn) error {
		if err := validateColumnName(name); err != nil {
			return err
		}
		if _, exists := d.cols[name]; exists {
			return &ColumnExistsError{Name: name}
		}
		if !kind.Valid() {
			return &InvalidDTypeError{Column: name, Want: kind, Got: "unknown kind"}
		}

		attrs := &column.Attrs{
			Name:     name,
			Kind:     kind,
			Order:    d.nextOrder(),
			Editable: true,
		}
		if kind == column.KindCategory {
			attrs.Categories, _ = column.NewCategoryTable(nil)
		}
		for _, fn := range optFns {
			fn(attrs)
		}
		if err := validateAttrs(attrs, kind); err != nil {
			return err
		}

		length := d.rows
		if values != nil {
			if d.rows == 0 {
				length = len(values)
			} else if len(values) != d.rows {
				return &InvalidShapeError{
					Column: name,
					Want:   fmt.Sprintf("(%d,)", d.rows),
					Got:    fmt.Sprintf("(%d,)", len(values)),
				}
			}
		}

		cs := newColumnState(attrs)
		d.cols[name] = cs // encodeValue resolves the column by name
		t.onRollback(func() {
			delete(d.cols, name)
		})

		if attrs.Kind.Storage() == column.StorageFixed {
			cs.fixed = make([]byte, 0, length*cs.stride())
		}
		cells := make([]journalCell, 0, length)
		for i := 0; i < length; i++ {
			var v column.Value
			if values != nil {
				v = values[i]
			}
			w, err := d.encodeValue(t, name, cs, v)
			if err != nil {
				return err
			}
			cs.insertAt(uint32(i), w)
			cells = append(cells, toJournalCell(w))
		}

		if d.rows == 0 && length > 0 {
			// The first pre-filled column sets the row count; existing
			// (bookkeeping) columns grow with null cells.
			for _, other := range d.order {
				otherLocal := d.cols[other]
				oldLen := d.rows
				t.onRollback(func() {
					positions := make([]uint32, 0, length)
					for i := oldLen; i < length; i++ {
						positions = append(positions, uint32(i))
					}
					otherLocal.removePositions(positions)
				})
				otherLocal.growNull(length)
			}
			oldRows := d.rows
			d.rows = length
			t.onRollback(func() { d.rows = oldRows })
		}

		d.order = append(d.order, name)
		t.onRollback(func() { d.order = removeString(d.order, name) })

		t.rec.Schema = schemaForJournal(cs.attrs)
		t.rec.Cells = cells
		return nil
	})
}

func (d *Dataset) nextOrder() int {
	next := 0
	for _, name := range d.order {
		if a := d.cols[name].attrs; !a.Hidden && a.Order >= next {
			next = a.Order + 1
		}
	}
	return next
}

func schemaForJournal(a *column.Attrs) *persistence.ColumnManifest {
	cm := manifestFromAttrs(a)
	return &cm
}

// validateAttrs checks a freshly declared attribute record.
func validateAttrs(a *column.Attrs, kind column.Kind) error {
	if a.Categories != nil && kind != column.KindCategory {
		return &InvalidAttributeError{Column: a.Name, Attribute: "categories", Reason: fmt.Sprintf("not applicable to %s columns", kind)}
	}
	if a.Lookup != nil && kind.Storage() != column.StorageRef {
		return &InvalidAttributeError{Column: a.Name, Attribute: "lookup", Reason: fmt.Sprintf("not applicable to %s columns", kind)}
	}
	if a.Format != "" && kind.Storage() != column.StorageRef {
		return &InvalidAttributeError{Column: a.Name, Attribute: "format", Reason: fmt.Sprintf("not applicable to %s columns", kind)}
	}
	if a.Optional && !a.HasNaturalEmpty() && a.Default.IsNull() {
		return &InvalidAttributeError{Column: a.Name, Attribute: "optional", Reason: fmt.Sprintf("%s columns have no natural empty value; a default is required", kind)}
	}
	if !a.Default.IsNull() {
		if _, _, err := column.Encode(a, a.Default); err != nil {
			return &InvalidAttributeError{Column: a.Name, Attribute: "default", Reason: err.Error()}
		}
	}
	return nil
}

// DeleteColumn removes a column. Its blob payloads stay in the namespace
// until the next compaction.
func (d *Dataset) DeleteColumn(name string) error {
	return d.mutate(wal.OpDeleteColumn, "delete column", func(t *txn) error {
		if name == ColLastEditedBy || name == ColLastEditedAt {
			return &InvalidColumnNameError{Name: name, Reason: "reserved name"}
		}
		cs, err := d.col(name)
		if err != nil {
			return err
		}

		idx := indexOfString(d.order, name)
		delete(d.cols, name)
		d.order = removeString(d.order, name)
		t.onRollback(func() {
			d.cols[name] = cs
			d.order = insertString(d.order, idx, name)
		})

		t.rec.Column = name
		return nil
	})
}

// RenameColumn renames a column, keeping its data and attributes.
func (d *Dataset) RenameColumn(oldName, newName string) error {
	return d.mutate(wal.OpRenameColumn, "rename column", func(t *txn) error {
		cs, err := d.col(oldName)
		if err != nil {
			return err
		}
		if oldName == ColLastEditedBy || oldName == ColLastEditedAt {
			return &InvalidColumnNameError{Name: oldName, Reason: "reserved name"}
		}
		if err := validateColumnName(newName); err != nil {
			return err
		}
		if _, exists := d.cols[newName]; exists {
			return &ColumnExistsError{Name: newName}
		}

		delete(d.cols, oldName)
		cs.attrs.Name = newName
		d.cols[newName] = cs
		for i, n := range d.order {
			if n == oldName {
				d.order[i] = newName
			}
		}
		t.onRollback(func() {
			delete(d.cols, newName)
			cs.attrs.Name = oldName
			d.cols[oldName] = cs
			for i, n := range d.order {
				if n == newName {
					d.order[i] = oldName
				}
			}
		})

		t.rec.Column = oldName
		t.rec.NewName = newName
		return nil
	})
}

// IsNull returns the per-row null mask of a column.
func (d *Dataset) IsNull(columnName string) ([]bool, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	cs, err := d.col(columnName)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, d.rows)
	it := cs.nulls.Iterator()
	for it.HasNext() {
		pos := it.Next()
		if int(pos) < d.rows {
			mask[pos] = true
		}
	}
	return mask, nil
}

// NotNull returns the inverse of IsNull.
func (d *Dataset) NotNull(columnName string) ([]bool, error) {
	mask, err := d.IsNull(columnName)
	if err != nil {
		return nil, err
	}
	for i := range mask {
		mask[i] = !mask[i]
	}
	return mask, nil
}

// IterRows iterates decoded rows in positional order, optionally restricted
// to a column subset. Iteration ends early if a row fails to decode.
func (d *Dataset) IterRows(columns ...string) iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		if d.ensureOpen() != nil {
			return
		}
		for i := 0; i < d.rows; i++ {
			row, err := d.GetRow(i, columns...)
			if err != nil {
				return
			}
			if !yield(i, row) {
				return
			}
		}
	}
}

func indexOfString(ss []string, s string) int {
	for i, v := range ss {
		if v == s {
			return i
		}
	}
	return -1
}

func insertString(ss []string, idx int, s string) []string {
	if idx < 0 || idx >= len(ss) {
		return append(ss, s)
	}
	ss = append(ss, "")
	copy(ss[idx+1:], ss[idx:])
	ss[idx] = s
	return ss
}

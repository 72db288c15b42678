package coldb

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/coldb/column"
	"github.com/hupe1980/coldb/internal/resource"
	"github.com/hupe1980/coldb/persistence"
	"github.com/hupe1980/coldb/wal"
)

// Mode selects how Open treats the store file.
type Mode string

const (
	// ModeRead opens an existing store read-only.
	ModeRead Mode = "read"
	// ModeReadWrite opens an existing store for mutation.
	ModeReadWrite Mode = "read-write"
	// ModeCreate creates a new store, replacing an existing file.
	ModeCreate Mode = "create"
	// ModeCreateExclusive creates a new store and fails if the file exists.
	ModeCreateExclusive Mode = "create-exclusive"
	// ModeAppend opens an existing store for mutation, creating it first if
	// missing.
	ModeAppend Mode = "append"
)

func (m Mode) valid() bool {
	switch m {
	case ModeRead, ModeReadWrite, ModeCreate, ModeCreateExclusive, ModeAppend:
		return true
	default:
		return false
	}
}

func (m Mode) writable() bool { return m.valid() && m != ModeRead }

// Reserved bookkeeping column names. They mirror every visible column's
// length and are excluded from Keys().
const (
	ColLastEditedBy = "__last_edited_by__"
	ColLastEditedAt = "__last_edited_at__"
)

// Dataset is an open handle to a store file. It is a single-writer engine:
// callers needing concurrent access must serialize externally.
type Dataset struct {
	path string
	mode Mode
	opts options

	uid          string
	name         string
	createdBy    string
	createdAt    time.Time
	lastEditedBy string
	lastEditedAt time.Time
	generation   uint64

	rows  int
	cols  map[string]*columnState
	order []string // declaration order, bookkeeping columns included
	blobs map[string]persistence.BlobRecord

	journal *wal.WAL
	rc      *resource.Controller
	closed  bool
}

// columnState is one column's backing storage: a fixed-stride byte array, a
// string array, or a blob-key array, plus the null position bitmap.
type columnState struct {
	attrs *column.Attrs
	fixed []byte
	strs  []string
	nulls *roaring.Bitmap
}

func newColumnState(attrs *column.Attrs) *columnState {
	return &columnState{attrs: attrs, nulls: roaring.New()}
}

func (c *columnState) stride() int { return c.attrs.Kind.Stride() }

// cellWrite is the full storable state of one cell: its cell bytes and its
// null bit.
type cellWrite struct {
	cell column.Cell
	null bool
}

func (c *columnState) cellAt(pos uint32) cellWrite {
	w := cellWrite{null: c.nulls.Contains(pos)}
	switch c.attrs.Kind.Storage() {
	case column.StorageFixed:
		s := c.stride()
		w.cell.Fixed = append([]byte(nil), c.fixed[int(pos)*s:int(pos+1)*s]...)
	case column.StorageString:
		w.cell.Str = c.strs[pos]
	case column.StorageRef:
		w.cell.Str = c.strs[pos]
		w.cell.Null = w.null
	}
	return w
}

func (c *columnState) setCellAt(pos uint32, w cellWrite) {
	switch c.attrs.Kind.Storage() {
	case column.StorageFixed:
		s := c.stride()
		copy(c.fixed[int(pos)*s:int(pos+1)*s], w.cell.Fixed)
	default:
		c.strs[pos] = w.cell.Str
	}
	if w.null || w.cell.Null {
		c.nulls.Add(pos)
	} else {
		c.nulls.Remove(pos)
	}
}

// insertAt opens a gap at pos and writes w into it.
func (c *columnState) insertAt(pos uint32, w cellWrite) {
	switch c.attrs.Kind.Storage() {
	case column.StorageFixed:
		s := c.stride()
		off := int(pos) * s
		c.fixed = append(c.fixed, make([]byte, s)...)
		copy(c.fixed[off+s:], c.fixed[off:])
		cell := w.cell.Fixed
		if cell == nil {
			cell = make([]byte, s)
		}
		copy(c.fixed[off:off+s], cell)
	default:
		c.strs = append(c.strs, "")
		copy(c.strs[pos+1:], c.strs[pos:])
		c.strs[pos] = w.cell.Str
	}

	nulls := roaring.New()
	it := c.nulls.Iterator()
	for it.HasNext() {
		v := it.Next()
		if v >= pos {
			v++
		}
		nulls.Add(v)
	}
	c.nulls = nulls
	if w.null || w.cell.Null {
		c.nulls.Add(pos)
	}
}

// removePositions closes the gaps left by the given unique ascending
// positions.
func (c *columnState) removePositions(positions []uint32) {
	removed := roaring.BitmapOf(positions...)

	switch c.attrs.Kind.Storage() {
	case column.StorageFixed:
		s := c.stride()
		out := c.fixed[:0]
		for i := 0; i*s < len(c.fixed); i++ {
			if !removed.Contains(uint32(i)) {
				out = append(out, c.fixed[i*s:(i+1)*s]...)
			}
		}
		c.fixed = out
	default:
		out := c.strs[:0]
		for i, s := range c.strs {
			if !removed.Contains(uint32(i)) {
				out = append(out, s)
			}
		}
		c.strs = out
	}

	nulls := roaring.New()
	it := c.nulls.Iterator()
	for it.HasNext() {
		v := it.Next()
		if removed.Contains(v) {
			continue
		}
		nulls.Add(v - uint32(removed.Rank(v)))
	}
	c.nulls = nulls
}

// growNull appends n null cells.
func (c *columnState) growNull(n int) {
	var start int
	switch c.attrs.Kind.Storage() {
	case column.StorageFixed:
		start = len(c.fixed) / c.stride()
		c.fixed = append(c.fixed, make([]byte, n*c.stride())...)
	default:
		start = len(c.strs)
		c.strs = append(c.strs, make([]string, n)...)
	}
	c.nulls.AddRange(uint64(start), uint64(start+n))
}

// clone deep-copies the column state, used as the rollback unit for
// structural operations.
func (c *columnState) clone() *columnState {
	return &columnState{
		attrs: c.attrs.Clone(),
		fixed: append([]byte(nil), c.fixed...),
		strs:  append([]string(nil), c.strs...),
		nulls: c.nulls.Clone(),
	}
}

// Journal payload types. Cells are journaled in storable form so replay
// never re-runs value encoding.
type journalCell struct {
	Null  bool   `json:"null,omitempty"`
	Fixed []byte `json:"fixed,omitempty"`
	Str   string `json:"str,omitempty"`
}

type journalBlob struct {
	Codec uint8  `json:"codec"`
	Data  []byte `json:"data"`
}

type journalPin struct {
	DType string `json:"dtype,omitempty"`
	Shape []int  `json:"shape,omitempty"`
}

type journalRecord struct {
	Editor string    `json:"editor"`
	At     time.Time `json:"at"`

	Column  string                       `json:"column,omitempty"`
	NewName string                       `json:"new_name,omitempty"`
	Row     int                          `json:"row,omitempty"`
	Rows    []uint32                     `json:"rows,omitempty"`
	Cells   []journalCell                `json:"cells,omitempty"`
	Values  map[string]journalCell       `json:"values,omitempty"`
	Schema  *persistence.ColumnManifest  `json:"schema,omitempty"`
	Blobs   map[string]journalBlob       `json:"blobs,omitempty"`
	Lookups map[string]map[string]string `json:"lookups,omitempty"`
	Pins    map[string]journalPin        `json:"pins,omitempty"`
	Touch   bool                         `json:"touch,omitempty"`
}

func toJournalCell(w cellWrite) journalCell {
	return journalCell{Null: w.null || w.cell.Null, Fixed: w.cell.Fixed, Str: w.cell.Str}
}

func fromJournalCell(storage column.Storage, jc journalCell) cellWrite {
	w := cellWrite{null: jc.Null}
	w.cell.Fixed = jc.Fixed
	w.cell.Str = jc.Str
	if storage == column.StorageRef && jc.Null {
		w.cell.Null = true
	}
	return w
}

// txn collects rollback steps and the journal record of one mutating call.
type txn struct {
	d        *Dataset
	rec      journalRecord
	restores []func()
	snapped  map[string]bool
	noop     bool
}

func (d *Dataset) newTxn() *txn {
	return &txn{
		d:       d,
		snapped: make(map[string]bool),
		rec: journalRecord{
			Editor: d.opts.editor,
			At:     time.Now().UTC(),
		},
	}
}

func (t *txn) onRollback(fn func()) { t.restores = append(t.restores, fn) }

func (t *txn) rollback() {
	for i := len(t.restores) - 1; i >= 0; i-- {
		t.restores[i]()
	}
}

// snapshotAttrs snapshots a column's attribute record once per transaction.
// Value encoding can pin dtypes/shapes and grow lookup tables, so attrs are
// part of the rollback unit.
func (t *txn) snapshotAttrs(name string, cs *columnState) {
	if t.snapped[name] {
		return
	}
	t.snapped[name] = true
	old := cs.attrs
	cs.attrs = old.Clone()
	t.onRollback(func() { cs.attrs = old })
}

func (t *txn) addBlob(key string, rec persistence.BlobRecord) {
	if t.rec.Blobs == nil {
		t.rec.Blobs = make(map[string]journalBlob)
	}
	t.rec.Blobs[key] = journalBlob{Codec: rec.Codec, Data: rec.Data}
}

func (t *txn) addLookup(columnName, key, ref string) {
	if t.rec.Lookups == nil {
		t.rec.Lookups = make(map[string]map[string]string)
	}
	if t.rec.Lookups[columnName] == nil {
		t.rec.Lookups[columnName] = make(map[string]string)
	}
	t.rec.Lookups[columnName][key] = ref
}

func (t *txn) recordPin(columnName string, a *column.Attrs) {
	if a.DTypePin == column.DTypeInvalid && len(a.ShapePin) == 0 {
		return
	}
	if t.rec.Pins == nil {
		t.rec.Pins = make(map[string]journalPin)
	}
	pin := journalPin{Shape: a.ShapePin}
	if a.DTypePin != column.DTypeInvalid {
		pin.DType = a.DTypePin.String()
	}
	t.rec.Pins[columnName] = pin
}

func (d *Dataset) ensureOpen() error {
	if d == nil || d.closed {
		return ErrClosedDataset
	}
	return nil
}

func (d *Dataset) ensureWritable() error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	if !d.mode.writable() {
		return ErrReadOnlyDataset
	}
	return nil
}

func (d *Dataset) col(name string) (*columnState, error) {
	cs, ok := d.cols[name]
	if !ok {
		return nil, &ColumnNotExistsError{Name: name}
	}
	return cs, nil
}

// mutate wraps one mutating call: check writable, attempt, restore the
// snapshot on failure, and on success bump the generation exactly once and
// journal the committed record.
func (d *Dataset) mutate(op wal.OpType, opName string, fn func(t *txn) error) error {
	if err := d.ensureWritable(); err != nil {
		return err
	}

	ctx := context.Background()
	t := d.newTxn()
	if err := fn(t); err != nil {
		t.rollback()
		d.opts.logger.LogMutation(ctx, opName, d.generation, err)
		return err
	}
	if t.noop {
		return nil
	}

	prevGen := d.generation
	prevBy, prevAt := d.lastEditedBy, d.lastEditedAt
	d.generation++
	d.lastEditedBy = t.rec.Editor
	d.lastEditedAt = t.rec.At

	if d.journal != nil {
		payload, err := d.opts.codec.Marshal(&t.rec)
		if err == nil {
			err = d.journal.Append(wal.Entry{Seq: d.generation, Op: op, Payload: payload})
		}
		if err != nil {
			// Not durable means not committed: undo the in-memory apply.
			t.rollback()
			d.generation = prevGen
			d.lastEditedBy, d.lastEditedAt = prevBy, prevAt
			d.opts.logger.LogMutation(ctx, opName, d.generation, err)
			return fmt.Errorf("journal %s: %w", opName, err)
		}
	}

	d.opts.logger.LogMutation(ctx, opName, d.generation, nil)
	return nil
}

// encodeValue runs a value through the column codec and, for ref kinds,
// moves the payload into the blob namespace. The returned cellWrite is ready
// to store.
func (d *Dataset) encodeValue(t *txn, name string, cs *columnState, v column.Value) (cellWrite, error) {
	t.snapshotAttrs(name, cs)

	pinned := cs.attrs.DTypePin != column.DTypeInvalid || len(cs.attrs.ShapePin) > 0

	cell, payload, err := column.Encode(cs.attrs, v)
	if err != nil {
		return cellWrite{}, err
	}
	if !pinned {
		t.recordPin(name, cs.attrs)
	}

	if cs.attrs.Kind.Storage() == column.StorageRef {
		if payload == nil {
			return cellWrite{cell: column.Cell{Null: true}, null: true}, nil
		}
		key, err := d.putBlob(t, name, cs.attrs, payload, v.LookupKey)
		if err != nil {
			return cellWrite{}, err
		}
		return cellWrite{cell: column.Cell{Str: key}}, nil
	}

	return cellWrite{cell: cell, null: v.IsNull()}, nil
}

// decodeCell translates a stored cell back into a native value, fetching and
// decompressing the blob payload for ref kinds.
func (d *Dataset) decodeCell(cs *columnState, w cellWrite) (column.Value, error) {
	var payload []byte
	if cs.attrs.Kind.Storage() == column.StorageRef && !w.cell.Null {
		var err error
		if payload, err = d.getBlob(w.cell.Str); err != nil {
			return column.Null(), err
		}
	}
	return column.Decode(cs.attrs, w.cell, payload)
}

// touchRows records editor and time in the bookkeeping columns at the given
// positions.
func (d *Dataset) touchRows(t *txn, positions []uint32) {
	by, okBy := d.cols[ColLastEditedBy]
	at, okAt := d.cols[ColLastEditedAt]
	if !okBy || !okAt {
		return
	}

	atCell := cellWrite{cell: column.Cell{
		Fixed: binary.LittleEndian.AppendUint64(nil, uint64(t.rec.At.UnixNano())),
	}}
	byCell := cellWrite{cell: column.Cell{Str: t.rec.Editor}}

	for _, pos := range positions {
		pos := pos
		oldBy, oldAt := by.cellAt(pos), at.cellAt(pos)
		t.onRollback(func() {
			by.setCellAt(pos, oldBy)
			at.setCellAt(pos, oldAt)
		})
		by.setCellAt(pos, byCell)
		at.setCellAt(pos, atCell)
	}
	t.rec.Touch = true
}

// rawTouch is the replay-side counterpart of touchRows.
func (d *Dataset) rawTouch(positions []uint32, editor string, ts time.Time) {
	by, okBy := d.cols[ColLastEditedBy]
	at, okAt := d.cols[ColLastEditedAt]
	if !okBy || !okAt {
		return
	}
	atCell := cellWrite{cell: column.Cell{
		Fixed: binary.LittleEndian.AppendUint64(nil, uint64(ts.UnixNano())),
	}}
	byCell := cellWrite{cell: column.Cell{Str: editor}}
	for _, pos := range positions {
		by.setCellAt(pos, byCell)
		at.setCellAt(pos, atCell)
	}
}

// ensureBookkeeping creates the two hidden bookkeeping columns at the
// current length. Called once per writable open; does not count as a
// mutation.
func (d *Dataset) ensureBookkeeping() {
	if _, ok := d.cols[ColLastEditedBy]; !ok {
		cs := newColumnState(&column.Attrs{
			Name:     ColLastEditedBy,
			Kind:     column.KindString,
			Hidden:   true,
			Optional: true,
			Editable: false,
		})
		cs.strs = make([]string, d.rows)
		cs.nulls.AddRange(0, uint64(d.rows))
		d.cols[ColLastEditedBy] = cs
		d.order = append(d.order, ColLastEditedBy)
	}
	if _, ok := d.cols[ColLastEditedAt]; !ok {
		cs := newColumnState(&column.Attrs{
			Name:     ColLastEditedAt,
			Kind:     column.KindDateTime,
			Hidden:   true,
			Optional: true,
			Editable: false,
		})
		cs.fixed = make([]byte, d.rows*cs.stride())
		cs.nulls.AddRange(0, uint64(d.rows))
		d.cols[ColLastEditedAt] = cs
		d.order = append(d.order, ColLastEditedAt)
	}
}

// toSnapshot converts the live state into its persisted image.
func (d *Dataset) toSnapshot() *persistence.Snapshot {
	snap := &persistence.Snapshot{
		Manifest: persistence.Manifest{
			FormatVersion: persistence.FormatVersion,
			UID:           d.uid,
			Name:          d.name,
			CreatedBy:     d.createdBy,
			CreatedAt:     d.createdAt,
			LastEditedBy:  d.lastEditedBy,
			LastEditedAt:  d.lastEditedAt,
			Generation:    d.generation,
			Rows:          d.rows,
		},
		Blobs: make(map[string]persistence.BlobRecord, len(d.blobs)),
	}

	for _, name := range d.order {
		cs := d.cols[name]
		snap.Manifest.Columns = append(snap.Manifest.Columns, manifestFromAttrs(cs.attrs))

		nulls, _ := cs.nulls.ToBytes()
		snap.Columns = append(snap.Columns, persistence.ColumnData{
			Fixed: append([]byte(nil), cs.fixed...),
			Strs:  append([]string(nil), cs.strs...),
			Nulls: nulls,
		})
	}

	for key, rec := range d.blobs {
		snap.Blobs[key] = rec
	}
	return snap
}

// manifestFromAttrs flattens an attribute record into its persisted form.
// The default value is stored in the column's own storable representation.
func manifestFromAttrs(a *column.Attrs) persistence.ColumnManifest {
	cm := persistence.ColumnManifest{
		Name:        a.Name,
		Type:        a.Kind.Tag(),
		Order:       a.Order,
		Hidden:      a.Hidden,
		Optional:    a.Optional,
		Editable:    a.Editable,
		Description: a.Description,
		Tags:        append([]string(nil), a.Tags...),
		Lossy:       a.Lossy,
		Format:      a.Format,
	}

	if !a.Default.IsNull() && a.Kind.Simple() {
		if cell, _, err := column.Encode(a, a.Default); err == nil {
			cm.HasDefault = true
			cm.DefaultNull = cell.Null
			cm.DefaultFixed = cell.Fixed
			cm.DefaultStr = cell.Str
		}
	}

	if a.Categories != nil {
		for _, name := range a.Categories.Names() {
			code, _ := a.Categories.Code(name)
			cm.CategoryKeys = append(cm.CategoryKeys, name)
			cm.CategoryValues = append(cm.CategoryValues, code)
		}
	}

	if a.Lookup != nil {
		cm.HasLookup = true
		entries := a.Lookup.Entries()
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cm.LookupKeys = append(cm.LookupKeys, k)
			cm.LookupValues = append(cm.LookupValues, entries[k])
		}
	}

	if a.DTypePin != column.DTypeInvalid {
		cm.ValueDType = a.DTypePin.String()
	}
	cm.ValueShape = append([]int(nil), a.ShapePin...)

	return cm
}

// attrsFromManifest rebuilds an attribute record from its persisted form.
func attrsFromManifest(cm *persistence.ColumnManifest) (*column.Attrs, error) {
	kind, err := column.KindFromTag(cm.Type)
	if err != nil {
		return nil, &InconsistentDatasetError{Reason: fmt.Sprintf("column %q: %v", cm.Name, err), cause: err}
	}

	a := &column.Attrs{
		Name:        cm.Name,
		Kind:        kind,
		Order:       cm.Order,
		Hidden:      cm.Hidden,
		Optional:    cm.Optional,
		Editable:    cm.Editable,
		Description: cm.Description,
		Tags:        append([]string(nil), cm.Tags...),
		Lossy:       cm.Lossy,
		Format:      cm.Format,
		ShapePin:    append([]int(nil), cm.ValueShape...),
	}

	if len(cm.CategoryKeys) != len(cm.CategoryValues) {
		return nil, &InconsistentDatasetError{Reason: fmt.Sprintf("column %q: category table keys/values length mismatch", cm.Name)}
	}
	if len(cm.CategoryKeys) > 0 || kind == column.KindCategory {
		mapping := make(map[string]int32, len(cm.CategoryKeys))
		for i, k := range cm.CategoryKeys {
			mapping[k] = cm.CategoryValues[i]
		}
		table, err := column.NewCategoryTable(mapping)
		if err != nil {
			return nil, &InconsistentDatasetError{Reason: fmt.Sprintf("column %q: %v", cm.Name, err), cause: err}
		}
		a.Categories = table
	}

	if cm.HasLookup {
		if len(cm.LookupKeys) != len(cm.LookupValues) {
			return nil, &InconsistentDatasetError{Reason: fmt.Sprintf("column %q: lookup table keys/values length mismatch", cm.Name)}
		}
		a.Lookup = column.NewLookup()
		for i, k := range cm.LookupKeys {
			if err := a.Lookup.Put(k, cm.LookupValues[i]); err != nil {
				return nil, &InconsistentDatasetError{Reason: fmt.Sprintf("column %q: %v", cm.Name, err), cause: err}
			}
		}
	}

	if cm.ValueDType != "" {
		dtype, err := column.DTypeFromName(cm.ValueDType)
		if err != nil {
			return nil, &InconsistentDatasetError{Reason: fmt.Sprintf("column %q: %v", cm.Name, err), cause: err}
		}
		a.DTypePin = dtype
	}

	if cm.HasDefault {
		cell := column.Cell{Null: cm.DefaultNull, Fixed: cm.DefaultFixed, Str: cm.DefaultStr}
		def, err := column.Decode(a, cell, nil)
		if err != nil {
			return nil, &InconsistentDatasetError{Reason: fmt.Sprintf("column %q: default value: %v", cm.Name, err), cause: err}
		}
		a.Default = def
	}

	return a, nil
}

// fromSnapshot rebuilds the live state from a persisted image and runs the
// on-open schema self-check.
func (d *Dataset) fromSnapshot(snap *persistence.Snapshot) error {
	m := &snap.Manifest
	d.uid = m.UID
	d.name = m.Name
	d.createdBy = m.CreatedBy
	d.createdAt = m.CreatedAt
	d.lastEditedBy = m.LastEditedBy
	d.lastEditedAt = m.LastEditedAt
	d.generation = m.Generation
	d.rows = m.Rows
	d.cols = make(map[string]*columnState, len(m.Columns))
	d.order = d.order[:0]
	d.blobs = make(map[string]persistence.BlobRecord, len(snap.Blobs))

	for i := range m.Columns {
		cm := &m.Columns[i]
		attrs, err := attrsFromManifest(cm)
		if err != nil {
			return err
		}
		if _, exists := d.cols[cm.Name]; exists {
			return &InconsistentDatasetError{Reason: fmt.Sprintf("duplicate column %q", cm.Name)}
		}

		cs := newColumnState(attrs)
		data := &snap.Columns[i]
		switch attrs.Kind.Storage() {
		case column.StorageFixed:
			if len(data.Fixed) != d.rows*cs.stride() {
				return &InconsistentDatasetError{Reason: fmt.Sprintf("column %q: %d data bytes for %d rows", cm.Name, len(data.Fixed), d.rows)}
			}
			cs.fixed = append([]byte(nil), data.Fixed...)
		default:
			if len(data.Strs) != d.rows {
				return &InconsistentDatasetError{Reason: fmt.Sprintf("column %q: %d entries for %d rows", cm.Name, len(data.Strs), d.rows)}
			}
			cs.strs = append([]string(nil), data.Strs...)
		}
		if len(data.Nulls) > 0 {
			if err := cs.nulls.UnmarshalBinary(data.Nulls); err != nil {
				return &InconsistentDatasetError{Reason: fmt.Sprintf("column %q: null bitmap: %v", cm.Name, err), cause: err}
			}
		}

		d.cols[cm.Name] = cs
		d.order = append(d.order, cm.Name)
	}

	// Reserved bookkeeping columns, when present, must carry their fixed
	// types.
	if cs, ok := d.cols[ColLastEditedBy]; ok && cs.attrs.Kind != column.KindString {
		return &InconsistentDatasetError{Reason: fmt.Sprintf("%s has type %s, want %s", ColLastEditedBy, cs.attrs.Kind, column.KindString)}
	}
	if cs, ok := d.cols[ColLastEditedAt]; ok && cs.attrs.Kind != column.KindDateTime {
		return &InconsistentDatasetError{Reason: fmt.Sprintf("%s has type %s, want %s", ColLastEditedAt, cs.attrs.Kind, column.KindDateTime)}
	}

	for key, rec := range snap.Blobs {
		d.blobs[key] = rec
	}
	return nil
}

// applyJournal applies one recovered journal entry. Entries are raw storable
// mutations; nothing is re-encoded.
func (d *Dataset) applyJournal(entry wal.Entry) error {
	if entry.Op == wal.OpCheckpoint {
		return nil
	}

	var rec journalRecord
	if err := d.opts.codec.Unmarshal(entry.Payload, &rec); err != nil {
		return fmt.Errorf("journal entry %d: %w", entry.Seq, err)
	}

	for key, blob := range rec.Blobs {
		d.blobs[key] = persistence.BlobRecord{Codec: blob.Codec, Data: blob.Data}
	}
	for colName, adds := range rec.Lookups {
		if cs, ok := d.cols[colName]; ok {
			if cs.attrs.Lookup == nil {
				cs.attrs.Lookup = column.NewLookup()
			}
			for k, ref := range adds {
				_ = cs.attrs.Lookup.Put(k, ref)
			}
		}
	}
	for colName, pin := range rec.Pins {
		cs, ok := d.cols[colName]
		if !ok {
			continue
		}
		if pin.DType != "" {
			if dtype, err := column.DTypeFromName(pin.DType); err == nil {
				cs.attrs.DTypePin = dtype
			}
		}
		if len(pin.Shape) > 0 {
			cs.attrs.ShapePin = append([]int(nil), pin.Shape...)
		}
	}

	var touched []uint32

	switch entry.Op {
	case wal.OpSetCell, wal.OpSetColumn:
		cs, err := d.col(rec.Column)
		if err != nil {
			return fmt.Errorf("journal entry %d: %w", entry.Seq, err)
		}
		storage := cs.attrs.Kind.Storage()
		for i, pos := range rec.Rows {
			cs.setCellAt(pos, fromJournalCell(storage, rec.Cells[i]))
		}
		touched = rec.Rows

	case wal.OpSetRow:
		pos := uint32(rec.Row)
		for name, jc := range rec.Values {
			cs, err := d.col(name)
			if err != nil {
				return fmt.Errorf("journal entry %d: %w", entry.Seq, err)
			}
			cs.setCellAt(pos, fromJournalCell(cs.attrs.Kind.Storage(), jc))
		}
		touched = []uint32{pos}

	case wal.OpAppendRow:
		pos := uint32(rec.Row)
		for name, jc := range rec.Values {
			cs, err := d.col(name)
			if err != nil {
				return fmt.Errorf("journal entry %d: %w", entry.Seq, err)
			}
			cs.insertAt(pos, fromJournalCell(cs.attrs.Kind.Storage(), jc))
		}
		d.rows++
		touched = []uint32{pos}

	case wal.OpInsertRow:
		pos := uint32(rec.Row)
		for name, jc := range rec.Values {
			cs, err := d.col(name)
			if err != nil {
				return fmt.Errorf("journal entry %d: %w", entry.Seq, err)
			}
			cs.insertAt(pos, fromJournalCell(cs.attrs.Kind.Storage(), jc))
		}
		d.rows++
		for i := rec.Row; i < d.rows; i++ {
			touched = append(touched, uint32(i))
		}

	case wal.OpDeleteRows:
		for _, name := range d.order {
			d.cols[name].removePositions(rec.Rows)
		}
		d.rows -= len(rec.Rows)
		for i := int(rec.Rows[0]); i < d.rows; i++ {
			touched = append(touched, uint32(i))
		}

	case wal.OpAppendColumn:
		attrs, err := attrsFromManifest(rec.Schema)
		if err != nil {
			return fmt.Errorf("journal entry %d: %w", entry.Seq, err)
		}
		cs := newColumnState(attrs)
		if attrs.Kind.Storage() == column.StorageFixed {
			cs.fixed = make([]byte, len(rec.Cells)*cs.stride())
		} else {
			cs.strs = make([]string, len(rec.Cells))
		}
		for i, jc := range rec.Cells {
			cs.setCellAt(uint32(i), fromJournalCell(attrs.Kind.Storage(), jc))
		}
		if d.rows == 0 && len(rec.Cells) > 0 {
			// A pre-filled first column sets the row count; siblings
			// (bookkeeping) grow with null cells.
			for _, name := range d.order {
				d.cols[name].growNull(len(rec.Cells))
			}
			d.rows = len(rec.Cells)
		}
		d.cols[attrs.Name] = cs
		d.order = append(d.order, attrs.Name)

	case wal.OpDeleteColumn:
		if _, err := d.col(rec.Column); err != nil {
			return fmt.Errorf("journal entry %d: %w", entry.Seq, err)
		}
		delete(d.cols, rec.Column)
		d.order = removeString(d.order, rec.Column)

	case wal.OpRenameColumn:
		cs, err := d.col(rec.Column)
		if err != nil {
			return fmt.Errorf("journal entry %d: %w", entry.Seq, err)
		}
		delete(d.cols, rec.Column)
		cs.attrs.Name = rec.NewName
		d.cols[rec.NewName] = cs
		for i, n := range d.order {
			if n == rec.Column {
				d.order[i] = rec.NewName
			}
		}

	case wal.OpSetAttrs:
		cs, err := d.col(rec.Column)
		if err != nil {
			return fmt.Errorf("journal entry %d: %w", entry.Seq, err)
		}
		attrs, err := attrsFromManifest(rec.Schema)
		if err != nil {
			return fmt.Errorf("journal entry %d: %w", entry.Seq, err)
		}
		cs.attrs = attrs

	default:
		return fmt.Errorf("journal entry %d: %w", entry.Seq, wal.ErrCorruptEntry)
	}

	if rec.Touch {
		d.rawTouch(touched, rec.Editor, rec.At)
	}

	d.generation = entry.Seq
	d.lastEditedBy = rec.Editor
	d.lastEditedAt = rec.At
	return nil
}

func removeString(ss []string, s string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

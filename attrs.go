package coldb

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/coldb/column"
	"github.com/hupe1980/coldb/wal"
)

// ColumnOption configures a column at declaration time.
type ColumnOption func(*column.Attrs)

// WithOrder sets the column's display order.
func WithOrder(order int) ColumnOption {
	return func(a *column.Attrs) { a.Order = order }
}

// WithHidden hides the column from Keys().
func WithHidden() ColumnOption {
	return func(a *column.Attrs) { a.Hidden = true }
}

// WithOptional permits null values. Kinds without a natural empty value also
// need WithDefault.
func WithOptional() ColumnOption {
	return func(a *column.Attrs) { a.Optional = true }
}

// WithEditable marks whether the column accepts edits in consuming UIs.
func WithEditable(editable bool) ColumnOption {
	return func(a *column.Attrs) { a.Editable = editable }
}

// WithDefault sets the value stored for missing inputs on an optional
// column.
func WithDefault(v column.Value) ColumnOption {
	return func(a *column.Attrs) { a.Default = v }
}

// WithDescription sets a human-readable description.
func WithDescription(desc string) ColumnOption {
	return func(a *column.Attrs) { a.Description = desc }
}

// WithTags sets free-form tags.
func WithTags(tags ...string) ColumnOption {
	return func(a *column.Attrs) { a.Tags = tags }
}

// WithCategories sets the name->code table of a category column.
func WithCategories(categories map[string]int32) ColumnOption {
	return func(a *column.Attrs) {
		a.Categories, _ = column.NewCategoryTable(categories)
	}
}

// WithCategoryNames sets the categories of a category column, assigning
// codes in sorted name order.
func WithCategoryNames(names ...string) ColumnOption {
	return func(a *column.Attrs) {
		a.Categories, _ = column.NewCategoryTableFromNames(names)
	}
}

// WithLookup enables caller-key deduplication on a reference column.
func WithLookup() ColumnOption {
	return func(a *column.Attrs) { a.Lookup = column.NewLookup() }
}

// WithFormat selects the blob compression codec of a reference column:
// "" (uncompressed), "zstd" or "lz4".
func WithFormat(format string) ColumnOption {
	return func(a *column.Attrs) { a.Format = format }
}

// WithLossy records that the column's media payloads went through a lossy
// encoding.
func WithLossy() ColumnOption {
	return func(a *column.Attrs) { a.Lossy = true }
}

// AttrUpdate is a partial attribute change; nil fields stay untouched.
type AttrUpdate struct {
	Order       *int
	Hidden      *bool
	Optional    *bool
	Editable    *bool
	Default     *column.Value
	Description *string
	Tags        *[]string

	// Categories replaces the category table. The new table must retain a
	// code for every value already present in the column and for the
	// current default.
	Categories map[string]int32

	// Lookup enables caller-key deduplication with an explicit key->blob
	// reference table; DisableLookup releases the keys without deleting
	// the blobs.
	Lookup        map[string]string
	DisableLookup bool

	Lossy  *bool
	Format *string
}

// GetColumnAttributes returns a copy of a column's attribute record.
func (d *Dataset) GetColumnAttributes(name string) (*column.Attrs, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	cs, err := d.col(name)
	if err != nil {
		return nil, err
	}
	return cs.attrs.Clone(), nil
}

// SetColumnAttributes applies a partial attribute change. Any validation
// failure leaves the previous attributes in place.
func (d *Dataset) SetColumnAttributes(name string, update AttrUpdate) error {
	return d.mutate(wal.OpSetAttrs, "set attributes", func(t *txn) error {
		cs, err := d.col(name)
		if err != nil {
			return err
		}
		if name == ColLastEditedBy || name == ColLastEditedAt {
			return &InvalidColumnNameError{Name: name, Reason: "reserved name"}
		}

		t.snapshotAttrs(name, cs)
		a := cs.attrs

		if err := applyAttrUpdate(a, cs, &update); err != nil {
			return err
		}

		t.rec.Column = name
		t.rec.Schema = schemaForJournal(a)
		return nil
	})
}

func applyAttrUpdate(a *column.Attrs, cs *columnState, update *AttrUpdate) error {
	kind := a.Kind

	if update.Categories != nil && kind != column.KindCategory {
		return &InvalidAttributeError{Column: a.Name, Attribute: "categories", Reason: fmt.Sprintf("not applicable to %s columns", kind)}
	}
	if (update.Lookup != nil || update.DisableLookup) && kind.Storage() != column.StorageRef {
		return &InvalidAttributeError{Column: a.Name, Attribute: "lookup", Reason: fmt.Sprintf("not applicable to %s columns", kind)}
	}
	if update.Format != nil && kind.Storage() != column.StorageRef {
		return &InvalidAttributeError{Column: a.Name, Attribute: "format", Reason: fmt.Sprintf("not applicable to %s columns", kind)}
	}
	if update.Lossy != nil && kind.Storage() != column.StorageRef {
		return &InvalidAttributeError{Column: a.Name, Attribute: "lossy", Reason: fmt.Sprintf("not applicable to %s columns", kind)}
	}

	if update.Optional != nil {
		switch {
		case *update.Optional == a.Optional:
			// unchanged
		case !*update.Optional:
			return &InvalidAttributeError{Column: a.Name, Attribute: "optional", Reason: "only relaxing to optional is permitted"}
		default:
			a.Optional = true
		}
	}

	if update.Categories != nil {
		table, err := column.NewCategoryTable(update.Categories)
		if err != nil {
			return &InvalidAttributeError{Column: a.Name, Attribute: "categories", Reason: err.Error()}
		}
		if err := validateCategoryReplacement(a, cs, table, update.Default); err != nil {
			return err
		}
		a.Categories = table
	}

	if update.DisableLookup {
		a.Lookup = nil
	} else if update.Lookup != nil {
		if len(update.Lookup) > column.MaxLookupEntries {
			return &InvalidAttributeError{
				Column:    a.Name,
				Attribute: "lookup",
				Reason:    fmt.Sprintf("%d entries exceed the cap of %d; disable the lookup instead", len(update.Lookup), column.MaxLookupEntries),
			}
		}
		lookup := column.NewLookup()
		for k, ref := range update.Lookup {
			if err := lookup.Put(k, ref); err != nil {
				return &InvalidAttributeError{Column: a.Name, Attribute: "lookup", Reason: err.Error()}
			}
		}
		a.Lookup = lookup
	}

	if update.Order != nil {
		a.Order = *update.Order
	}
	if update.Hidden != nil {
		a.Hidden = *update.Hidden
	}
	if update.Editable != nil {
		a.Editable = *update.Editable
	}
	if update.Description != nil {
		a.Description = *update.Description
	}
	if update.Tags != nil {
		a.Tags = append([]string(nil), (*update.Tags)...)
	}
	if update.Lossy != nil {
		a.Lossy = *update.Lossy
	}
	if update.Format != nil {
		if *update.Format != "" && *update.Format != "zstd" && *update.Format != "lz4" {
			return &InvalidAttributeError{Column: a.Name, Attribute: "format", Reason: fmt.Sprintf("unknown format %q", *update.Format)}
		}
		a.Format = *update.Format
	}

	if update.Default != nil {
		if !a.Optional {
			return &InvalidAttributeError{Column: a.Name, Attribute: "default", Reason: "defaults apply to optional columns only"}
		}
		newDefault := *update.Default
		if !newDefault.IsNull() {
			// Re-encode through the codec; the transaction snapshot
			// restores the previous default on failure.
			if _, _, err := column.Encode(a, newDefault); err != nil {
				return &InvalidAttributeError{Column: a.Name, Attribute: "default", Reason: err.Error()}
			}
		} else if !a.HasNaturalEmpty() {
			return &InvalidAttributeError{Column: a.Name, Attribute: "default", Reason: fmt.Sprintf("%s columns have no natural empty value; a default is required", kind)}
		}
		a.Default = newDefault
	}

	return nil
}

// validateCategoryReplacement checks that a new category table retains a
// code for every value present in the column's cells and for the default.
func validateCategoryReplacement(a *column.Attrs, cs *columnState, table *column.CategoryTable, newDefault *column.Value) error {
	stride := a.Kind.Stride()
	for i := 0; i*stride < len(cs.fixed); i++ {
		code := int32(binary.LittleEndian.Uint32(cs.fixed[i*stride:]))
		if code == column.AbsentCode {
			continue
		}
		oldName, ok := a.Categories.Name(code)
		if !ok {
			continue
		}
		if newCode, ok := table.Code(oldName); !ok || newCode != code {
			return &InvalidAttributeError{
				Column:    a.Name,
				Attribute: "categories",
				Reason:    fmt.Sprintf("category %q (code %d) is present in the column but missing from the new table", oldName, code),
			}
		}
	}

	def := a.Default
	if newDefault != nil {
		def = *newDefault
	}
	if !def.IsNull() && def.S != "" {
		if _, ok := table.Code(def.S); !ok {
			return &InvalidAttributeError{
				Column:    a.Name,
				Attribute: "categories",
				Reason:    fmt.Sprintf("default %q has no code in the new table", def.S),
			}
		}
	}
	return nil
}

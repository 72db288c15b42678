package coldb

import (
	"github.com/hupe1980/coldb/column"
	"github.com/hupe1980/coldb/indexset"
)

// DataSource is the read-only contract a dataset offers to downstream
// consumers such as viewers and export pipelines. Callers cache derived
// state keyed by (uid, generation id) and revalidate with GetGenerationID.
type DataSource interface {
	// ColumnNames returns the visible column names in display order.
	ColumnNames() ([]string, error)

	// GetColumnValues reads the selected cells of one column.
	GetColumnValues(name string, sel indexset.Selector) ([]column.Value, error)

	// GetGenerationID returns the monotonic mutation counter.
	GetGenerationID() (uint64, error)

	// GetUID returns the store's stable unique identifier.
	GetUID() (string, error)

	// GetName returns the human-readable dataset name.
	GetName() (string, error)
}

var _ DataSource = (*Dataset)(nil)

// ColumnNames implements DataSource.
func (d *Dataset) ColumnNames() ([]string, error) { return d.Keys() }

// GetColumnValues implements DataSource.
func (d *Dataset) GetColumnValues(name string, sel indexset.Selector) ([]column.Value, error) {
	return d.GetColumn(name, sel)
}

// GetGenerationID implements DataSource.
func (d *Dataset) GetGenerationID() (uint64, error) { return d.GenerationID() }

// GetUID implements DataSource.
func (d *Dataset) GetUID() (string, error) { return d.UID() }

// GetName implements DataSource.
func (d *Dataset) GetName() (string, error) { return d.Name() }

package column

import (
	"fmt"
	"sort"
)

// AbsentCode is the reserved category code for "no value".
const AbsentCode int32 = -1

// MaxLookupEntries caps the size of an explicit key/reference lookup table.
// Beyond this, callers should disable the lookup instead.
const MaxLookupEntries = 5000

// CategoryTable is an injective name<->code mapping for categorical columns.
type CategoryTable struct {
	byName map[string]int32
	byCode map[int32]string
}

// NewCategoryTable builds a table from a name->code mapping.
// Both directions must be unique and no code may collide with AbsentCode.
func NewCategoryTable(categories map[string]int32) (*CategoryTable, error) {
	t := &CategoryTable{
		byName: make(map[string]int32, len(categories)),
		byCode: make(map[int32]string, len(categories)),
	}
	for name, code := range categories {
		if err := t.add(name, code); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NewCategoryTableFromNames assigns codes 0..n-1 in sorted name order.
func NewCategoryTableFromNames(names []string) (*CategoryTable, error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	m := make(map[string]int32, len(sorted))
	for i, name := range sorted {
		if _, ok := m[name]; ok {
			return nil, fmt.Errorf("duplicate category name %q", name)
		}
		m[name] = int32(i)
	}
	return NewCategoryTable(m)
}

func (t *CategoryTable) add(name string, code int32) error {
	if name == "" {
		return fmt.Errorf("empty category name")
	}
	if code == AbsentCode {
		return fmt.Errorf("category %q uses reserved code %d", name, AbsentCode)
	}
	if existing, ok := t.byName[name]; ok && existing != code {
		return fmt.Errorf("category name %q mapped twice", name)
	}
	if existing, ok := t.byCode[code]; ok && existing != name {
		return fmt.Errorf("category code %d mapped to both %q and %q", code, existing, name)
	}
	t.byName[name] = code
	t.byCode[code] = name
	return nil
}

// Code resolves a name to its code.
func (t *CategoryTable) Code(name string) (int32, bool) {
	if t == nil {
		return AbsentCode, false
	}
	code, ok := t.byName[name]
	return code, ok
}

// Name resolves a code to its name.
func (t *CategoryTable) Name(code int32) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.byCode[code]
	return name, ok
}

// Len returns the number of categories.
func (t *CategoryTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byName)
}

// Names returns all category names in sorted order.
func (t *CategoryTable) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mapping returns a copy of the name->code mapping.
func (t *CategoryTable) Mapping() map[string]int32 {
	if t == nil {
		return nil
	}
	out := make(map[string]int32, len(t.byName))
	for name, code := range t.byName {
		out[name] = code
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *CategoryTable) Clone() *CategoryTable {
	if t == nil {
		return nil
	}
	clone := &CategoryTable{
		byName: make(map[string]int32, len(t.byName)),
		byCode: make(map[int32]string, len(t.byCode)),
	}
	for name, code := range t.byName {
		clone.byName[name] = code
		clone.byCode[code] = name
	}
	return clone
}

// Lookup is a caller-supplied key -> blob reference table enabling
// deduplicated blob storage on ref columns.
type Lookup struct {
	refs map[string]string
}

// NewLookup creates an empty lookup table.
func NewLookup() *Lookup {
	return &Lookup{refs: make(map[string]string)}
}

// Ref resolves a caller-supplied key to its blob reference.
func (l *Lookup) Ref(key string) (string, bool) {
	if l == nil {
		return "", false
	}
	ref, ok := l.refs[key]
	return ref, ok
}

// Put records a key -> reference association.
func (l *Lookup) Put(key, ref string) error {
	if _, ok := l.refs[key]; !ok && len(l.refs) >= MaxLookupEntries {
		return fmt.Errorf("lookup table is full (%d entries); disable the lookup before adding more keys", MaxLookupEntries)
	}
	l.refs[key] = ref
	return nil
}

// Delete removes a key from the table.
func (l *Lookup) Delete(key string) {
	if l != nil {
		delete(l.refs, key)
	}
}

// Len returns the number of entries.
func (l *Lookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.refs)
}

// Entries returns a copy of the key->reference mapping.
func (l *Lookup) Entries() map[string]string {
	if l == nil {
		return nil
	}
	out := make(map[string]string, len(l.refs))
	for k, v := range l.refs {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of the lookup table.
func (l *Lookup) Clone() *Lookup {
	if l == nil {
		return nil
	}
	clone := NewLookup()
	for k, v := range l.refs {
		clone.refs[k] = v
	}
	return clone
}

// Attrs is the full per-column metadata record.
type Attrs struct {
	Name        string
	Kind        Kind
	Order       int
	Hidden      bool
	Optional    bool
	Editable    bool
	Default     Value
	Description string
	Tags        []string

	// Categories is the name<->code table; category columns only.
	Categories *CategoryTable
	// Lookup is the key->blob-reference table; ref columns only. A nil
	// Lookup means deduplication by caller key is disabled.
	Lookup *Lookup

	// DTypePin and ShapePin record the element dtype/shape fixed by the
	// first written value of array-like columns.
	DTypePin DType
	ShapePin []int

	// Lossy and Format describe the media payload: Format selects the blob
	// compression codec ("", "zstd" or "lz4") and Lossy records that the
	// payload went through a lossy media encoding.
	Lossy  bool
	Format string
}

// Clone returns a deep copy of the attributes, used as the snapshot unit for
// rollback.
func (a *Attrs) Clone() *Attrs {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Default = a.Default.Clone()
	clone.Tags = append([]string(nil), a.Tags...)
	clone.Categories = a.Categories.Clone()
	clone.Lookup = a.Lookup.Clone()
	clone.ShapePin = append([]int(nil), a.ShapePin...)
	return &clone
}

// HasNaturalEmpty reports whether the column kind has an unambiguous empty
// representation, making an explicit default unnecessary for optional
// columns.
func (a *Attrs) HasNaturalEmpty() bool {
	switch a.Kind {
	case KindFloat, KindString, KindCategory:
		return true
	default:
		return a.Kind.Storage() == StorageRef
	}
}

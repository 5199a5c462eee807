// Package resource describes persisted entity types: their identity, columns,
// audit fields and foreign-key relations.
//
// # Models
//
// Every persisted type implements [Model]. Columns are declared explicitly and
// in a fixed order, so the storage layer can build statements and scan rows
// without reflection:
//
//	func (f *Folder) Columns() []resource.Column {
//	    return append([]resource.Column{
//	        {Name: "name", Value: resource.Deref(f.Name), Dest: &f.Name},
//	    }, f.AuditColumns()...)
//	}
//
// # Relations
//
// A [Relation] ties a foreign-key column to a sibling field that holds the
// related instance before it is persisted. Relations are only cascaded when a
// caller names them explicitly.
package resource

// Model is the interface implemented by every persisted resource type.
type Model interface {
	// Descriptor returns the static description of the resource type.
	Descriptor() *Descriptor

	// GetID returns the storage-assigned identifier, or 0 before insertion.
	GetID() int64

	// SetID records the identifier assigned by storage.
	SetID(id int64)

	// Columns returns the non-key columns in a stable order.
	// Value is read at call time, so callers must not cache the slice across mutations.
	Columns() []Column
}

// Column binds a table column to a model field.
type Column struct {
	// Name is the column name in the table.
	Name string

	// Value is the current field value, already dereferenced (nil means NULL).
	Value any

	// Dest is a pointer to the field, used when scanning rows.
	Dest any

	// ReadOnly columns are assigned by storage (server defaults). They are never
	// written and are read back after inserts.
	ReadOnly bool
}

// Deref returns the pointed-to value, or nil for a nil pointer.
func Deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// ColumnValue returns the current value of the named column and whether the
// model declares it. The id column is always declared.
func ColumnValue(m Model, name string) (any, bool) {
	if name == "id" {
		return m.GetID(), true
	}
	for _, c := range m.Columns() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// OwnerOf returns the owning principal id of m, or 0 when the resource type is
// not owned or the owner column is NULL.
func OwnerOf(m Model) int64 {
	col := m.Descriptor().OwnerColumn
	if col == "" {
		return 0
	}
	v, _ := ColumnValue(m, col)
	id, _ := v.(int64)
	return id
}

package resource

// ForeignKey declares a column referencing the id of another table.
type ForeignKey struct {
	// Column is the referencing column (e.g. "folder_id").
	Column string

	// References is the referenced table (e.g. "folders").
	References string
}

// Descriptor is the static description of a resource type.
type Descriptor struct {
	// Name is the resource type name used by routers and the registry (e.g. "notes").
	Name string

	// Table is the storage table name.
	Table string

	// OwnerColumn holds the owning principal id. Empty for unowned types.
	OwnerColumn string

	// SoftDeleteColumn, when set, marks rows deleted instead of removing them.
	// Rows with a non-NULL value are excluded from every query.
	SoftDeleteColumn string

	// ForeignKeys lists every foreign-key column of the table, cascaded or not.
	ForeignKeys []ForeignKey

	// Relations lists the relations that may be cascaded, in cascade order.
	Relations []Relation

	// New returns an empty instance of the resource type.
	New func() Model
}

// Relation returns the relation with the given name.
func (d *Descriptor) Relation(name string) (Relation, bool) {
	for _, r := range d.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

// RelationNames returns the names of all declared relations.
func (d *Descriptor) RelationNames() []string {
	names := make([]string, len(d.Relations))
	for i, r := range d.Relations {
		names[i] = r.Name
	}
	return names
}

// ForeignKey returns the foreign key declared on column.
func (d *Descriptor) ForeignKey(column string) (ForeignKey, bool) {
	for _, fk := range d.ForeignKeys {
		if fk.Column == column {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

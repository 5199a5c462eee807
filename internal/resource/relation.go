package resource

// Relation is a declared foreign-key relation that can be cascaded: the parent's
// ForeignKey column references a Target resource whose unsaved instance lives in
// a sibling field named Name.
type Relation struct {
	// Name is the sibling attribute (and payload key) holding the related instance.
	Name string

	// ForeignKey is the parent column receiving the related instance's id.
	ForeignKey string

	// Target is the related resource type name.
	Target string

	related func(Model) Model
	attach  func(Model, Model)
	key     func(Model) *int64
	link    func(Model, int64)
}

// Accessors are the typed field accessors of a relation from parent P to child C.
type Accessors[P, C Model] struct {
	// Get returns the sibling instance (nil when absent).
	Get func(P) C

	// Set stores an instance in the sibling field.
	Set func(P, C)

	// Key returns the current foreign-key value (nil when NULL).
	Key func(P) *int64

	// Link stores a foreign-key value.
	Link func(P, int64)
}

// BelongsTo declares a relation from parent type P to child type C.
func BelongsTo[P, C Model](name, foreignKey, target string, acc Accessors[P, C]) Relation {
	return Relation{
		Name:       name,
		ForeignKey: foreignKey,
		Target:     target,
		related: func(m Model) Model {
			c := acc.Get(m.(P))
			var zero C
			if any(c) == any(zero) {
				return nil
			}
			return c
		},
		attach: func(m, c Model) { acc.Set(m.(P), c.(C)) },
		key:    func(m Model) *int64 { return acc.Key(m.(P)) },
		link:   func(m Model, id int64) { acc.Link(m.(P), id) },
	}
}

// Related returns the related instance held by parent, or nil.
func (r Relation) Related(parent Model) Model {
	return r.related(parent)
}

// Attach stores child in the parent's sibling field.
func (r Relation) Attach(parent, child Model) {
	r.attach(parent, child)
}

// KeyValue returns the parent's current foreign-key value, or nil.
func (r Relation) KeyValue(parent Model) *int64 {
	return r.key(parent)
}

// Link copies a related id into the parent's foreign-key column.
func (r Relation) Link(parent Model, id int64) {
	r.link(parent, id)
}

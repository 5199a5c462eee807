package resource

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateResource is returned when a resource name is registered twice.
	ErrDuplicateResource = errors.New("resource: duplicate resource name")

	// ErrInvalidRelation is returned by Validate for relations that do not resolve.
	ErrInvalidRelation = errors.New("resource: invalid relation")
)

// Registry holds all known resource types.
type Registry struct {
	descriptors []*Descriptor
	byName      map[string]*Descriptor
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Descriptor),
	}
}

// Register adds a descriptor to the registry.
func (r *Registry) Register(d *Descriptor) error {
	if _, ok := r.byName[d.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateResource, d.Name)
	}
	r.descriptors = append(r.descriptors, d)
	r.byName[d.Name] = d
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// All returns all registered descriptors in registration order.
func (r *Registry) All() []*Descriptor {
	return r.descriptors
}

// Validate checks that every relation targets a registered resource through a
// declared foreign key referencing the target's table.
func (r *Registry) Validate() error {
	var errs []error
	for _, d := range r.descriptors {
		for _, rel := range d.Relations {
			target, ok := r.byName[rel.Target]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %s.%s targets unknown resource %q", ErrInvalidRelation, d.Name, rel.Name, rel.Target))
				continue
			}
			fk, ok := d.ForeignKey(rel.ForeignKey)
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %s.%s uses undeclared foreign key %q", ErrInvalidRelation, d.Name, rel.Name, rel.ForeignKey))
				continue
			}
			if fk.References != target.Table {
				errs = append(errs, fmt.Errorf("%w: %s.%s references %q, target table is %q", ErrInvalidRelation, d.Name, rel.Name, fk.References, target.Table))
			}
		}
	}
	return errors.Join(errs...)
}

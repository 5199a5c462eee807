package crud

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/mmynk/backstack/internal/apperr"
	"github.com/mmynk/backstack/internal/filter"
	"github.com/mmynk/backstack/internal/resource"
	"github.com/mmynk/backstack/internal/schema"
	"github.com/mmynk/backstack/internal/storage"
)

// nested is a related payload decoded ahead of the transaction.
type nested struct {
	rel     resource.Relation
	target  *resource.Descriptor
	payload map[string]any
	model   resource.Model
}

// withDefaults returns payload with the keys of defaults that it lacks.
func withDefaults(payload map[string]any, defaults func(*Request) map[string]any, req *Request) map[string]any {
	out := maps.Clone(payload)
	if out == nil {
		out = map[string]any{}
	}
	if defaults == nil {
		return out
	}
	for k, v := range defaults(req) {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// decode validates payload into m and every persisted relation object into a
// new target instance. Field errors of related objects are prefixed with the
// relation name, and all errors are reported together.
func (e *Engine) decode(res *Resource, payload map[string]any, m resource.Model) ([]nested, error) {
	d := res.Descriptor
	fields := map[string]apperr.Code{}
	var children []nested

	for _, rel := range d.Relations {
		v, present := payload[rel.Name]
		if !present || v == nil {
			continue
		}
		if !slices.Contains(res.RelatedToPersist, rel.Name) {
			fields[rel.Name] = apperr.CodeInvalidInput
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			fields[rel.Name] = apperr.CodeInvalidType
			continue
		}
		target, ok := e.registry.Lookup(rel.Target)
		if !ok {
			return nil, fmt.Errorf("relation %s.%s targets unregistered resource %q", d.Name, rel.Name, rel.Target)
		}
		child := target.New()
		if err := schema.Load(obj, child); err != nil {
			if !mergeFields(fields, err, rel.Name) {
				return nil, err
			}
			continue
		}
		children = append(children, nested{rel: rel, target: target, payload: obj, model: child})
	}

	if err := schema.Load(payload, m, d.RelationNames()...); err != nil {
		if !mergeFields(fields, err, "") {
			return nil, err
		}
	}

	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}
	return children, nil
}

// mergeFields copies the field codes of a validation error into fields,
// prefixed when prefix is set. It reports false for any other error.
func mergeFields(fields map[string]apperr.Code, err error, prefix string) bool {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind() != apperr.KindValidation {
		return false
	}
	if prefix != "" {
		appErr = appErr.Nest(prefix)
	}
	maps.Copy(fields, appErr.Fields())
	return true
}

// stampCreate sets the creation audit fields of m.
func stampCreate(res *Resource, req *Request, m resource.Model) {
	a, ok := m.(resource.Audited)
	if !ok {
		return
	}
	audit := a.AuditFields()
	audit.CreatedFrom = req.Origin
	if res.SaveCreator && audit.CreatedBy == nil && req.Principal != nil {
		id := req.Principal.ID
		audit.CreatedBy = &id
	}
}

// stampUpdate sets the updated_by audit field of m.
func stampUpdate(req *Request, m resource.Model) {
	a, ok := m.(resource.Audited)
	if !ok {
		return
	}
	if req.Principal == nil {
		a.AuditFields().UpdatedBy = nil
		return
	}
	id := req.Principal.ID
	a.AuditFields().UpdatedBy = &id
}

// ignoresUnique reports whether a unique violation on table.column is
// configured to reuse the existing row.
func (r *Resource) ignoresUnique(table, column string) bool {
	for _, c := range r.IgnoreUniqueErrors {
		if c == column || c == table+"."+column {
			return true
		}
	}
	return false
}

// insert flushes m. When the insert violates an ignored unique constraint the
// existing row holding the same value is returned instead.
func (e *Engine) insert(ctx context.Context, tx storage.Tx, res *Resource, m resource.Model) (resource.Model, error) {
	err := tx.Insert(ctx, m)
	if err == nil {
		return m, nil
	}

	var cerr *storage.ConstraintError
	if !errors.As(err, &cerr) || cerr.Kind != storage.ConstraintUnique || !res.ignoresUnique(cerr.Table, cerr.Column) {
		return nil, err
	}

	d := m.Descriptor()
	value, ok := resource.ColumnValue(m, cerr.Column)
	if !ok {
		return nil, err
	}
	rows, findErr := tx.Find(ctx, d, storage.Query{Filters: []filter.Predicate{filter.Eq(cerr.Column, value)}, Limit: 1})
	if findErr != nil {
		return nil, errors.Join(err, findErr)
	}
	if len(rows) != 1 {
		return nil, err
	}

	e.log(ctx).Debug("Reusing existing row", "resource", d.Name, "column", cerr.Column, "id", rows[0].GetID())
	return rows[0], nil
}

// cascadeCreate flushes every decoded related instance and links it to parent.
func (e *Engine) cascadeCreate(ctx context.Context, tx storage.Tx, res *Resource, req *Request, parent resource.Model, children []nested) error {
	for _, c := range children {
		stampCreate(res, req, c.model)
		saved, err := e.insert(ctx, tx, res, c.model)
		if err != nil {
			return nestError(err, c.rel.Name)
		}
		c.rel.Attach(parent, saved)
		c.rel.Link(parent, saved.GetID())
	}
	return nil
}

// cascadeUpdate applies related payloads on update. A related row already
// linked through a relation listed in RelatedToUpdate is updated in place;
// otherwise a new row is inserted and linked.
func (e *Engine) cascadeUpdate(ctx context.Context, tx storage.Tx, res *Resource, req *Request, existing, incoming resource.Model, children []nested) error {
	for _, c := range children {
		key := c.rel.KeyValue(incoming)
		if key == nil {
			key = c.rel.KeyValue(existing)
		}

		if key != nil && slices.Contains(res.RelatedToUpdate, c.rel.Name) {
			row, err := reload(ctx, tx, c.target, *key)
			if err == nil {
				if c.target.OwnerColumn != "" && !req.admin() && resource.OwnerOf(row) != req.principalID() {
					return apperr.Unauthorized()
				}
				if err := schema.Load(c.payload, row); err != nil {
					return nestError(err, c.rel.Name)
				}
				stampUpdate(req, row)
				if err := tx.Update(ctx, row); err != nil {
					return nestError(err, c.rel.Name)
				}
				c.rel.Attach(incoming, row)
				c.rel.Link(incoming, row.GetID())
				continue
			}
			var appErr *apperr.Error
			if !errors.As(err, &appErr) || appErr.Kind() != apperr.KindNotFound {
				return err
			}
		}

		stampCreate(res, req, c.model)
		saved, err := e.insert(ctx, tx, res, c.model)
		if err != nil {
			return nestError(err, c.rel.Name)
		}
		c.rel.Attach(incoming, saved)
		c.rel.Link(incoming, saved.GetID())
	}
	return nil
}

// nestError prefixes the field of a related-row failure with the relation name.
func nestError(err error, name string) error {
	appErr := apperr.Translate(err)
	if len(appErr.Fields()) == 0 {
		return err
	}
	return appErr.Nest(name)
}

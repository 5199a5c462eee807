package crud

import (
	"context"
	"time"

	"github.com/mmynk/backstack/internal/resource"
	"github.com/mmynk/backstack/internal/schema"
)

// Update applies payload to the single row matching the request filters.
// A partial update writes only the attributes present in payload; a full
// update resets absent writable attributes while keeping id and creation
// audit fields.
func (e *Engine) Update(ctx context.Context, res *Resource, req *Request, payload map[string]any, partial bool) (m resource.Model, err error) {
	start := time.Now()
	defer func() { e.observe(res, ActionUpdate, start, err) }()

	d := res.Descriptor
	e.log(ctx).Info("Update request received", "resource", d.Name, "path", req.Path, "partial", partial)

	if err := e.authorize(res, ActionUpdate, req); err != nil {
		return nil, e.fail(ctx, nil, res, ActionUpdate, err)
	}

	payload = withDefaults(payload, res.UpdateDefaults, req)
	children, err := e.decode(res, payload, d.New())
	if err != nil {
		return nil, e.fail(ctx, nil, res, ActionUpdate, err)
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, e.fail(ctx, nil, res, ActionUpdate, err)
	}
	defer tx.Rollback()

	existing, err := findOne(ctx, tx, d, e.filters(res, ActionUpdate, req))
	if err != nil {
		return nil, e.fail(ctx, tx, res, ActionUpdate, err)
	}
	if err := e.authorizeRow(res, ActionUpdate, req, existing); err != nil {
		return nil, e.fail(ctx, tx, res, ActionUpdate, err)
	}

	var incoming resource.Model
	if partial {
		incoming, err = reload(ctx, tx, d, existing.GetID())
		if err != nil {
			return nil, e.fail(ctx, tx, res, ActionUpdate, err)
		}
	} else {
		incoming = d.New()
		incoming.SetID(existing.GetID())
		keepCreation(existing, incoming)
	}
	if err := schema.Load(payload, incoming, d.RelationNames()...); err != nil {
		return nil, e.fail(ctx, tx, res, ActionUpdate, err)
	}
	stampUpdate(req, incoming)

	if hook := res.Hooks.PreUpdate; hook != nil {
		if err := hook(ctx, req, existing, incoming); err != nil {
			return nil, e.fail(ctx, tx, res, ActionUpdate, err)
		}
	}

	if err := e.cascadeUpdate(ctx, tx, res, req, existing, incoming, children); err != nil {
		return nil, e.fail(ctx, tx, res, ActionUpdate, err)
	}
	if err := tx.Update(ctx, incoming); err != nil {
		return nil, e.fail(ctx, tx, res, ActionUpdate, err)
	}

	if hook := res.Hooks.BeforeUpdateCommit; hook != nil {
		if err := hook(ctx, tx, incoming); err != nil {
			return nil, e.fail(ctx, tx, res, ActionUpdate, err)
		}
	}

	m, err = reload(ctx, tx, d, incoming.GetID())
	if err != nil {
		return nil, e.fail(ctx, tx, res, ActionUpdate, err)
	}
	for _, c := range children {
		if related := c.rel.Related(incoming); related != nil {
			c.rel.Attach(m, related)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, e.fail(ctx, tx, res, ActionUpdate, err)
	}

	e.log(ctx).Info("Resource updated", "resource", d.Name, "id", m.GetID())
	if hook := res.Hooks.AfterUpdate; hook != nil {
		hook(ctx, m)
	}
	return m, nil
}

// keepCreation copies the creation audit fields of existing onto incoming.
func keepCreation(existing, incoming resource.Model) {
	from, ok := existing.(resource.Audited)
	if !ok {
		return
	}
	to, ok := incoming.(resource.Audited)
	if !ok {
		return
	}
	src, dst := from.AuditFields(), to.AuditFields()
	dst.CreatedAt = src.CreatedAt
	dst.CreatedFrom = src.CreatedFrom
	dst.CreatedBy = src.CreatedBy
}

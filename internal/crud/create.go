package crud

import (
	"context"
	"time"

	"github.com/mmynk/backstack/internal/resource"
)

// Create validates payload, persists the related instances named in
// RelatedToPersist, then the new row, all in one transaction.
func (e *Engine) Create(ctx context.Context, res *Resource, req *Request, payload map[string]any) (m resource.Model, err error) {
	start := time.Now()
	defer func() { e.observe(res, ActionCreate, start, err) }()

	d := res.Descriptor
	e.log(ctx).Info("Create request received", "resource", d.Name)

	if err := e.authorize(res, ActionCreate, req); err != nil {
		return nil, e.fail(ctx, nil, res, ActionCreate, err)
	}

	payload = withDefaults(payload, res.InsertDefaults, req)
	m = d.New()
	children, err := e.decode(res, payload, m)
	if err != nil {
		return nil, e.fail(ctx, nil, res, ActionCreate, err)
	}

	stampCreate(res, req, m)
	if hook := res.Hooks.PreCreate; hook != nil {
		if err := hook(ctx, req, m); err != nil {
			return nil, e.fail(ctx, nil, res, ActionCreate, err)
		}
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, e.fail(ctx, nil, res, ActionCreate, err)
	}
	defer tx.Rollback()

	if err := e.cascadeCreate(ctx, tx, res, req, m, children); err != nil {
		return nil, e.fail(ctx, tx, res, ActionCreate, err)
	}

	saved, err := e.insert(ctx, tx, res, m)
	if err != nil {
		return nil, e.fail(ctx, tx, res, ActionCreate, err)
	}
	if saved != m {
		for _, c := range children {
			c.rel.Attach(saved, c.rel.Related(m))
		}
		m = saved
	}

	if hook := res.Hooks.BeforeCreateCommit; hook != nil {
		if err := hook(ctx, tx, m); err != nil {
			return nil, e.fail(ctx, tx, res, ActionCreate, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, e.fail(ctx, tx, res, ActionCreate, err)
	}

	e.log(ctx).Info("Resource created", "resource", d.Name, "id", m.GetID())
	if hook := res.Hooks.AfterCreate; hook != nil {
		hook(ctx, m)
	}
	return m, nil
}

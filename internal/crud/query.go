package crud

import (
	"context"
	"time"

	"github.com/mmynk/backstack/internal/pagination"
	"github.com/mmynk/backstack/internal/resource"
	"github.com/mmynk/backstack/internal/storage"
)

// List returns one page of the rows matching the request filters, ordered by
// id. A storage failure while paging yields an empty page.
func (e *Engine) List(ctx context.Context, res *Resource, req *Request) (page pagination.Page[resource.Model], err error) {
	start := time.Now()
	defer func() { e.observe(res, ActionList, start, err) }()

	d := res.Descriptor
	e.log(ctx).Info("List request received", "resource", d.Name)

	if err := e.authorize(res, ActionList, req); err != nil {
		return page, e.fail(ctx, nil, res, ActionList, err)
	}
	preds := e.filters(res, ActionList, req)

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return page, e.fail(ctx, nil, res, ActionList, err)
	}
	defer tx.Rollback()

	q := pagination.QueryFuncs[resource.Model]{
		CountFunc: func(ctx context.Context) (int, error) {
			return tx.Count(ctx, d, preds)
		},
		SliceFunc: func(ctx context.Context, offset, limit int) ([]resource.Model, error) {
			return tx.Find(ctx, d, storage.Query{Filters: preds, Limit: limit, Offset: offset})
		},
	}

	number, size := pagination.ParseParams(req.Query)
	page, err = pagination.Paginate[resource.Model](ctx, q, number, size)
	if err != nil {
		e.log(ctx).Error("Failed to paginate", "resource", d.Name, "error", err)
	}
	return page, nil
}

// Get returns the single row matching the request filters.
func (e *Engine) Get(ctx context.Context, res *Resource, req *Request) (m resource.Model, err error) {
	start := time.Now()
	defer func() { e.observe(res, ActionGet, start, err) }()

	d := res.Descriptor
	e.log(ctx).Info("Get request received", "resource", d.Name, "path", req.Path)

	if err := e.authorize(res, ActionGet, req); err != nil {
		return nil, e.fail(ctx, nil, res, ActionGet, err)
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, e.fail(ctx, nil, res, ActionGet, err)
	}
	defer tx.Rollback()

	m, err = findOne(ctx, tx, d, e.filters(res, ActionGet, req))
	if err != nil {
		return nil, e.fail(ctx, tx, res, ActionGet, err)
	}
	if err := e.authorizeRow(res, ActionGet, req, m); err != nil {
		return nil, e.fail(ctx, tx, res, ActionGet, err)
	}
	return m, nil
}

// Delete removes the single row matching the request filters. Soft-deletable
// types are only marked deleted.
func (e *Engine) Delete(ctx context.Context, res *Resource, req *Request) (err error) {
	start := time.Now()
	defer func() { e.observe(res, ActionDelete, start, err) }()

	d := res.Descriptor
	e.log(ctx).Info("Delete request received", "resource", d.Name, "path", req.Path)

	if err := e.authorize(res, ActionDelete, req); err != nil {
		return e.fail(ctx, nil, res, ActionDelete, err)
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return e.fail(ctx, nil, res, ActionDelete, err)
	}
	defer tx.Rollback()

	m, err := findOne(ctx, tx, d, e.filters(res, ActionDelete, req))
	if err != nil {
		return e.fail(ctx, tx, res, ActionDelete, err)
	}
	if err := e.authorizeRow(res, ActionDelete, req, m); err != nil {
		return e.fail(ctx, tx, res, ActionDelete, err)
	}
	if err := tx.Delete(ctx, d, m.GetID()); err != nil {
		return e.fail(ctx, tx, res, ActionDelete, err)
	}
	if err := tx.Commit(); err != nil {
		return e.fail(ctx, tx, res, ActionDelete, err)
	}

	e.log(ctx).Info("Resource deleted", "resource", d.Name, "id", m.GetID())
	return nil
}

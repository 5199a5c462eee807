// Package crud turns resource requests into filtered queries and transactional
// writes.
//
// # Operations
//
// Engine exposes List, Get, Create, Update and Delete. Each runs in a single
// storage transaction. Failures are rolled back and returned as *apperr.Error.
//
// # Create and update
//
// Create validates the payload, stamps audit fields, runs the PreCreate hook,
// persists the related instances named in Resource.RelatedToPersist (each
// flushed before the parent so its id can be linked), flushes the parent, runs
// BeforeCreateCommit, commits and finally runs AfterCreate. Update follows the
// same sequence after fetching exactly one existing row through the composed
// filters.
package crud

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/mmynk/backstack/internal/apperr"
	"github.com/mmynk/backstack/internal/auth"
	"github.com/mmynk/backstack/internal/filter"
	"github.com/mmynk/backstack/internal/metrics"
	"github.com/mmynk/backstack/internal/resource"
	"github.com/mmynk/backstack/internal/storage"
	"github.com/mmynk/backstack/pkg/logging"
)

// Action names an engine operation.
type Action string

const (
	ActionList   Action = "list"
	ActionGet    Action = "get"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Access is the policy guarding an action.
type Access int

const (
	// Public allows anonymous callers.
	Public Access = iota
	// LoginRequired requires a principal.
	LoginRequired
	// OwnerRequired requires the principal to own the row. Lists are
	// restricted to the principal's rows.
	OwnerRequired
	// AdminRequired requires an admin principal.
	AdminRequired
	// OwnerOrAdmin is OwnerRequired with an exemption for admins.
	OwnerOrAdmin
)

// Request carries the caller context of one operation.
type Request struct {
	// Principal is nil for anonymous requests.
	Principal *auth.Principal

	// Origin is the network address of the caller.
	Origin string

	// Path holds the URL path captures.
	Path map[string]string

	// Query holds the query-string parameters.
	Query url.Values
}

func (r *Request) principalID() int64 {
	if r.Principal == nil {
		return 0
	}
	return r.Principal.ID
}

func (r *Request) admin() bool {
	return r.Principal != nil && r.Principal.Admin
}

// Hooks are optional callbacks around create and update.
type Hooks struct {
	// PreCreate runs after validation and before the transaction starts.
	PreCreate func(ctx context.Context, req *Request, m resource.Model) error

	// BeforeCreateCommit runs inside the transaction after every flush.
	BeforeCreateCommit func(ctx context.Context, tx storage.Tx, m resource.Model) error

	// AfterCreate runs after commit. It cannot fail the request.
	AfterCreate func(ctx context.Context, m resource.Model)

	// PreUpdate runs before mutation with the stored and the incoming state.
	// Returning an error vetoes the update.
	PreUpdate func(ctx context.Context, req *Request, existing, incoming resource.Model) error

	// BeforeUpdateCommit runs inside the transaction after every flush.
	BeforeUpdateCommit func(ctx context.Context, tx storage.Tx, m resource.Model) error

	// AfterUpdate runs after commit. It cannot fail the request.
	AfterUpdate func(ctx context.Context, m resource.Model)
}

// Resource configures how one endpoint operates on a resource type.
type Resource struct {
	Descriptor *resource.Descriptor

	// Filter declares default, path and query filters.
	Filter filter.Config

	// FilterByOwner restricts every query to rows owned by the principal and
	// requires a principal.
	FilterByOwner bool

	// SaveCreator stamps the principal as owner of created rows.
	SaveCreator bool

	// RelatedToPersist names the relations cascaded from nested payload objects.
	RelatedToPersist []string

	// RelatedToUpdate names the relations whose already linked row is updated
	// in place on update instead of a new row being inserted.
	RelatedToUpdate []string

	// IgnoreUniqueErrors lists columns ("label" or "tags.label") whose unique
	// violations reuse the existing row instead of failing.
	IgnoreUniqueErrors []string

	// InsertDefaults and UpdateDefaults fill payload keys that are absent.
	InsertDefaults func(req *Request) map[string]any
	UpdateDefaults func(req *Request) map[string]any

	Hooks Hooks

	// Access maps actions to policies. Missing actions are Public.
	Access map[Action]Access
}

func (r *Resource) access(a Action) Access {
	return r.Access[a]
}

// Engine executes resource operations against a store.
type Engine struct {
	store    storage.Store
	registry *resource.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewEngine creates an engine. m may be nil.
func NewEngine(store storage.Store, registry *resource.Registry, logger *slog.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		logger:   logger,
		metrics:  m,
	}
}

func (e *Engine) log(ctx context.Context) *slog.Logger {
	if logger, ok := logging.Lookup(ctx); ok {
		return logger
	}
	return e.logger
}

// authorize applies the action's policy before any storage access.
func (e *Engine) authorize(res *Resource, action Action, req *Request) error {
	switch res.access(action) {
	case LoginRequired, OwnerRequired, OwnerOrAdmin:
		if req.Principal == nil {
			return apperr.Unauthenticated()
		}
	case AdminRequired:
		if req.Principal == nil {
			return apperr.Unauthenticated()
		}
		if !req.Principal.Admin {
			return apperr.Unauthorized()
		}
	}
	if res.FilterByOwner && req.Principal == nil {
		return apperr.Unauthenticated()
	}
	return nil
}

// authorizeRow applies ownership policies to a fetched row.
func (e *Engine) authorizeRow(res *Resource, action Action, req *Request, m resource.Model) error {
	switch res.access(action) {
	case OwnerRequired:
		if resource.OwnerOf(m) != req.principalID() {
			return apperr.Unauthorized()
		}
	case OwnerOrAdmin:
		if !req.admin() && resource.OwnerOf(m) != req.principalID() {
			return apperr.Unauthorized()
		}
	}
	return nil
}

// filters composes the predicates for an action.
func (e *Engine) filters(res *Resource, action Action, req *Request) []filter.Predicate {
	owned := res.FilterByOwner
	if action == ActionList {
		switch res.access(action) {
		case OwnerRequired:
			owned = true
		case OwnerOrAdmin:
			owned = owned || !req.admin()
		}
	}
	return filter.Compose(res.Descriptor, res.Filter, req.Path, req.Query, req.principalID(), owned)
}

// fail rolls tx back and translates err.
func (e *Engine) fail(ctx context.Context, tx storage.Tx, res *Resource, action Action, err error) *apperr.Error {
	if tx != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.log(ctx).Error("Failed to roll back", "resource", res.Descriptor.Name, "action", action, "error", rbErr)
		}
	}
	appErr := apperr.Translate(err)
	if appErr.Kind() == apperr.KindServer {
		e.log(ctx).Error("Request failed", "resource", res.Descriptor.Name, "action", action, "error", err)
	} else {
		e.log(ctx).Debug("Request rejected", "resource", res.Descriptor.Name, "action", action, "error", err)
	}
	return appErr
}

// observe records the outcome of an operation.
func (e *Engine) observe(res *Resource, action Action, start time.Time, err error) {
	e.metrics.ObserveOperation(res.Descriptor.Name, string(action), err == nil, time.Since(start))
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		e.metrics.ObserveError(res.Descriptor.Name, string(appErr.Kind()), string(appErr.Code()))
	}
}

// findOne returns the single row matching preds, or a not_found error.
func findOne(ctx context.Context, tx storage.Tx, d *resource.Descriptor, preds []filter.Predicate) (resource.Model, error) {
	rows, err := tx.Find(ctx, d, storage.Query{Filters: preds, Limit: 2})
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, apperr.NotFound()
	}
	return rows[0], nil
}

// reload reads m's row again, excluding soft-deleted rows.
func reload(ctx context.Context, tx storage.Tx, d *resource.Descriptor, id int64) (resource.Model, error) {
	preds := []filter.Predicate{filter.Eq("id", id)}
	if d.SoftDeleteColumn != "" {
		preds = append(preds, filter.IsNull(d.SoftDeleteColumn))
	}
	return findOne(ctx, tx, d, preds)
}

// Package storage provides abstractions for persistent resource storage.
package storage

import (
	"context"

	"github.com/mmynk/backstack/internal/filter"
	"github.com/mmynk/backstack/internal/resource"
)

// Store opens request-scoped transactions.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the engine.
type Store interface {
	// BeginTx starts a new transaction bound to ctx.
	BeginTx(ctx context.Context) (Tx, error)

	// Close releases any resources held by the store.
	Close() error
}

// Query selects rows of one resource type.
type Query struct {
	Filters []filter.Predicate
	Limit   int
	Offset  int
}

// Tx is a single unit of work. Every write is flushed immediately so that
// constraint violations surface at the statement that caused them.
type Tx interface {
	// Insert persists m and assigns its id and server-side defaults.
	// Returns a *ConstraintError on integrity violations.
	Insert(ctx context.Context, m resource.Model) error

	// Update writes every writable column of m.
	// Returns ErrNotFound if the row does not exist.
	Update(ctx context.Context, m resource.Model) error

	// Delete removes the row, or marks it deleted for soft-deletable types.
	// Returns ErrNotFound if the row does not exist.
	Delete(ctx context.Context, d *resource.Descriptor, id int64) error

	// Find returns matching rows ordered by id ascending. A zero Limit means no limit.
	Find(ctx context.Context, d *resource.Descriptor, q Query) ([]resource.Model, error)

	// Count returns the number of matching rows.
	Count(ctx context.Context, d *resource.Descriptor, filters []filter.Predicate) (int, error)

	Commit() error

	// Rollback aborts the transaction. Calling it after Commit is a no-op.
	Rollback() error
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/backstack/internal/filter"
	"github.com/mmynk/backstack/internal/resource"
	"github.com/mmynk/backstack/internal/storage"
)

var _ storage.Tx = (*sqliteTx)(nil)

// sqliteTx implements storage.Tx on a database/sql transaction.
type sqliteTx struct {
	tx *sql.Tx
}

// Insert writes m and reads back its id and read-only columns.
func (t *sqliteTx) Insert(ctx context.Context, m resource.Model) error {
	d := m.Descriptor()

	var names []string
	var args []any
	returning := []string{quote("id")}
	var id int64
	dests := []any{&id}
	for _, c := range m.Columns() {
		if c.ReadOnly {
			returning = append(returning, quote(c.Name))
			dests = append(dests, c.Dest)
			continue
		}
		names = append(names, quote(c.Name))
		args = append(args, c.Value)
	}

	var query string
	if len(names) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s",
			quote(d.Table), strings.Join(returning, ", "))
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			quote(d.Table), strings.Join(names, ", "), placeholders(len(names)), strings.Join(returning, ", "))
	}

	if err := t.tx.QueryRowContext(ctx, query, args...).Scan(dests...); err != nil {
		return t.writeError(ctx, m, "insert into", err)
	}
	m.SetID(id)
	return nil
}

// Update writes every writable column of m. Soft-deleted rows are not updated.
func (t *sqliteTx) Update(ctx context.Context, m resource.Model) error {
	d := m.Descriptor()

	var sets []string
	var args []any
	for _, c := range m.Columns() {
		if c.ReadOnly {
			continue
		}
		sets = append(sets, quote(c.Name)+" = ?")
		args = append(args, c.Value)
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", quote(d.Table), strings.Join(sets, ", "))
	if d.SoftDeleteColumn != "" {
		query += fmt.Sprintf(" AND %s IS NULL", quote(d.SoftDeleteColumn))
	}
	args = append(args, m.GetID())

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return t.writeError(ctx, m, "update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", storage.ErrNotFound, d.Name, m.GetID())
	}
	return nil
}

// Delete removes a row, or stamps its soft-delete column with the current time.
// A foreign-key failure is attributed to the id column.
func (t *sqliteTx) Delete(ctx context.Context, d *resource.Descriptor, id int64) error {
	var query string
	if d.SoftDeleteColumn != "" {
		col := quote(d.SoftDeleteColumn)
		query = fmt.Sprintf("UPDATE %s SET %s = CAST(strftime('%%s','now') AS INTEGER) WHERE id = ? AND %s IS NULL",
			quote(d.Table), col, col)
	} else {
		query = fmt.Sprintf("DELETE FROM %s WHERE id = ?", quote(d.Table))
	}

	res, err := t.tx.ExecContext(ctx, query, id)
	if err != nil {
		cerr := classify(err)
		var c *storage.ConstraintError
		if errors.As(cerr, &c) && c.Kind == storage.ConstraintForeignKey {
			c.Table, c.Column = d.Table, "id"
		}
		return fmt.Errorf("failed to delete from %s: %w", d.Table, cerr)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", storage.ErrNotFound, d.Name, id)
	}
	return nil
}

// Find returns matching rows ordered by id.
func (t *sqliteTx) Find(ctx context.Context, d *resource.Descriptor, q storage.Query) ([]resource.Model, error) {
	where, args, err := whereClause(q.Filters)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	cols, _ := selectColumns(d.New())
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id ASC", cols, quote(d.Table), where)
	switch {
	case q.Limit > 0:
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	case q.Offset > 0:
		query += " LIMIT -1 OFFSET ?"
		args = append(args, q.Offset)
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", d.Table, classify(err))
	}
	defer rows.Close()

	var out []resource.Model
	for rows.Next() {
		m := d.New()
		_, dests := selectColumns(m)
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", d.Table, err)
		}
		m.SetID(*dests[0].(*int64))
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", d.Table, err)
	}
	return out, nil
}

// Count returns the number of matching rows.
func (t *sqliteTx) Count(ctx context.Context, d *resource.Descriptor, filters []filter.Predicate) (int, error) {
	where, args, err := whereClause(filters)
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quote(d.Table), where)
	if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", d.Table, classify(err))
	}
	return n, nil
}

func (t *sqliteTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

func (t *sqliteTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// writeError classifies a failed write of m and attributes foreign-key
// violations to the offending column.
func (t *sqliteTx) writeError(ctx context.Context, m resource.Model, op string, err error) error {
	cerr := classify(err)
	var c *storage.ConstraintError
	if errors.As(cerr, &c) && c.Kind == storage.ConstraintForeignKey {
		attributeForeignKey(ctx, t.tx, m, c)
	}
	return fmt.Errorf("failed to %s %s: %w", op, m.Descriptor().Table, cerr)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mmynk/backstack/internal/resource"
	"github.com/mmynk/backstack/internal/storage"
)

// constraintColumn extracts "table.column" from messages such as
// "UNIQUE constraint failed: notes.slug".
var constraintColumn = regexp.MustCompile(`constraint failed: (\w+)\.(\w+)`)

// classify converts a driver error into a storage error. Errors that are not
// integrity or type failures are returned unchanged.
func classify(err error) error {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return err
	}

	code := serr.Code()
	msg := serr.Error()

	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_DATATYPE,
		code == sqlite3.SQLITE_MISMATCH,
		code == sqlite3.SQLITE_TOOBIG,
		strings.Contains(msg, "cannot store"):
		return fmt.Errorf("%w: %v", storage.ErrDataMismatch, err)
	}

	var kind storage.ConstraintKind
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		strings.Contains(msg, "UNIQUE constraint failed"):
		kind = storage.ConstraintUnique
	case code == sqlite3.SQLITE_CONSTRAINT_NOTNULL,
		strings.Contains(msg, "NOT NULL constraint failed"):
		kind = storage.ConstraintNotNull
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
		strings.Contains(msg, "FOREIGN KEY constraint failed"):
		kind = storage.ConstraintForeignKey
	case code == sqlite3.SQLITE_CONSTRAINT_CHECK,
		strings.Contains(msg, "CHECK constraint failed"):
		kind = storage.ConstraintCheck
	default:
		return err
	}

	cerr := &storage.ConstraintError{Kind: kind, Err: err}
	if m := constraintColumn.FindStringSubmatch(msg); m != nil {
		cerr.Table, cerr.Column = m[1], m[2]
	}
	return cerr
}

// attributeForeignKey fills in the column of a foreign-key violation raised
// while writing m. SQLite does not report which reference failed, so each
// declared foreign key value is checked against its table inside the same
// transaction. The first dangling reference wins.
func attributeForeignKey(ctx context.Context, tx *sql.Tx, m resource.Model, cerr *storage.ConstraintError) {
	d := m.Descriptor()
	cerr.Table = d.Table
	for _, fk := range d.ForeignKeys {
		v, ok := resource.ColumnValue(m, fk.Column)
		if !ok || v == nil {
			continue
		}
		var exists bool
		q := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = ?)", quote(fk.References))
		if err := tx.QueryRowContext(ctx, q, v).Scan(&exists); err != nil {
			return
		}
		if !exists {
			cerr.Column = fk.Column
			return
		}
	}
}

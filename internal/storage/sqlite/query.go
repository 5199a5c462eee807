package sqlite

import (
	"fmt"
	"strings"

	"github.com/mmynk/backstack/internal/filter"
	"github.com/mmynk/backstack/internal/resource"
)

// quote returns name as a quoted SQL identifier.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// placeholders returns "?, ?, ..." with n placeholders.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// whereClause renders predicates as an ANDed WHERE clause with its arguments.
// An empty predicate list renders as an empty string.
func whereClause(preds []filter.Predicate) (string, []any, error) {
	if len(preds) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(preds))
	var args []any
	for _, p := range preds {
		sql, a, err := renderPredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, a...)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func renderPredicate(p filter.Predicate) (string, []any, error) {
	switch p.Op {
	case filter.OpEq:
		if len(p.Values) != 1 {
			return "", nil, fmt.Errorf("equality on %q needs one value, got %d", p.Column, len(p.Values))
		}
		if p.Values[0] == nil {
			return quote(p.Column) + " IS NULL", nil, nil
		}
		return quote(p.Column) + " = ?", p.Values, nil
	case filter.OpIn:
		if len(p.Values) == 0 {
			return "1 = 0", nil, nil
		}
		return fmt.Sprintf("%s IN (%s)", quote(p.Column), placeholders(len(p.Values))), p.Values, nil
	case filter.OpIsNull:
		return quote(p.Column) + " IS NULL", nil, nil
	case filter.OpAny:
		if len(p.Any) == 0 {
			return "1 = 0", nil, nil
		}
		parts := make([]string, 0, len(p.Any))
		var args []any
		for _, alt := range p.Any {
			sql, a, err := renderPredicate(alt)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			args = append(args, a...)
		}
		return "(" + strings.Join(parts, " OR ") + ")", args, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate operator %d", p.Op)
	}
}

// selectColumns returns the quoted column list of d, id first, and the scan
// destinations into m in the same order.
func selectColumns(m resource.Model) (string, []any) {
	cols := m.Columns()
	names := make([]string, 0, len(cols)+1)
	names = append(names, quote("id"))
	var id int64
	dests := make([]any, 0, len(cols)+1)
	dests = append(dests, &id)
	for _, c := range cols {
		names = append(names, quote(c.Name))
		dests = append(dests, c.Dest)
	}
	return strings.Join(names, ", "), dests
}

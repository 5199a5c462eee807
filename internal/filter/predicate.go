// Package filter composes the predicates that restrict resource queries.
package filter

// Op is a predicate operator.
type Op int

const (
	// OpEq matches rows whose column equals the single value.
	OpEq Op = iota + 1
	// OpIn matches rows whose column equals any of the values.
	OpIn
	// OpIsNull matches rows whose column is NULL.
	OpIsNull
	// OpAny matches rows satisfying any of the nested predicates.
	OpAny
)

// Predicate is a single query condition. Predicates in a list are ANDed.
type Predicate struct {
	Op     Op
	Column string
	Values []any
	Any    []Predicate
}

// Eq returns an equality predicate.
func Eq(column string, value any) Predicate {
	return Predicate{Op: OpEq, Column: column, Values: []any{value}}
}

// In returns a membership predicate.
func In(column string, values ...any) Predicate {
	return Predicate{Op: OpIn, Column: column, Values: values}
}

// IsNull returns a NULL check.
func IsNull(column string) Predicate {
	return Predicate{Op: OpIsNull, Column: column}
}

// AnyOf returns a disjunction of predicates.
func AnyOf(preds ...Predicate) Predicate {
	return Predicate{Op: OpAny, Any: preds}
}

package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a row addressed by id does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrDataMismatch is returned when a value does not fit its column type.
	ErrDataMismatch = errors.New("storage: data type mismatch")
)

// ConstraintKind identifies the integrity rule that was violated.
type ConstraintKind int

const (
	ConstraintUnique ConstraintKind = iota + 1
	ConstraintNotNull
	ConstraintForeignKey
	ConstraintCheck
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "unique"
	case ConstraintNotNull:
		return "not null"
	case ConstraintForeignKey:
		return "foreign key"
	case ConstraintCheck:
		return "check"
	default:
		return "unknown"
	}
}

// ConstraintError is a classified integrity violation. Column is empty when
// the offending column could not be determined.
type ConstraintError struct {
	Kind   ConstraintKind
	Table  string
	Column string
	Err    error
}

func (e *ConstraintError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s constraint failed on %s: %v", e.Kind, e.Table, e.Err)
	}
	return fmt.Sprintf("%s constraint failed on %s.%s: %v", e.Kind, e.Table, e.Column, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

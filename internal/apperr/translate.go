package apperr

import (
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/backstack/internal/storage"
)

// Translate converts a failure raised while saving or querying into an *Error.
// An *Error anywhere in the chain is returned unchanged.
func Translate(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var cerr *storage.ConstraintError
	if errors.As(err, &cerr) {
		field := cerr.Column
		if field == "" {
			field = GlobalField
		}
		switch cerr.Kind {
		case storage.ConstraintUnique:
			return withCause(Field(field, CodeDuplicateUniqueValue), err)
		case storage.ConstraintNotNull:
			return withCause(Field(field, CodeRequiredField), err)
		case storage.ConstraintForeignKey:
			return withCause(Field(field, CodeInvalidInput), err)
		}
	}

	switch {
	case errors.Is(err, storage.ErrDataMismatch):
		return Server(http.StatusBadRequest, err)
	case errors.Is(err, storage.ErrNotFound):
		return withCause(NotFound(), err)
	}

	var diag Diagnoser
	if errors.As(err, &diag) {
		if context := diag.Diagnostics(); len(context) > 0 {
			return ServerWithContext(http.StatusInternalServerError, err, context)
		}
	}
	return Server(http.StatusInternalServerError, err)
}

func withCause(e *Error, cause error) *Error {
	e.cause = cause
	return e
}

// ConnectCode maps the error kind onto a Connect status code.
func (e *Error) ConnectCode() connect.Code {
	switch e.kind {
	case KindValidation, KindField:
		return connect.CodeInvalidArgument
	case KindNotFound:
		return connect.CodeNotFound
	case KindUnauthenticated:
		return connect.CodeUnauthenticated
	case KindUnauthorized:
		return connect.CodePermissionDenied
	default:
		if e.status < http.StatusInternalServerError {
			return connect.CodeInvalidArgument
		}
		return connect.CodeInternal
	}
}

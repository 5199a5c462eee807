// Package apperr defines the structured errors returned to API callers and
// the translation of storage failures into them.
//
// Every failure that leaves the engine is an *Error. Its Payload groups codes
// under one of three class keys:
//
//	{"_schema": {"title": "INVALID_TYPE"}}           validation
//	{"_model":  {"slug": "DUPLICATE_UNIQUE_VALUE"}}  field
//	{"_server": {"__global__": "NOT_FOUND"}}         everything else
package apperr

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
)

// Kind classifies an Error.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindField           Kind = "field"
	KindNotFound        Kind = "not_found"
	KindUnauthenticated Kind = "unauthenticated"
	KindUnauthorized    Kind = "unauthorized"
	KindServer          Kind = "server"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeRequiredField            Code = "REQUIRED_FIELD"
	CodeInvalidType              Code = "INVALID_TYPE"
	CodeNotNullField             Code = "NOT_NULL_FIELD"
	CodeInvalidInput             Code = "INVALID_INPUT"
	CodePasswordWeak             Code = "PASSWORD_WEAK"
	CodePasswordMismatch         Code = "PASSWORD_MISMATCH"
	CodeAuthEmailPasswordInvalid Code = "AUTH_EMAIL_PASSWORD_INVALID"
	CodeNotFound                 Code = "NOT_FOUND"
	CodeServerError              Code = "SERVER_ERROR"
	CodeUnauthenticated          Code = "UNAUTHENTICATED"
	CodeUnauthorized             Code = "UNAUTHORIZED"
	CodeDuplicateUniqueValue     Code = "DUPLICATE_UNIQUE_VALUE"
)

// GlobalField keys codes that are not attributable to a single field.
const GlobalField = "__global__"

// Payload class keys.
const (
	classSchema = "_schema"
	classModel  = "_model"
	classServer = "_server"
)

// Diagnostic is one entry of structured diagnostic context.
type Diagnostic struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Diagnoser is implemented by failures that carry structured diagnostics.
// Only such failures contribute context to server errors.
type Diagnoser interface {
	Diagnostics() []Diagnostic
}

// Error is an immutable, field-addressable API error.
type Error struct {
	kind    Kind
	code    Code
	fields  map[string]Code
	status  int
	context []Diagnostic
	cause   error
}

// Validation returns a validation error with one code per field.
func Validation(fields map[string]Code) *Error {
	return &Error{
		kind:   KindValidation,
		code:   CodeInvalidInput,
		fields: maps.Clone(fields),
		status: http.StatusBadRequest,
	}
}

// Field returns an error attributed to a single field.
func Field(field string, code Code) *Error {
	return &Error{
		kind:   KindField,
		code:   code,
		fields: map[string]Code{field: code},
		status: http.StatusBadRequest,
	}
}

// NotFound returns a not_found error.
func NotFound() *Error {
	return &Error{kind: KindNotFound, code: CodeNotFound, status: http.StatusNotFound}
}

// Unauthenticated returns an unauthenticated error.
func Unauthenticated() *Error {
	return &Error{kind: KindUnauthenticated, code: CodeUnauthenticated, status: http.StatusUnauthorized}
}

// Unauthorized returns an unauthorized error.
func Unauthorized() *Error {
	return &Error{kind: KindUnauthorized, code: CodeUnauthorized, status: http.StatusForbidden}
}

// Server returns a generic server error wrapping cause.
func Server(status int, cause error) *Error {
	return &Error{kind: KindServer, code: CodeServerError, status: status, cause: cause}
}

// ServerWithContext returns a server error carrying diagnostics.
func ServerWithContext(status int, cause error, context []Diagnostic) *Error {
	e := Server(status, cause)
	e.context = slices.Clone(context)
	return e
}

// Kind returns the error kind.
func (e *Error) Kind() Kind { return e.kind }

// Code returns the primary code. For validation errors with several fields
// this is INVALID_INPUT; use Fields for the per-field codes.
func (e *Error) Code() Code { return e.code }

// Fields returns a copy of the per-field codes.
func (e *Error) Fields() map[string]Code { return maps.Clone(e.fields) }

// Context returns the diagnostic context of a server error.
func (e *Error) Context() []Diagnostic { return slices.Clone(e.context) }

// Status returns the HTTP status for the error.
func (e *Error) Status() int { return e.status }

// Nest returns a copy whose field names are prefixed with prefix and a dot.
// Errors without fields are returned unchanged.
func (e *Error) Nest(prefix string) *Error {
	if len(e.fields) == 0 {
		return e
	}
	nested := *e
	nested.fields = make(map[string]Code, len(e.fields))
	for f, c := range e.fields {
		nested.fields[prefix+"."+f] = c
	}
	return &nested
}

// Payload renders the error as a wire payload made of plain maps, slices and strings.
func (e *Error) Payload() map[string]any {
	switch e.kind {
	case KindValidation:
		return map[string]any{classSchema: fieldPayload(e.fields)}
	case KindField:
		return map[string]any{classModel: fieldPayload(e.fields)}
	}

	var global any = string(e.code)
	if len(e.context) > 0 {
		ctx := make([]any, len(e.context))
		for i, d := range e.context {
			ctx[i] = map[string]any{"code": d.Code, "detail": d.Detail}
		}
		global = map[string]any{"error": string(e.code), "context": ctx}
	}
	return map[string]any{classServer: map[string]any{GlobalField: global}}
}

func fieldPayload(fields map[string]Code) map[string]any {
	out := make(map[string]any, len(fields))
	for f, c := range fields {
		out[f] = string(c)
	}
	return out
}

// Public describes the error by kind and codes only. Unlike Error it never
// includes the underlying cause, so it is safe to return to clients.
func (e *Error) Public() string {
	var b strings.Builder
	b.WriteString(string(e.kind))
	if len(e.fields) > 0 {
		for _, f := range slices.Sorted(maps.Keys(e.fields)) {
			fmt.Fprintf(&b, " %s=%s", f, e.fields[f])
		}
	} else {
		b.WriteString(" ")
		b.WriteString(string(e.code))
	}
	return b.String()
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Public()
	}
	return e.Public() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

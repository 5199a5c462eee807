package filter

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/mmynk/backstack/internal/resource"
)

// Kind is the value type of a filterable field. Query-string values that do
// not parse as the field's kind are dropped.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
)

// Field is a filterable column.
type Field struct {
	Column string
	Kind   Kind
}

// Config declares where filter values may come from for one endpoint.
type Config struct {
	// Defaults are always applied, after the descriptor's soft-delete exclusion.
	Defaults []Predicate

	// PathFields maps a URL path capture to one or more columns. A capture
	// mapped to several columns matches rows where any of them equals the value.
	PathFields map[string][]string

	// QueryParams is the allow-list of query-string keys and their columns.
	QueryParams map[string]Field
}

// Compose builds the predicate list for a request. Inputs that are not
// allow-listed or do not parse are ignored. The ownership predicate is only
// added when ownership is required and a principal id is present.
func Compose(d *resource.Descriptor, cfg Config, path map[string]string, query url.Values, principalID int64, ownershipRequired bool) []Predicate {
	var preds []Predicate

	if d.SoftDeleteColumn != "" {
		preds = append(preds, IsNull(d.SoftDeleteColumn))
	}
	preds = append(preds, cfg.Defaults...)
	preds = append(preds, pathPredicates(cfg.PathFields, path)...)
	preds = append(preds, queryPredicates(cfg.QueryParams, query)...)

	if ownershipRequired && d.OwnerColumn != "" && principalID != 0 {
		preds = append(preds, Eq(d.OwnerColumn, principalID))
	}
	return preds
}

func pathPredicates(fields map[string][]string, path map[string]string) []Predicate {
	var preds []Predicate
	for _, key := range sortedKeys(path) {
		columns, ok := fields[key]
		if !ok || len(columns) == 0 {
			continue
		}
		value := path[key]
		if len(columns) == 1 {
			preds = append(preds, Eq(columns[0], value))
			continue
		}
		alts := make([]Predicate, len(columns))
		for i, col := range columns {
			alts[i] = Eq(col, value)
		}
		preds = append(preds, AnyOf(alts...))
	}
	return preds
}

func queryPredicates(fields map[string]Field, query url.Values) []Predicate {
	var preds []Predicate
	for _, key := range sortedKeys(query) {
		field, ok := fields[key]
		if !ok {
			continue
		}
		var values []any
		for _, raw := range query[key] {
			if v, ok := parse(field.Kind, raw); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		preds = append(preds, In(field.Column, values...))
	}
	return preds
}

func parse(kind Kind, raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		return n, err == nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		return b, err == nil
	default:
		return raw, raw != ""
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	return slices.Sorted(maps.Keys(m))
}

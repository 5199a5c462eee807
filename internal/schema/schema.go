// Package schema converts wire payloads into typed models and back.
//
// Payload keys are matched against `json` struct tags. Decoding is strict:
// unknown keys, values of the wrong type and nulls for non-nullable fields are
// reported as validation errors keyed by field name.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/mmynk/backstack/internal/apperr"
)

// ReadOnlyFields are assigned by the server and silently dropped from payloads.
var ReadOnlyFields = []string{"id", "created_at", "created_from", "created_by", "updated_by"}

// quotedName matches the field name in mapstructure error messages such as
// "'priority' expected type 'int64', got unconvertible type 'string'".
var quotedName = regexp.MustCompile(`'([^']*)'`)

// Load decodes payload into the struct pointed to by into. Keys in skip and
// ReadOnlyFields are ignored. Only keys present in payload are written, so
// loading onto an existing value applies a partial update.
func Load(payload map[string]any, into any, skip ...string) error {
	input := make(map[string]any, len(payload))
	for k, v := range payload {
		if slices.Contains(ReadOnlyFields, k) || slices.Contains(skip, k) {
			continue
		}
		input[k] = v
	}

	fields := map[string]apperr.Code{}

	// "-" is the tag of fields that must never be decoded.
	if _, ok := input["-"]; ok {
		fields["-"] = apperr.CodeInvalidInput
		delete(input, "-")
	}

	nonNullable := nonNullableFields(into)
	for k, v := range input {
		if v == nil && nonNullable[k] {
			fields[k] = apperr.CodeNotNullField
			delete(input, k)
		}
	}

	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:           mapstructure.DecodeHookFuncType(rejectFractions),
		Metadata:             &md,
		Result:               into,
		TagName:              "json",
		Squash:               true,
		ZeroFields:           true,
		IgnoreUntaggedFields: true,
		MatchName:            func(mapKey, fieldName string) bool { return mapKey == fieldName },
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := dec.Decode(input); err != nil {
		var merr *mapstructure.Error
		if !errors.As(err, &merr) {
			fields[apperr.GlobalField] = apperr.CodeInvalidInput
		} else {
			for _, msg := range merr.Errors {
				fields[fieldFromMessage(msg)] = apperr.CodeInvalidType
			}
		}
	}
	for _, k := range md.Unused {
		fields[k] = apperr.CodeInvalidInput
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

// Dump renders v as a wire map using its json tags.
func Dump(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %T: %w", v, err)
	}
	return out, nil
}

func fieldFromMessage(msg string) string {
	m := quotedName.FindStringSubmatch(msg)
	if m == nil || m[1] == "" {
		return apperr.GlobalField
	}
	return m[1]
}

// rejectFractions refuses non-integral numbers for integer fields. Payload
// numbers arrive as float64 and would otherwise be truncated.
func rejectFractions(from, to reflect.Type, data any) (any, error) {
	f, ok := data.(float64)
	if !ok {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("expected an integer, got %v", f)
		}
	}
	return data, nil
}

// nonNullableFields returns the json names of the non-pointer fields of the
// struct pointed to by v, including fields of embedded structs.
func nonNullableFields(v any) map[string]bool {
	out := map[string]bool{}
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return out
	}
	collectNonNullable(t, out)
	return out
}

func collectNonNullable(t reflect.Type, out map[string]bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			collectNonNullable(f.Type, out)
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		switch f.Type.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		default:
			out[name] = true
		}
	}
}

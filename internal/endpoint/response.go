package endpoint

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mmynk/backstack/internal/apperr"
)

// maxBodyBytes bounds request payloads.
const maxBodyBytes = 1 << 20

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes the structured payload of err with its mapped status.
func WriteError(w http.ResponseWriter, err *apperr.Error) {
	WriteJSON(w, err.Status(), err.Payload())
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// DecodePayload reads a JSON object from the request body. Anything else is a
// validation error on the global field.
func DecodePayload(r *http.Request) (map[string]any, error) {
	invalid := apperr.Validation(map[string]apperr.Code{apperr.GlobalField: apperr.CodeInvalidInput})

	var payload map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		return nil, invalid
	}
	if payload == nil {
		return nil, invalid
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, invalid
	}
	return payload, nil
}

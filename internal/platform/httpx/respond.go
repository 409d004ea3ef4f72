// Package httpx provides JSON response helpers and the error-to-HTTP
// mapping shared by all handlers.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/splitledger/splitledger/internal/shared"
)

// Envelope is the standard success payload shape: data plus any warnings.
type Envelope struct {
	Data     any              `json:"data"`
	Warnings []shared.Warning `json:"warnings"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Data wraps the payload in the standard envelope. Warnings may be empty
// but are always present in the output as an array, never null.
func Data(w http.ResponseWriter, status int, data any, warnings ...shared.Warning) {
	if warnings == nil {
		warnings = []shared.Warning{}
	}
	JSON(w, status, Envelope{Data: data, Warnings: warnings})
}

// DecodeJSON decodes the request body into target, rejecting unknown fields.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

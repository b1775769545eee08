// Package httputil provides the shared JSON response helpers used by every
// HTTP handler. Error bodies follow one envelope so boundary collaborators can
// map codes mechanically.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "profreg/pkg/domain-errors"
)

type errorBody struct {
	Error            string              `json:"error"`
	ErrorDescription string              `json:"error_description,omitempty"`
	Fields           []dErrors.FieldError `json:"fields,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error onto the JSON error envelope. Internal errors
// omit the description so storage details never leak to callers; validation
// errors carry their field-level details.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := ""
	var fields []dErrors.FieldError

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message
		fields = domainErr.Fields
	}

	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		body.ErrorDescription = message
		body.Fields = fields
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

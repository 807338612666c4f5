package web

import (
	"context"
	"encoding/json"
	"net/http"
)

// Respond writes v to the client as JSON with the given status code.
func Respond(ctx context.Context, w http.ResponseWriter, v any, statusCode int) error {
	if values, err := GetValues(ctx); err == nil {
		values.StatusCode = statusCode
	}

	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err := w.Write(data); err != nil {
		return err
	}

	return nil
}

// RequestError wraps an error with a status code and, optionally, a
// set of field-level validation errors.
type RequestError struct {
	Err    error
	Status int
	Fields map[string]string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

// Unwrap supports errors.Is/errors.As against the wrapped error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError constructs a RequestError carrying a status code.
func NewRequestError(err error, status int) error {
	return &RequestError{Err: err, Status: status}
}

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized marks failures caused by bad credentials or an expired
// token. Callers are expected to clear the session when they see it.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response from the backend, carrying the
// backend-provided message when the body was text or JSON and a
// status-derived message otherwise.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match auth failures.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

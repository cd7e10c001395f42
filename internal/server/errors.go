// Package server provides the HTTP REST API for the landing page generator.
package server

import (
	"fmt"
	"net/http"
)

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrRunNotFound indicates no run exists for the identifier.
type ErrRunNotFound struct {
	RunID string
}

func (e *ErrRunNotFound) Error() string {
	return fmt.Sprintf("run not found: %s", e.RunID)
}

// ErrPageNotFound indicates no stored page exists for the identifier.
type ErrPageNotFound struct {
	RunID string
}

func (e *ErrPageNotFound) Error() string {
	return fmt.Sprintf("page not found: %s", e.RunID)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrValidation:
		return http.StatusBadRequest
	case *ErrRunNotFound, *ErrPageNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidConfig = errors.New("reportlog: invalid client config")
	ErrNoCredentials = errors.New("reportlog: credentials not available")
	ErrNotDelivered  = errors.New("reportlog: log not delivered")
	ErrMissingLogID  = errors.New("reportlog: response has no logId")
)

// StatusError is returned for a non-2xx answer from the remote service.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("reportlog: %s: unexpected status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("reportlog: %s: unexpected status %d: %s", e.Op, e.Code, e.Body)
}

func (e *StatusError) StatusCode() int {
	return e.Code
}

func isAuthFailure(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden
}

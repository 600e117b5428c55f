package mailapi

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the backend. Detail carries the
// server's explanation, taken from the JSON "detail" field when present.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unexpected status %d on %s %s", e.StatusCode, e.Method, e.Path)
	}
	return e.Detail
}

// AuthError indicates that the backend rejected the session (HTTP 401).
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ParseError reports a remote message record that could not be normalized.
type ParseError struct {
	// Index is the position of the record in the response, or -1.
	Index  int
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("message %d: %s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("message: %s: %s", e.Field, e.Reason)
}

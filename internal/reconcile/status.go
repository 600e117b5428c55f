package reconcile

import (
	"errors"
	"fmt"

	"github.com/nhle/mailterm/internal/mailapi"
)

// Severity classifies a status notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityError
)

// Status is a transient, user-visible notification. The zero value means
// there is nothing to show.
type Status struct {
	Severity Severity
	Text     string
}

// IsZero reports whether s carries no text.
func (s Status) IsZero() bool {
	return s.Text == ""
}

func InfoStatus(format string, args ...interface{}) Status {
	return Status{Severity: SeverityInfo, Text: fmt.Sprintf(format, args...)}
}

func SuccessStatus(format string, args ...interface{}) Status {
	return Status{Severity: SeveritySuccess, Text: fmt.Sprintf(format, args...)}
}

// ErrorStatus renders "<action> failed: <detail>". For backend errors the
// detail is the server's own message rather than the wrapped chain.
func ErrorStatus(action string, err error) Status {
	return Status{Severity: SeverityError, Text: fmt.Sprintf("%s failed: %s", action, ErrorDetail(err))}
}

// ErrorDetail extracts the most specific human-readable message from err.
func ErrorDetail(err error) string {
	if err == nil {
		return "unknown error"
	}
	var apiErr *mailapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	var authErr *mailapi.AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return err.Error()
}

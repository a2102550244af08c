package token

import (
	"fmt"
	"net/http"
)

// AuthenticationError reports a failed credential exchange with the
// upstream authentication endpoint.
type AuthenticationError struct {
	// StatusCode is the HTTP status received, or 0 if no response arrived.
	StatusCode int

	// Reason is a short description of what was wrong with the exchange.
	Reason string

	// Err is the underlying error, if any.
	Err error
}

func (e *AuthenticationError) Error() string {
	msg := "authentication failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d %s)", msg, e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

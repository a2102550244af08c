package calendar

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteRequestError reports a failed call to the Events resource: either a
// non-2xx response or, with StatusCode 0, a transport failure.
type RemoteRequestError struct {
	// Op is the operation that failed ("list", "get", "create").
	Op string

	StatusCode int
	RequestID  string

	// Body holds the start of the response body, for diagnostics.
	Body string

	Err error
}

func (e *RemoteRequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("calendar %s: request failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("calendar %s: upstream returned %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *RemoteRequestError) Unwrap() error {
	return e.Err
}

// ParseError reports a response body that is missing or cannot be decoded
// into the expected shape.
type ParseError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("calendar %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("calendar %s: %s", e.Op, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports a CreateEventRequest rejected before sending.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// IsNotFound reports whether err is a RemoteRequestError with status 404.
func IsNotFound(err error) bool {
	var remote *RemoteRequestError
	return errors.As(err, &remote) && remote.StatusCode == http.StatusNotFound
}

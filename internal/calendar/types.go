package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultTop is the page size used when a caller does not choose one.
const DefaultTop = 20

// MaxTitleLength is the longest title accepted for a new event.
const MaxTitleLength = 200

// Event is a calendar event as exchanged with the upstream API.
// EndDate is not required to be after StartDate.
type Event struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
}

// EventPage is one page of a listing.
type EventPage struct {
	Items []Event `json:"items"`
}

// EventQuery selects a page of events. Filter and OrderBy are passed
// through to the upstream as-is and omitted when blank.
type EventQuery struct {
	Top     int
	Skip    int
	Filter  string
	OrderBy string
}

// CreateEventRequest is the body of an event creation.
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
}

// Validate checks the fields a creation requires before anything is sent.
func (r CreateEventRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return &ValidationError{Field: "title", Reason: "is required"}
	case utf8.RuneCountInString(r.Title) > MaxTitleLength:
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", MaxTitleLength)}
	case strings.TrimSpace(r.Description) == "":
		return &ValidationError{Field: "description", Reason: "is required"}
	case r.StartDate.IsZero():
		return &ValidationError{Field: "startDate", Reason: "is required"}
	case r.EndDate.IsZero():
		return &ValidationError{Field: "endDate", Reason: "is required"}
	}
	return nil
}

// EventService is the set of operations a Gateway offers. Consumers depend
// on it so they can be exercised against fakes.
type EventService interface {
	ListEvents(ctx context.Context, q EventQuery) (*EventPage, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	CreateEvent(ctx context.Context, req CreateEventRequest) (*Event, error)
}

// TokenProvider supplies the bearer token for each upstream call.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Invalidator is implemented by token providers that can drop a credential
// the upstream rejected, such as *token.Cache.
type Invalidator interface {
	Invalidate()
}

package cmd

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calgateway/internal/calendar"
)

type fakeEvents struct {
	events  []calendar.Event
	created []calendar.CreateEventRequest
	queries []calendar.EventQuery
}

func (f *fakeEvents) ListEvents(_ context.Context, q calendar.EventQuery) (*calendar.EventPage, error) {
	f.queries = append(f.queries, q)
	page := &calendar.EventPage{Items: []calendar.Event{}}
	for i := q.Skip; i < len(f.events) && len(page.Items) < q.Top; i++ {
		page.Items = append(page.Items, f.events[i])
	}
	return page, nil
}

func (f *fakeEvents) GetEvent(_ context.Context, id string) (*calendar.Event, error) {
	for _, ev := range f.events {
		if ev.ID == id {
			ev := ev
			return &ev, nil
		}
	}
	return nil, &calendar.RemoteRequestError{Op: "get", StatusCode: http.StatusNotFound}
}

func (f *fakeEvents) CreateEvent(_ context.Context, req calendar.CreateEventRequest) (*calendar.Event, error) {
	f.created = append(f.created, req)
	return &calendar.Event{
		ID:          "created-" + string(rune('0'+len(f.created))),
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}, nil
}

func sampleEvents(n int) []calendar.Event {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	out := make([]calendar.Event, n)
	for i := range out {
		out[i] = calendar.Event{
			ID:          "evt-" + string(rune('a'+i)),
			Title:       "Standup",
			Description: "Daily standup",
			StartDate:   start.AddDate(0, 0, i),
			EndDate:     start.AddDate(0, 0, i).Add(15 * time.Minute),
		}
	}
	return out
}

// newTestCommand returns a command with a background context that writes
// its output to the returned buffer.
func newTestCommand(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := &cobra.Command{Use: "test"}
	cmd.SetContext(context.Background())
	cmd.SetOut(out)
	return cmd, out
}

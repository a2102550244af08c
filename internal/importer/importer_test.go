package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calgateway/internal/calendar"
	"github.com/teemow/calgateway/internal/ics"
	"github.com/teemow/calgateway/internal/journal"
	"github.com/teemow/calgateway/internal/logging"
	"github.com/teemow/calgateway/internal/token"
)

type fakeService struct {
	created []calendar.CreateEventRequest
	failOn  map[string]error
}

func (f *fakeService) ListEvents(context.Context, calendar.EventQuery) (*calendar.EventPage, error) {
	return &calendar.EventPage{}, nil
}

func (f *fakeService) GetEvent(context.Context, string) (*calendar.Event, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeService) CreateEvent(_ context.Context, req calendar.CreateEventRequest) (*calendar.Event, error) {
	if err := f.failOn[req.Title]; err != nil {
		return nil, err
	}
	f.created = append(f.created, req)
	return &calendar.Event{
		ID:          fmt.Sprintf("evt-%d", len(f.created)),
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}, nil
}

func occurrence(key, title string) ics.Occurrence {
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	return ics.Occurrence{
		Key: key,
		UID: key,
		Request: calendar.CreateEventRequest{
			Title:       title,
			Description: title + " description",
			StartDate:   start,
			EndDate:     start.Add(time.Hour),
		},
	}
}

func newJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

var quiet = Options{Source: "team.ics", Logger: logging.Discard()}

func TestImport_CreatesAndSkipsOnRerun(t *testing.T) {
	svc := &fakeService{}
	store := newJournal(t)
	ctx := context.Background()
	occs := []ics.Occurrence{occurrence("a", "Alpha"), occurrence("b", "Beta")}

	res, err := Import(ctx, svc, store, occs, quiet)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Zero(t, res.Skipped)

	entry, ok, err := store.Lookup(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "evt-2", entry.EventID)
	assert.Equal(t, "team.ics", entry.Source)

	res, err = Import(ctx, svc, store, occs, quiet)
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, 2, res.Skipped)
	assert.Len(t, svc.created, 2, "no duplicates on rerun")
}

func TestImport_DryRun(t *testing.T) {
	svc := &fakeService{}
	store := newJournal(t)

	opts := quiet
	opts.DryRun = true
	res, err := Import(context.Background(), svc, store, []ics.Occurrence{occurrence("a", "Alpha")}, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Empty(t, svc.created)
	_, ok, err := store.Lookup(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, ok, "dry run records nothing")
}

func TestImport_InvalidAndFailedAreCollected(t *testing.T) {
	svc := &fakeService{failOn: map[string]error{
		"Broken": &calendar.RemoteRequestError{Op: "create", StatusCode: http.StatusBadRequest},
	}}
	store := newJournal(t)

	untitled := occurrence("c", "")
	res, err := Import(context.Background(), svc, store, []ics.Occurrence{
		occurrence("a", "Alpha"),
		occurrence("b", "Broken"),
		untitled,
	}, quiet)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Invalid)
	require.Len(t, res.Errors, 2)

	var remote *calendar.RemoteRequestError
	assert.ErrorAs(t, res.Errors[0], &remote)
	var invalid *calendar.ValidationError
	assert.ErrorAs(t, res.Errors[1], &invalid)
}

func TestImport_AuthenticationFailureAborts(t *testing.T) {
	authErr := &token.AuthenticationError{StatusCode: http.StatusUnauthorized}
	svc := &fakeService{failOn: map[string]error{"Alpha": authErr}}

	res, err := Import(context.Background(), svc, newJournal(t), []ics.Occurrence{
		occurrence("a", "Alpha"),
		occurrence("b", "Beta"),
	}, quiet)

	assert.ErrorIs(t, err, authErr)
	assert.Zero(t, res.Created)
	assert.Empty(t, svc.created, "nothing after the auth failure is attempted")
}

func TestImport_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Import(ctx, &fakeService{}, newJournal(t), []ics.Occurrence{occurrence("a", "Alpha")}, quiet)
	assert.ErrorIs(t, err, context.Canceled)
}

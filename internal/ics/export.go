package ics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	gical "github.com/arran4/golang-ical"

	"github.com/teemow/calgateway/internal/calendar"
)

// DefaultProductID identifies calgateway as the producer of exported files.
const DefaultProductID = "-//teemow//calgateway//EN"

// ExportOptions controls Export.
type ExportOptions struct {
	// Name is written as X-WR-CALNAME when non-empty.
	Name string

	// UIDDomain is appended to upstream ids to form globally unique UIDs.
	UIDDomain string

	// Now stamps DTSTAMP. Defaults to time.Now.
	Now func() time.Time
}

// Export writes events to w as a single VCALENDAR.
func Export(w io.Writer, events []calendar.Event, opts ExportOptions) error {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stamp := now().UTC()

	cal := gical.NewCalendar()
	cal.SetProductId(DefaultProductID)
	cal.SetMethod(gical.MethodPublish)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for i, ev := range events {
		if ev.ID == "" {
			return fmt.Errorf("event %d (%q) has no id", i, ev.Title)
		}

		vevent := cal.AddEvent(eventUID(ev.ID, opts.UIDDomain))
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(ev.StartDate.UTC())
		vevent.SetEndAt(ev.EndDate.UTC())
		vevent.SetSummary(ev.Title)
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	return nil
}

func eventUID(id, domain string) string {
	if domain == "" {
		return id
	}
	return id + "@" + domain
}

// WriteFile exports events to path, replacing it atomically so readers
// never observe a partially written calendar.
func WriteFile(path string, events []calendar.Event, opts ExportOptions) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".calgateway-export-*.ics")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Export(tmp, events, opts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

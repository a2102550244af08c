package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/teemow/calgateway/internal/calendar"
)

// DefaultMaxOccurrences caps how many occurrences a single recurring event
// may expand into.
const DefaultMaxOccurrences = 1000

// Occurrence is one event ready to be created upstream.
type Occurrence struct {
	// Key identifies the occurrence across repeated imports of the same
	// file: the UID for single events, UID and start for expanded ones.
	Key string

	UID     string
	Request calendar.CreateEventRequest
}

// DecodeOptions controls Decode.
type DecodeOptions struct {
	// Location resolves floating times. Defaults to UTC.
	Location *time.Location

	// From and Until bound recurrence expansion. Single events are
	// returned regardless of the window.
	From  time.Time
	Until time.Time

	MaxOccurrences int
}

type parsedEvent struct {
	uid          string
	summary      string
	description  string
	start        time.Time
	end          time.Time
	rrule        string
	exDates      []time.Time
	rDates       []time.Time
	recurrenceID *time.Time
	cancelled    bool
}

// Decode reads every VCALENDAR in r and returns its events as
// occurrences, in document order. Cancelled events are dropped and
// RECURRENCE-ID overrides replace the occurrence they refer to.
func Decode(r io.Reader, opts DecodeOptions) ([]Occurrence, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = DefaultMaxOccurrences
	}

	dec := ical.NewDecoder(r)
	var out []Occurrence
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		occs, err := decodeCalendar(cal, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, occs...)
	}
	return out, nil
}

func decodeCalendar(cal *ical.Calendar, opts DecodeOptions) ([]Occurrence, error) {
	var masters []parsedEvent
	overrides := make(map[string][]parsedEvent)

	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		ev, err := parseVEvent(comp, opts.Location)
		if err != nil {
			return nil, err
		}
		if ev.recurrenceID != nil {
			overrides[ev.uid] = append(overrides[ev.uid], ev)
			continue
		}
		masters = append(masters, ev)
	}

	var out []Occurrence
	for _, ev := range masters {
		if ev.rrule == "" && len(ev.rDates) == 0 {
			if !ev.cancelled {
				out = append(out, ev.occurrence(singleKey(ev)))
			}
			continue
		}

		occs, err := expand(ev, overrides[ev.uid], opts)
		if err != nil {
			return nil, err
		}
		out = append(out, occs...)
	}
	return out, nil
}

func expand(ev parsedEvent, overrides []parsedEvent, opts DecodeOptions) ([]Occurrence, error) {
	var set rrule.Set
	set.DTStart(ev.start)

	if ev.rrule != "" {
		rule, err := rrule.StrToRRule(ev.rrule)
		if err != nil {
			return nil, fmt.Errorf("event %q: invalid RRULE %q: %w", ev.uid, ev.rrule, err)
		}
		rule.DTStart(ev.start)
		set.RRule(rule)
	} else {
		set.RDate(ev.start)
	}
	for _, rd := range ev.rDates {
		set.RDate(rd)
	}
	for _, ex := range ev.exDates {
		set.ExDate(ex.In(ev.start.Location()))
	}

	from, until := opts.From.In(ev.start.Location()), opts.Until.In(ev.start.Location())
	var starts []time.Time
	for next := set.Iterator(); len(starts) < opts.MaxOccurrences; {
		start, ok := next()
		if !ok || start.After(until) {
			break
		}
		if start.Before(from) {
			continue
		}
		starts = append(starts, start)
	}

	duration := ev.end.Sub(ev.start)
	out := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		occ := ev
		occ.start = start
		occ.end = start.Add(duration)

		if o, ok := findOverride(overrides, start); ok {
			occ = o
		}
		if occ.cancelled {
			continue
		}

		out = append(out, occ.occurrence(ev.uid+"/"+start.UTC().Format("20060102T150405Z")))
	}
	return out, nil
}

func findOverride(overrides []parsedEvent, start time.Time) (parsedEvent, bool) {
	for _, o := range overrides {
		if o.recurrenceID.Equal(start) {
			return o, true
		}
	}
	return parsedEvent{}, false
}

func singleKey(ev parsedEvent) string {
	if ev.uid != "" {
		return ev.uid
	}
	return ev.summary + "|" + ev.start.UTC().Format(time.RFC3339)
}

func (ev parsedEvent) occurrence(key string) Occurrence {
	description := ev.description
	if strings.TrimSpace(description) == "" {
		description = ev.summary
	}
	return Occurrence{
		Key: key,
		UID: ev.uid,
		Request: calendar.CreateEventRequest{
			Title:       ev.summary,
			Description: description,
			StartDate:   ev.start,
			EndDate:     ev.end,
		},
	}
}

func parseVEvent(comp *ical.Component, loc *time.Location) (parsedEvent, error) {
	var ev parsedEvent

	if p := comp.Props.Get(ical.PropUID); p != nil {
		ev.uid = p.Value
	}
	if p := comp.Props.Get(ical.PropSummary); p != nil {
		ev.summary = p.Value
	}
	if p := comp.Props.Get(ical.PropDescription); p != nil {
		ev.description = p.Value
	}
	if p := comp.Props.Get(ical.PropStatus); p != nil {
		ev.cancelled = strings.EqualFold(p.Value, "CANCELLED")
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return ev, fmt.Errorf("event %q has no DTSTART", ev.uid)
	}
	start, err := startProp.DateTime(loc)
	if err != nil {
		return ev, fmt.Errorf("event %q: invalid DTSTART: %w", ev.uid, err)
	}
	ev.start = start

	allDay := isDate(startProp)
	if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		end, err := endProp.DateTime(loc)
		if err != nil {
			return ev, fmt.Errorf("event %q: invalid DTEND: %w", ev.uid, err)
		}
		ev.end = end
	} else if allDay {
		ev.end = start.AddDate(0, 0, 1)
	} else {
		ev.end = start
	}

	if p := comp.Props.Get(ical.PropRecurrenceRule); p != nil {
		ev.rrule = p.Value
	}
	if ev.exDates, err = dateList(comp, ical.PropExceptionDates, loc); err != nil {
		return ev, fmt.Errorf("event %q: %w", ev.uid, err)
	}
	if ev.rDates, err = dateList(comp, ical.PropRecurrenceDates, loc); err != nil {
		return ev, fmt.Errorf("event %q: %w", ev.uid, err)
	}

	if p := comp.Props.Get(ical.PropRecurrenceID); p != nil {
		rid, err := p.DateTime(loc)
		if err != nil {
			return ev, fmt.Errorf("event %q: invalid RECURRENCE-ID: %w", ev.uid, err)
		}
		ev.recurrenceID = &rid
	}

	return ev, nil
}

// dateList parses every value of a possibly repeated, comma separated
// date-time property such as EXDATE.
func dateList(comp *ical.Component, name string, loc *time.Location) ([]time.Time, error) {
	var out []time.Time
	for _, prop := range comp.Props.Values(name) {
		for _, v := range strings.Split(prop.Value, ",") {
			single := ical.Prop{Name: prop.Name, Params: prop.Params, Value: strings.TrimSpace(v)}
			t, err := single.DateTime(loc)
			if err != nil {
				return nil, fmt.Errorf("invalid %s value %q: %w", name, v, err)
			}
			out = append(out, t)
		}
	}
	return out, nil
}

func isDate(p *ical.Prop) bool {
	return strings.EqualFold(p.Params.Get(ical.ParamValue), "DATE") || len(p.Value) == len("20060102")
}

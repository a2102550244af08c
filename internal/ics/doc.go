// Package ics converts between calendar events and iCalendar (RFC 5545)
// documents.
//
// Export renders events as a VCALENDAR. Decode reads VEVENTs from an
// iCalendar stream and turns them into creation requests, expanding
// recurring events into individual occurrences within a time window
// because the upstream API has no notion of recurrence.
package ics

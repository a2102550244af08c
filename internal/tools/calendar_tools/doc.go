// Package calendar_tools exposes the calendar gateway as MCP tools.
//
// Read tools (calendar_list_events, calendar_get_event and
// calendar_export_ics) are always registered. calendar_create_event is only
// registered when writes are allowed.
//
// Upstream failures are returned as error results whose text is a JSON
// object {"message": ..., "error": ...}. A missing event is not an error:
// calendar_get_event answers "Event with ID {id} not found".
package calendar_tools

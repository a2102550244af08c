// Package cmd implements the command-line interface for calgateway.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing the calendar tools
//   - events: List, get and create events from the terminal
//   - export: Write events to an iCalendar file, once or on a cron schedule
//   - import: Create events from an iCalendar file, skipping ones already imported
//   - token: Acquire a credential and show its status
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Settings are resolved as flags, then CALENDAR_* environment variables,
// then the config file, then defaults.
package cmd

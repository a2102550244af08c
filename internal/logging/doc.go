// Package logging provides structured logging utilities for calgateway.
//
// All logging goes through the standard library's slog package. This package
// adds consistent attribute names, a text/JSON handler setup driven by flags
// and environment, and helpers that keep secrets out of log output.
//
// # Usage Patterns
//
// Install the process logger once at startup:
//
//	logger, err := logging.Setup(os.Stderr, logging.Options{Level: "debug", Format: "json"})
//
// Attach standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "calendar.list")
//	logger.Info("listed events", logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
//   - Bearer tokens are never logged; use SanitizeToken
//   - Upstream client ids are hashed with AnonymizeClientID
package logging

// Package server provides the MCP server context and the HTTP plumbing
// around it for calgateway.
//
// # Key Components
//
// ServerContext carries the calendar event service, the credential cache
// and the instrumentation hooks that every tool handler needs.
//
// HTTPServer exposes the MCP server over the streamable-http transport at
// /mcp, alongside the health endpoints, and records every inbound request
// as an http_requests_total sample.
//
// HealthChecker implements Kubernetes style probes:
//   - /healthz reports liveness
//   - /readyz reports readiness, including the state of the cached credential
//   - /healthz/detailed reports uptime and credential expiry
//
// MetricsServer serves the Prometheus registry on a dedicated port so
// operational metrics stay off the MCP listener.
package server

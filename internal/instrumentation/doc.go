// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for calgateway.
//
// # Metrics
//
// Inbound HTTP (streamable-http transport):
//   - http_requests_total: requests by method, path and status
//   - http_request_duration_seconds: request latency
//
// Upstream calendar API:
//   - upstream_requests_total: calls by operation (auth, list, get, create) and status class
//   - upstream_request_duration_seconds: call latency
//
// Credential cache:
//   - token_cache_lookups_total: lookups by result (hit, contended_hit, refresh, refresh_failed)
//   - token_refresh_total: remote authentication exchanges by result
//   - token_refresh_duration_seconds: exchange latency
//
// MCP tools:
//   - mcp_tool_invocations_total: invocations by tool and status
//   - mcp_tool_duration_seconds: tool latency
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>), upstream calls
// (upstream.<operation>) and guarded credential refreshes (token.refresh).
//
// # Configuration
//
// DefaultConfig reads the following environment variables:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: calgateway)
//   - METRICS_DETAILED_LABELS (default: false)
//   - AUDIT_LOGGING_ENABLED (default: true)
//   - AUDIT_LOGGING_INCLUDE_IDENTITY (default: false)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordUpstreamRequest(ctx, instrumentation.OperationList, 200, elapsed)
package instrumentation

package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/calgateway/internal/logging"
	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures one MCP tool call for the audit trail.
//
// ClientID is the upstream client identifier the gateway authenticates as.
// It is hashed in audit output unless the logger is configured with
// IncludeIdentity.
type ToolInvocation struct {
	Tool      string
	ClientID  string
	Operation string
	EventID   string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a ToolInvocation with timing started.
// Call Complete when the tool finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithClient sets the upstream client identity.
func (ti *ToolInvocation) WithClient(clientID string) *ToolInvocation {
	ti.ClientID = clientID
	return ti
}

// WithOperation sets the upstream operation and, if known, the target event id.
func (ti *ToolInvocation) WithOperation(operation, eventID string) *ToolInvocation {
	ti.Operation = operation
	ti.EventID = eventID
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// Complete marks the invocation as finished.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed with err.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the attributes written for this invocation. When
// includeIdentity is false the client id is replaced by its hash.
func (ti *ToolInvocation) LogAttrs(includeIdentity bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String(logging.KeyTool, ti.Tool),
		slog.Duration(logging.KeyDuration, ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.ClientID != "" {
		if includeIdentity {
			attrs = append(attrs, slog.String("client_id", ti.ClientID))
		} else {
			attrs = append(attrs, logging.ClientHash(ti.ClientID))
		}
	}
	if ti.Operation != "" {
		attrs = append(attrs, slog.String(logging.KeyOperation, ti.Operation))
	}
	if ti.EventID != "" {
		attrs = append(attrs, slog.String(logging.KeyEventID, ti.EventID))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, ti.Error))
	}

	return attrs
}

// AuditLogger writes one structured record per tool invocation.
type AuditLogger struct {
	logger          *slog.Logger
	includeIdentity bool
	enabled         bool
}

// NewAuditLogger creates an enabled AuditLogger that hashes client ids.
// A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates an AuditLogger from config.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:          logger,
		includeIdentity: config.IncludeIdentity,
		enabled:         config.Enabled,
	}
}

// SetEnabled toggles audit output.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogToolInvocation logs ti at Info on success and Warn on failure.
// Safe to call on a nil *AuditLogger.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled || ti == nil {
		return
	}

	attrs := ti.LogAttrs(al.includeIdentity)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}

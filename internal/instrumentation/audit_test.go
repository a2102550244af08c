package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/teemow/calgateway/internal/logging"
)

const (
	testClientID = "svc-calendar-client"
	testTool     = "calendar_get_event"
)

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation(testTool)

	if ti.Tool != testTool {
		t.Errorf("Tool = %q, want %q", ti.Tool, testTool)
	}
	if ti.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ti.CompleteSuccess()

	if !ti.Success {
		t.Error("Success should be true")
	}
	if ti.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if ti.Status() != StatusSuccess {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusSuccess)
	}
}

func TestToolInvocation_CompleteWithError(t *testing.T) {
	ti := NewToolInvocation(testTool).CompleteWithError(errors.New("remote request failed: status 500"))

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Error != "remote request failed: status 500" {
		t.Errorf("unexpected Error %q", ti.Error)
	}
	if ti.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusError)
	}
}

func TestToolInvocation_WithSpanContext_NoSpan(t *testing.T) {
	ti := NewToolInvocation(testTool).WithSpanContext(context.Background())
	if ti.TraceID != "" || ti.SpanID != "" {
		t.Errorf("expected empty trace context, got %q/%q", ti.TraceID, ti.SpanID)
	}
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid log record %q: %v", buf.String(), err)
	}
	return record
}

func TestAuditLogger_HashesClientID(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	ti := NewToolInvocation(testTool).
		WithClient(testClientID).
		WithOperation(OperationGet, "evt-1").
		CompleteSuccess()
	al.LogToolInvocation(ti)

	if strings.Contains(buf.String(), testClientID) {
		t.Fatalf("raw client id leaked into audit log: %s", buf.String())
	}

	record := decodeRecord(t, &buf)
	if record["msg"] != "tool_executed" {
		t.Errorf("unexpected msg %v", record["msg"])
	}
	if record[logging.KeyClientHash] != logging.AnonymizeClientID(testClientID) {
		t.Errorf("unexpected client hash %v", record[logging.KeyClientHash])
	}
	if record[logging.KeyEventID] != "evt-1" {
		t.Errorf("unexpected event id %v", record[logging.KeyEventID])
	}
}

func TestAuditLogger_IncludeIdentity(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLoggerWithConfig(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{
		Enabled:         true,
		IncludeIdentity: true,
	})

	al.LogToolInvocation(NewToolInvocation(testTool).WithClient(testClientID).CompleteWithError(errors.New("boom")))

	record := decodeRecord(t, &buf)
	if record["msg"] != "tool_failed" {
		t.Errorf("unexpected msg %v", record["msg"])
	}
	if record["level"] != "WARN" {
		t.Errorf("expected WARN level, got %v", record["level"])
	}
	if record["client_id"] != testClientID {
		t.Errorf("expected raw client id, got %v", record["client_id"])
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	al.SetEnabled(false)

	al.LogToolInvocation(NewToolInvocation(testTool).CompleteSuccess())

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}

	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(NewToolInvocation(testTool))
}

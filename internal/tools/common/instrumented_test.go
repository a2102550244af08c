package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/calgateway/internal/instrumentation"
	"github.com/teemow/calgateway/internal/server"
)

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), nil, nil, "client-1")
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc := newServerContext(t)

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	}

	result, err := InstrumentedToolHandler("test_tool", sc, handler)(context.Background(), mcp.CallToolRequest{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
	if result == nil {
		t.Error("expected result, got nil")
	}
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc := newServerContext(t)

	expectedErr := errors.New("test error")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	_, err := InstrumentedToolHandler("test_tool", sc, handler)(context.Background(), mcp.CallToolRequest{})

	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestInstrumentedToolHandler_WithMetrics(t *testing.T) {
	sc := newServerContext(t)

	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	sc.SetMetrics(metrics)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("success"), nil
	}

	result, err := InstrumentedToolHandler("calendar_list_events", sc, handler)(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result == nil {
		t.Error("expected result, got nil")
	}
}

func TestInstrumentedToolHandlerWithOperation_AuditRecord(t *testing.T) {
	tests := []struct {
		name        string
		handler     ToolHandler
		wantMessage string
		wantSuccess bool
	}{
		{
			name: "success",
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultText("ok"), nil
			},
			wantMessage: "tool_executed",
			wantSuccess: true,
		},
		{
			name: "error result",
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultError("failed"), nil
			},
			wantMessage: "tool_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newServerContext(t)

			var buf bytes.Buffer
			sc.SetAuditLogger(instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

			wrapped := InstrumentedToolHandlerWithOperation("calendar_get_event", instrumentation.OperationGet, sc, tt.handler)
			if _, err := wrapped(context.Background(), callRequest(map[string]interface{}{"id": "evt-1"})); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var record map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
				t.Fatalf("audit output is not JSON: %v\n%s", err, buf.String())
			}
			if record["msg"] != tt.wantMessage {
				t.Errorf("msg = %v, want %s", record["msg"], tt.wantMessage)
			}
			if record["success"] != tt.wantSuccess {
				t.Errorf("success = %v, want %v", record["success"], tt.wantSuccess)
			}
			if record["event_id"] != "evt-1" {
				t.Errorf("event_id = %v, want evt-1", record["event_id"])
			}
			if record["operation"] != instrumentation.OperationGet {
				t.Errorf("operation = %v, want %s", record["operation"], instrumentation.OperationGet)
			}
			if _, leaked := record["client_id"]; leaked {
				t.Error("raw client id must not appear in audit output by default")
			}
		})
	}
}

func TestInstrumentedToolHandler_RegistersWithMCPServer(t *testing.T) {
	sc := newServerContext(t)
	s := mcpserver.NewMCPServer("test", "0.0.0")

	var wrapped mcpserver.ToolHandlerFunc = InstrumentedToolHandler("calendar_export_ics", sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("ok"), nil
		})
	s.AddTool(mcp.NewTool("calendar_export_ics"), wrapped)

	if tool := s.GetTool("calendar_export_ics"); tool == nil {
		t.Fatal("tool was not registered")
	}

	var buf bytes.Buffer
	sc.SetAuditLogger(instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	if _, err := wrapped(context.Background(), callRequest(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("audit output is not JSON: %v\n%s", err, buf.String())
	}
	if record["tool"] != "calendar_export_ics" {
		t.Errorf("tool = %v, want calendar_export_ics", record["tool"])
	}
	if _, ok := record["operation"]; ok {
		t.Errorf("operation = %v, want it omitted", record["operation"])
	}
}

package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("calendar_get_event").
		WithOperation(OperationGet).
		WithEventID("evt-42").
		WithRequestID("req-1").
		WithReadOnly(true).
		Build()

	if len(attrs) != 5 {
		t.Fatalf("expected 5 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]any)
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	if attrMap[SpanAttrTool] != "calendar_get_event" {
		t.Errorf("unexpected tool %v", attrMap[SpanAttrTool])
	}
	if attrMap[SpanAttrOperation] != OperationGet {
		t.Errorf("unexpected operation %v", attrMap[SpanAttrOperation])
	}
	if attrMap[SpanAttrEventID] != "evt-42" {
		t.Errorf("unexpected event id %v", attrMap[SpanAttrEventID])
	}
	if attrMap[SpanAttrReadOnly] != true {
		t.Errorf("expected read_only true, got %v", attrMap[SpanAttrReadOnly])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("calendar_list_events").
		WithEventID("").
		WithRequestID("").
		Build()

	if len(attrs) != 1 {
		t.Errorf("expected 1 attribute (only tool), got %d", len(attrs))
	}
}

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartUpstreamSpan(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := StartUpstreamSpan(context.Background(), OperationList)
	if GetTraceID(ctx) == "" {
		t.Error("expected a trace id in the span context")
	}
	if GetSpanID(ctx) == "" {
		t.Error("expected a span id in the span context")
	}
	SetSpanStatusCode(span, 503)
	SetSpanError(span, errors.New("unavailable"))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name() != "upstream.list" {
		t.Errorf("expected span name upstream.list, got %q", got.Name())
	}
	if got.SpanKind() != trace.SpanKindClient {
		t.Errorf("expected client span, got %v", got.SpanKind())
	}
	if got.Status().Description != "unavailable" {
		t.Errorf("expected error status, got %+v", got.Status())
	}
}

func TestStartToolSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartToolSpan(context.Background(), "calendar_create_event")
	SetSpanSuccess(span)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "tool.calendar_create_event" {
		t.Errorf("unexpected span name %q", spans[0].Name())
	}
	if spans[0].SpanKind() != trace.SpanKindServer {
		t.Errorf("expected server span, got %v", spans[0].SpanKind())
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
	if id := GetSpanID(context.Background()); id != "" {
		t.Errorf("expected empty span id, got %q", id)
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartTokenRefreshSpan(context.Background())
	SetSpanError(span, nil)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "token.refresh" {
		t.Fatalf("expected one token.refresh span, got %v", spans)
	}
	if len(spans[0].Events()) != 0 {
		t.Error("nil error should not record an event")
	}
}

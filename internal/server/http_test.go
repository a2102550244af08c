package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/calgateway/internal/instrumentation"
)

func newHTTPTestMetrics(t *testing.T) (*instrumentation.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := instrumentation.NewMetrics(mp.Meter("test"), false)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

// requestsByPath sums http_requests_total per path label.
func requestsByPath(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("http_requests_total is %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				path, _ := dp.Attributes.Value(attribute.Key("path"))
				out[path.AsString()] += dp.Value
			}
		}
	}
	return out
}

func newTestMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("calgateway-test", "0.0.0", mcpserver.WithToolCapabilities(true))
}

func TestHTTPServer_HealthAndMetrics(t *testing.T) {
	metrics, reader := newHTTPTestMetrics(t)

	srv := NewHTTPServer(newTestMCPServer())
	srv.SetHealthChecker(NewHealthChecker(nil))
	srv.SetMetrics(metrics)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for _, path := range []string{"/healthz", "/readyz", "/nope", "/nope/again"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		resp.Body.Close()
	}

	got := requestsByPath(t, reader)
	if got["/healthz"] != 1 || got["/readyz"] != 1 {
		t.Errorf("health requests = %v, want one each", got)
	}
	if got["other"] != 2 {
		t.Errorf("unknown paths should collapse into one label, got %v", got)
	}
	if _, ok := got["/nope"]; ok {
		t.Errorf("raw path leaked into labels: %v", got)
	}
}

func TestHTTPServer_ServesMCPEndpoint(t *testing.T) {
	srv := NewHTTPServer(newTestMCPServer())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`
	req, err := http.NewRequest(http.MethodPost, ts.URL+MCPEndpointPath, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s error = %v", MCPEndpointPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("initialize status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestHTTPServer_StartAndShutdown(t *testing.T) {
	srv := NewHTTPServer(newTestMCPServer())
	srv.SetHealthChecker(NewHealthChecker(nil))

	if srv.Addr() != "" {
		t.Errorf("Addr() before start = %q, want empty", srv.Addr())
	}

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		if err := srv.StartWithReadySignal("127.0.0.1:0", ready); err != nil && err != http.ErrServerClosed {
			done <- err
		}
		close(done)
	}()

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server startup timed out")
	}

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("server error: %v", err)
	}
}

func TestStatusRecorder_KeepsFirstStatus(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	rec.WriteHeader(http.StatusTeapot)
	rec.WriteHeader(http.StatusInternalServerError)

	if rec.status != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.status, http.StatusTeapot)
	}
}

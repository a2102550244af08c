package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/calgateway/internal/instrumentation"
	"github.com/teemow/calgateway/internal/logging"
)

const (
	eventsPath      = "Events"
	requestIDHeader = "X-Request-ID"

	// maxErrorBody bounds how much of a failed response is kept on the error.
	maxErrorBody = 512
)

// Gateway issues authorized requests against the upstream Events resource.
// It holds no mutable state and is safe for concurrent use.
type Gateway struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	requestID  func() string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithMetrics records upstream calls on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithRequestIDFunc overrides the X-Request-ID generator.
func WithRequestIDFunc(f func() string) Option {
	return func(g *Gateway) {
		if f != nil {
			g.requestID = f
		}
	}
}

// NewGateway creates a Gateway for the API rooted at baseURL. A trailing
// slash is added to baseURL if missing.
func NewGateway(baseURL string, tokens TokenProvider, opts ...Option) *Gateway {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	g := &Gateway{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		requestID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ListEvents fetches one page of events. An empty response body yields an
// empty page.
func (g *Gateway) ListEvents(ctx context.Context, q EventQuery) (*EventPage, error) {
	data, err := g.do(ctx, instrumentation.OperationList, http.MethodGet, listPath(q), "", nil)
	if err != nil {
		return nil, err
	}

	page := &EventPage{Items: []Event{}}
	if len(bytes.TrimSpace(data)) == 0 {
		return page, nil
	}
	if err := json.Unmarshal(data, page); err != nil {
		return nil, &ParseError{Op: instrumentation.OperationList, Reason: "decoding event page", Err: err}
	}
	if page.Items == nil {
		page.Items = []Event{}
	}
	return page, nil
}

// GetEvent fetches a single event. A blank id is a ValidationError and
// never reaches the upstream. A missing event is reported as a
// RemoteRequestError with status 404; see IsNotFound.
func (g *Gateway) GetEvent(ctx context.Context, id string) (*Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Field: "id", Reason: "is required"}
	}
	data, err := g.do(ctx, instrumentation.OperationGet, http.MethodGet, eventsPath+"/"+url.PathEscape(id), id, nil)
	if err != nil {
		return nil, err
	}
	return decodeEvent(instrumentation.OperationGet, data)
}

// CreateEvent creates an event and returns the upstream representation.
// A success status without a decodable body is a ParseError.
func (g *Gateway) CreateEvent(ctx context.Context, req CreateEventRequest) (*Event, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}

	data, err := g.do(ctx, instrumentation.OperationCreate, http.MethodPost, eventsPath, "", body)
	if err != nil {
		return nil, err
	}
	return decodeEvent(instrumentation.OperationCreate, data)
}

// CollectEvents pages through a listing starting at q.Skip until the
// upstream returns a short page or limit events were gathered. A
// non-positive limit means no limit.
func CollectEvents(ctx context.Context, svc EventService, q EventQuery, limit int) ([]Event, error) {
	if q.Top <= 0 {
		q.Top = DefaultTop
	}

	var events []Event
	for {
		page, err := svc.ListEvents(ctx, q)
		if err != nil {
			return nil, err
		}
		events = append(events, page.Items...)

		if limit > 0 && len(events) >= limit {
			return events[:limit], nil
		}
		if len(page.Items) < q.Top {
			return events, nil
		}
		q.Skip += len(page.Items)
	}
}

func listPath(q EventQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s?$top=%d&$skip=%d", eventsPath, q.Top, q.Skip)
	if strings.TrimSpace(q.Filter) != "" {
		b.WriteString("&$filter=")
		b.WriteString(escapeQueryValue(q.Filter))
	}
	if strings.TrimSpace(q.OrderBy) != "" {
		b.WriteString("&$orderBy=")
		b.WriteString(escapeQueryValue(q.OrderBy))
	}
	return b.String()
}

// escapeQueryValue percent-encodes v with spaces as %20 rather than '+'.
func escapeQueryValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

func decodeEvent(op string, data []byte) (*Event, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Op: op, Reason: "empty response body"}
	}
	var ev *Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, &ParseError{Op: op, Reason: "decoding event", Err: err}
	}
	if ev == nil {
		return nil, &ParseError{Op: op, Reason: "response body is null"}
	}
	return ev, nil
}

// do performs one authorized exchange and returns the body of a 2xx
// response. Token errors are returned unchanged. A 401 drops the credential
// from providers implementing Invalidator; the call itself is not retried.
func (g *Gateway) do(ctx context.Context, op, method, path, eventID string, body []byte) ([]byte, error) {
	bearer, err := g.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	requestID := g.requestID()
	ctx, span := instrumentation.StartUpstreamSpan(ctx, op,
		instrumentation.NewSpanAttributeBuilder().
			WithEventID(eventID).
			WithRequestID(requestID).
			Build()...)
	defer span.End()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger := g.logger.With(logging.Operation(op), logging.RequestID(requestID))
	start := time.Now()

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.metrics.RecordUpstreamRequest(ctx, op, 0, time.Since(start))
		instrumentation.SetSpanError(span, err)
		logger.Warn("upstream request failed", logging.Err(err))
		return nil, &RemoteRequestError{Op: op, RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	g.metrics.RecordUpstreamRequest(ctx, op, resp.StatusCode, elapsed)
	instrumentation.SetSpanStatusCode(span, resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := g.tokens.(Invalidator); ok {
			inv.Invalidate()
			logger.Info("upstream rejected credential, dropped from cache")
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := &RemoteRequestError{
			Op:         op,
			StatusCode: resp.StatusCode,
			RequestID:  requestID,
			Body:       truncate(data, maxErrorBody),
		}
		instrumentation.SetSpanError(span, rerr)
		logger.Warn("upstream returned error status",
			logging.StatusCode(resp.StatusCode),
			slog.Duration(logging.KeyDuration, elapsed))
		return nil, rerr
	}
	if readErr != nil {
		instrumentation.SetSpanError(span, readErr)
		return nil, &ParseError{Op: op, Reason: "reading response body", Err: readErr}
	}

	instrumentation.SetSpanSuccess(span)
	logger.Debug("upstream request completed",
		logging.StatusCode(resp.StatusCode),
		slog.Int("bytes", len(data)),
		slog.Duration(logging.KeyDuration, elapsed))
	return data, nil
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		return string(data[:n])
	}
	return string(data)
}

package server

import (
	"context"
	"sync"

	"github.com/teemow/calgateway/internal/calendar"
	"github.com/teemow/calgateway/internal/instrumentation"
	"github.com/teemow/calgateway/internal/token"
)

// ServerContext holds the dependencies shared by every MCP tool handler.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	events   calendar.EventService
	tokens   *token.Cache
	clientID string

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context. tokens may be nil when
// the event service does not authenticate through a token.Cache.
func NewServerContext(ctx context.Context, events calendar.EventService, tokens *token.Cache, clientID string) (*ServerContext, error) {
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		events:   events,
		tokens:   tokens,
		clientID: clientID,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Events returns the calendar event service
func (sc *ServerContext) Events() calendar.EventService {
	return sc.events
}

// Tokens returns the credential cache, or nil if none was configured
func (sc *ServerContext) Tokens() *token.Cache {
	return sc.tokens
}

// ClientID returns the upstream client identity the server acts as
func (sc *ServerContext) ClientID() string {
	return sc.clientID
}

// SetMetrics sets the metrics recorder used by tool handlers
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder, or nil if instrumentation is off
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger used by tool handlers
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, or nil if auditing is off
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}

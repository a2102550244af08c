package token

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/calgateway/internal/instrumentation"
	"github.com/teemow/calgateway/internal/logging"
)

// DefaultBuffer is how long before its expiry a credential stops being served.
const DefaultBuffer = 5 * time.Minute

// Cache supplies a valid bearer token to concurrent callers, performing at
// most one remote exchange at a time.
//
// Reads take a lock-free path while the cached credential is valid. When it
// is missing or within the buffer of its expiry, callers serialize on a
// mutex and re-check before exchanging, so callers queued behind a
// successful refresh reuse its result. A failed exchange leaves the previous
// credential in place and is not remembered: the next caller to take the
// lock tries again.
type Cache struct {
	auth    Authenticator
	current atomic.Pointer[oauth2.Token]
	mu      sync.Mutex

	buffer  time.Duration
	now     func() time.Time
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for validity checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithBuffer overrides DefaultBuffer. Negative values are treated as zero.
func WithBuffer(d time.Duration) Option {
	return func(c *Cache) {
		if d < 0 {
			d = 0
		}
		c.buffer = d
	}
}

// WithMetrics records lookups and refreshes on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an empty Cache that obtains credentials from auth.
func New(auth Authenticator, opts ...Option) *Cache {
	c := &Cache{
		auth:   auth,
		buffer: DefaultBuffer,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the access token of a valid credential, authenticating if
// necessary. Failures are returned as *AuthenticationError.
func (c *Cache) Token(ctx context.Context) (string, error) {
	tok, err := c.credential(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (c *Cache) credential(ctx context.Context) (*oauth2.Token, error) {
	if tok := c.current.Load(); c.valid(tok) {
		c.metrics.RecordTokenLookup(ctx, instrumentation.LookupHit)
		return tok, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if tok := c.current.Load(); c.valid(tok) {
		c.metrics.RecordTokenLookup(ctx, instrumentation.LookupContendedHit)
		return tok, nil
	}

	tok, err := c.refresh(ctx)
	if err != nil {
		c.metrics.RecordTokenLookup(ctx, instrumentation.LookupRefreshFailed)
		return nil, err
	}
	c.current.Store(tok)
	c.metrics.RecordTokenLookup(ctx, instrumentation.LookupRefresh)
	return tok, nil
}

// refresh must be called with c.mu held.
func (c *Cache) refresh(ctx context.Context) (*oauth2.Token, error) {
	ctx, span := instrumentation.StartTokenRefreshSpan(ctx)
	defer span.End()

	start := time.Now()
	tok, err := c.auth.Authenticate(ctx)
	if err == nil && (tok == nil || tok.AccessToken == "") {
		err = &AuthenticationError{Reason: "authenticator returned no token"}
	}
	elapsed := time.Since(start)

	if err != nil {
		var authErr *AuthenticationError
		if !errors.As(err, &authErr) {
			err = &AuthenticationError{Err: err}
		}
		c.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshFailure, elapsed)
		instrumentation.SetSpanError(span, err)
		c.logger.Warn("token refresh failed",
			slog.Bool("has_previous", c.current.Load() != nil),
			logging.Err(err))
		return nil, err
	}

	c.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshSuccess, elapsed)
	instrumentation.SetSpanSuccess(span)
	c.logger.Info("token refreshed",
		slog.String("token", logging.SanitizeToken(tok.AccessToken)),
		slog.Time(logging.KeyExpiresAt, tok.Expiry),
		slog.Duration(logging.KeyDuration, elapsed))
	return tok, nil
}

func (c *Cache) valid(tok *oauth2.Token) bool {
	return tok != nil && c.now().Before(tok.Expiry.Add(-c.buffer))
}

// Invalidate drops the cached credential so the next Token call
// authenticates again.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Store(nil)
}

// Status describes the cached credential without exposing it.
type Status struct {
	Cached    bool
	TokenType string
	ExpiresAt time.Time
	// Valid is true when the credential would be served without a refresh.
	Valid bool
}

// Snapshot reports the state of the cached credential.
func (c *Cache) Snapshot() Status {
	tok := c.current.Load()
	if tok == nil {
		return Status{}
	}
	return Status{
		Cached:    true,
		TokenType: tok.TokenType,
		ExpiresAt: tok.Expiry,
		Valid:     c.valid(tok),
	}
}

// TokenSource adapts the cache to oauth2.TokenSource. Each Token call goes
// through the cache and returns a copy of the current credential.
func (c *Cache) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &cacheSource{ctx: ctx, cache: c}
}

type cacheSource struct {
	ctx   context.Context
	cache *Cache
}

func (s *cacheSource) Token() (*oauth2.Token, error) {
	tok, err := s.cache.credential(s.ctx)
	if err != nil {
		return nil, err
	}
	cp := *tok
	return &cp, nil
}

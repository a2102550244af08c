package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/calgateway/internal/instrumentation"
	"github.com/teemow/calgateway/internal/logging"
)

// AuthPath is the path of the authentication endpoint relative to the base URL.
const AuthPath = "Auth"

// Authenticator performs one remote credential exchange.
type Authenticator interface {
	Authenticate(ctx context.Context) (*oauth2.Token, error)
}

// ClientCredentials exchanges a client id and secret for a bearer token at
// {BaseURL}Auth.
type ClientCredentials struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Now defaults to time.Now. It stamps the absolute expiry.
	Now func() time.Time

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

type authRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Authenticate posts the client identity and parses the issued token.
// Every failure is returned as *AuthenticationError.
func (c *ClientCredentials) Authenticate(ctx context.Context) (*oauth2.Token, error) {
	start := time.Now()
	status, tok, err := c.exchange(ctx)
	c.Metrics.RecordUpstreamRequest(ctx, instrumentation.OperationAuth, status, time.Since(start))

	logger := c.logger()
	if err != nil {
		logger.Warn("credential exchange failed",
			logging.Operation(instrumentation.OperationAuth),
			logging.StatusCode(status),
			logging.ClientHash(c.ClientID),
			logging.Err(err))
		return nil, err
	}

	logger.Debug("credential exchange succeeded",
		logging.Operation(instrumentation.OperationAuth),
		logging.ClientHash(c.ClientID),
		slog.String("token", logging.SanitizeToken(tok.AccessToken)),
		slog.Time(logging.KeyExpiresAt, tok.Expiry))
	return tok, nil
}

func (c *ClientCredentials) exchange(ctx context.Context) (int, *oauth2.Token, error) {
	body, err := json.Marshal(authRequest{ClientID: c.ClientID, ClientSecret: c.ClientSecret})
	if err != nil {
		return 0, nil, &AuthenticationError{Reason: "encoding request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+AuthPath, bytes.NewReader(body))
	if err != nil {
		return 0, nil, &AuthenticationError{Reason: "building request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, nil, &AuthenticationError{Reason: "sending request", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &AuthenticationError{StatusCode: resp.StatusCode, Reason: "reading response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil, &AuthenticationError{StatusCode: resp.StatusCode, Reason: "unexpected status"}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil, &AuthenticationError{StatusCode: resp.StatusCode, Reason: "empty response body"}
	}

	var ar authResponse
	if err := json.Unmarshal(data, &ar); err != nil {
		return resp.StatusCode, nil, &AuthenticationError{StatusCode: resp.StatusCode, Reason: "decoding response", Err: err}
	}

	access := strings.TrimSpace(ar.AccessToken)
	if access == "" {
		return resp.StatusCode, nil, &AuthenticationError{StatusCode: resp.StatusCode, Reason: "response has no access_token"}
	}
	if ar.ExpiresIn <= 0 {
		return resp.StatusCode, nil, &AuthenticationError{
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("invalid expires_in %d", ar.ExpiresIn),
		}
	}

	tokenType := ar.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return resp.StatusCode, &oauth2.Token{
		AccessToken: access,
		TokenType:   tokenType,
		Expiry:      c.now().Add(time.Duration(ar.ExpiresIn) * time.Second),
		ExpiresIn:   ar.ExpiresIn,
	}, nil
}

func (c *ClientCredentials) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *ClientCredentials) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *ClientCredentials) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Package api is the thin authenticated client for the field-insights
// REST API. Auth itself lives in the surrounding app; this client only
// attaches the bearer token it is handed.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Doer executes HTTP requests. Both *http.Client and *routing.Fetcher
// satisfy it; in the field client the fetcher is used so every GET flows
// through the caching strategies.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the field-insights API.
type Client struct {
	baseURL string
	doer    Doer
	logger  zerolog.Logger

	mu       sync.RWMutex
	token    string
	tokenExp time.Time
}

// New creates an API client. doer defaults to an http.Client with a 30s
// timeout when nil.
func New(baseURL string, doer Doer) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		doer:    doer,
		logger:  log.With().Str("component", "api").Logger(),
	}
}

// SetToken installs the bearer token attached to every request. The token
// is parsed (unverified; verification is the server's job) so the client
// can warn before sending requests with an expired token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	c.tokenExp = time.Time{}

	if token == "" {
		return
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		c.logger.Debug().Err(err).Msg("Token is not a parseable JWT")
		return
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.tokenExp = exp.Time
	}
}

// TokenExpired reports whether the installed token carries an exp claim in
// the past.
func (c *Client) TokenExpired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.tokenExp.IsZero() && time.Now().After(c.tokenExp)
}

// APIError is a non-2xx response from the API, propagated verbatim.
type APIError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Body)
}

// GetJSON issues a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// PostJSON issues a POST with a JSON body and decodes the response into
// out (out may be nil).
func (c *Client) PostJSON(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.TokenExpired() {
		c.logger.Warn().Str("path", path).Msg("Bearer token is expired")
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Package api is a typed client for the Fitverse REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jw6ventures/fitverse/internal/metrics"
)

// TokenSource supplies the bearer token for a backend request. An empty
// token means the request is sent anonymously.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource attaches bearer tokens to outgoing requests.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type apiMessage struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("issue backend token: %w", err)}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(op, "network", start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &Error{Op: op, Err: ctxErr}
		}
		return &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		metrics.ObserveUpstream(op, fmt.Sprintf("%dxx", resp.StatusCode/100), start)
		var msg apiMessage
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err := json.Unmarshal(raw, &msg); err == nil && msg.Message == "" {
			msg.Message = msg.Error
		}
		return &Error{Op: op, Status: resp.StatusCode, Message: msg.Message, Err: classify(resp.StatusCode)}
	}
	metrics.ObserveUpstream(op, "ok", start)

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: decode response: %v", ErrServerError, err)}
	}
	return nil
}

func escape(segment string) string {
	return url.PathEscape(segment)
}

// Package transport is the typed client for the external chat-transport
// gateway. Every call is keyed by a per-channel token; the gateway answers
// with a uniform {success, message, ...} envelope, and any failure surfaces
// as ErrTransport (or ErrRecipientUnknown for unverifiable recipients) so
// callers can treat it as non-fatal per item.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrTransport indicates a gateway call failed (network or success=false).
	ErrTransport = errors.New("transport: gateway call failed")

	// ErrRecipientUnknown indicates the recipient could not be confirmed to
	// exist on the channel.
	ErrRecipientUnknown = errors.New("transport: recipient not reachable")
)

// Client talks to the chat-transport gateway over HTTP.
type Client struct {
	baseURL string
	http    *http.Client

	// Outbound send throttle, one limiter per channel token.
	ratePerMin int
	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSendRate sets the per-channel outbound sends per minute. 0 disables
// throttling.
func WithSendRate(perMinute int) Option {
	return func(c *Client) { c.ratePerMin = perMinute }
}

// New creates a gateway client.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// limiter returns the send limiter for a channel token.
func (c *Client) limiter(token string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[token]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(c.ratePerMin)/60.0), 3)
		c.limiters[token] = l
	}
	return l
}

// throttle waits for a send slot on the channel's limiter.
func (c *Client) throttle(ctx context.Context, token string) error {
	if c.ratePerMin <= 0 {
		return nil
	}
	if err := c.limiter(token).Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate wait: %v", ErrTransport, err)
	}
	return nil
}

// apiResponse is the gateway's uniform response envelope.
type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Exists  *bool           `json:"exists,omitempty"`
	Status  string          `json:"status,omitempty"`
	QR      string          `json:"qr,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// call performs one gateway request and decodes the envelope.
func (c *Client) call(ctx context.Context, method, token, path string, body interface{}) (*apiResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode request: %v", ErrTransport, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	var out apiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response (status %d): %v", ErrTransport, resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || !out.Success {
		return &out, fmt.Errorf("%w: %s (status %d)", ErrTransport, out.Message, resp.StatusCode)
	}
	return &out, nil
}

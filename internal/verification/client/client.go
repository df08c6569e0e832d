// Package client sends verification payloads to the ID+ endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/TylerGelinas/socure/internal/verification/metrics"
	"github.com/TylerGelinas/socure/internal/verification/request"
	"github.com/TylerGelinas/socure/pkg/platform/circuit"
	"github.com/TylerGelinas/socure/pkg/requestcontext"
)

// DefaultMaxResponseBytes bounds how much of a response body is read.
const DefaultMaxResponseBytes int64 = 4 << 20

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is a verification response: status, raw body and observed latency.
type Response struct {
	StatusCode int
	Body       []byte
	Latency    time.Duration
}

// Config configures a Client.
type Config struct {
	Endpoint string
	APIKey   string
	// Timeout bounds a single call. Required.
	Timeout time.Duration
	// HTTPClient defaults to an http.Client on the default transport.
	HTTPClient HTTPDoer
}

// Client performs exactly one HTTP call per Send; retries are the caller's policy.
type Client struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	http     HTTPDoer
	breaker  *circuit.Breaker
	metrics  *metrics.Metrics
	logger   *slog.Logger
	maxBody  int64
}

type Option func(*Client)

// WithBreaker short-circuits calls while the breaker is open.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithMaxResponseBytes caps the accepted response body. Values <= 0 are ignored.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client. It panics when the endpoint or timeout is missing,
// which config validation guarantees never happens at runtime.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Endpoint == "" {
		panic("client: endpoint is required")
	}
	if cfg.Timeout <= 0 {
		panic("client: timeout must be positive")
	}
	c := &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		http:     cfg.HTTPClient,
		logger:   slog.Default(),
		maxBody:  DefaultMaxResponseBytes,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts payload to the endpoint. Any outcome other than a 200 is reported
// as a *TransportError; for non-success statuses the Response is returned too.
func (c *Client) Send(ctx context.Context, payload *request.Payload) (*Response, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		terr := &TransportError{Kind: KindCircuitOpen}
		c.metrics.ObserveRequest(string(terr.Kind), 0)
		return nil, terr
	}

	resp, err := c.send(ctx, payload)

	var terr *TransportError
	switch {
	case err == nil:
		c.metrics.ObserveRequest("ok", resp.Latency.Seconds())
		c.recordBreaker(ctx, nil)
	case errors.As(err, &terr):
		latency := 0.0
		if resp != nil {
			latency = resp.Latency.Seconds()
		}
		c.metrics.ObserveRequest(string(terr.Kind), latency)
		c.recordBreaker(ctx, terr)
		c.logger.WarnContext(ctx, "verification request failed",
			"kind", terr.Kind,
			"status_code", terr.StatusCode,
			"error", terr.Err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return resp, err
}

func (c *Client) send(ctx context.Context, payload *request.Payload) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Kind: KindEncoding, Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Kind: KindEncoding, Err: err}
	}
	req.Header.Set("Authorization", "SocureApiKey "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := requestcontext.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxBody+1))
	latency := time.Since(start)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if int64(len(respBody)) > c.maxBody {
		return nil, &TransportError{
			Kind:       KindResponseTooLarge,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("response body exceeds %d bytes", c.maxBody),
		}
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Body: respBody, Latency: latency}
	if httpResp.StatusCode != http.StatusOK {
		return resp, &TransportError{Kind: KindNonSuccessStatus, StatusCode: httpResp.StatusCode}
	}
	return resp, nil
}

// classify maps a Do/read error to a transport kind. Caller cancellation wins
// over everything else.
func classify(parent context.Context, err error) *TransportError {
	if errors.Is(parent.Err(), context.Canceled) {
		return &TransportError{Kind: KindCancelled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &TransportError{Kind: KindConnectionRefused, Err: err}
	}
	return &TransportError{Kind: KindNetwork, Err: err}
}

func (c *Client) recordBreaker(ctx context.Context, terr *TransportError) {
	if c.breaker == nil {
		return
	}
	var change circuit.StateChange
	switch {
	case terr == nil:
		change = c.breaker.RecordSuccess()
	case terr.Kind == KindCancelled:
		// An abandoned half-open trial says nothing about upstream health; re-open so a later call can retry it.
		if c.breaker.State() != circuit.StateHalfOpen {
			return
		}
		change = c.breaker.RecordFailure()
	case terr.upstreamFault():
		change = c.breaker.RecordFailure()
	default:
		change = c.breaker.RecordSuccess()
	}

	if change.Opened {
		c.logger.WarnContext(ctx, "verification circuit opened", "breaker", c.breaker.Name())
	}
	if change.Closed {
		c.logger.InfoContext(ctx, "verification circuit closed", "breaker", c.breaker.Name())
	}
	c.metrics.SetBreakerOpen(c.breaker.State() != circuit.StateClosed)
}

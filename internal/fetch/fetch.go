// Package fetch performs the outbound HTTP requests made while building an
// embed.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/embedscraper/internal/logging"
	"github.com/JakeFAU/embedscraper/internal/metrics"
)

// DefaultTimeout bounds a single outbound request.
const DefaultTimeout = 8 * time.Second

// DefaultMaxBodyBytes caps how much of a response body is kept.
const DefaultMaxBodyBytes int64 = 5 * 1024 * 1024

// ErrBody marks a failure reading the response body after headers arrived.
var ErrBody = errors.New("read response body")

// Request describes one outbound call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	// NoRedirect returns 3xx responses as-is instead of following them.
	NoRedirect bool
	// Kind labels the request in metrics.
	Kind string
}

// Response is a fully buffered response.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Fetcher issues outbound requests.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// Config controls the HTTP client.
type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	Transport    http.RoundTripper
}

// Client implements Fetcher on net/http.
type Client struct {
	follow   *http.Client
	manual   *http.Client
	maxBytes int64
	logger   *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	transport := cfg.Transport
	if transport == nil {
		transport = NewTransport()
	}
	return &Client{
		follow: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		manual: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxBytes: cfg.MaxBodyBytes,
		logger:   logging.OrNop(logger),
	}
}

// Fetch executes req and buffers up to the configured number of body bytes.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		metrics.ObserveFetch(req.Kind, "invalid")
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	client := c.follow
	if req.NoRedirect {
		client = c.manual
	}
	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		metrics.ObserveFetch(req.Kind, "error")
		c.logger.Debug("fetch failed",
			zap.String("kind", req.Kind),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w", method, req.URL, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close body", zap.Error(cerr))
		}
	}()

	out := &Response{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
	}
	if method != http.MethodHead {
		body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
		if err != nil {
			metrics.ObserveFetch(req.Kind, "body_error")
			return nil, fmt.Errorf("%w: %w", ErrBody, err)
		}
		out.Body = body
	}
	metrics.ObserveFetch(req.Kind, "ok")
	c.logger.Debug("fetched",
		zap.String("kind", req.Kind),
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(out.Body)),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// NewTransport returns a pooled transport suitable for many short requests.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

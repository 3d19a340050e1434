// Package media builds media proxy URLs and looks up thumbnail hashes from
// the media service.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/embedscraper/internal/fetch"
	"github.com/JakeFAU/embedscraper/internal/logging"
)

// ErrNoThumbhash is returned when the media service has no hash for a URL.
var ErrNoThumbhash = errors.New("no thumbhash available")

var schemeSlashes = regexp.MustCompile(`(https?)://`)

// Escape turns an upstream URL into the single path segment the media service
// expects: "scheme://" collapses to "scheme:/" and the result is
// percent-encoded.
func Escape(upstream string) string {
	collapsed := schemeSlashes.ReplaceAllString(upstream, "$1:/")
	return strings.ReplaceAll(url.QueryEscape(collapsed), "+", "%20")
}

// Proxy builds URLs on the media service.
type Proxy struct {
	base string
}

// NewProxy returns a Proxy rooted at baseURL.
func NewProxy(baseURL string) Proxy {
	return Proxy{base: strings.TrimRight(baseURL, "/")}
}

// External proxies an image.
func (p Proxy) External(upstream string) string {
	return p.build("external", upstream)
}

// Stream proxies a video stream.
func (p Proxy) Stream(upstream string) string {
	return p.build("stream", upstream)
}

// Frame returns a still frame of a video.
func (p Proxy) Frame(upstream string) string {
	return p.build("frame", upstream)
}

// Thumbhash is the lookup endpoint for a media hash.
func (p Proxy) Thumbhash(upstream string) string {
	return p.build("thumbhash", upstream)
}

func (p Proxy) build(kind, upstream string) string {
	return p.base + "/" + kind + "/" + Escape(upstream)
}

// ThumbhashClient asks the media service for compact image placeholders.
type ThumbhashClient struct {
	proxy   Proxy
	fetcher fetch.Fetcher
	logger  *zap.Logger
}

// NewThumbhashClient builds a ThumbhashClient.
func NewThumbhashClient(proxy Proxy, fetcher fetch.Fetcher, logger *zap.Logger) *ThumbhashClient {
	return &ThumbhashClient{proxy: proxy, fetcher: fetcher, logger: logging.OrNop(logger)}
}

type thumbhashBody struct {
	Thumbhash *string `json:"thumbhash"`
}

// Lookup returns the thumbhash of the image at upstream.
func (c *ThumbhashClient) Lookup(ctx context.Context, upstream string) (string, error) {
	resp, err := c.fetcher.Fetch(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    c.proxy.Thumbhash(upstream),
		Kind:   "thumbhash",
	})
	if err != nil {
		return "", fmt.Errorf("thumbhash request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("thumbhash request: status %d", resp.StatusCode)
	}
	var body thumbhashBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("decode thumbhash: %w", err)
	}
	if body.Thumbhash == nil || *body.Thumbhash == "" {
		return "", ErrNoThumbhash
	}
	return *body.Thumbhash, nil
}

// BestEffort is Lookup with failures logged and reported as an empty string.
func (c *ThumbhashClient) BestEffort(ctx context.Context, upstream string) string {
	hash, err := c.Lookup(ctx, upstream)
	if err != nil {
		c.logger.Debug("thumbhash lookup failed", zap.String("url", upstream), zap.Error(err))
		return ""
	}
	return hash
}

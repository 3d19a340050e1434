// Package robots evaluates robots.txt rules for a target URL.
package robots

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/JakeFAU/embedscraper/internal/embed"
	"github.com/JakeFAU/embedscraper/internal/fetch"
	"github.com/JakeFAU/embedscraper/internal/logging"
)

// Checker fetches robots.txt through a fetch.Fetcher and tests URLs against
// it for one user agent.
type Checker struct {
	fetcher   fetch.Fetcher
	userAgent string
	cacheTTL  time.Duration
	cache     sync.Map
	blocked   *Blocklist
	now       func() time.Time
	logger    *zap.Logger
}

type cachedRobots struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// Option customizes a Checker.
type Option func(*Checker)

// WithCacheTTL keeps parsed robots.txt per host for ttl. Zero disables it.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Checker) { c.cacheTTL = ttl }
}

// WithBlocklist treats every host matched by b as disallowed without
// fetching its robots.txt.
func WithBlocklist(b *Blocklist) Option {
	return func(c *Checker) { c.blocked = b }
}

// NewChecker builds a Checker.
func NewChecker(fetcher fetch.Fetcher, userAgent string, logger *zap.Logger, opts ...Option) *Checker {
	c := &Checker{
		fetcher:   fetcher,
		userAgent: userAgent,
		now:       time.Now,
		logger:    logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Allowed reports whether rawURL may be scraped. A robots.txt that cannot be
// fetched yields embed.ErrRobotsFetch; one that cannot be read or parsed
// yields embed.ErrRobotsEvaluate.
func (c *Checker) Allowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false, embed.ErrRobotsFetch.WithCause(fmt.Errorf("parse target url %q: %w", rawURL, err))
	}
	if c.blocked.IsBlocked(parsed.Hostname()) {
		c.logger.Debug("host blocked", zap.String("host", parsed.Hostname()))
		return false, nil
	}
	data, err := c.load(ctx, parsed)
	if err != nil {
		return false, err
	}
	target := parsed.EscapedPath()
	if target == "" {
		target = "/"
	}
	if parsed.RawQuery != "" {
		target += "?" + parsed.RawQuery
	}
	return data.TestAgent(target, c.userAgent), nil
}

// Check is Allowed with a disallow turned into embed.ErrRobotsDisallowed.
func (c *Checker) Check(ctx context.Context, rawURL string) error {
	ok, err := c.Allowed(ctx, rawURL)
	if err != nil {
		return err
	}
	if !ok {
		return embed.ErrRobotsDisallowed
	}
	return nil
}

func (c *Checker) load(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	hostKey := strings.ToLower(parsed.Scheme + "://" + parsed.Host)
	if c.cacheTTL > 0 {
		if v, ok := c.cache.Load(hostKey); ok {
			if cached, ok := v.(cachedRobots); ok && c.now().Sub(cached.fetchedAt) < c.cacheTTL {
				return cached.data, nil
			}
		}
	}

	robotsURL := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/robots.txt"}
	resp, err := c.fetcher.Fetch(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    robotsURL.String(),
		Header: http.Header{"User-Agent": {c.userAgent}},
		Kind:   "robots",
	})
	if err != nil {
		c.logger.Warn("robots fetch failed", zap.String("host", parsed.Host), zap.Error(err))
		if errors.Is(err, fetch.ErrBody) {
			return nil, embed.ErrRobotsEvaluate.WithCause(err)
		}
		return nil, embed.ErrRobotsFetch.WithCause(err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		c.logger.Warn("robots parse failed", zap.String("host", parsed.Host), zap.Error(err))
		return nil, embed.ErrRobotsEvaluate.WithCause(fmt.Errorf("parse robots: %w", err))
	}
	if c.cacheTTL > 0 {
		c.cache.Store(hostKey, cachedRobots{data: data, fetchedAt: c.now()})
	}
	return data, nil
}

// Sweep evicts cached robots.txt entries older than the cache TTL and returns
// how many were dropped.
func (c *Checker) Sweep() int {
	if c.cacheTTL <= 0 {
		return 0
	}
	now := c.now()
	n := 0
	c.cache.Range(func(k, v any) bool {
		if cached, ok := v.(cachedRobots); !ok || now.Sub(cached.fetchedAt) >= c.cacheTTL {
			c.cache.CompareAndDelete(k, v)
			n++
		}
		return true
	})
	return n
}

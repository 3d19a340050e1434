// Package redirect follows redirect chains by hand to detect link
// shorteners.
package redirect

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/embedscraper/internal/fetch"
	"github.com/JakeFAU/embedscraper/internal/logging"
	"github.com/JakeFAU/embedscraper/internal/metrics"
)

// DefaultMaxHops bounds how many URLs a chain may visit.
const DefaultMaxHops = 20

// Chain is the outcome of Track.
type Chain struct {
	IsShortener   bool     `json:"isShortener"`
	RedirectChain []string `json:"redirectChain"`
}

// Tracker walks Location headers without letting the client follow them.
type Tracker struct {
	fetcher fetch.Fetcher
	maxHops int
	logger  *zap.Logger
}

// NewTracker builds a Tracker. maxHops <= 0 uses DefaultMaxHops.
func NewTracker(fetcher fetch.Fetcher, maxHops int, logger *zap.Logger) *Tracker {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &Tracker{fetcher: fetcher, maxHops: maxHops, logger: logging.OrNop(logger)}
}

// Track records every URL visited starting at rawURL. A network failure
// ends the chain and reports IsShortener=false. The chain also ends at the
// hop limit or when a Location points back at a visited URL.
func (t *Tracker) Track(ctx context.Context, rawURL, method string) Chain {
	if method != http.MethodGet {
		method = http.MethodHead
	}
	visited := make(map[string]bool)
	var chain []string
	current := rawURL

	for current != "" {
		chain = append(chain, current)
		visited[current] = true

		resp, err := t.fetcher.Fetch(ctx, fetch.Request{
			Method:     method,
			URL:        current,
			NoRedirect: true,
			Kind:       "redirect",
		})
		if err != nil {
			t.logger.Debug("redirect tracking stopped", zap.String("url", current), zap.Error(err))
			metrics.ObserveRedirectChain(len(chain))
			return Chain{IsShortener: false, RedirectChain: chain}
		}

		location := resp.Header.Get("Location")
		if location == "" {
			break
		}
		next, ok := resolve(current, location)
		if !ok {
			break
		}
		if visited[next] {
			t.logger.Debug("redirect loop", zap.String("url", next))
			break
		}
		if len(chain) >= t.maxHops {
			t.logger.Debug("redirect hop limit reached", zap.Int("max_hops", t.maxHops))
			break
		}
		current = next
	}

	metrics.ObserveRedirectChain(len(chain))
	return Chain{IsShortener: len(chain) > 1, RedirectChain: chain}
}

func resolve(base, ref string) (string, bool) {
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	return b.ResolveReference(r).String(), true
}

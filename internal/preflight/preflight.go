// Package preflight answers cheap questions about a URL before a client
// commits to a full embed: what kind of content it serves, whether it may be
// embedded, and whether it is a link shortener.
package preflight

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/embedscraper/internal/embed"
	"github.com/JakeFAU/embedscraper/internal/fetch"
	"github.com/JakeFAU/embedscraper/internal/logging"
	"github.com/JakeFAU/embedscraper/internal/media"
	"github.com/JakeFAU/embedscraper/internal/redirect"
)

// rangeProbe caps GET fallbacks at the first megabyte.
const rangeProbe = "bytes=0-1048576"

// RobotsEvaluator reports whether a URL may be scraped.
type RobotsEvaluator interface {
	Allowed(ctx context.Context, rawURL string) (bool, error)
}

// Options tune a single inspection.
type Options struct {
	Thumbhash bool
}

// Report describes a URL. Pointer fields serialize as null when unknown.
type Report struct {
	Mimetype      *string        `json:"mimetype"`
	MediaURL      *string        `json:"mediaUrl"`
	Embed         bool           `json:"embed"`
	FrameURL      *string        `json:"frameUrl"`
	Thumbhash     *string        `json:"thumbhash"`
	LinkShortener redirect.Chain `json:"linkShortener"`
}

// Inspector builds Reports.
type Inspector struct {
	fetcher   fetch.Fetcher
	robots    RobotsEvaluator
	tracker   *redirect.Tracker
	proxy     media.Proxy
	thumbhash *media.ThumbhashClient
	userAgent string
	logger    *zap.Logger
}

// NewInspector builds an Inspector.
func NewInspector(
	fetcher fetch.Fetcher,
	robots RobotsEvaluator,
	tracker *redirect.Tracker,
	proxy media.Proxy,
	userAgent string,
	logger *zap.Logger,
) *Inspector {
	logger = logging.OrNop(logger)
	return &Inspector{
		fetcher:   fetcher,
		robots:    robots,
		tracker:   tracker,
		proxy:     proxy,
		thumbhash: media.NewThumbhashClient(proxy, fetcher, logger),
		userAgent: userAgent,
		logger:    logger,
	}
}

// Inspect builds the Report for rawURL.
func (i *Inspector) Inspect(ctx context.Context, rawURL string, opts Options) (*Report, error) {
	allowed, err := i.robots.Allowed(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	resp, headFail, err := i.probe(ctx, rawURL)
	if err != nil {
		return nil, embed.ErrMetadataFetch.WithCause(err)
	}

	report := &Report{}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" {
		report.Mimetype = &contentType
	}
	switch {
	case strings.HasPrefix(contentType, "image/"):
		report.MediaURL = ptr(i.proxy.External(rawURL))
		if opts.Thumbhash {
			if hash := i.thumbhash.BestEffort(ctx, rawURL); hash != "" {
				report.Thumbhash = &hash
			}
		}
	case strings.HasPrefix(contentType, "video/"):
		report.MediaURL = ptr(i.proxy.Stream(rawURL))
		report.FrameURL = ptr(i.proxy.Frame(rawURL))
	}

	method := http.MethodHead
	if headFail {
		method = http.MethodGet
	}
	report.LinkShortener = i.tracker.Track(ctx, rawURL, method)
	report.Embed = strings.HasPrefix(contentType, "text/html") && allowed
	return report, nil
}

// probe issues a HEAD request, retrying once with a ranged GET when the
// server rejects HEAD.
func (i *Inspector) probe(ctx context.Context, rawURL string) (*fetch.Response, bool, error) {
	resp, err := i.fetcher.Fetch(ctx, fetch.Request{
		Method: http.MethodHead,
		URL:    rawURL,
		Header: fetch.BrowserHeaders(i.userAgent),
		Kind:   "head",
	})
	if err != nil {
		return nil, false, err
	}
	if resp.StatusCode != http.StatusMethodNotAllowed {
		return resp, false, nil
	}

	i.logger.Debug("HEAD rejected, retrying with GET", zap.String("url", rawURL))
	header := fetch.BrowserHeaders(i.userAgent)
	header.Set("Range", rangeProbe)
	resp, err = i.fetcher.Fetch(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    rawURL,
		Header: header,
		Kind:   "head",
	})
	if err != nil {
		return nil, true, err
	}
	return resp, true, nil
}

func ptr(s string) *string {
	return &s
}

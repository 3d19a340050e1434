// Package collyfetch implements fetch.Fetcher using gocolly.
package collyfetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/embedscraper/internal/fetch"
	"github.com/JakeFAU/embedscraper/internal/logging"
	"github.com/JakeFAU/embedscraper/internal/metrics"
)

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
}

// Fetcher implements fetch.Fetcher using the Colly collector.
//
// Collectors are shared and colly requests take no per-call context, so a
// canceled Fetch returns at once while the underlying request keeps running
// until Config.Timeout expires. Use the http engine when prompt cancellation
// matters.
type Fetcher struct {
	cfg    Config
	follow *colly.Collector
	manual *colly.Collector
	logger *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Robots rules are evaluated by the caller, so the
// collector never consults robots.txt itself.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = fetch.DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = fetch.DefaultMaxBodyBytes
	}
	transport := fetch.NewTransport()

	// Clones share their parent's HTTP backend, so redirect policy and
	// timeouts are fixed on two separate parents.
	follow := colly.NewCollector(colly.Async(false))
	follow.AllowURLRevisit = true
	follow.WithTransport(transport)
	follow.SetRequestTimeout(cfg.Timeout)

	manual := colly.NewCollector(colly.Async(false))
	manual.WithTransport(transport)
	manual.SetRequestTimeout(cfg.Timeout)
	manual.SetRedirectHandler(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	})

	return &Fetcher{
		cfg:    cfg,
		follow: follow,
		manual: manual,
		logger: logging.OrNop(logger),
	}
}

// Fetch executes a single request using a cloned collector.
func (f *Fetcher) Fetch(ctx context.Context, req fetch.Request) (*fetch.Response, error) {
	var (
		result   *fetch.Response
		fetchErr error
	)
	collector := f.buildCollector(req, &result, &fetchErr)

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	if err := f.runCollector(ctx, collector, method, req, &fetchErr); err != nil {
		metrics.ObserveFetch(req.Kind, "error")
		return nil, err
	}
	if result == nil {
		metrics.ObserveFetch(req.Kind, "error")
		return nil, fmt.Errorf("colly fetch %s: no response", req.URL)
	}
	metrics.ObserveFetch(req.Kind, "ok")
	return result, nil
}

func (f *Fetcher) buildCollector(req fetch.Request, result **fetch.Response, fetchErr *error) *colly.Collector {
	base := f.follow
	if req.NoRedirect {
		base = f.manual
	}
	collector := base.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	collector.ParseHTTPErrorResponse = true
	collector.MaxBodySize = int(f.cfg.MaxBodyBytes)

	f.configureCollectorHooks(collector, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result **fetch.Response, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		out := &fetch.Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
		if r.Headers != nil {
			out.Header = r.Headers.Clone()
		}
		*result = out
	})

	hooks.OnError(func(r *colly.Response, err error) {
		// ParseHTTPErrorResponse routes HTTP error statuses to OnResponse;
		// anything left here is a transport failure.
		if r != nil && r.StatusCode != 0 {
			f.logger.Debug("colly status error", zap.Int("status", r.StatusCode), zap.Error(err))
		}
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(
	ctx context.Context,
	collector *colly.Collector,
	method string,
	req fetch.Request,
	fetchErr *error,
) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Request(method, req.URL, nil, nil, copyHeaders(req.Header))
	}()

	select {
	case <-ctx.Done():
		// The goroutine finishes on its own once the request timeout fires.
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly request failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func copyHeaders(src http.Header) http.Header {
	if src == nil {
		return http.Header{}
	}
	return src.Clone()
}

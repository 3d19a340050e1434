// Package scrape turns a target URL into an embed: it classifies the URL,
// honours robots.txt, fetches the page and its oEmbed document, and maps the
// collected metadata onto the embed model.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/embedscraper/internal/embed"
	"github.com/JakeFAU/embedscraper/internal/fetch"
	"github.com/JakeFAU/embedscraper/internal/htmlscan"
	"github.com/JakeFAU/embedscraper/internal/logging"
	"github.com/JakeFAU/embedscraper/internal/mapping"
	"github.com/JakeFAU/embedscraper/internal/media"
	"github.com/JakeFAU/embedscraper/internal/metadata"
	"github.com/JakeFAU/embedscraper/internal/metrics"
	"github.com/JakeFAU/embedscraper/internal/source"
)

// RobotsChecker decides whether a URL may be scraped.
type RobotsChecker interface {
	Check(ctx context.Context, rawURL string) error
}

// Config holds scraper settings.
type Config struct {
	UserAgent string
	MediaURL  string
	MaxFiles  int
}

// Options tune a single scrape.
type Options struct {
	// Raw returns the metadata tree instead of an embed and skips direct
	// embed short-cuts.
	Raw bool
	// Thumbhash looks up placeholder hashes for attached images.
	Thumbhash bool
	// Debug logs the collected metadata.
	Debug bool
}

// Result is the outcome of a scrape. Exactly one of Embed and Tree is set.
type Result struct {
	Classification source.Classification
	Embed          *embed.Embed
	Tree           *metadata.Value
}

// Payload returns the value to serialize for callers.
func (r *Result) Payload() any {
	if r.Tree != nil {
		return r.Tree
	}
	return r.Embed
}

// Scraper runs the scrape pipeline. It is safe for concurrent use.
type Scraper struct {
	cfg        Config
	classifier *source.Classifier
	robots     RobotsChecker
	fetcher    fetch.Fetcher
	proxy      media.Proxy
	thumbhash  *media.ThumbhashClient
	engine     mapping.Engine
	logger     *zap.Logger
}

// New builds a Scraper.
func New(
	cfg Config,
	classifier *source.Classifier,
	robots RobotsChecker,
	fetcher fetch.Fetcher,
	logger *zap.Logger,
) *Scraper {
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}
	logger = logging.OrNop(logger)
	proxy := media.NewProxy(cfg.MediaURL)
	return &Scraper{
		cfg:        cfg,
		classifier: classifier,
		robots:     robots,
		fetcher:    fetcher,
		proxy:      proxy,
		thumbhash:  media.NewThumbhashClient(proxy, fetcher, logger),
		engine:     mapping.Engine{GroupConcurrency: mapping.DefaultGroupConcurrency},
		logger:     logger,
	}
}

// Classify exposes the classification the scraper would use for rawURL.
func (s *Scraper) Classify(rawURL string) source.Classification {
	return s.classifier.Classify(rawURL)
}

// Scrape builds the embed for rawURL. Failures are *embed.Error values; no
// partial result is returned alongside an error.
func (s *Scraper) Scrape(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	class := s.classifier.Classify(rawURL)
	logger := s.logger.With(
		zap.String("url", rawURL),
		zap.String("platform", string(class.Platform)),
	)
	if class.Rewritten() {
		logger.Debug("url rewritten", zap.String("target", class.URL))
	}

	res, err := s.run(ctx, class, opts, logger)
	if err != nil {
		metrics.ObserveScrape(string(class.Platform), "error")
		logger.Info("scrape failed", zap.Error(err))
		return nil, err
	}
	metrics.ObserveScrape(string(class.Platform), "ok")
	return res, nil
}

func (s *Scraper) run(ctx context.Context, class source.Classification, opts Options, logger *zap.Logger) (*Result, error) {
	if err := s.robots.Check(ctx, class.URL); err != nil {
		return nil, err
	}

	if class.Direct != nil && !opts.Raw {
		return &Result{
			Classification: class,
			Embed: &embed.Embed{
				Type:         embed.TypeIframe,
				IframeSource: &embed.IframeSource{Provider: class.Direct.Provider, URL: class.Direct.URL},
			},
		}, nil
	}

	resp, err := s.fetcher.Fetch(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    class.URL,
		Header: fetch.BrowserHeaders(s.cfg.UserAgent),
		Kind:   "page",
	})
	if err != nil {
		if errors.Is(err, fetch.ErrBody) {
			return nil, embed.ErrEmbedBody.WithCause(err)
		}
		return nil, embed.ErrEmbedFetch.WithCause(err)
	}
	if len(resp.Body) == 0 {
		return nil, embed.ErrEmbedBody.WithCause(fmt.Errorf("empty body from %s (status %d)", resp.URL, resp.StatusCode))
	}

	doc, err := htmlscan.Parse(resp.Body, resp.URL)
	if err != nil {
		return nil, embed.ErrEmbedBody.WithCause(err)
	}
	pairs := doc.Pairs()

	extra, platformPairs := s.gatherOptional(ctx, class, doc, logger)
	pairs.MergeMissing(extra)
	pairs.MergeMissing(platformPairs)

	tree := metadata.Build(pairs)
	if opts.Debug {
		logger.Info("collected metadata", zap.Strings("keys", pairs.Keys()), zap.Any("tree", tree.Interface()))
	}
	if opts.Raw {
		return &Result{Classification: class, Tree: &tree}, nil
	}

	out, err := s.mapEmbed(ctx, class, tree, opts)
	if err != nil {
		return nil, err
	}
	return &Result{Classification: class, Embed: out}, nil
}

// gatherOptional runs the oEmbed fetch and platform augmentation side by
// side. Both are best effort.
func (s *Scraper) gatherOptional(
	ctx context.Context,
	class source.Classification,
	doc *htmlscan.Document,
	logger *zap.Logger,
) (*metadata.Pairs, *metadata.Pairs) {
	var oembed, platform *metadata.Pairs
	var g errgroup.Group

	if endpoint, ok := doc.OEmbedURL(); ok {
		g.Go(func() error {
			p, err := s.fetchOEmbed(ctx, endpoint)
			if err != nil {
				logger.Warn("oembed skipped", zap.String("endpoint", endpoint), zap.Error(err))
				return nil
			}
			oembed = p
			return nil
		})
	}
	if class.Platform == source.YouTube {
		g.Go(func() error {
			platform = youtubeAugment(doc)
			return nil
		})
	}
	_ = g.Wait()
	return oembed, platform
}

func (s *Scraper) mapEmbed(
	ctx context.Context,
	class source.Classification,
	tree metadata.Value,
	opts Options,
) (*embed.Embed, error) {
	sc := schemaContext{proxy: s.proxy, maxFiles: s.cfg.MaxFiles}
	if opts.Thumbhash {
		sc.thumbhash = s.thumbhash
	}
	result, err := s.engine.Evaluate(ctx, sc.SchemaFor(class.Platform), tree)
	if err != nil {
		return nil, embed.ErrEmbedBody.WithCause(fmt.Errorf("map metadata: %w", err))
	}

	var out embed.Embed
	if err := mapping.Decode(result, &out); err != nil {
		return nil, embed.ErrEmbedBody.WithCause(err)
	}
	out.Files = cleanFiles(out.Files)

	s.tagType(ctx, class, &out, opts)
	if err := out.Validate(); err != nil {
		return nil, embed.ErrEmbedBody.WithCause(err)
	}
	return &out, nil
}

// tagType decides between an interactive player and a plain site preview.
func (s *Scraper) tagType(ctx context.Context, class source.Classification, out *embed.Embed, opts Options) {
	switch {
	case class.Platform == source.YouTube && class.VideoID != "":
		thumb := youtubeThumbnailURL(class.VideoID)
		file := embed.File{
			URL:    s.proxy.External(thumb),
			RawURL: thumb,
			Type:   embed.FileTypeImage,
			Name:   "YoutubeThumbnail",
		}
		if opts.Thumbhash {
			file.ThumbHash = s.thumbhash.BestEffort(ctx, thumb)
		}
		out.Type = embed.TypeIframe
		out.IframeSource = youtubeIframe(class.VideoID)
		out.Files = []embed.File{file}
	case class.Platform == source.YouTube && out.IframeSource != nil && out.IframeSource.URL != "":
		out.Type = embed.TypeIframe
		if out.IframeSource.Provider == "" {
			out.IframeSource.Provider = youtubeProvider
		}
	default:
		out.Type = embed.TypeSite
		out.IframeSource = nil
	}
}

// cleanFiles drops records without an image URL, which extra dimension tags
// produce, and repeats of an upstream URL. An http and https copy of the same
// image count as one.
func cleanFiles(files []embed.File) []embed.File {
	if len(files) == 0 {
		return files
	}
	seen := make(map[string]bool, len(files))
	out := files[:0]
	for _, f := range files {
		if f.URL == "" || f.RawURL == "" {
			continue
		}
		key := strings.TrimPrefix(strings.TrimPrefix(f.RawURL, "https://"), "http://")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

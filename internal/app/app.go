// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/embedscraper/internal/api"
	"github.com/JakeFAU/embedscraper/internal/cache"
	badgercache "github.com/JakeFAU/embedscraper/internal/cache/badger"
	memorycache "github.com/JakeFAU/embedscraper/internal/cache/memory"
	rediscache "github.com/JakeFAU/embedscraper/internal/cache/redis"
	"github.com/JakeFAU/embedscraper/internal/config"
	"github.com/JakeFAU/embedscraper/internal/fetch"
	collyfetch "github.com/JakeFAU/embedscraper/internal/fetch/colly"
	"github.com/JakeFAU/embedscraper/internal/fetch/ratelimit"
	"github.com/JakeFAU/embedscraper/internal/logging"
	"github.com/JakeFAU/embedscraper/internal/media"
	"github.com/JakeFAU/embedscraper/internal/preflight"
	"github.com/JakeFAU/embedscraper/internal/redirect"
	"github.com/JakeFAU/embedscraper/internal/robots"
	"github.com/JakeFAU/embedscraper/internal/scrape"
	"github.com/JakeFAU/embedscraper/internal/source"
)

// App holds all the shared, long-lived services for the application.
// It is initialized once at startup and handed to the command that needs it.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	fetcher   fetch.Fetcher
	scraper   *scrape.Scraper
	tracker   *redirect.Tracker
	inspector *preflight.Inspector
	thumbhash *media.ThumbhashClient
	cache     cache.Cache
	stopSweep func()
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger { return a.logger }

// Scraper returns the embed pipeline.
func (a *App) Scraper() *scrape.Scraper { return a.scraper }

// Tracker returns the redirect tracker.
func (a *App) Tracker() *redirect.Tracker { return a.tracker }

// Inspector returns the preflight inspector.
func (a *App) Inspector() *preflight.Inspector { return a.inspector }

// Cache returns the response cache, or nil when caching is disabled.
func (a *App) Cache() cache.Cache { return a.cache }

// NewApp creates and initializes a new App from cfg. It fails fast if any
// critical service cannot be initialized.
func NewApp(_ context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	l := logging.OrNop(logger)
	l.Info("Initializing application services...")

	fetcher, err := newFetcher(cfg, l)
	if err != nil {
		return nil, err
	}

	robotsOpts := []robots.Option{robots.WithBlocklist(robots.NewBlocklist(cfg.Scraper.BlockedHosts))}
	if cfg.CacheEnabled() {
		robotsOpts = append(robotsOpts, robots.WithCacheTTL(cfg.Cache.TTL))
	}
	checker := robots.NewChecker(fetcher, cfg.Scraper.UserAgent, l.Named("robots"), robotsOpts...)

	classifier := source.NewClassifier(source.Config{
		TikTokMirror:  cfg.Sources.TikTokMirror,
		TwitterMirror: cfg.Sources.TwitterMirror,
		SpotifyDirect: cfg.Sources.SpotifyDirect,
	})
	scraper := scrape.New(scrape.Config{
		UserAgent: cfg.Scraper.UserAgent,
		MediaURL:  cfg.Scraper.MediaURL,
		MaxFiles:  cfg.Scraper.MaxFiles,
	}, classifier, checker, fetcher, l.Named("scrape"))

	proxy := media.NewProxy(cfg.Scraper.MediaURL)
	tracker := redirect.NewTracker(fetcher, cfg.Redirect.MaxHops, l.Named("redirect"))
	inspector := preflight.NewInspector(fetcher, checker, tracker, proxy, cfg.Scraper.UserAgent, l.Named("preflight"))

	store, err := newCache(cfg.Cache, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	var sweepers []sweeper
	if cfg.CacheEnabled() {
		sweepers = append(sweepers, checker)
	}
	if mem, ok := store.(*memorycache.Store); ok {
		sweepers = append(sweepers, mem)
	}
	if limited, ok := fetcher.(*ratelimit.Fetcher); ok {
		sweepers = append(sweepers, limited.Limiter)
	}
	interval := cfg.Cache.SweepInterval
	if interval <= 0 {
		interval = cfg.Cache.TTL
	}
	if interval <= 0 {
		interval = time.Minute
	}
	var stopSweep func()
	if len(sweepers) > 0 {
		stopSweep = startSweeper(interval, l.Named("sweeper"), sweepers...)
	}

	l.Info("Application services initialized successfully.",
		zap.String("fetch_engine", cfg.Fetch.Engine),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	return &App{
		cfg:       cfg,
		logger:    l,
		fetcher:   fetcher,
		scraper:   scraper,
		tracker:   tracker,
		inspector: inspector,
		thumbhash: media.NewThumbhashClient(proxy, fetcher, l.Named("thumbhash")),
		cache:     store,
		stopSweep: stopSweep,
	}, nil
}

// Server builds the HTTP API over the App's services.
func (a *App) Server() *api.Server {
	return api.NewServer(api.Dependencies{
		Scraper:   a.scraper,
		Inspector: a.inspector,
		Thumbhash: a.thumbhash,
		Cache:     a.cache,
		Logger:    a.logger.Named("api"),
	}, a.cfg)
}

// newFetcher builds the configured engine, throttled per host when
// fetch.host_rps is set.
func newFetcher(cfg config.Config, l *zap.Logger) (fetch.Fetcher, error) {
	base, err := newEngine(cfg, l)
	if err != nil {
		return nil, err
	}
	if cfg.Fetch.HostRPS <= 0 {
		return base, nil
	}
	return ratelimit.Wrap(base, ratelimit.New(ratelimit.Config{
		RPS:   cfg.Fetch.HostRPS,
		Burst: cfg.Fetch.HostBurst,
	})), nil
}

func newEngine(cfg config.Config, l *zap.Logger) (fetch.Fetcher, error) {
	switch cfg.Fetch.Engine {
	case config.EngineHTTP, "":
		return fetch.New(fetch.Config{
			Timeout:      cfg.Fetch.Timeout,
			MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		}, l.Named("fetch")), nil
	case config.EngineColly:
		return collyfetch.New(collyfetch.Config{
			UserAgent:    cfg.Scraper.UserAgent,
			Timeout:      cfg.Fetch.Timeout,
			MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		}, l.Named("colly")), nil
	default:
		return nil, fmt.Errorf("unknown fetch engine: %s", cfg.Fetch.Engine)
	}
}

// newCache returns nil for the "none" backend.
func newCache(cfg config.CacheConfig, l *zap.Logger) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheNone, "":
		l.Info("Response cache disabled.")
		return nil, nil
	case config.CacheMemory:
		return memorycache.New(), nil
	case config.CacheRedis:
		l.Info("Connecting to Redis...")
		return rediscache.New(cfg.RedisURL)
	case config.CacheBadger:
		l.Info("Opening Badger cache", zap.String("path", cfg.BadgerPath))
		return badgercache.Open(cfg.BadgerPath, l.Named("badger"))
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

// Close gracefully shuts down all services in the App container.
func (a *App) Close() {
	a.logger.Info("Shutting down application services...")
	if a.stopSweep != nil {
		a.stopSweep()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("Error closing cache", zap.Error(err))
		}
	}
	// Sync fails harmlessly on stdout/stderr sinks.
	_ = a.logger.Sync()
}

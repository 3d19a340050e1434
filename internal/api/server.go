package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/embedscraper/internal/cache"
	"github.com/JakeFAU/embedscraper/internal/config"
	"github.com/JakeFAU/embedscraper/internal/embed"
	"github.com/JakeFAU/embedscraper/internal/logging"
	"github.com/JakeFAU/embedscraper/internal/metrics"
	"github.com/JakeFAU/embedscraper/internal/preflight"
	"github.com/JakeFAU/embedscraper/internal/scrape"
	"github.com/JakeFAU/embedscraper/internal/source"
)

// Response headers set by the embed routes.
const (
	HeaderURL         = "X-URL"
	HeaderPlatform    = "X-Embed-Platform"
	HeaderResolvedURL = "X-Embed-Resolved-URL"
	cacheControl      = "s-maxage=600"
	readyTimeout      = 2 * time.Second
)

// Scraper builds embeds.
type Scraper interface {
	Classify(rawURL string) source.Classification
	Scrape(ctx context.Context, rawURL string, opts scrape.Options) (*scrape.Result, error)
}

// Inspector builds preflight reports.
type Inspector interface {
	Inspect(ctx context.Context, rawURL string, opts preflight.Options) (*preflight.Report, error)
}

// ThumbhashLookup resolves image placeholder hashes.
type ThumbhashLookup interface {
	Lookup(ctx context.Context, upstream string) (string, error)
}

// Dependencies are the collaborators served by the API. Cache may be nil to
// disable response caching.
type Dependencies struct {
	Scraper   Scraper
	Inspector Inspector
	Thumbhash ThumbhashLookup
	Cache     cache.Cache
	Logger    *zap.Logger
}

// Server wires HTTP handlers to the scrape pipeline.
type Server struct {
	router    chi.Router
	scraper   Scraper
	inspector Inspector
	thumbhash ThumbhashLookup
	cache     cache.Cache
	cfg       config.Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Dependencies, cfg config.Config) *Server {
	logger := logging.OrNop(deps.Logger)
	s := &Server{
		scraper:   deps.Scraper,
		inspector: deps.Inspector,
		thumbhash: deps.Thumbhash,
		cache:     deps.Cache,
		cfg:       cfg,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(timeoutMiddleware(cfg.Server.RequestTimeout))
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled && !cfg.Server.Development {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		if s.cache != nil {
			r.Use(cache.Middleware(s.cache, cache.MiddlewareOptions{
				TTL:          cfg.Cache.TTL,
				WriteTimeout: cfg.Cache.WriteTimeout,
				Bypass:       bypassCache,
				Logger:       logger,
			}))
		}
		r.Get("/embed", s.embed)
		r.Get("/metadata", s.metadata)
		r.Get("/thumbhash", s.thumbhashLookup)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.cache.Ping(ctx); err != nil {
			s.logger.Warn("cache not ready", zap.String("backend", s.cache.Name()), zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) embed(w http.ResponseWriter, r *http.Request) {
	target, ok := requireTarget(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	opts := scrape.Options{
		Raw:       q.Get("raw") == "true",
		Thumbhash: q.Get("thumbhash") == "true",
		Debug:     isDebug(r),
	}
	if opts.Debug {
		class := s.scraper.Classify(target)
		w.Header().Set(HeaderPlatform, string(class.Platform))
		w.Header().Set(HeaderResolvedURL, class.URL)
	}

	res, err := s.scraper.Scrape(r.Context(), target, opts)
	if err != nil {
		s.writeTarget(w, target, embed.StatusFor(err), embed.AsError(err))
		return
	}
	s.writeTarget(w, target, http.StatusOK, res.Payload())
}

func (s *Server) metadata(w http.ResponseWriter, r *http.Request) {
	target, ok := requireTarget(w, r)
	if !ok {
		return
	}
	report, err := s.inspector.Inspect(r.Context(), target, preflight.Options{
		Thumbhash: r.URL.Query().Get("thumbhash") == "true",
	})
	if err != nil {
		s.writeTarget(w, target, embed.StatusFor(err), embed.AsError(err))
		return
	}
	s.writeTarget(w, target, http.StatusOK, report)
}

type thumbhashResponse struct {
	Thumbhash *string `json:"thumbhash"`
}

func (s *Server) thumbhashLookup(w http.ResponseWriter, r *http.Request) {
	target, ok := requireTarget(w, r)
	if !ok {
		return
	}
	var resp thumbhashResponse
	hash, err := s.thumbhash.Lookup(r.Context(), target)
	if err != nil {
		s.logger.Debug("thumbhash unavailable", zap.String("url", target), zap.Error(err))
	} else {
		resp.Thumbhash = &hash
	}
	s.writeTarget(w, target, http.StatusOK, resp)
}

// writeTarget writes a JSON payload about target with the shared caching
// headers.
func (s *Server) writeTarget(w http.ResponseWriter, target string, status int, payload any) {
	if !s.cfg.Server.Development {
		w.Header().Set("Cache-Control", cacheControl)
	}
	w.Header().Set(HeaderURL, target)
	writeJSON(w, status, payload)
}

func requireTarget(w http.ResponseWriter, r *http.Request) (string, bool) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, embed.ErrNoURL)
		return "", false
	}
	return target, true
}

func isDebug(r *http.Request) bool {
	return r.URL.Query().Get("debug") == "true"
}

func bypassCache(r *http.Request) bool {
	return isDebug(r) || r.URL.Query().Get("url") == ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

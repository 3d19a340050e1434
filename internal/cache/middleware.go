package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/embedscraper/internal/embed"
	"github.com/JakeFAU/embedscraper/internal/logging"
	"github.com/JakeFAU/embedscraper/internal/metrics"
)

// HeaderStatus reports HIT or MISS on cached routes.
const HeaderStatus = "X-Cache"

// DefaultWriteTimeout bounds a background cache write.
const DefaultWriteTimeout = 5 * time.Second

// headers never replayed from the cache.
var volatileHeaders = []string{"X-Request-Id", "Date", HeaderStatus}

// MiddlewareOptions configure the read-through middleware.
type MiddlewareOptions struct {
	TTL          time.Duration
	WriteTimeout time.Duration
	// Bypass skips the cache entirely for matching requests.
	Bypass func(*http.Request) bool
	Logger *zap.Logger
}

// Key derives the cache key of a request from its path and sorted query.
func Key(r *http.Request) string {
	return r.Method + " " + r.URL.Path + "?" + r.URL.Query().Encode()
}

// Middleware serves GET requests from c when possible and stores responses
// with a status below 500. Stores happen in the background, detached from
// the request context, and their failures are only logged. A failing lookup
// answers 500 with the cache error code.
func Middleware(c Cache, opts MiddlewareOptions) func(http.Handler) http.Handler {
	logger := logging.OrNop(opts.Logger)
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || (opts.Bypass != nil && opts.Bypass(r)) {
				next.ServeHTTP(w, r)
				return
			}

			key := Key(r)
			entry, ok, err := c.Get(r.Context(), key)
			if err != nil {
				metrics.ObserveCacheLookup(c.Name(), "error")
				logger.Error("cache lookup failed", zap.String("backend", c.Name()), zap.String("key", key), zap.Error(err))
				writeCacheError(w)
				return
			}
			if ok {
				metrics.ObserveCacheLookup(c.Name(), "hit")
				replay(w, entry)
				return
			}
			metrics.ObserveCacheLookup(c.Name(), "miss")

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set(HeaderStatus, "MISS")
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				return
			}
			stored := &Entry{Status: rec.status, Header: w.Header().Clone(), Body: rec.body.Bytes()}
			for _, h := range volatileHeaders {
				stored.Header.Del(h)
			}
			ctx := context.WithoutCancel(r.Context())
			go func() {
				wctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
				defer cancel()
				if err := c.Set(wctx, key, stored, opts.TTL); err != nil {
					logger.Warn("cache store failed", zap.String("backend", c.Name()), zap.String("key", key), zap.Error(err))
				}
			}()
		})
	}
}

func replay(w http.ResponseWriter, e *Entry) {
	for k, values := range e.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set(HeaderStatus, "HIT")
	w.WriteHeader(e.Status)
	_, _ = w.Write(e.Body)
}

func writeCacheError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(embed.ErrCache)
}

type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(p []byte) (int, error) {
	r.wroteHeader = true
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}

package scrape

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/JakeFAU/embedscraper/internal/fetch"
)

type route struct {
	status int
	body   string
	header http.Header
	err    error
}

// stubFetcher serves canned responses keyed by exact URL and records every
// request. Unknown URLs get an empty 404.
type stubFetcher struct {
	mu     sync.Mutex
	routes map[string]route
	calls  []fetch.Request
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{routes: map[string]route{}}
}

func (s *stubFetcher) handle(rawURL string, r route) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	s.routes[rawURL] = r
}

func (s *stubFetcher) Fetch(_ context.Context, req fetch.Request) (*fetch.Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	r, ok := s.routes[req.URL]
	s.mu.Unlock()

	if !ok {
		return &fetch.Response{URL: req.URL, StatusCode: http.StatusNotFound, Header: http.Header{}}, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	header := r.header
	if header == nil {
		header = http.Header{}
	}
	return &fetch.Response{URL: req.URL, StatusCode: r.status, Header: header, Body: []byte(r.body)}, nil
}

func (s *stubFetcher) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.Kind
	}
	return out
}

func (s *stubFetcher) count(kind string) int {
	n := 0
	for _, k := range s.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (s *stubFetcher) first() fetch.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[0]
}

func (s *stubFetcher) request(kind string) (fetch.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c.Kind == kind {
			return c, true
		}
	}
	return fetch.Request{}, false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

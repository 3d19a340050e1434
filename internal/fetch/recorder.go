package fetch

import (
	"context"
	"sync"
)

// Recorder wraps a Fetcher and keeps the requests it saw, in order.
type Recorder struct {
	Next Fetcher

	mu       sync.Mutex
	requests []Request
}

// Fetch records req and delegates to Next.
func (r *Recorder) Fetch(ctx context.Context, req Request) (*Response, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	return r.Next.Fetch(ctx, req)
}

// Requests returns a copy of the recorded requests.
func (r *Recorder) Requests() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.requests...)
}

// Count returns how many requests of the given kind were made. An empty kind
// counts all of them.
func (r *Recorder) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, req := range r.requests {
		if kind == "" || req.Kind == kind {
			n++
		}
	}
	return n
}

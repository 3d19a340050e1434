// Package cache stores finished HTTP responses so repeated requests for the
// same target skip the scrape entirely.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Entry is a stored response.
type Entry struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// Cache is a shared response store. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns the entry for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) (*Entry, bool, error)
	// Set stores e under key for ttl.
	Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Name identifies the backend in logs and metrics.
	Name() string
	Close() error
}

// Encode serializes an entry for byte-oriented backends.
func Encode(e *Entry) ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return raw, nil
}

// Decode is the inverse of Encode.
func Decode(raw []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &e, nil
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	return &Entry{
		Status: e.Status,
		Header: e.Header.Clone(),
		Body:   append([]byte(nil), e.Body...),
	}
}

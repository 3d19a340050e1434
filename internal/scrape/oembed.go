package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/JakeFAU/embedscraper/internal/fetch"
	"github.com/JakeFAU/embedscraper/internal/metadata"
)

// fetchOEmbed downloads an oEmbed document and returns its scalar fields as
// pairs, sorted by key.
func (s *Scraper) fetchOEmbed(ctx context.Context, endpoint string) (*metadata.Pairs, error) {
	resp, err := s.fetcher.Fetch(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    endpoint,
		Header: fetch.BrowserHeaders(s.cfg.UserAgent),
		Kind:   "oembed",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch oembed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch oembed: status %d", resp.StatusCode)
	}
	return decodeOEmbed(resp.Body)
}

func decodeOEmbed(body []byte) (*metadata.Pairs, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode oembed: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode oembed: not an object")
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := metadata.NewPairs()
	for _, k := range keys {
		switch v := doc[k].(type) {
		case string:
			pairs.Add(k, v)
		case json.Number:
			pairs.Add(k, v.String())
		case bool:
			pairs.Add(k, fmt.Sprint(v))
		}
	}
	return pairs, nil
}

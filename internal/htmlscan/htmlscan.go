// Package htmlscan extracts meta tags and a few well-known links from an
// HTML document.
package htmlscan

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/embedscraper/internal/metadata"
)

// Document is a parsed HTML page.
type Document struct {
	doc  *goquery.Document
	raw  string
	base *url.URL
}

// Parse parses body. pageURL is used to resolve relative links and may be
// empty.
func Parse(body []byte, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil || pageURL == "" {
		base = nil
	}
	return &Document{doc: doc, raw: string(body), base: base}, nil
}

// Raw returns the unparsed HTML.
func (d *Document) Raw() string {
	return d.raw
}

// Pairs collects every <meta> tag with a property or name attribute, keyed by
// that attribute (property wins), in document order. Repeated keys keep every
// value. When no meta tag is named "title" the <title> text is added under
// that key.
func (d *Document) Pairs() *metadata.Pairs {
	pairs := metadata.NewPairs()
	d.doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		content, ok := sel.Attr("content")
		if !ok {
			return
		}
		key := strings.TrimSpace(sel.AttrOr("property", ""))
		if key == "" {
			key = strings.TrimSpace(sel.AttrOr("name", ""))
		}
		if key == "" {
			return
		}
		pairs.Add(key, strings.TrimSpace(content))
	})
	if !pairs.Has("title") {
		if title := strings.TrimSpace(d.doc.Find("title").First().Text()); title != "" {
			pairs.Add("title", title)
		}
	}
	return pairs
}

// OEmbedURL returns the absolute URL of the page's JSON oEmbed endpoint.
func (d *Document) OEmbedURL() (string, bool) {
	href, ok := d.doc.Find(`link[type="application/json+oembed"], link[type="text/json+oembed"]`).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", false
	}
	return d.resolve(href)
}

// Attr returns attr of the first element matching selector.
func (d *Document) Attr(selector, attr string) (string, bool) {
	value, ok := d.doc.Find(selector).First().Attr(attr)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (d *Document) resolve(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if !u.IsAbs() {
		if d.base == nil {
			return "", false
		}
		u = d.base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

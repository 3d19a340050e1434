// Package source recognizes well-known platforms from a target URL and
// rewrites it into the form the scraper should actually fetch.
package source

import (
	"net/url"
	"strings"
)

// Platform identifies a recognized site.
type Platform string

// Known platforms.
const (
	Generic Platform = "generic"
	YouTube Platform = "youtube"
	TikTok  Platform = "tiktok"
	Twitter Platform = "twitter"
	Spotify Platform = "spotify"
)

// Category is the coarse kind of content a platform serves.
type Category string

// Known categories.
const (
	CategoryGeneric    Category = "generic"
	CategoryVideo      Category = "video"
	CategoryShortVideo Category = "short-video"
	CategoryMicroblog  Category = "microblog"
	CategoryMusic      Category = "music"
)

// Default mirror hosts.
const (
	DefaultTikTokMirror  = "tnktok.com"
	DefaultTwitterMirror = "fxtwitter.com"
)

// Config tunes classification.
type Config struct {
	TikTokMirror  string
	TwitterMirror string
	SpotifyDirect bool
}

// DirectEmbed is an embeddable player URL derived from the input alone.
type DirectEmbed struct {
	Provider string
	URL      string
}

// Classification is the outcome of Classify.
type Classification struct {
	Platform Platform
	Category Category
	// Original is the URL as supplied by the caller.
	Original string
	// URL is the URL to fetch; it differs from Original when a mirror or
	// canonical form applies.
	URL string
	// VideoID is set for YouTube URLs that carry a video identifier.
	VideoID string
	Direct  *DirectEmbed
}

// Rewritten reports whether URL differs from Original.
func (c Classification) Rewritten() bool {
	return c.URL != c.Original
}

// Classifier maps URLs to platforms. It holds no mutable state.
type Classifier struct {
	cfg Config
}

// NewClassifier returns a Classifier, filling in default mirrors.
func NewClassifier(cfg Config) *Classifier {
	if cfg.TikTokMirror == "" {
		cfg.TikTokMirror = DefaultTikTokMirror
	}
	if cfg.TwitterMirror == "" {
		cfg.TwitterMirror = DefaultTwitterMirror
	}
	return &Classifier{cfg: cfg}
}

var (
	youtubeHosts = map[string]bool{
		"youtube.com": true, "www.youtube.com": true, "m.youtube.com": true, "music.youtube.com": true,
	}
	tiktokHosts = map[string]bool{
		"tiktok.com": true, "www.tiktok.com": true, "vm.tiktok.com": true,
	}
	twitterHosts = map[string]bool{
		"twitter.com": true, "www.twitter.com": true, "mobile.twitter.com": true,
		"x.com": true, "www.x.com": true, "mobile.x.com": true,
	}
)

// Classify inspects raw without any network access. Unparsable or unknown
// URLs come back unchanged as Generic.
func (c *Classifier) Classify(raw string) Classification {
	out := Classification{
		Platform: Generic,
		Category: CategoryGeneric,
		Original: raw,
		URL:      raw,
	}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return out
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return out
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case youtubeHosts[host] || host == "youtu.be":
		out.Platform, out.Category = YouTube, CategoryVideo
		out.VideoID = youtubeID(host, u)
		if out.VideoID != "" {
			out.URL = "https://www.youtube.com/watch?v=" + url.QueryEscape(out.VideoID)
		}
	case tiktokHosts[host]:
		out.Platform, out.Category = TikTok, CategoryShortVideo
		out.URL = withHost(u, c.cfg.TikTokMirror)
	case twitterHosts[host]:
		out.Platform, out.Category = Twitter, CategoryMicroblog
		out.URL = withHost(u, c.cfg.TwitterMirror)
	case host == "open.spotify.com":
		out.Platform, out.Category = Spotify, CategoryMusic
		if c.cfg.SpotifyDirect {
			out.Direct = &DirectEmbed{
				Provider: "Spotify",
				URL:      "https://open.spotify.com/embed" + u.EscapedPath(),
			}
		}
	}
	return out
}

func youtubeID(host string, u *url.URL) string {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if host == "youtu.be" {
		return parts[0]
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	if len(parts) >= 2 {
		switch parts[0] {
		case "shorts", "embed", "live", "v":
			return parts[1]
		}
	}
	return ""
}

func withHost(u *url.URL, host string) string {
	clone := *u
	clone.Host = host
	return clone.String()
}

package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/embedscraper/internal/embed"
	"github.com/JakeFAU/embedscraper/internal/fetch"
	"github.com/JakeFAU/embedscraper/internal/media"
	"github.com/JakeFAU/embedscraper/internal/metadata"
	"github.com/JakeFAU/embedscraper/internal/robots"
	"github.com/JakeFAU/embedscraper/internal/source"
)

const (
	testAgent = "KastelBot/1.0 (+https://kastel.dev/docs/topics/scraping)"
	mediaURL  = "https://media.test"
)

const genericPage = `<html><head><title>Fallback</title>
<meta property="og:title" content="Hello">
<meta property="og:description" content="World">
<meta name="theme-color" content="#ff0000">
<meta property="og:image" content="https://cdn.example/a.png">
<meta property="og:image:width" content="640">
<meta property="og:image" content="https://cdn.example/b.png">
<meta property="og:image:width" content="320">
<meta property="og:site_name" content="Example">
<link rel="alternate" type="application/json+oembed" href="/oembed">
</head><body></body></html>`

const genericOEmbed = `{"author_name":"Jane","author_url":"https://example.com/jane",
"provider_name":"Example Oembed","title":"Oembed title","width":480,"html":{"nested":true}}`

func newTestScraper(f *stubFetcher, sources source.Config) *Scraper {
	return New(
		Config{UserAgent: testAgent, MediaURL: mediaURL, MaxFiles: 5},
		source.NewClassifier(sources),
		robots.NewChecker(f, testAgent, zap.NewNop()),
		f,
		zap.NewNop(),
	)
}

func genericFetcher() *stubFetcher {
	f := newStubFetcher()
	f.handle("https://example.com/post", route{body: genericPage})
	f.handle("https://example.com/oembed", route{body: genericOEmbed})
	return f
}

func TestScrapeGenericPage(t *testing.T) {
	t.Parallel()

	f := genericFetcher()
	res, err := newTestScraper(f, source.Config{}).Scrape(context.Background(), "https://example.com/post", Options{})
	require.NoError(t, err)
	require.Nil(t, res.Tree)
	require.Equal(t, source.Generic, res.Classification.Platform)

	e := res.Embed
	require.Equal(t, embed.TypeSite, e.Type)
	require.Nil(t, e.IframeSource)
	require.Equal(t, "Hello", e.Title)
	require.Equal(t, "World", e.Description)
	require.NotNil(t, e.Color)
	require.Equal(t, 0xff0000, *e.Color)
	require.Equal(t, &embed.Author{Name: "Jane", URL: "https://example.com/jane"}, e.Author)
	require.Equal(t, "Example Oembed", e.Provider.Name)

	proxy := media.NewProxy(mediaURL)
	require.Len(t, e.Files, 2)
	require.Equal(t, "https://cdn.example/a.png", e.Files[0].RawURL)
	require.Equal(t, proxy.External("https://cdn.example/a.png"), e.Files[0].URL)
	require.Equal(t, embed.FileTypeImage, e.Files[0].Type)
	require.Equal(t, 640, *e.Files[0].Width)
	require.Equal(t, "https://cdn.example/b.png", e.Files[1].RawURL)
	require.Equal(t, 320, *e.Files[1].Width)
	require.Empty(t, e.Files[0].ThumbHash)

	require.Equal(t, []string{"robots", "page", "oembed"}, f.kinds())
	page, ok := f.request("page")
	require.True(t, ok)
	require.Equal(t, testAgent, page.Header.Get("User-Agent"))
	require.Equal(t, "navigate", page.Header.Get("Sec-Fetch-Mode"))
}

func TestScrapeProviderFallsBackToSiteName(t *testing.T) {
	t.Parallel()

	f := newStubFetcher()
	f.handle("https://example.com/post", route{body: genericPage})
	f.handle("https://example.com/oembed", route{status: http.StatusInternalServerError})

	res, err := newTestScraper(f, source.Config{}).Scrape(context.Background(), "https://example.com/post", Options{})
	require.NoError(t, err)
	require.Nil(t, res.Embed.Author)
	require.Equal(t, &embed.Provider{Name: "Example"}, res.Embed.Provider)
}

func TestScrapeImageMarkupVariants(t *testing.T) {
	t.Parallel()

	type file struct {
		raw   string
		width int
	}
	tests := []struct {
		name string
		head string
		want []file
	}{
		{
			name: "extra width tag",
			head: `<meta property="og:image" content="https://cdn.example/a.png">
<meta property="og:image:width" content="640">
<meta property="og:image:width" content="320">`,
			want: []file{{"https://cdn.example/a.png", 640}},
		},
		{
			name: "secure url only",
			head: `<meta property="og:image:secure_url" content="https://cdn.example/s.png">
<meta property="og:image:width" content="100">`,
			want: []file{{"https://cdn.example/s.png", 100}},
		},
		{
			name: "secure copy of og image",
			head: `<meta property="og:image" content="http://cdn.example/c.png">
<meta property="og:image:secure_url" content="https://cdn.example/c.png">`,
			want: []file{{raw: "http://cdn.example/c.png"}},
		},
		{
			name: "dimensions without image",
			head: `<meta property="og:image:width" content="100">`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newStubFetcher()
			f.handle("https://example.com/post", route{body: "<html><head><title>T</title>" + tt.head + "</head></html>"})

			res, err := newTestScraper(f, source.Config{}).Scrape(context.Background(), "https://example.com/post", Options{})
			require.NoError(t, err)
			require.Equal(t, "T", res.Embed.Title)
			require.Len(t, res.Embed.Files, len(tt.want))
			for i, want := range tt.want {
				got := res.Embed.Files[i]
				require.Equal(t, want.raw, got.RawURL)
				require.NotEmpty(t, got.URL)
				if want.width == 0 {
					require.Nil(t, got.Width)
					continue
				}
				require.NotNil(t, got.Width)
				require.Equal(t, want.width, *got.Width)
			}
		})
	}
}

func TestScrapeRespectsRobots(t *testing.T) {
	t.Parallel()

	f := genericFetcher()
	f.handle("https://example.com/robots.txt", route{body: "User-agent: *\nDisallow: /\n"})

	_, err := newTestScraper(f, source.Config{}).Scrape(context.Background(), "https://example.com/post", Options{})
	require.ErrorIs(t, err, embed.ErrRobotsDisallowed)
	require.Equal(t, http.StatusForbidden, embed.StatusFor(err))
	require.Equal(t, []string{"robots"}, f.kinds())
}

func TestScrapeRobotsFetchFailure(t *testing.T) {
	t.Parallel()

	f := genericFetcher()
	f.handle("https://example.com/robots.txt", route{err: errors.New("dial tcp: refused")})

	_, err := newTestScraper(f, source.Config{}).Scrape(context.Background(), "https://example.com/post", Options{})
	require.ErrorIs(t, err, embed.ErrRobotsFetch)
	require.Equal(t, 0, f.count("page"))
}

func TestScrapeFetchFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		page route
		want *embed.Error
	}{
		{"transport", route{err: errors.New("timeout")}, embed.ErrEmbedFetch},
		{"body", route{err: fmt.Errorf("%w: reset", fetch.ErrBody)}, embed.ErrEmbedBody},
		{"empty", route{body: ""}, embed.ErrEmbedBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newStubFetcher()
			f.handle("https://example.com/post", tt.page)

			res, err := newTestScraper(f, source.Config{}).Scrape(context.Background(), "https://example.com/post", Options{})
			require.Nil(t, res)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, 0, f.count("oembed"))
		})
	}
}

func TestScrapeRawReturnsTree(t *testing.T) {
	t.Parallel()

	f := genericFetcher()
	res, err := newTestScraper(f, source.Config{}).Scrape(context.Background(), "https://example.com/post", Options{Raw: true})
	require.NoError(t, err)
	require.Nil(t, res.Embed)
	require.NotNil(t, res.Tree)
	require.Same(t, res.Tree, res.Payload())

	title := metadata.Resolve(*res.Tree, metadata.MustParsePath("og.title"))
	require.Len(t, title, 1)
	s, _ := title[0].Str()
	require.Equal(t, "Hello", s)

	// oEmbed fields are merged without overriding the page's own title.
	fallback := metadata.Resolve(*res.Tree, metadata.MustParsePath("title"))
	s, _ = fallback[0].Str()
	require.Equal(t, "Fallback", s)
	require.Len(t, metadata.Resolve(*res.Tree, metadata.MustParsePath("author_name")), 1)
	require.Empty(t, metadata.Resolve(*res.Tree, metadata.MustParsePath("html")))
}

func TestScrapeThumbhash(t *testing.T) {
	t.Parallel()

	f := genericFetcher()
	proxy := media.NewProxy(mediaURL)
	f.handle(proxy.Thumbhash("https://cdn.example/a.png"), route{body: `{"thumbhash":"hashA"}`})

	res, err := newTestScraper(f, source.Config{}).Scrape(context.Background(), "https://example.com/post", Options{Thumbhash: true})
	require.NoError(t, err)
	require.Len(t, res.Embed.Files, 2)
	require.Equal(t, "hashA", res.Embed.Files[0].ThumbHash)
	require.Empty(t, res.Embed.Files[1].ThumbHash)
	require.Equal(t, 2, f.count("thumbhash"))
}

func TestScrapeRewritesBeforeFetching(t *testing.T) {
	t.Parallel()

	f := newStubFetcher()
	f.handle("https://tnktok.com/@u/video/1", route{body: `<meta property="og:title" content="Clip">`})

	s := newTestScraper(f, source.Config{})
	require.Equal(t, "https://tnktok.com/@u/video/1", s.Classify("https://www.tiktok.com/@u/video/1").URL)

	res, err := s.Scrape(context.Background(), "https://www.tiktok.com/@u/video/1", Options{})
	require.NoError(t, err)
	require.Equal(t, "https://tnktok.com/robots.txt", f.first().URL)
	require.Equal(t, "Clip", res.Embed.Title)
	for _, c := range f.calls {
		require.Equal(t, "tnktok.com", hostOf(c.URL))
	}
}

func TestScrapeDirectEmbedShortCut(t *testing.T) {
	t.Parallel()

	f := newStubFetcher()
	f.handle("https://open.spotify.com/track/42", route{body: `<meta property="og:title" content="Song">`})
	s := newTestScraper(f, source.Config{SpotifyDirect: true})

	res, err := s.Scrape(context.Background(), "https://open.spotify.com/track/42", Options{})
	require.NoError(t, err)
	require.Equal(t, embed.TypeIframe, res.Embed.Type)
	require.Equal(t, &embed.IframeSource{Provider: "Spotify", URL: "https://open.spotify.com/embed/track/42"}, res.Embed.IframeSource)
	require.Equal(t, 0, f.count("page"))

	raw, err := s.Scrape(context.Background(), "https://open.spotify.com/track/42", Options{Raw: true})
	require.NoError(t, err)
	require.NotNil(t, raw.Tree)
	require.Equal(t, 1, f.count("page"))
}

const youtubePage = `<html><head>
<meta property="og:title" content="A Video">
<meta property="og:description" content="About it">
<meta property="og:site_name" content="YouTube">
<meta property="og:video:url" content="https://www.youtube.com/embed/abc">
<meta name="theme-color" content="rgba(255, 0, 0, 0.5)">
</head><body>
<span itemprop="author"><link itemprop="url" href="http://www.youtube.com/@channel"><link itemprop="name" content="The Channel"></span>
<script>var ytInitialData = {"videoSecondaryInfoRenderer": {"owner": {"videoOwnerRenderer": {"thumbnail": {"thumbnails": [{"url": "https://yt3.ggpht.com/icon=s48-c-k"}]}}}}};</script>
</body></html>`

func TestScrapeYouTube(t *testing.T) {
	t.Parallel()

	f := newStubFetcher()
	f.handle("https://www.youtube.com/watch?v=abc", route{body: youtubePage})
	thumb := "https://i.ytimg.com/vi/abc/maxresdefault.jpg"
	proxy := media.NewProxy(mediaURL)
	f.handle(proxy.Thumbhash(thumb), route{body: `{"thumbhash":"yt"}`})

	res, err := newTestScraper(f, source.Config{}).Scrape(context.Background(), "https://youtu.be/abc", Options{Thumbhash: true})
	require.NoError(t, err)

	e := res.Embed
	require.Equal(t, embed.TypeIframe, e.Type)
	require.Equal(t, &embed.IframeSource{Provider: "YouTube", URL: "https://www.youtube.com/embed/abc"}, e.IframeSource)
	require.Equal(t, "A Video", e.Title)
	require.Equal(t, "About it", e.Description)
	require.Equal(t, 0xff0000, *e.Color)
	require.Equal(t, "The Channel", e.Author.Name)
	require.Equal(t, "http://www.youtube.com/@channel", e.Author.URL)
	require.Equal(t, proxy.External("https://yt3.ggpht.com/icon=s256-c-k"), e.Author.IconURL)
	require.Equal(t, []embed.File{{
		URL:       proxy.External(thumb),
		RawURL:    thumb,
		Type:      embed.FileTypeImage,
		Name:      "YoutubeThumbnail",
		ThumbHash: "yt",
	}}, e.Files)
}

func TestScrapeYouTubeWithoutVideoID(t *testing.T) {
	t.Parallel()

	f := newStubFetcher()
	f.handle("https://www.youtube.com/@channel", route{body: youtubePage})

	res, err := newTestScraper(f, source.Config{}).Scrape(context.Background(), "https://www.youtube.com/@channel", Options{})
	require.NoError(t, err)
	require.Equal(t, embed.TypeIframe, res.Embed.Type)
	require.Equal(t, "https://www.youtube.com/embed/abc", res.Embed.IframeSource.URL)
	require.Equal(t, "YouTube", res.Embed.IframeSource.Provider)
	require.Empty(t, res.Embed.Files)
}

func TestScrapeCanceledContext(t *testing.T) {
	t.Parallel()

	f := genericFetcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The stub ignores the context, so the failure surfaces from mapping.
	_, err := newTestScraper(f, source.Config{}).Scrape(ctx, "https://example.com/post", Options{})
	require.ErrorIs(t, err, context.Canceled)
}

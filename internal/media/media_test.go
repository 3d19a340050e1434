package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/embedscraper/internal/fetch"
)

func TestEscape(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https%3A%2Fi.ytimg.com%2Fvi%2Fabc%2Fmaxresdefault.jpg", Escape("https://i.ytimg.com/vi/abc/maxresdefault.jpg"))
	require.Equal(t, "http%3A%2Fx%2Fa%20b.png%3Fq%3D1", Escape("http://x/a b.png?q=1"))
}

func TestProxyURLs(t *testing.T) {
	t.Parallel()

	p := NewProxy("https://media.example/")
	require.Equal(t, "https://media.example/external/https%3A%2Fx%2Fy.png", p.External("https://x/y.png"))
	require.Equal(t, "https://media.example/stream/https%3A%2Fx%2Fv.mp4", p.Stream("https://x/v.mp4"))
	require.Equal(t, "https://media.example/frame/https%3A%2Fx%2Fv.mp4", p.Frame("https://x/v.mp4"))
	require.Equal(t, "https://media.example/thumbhash/https%3A%2Fx%2Fy.png", p.Thumbhash("https://x/y.png"))
}

func TestThumbhashLookup(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.RawPath, "good.png") || strings.Contains(r.URL.Path, "good.png"):
			_, _ = w.Write([]byte(`{"thumbhash":"abc123"}`))
		case strings.Contains(r.URL.Path, "null.png"):
			_, _ = w.Write([]byte(`{"thumbhash":null}`))
		case strings.Contains(r.URL.Path, "junk.png"):
			_, _ = w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewThumbhashClient(NewProxy(srv.URL), fetch.New(fetch.Config{}, nil), nil)
	ctx := context.Background()

	hash, err := client.Lookup(ctx, "https://x/good.png")
	require.NoError(t, err)
	require.Equal(t, "abc123", hash)

	_, err = client.Lookup(ctx, "https://x/null.png")
	require.ErrorIs(t, err, ErrNoThumbhash)

	_, err = client.Lookup(ctx, "https://x/junk.png")
	require.Error(t, err)

	_, err = client.Lookup(ctx, "https://x/missing.png")
	require.Error(t, err)

	require.Empty(t, client.BestEffort(ctx, "https://x/missing.png"))
	require.Equal(t, "abc123", client.BestEffort(ctx, "https://x/good.png"))
}

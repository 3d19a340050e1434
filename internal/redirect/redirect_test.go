package redirect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/embedscraper/internal/fetch"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", "/middle")
		w.WriteHeader(http.StatusMovedPermanently)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", "final?x=1")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/loop-a", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", "/loop-b")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/loop-b", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", "/loop-a")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/hop/", func(w http.ResponseWriter, r *http.Request) {
		var n int
		_, _ = fmt.Sscanf(r.URL.Path, "/hop/%d", &n)
		w.Header().Set("Location", fmt.Sprintf("/hop/%d", n+1))
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/head-only", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set("Location", "/final")
			w.WriteHeader(http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTrackShortener(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	chain := NewTracker(fetch.New(fetch.Config{}, nil), 0, nil).Track(context.Background(), srv.URL+"/short", http.MethodHead)

	require.True(t, chain.IsShortener)
	require.Equal(t, []string{srv.URL + "/short", srv.URL + "/middle", srv.URL + "/final?x=1"}, chain.RedirectChain)
}

func TestTrackDirectURL(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	chain := NewTracker(fetch.New(fetch.Config{}, nil), 0, nil).Track(context.Background(), srv.URL+"/final", http.MethodHead)

	require.False(t, chain.IsShortener)
	require.Equal(t, []string{srv.URL + "/final"}, chain.RedirectChain)
}

func TestTrackNetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	chain := NewTracker(fetch.New(fetch.Config{}, nil), 0, nil).Track(context.Background(), addr+"/x", http.MethodHead)
	require.False(t, chain.IsShortener)
	require.Equal(t, []string{addr + "/x"}, chain.RedirectChain)
}

func TestTrackStopsOnLoop(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	chain := NewTracker(fetch.New(fetch.Config{}, nil), 0, nil).Track(context.Background(), srv.URL+"/loop-a", http.MethodHead)

	require.True(t, chain.IsShortener)
	require.Equal(t, []string{srv.URL + "/loop-a", srv.URL + "/loop-b"}, chain.RedirectChain)
}

func TestTrackStopsAtHopLimit(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	chain := NewTracker(fetch.New(fetch.Config{}, nil), 4, nil).Track(context.Background(), srv.URL+"/hop/0", http.MethodHead)

	require.True(t, chain.IsShortener)
	require.Len(t, chain.RedirectChain, 4)
	require.Equal(t, srv.URL+"/hop/3", chain.RedirectChain[3])
}

func TestTrackMethod(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	tracker := NewTracker(fetch.New(fetch.Config{}, nil), 0, nil)

	head := tracker.Track(context.Background(), srv.URL+"/head-only", http.MethodHead)
	require.False(t, head.IsShortener)

	get := tracker.Track(context.Background(), srv.URL+"/head-only", http.MethodGet)
	require.True(t, get.IsShortener)
	require.Equal(t, srv.URL+"/final", get.RedirectChain[1])

	// Anything other than GET falls back to HEAD.
	other := tracker.Track(context.Background(), srv.URL+"/head-only", http.MethodPost)
	require.False(t, other.IsShortener)
}

package badger

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/embedscraper/internal/cache"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	ctx := context.Background()

	s, err := Open(dir, nil)
	require.NoError(t, err)
	entry := &cache.Entry{Status: http.StatusOK, Header: http.Header{"X-Url": {"https://example.com"}}, Body: []byte(`{"title":"x"}`)}
	require.NoError(t, s.Set(ctx, "GET /embed?url=a", entry, time.Hour))
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Ping(ctx), errClosed)

	s, err = Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, ok, err := s.Get(ctx, "GET /embed?url=a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry, got)
	require.NoError(t, s.Ping(ctx))
	require.Equal(t, "badger", s.Name())
}

func TestStoreMissAndExpiry(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "absent")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "short", &cache.Entry{Status: 200}, time.Second))
	require.Eventually(t, func() bool {
		_, ok, err := s.Get(ctx, "short")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}

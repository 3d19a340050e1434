package memory

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/embedscraper/internal/cache"
)

func TestStoreRoundTripCopiesData(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	entry := &cache.Entry{Status: http.StatusOK, Header: http.Header{"X-Url": {"a"}}, Body: []byte("content")}
	require.NoError(t, s.Set(ctx, "k", entry, time.Minute))

	entry.Body[0] = 'C'
	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "content", string(got.Body))
	require.Equal(t, "a", got.Header.Get("X-Url"))

	got.Body[0] = 'X'
	again, _, _ := s.Get(ctx, "k")
	require.Equal(t, "content", string(again.Body))
}

func TestStoreExpiry(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	s := New()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", &cache.Entry{Status: 200}, time.Second))
	require.NoError(t, s.Set(ctx, "long", &cache.Entry{Status: 200}, time.Hour))

	now = now.Add(2 * time.Second)
	_, ok, err := s.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, s.Len())

	now = now.Add(2 * time.Hour)
	require.Equal(t, 1, s.Sweep())
	require.Equal(t, 0, s.Len())
}

func TestStoreMiss(t *testing.T) {
	t.Parallel()

	s := New()
	got, ok, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, got)
	require.NoError(t, s.Ping(context.Background()))
	require.Equal(t, "memory", s.Name())
	require.NoError(t, s.Close())
}

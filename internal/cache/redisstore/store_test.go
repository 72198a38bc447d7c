package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client), mr
}

func TestGetSetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	payload := []byte(`{"success":true}`)
	require.NoError(t, store.Set(ctx, "emote_search:pog:100:false", payload, time.Hour))

	entry, ok, err := store.Get(ctx, "emote_search:pog:100:false")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, string(payload), string(entry.Payload))
	assert.WithinDuration(t, time.Now().UTC(), entry.StoredAt, 5*time.Second)
}

func TestGetMiss(t *testing.T) {
	store, _ := newTestStore(t)

	_, ok, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetAppliesTTL(t *testing.T) {
	store, mr := newTestStore(t)

	require.NoError(t, store.Set(context.Background(), "trending:weekly:20:1:false", []byte(`{}`), time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("trending:weekly:20:1:false"))
}

func TestDeleteByPatterns(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{
		"emote_search:a:100:false",
		"emote_search:b:100:false",
		"trending:trending_weekly:20:1:false",
		"ratelimit:search:1.2.3.4",
	} {
		require.NoError(t, store.Set(ctx, key, []byte(`{}`), time.Hour))
	}

	removed, err := store.DeleteByPatterns(ctx, "emote_search:*", "trending:*")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	_, ok, err := store.Get(ctx, "ratelimit:search:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStatsCountsPatterns(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "emote_search:a:100:false", []byte(`{}`), time.Hour))
	require.NoError(t, store.Set(ctx, "emote_search:b:100:false", []byte(`{}`), time.Hour))
	require.NoError(t, store.Set(ctx, "trending:trending_daily:20:1:true", []byte(`{}`), time.Hour))

	stats, err := store.Stats(ctx, "emote_search:*", "trending:*")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalKeys)
	assert.Equal(t, 2, stats.PatternCounts["emote_search:*"])
	assert.Equal(t, 1, stats.PatternCounts["trending:*"])
}

func TestPing(t *testing.T) {
	store, mr := newTestStore(t)

	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}

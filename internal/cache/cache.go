package cache

import (
	"context"
	"time"
)

// Entry is a cached payload together with the time it was stored, so callers
// can decide whether a background refresh is due.
type Entry struct {
	Payload  []byte
	StoredAt time.Time
}

// Store is the response cache used by the API handlers.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// Stats summarises the state of the cache backend.
type Stats struct {
	TotalKeys     int64
	PatternCounts map[string]int
	UsedMemory    string
	HitRatio      float64
}

// Admin exposes the operational surface behind the cache status and clear
// endpoints.
type Admin interface {
	Stats(ctx context.Context, patterns ...string) (Stats, error)
	DeleteByPatterns(ctx context.Context, patterns ...string) (int, error)
	Ping(ctx context.Context) error
}

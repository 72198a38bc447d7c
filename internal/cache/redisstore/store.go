package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emotevault/emotevault/internal/cache"
)

const (
	scanBatch = 200
	delBatch  = 100
)

// Store implements cache.Store and cache.Admin backed by Redis.
type Store struct {
	client *redis.Client
}

type envelope struct {
	StoredAt time.Time       `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// New constructs a Redis-backed cache store.
func New(rawURL string) (*Store, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Client returns the underlying redis client.
func (s *Store) Client() *redis.Client {
	return s.client
}

// Close terminates the underlying Redis client connections.
func (s *Store) Close() error {
	return s.client.Close()
}

// Get retrieves a cached entry if present.
func (s *Store) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return cache.Entry{}, false, nil
		}
		return cache.Entry{}, false, fmt.Errorf("redis get %q: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return cache.Entry{}, false, fmt.Errorf("decode cached payload %q: %w", key, err)
	}

	return cache.Entry{
		Payload:  append([]byte(nil), env.Payload...),
		StoredAt: env.StoredAt,
	}, true, nil
}

// Set stores a cached entry with the provided TTL.
func (s *Store) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	env := envelope{
		StoredAt: time.Now().UTC(),
		Payload:  append([]byte(nil), payload...),
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode cached payload %q: %w", key, err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}

	return nil
}

// Ping reports whether Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Stats gathers key counts and, where the server reports them, memory use
// and the keyspace hit ratio. Each pattern is counted with SCAN so large
// keyspaces do not block the server.
func (s *Store) Stats(ctx context.Context, patterns ...string) (cache.Stats, error) {
	total, err := s.client.DBSize(ctx).Result()
	if err != nil {
		return cache.Stats{}, fmt.Errorf("redis dbsize: %w", err)
	}

	counts := make(map[string]int, len(patterns))
	for _, pattern := range patterns {
		keys, err := s.scanKeys(ctx, pattern)
		if err != nil {
			return cache.Stats{}, err
		}
		counts[pattern] = len(keys)
	}

	st := cache.Stats{
		TotalKeys:     total,
		PatternCounts: counts,
	}

	// INFO fields are best effort: some servers (and the miniredis test
	// double) omit them.
	info, err := s.client.Info(ctx).Result()
	if err == nil {
		st.UsedMemory = infoField(info, "used_memory_human")
		st.HitRatio = hitRatio(info)
	}

	return st, nil
}

// DeleteByPatterns removes every key matching any of the given glob patterns
// and reports how many were removed.
func (s *Store) DeleteByPatterns(ctx context.Context, patterns ...string) (int, error) {
	removed := 0
	for _, pattern := range patterns {
		keys, err := s.scanKeys(ctx, pattern)
		if err != nil {
			return removed, err
		}
		for start := 0; start < len(keys); start += delBatch {
			end := min(start+delBatch, len(keys))
			n, err := s.client.Del(ctx, keys[start:end]...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis del: %w", err)
			}
			removed += int(n)
		}
	}
	return removed, nil
}

func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %q: %w", pattern, err)
	}
	return keys, nil
}

// infoField extracts a "field:value" line from an INFO response, or "".
func infoField(info, field string) string {
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, field+":"); ok {
			return v
		}
	}
	return ""
}

func hitRatio(info string) float64 {
	hits, _ := strconv.ParseFloat(infoField(info, "keyspace_hits"), 64)
	misses, _ := strconv.ParseFloat(infoField(info, "keyspace_misses"), 64)
	if hits <= 0 {
		return 0
	}
	if misses <= 0 {
		misses = 1
	}
	return hits / (hits + misses) * 100
}

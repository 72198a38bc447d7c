package server

import (
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/emotevault/emotevault/internal/cache"
	"github.com/emotevault/emotevault/internal/config"
)

// Deps are the collaborators the HTTP API composes.
type Deps struct {
	Cache  cache.Store
	Admin  cache.Admin
	Blobs  BlobStore
	Source EmoteSource
	Mirror Mirrorer

	// Redis holds the rate limiter counters.
	Redis *redis.Client
}

// NewHandler builds the routed, rate-limited HTTP handler.
func NewHandler(cfg config.Config, logger *slog.Logger, deps Deps) (http.Handler, error) {
	h := newHandler(cfg, logger, deps)

	limits, err := newLimitSet(deps.Redis, cfg.TrustForwardHeader)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/search-emotes", limits.wrap("search", h.handleSearch))
	mux.Handle("GET /api/trending/emotes", limits.wrap("trending", h.handleTrending))
	mux.Handle("GET /api/storage/trending-emotes", limits.wrap("storage", h.handleStorageTrending))
	mux.Handle("GET /api/storage/emote-api", limits.wrap("storage", h.handleStorageSearch))
	mux.Handle("GET /api/storage/assets/{folder}/{file}", limits.wrap("storage", h.handleAsset))
	mux.Handle("GET /api/cache/status", limits.wrap("cachestatus", h.handleCacheStatus))
	mux.Handle("POST /api/cache/clear", limits.wrap("cacheclear", h.handleCacheClear))
	mux.Handle("GET /health", limits.wrap("health", h.handleHealth))
	mux.Handle("GET /{$}", limits.wrap("index", h.handleIndex))

	return mux, nil
}

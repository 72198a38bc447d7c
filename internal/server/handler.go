package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/emotevault/emotevault/internal/cache"
	"github.com/emotevault/emotevault/internal/config"
	"github.com/emotevault/emotevault/internal/emotes"
	"github.com/emotevault/emotevault/internal/pagination"
	"github.com/emotevault/emotevault/internal/seventv"
	"github.com/emotevault/emotevault/internal/storage"
	"github.com/emotevault/emotevault/internal/util"
)

// Cache key namespaces. The cache status and clear endpoints operate on
// these same patterns.
const (
	searchKeyPrefix   = "emote_search:"
	trendingKeyPrefix = "trending:"
)

const (
	searchDefaultLimit = 100
	searchMaxLimit     = 200
	trendingFetchCap   = 300
	maxRequestBody     = 1 << 20
)

// EmoteSource queries the upstream emote API.
type EmoteSource interface {
	Search(ctx context.Context, query string, limit int, animatedOnly bool) ([]seventv.Emote, error)
	Trending(ctx context.Context, period seventv.Period, limit int, animatedOnly bool) ([]seventv.Emote, error)
}

// BlobStore is the blob storage surface the handlers need.
type BlobStore interface {
	List(ctx context.Context, prefix string) ([]storage.BlobInfo, error)
	Open(ctx context.Context, name string) (*storage.Object, error)
	URL(name string) string
	Available(ctx context.Context) error
}

// Mirrorer copies upstream emote assets into blob storage.
type Mirrorer interface {
	MirrorBatch(ctx context.Context, batch []seventv.Emote, folder string) []emotes.StoredEmote
}

// Handler implements the HTTP API.
type Handler struct {
	cfg    config.Config
	logger *slog.Logger
	cache  cache.Store
	admin  cache.Admin
	blobs  BlobStore
	source EmoteSource
	mirror Mirrorer
	sgroup singleflight.Group
}

func newHandler(cfg config.Config, logger *slog.Logger, deps Deps) *Handler {
	return &Handler{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "api")),
		cache:  deps.Cache,
		admin:  deps.Admin,
		blobs:  deps.Blobs,
		source: deps.Source,
		mirror: deps.Mirror,
	}
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req searchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	limit := searchDefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	limit = max(1, min(limit, searchMaxLimit))

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	key := fmt.Sprintf("%s%s:%d:%t", searchKeyPrefix, strings.ToLower(query), limit, req.AnimatedOnly)
	payload, cached, err := h.readThrough(ctx, key, h.cfg.SearchCacheTTL, func(ctx context.Context) ([]byte, error) {
		found, err := h.source.Search(ctx, query, limit, req.AnimatedOnly)
		if err != nil {
			return nil, err
		}

		resp := SearchResponse{
			Success:    true,
			TotalFound: len(found),
			Emotes:     []emotes.StoredEmote{},
		}
		if len(found) == 0 {
			resp.Message = "No emotes found for the given query"
		} else {
			resp.Emotes = h.mirror.MirrorBatch(ctx, found, emotes.FolderSearch)
		}
		return json.Marshal(resp)
	})
	if err != nil {
		h.logger.Error("search failed", slog.String("query", query), slog.String("error", err.Error()))
		respondError(w, http.StatusBadGateway, err)
		return
	}

	h.respondPayload(w, payload, cached, start)
}

func (h *Handler) handleTrending(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	period, err := seventv.ParsePeriod(q.Get("period"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	params, err := pagination.Parse(q)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	animatedOnly, _ := strconv.ParseBool(q.Get("animated_only"))

	// The upstream API has no page cursor, so fetch enough results to cover
	// the requested page and window locally. Capped because 7TV stops
	// returning useful results beyond a few hundred.
	fetchLimit := min(params.Page*params.Limit, trendingFetchCap)

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	key := fmt.Sprintf("%s%s:%d:%d:%t", trendingKeyPrefix, period, params.Limit, params.Page, animatedOnly)
	payload, cached, err := h.readThrough(ctx, key, h.cfg.TrendingCacheTTL, func(ctx context.Context) ([]byte, error) {
		items, err := h.source.Trending(ctx, period, fetchLimit, animatedOnly)
		if err != nil {
			return nil, err
		}

		resp := SearchResponse{
			Success:        true,
			TotalFound:     len(items),
			Emotes:         []emotes.StoredEmote{},
			Page:           params.Page,
			ResultsPerPage: params.Limit,
		}
		if len(items) == 0 {
			resp.Message = fmt.Sprintf("No trending emotes found for period: %s", period)
			return json.Marshal(resp)
		}

		win := params.WindowOver(len(items))
		resp.TotalPages = win.TotalPages
		resp.HasNextPage = win.HasNext
		resp.Emotes = h.mirror.MirrorBatch(ctx, items[win.Start:win.End], emotes.FolderTrending)
		return json.Marshal(resp)
	})
	if err != nil {
		h.logger.Error("trending failed", slog.String("period", string(period)), slog.String("error", err.Error()))
		respondError(w, http.StatusBadGateway, err)
		return
	}

	h.respondPayload(w, payload, cached, start)
}

func (h *Handler) handleStorageTrending(w http.ResponseWriter, r *http.Request) {
	h.handleStorageList(w, r, emotes.FolderTrending, "No trending emotes found in storage")
}

func (h *Handler) handleStorageSearch(w http.ResponseWriter, r *http.Request) {
	h.handleStorageList(w, r, emotes.FolderSearch, "No emotes found in storage")
}

func (h *Handler) handleStorageList(w http.ResponseWriter, r *http.Request, folder, emptyMessage string) {
	start := time.Now()

	params, err := pagination.Parse(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	fail := func(message string) {
		respondJSON(w, http.StatusOK, SearchResponse{
			Success:        false,
			Emotes:         []emotes.StoredEmote{},
			Message:        message,
			ProcessingTime: time.Since(start).Seconds(),
			Page:           params.Page,
			ResultsPerPage: params.Limit,
		})
	}

	if err := h.blobs.Available(ctx); err != nil {
		h.logger.Warn("storage unavailable", slog.String("error", err.Error()))
		fail("Azure Storage is not properly configured or unavailable")
		return
	}

	prefix := folder + "/"
	infos, err := h.blobs.List(ctx, prefix)
	if err != nil {
		h.logger.Error("storage list failed", slog.String("prefix", prefix), slog.String("error", err.Error()))
		fail("Error accessing Azure Storage: " + sanitizeError(err))
		return
	}

	// Drop directory placeholders before paginating so page windows only
	// ever contain real assets.
	assets := infos[:0]
	for _, info := range infos {
		name := strings.TrimPrefix(info.Name, prefix)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		assets = append(assets, info)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })

	total := len(assets)
	resp := SearchResponse{
		Success:        true,
		TotalFound:     total,
		Emotes:         []emotes.StoredEmote{},
		ProcessingTime: time.Since(start).Seconds(),
		Page:           params.Page,
		ResultsPerPage: params.Limit,
	}

	if total == 0 {
		resp.Message = emptyMessage
		respondJSON(w, http.StatusOK, resp)
		return
	}

	win := params.WindowOver(total)
	resp.TotalPages = win.TotalPages
	resp.HasNextPage = win.HasNext

	if params.OutOfRange(total) {
		resp.Success = false
		resp.Message = fmt.Sprintf("Page %d exceeds available pages (total: %d)", params.Page, win.TotalPages)
		respondJSON(w, http.StatusOK, resp)
		return
	}

	for _, info := range assets[win.Start:win.End] {
		fileName := strings.TrimPrefix(info.Name, prefix)
		resp.Emotes = append(resp.Emotes, emotes.StoredEmote{
			FileName:  fileName,
			URL:       h.blobs.URL(info.Name),
			EmoteID:   util.StorageID(info.Name),
			EmoteName: strings.TrimSuffix(fileName, extOf(fileName)),
		})
	}

	resp.ProcessingTime = time.Since(start).Seconds()
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAsset(w http.ResponseWriter, r *http.Request) {
	folder := r.PathValue("folder")
	file := r.PathValue("file")

	if folder != emotes.FolderSearch && folder != emotes.FolderTrending {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "unknown asset folder"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	obj, err := h.blobs.Open(ctx, folder+"/"+file)
	if err != nil {
		if storage.IsNotFound(err) {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "asset not found"})
			return
		}
		h.logger.Error("asset read failed", slog.String("file", file), slog.String("error", err.Error()))
		respondError(w, http.StatusBadGateway, err)
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set(headerContentType, contentType)
	w.Header().Set(headerAccessControlAllowOrigin, corsAllowOrigin)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Debug("asset stream interrupted", slog.String("file", file), slog.String("error", err.Error()))
	}
}

func (h *Handler) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	stats, err := h.admin.Stats(ctx, searchKeyPrefix+"*", trendingKeyPrefix+"*")
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "error",
			"message": sanitizeError(err),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "connected",
		"totalKeys":       stats.TotalKeys,
		"emoteSearchKeys": stats.PatternCounts[searchKeyPrefix+"*"],
		"trendingKeys":    stats.PatternCounts[trendingKeyPrefix+"*"],
		"usedMemory":      stats.UsedMemory,
		"hitRatio":        stats.HitRatio,
	})
}

func (h *Handler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	cacheType := r.URL.Query().Get("cache_type")
	if cacheType == "" {
		cacheType = "all"
	}

	var patterns []string
	switch cacheType {
	case "all":
		patterns = []string{searchKeyPrefix + "*", trendingKeyPrefix + "*"}
	case "search":
		patterns = []string{searchKeyPrefix + "*"}
	case "trending":
		patterns = []string{trendingKeyPrefix + "*"}
	default:
		respondJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "Invalid cache_type. Options are: all, search, trending",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	removed, err := h.admin.DeleteByPatterns(ctx, patterns...)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "Error clearing cache: " + sanitizeError(err),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Cache cleared. %d entries removed.", removed),
		"type":    cacheType,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	redisStatus := "connected"
	if err := h.admin.Ping(ctx); err != nil {
		redisStatus = "disconnected"
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"redis":     redisStatus,
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to the EmoteVault API",
		"endpoints": map[string]string{
			"search":           "/api/search-emotes",
			"trending_emotes":  "/api/trending/emotes",
			"storage_trending": "/api/storage/trending-emotes",
			"storage_emotes":   "/api/storage/emote-api",
			"asset":            "/api/storage/assets/{folder}/{file}",
			"cache_status":     "/api/cache/status",
			"clear_cache":      "/api/cache/clear",
			"health":           "/health",
		},
	})
}

// readThrough serves from cache when possible, otherwise fetches once per
// key (concurrent misses share a single upstream call) and stores the
// result. Cache failures degrade to an upstream fetch rather than failing
// the request. A hit older than the refresh threshold triggers an async
// re-fetch so popular keys never expire cold.
func (h *Handler) readThrough(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if entry, ok, err := h.cache.Get(ctx, key); err != nil {
		h.logger.Warn("cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	} else if ok {
		if time.Since(entry.StoredAt) > h.cfg.BackgroundRefreshAfter {
			h.launchRefresh(key, ttl, fetch)
		}
		return entry.Payload, true, nil
	}

	res, err, _ := h.sgroup.Do(key, func() (any, error) {
		payload, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := h.store(key, payload, ttl); err != nil {
			h.logger.Warn("cache store failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return payload, nil
	})
	if err != nil {
		return nil, false, err
	}

	return res.([]byte), false, nil
}

func (h *Handler) launchRefresh(key string, ttl time.Duration, fetch func(context.Context) ([]byte, error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.RequestTimeout)
		defer cancel()

		_, err, _ := h.sgroup.Do(key+":refresh", func() (any, error) {
			payload, err := fetch(ctx)
			if err != nil {
				return nil, err
			}
			if err := h.store(key, payload, ttl); err != nil {
				h.logger.Warn("refresh cache store failed", slog.String("key", key), slog.String("error", err.Error()))
			}
			return payload, nil
		})
		if err != nil {
			h.logger.Debug("background refresh failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}()
}

func (h *Handler) store(key string, payload []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return h.cache.Set(ctx, key, payload, ttl)
}

func (h *Handler) respondPayload(w http.ResponseWriter, payload []byte, cached bool, start time.Time) {
	var resp SearchResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	resp.Cached = cached
	resp.ProcessingTime = time.Since(start).Seconds()
	respondJSON(w, http.StatusOK, resp)
}

func extOf(fileName string) string {
	if i := strings.LastIndexByte(fileName, '.'); i >= 0 {
		return fileName[i:]
	}
	return ""
}

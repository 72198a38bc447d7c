package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/emotevault/emotevault/internal/cache"
	"github.com/emotevault/emotevault/internal/cache/redisstore"
	"github.com/emotevault/emotevault/internal/config"
	"github.com/emotevault/emotevault/internal/emotes"
	"github.com/emotevault/emotevault/internal/server"
	"github.com/emotevault/emotevault/internal/seventv"
	"github.com/emotevault/emotevault/internal/storage"
	"github.com/emotevault/emotevault/internal/transport"
)

// App wires configuration, dependencies, and the HTTP server together.
type App struct {
	cfg       config.Config
	logger    *slog.Logger
	cache     cache.Store
	stopCache func() error
	httpSrv   *http.Server
}

// New creates a fully initialised application.
func New(cfg config.Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	redisStore, err := redisstore.New(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("setup redis: %w", err)
	}

	var blobs *storage.Storer
	if cfg.UseAzurite {
		blobs, err = storage.NewDev(cfg.AzureContainer, logger)
	} else {
		blobs, err = storage.New(cfg.AzureAccount, cfg.AzureKey, cfg.AzureEndpointURL, cfg.AzureContainer, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("setup blob storage: %w", err)
	}

	httpClient := transport.NewHTTPClient(cfg)
	source := seventv.NewClient(cfg.SevenTVEndpoint, httpClient, logger)
	mirror := emotes.NewProcessor(blobs, httpClient, logger, cfg.MirrorConcurrency)

	handler, err := server.NewHandler(cfg, logger, server.Deps{
		Cache:  redisStore,
		Admin:  redisStore,
		Blobs:  blobs,
		Source: source,
		Mirror: mirror,
		Redis:  redisStore.Client(),
	})
	if err != nil {
		return nil, fmt.Errorf("build handler: %w", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           instrumentHandler(handler, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout + cfg.TransportTimeout,
		WriteTimeout:      cfg.TransportTimeout + cfg.RequestTimeout,
		IdleTimeout:       cfg.IdleConnTimeout,
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		cache:     redisStore,
		stopCache: redisStore.Close,
		httpSrv:   httpSrv,
	}, nil
}

// Run blocks until the server shuts down or the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	defer func() {
		if a.stopCache != nil {
			if err := a.stopCache(); err != nil {
				a.logger.Warn("cache close failed", slog.String("error", err.Error()))
			}
		}
	}()

	go func() {
		a.logger.Info("emote server starting", slog.String("addr", a.cfg.ListenAddr))
		err := a.httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func instrumentHandler(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
		dur := time.Since(start)
		logger.Debug("handled request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("duration", dur),
			slog.String("request_id", reqID))
	})
}

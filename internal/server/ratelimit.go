package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Per-route rate limits, per client IP. Counters live in Redis so every
// instance of the service shares the same budget.
var routeRates = map[string]limiter.Rate{
	"search":      {Period: 15 * time.Minute, Limit: 100},
	"trending":    {Period: 15 * time.Minute, Limit: 100},
	"storage":     {Period: 15 * time.Minute, Limit: 50},
	"cachestatus": {Period: time.Minute, Limit: 20},
	"cacheclear":  {Period: time.Minute, Limit: 5},
	"health":      {Period: time.Hour, Limit: 1000},
	"index":       {Period: time.Minute, Limit: 200},
}

type middlewareFunc func(http.Handler) http.Handler

// limitSet holds one wrapping middleware per route group.
type limitSet struct {
	byRoute map[string]middlewareFunc
}

func newLimitSet(client *redis.Client, trustForward bool) (*limitSet, error) {
	set := &limitSet{byRoute: make(map[string]middlewareFunc, len(routeRates))}

	for name, rate := range routeRates {
		store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix: "ratelimit:" + name,
		})
		if err != nil {
			return nil, fmt.Errorf("rate limit store %q: %w", name, err)
		}

		var opts []limiter.Option
		if trustForward {
			opts = append(opts, limiter.WithTrustForwardHeader(true))
		}

		mw := mstdlib.NewMiddleware(
			limiter.New(store, rate, opts...),
			mstdlib.WithLimitReachedHandler(limitReached),
			mstdlib.WithErrorHandler(limitError),
		)
		set.byRoute[name] = mw.Handler
	}

	return set, nil
}

func (s *limitSet) wrap(route string, h http.HandlerFunc) http.Handler {
	mw, ok := s.byRoute[route]
	if !ok {
		return h
	}
	return mw(h)
}

func limitReached(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusTooManyRequests, map[string]string{
		"error": "Too many requests from this IP, please try again later",
	})
}

func limitError(w http.ResponseWriter, _ *http.Request, err error) {
	respondError(w, http.StatusInternalServerError, err)
}

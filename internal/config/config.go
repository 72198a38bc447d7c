package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults chosen to match the public 7TV API and sensible cache lifetimes:
// search results are stable enough for a day, trending rotates faster.
const (
	defaultListenAddr       = ":8000"
	defaultSevenTVEndpoint  = "https://7tv.io/v3/gql"
	defaultSearchCacheTTL   = 24 * time.Hour
	defaultTrendingCacheTTL = 6 * time.Hour
	defaultRefreshAfter     = time.Hour
	defaultRequestTimeout   = 15 * time.Second
	defaultTransportTimeout = 30 * time.Second
	defaultDialTimeout      = 5 * time.Second
	defaultIdleConnTimeout  = 90 * time.Second
	defaultMaxIdleConns     = 128
	defaultMaxIdlePerHost   = 32
	defaultMirrorWorkers    = 10
)

// Config carries every runtime knob for the service. Values come from the
// environment; Load applies defaults and validates the result.
type Config struct {
	ListenAddr string

	RedisURL string

	// Azure Blob Storage. When UseAzurite is set the well-known azurite
	// development credentials are used and Account/Key may be empty.
	AzureAccount     string
	AzureKey         string
	AzureEndpointURL string
	AzureContainer   string
	UseAzurite       bool

	SevenTVEndpoint string

	SearchCacheTTL         time.Duration
	TrendingCacheTTL       time.Duration
	BackgroundRefreshAfter time.Duration

	RequestTimeout      time.Duration
	TransportTimeout    time.Duration
	DialTimeout         time.Duration
	IdleConnTimeout     time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int

	MirrorConcurrency int

	// TrustForwardHeader makes the rate limiter key on X-Forwarded-For.
	// Only enable behind a proxy that sets it.
	TrustForwardHeader bool
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:             getDefault("LISTEN_ADDR", defaultListenAddr),
		RedisURL:               os.Getenv("REDIS_URL"),
		AzureAccount:           os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:               os.Getenv("AZURE_STORAGE_KEY"),
		AzureEndpointURL:       os.Getenv("AZURE_BLOB_ENDPOINT_URL"),
		AzureContainer:         getDefault("AZURE_STORAGE_CONTAINER", "emotes"),
		UseAzurite:             getBool("AZURITE", false),
		SevenTVEndpoint:        getDefault("SEVENTV_GQL_ENDPOINT", defaultSevenTVEndpoint),
		TrustForwardHeader:     getBool("TRUST_FORWARD_HEADER", false),
		MirrorConcurrency:      defaultMirrorWorkers,
		MaxIdleConns:           defaultMaxIdleConns,
		MaxIdleConnsPerHost:    defaultMaxIdlePerHost,
		SearchCacheTTL:         defaultSearchCacheTTL,
		TrendingCacheTTL:       defaultTrendingCacheTTL,
		BackgroundRefreshAfter: defaultRefreshAfter,
		RequestTimeout:         defaultRequestTimeout,
		TransportTimeout:       defaultTransportTimeout,
		DialTimeout:            defaultDialTimeout,
		IdleConnTimeout:        defaultIdleConnTimeout,
	}

	var err error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SEARCH_CACHE_TTL", &cfg.SearchCacheTTL},
		{"TRENDING_CACHE_TTL", &cfg.TrendingCacheTTL},
		{"BACKGROUND_REFRESH_AFTER", &cfg.BackgroundRefreshAfter},
		{"REQUEST_TIMEOUT", &cfg.RequestTimeout},
		{"TRANSPORT_TIMEOUT", &cfg.TransportTimeout},
		{"DIAL_TIMEOUT", &cfg.DialTimeout},
		{"IDLE_CONN_TIMEOUT", &cfg.IdleConnTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.key, *d.dst); err != nil {
			return Config{}, err
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_IDLE_CONNS", &cfg.MaxIdleConns},
		{"MAX_IDLE_CONNS_PER_HOST", &cfg.MaxIdleConnsPerHost},
		{"MIRROR_CONCURRENCY", &cfg.MirrorConcurrency},
	}
	for _, i := range ints {
		if *i.dst, err = getInt(i.key, *i.dst); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set")
	}
	if !c.UseAzurite && (c.AzureAccount == "" || c.AzureKey == "") {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY must be set (or enable AZURITE)")
	}
	if c.AzureContainer == "" {
		return fmt.Errorf("AZURE_STORAGE_CONTAINER must not be empty")
	}
	if c.MirrorConcurrency < 1 {
		return fmt.Errorf("MIRROR_CONCURRENCY must be at least 1")
	}
	return nil
}

func getDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AZURITE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, "emotes", cfg.AzureContainer)
	assert.Equal(t, "https://7tv.io/v3/gql", cfg.SevenTVEndpoint)
	assert.Equal(t, 24*time.Hour, cfg.SearchCacheTTL)
	assert.Equal(t, 6*time.Hour, cfg.TrendingCacheTTL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10, cfg.MirrorConcurrency)
	assert.True(t, cfg.UseAzurite)
	assert.False(t, cfg.TrustForwardHeader)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	t.Setenv("AZURE_STORAGE_KEY", "key")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("SEARCH_CACHE_TTL", "30m")
	t.Setenv("MIRROR_CONCURRENCY", "4")
	t.Setenv("TRUST_FORWARD_HEADER", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 30*time.Minute, cfg.SearchCacheTTL)
	assert.Equal(t, 4, cfg.MirrorConcurrency)
	assert.True(t, cfg.TrustForwardHeader)
}

func TestLoadMissingRedis(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("AZURITE", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}

func TestLoadMissingAzureCredentials(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AZURE_STORAGE_ACCOUNT", "")
	t.Setenv("AZURE_STORAGE_KEY", "")
	t.Setenv("AZURITE", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AZURE_STORAGE_ACCOUNT")
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AZURITE", "true")
	t.Setenv("REQUEST_TIMEOUT", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_TIMEOUT")
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/cachefront/keys"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Addr())
	assert.Equal(t, 0, cfg.DB)
	assert.Equal(t, 50, cfg.MaxConnections)
	assert.Equal(t, 5*time.Second, cfg.OpTimeout)
	assert.Equal(t, time.Hour, cfg.DefaultTTL)
	assert.Equal(t, time.Hour, cfg.TTL[keys.NamespaceChat])
	assert.Equal(t, 2*time.Hour, cfg.TTL[keys.NamespaceSearch])
	assert.Equal(t, 24*time.Hour, cfg.TTL[keys.NamespaceArticle])
	assert.Equal(t, 12*time.Hour, cfg.TTL[keys.NamespaceExplain])
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("REDIS_MAX_CONNECTIONS", "10")
	t.Setenv("CACHE_TTL_CHAT", "90m")
	t.Setenv("CACHE_TTL_ARTICLE", "1d")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6380", cfg.Addr())
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.Equal(t, 10, cfg.MaxConnections)
	assert.Equal(t, 90*time.Minute, cfg.TTL[keys.NamespaceChat])
	assert.Equal(t, 24*time.Hour, cfg.TTL[keys.NamespaceArticle])
	// Untouched namespaces keep their defaults.
	assert.Equal(t, 2*time.Hour, cfg.TTL[keys.NamespaceSearch])
}

func TestLoadBadPort(t *testing.T) {
	t.Setenv("REDIS_PORT", "not-a-port")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("CACHE_TTL_SEARCH", "two hours")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadNegativeTTL(t *testing.T) {
	t.Setenv("CACHE_TTL_CHAT", "-1h")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadBadMaxConnections(t *testing.T) {
	t.Setenv("REDIS_MAX_CONNECTIONS", "0")
	_, err := Load()
	assert.Error(t, err)
}

// Package config reads the cache layer's configuration from the
// environment. All values are read once at process start; there is no
// hot reload.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/lexigraph/cachefront/keys"
)

// Defaults for every recognized option.
const (
	DefaultHost           = "localhost"
	DefaultPort           = 6379
	DefaultDB             = 0
	DefaultMaxConnections = 50
	DefaultOpTimeout      = 5 * time.Second

	DefaultTTL            = time.Hour
	DefaultTTLChat        = time.Hour
	DefaultTTLSearch      = 2 * time.Hour
	DefaultTTLArticle     = 24 * time.Hour
	DefaultTTLExplanation = 12 * time.Hour
)

// Config holds the store connection settings and the per-namespace TTL
// policy.
type Config struct {
	Host     string
	Port     int
	DB       int
	Password string

	// MaxConnections bounds the connection pool to the store.
	MaxConnections int

	// OpTimeout bounds every single store operation.
	OpTimeout time.Duration

	// TTL maps each namespace to its entry lifetime. Namespaces absent
	// from the map fall back to DefaultTTL.
	TTL map[keys.Namespace]time.Duration

	// DefaultTTL is the fallback lifetime for namespaces without a
	// configured TTL. Never zero: entries must always expire.
	DefaultTTL time.Duration
}

// Addr returns the host:port address of the store.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Default returns the configuration used when no environment overrides
// are present.
func Default() Config {
	return Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		DB:             DefaultDB,
		MaxConnections: DefaultMaxConnections,
		OpTimeout:      DefaultOpTimeout,
		TTL: map[keys.Namespace]time.Duration{
			keys.NamespaceChat:    DefaultTTLChat,
			keys.NamespaceSearch:  DefaultTTLSearch,
			keys.NamespaceArticle: DefaultTTLArticle,
			keys.NamespaceExplain: DefaultTTLExplanation,
		},
		DefaultTTL: DefaultTTL,
	}
}

// Load builds a Config from the environment:
//
//	REDIS_HOST, REDIS_PORT, REDIS_DB, REDIS_PASSWORD,
//	REDIS_MAX_CONNECTIONS, CACHE_OP_TIMEOUT, CACHE_TTL_DEFAULT,
//	CACHE_TTL_CHAT, CACHE_TTL_SEARCH, CACHE_TTL_ARTICLE,
//	CACHE_TTL_EXPLANATION
//
// Durations accept extended Go syntax ("90m", "24h", "1d", "1w"). A value
// that fails to parse is an error rather than a silent default, since a
// typo in a TTL should be caught at startup.
func Load() (Config, error) {
	cfg := Default()

	cfg.Host = getString("REDIS_HOST", cfg.Host)
	cfg.Password = getString("REDIS_PASSWORD", cfg.Password)

	var err error
	if cfg.Port, err = getInt("REDIS_PORT", cfg.Port); err != nil {
		return Config{}, err
	}
	if cfg.DB, err = getInt("REDIS_DB", cfg.DB); err != nil {
		return Config{}, err
	}
	if cfg.MaxConnections, err = getInt("REDIS_MAX_CONNECTIONS", cfg.MaxConnections); err != nil {
		return Config{}, err
	}
	if cfg.MaxConnections <= 0 {
		return Config{}, errors.Newf("config: REDIS_MAX_CONNECTIONS must be positive, got %d", cfg.MaxConnections)
	}
	if cfg.OpTimeout, err = getDuration("CACHE_OP_TIMEOUT", cfg.OpTimeout); err != nil {
		return Config{}, err
	}
	if cfg.DefaultTTL, err = getDuration("CACHE_TTL_DEFAULT", cfg.DefaultTTL); err != nil {
		return Config{}, err
	}

	ttlVars := map[keys.Namespace]string{
		keys.NamespaceChat:    "CACHE_TTL_CHAT",
		keys.NamespaceSearch:  "CACHE_TTL_SEARCH",
		keys.NamespaceArticle: "CACHE_TTL_ARTICLE",
		keys.NamespaceExplain: "CACHE_TTL_EXPLANATION",
	}
	for ns, name := range ttlVars {
		if cfg.TTL[ns], err = getDuration(name, cfg.TTL[ns]); err != nil {
			return Config{}, err
		}
		if cfg.TTL[ns] <= 0 {
			return Config{}, errors.Newf("config: %s must be positive", name)
		}
	}

	return cfg, nil
}

func getString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "config: %s=%q is not an integer", name, v)
	}
	return n, nil
}

func getDuration(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := str2duration.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "config: %s=%q is not a duration", name, v)
	}
	return d, nil
}

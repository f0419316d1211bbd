package cache

import (
	"time"

	"github.com/lexigraph/cachefront/config"
	"github.com/lexigraph/cachefront/keys"
)

// DefaultTTL is the fallback lifetime for namespaces without a configured
// TTL. Entries are never written without an expiration: the store runs
// LRU eviction under a hard memory ceiling, and unbounded entries risk
// unbounded growth.
const DefaultTTL = time.Hour

// Policy maps each namespace to its entry lifetime. It is built once at
// startup and immutable afterward.
type Policy struct {
	ttls map[keys.Namespace]time.Duration
	def  time.Duration
}

// NewPolicy copies ttls into an immutable policy. A non-positive def
// falls back to DefaultTTL.
func NewPolicy(def time.Duration, ttls map[keys.Namespace]time.Duration) Policy {
	if def <= 0 {
		def = DefaultTTL
	}
	copied := make(map[keys.Namespace]time.Duration, len(ttls))
	for ns, d := range ttls {
		if d > 0 {
			copied[ns] = d
		}
	}
	return Policy{ttls: copied, def: def}
}

// PolicyFromConfig builds the policy from the configuration surface.
func PolicyFromConfig(cfg config.Config) Policy {
	return NewPolicy(cfg.DefaultTTL, cfg.TTL)
}

// TTL resolves the lifetime for a namespace. A lookup miss returns the
// default, never zero.
func (p Policy) TTL(ns keys.Namespace) time.Duration {
	if d, ok := p.ttls[ns]; ok {
		return d
	}
	if p.def <= 0 {
		return DefaultTTL
	}
	return p.def
}

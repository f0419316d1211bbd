package store

import (
	"sync/atomic"
	"time"

	"github.com/lexigraph/cachefront/logger"
)

type healthState int32

const (
	stateHealthy healthState = iota
	stateDegraded
)

func (s healthState) String() string {
	switch s {
	case stateHealthy:
		return "HEALTHY"
	case stateDegraded:
		return "DEGRADED"
	default:
		return "UNKNOWN"
	}
}

// health is the two-state availability machine for the backing store.
// A run of threshold consecutive operation failures flips it to degraded;
// a single failure never does, which keeps a lone timeout from flapping
// the whole cache. While degraded, a recovery probe is permitted at most
// once per probeInterval; a successful probe (or any successful
// operation) flips it back to healthy.
type health struct {
	log           logger.Logger
	threshold     int32
	probeInterval time.Duration

	state     atomic.Int32
	failures  atomic.Int32
	lastProbe atomic.Int64 // unix nanos of the last transition or probe
}

func newHealth(log logger.Logger, threshold int32, probeInterval time.Duration) *health {
	return &health{
		log:           log,
		threshold:     threshold,
		probeInterval: probeInterval,
	}
}

// available reports whether the store is currently usable.
func (h *health) available() bool {
	return healthState(h.state.Load()) == stateHealthy
}

// recordSuccess resets the failure run and recovers from degraded.
func (h *health) recordSuccess() {
	h.failures.Store(0)
	if h.state.CompareAndSwap(int32(stateDegraded), int32(stateHealthy)) {
		h.log.Info("store reachable again, caching re-enabled")
	}
}

// recordFailure counts a failed operation and degrades once the run of
// consecutive failures reaches the threshold.
func (h *health) recordFailure() {
	failures := h.failures.Add(1)
	if failures >= h.threshold {
		h.degrade()
	}
}

// degrade flips to degraded immediately, regardless of the failure count.
func (h *health) degrade() {
	h.lastProbe.Store(time.Now().UnixNano())
	if h.state.CompareAndSwap(int32(stateHealthy), int32(stateDegraded)) {
		h.log.Warn("store unreachable, caching disabled until it recovers")
	}
}

// shouldProbe reports whether a degraded store is due for a recovery
// probe. At most one caller wins per probe interval.
func (h *health) shouldProbe() bool {
	if h.available() {
		return false
	}
	now := time.Now().UnixNano()
	last := h.lastProbe.Load()
	if now-last < h.probeInterval.Nanoseconds() {
		return false
	}
	return h.lastProbe.CompareAndSwap(last, now)
}

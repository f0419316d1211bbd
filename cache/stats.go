package cache

import "sync/atomic"

// counters tracks confirmed store-backed lookup outcomes. Increments are
// atomic so concurrent callers never lose a count. The counters are
// process-local and reset on restart; that is a stated limitation, not a
// defect.
type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (c *counters) hit()  { c.hits.Add(1) }
func (c *counters) miss() { c.misses.Add(1) }

func (c *counters) snapshot() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Stats is the point-in-time view returned by [Cache.Stats]. Hits, Misses
// and HitRate are process-local; TotalKeys and the memory figures are
// pulled live from the store and are zero while the store is unavailable.
type Stats struct {
	Enabled    bool    `json:"enabled"`
	TotalKeys  int64   `json:"total_keys"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
	MemoryUsed int64   `json:"memory_used"`
	MemoryPeak int64   `json:"memory_peak"`
}

// hitRate is hits/(hits+misses), defined as 0 when no lookups have
// happened yet.
func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Package store is the only component that talks to the backing Redis
// store. It owns the bounded connection pool, converts transport failures
// into an availability signal instead of letting them escape, and exposes
// the four logical operations the cache facade is built on: read, write,
// delete-by-pattern and delete-all.
package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lexigraph/cachefront/config"
	"github.com/lexigraph/cachefront/logger"
	"github.com/lexigraph/cachefront/resilience"
)

// ErrUnavailable marks every error caused by an unreachable or failing
// store. Callers check it with errors.Is and treat it as "no cache", never
// as a hard failure.
var ErrUnavailable = errors.New("store: unavailable")

var tracer = otel.Tracer("github.com/lexigraph/cachefront/store")

const (
	// DefaultOpTimeout bounds every single store operation. A stuck
	// connection must not hang the caller.
	DefaultOpTimeout = 5 * time.Second

	// DefaultFailureThreshold is the run of consecutive failures that
	// flips the store to degraded.
	DefaultFailureThreshold = 3

	// DefaultProbeInterval is the minimum time between recovery probes
	// while degraded.
	DefaultProbeInterval = 30 * time.Second

	// DefaultScanCount is the page size hint for pattern scans.
	DefaultScanCount = 100

	// connectRetries is the retry budget for the initial connection.
	connectRetries = 3

	// connectBackoff is the initial backoff for the initial connection,
	// doubling per attempt.
	connectBackoff = 500 * time.Millisecond
)

type options struct {
	opTimeout        time.Duration
	failureThreshold int32
	probeInterval    time.Duration
	scanCount        int64
}

// Option configures a Store.
type Option func(*options)

// WithOpTimeout sets the per-operation timeout. Defaults to
// DefaultOpTimeout (5 seconds).
func WithOpTimeout(d time.Duration) Option {
	return func(o *options) { o.opTimeout = d }
}

// WithFailureThreshold sets how many consecutive failures degrade the
// store. Defaults to DefaultFailureThreshold (3).
func WithFailureThreshold(n int) Option {
	return func(o *options) { o.failureThreshold = int32(n) }
}

// WithProbeInterval sets the minimum time between recovery probes while
// degraded. Defaults to DefaultProbeInterval (30 seconds).
func WithProbeInterval(d time.Duration) Option {
	return func(o *options) { o.probeInterval = d }
}

// WithScanCount sets the page size hint for pattern scans. Defaults to
// DefaultScanCount (100).
func WithScanCount(n int64) Option {
	return func(o *options) { o.scanCount = n }
}

func applyOptions(opts []Option) options {
	o := options{
		opTimeout:        DefaultOpTimeout,
		failureThreshold: DefaultFailureThreshold,
		probeInterval:    DefaultProbeInterval,
		scanCount:        DefaultScanCount,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Store adapts the logical cache operations onto Redis. All methods are
// safe for concurrent use. Connections come from the client's bounded
// pool, are held for the duration of a single command and are returned
// even when the command fails.
type Store struct {
	client *redis.Client
	log    logger.Logger
	health *health
	opts   options
}

// New connects to the store described by cfg. The initial connection is
// retried with exponential backoff; if every attempt fails the store
// starts degraded rather than failing, so the hosting process can serve
// traffic with caching disabled.
func New(ctx context.Context, log logger.Logger, cfg config.Config, opts ...Option) *Store {
	if cfg.OpTimeout > 0 {
		opts = append([]Option{WithOpTimeout(cfg.OpTimeout)}, opts...)
	}
	o := applyOptions(opts)

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxConnections,
		DialTimeout:  o.opTimeout,
		ReadTimeout:  o.opTimeout,
		WriteTimeout: o.opTimeout,
	})

	s := newStore(log, client, o)

	retryCfg := resilience.RetryConfig{
		MaxRetries:        connectRetries,
		InitialBackoff:    connectBackoff,
		MaxBackoff:        8 * connectBackoff,
		BackoffMultiplier: 2.0,
		Jitter:            true,
		RetryableErrors:   resilience.DefaultRetryableErrors,
	}
	if err := resilience.Retry(ctx, retryCfg, func() error { return s.ping(ctx) }); err != nil {
		s.log.Warn("store at %s unreachable after %d attempts: %v; starting degraded", cfg.Addr(), connectRetries+1, err)
		s.health.degrade()
	} else {
		s.log.Info("store connected at %s (pool=%d)", cfg.Addr(), cfg.MaxConnections)
	}
	return s
}

// NewWithClient wraps an existing client. The caller keeps ownership of
// nothing — Close closes the client. A single ping decides the initial
// availability state.
func NewWithClient(ctx context.Context, log logger.Logger, client *redis.Client, opts ...Option) *Store {
	s := newStore(log, client, applyOptions(opts))
	if err := s.ping(ctx); err != nil {
		s.log.Warn("store unreachable: %v; starting degraded", err)
		s.health.degrade()
	}
	return s
}

func newStore(log logger.Logger, client *redis.Client, o options) *Store {
	log = log.With(map[string]interface{}{"component": "store"})
	return &Store{
		client: client,
		log:    log,
		health: newHealth(log, o.failureThreshold, o.probeInterval),
		opts:   o,
	}
}

// Available reports whether the store is currently usable.
func (s *Store) Available() bool {
	return s.health.available()
}

// Ping checks connectivity and feeds the availability machine.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.ping(ctx); err != nil {
		s.health.recordFailure()
		return errors.Mark(err, ErrUnavailable)
	}
	s.health.recordSuccess()
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) ping(ctx context.Context) error {
	qctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.client.Ping(qctx).Err()
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.opTimeout)
}

// usable answers whether an operation should attempt store access. While
// degraded it lazily probes for recovery, at most once per probe
// interval, so a degraded store adds no latency to most calls.
func (s *Store) usable(ctx context.Context) bool {
	if s.health.available() {
		return true
	}
	if !s.health.shouldProbe() {
		return false
	}
	if err := s.ping(ctx); err != nil {
		s.log.Debug("recovery probe failed: %v", err)
		return false
	}
	s.health.recordSuccess()
	return true
}

// Read returns the value under key. A missing key is (nil, false, nil).
// Transport failures return ErrUnavailable; they never panic or escape as
// anything the caller must treat as fatal.
func (s *Store) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if !s.usable(ctx) {
		return nil, false, ErrUnavailable
	}
	qctx, cancel := s.opCtx(ctx)
	defer cancel()
	qctx, span := tracer.Start(qctx, "store.read", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	data, err := s.client.Get(qctx, key).Bytes()
	if err == redis.Nil {
		s.health.recordSuccess()
		return nil, false, nil
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		s.health.recordFailure()
		return nil, false, errors.Mark(err, ErrUnavailable)
	}
	s.health.recordSuccess()
	return data, true, nil
}

// Write stores val under key with the given ttl. The ttl must be positive:
// unbounded entries are never written, since the store runs with an LRU
// eviction policy under a hard memory ceiling.
func (s *Store) Write(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.Newf("store: ttl must be positive, got %s", ttl)
	}
	if !s.usable(ctx) {
		return ErrUnavailable
	}
	qctx, cancel := s.opCtx(ctx)
	defer cancel()
	qctx, span := tracer.Start(qctx, "store.write", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if err := s.client.Set(qctx, key, val, ttl).Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		s.health.recordFailure()
		return errors.Mark(err, ErrUnavailable)
	}
	s.health.recordSuccess()
	return nil
}

// DeleteMatching removes every key matching the glob pattern and returns
// the count removed. The scan-then-delete is best-effort against
// concurrent writers: keys present for the whole scan are removed, keys
// written during the scan may or may not be. On a mid-scan failure the
// count of entries already deleted is returned with the error; nothing is
// rolled back.
func (s *Store) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	if pattern == "" {
		return 0, errors.New("store: empty pattern")
	}
	if !s.usable(ctx) {
		return 0, ErrUnavailable
	}
	ctx, span := tracer.Start(ctx, "store.delete_matching",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("cache.pattern", pattern)))
	defer span.End()

	var cursor uint64
	deleted := 0
	for {
		page, next, err := s.scanPage(ctx, cursor, pattern)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
			s.health.recordFailure()
			return deleted, errors.Mark(err, ErrUnavailable)
		}
		if len(page) > 0 {
			n, err := s.deleteKeys(ctx, page)
			deleted += n
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				span.RecordError(err)
				s.health.recordFailure()
				return deleted, errors.Mark(err, ErrUnavailable)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	s.health.recordSuccess()
	span.SetAttributes(attribute.Int("cache.deleted", deleted))
	return deleted, nil
}

// DeleteAll removes every entry in the store's logical database. It is a
// distinct entry point from DeleteMatching so operators can gate it
// separately.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	return s.DeleteMatching(ctx, "*")
}

func (s *Store) scanPage(ctx context.Context, cursor uint64, pattern string) ([]string, uint64, error) {
	qctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.client.Scan(qctx, cursor, pattern, s.opts.scanCount).Result()
}

func (s *Store) deleteKeys(ctx context.Context, page []string) (int, error) {
	qctx, cancel := s.opCtx(ctx)
	defer cancel()
	n, err := s.client.Del(qctx, page...).Result()
	return int(n), err
}

// Stats holds point-in-time figures pulled live from the store.
type Stats struct {
	Keys       int64
	MemoryUsed int64
	MemoryPeak int64
}

// Stats returns the key count and memory figures. Memory figures are
// best-effort: servers that do not implement INFO report zero.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if !s.usable(ctx) {
		return Stats{}, ErrUnavailable
	}
	qctx, cancel := s.opCtx(ctx)
	defer cancel()

	keyCount, err := s.client.DBSize(qctx).Result()
	if err != nil {
		s.health.recordFailure()
		return Stats{}, errors.Mark(err, ErrUnavailable)
	}
	st := Stats{Keys: keyCount}

	if info, err := s.client.Info(qctx, "memory").Result(); err != nil {
		s.log.Debug("INFO memory not available: %v", err)
	} else {
		st.MemoryUsed = parseInfoInt(info, "used_memory")
		st.MemoryPeak = parseInfoInt(info, "used_memory_peak")
	}
	s.health.recordSuccess()
	return st, nil
}

// parseInfoInt extracts an integer field from an INFO section reply.
func parseInfoInt(info, field string) int64 {
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimRight(line, "\r")
		if v, ok := strings.CutPrefix(line, field+":"); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0
			}
			return n
		}
	}
	return 0
}

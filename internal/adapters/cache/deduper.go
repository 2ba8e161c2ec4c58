package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/verdict/internal/domain/dedupe"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

const (
	defaultKeyPrefix = "verdict:dedupe:"
	defaultTTL       = 6 * time.Hour
	defaultOpTimeout = 2 * time.Second
	defaultSizeEvery = 30 * time.Second
	scanBatch        = 500
)

// Option configures a RedisDeduper.
type Option func(*RedisDeduper)

// WithKeyPrefix namespaces dedupe keys.
func WithKeyPrefix(prefix string) Option {
	return func(d *RedisDeduper) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

// WithTTL sets how long a recorded key stays live.
func WithTTL(ttl time.Duration) Option {
	return func(d *RedisDeduper) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithOpTimeout bounds each Redis round trip.
func WithOpTimeout(timeout time.Duration) Option {
	return func(d *RedisDeduper) {
		if timeout > 0 {
			d.opTimeout = timeout
		}
	}
}

// WithSizeRefresh sets how long a Size result is reused before the prefix
// is scanned again. Zero scans on every call.
func WithSizeRefresh(every time.Duration) Option {
	return func(d *RedisDeduper) {
		if every >= 0 {
			d.sizeEvery = every
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(d *RedisDeduper) {
		if l != nil {
			d.log = l
		}
	}
}

// RedisDeduper is a dedupe.Deduper shared across processes. Expiry is left
// to Redis.
type RedisDeduper struct {
	client    redis.UniversalClient
	prefix    string
	ttl       time.Duration
	opTimeout time.Duration
	sizeEvery time.Duration
	log       logger.Logger

	sizeMu  sync.Mutex
	size    int64
	sizedAt time.Time
}

// NewRedisDeduper creates a RedisDeduper on client.
func NewRedisDeduper(client redis.UniversalClient, opts ...Option) *RedisDeduper {
	d := &RedisDeduper{
		client:    client,
		prefix:    defaultKeyPrefix,
		ttl:       defaultTTL,
		opTimeout: defaultOpTimeout,
		sizeEvery: defaultSizeEvery,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Named("redis-dedupe")
	}
	return d
}

// SeenAndRecord sets the key with NX and reports whether it already existed.
// When Redis is unreachable the key is reported as new, so a reminder may
// repeat but is never lost.
func (d *RedisDeduper) SeenAndRecord(ctx context.Context, key string) bool {
	opCtx, cancel := context.WithTimeout(ctx, d.opTimeout)
	defer cancel()

	ok, err := d.client.SetNX(opCtx, d.prefix+key, 1, d.ttl).Result()
	if err != nil {
		metrics.RecordErrorByComponent("dedupe", "redis")
		d.log.Warn(ctx, "redis dedupe check failed", logger.String("key", key), logger.Error(err))
		return false
	}
	return !ok
}

// Size counts live keys under the prefix. The count comes from a SCAN and
// is reused for the refresh interval; a failed scan returns 0 and is not
// cached.
func (d *RedisDeduper) Size() int64 {
	d.sizeMu.Lock()
	defer d.sizeMu.Unlock()

	if !d.sizedAt.IsZero() && time.Since(d.sizedAt) < d.sizeEvery {
		return d.size
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.opTimeout)
	defer cancel()

	var (
		cursor uint64
		total  int64
	)
	for {
		keys, next, err := d.client.Scan(ctx, cursor, d.prefix+"*", scanBatch).Result()
		if err != nil {
			d.log.Warn(ctx, "redis dedupe scan failed", logger.Error(err))
			return 0
		}
		total += int64(len(keys))
		if next == 0 {
			break
		}
		cursor = next
	}
	d.size = total
	d.sizedAt = time.Now()
	return total
}

var _ dedupe.Deduper = (*RedisDeduper)(nil)

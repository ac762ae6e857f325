package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"reservation_ingest/internal/adapters/observability"
	"reservation_ingest/internal/domain"
)

const (
	cacheName   = "redis"
	keyPrefix   = "dedupe:"
	orderKey    = "dedupe:__order"
	defaultTTL  = 24 * time.Hour
	defaultSize = 500
)

// Cache is the Redis-backed dedupe cache. Entries live as plain keys with a
// TTL; a sorted set scored by insertion time drives oldest-first eviction.
type Cache struct {
	c       *redis.Client
	ttl     time.Duration
	maxSize int64
	log     zerolog.Logger

	hits   atomic.Int64
	misses atomic.Int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func New(addr, pass string, db int, ttl time.Duration, maxSize int, sweep time.Duration, log zerolog.Logger) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), ttl, maxSize, sweep, log)
}

// NewWithClient wraps an existing client. sweep <= 0 disables the background sweep.
func NewWithClient(c *redis.Client, ttl time.Duration, maxSize int, sweep time.Duration, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if maxSize <= 0 {
		maxSize = defaultSize
	}
	r := &Cache{
		c: c, ttl: ttl, maxSize: int64(maxSize), log: log,
		stop: make(chan struct{}), done: make(chan struct{}),
	}
	if sweep > 0 {
		go r.run(sweep)
	} else {
		close(r.done)
	}
	return r
}

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) run(every time.Duration) {
	defer close(r.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if _, err := r.Sweep(ctx); err != nil {
				r.log.Warn().Err(err).Msg("dedupe sweep failed")
			}
			cancel()
		case <-r.stop:
			return
		}
	}
}

func (r *Cache) Get(ctx context.Context, key string) (domain.DedupeEntry, bool, error) {
	var v domain.DedupeEntry
	b, err := r.c.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		observability.ObserveCache(cacheName, "miss")
		// the key may have expired; keep the order index in step
		_ = r.c.ZRem(ctx, orderKey, key).Err()
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	r.hits.Add(1)
	observability.ObserveCache(cacheName, "hit")
	return v, true, json.Unmarshal(b, &v)
}

// Set stores v for ttl (the default when ttl <= 0). When the cache is full the
// oldest-inserted key is evicted first.
func (r *Cache) Set(ctx context.Context, key string, v domain.DedupeEntry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = r.c.ZScore(ctx, orderKey, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if errors.Is(err, redis.Nil) {
		n, err := r.c.ZCard(ctx, orderKey).Result()
		if err != nil {
			return err
		}
		for ; n >= r.maxSize; n-- {
			popped, err := r.c.ZPopMin(ctx, orderKey, 1).Result()
			if err != nil {
				return err
			}
			if len(popped) == 0 {
				break
			}
			evicted := popped[0].Member.(string)
			if err := r.c.Del(ctx, keyPrefix+evicted).Err(); err != nil {
				return err
			}
			observability.ObserveCache(cacheName, "evict")
			r.log.Info().Str("key", evicted).Msg("dedupe cache full, evicted oldest entry")
		}
	}

	pipe := r.c.TxPipeline()
	pipe.Set(ctx, keyPrefix+key, b, ttl)
	pipe.ZAddNX(ctx, orderKey, redis.Z{Score: float64(time.Now().UnixNano()), Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	observability.ObserveCache(cacheName, "set")
	return nil
}

func (r *Cache) Delete(ctx context.Context, key string) error {
	observability.ObserveCache(cacheName, "del")
	pipe := r.c.TxPipeline()
	pipe.Del(ctx, keyPrefix+key)
	pipe.ZRem(ctx, orderKey, key)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Cache) Clear(ctx context.Context) error {
	keys, err := r.c.ZRange(ctx, orderKey, 0, -1).Result()
	if err != nil {
		return err
	}
	pipe := r.c.TxPipeline()
	for _, k := range keys {
		pipe.Del(ctx, keyPrefix+k)
	}
	pipe.Del(ctx, orderKey)
	_, err = pipe.Exec(ctx)
	return err
}

// Sweep removes order entries whose keys Redis has already expired.
func (r *Cache) Sweep(ctx context.Context) (int, error) {
	keys, err := r.c.ZRange(ctx, orderKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, k := range keys {
		exists, err := r.c.Exists(ctx, keyPrefix+k).Result()
		if err != nil {
			return n, err
		}
		if exists == 0 {
			if err := r.c.ZRem(ctx, orderKey, k).Err(); err != nil {
				return n, err
			}
			n++
		}
	}
	if n > 0 {
		observability.CacheEvents.WithLabelValues(cacheName, "expire").Add(float64(n))
		r.log.Info().Int("expired", n).Msg("dedupe cache swept")
	}
	return n, nil
}

func (r *Cache) Stats(ctx context.Context) (domain.CacheStats, error) {
	size, err := r.c.ZCard(ctx, orderKey).Result()
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("dedupe stats: %w", err)
	}
	hits, misses := r.hits.Load(), r.misses.Load()
	s := domain.CacheStats{Size: int(size), Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.HitRatio = math.Round(float64(hits)/float64(total)*100) / 100
	}
	return s, nil
}

// Close stops the sweep and the client. Entries stay in Redis for the next run.
func (r *Cache) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.stop)
		<-r.done
		err = r.c.Close()
	})
	return err
}

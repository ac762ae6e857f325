// Package dedupe holds the in-process cache of recently persisted messages.
package dedupe

import (
	"container/list"
	"context"
	"math"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"reservation_ingest/internal/adapters/observability"
	"reservation_ingest/internal/domain"
)

const cacheName = "dedupe"

type Options struct {
	TTL           time.Duration // default retention
	MaxSize       int
	SweepInterval time.Duration // <= 0 disables the background sweep
}

func DefaultOptions() Options {
	return Options{TTL: 24 * time.Hour, MaxSize: 500, SweepInterval: 5 * time.Minute}
}

// Memory is a TTL cache that evicts the oldest-inserted entry once MaxSize is
// reached. Expired entries are dropped on read and by a periodic sweep.
type Memory struct {
	opts Options
	log  zerolog.Logger

	mu     sync.Mutex
	items  *cache.Cache
	order  *list.List // keys, oldest first
	pos    map[string]*list.Element
	hits   int64
	misses int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewMemory(opts Options, log zerolog.Logger) *Memory {
	def := DefaultOptions()
	if opts.TTL <= 0 {
		opts.TTL = def.TTL
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = def.MaxSize
	}
	m := &Memory{
		opts: opts,
		log:  log,
		// expiry is driven by sweep(), so go-cache's own janitor stays off
		items: cache.New(opts.TTL, 0),
		order: list.New(),
		pos:   map[string]*list.Element{},
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	if opts.SweepInterval > 0 {
		go m.run(opts.SweepInterval)
	} else {
		close(m.done)
	}
	return m
}

func (m *Memory) run(every time.Duration) {
	defer close(m.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

// sweep drops expired entries and returns how many went.
func (m *Memory) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.DeleteExpired()
	live := m.items.Items()
	n := 0
	for e := m.order.Front(); e != nil; {
		next := e.Next()
		key := e.Value.(string)
		if _, ok := live[key]; !ok {
			m.order.Remove(e)
			delete(m.pos, key)
			n++
		}
		e = next
	}
	if n > 0 {
		observability.CacheEvents.WithLabelValues(cacheName, "expire").Add(float64(n))
		m.log.Info().Int("expired", n).Msg("dedupe cache swept")
	}
	return n
}

func (m *Memory) Get(_ context.Context, key string) (domain.DedupeEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items.Get(key)
	if !ok {
		// go-cache hides expired items without removing them
		m.remove(key)
		m.misses++
		observability.ObserveCache(cacheName, "miss")
		return domain.DedupeEntry{}, false, nil
	}
	m.hits++
	observability.ObserveCache(cacheName, "hit")
	return v.(domain.DedupeEntry), true, nil
}

// Set stores v for ttl (the default TTL when ttl <= 0). Re-setting a key keeps
// its original insertion position.
func (m *Memory) Set(_ context.Context, key string, v domain.DedupeEntry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.opts.TTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pos[key]; !exists {
		if m.order.Len() >= m.opts.MaxSize {
			oldest := m.order.Front()
			evicted := oldest.Value.(string)
			m.remove(evicted)
			observability.ObserveCache(cacheName, "evict")
			m.log.Info().Str("key", evicted).Msg("dedupe cache full, evicted oldest entry")
		}
		m.pos[key] = m.order.PushBack(key)
	}
	m.items.Set(key, v, ttl)
	observability.ObserveCache(cacheName, "set")
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(key)
	observability.ObserveCache(cacheName, "del")
	return nil
}

func (m *Memory) remove(key string) {
	m.items.Delete(key)
	if e, ok := m.pos[key]; ok {
		m.order.Remove(e)
		delete(m.pos, key)
	}
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.Flush()
	m.order.Init()
	m.pos = map[string]*list.Element{}
	m.log.Info().Msg("dedupe cache cleared")
	return nil
}

func (m *Memory) Stats(_ context.Context) (domain.CacheStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return stats(m.order.Len(), m.hits, m.misses), nil
}

// Close stops the sweep and empties the cache. It is safe to call twice.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
		<-m.done
		_ = m.Clear(context.Background())
	})
	return nil
}

func stats(size int, hits, misses int64) domain.CacheStats {
	s := domain.CacheStats{Size: size, Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.HitRatio = math.Round(float64(hits)/float64(total)*100) / 100
	}
	return s
}

// Sweep runs one expiry pass immediately.
func (m *Memory) Sweep() int { return m.sweep() }

package app

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reservation_ingest/internal/domain"
)

// Monitor keeps process-lifetime ingestion counters.
type Monitor struct {
	mu            sync.Mutex
	processed     int
	saved         int
	failedParsing int
	byPlatform    map[domain.Platform]int
	errors        int
	lastError     string
	lastErrorAt   time.Time
	startedAt     time.Time

	cache domain.DedupeCache
}

type Report struct {
	StartedAt     time.Time               `json:"started_at"`
	Uptime        string                  `json:"uptime"`
	Processed     int                     `json:"processed"`
	Saved         int                     `json:"saved"`
	FailedParsing int                     `json:"failed_parsing"`
	ByPlatform    map[domain.Platform]int `json:"by_platform"`
	Errors        int                     `json:"errors"`
	LastError     string                  `json:"last_error,omitempty"`
	LastErrorAt   *time.Time              `json:"last_error_at,omitempty"`
	Cache         *domain.CacheStats      `json:"cache,omitempty"`
}

// NewMonitor starts the clock. cache may be nil.
func NewMonitor(cache domain.DedupeCache) *Monitor {
	return &Monitor{
		byPlatform: map[domain.Platform]int{},
		startedAt:  time.Now(),
		cache:      cache,
	}
}

func (m *Monitor) Processed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *Monitor) Saved(p domain.Platform) {
	m.mu.Lock()
	m.saved++
	m.byPlatform[p]++
	m.mu.Unlock()
}

func (m *Monitor) FailedParsing() {
	m.mu.Lock()
	m.failedParsing++
	m.mu.Unlock()
}

func (m *Monitor) Error(err error) {
	m.mu.Lock()
	m.errors++
	m.lastError = err.Error()
	m.lastErrorAt = time.Now()
	m.mu.Unlock()
}

// Report snapshots the counters. Cache stats are best effort.
func (m *Monitor) Report(ctx context.Context) Report {
	m.mu.Lock()
	r := Report{
		StartedAt:     m.startedAt,
		Uptime:        time.Since(m.startedAt).Truncate(time.Second).String(),
		Processed:     m.processed,
		Saved:         m.saved,
		FailedParsing: m.failedParsing,
		ByPlatform:    maps.Clone(m.byPlatform),
		Errors:        m.errors,
		LastError:     m.lastError,
	}
	if !m.lastErrorAt.IsZero() {
		at := m.lastErrorAt
		r.LastErrorAt = &at
	}
	m.mu.Unlock()

	if m.cache != nil {
		if st, err := m.cache.Stats(ctx); err == nil {
			r.Cache = &st
		}
	}
	return r
}

// Log writes the report on ev.
func (m *Monitor) Log(ctx context.Context, ev *zerolog.Event, msg string) {
	r := m.Report(ctx)
	d := zerolog.Dict()
	for p, n := range r.ByPlatform {
		d = d.Int(string(p), n)
	}
	ev = ev.
		Str("uptime", r.Uptime).
		Int("processed", r.Processed).
		Int("saved", r.Saved).
		Int("failed_parsing", r.FailedParsing).
		Dict("by_platform", d).
		Int("errors", r.Errors)
	if r.LastError != "" {
		ev = ev.Str("last_error", r.LastError)
	}
	if r.Cache != nil {
		ev = ev.Int("cache_size", r.Cache.Size).Float64("cache_hit_ratio", r.Cache.HitRatio)
	}
	ev.Msg(msg)
}

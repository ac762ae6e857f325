package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"reservation_ingest/internal/dedupe"
	"reservation_ingest/internal/domain"
)

func entry() domain.DedupeEntry {
	return domain.DedupeEntry{Processed: true, Platform: domain.PlatformNaver, InsertedAt: time.Now()}
}

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := dedupe.NewMemory(dedupe.Options{TTL: time.Hour, MaxSize: 10}, zerolog.Nop())
	defer m.Close()

	if _, ok, _ := m.Get(ctx, "message_1"); ok {
		t.Fatalf("empty cache hit")
	}
	_ = m.Set(ctx, "message_1", entry(), 0)
	v, ok, err := m.Get(ctx, "message_1")
	if err != nil || !ok || !v.Processed || v.Platform != domain.PlatformNaver {
		t.Fatalf("get: %+v %v %v", v, ok, err)
	}
	_ = m.Delete(ctx, "message_1")
	if _, ok, _ := m.Get(ctx, "message_1"); ok {
		t.Fatalf("deleted key still present")
	}

	st, _ := m.Stats(ctx)
	if st.Hits != 1 || st.Misses != 2 || st.HitRatio != 0.33 || st.Size != 0 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestMemory_EvictsOldestInserted(t *testing.T) {
	ctx := context.Background()
	m := dedupe.NewMemory(dedupe.Options{TTL: time.Hour, MaxSize: 3}, zerolog.Nop())
	defer m.Close()

	for i := 1; i <= 3; i++ {
		_ = m.Set(ctx, fmt.Sprintf("k%d", i), entry(), 0)
	}
	// reading k1 must not protect it: eviction is by insertion, not recency
	if _, ok, _ := m.Get(ctx, "k1"); !ok {
		t.Fatalf("k1 missing")
	}
	// overwriting keeps the original position
	_ = m.Set(ctx, "k2", entry(), 0)
	_ = m.Set(ctx, "k4", entry(), 0)

	if _, ok, _ := m.Get(ctx, "k1"); ok {
		t.Fatalf("k1 should have been evicted")
	}
	for _, k := range []string{"k2", "k3", "k4"} {
		if _, ok, _ := m.Get(ctx, k); !ok {
			t.Fatalf("%s missing", k)
		}
	}
	if st, _ := m.Stats(ctx); st.Size != 3 {
		t.Fatalf("size: %d", st.Size)
	}
}

func TestMemory_ExpiresLazilyAndOnSweep(t *testing.T) {
	ctx := context.Background()
	m := dedupe.NewMemory(dedupe.Options{TTL: time.Hour, MaxSize: 10}, zerolog.Nop())
	defer m.Close()

	_ = m.Set(ctx, "short", entry(), 20*time.Millisecond)
	_ = m.Set(ctx, "swept", entry(), 20*time.Millisecond)
	_ = m.Set(ctx, "long", entry(), 0)
	time.Sleep(50 * time.Millisecond)

	if _, ok, _ := m.Get(ctx, "short"); ok {
		t.Fatalf("expired entry returned")
	}
	if n := m.Sweep(); n != 1 {
		t.Fatalf("sweep removed %d, want 1", n)
	}
	if st, _ := m.Stats(ctx); st.Size != 1 {
		t.Fatalf("size after sweep: %d", st.Size)
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := dedupe.NewMemory(dedupe.Options{TTL: time.Hour, MaxSize: 50, SweepInterval: time.Millisecond}, zerolog.Nop())

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := fmt.Sprintf("g%d_%d", g, i)
				_ = m.Set(ctx, k, entry(), 0)
				_, _, _ = m.Get(ctx, k)
			}
		}(g)
	}
	wg.Wait()

	if st, _ := m.Stats(ctx); st.Size > 50 {
		t.Fatalf("size %d exceeds max", st.Size)
	}
	_ = m.Close()
	_ = m.Close()
	if st, _ := m.Stats(ctx); st.Size != 0 {
		t.Fatalf("close should empty the cache")
	}
}

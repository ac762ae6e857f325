package redisad_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	redisad "reservation_ingest/internal/adapters/redis"
	"reservation_ingest/internal/domain"
)

func newCache(t *testing.T, maxSize int) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour, maxSize, 0, zerolog.Nop())
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func entry() domain.DedupeEntry {
	return domain.DedupeEntry{Processed: true, Platform: domain.PlatformYeogi, InsertedAt: time.Unix(1700000000, 0).UTC()}
}

func TestCache_RoundTripAndStats(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t, 10)

	if _, ok, err := c.Get(ctx, "message_1"); ok || err != nil {
		t.Fatalf("empty get: %v %v", ok, err)
	}
	if err := c.Set(ctx, "message_1", entry(), 0); err != nil {
		t.Fatal(err)
	}
	v, ok, err := c.Get(ctx, "message_1")
	if err != nil || !ok || v.Platform != domain.PlatformYeogi || !v.InsertedAt.Equal(entry().InsertedAt) {
		t.Fatalf("get: %+v %v %v", v, ok, err)
	}

	st, err := c.Stats(ctx)
	if err != nil || st.Size != 1 || st.Hits != 1 || st.Misses != 1 || st.HitRatio != 0.5 {
		t.Fatalf("stats: %+v %v", st, err)
	}

	if err := c.Delete(ctx, "message_1"); err != nil {
		t.Fatal(err)
	}
	if st, _ := c.Stats(ctx); st.Size != 0 {
		t.Fatalf("size after delete: %d", st.Size)
	}
}

func TestCache_EvictsOldestInserted(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t, 2)

	for i := 1; i <= 3; i++ {
		if err := c.Set(ctx, fmt.Sprintf("k%d", i), entry(), 0); err != nil {
			t.Fatal(err)
		}
		time.Sleep(time.Millisecond)
	}
	if _, ok, _ := c.Get(ctx, "k1"); ok {
		t.Fatalf("k1 should be evicted")
	}
	for _, k := range []string{"k2", "k3"} {
		if _, ok, _ := c.Get(ctx, k); !ok {
			t.Fatalf("%s missing", k)
		}
	}
}

func TestCache_TTLAndSweep(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t, 10)

	_ = c.Set(ctx, "short", entry(), time.Minute)
	_ = c.Set(ctx, "long", entry(), 0)
	mr.FastForward(2 * time.Minute)

	n, err := c.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("sweep: %d %v", n, err)
	}
	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Fatalf("expired entry returned")
	}
	if st, _ := c.Stats(ctx); st.Size != 1 {
		t.Fatalf("size: %d", st.Size)
	}
}

func TestCache_Clear(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t, 10)
	_ = c.Set(ctx, "a", entry(), 0)
	_ = c.Set(ctx, "b", entry(), 0)
	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("dedupe:a") || mr.Exists("dedupe:__order") {
		t.Fatalf("keys left behind: %v", mr.Keys())
	}
}

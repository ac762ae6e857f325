package cursor_test

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"reservation_ingest/internal/cursor"
	"reservation_ingest/internal/domain"
)

// ---- fakes ----

type memStore struct {
	mu      sync.Mutex
	entries map[string]domain.CursorEntry
	getErr  error
}

func newMemStore() *memStore { return &memStore{entries: map[string]domain.CursorEntry{}} }

func (m *memStore) GetCursor(_ context.Context, id string) (domain.CursorEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.CursorEntry{}, m.getErr
	}
	e, ok := m.entries[id]
	if !ok {
		return domain.CursorEntry{}, domain.ErrNotFound
	}
	return e, nil
}

func (m *memStore) SetCursor(_ context.Context, e domain.CursorEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ChannelID] = e
	return nil
}

func (m *memStore) ListCursors(_ context.Context) ([]domain.CursorEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CursorEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

type legacyTS struct {
	ts  string
	err error
}

func (l legacyTS) LastReadTS(context.Context) (string, error) { return l.ts, l.err }

// ---- tests ----

func TestGet_FallsBackToLegacy(t *testing.T) {
	tr := cursor.New(newMemStore(), legacyTS{ts: "1600000000.000001"}, zerolog.Nop())
	ts, err := tr.Get(context.Background(), "C1")
	if err != nil || ts != "1600000000.000001" {
		t.Fatalf("got %q %v", ts, err)
	}

	tr = cursor.New(newMemStore(), nil, zerolog.Nop())
	if ts, _ := tr.Get(context.Background(), "C1"); ts != "" {
		t.Fatalf("no legacy: want empty, got %q", ts)
	}

	var buf bytes.Buffer
	tr = cursor.New(newMemStore(), legacyTS{err: errors.New("permission denied")}, zerolog.New(&buf))
	if ts, err := tr.Get(context.Background(), "C1"); err != nil || ts != "" {
		t.Fatalf("broken legacy should read as absent: %q %v", ts, err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"level":"warn"`)) {
		t.Fatalf("expected warning, got %s", buf.String())
	}
}

func TestGet_StoreEntryWinsOverLegacy(t *testing.T) {
	st := newMemStore()
	tr := cursor.New(st, legacyTS{ts: "1.0"}, zerolog.Nop())
	if err := tr.Set(context.Background(), "C1", "airbnb", "1700000000.000100"); err != nil {
		t.Fatal(err)
	}
	if ts, _ := tr.Get(context.Background(), "C1"); ts != "1700000000.000100" {
		t.Fatalf("got %q", ts)
	}
}

func TestGet_StoreErrorPropagates(t *testing.T) {
	st := newMemStore()
	st.getErr = errors.New("connection refused")
	tr := cursor.New(st, legacyTS{ts: "1.0"}, zerolog.Nop())
	if _, err := tr.Get(context.Background(), "C1"); err == nil {
		t.Fatalf("store failure must not look like an empty cursor")
	}
}

func TestSet_Monotonic(t *testing.T) {
	st := newMemStore()
	tr := cursor.New(st, nil, zerolog.Nop())
	ctx := context.Background()

	steps := []struct{ in, want string }{
		{"1700000000.000100", "1700000000.000100"},
		{"1700000000.000300", "1700000000.000300"},
		{"1700000000.000200", "1700000000.000300"},
		{"1700000000.0003", "1700000000.0003"},
		{"1699999999.999999", "1700000000.0003"},
	}
	for _, s := range steps {
		if err := tr.Set(ctx, "C1", "naver", s.in); err != nil {
			t.Fatal(err)
		}
		got, _ := tr.Get(ctx, "C1")
		if domain.CompareTS(got, s.want) != 0 {
			t.Fatalf("after set %s: got %s want %s", s.in, got, s.want)
		}
	}

	list, err := tr.List(ctx)
	if err != nil || len(list) != 1 || list[0].ChannelName != "naver" {
		t.Fatalf("list: %+v %v", list, err)
	}
}

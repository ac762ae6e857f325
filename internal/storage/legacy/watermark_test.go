package legacy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"reservation_ingest/internal/storage/legacy"
)

func TestWatermark(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "last_read_ts.json")

	w := legacy.NewWatermark(path)
	if ts, err := w.LastReadTS(context.Background()); err != nil || ts != "" {
		t.Fatalf("missing file: %q %v", ts, err)
	}

	if err := os.WriteFile(path, []byte(`{"lastReadTs":"1700000000.000100"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if ts, err := w.LastReadTS(context.Background()); err != nil || ts != "1700000000.000100" {
		t.Fatalf("got %q %v", ts, err)
	}

	if err := os.WriteFile(path, []byte(`{not json`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := w.LastReadTS(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

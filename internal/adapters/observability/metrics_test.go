package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"reservation_ingest/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record one sample per family so the vectors are exported
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveMessage("airbnb", observability.OutcomeSaved)
	observability.ObserveTick("airbnb", "ok")
	observability.ObserveCursorAdvance("airbnb")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"ingest_http_requests_total",
		`ingest_messages_total{outcome="saved",platform="airbnb"}`,
		"ingest_channel_ticks_total",
		"ingest_cursor_advances_total",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestNewLoggerLevel(t *testing.T) {
	if l := observability.NewLogger("prod", "warn"); l.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("level: %s", l.GetLevel())
	}
	if l := observability.NewLogger("prod", "nonsense"); l.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("fallback level: %s", l.GetLevel())
	}
}

func TestServeDisabled(t *testing.T) {
	if srv := observability.Serve("", http.NotFoundHandler()); srv != nil {
		t.Fatalf("empty addr must disable the server")
	}
}

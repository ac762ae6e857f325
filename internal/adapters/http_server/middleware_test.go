package httpserver_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	httpserver "reservation_ingest/internal/adapters/http_server"
)

func TestLogger_LevelsAndRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(httpserver.Logger(zerolog.New(&buf)))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Get("/v1/reservations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for _, p := range []string{"/healthz", "/v1/reservations/9"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"level":"debug"`) {
		t.Fatalf("health probe should log at debug: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"level":"warn"`) || !strings.Contains(lines[1], `"route":"/v1/reservations/{id}"`) || !strings.Contains(lines[1], `"status":503`) {
		t.Fatalf("unexpected request log: %s", lines[1])
	}
}

package observability

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "ingest"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Cache hits/misses/sets/dels/evictions."},
		[]string{"cache", "event"}, // event: hit|miss|set|del|evict|expire
	)
	Messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "messages_total", Help: "Chat messages by ingestion outcome."},
		[]string{"platform", "outcome"},
	)
	ChannelTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "channel_ticks_total", Help: "Per-channel poll passes."},
		[]string{"platform", "result"}, // result: ok|empty|fetch_failed|cursor_failed
	)
	CursorAdvances = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cursor_advances_total", Help: "Channel watermark moves."},
		[]string{"platform"},
	)
)

// Message outcomes.
const (
	OutcomeFetched           = "fetched"
	OutcomeSkippedDedupe     = "skipped_dedupe"
	OutcomeSkippedFilter     = "skipped_filter"
	OutcomeParseFailed       = "parse_failed"
	OutcomeInvalid           = "invalid"
	OutcomeSaved             = "saved"
	OutcomeSaveFailed        = "save_failed"
	OutcomeStandardizeFailed = "standardize_failed"
)

// Serve exposes h on addr/metrics in the background. An empty addr disables it.
// The returned server is nil when disabled.
func Serve(addr string, h http.Handler) *http.Server {
	if addr == "" {
		return nil // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return srv
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		Messages, ChannelTicks, CursorAdvances,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) {
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveMessage(platform, outcome string) {
	Messages.WithLabelValues(platform, outcome).Inc()
}

func ObserveTick(platform, result string) {
	ChannelTicks.WithLabelValues(platform, result).Inc()
}

func ObserveCursorAdvance(platform string) {
	CursorAdvances.WithLabelValues(platform).Inc()
}

func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "reservation_ingest/internal/adapters/http_server"
	"reservation_ingest/internal/adapters/observability"
	"reservation_ingest/internal/app"
	"reservation_ingest/internal/cursor"
	"reservation_ingest/internal/shared"
	"reservation_ingest/internal/storage"
	"reservation_ingest/internal/storage/legacy"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer closeStore()
	log.Info().Str("store", cfg.StoreDriver).Msg("database connection ok")

	tracker := cursor.New(st, legacy.NewWatermark(cfg.LegacyWatermarkPath), log.Logger)
	q := app.NewQueryService(st, tracker, nil)

	srv := server.New(log.Logger)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

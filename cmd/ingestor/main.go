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
	redisad "reservation_ingest/internal/adapters/redis"
	"reservation_ingest/internal/adapters/slack"
	"reservation_ingest/internal/app"
	"reservation_ingest/internal/cursor"
	"reservation_ingest/internal/dedupe"
	"reservation_ingest/internal/domain"
	"reservation_ingest/internal/parser"
	"reservation_ingest/internal/shared"
	"reservation_ingest/internal/standardize"
	"reservation_ingest/internal/storage"
	"reservation_ingest/internal/storage/legacy"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("store", cfg.StoreDriver).
		Str("dedupe", cfg.DedupeBackend).
		Bool("poll", cfg.PollEnabled).
		Int("workers", cfg.Workers).
		Msg("ingestor starting")

	st, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	log.Info().Msg("store ready")

	client, err := slack.New(cfg.SlackBaseURL, cfg.SlackToken, cfg.SlackRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Slack client")
	}

	cache, err := openDedupe(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("dedupe cache init failed")
	}

	tracker := cursor.New(st, legacy.NewWatermark(cfg.LegacyWatermarkPath), log.Logger)
	monitor := app.NewMonitor(cache)
	ic := &app.IngestionContext{
		Chat:         client,
		Store:        st,
		Cursor:       tracker,
		Dedupe:       cache,
		Parsers:      parser.DefaultRegistry(client, log.Logger, time.Now),
		Standardizer: standardize.New(time.Now),
		Monitor:      monitor,
		Log:          log.Logger,
	}

	reg := observability.InitRegistry()
	metricsSrv := observability.Serve(cfg.MetricsAddr, observability.MetricsHandler(reg))

	var apiSrv *http.Server
	if cfg.APIEnabled {
		srv := server.New(log.Logger)
		srv.MountHandlers(&server.Handlers{Q: app.NewQueryService(st, tracker, monitor)})
		apiSrv = &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("status API listening")
			if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("status API failed")
			}
		}()
	}

	channels := make([]app.Channel, 0, len(cfg.Channels))
	for _, c := range cfg.Channels {
		channels = append(channels, app.Channel{ID: c.ID, Name: c.Name, Platform: c.Platform})
	}

	if cfg.PollEnabled {
		app.NewPoller(ic, channels, cfg.Workers, cfg.StatusCron).Run(ctx)
	} else {
		log.Warn().Msg("polling disabled; waiting for shutdown")
		<-ctx.Done()
	}

	// graceful shutdown: the poller has returned, so no tick is in flight
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, s := range []*http.Server{apiSrv, metricsSrv} {
		if s != nil {
			_ = s.Shutdown(shutdownCtx)
		}
	}
	if err := ic.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("dedupe close failed")
	}
	closeStore()
	log.Info().Msg("ingestor stopped")
}

func openDedupe(ctx context.Context, cfg shared.Config) (domain.DedupeCache, error) {
	if cfg.DedupeBackend == "redis" {
		c := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.DedupeTTL, cfg.DedupeMaxSize, cfg.DedupeSweep, log.Logger)
		if err := c.Ping(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
		return c, nil
	}
	return dedupe.NewMemory(dedupe.Options{
		TTL:           cfg.DedupeTTL,
		MaxSize:       cfg.DedupeMaxSize,
		SweepInterval: cfg.DedupeSweep,
	}, log.Logger), nil
}

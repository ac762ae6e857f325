package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"reservation_ingest/internal/cursor"
	"reservation_ingest/internal/domain"
	"reservation_ingest/internal/parser"
	"reservation_ingest/internal/standardize"
)

// Channel is one source channel and the platform whose notices it carries.
type Channel struct {
	ID       string
	Name     string
	Platform domain.Platform
}

// IngestionContext holds everything a tick needs. It is built once at startup
// and closed once at shutdown.
type IngestionContext struct {
	Chat         domain.ChatClient
	Store        domain.ReservationRepository
	Cursor       *cursor.Tracker
	Dedupe       domain.DedupeCache
	Parsers      *parser.Registry
	Standardizer *standardize.Standardizer
	Monitor      *Monitor
	Log          zerolog.Logger
	Now          func() time.Time
}

func (ic *IngestionContext) now() time.Time {
	if ic.Now != nil {
		return ic.Now()
	}
	return time.Now()
}

// Close logs the final report and releases the dedupe cache.
func (ic *IngestionContext) Close(ctx context.Context) error {
	if ic.Monitor != nil {
		ic.Monitor.Log(ctx, ic.Log.Info(), "final report")
	}
	if ic.Dedupe == nil {
		return nil
	}
	return ic.Dedupe.Close()
}

package domain

import (
	"context"
	"time"
)

type ChatClient interface {
	// FetchHistory returns messages newer than oldest, newest first.
	// An empty oldest means the whole available history.
	FetchHistory(ctx context.Context, channelID, oldest string) ([]RawMessage, error)
	DownloadAttachment(ctx context.Context, f File) ([]byte, error)
}

// Downloader is the subset of ChatClient the HTML parsers need.
type Downloader interface {
	DownloadAttachment(ctx context.Context, f File) ([]byte, error)
}

type ReservationRepository interface {
	// Write path
	UpsertReservation(ctx context.Context, r Reservation) error

	// Read paths
	GetReservation(ctx context.Context, id int64) (Reservation, error)
	ListReservations(ctx context.Context, q ReservationsQuery) (ReservationsPage, error)
}

type CursorStore interface {
	// GetCursor returns ErrNotFound when the channel was never ingested.
	GetCursor(ctx context.Context, channelID string) (CursorEntry, error)
	SetCursor(ctx context.Context, e CursorEntry) error
	ListCursors(ctx context.Context) ([]CursorEntry, error)
}

// LegacyWatermark is the single global watermark of the old storage layout.
type LegacyWatermark interface {
	LastReadTS(ctx context.Context) (string, error)
}

type DedupeCache interface {
	Get(ctx context.Context, key string) (DedupeEntry, bool, error)
	// Set stores v; ttl <= 0 uses the cache default.
	Set(ctx context.Context, key string, v DedupeEntry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (CacheStats, error)
	Close() error
}

// Read models & queries
type ReservationsQuery struct {
	Platform *Platform
	Status   *Status
	Limit    int
	Offset   int
}

type ReservationsPage struct {
	Items  []Reservation `json:"items"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

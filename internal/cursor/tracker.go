// Package cursor tracks how far each source channel has been ingested.
package cursor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"reservation_ingest/internal/domain"
)

// Tracker is the per-channel watermark. An empty timestamp means the channel
// has never been ingested and should be read from the start of its history.
type Tracker struct {
	store  domain.CursorStore
	legacy domain.LegacyWatermark
	log    zerolog.Logger
	now    func() time.Time
}

// New builds a Tracker. legacy may be nil.
func New(store domain.CursorStore, legacy domain.LegacyWatermark, log zerolog.Logger) *Tracker {
	return &Tracker{store: store, legacy: legacy, log: log, now: time.Now}
}

// Get returns the channel's watermark. A channel without an entry falls back
// to the old global watermark; an unreadable legacy file counts as absent.
func (t *Tracker) Get(ctx context.Context, channelID string) (string, error) {
	e, err := t.store.GetCursor(ctx, channelID)
	switch {
	case err == nil:
		return e.LastReadTS, nil
	case !errors.Is(err, domain.ErrNotFound):
		return "", fmt.Errorf("cursor %s: %w", channelID, err)
	}

	if t.legacy == nil {
		return "", nil
	}
	ts, err := t.legacy.LastReadTS(ctx)
	if err != nil {
		t.log.Warn().Err(err).Str("channel", channelID).Msg("legacy watermark unreadable")
		return "", nil
	}
	if ts != "" {
		t.log.Info().Str("channel", channelID).Str("ts", ts).Msg("using legacy watermark")
	}
	return ts, nil
}

// Set records ts for the channel. A timestamp below the stored one is ignored,
// so the watermark never moves backwards.
func (t *Tracker) Set(ctx context.Context, channelID, channelName, ts string) error {
	cur, err := t.store.GetCursor(ctx, channelID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("cursor %s: %w", channelID, err)
	}
	if err == nil && domain.CompareTS(ts, cur.LastReadTS) < 0 {
		t.log.Debug().Str("channel", channelID).Str("ts", ts).Str("current", cur.LastReadTS).Msg("cursor regression ignored")
		return nil
	}
	return t.store.SetCursor(ctx, domain.CursorEntry{
		ChannelID:   channelID,
		ChannelName: channelName,
		LastReadTS:  ts,
		UpdatedAt:   t.now().UTC(),
	})
}

// List returns every channel entry, most recently updated first.
func (t *Tracker) List(ctx context.Context) ([]domain.CursorEntry, error) {
	return t.store.ListCursors(ctx)
}

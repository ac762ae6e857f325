package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"reservation_ingest/internal/adapters/observability"
	"reservation_ingest/internal/domain"
	"reservation_ingest/internal/parser"
)

// TickResult summarizes one pass over a channel.
type TickResult struct {
	Fetched int
	Skipped int
	Failed  int
	Saved   int
	Cursor  string
}

type runIDKey struct{}

// WithRunID tags ctx so channel logs can be correlated with their tick.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func (ic *IngestionContext) channelLogger(ctx context.Context, ch Channel) zerolog.Logger {
	lc := ic.Log.With().Str("channel", ch.ID).Str("platform", string(ch.Platform))
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		lc = lc.Str("run_id", id)
	}
	return lc.Logger()
}

// ProcessChannel runs one ingestion pass for ch: read the cursor, fetch newer
// messages, handle them oldest first, then move the cursor to the newest one.
// An error means the pass was abandoned before the cursor moved.
func (ic *IngestionContext) ProcessChannel(ctx context.Context, ch Channel) (TickResult, error) {
	var res TickResult
	log := ic.channelLogger(ctx, ch)

	p, ok := ic.Parsers.For(ch.Platform)
	if !ok {
		return res, fmt.Errorf("no parser for platform %q", ch.Platform)
	}

	last, err := ic.Cursor.Get(ctx, ch.ID)
	if err != nil {
		return res, fmt.Errorf("read cursor: %w", err)
	}

	msgs, err := ic.Chat.FetchHistory(ctx, ch.ID, last)
	if err != nil {
		return res, fmt.Errorf("fetch history: %w", err)
	}
	slices.Reverse(msgs)
	slices.SortStableFunc(msgs, func(a, b domain.RawMessage) int { return domain.CompareTS(a.TS, b.TS) })
	batch := slices.DeleteFunc(msgs, func(m domain.RawMessage) bool { return domain.CompareTS(m.TS, last) <= 0 })

	res.Fetched = len(batch)
	if len(batch) == 0 {
		return res, nil
	}
	log.Debug().Int("count", len(batch)).Str("since", last).Msg("fetched messages")

	for _, m := range batch {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		observability.ObserveMessage(string(ch.Platform), observability.OutcomeFetched)
		outcome := ic.processMessage(ctx, log, p, ch, m)
		observability.ObserveMessage(string(ch.Platform), outcome)
		switch outcome {
		case observability.OutcomeSaved:
			res.Saved++
		case observability.OutcomeSkippedDedupe, observability.OutcomeSkippedFilter:
			res.Skipped++
		default:
			res.Failed++
		}
	}

	newest := batch[len(batch)-1].TS
	if err := ic.Cursor.Set(ctx, ch.ID, ch.Name, newest); err != nil {
		return res, fmt.Errorf("advance cursor: %w", err)
	}
	res.Cursor = newest
	observability.ObserveCursorAdvance(string(ch.Platform))
	log.Info().
		Int("fetched", res.Fetched).
		Int("saved", res.Saved).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Str("cursor", newest).
		Msg("channel processed")
	return res, nil
}

// processMessage handles one message and reports its outcome. Nothing here
// escapes: a failure is logged and the batch moves on.
func (ic *IngestionContext) processMessage(ctx context.Context, log zerolog.Logger, p parser.Parser, ch Channel, m domain.RawMessage) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("message %s: %v", m.TS, r)
			log.Error().Err(err).Msg("message processing panicked")
			ic.Monitor.Error(err)
			outcome = observability.OutcomeStandardizeFailed
		}
	}()

	key := m.DedupeKey()
	if _, hit, err := ic.Dedupe.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("ts", m.TS).Msg("dedupe lookup failed")
	} else if hit {
		log.Debug().Str("ts", m.TS).Msg("already processed")
		return observability.OutcomeSkippedDedupe
	}

	if !parser.Accept(ch.Platform, m) {
		log.Debug().Str("ts", m.TS).Msg("rejected by pre-filter")
		return observability.OutcomeSkippedFilter
	}

	ic.Monitor.Processed()
	rec := p.Parse(ctx, m)
	if rec == nil {
		log.Info().Str("ts", m.TS).Msg("message not parseable")
		ic.Monitor.FailedParsing()
		return observability.OutcomeParseFailed
	}
	if !p.Validate(rec) {
		observability.ObserveMessage(string(ch.Platform), observability.OutcomeInvalid)
	}

	out, err := ic.Standardizer.Standardize(rec, m)
	if err != nil {
		log.Error().Err(err).Str("ts", m.TS).Str("title", rec.Title).Msg("standardize failed")
		ic.Monitor.Error(err)
		return observability.OutcomeStandardizeFailed
	}

	if err := ic.Store.UpsertReservation(ctx, out); err != nil {
		log.Error().Err(err).
			Str("ts", m.TS).
			Str("reservation_number", out.ReservationNumber).
			Msg("save failed")
		ic.Monitor.Error(fmt.Errorf("save %s: %w", out.ReservationNumber, err))
		return observability.OutcomeSaveFailed
	}
	ic.Monitor.Saved(ch.Platform)

	entry := domain.DedupeEntry{Processed: true, Platform: ch.Platform, InsertedAt: ic.now().UTC()}
	if err := ic.Dedupe.Set(ctx, key, entry, 0); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Str("ts", m.TS).Msg("dedupe store failed")
	}
	log.Debug().
		Str("ts", m.TS).
		Str("status", string(out.Status)).
		Str("reservation_number", out.ReservationNumber).
		Msg("reservation saved")
	return observability.OutcomeSaved
}

package app

import (
	"context"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"reservation_ingest/internal/adapters/observability"
)

// PollInterval is the fixed delay between ticks.
const PollInterval = 30 * time.Second

// DefaultStatusCron reports status at the top of every hour.
const DefaultStatusCron = "0 * * * *"

type Poller struct {
	ic         *IngestionContext
	channels   []Channel
	workers    int64
	interval   time.Duration
	statusCron string
}

// NewPoller fans each tick out over channels with at most workers running at once.
func NewPoller(ic *IngestionContext, channels []Channel, workers int, statusCron string) *Poller {
	if workers <= 0 {
		workers = len(channels)
	}
	if statusCron == "" || !gronx.IsValid(statusCron) {
		statusCron = DefaultStatusCron
	}
	return &Poller{
		ic:         ic,
		channels:   channels,
		workers:    int64(max(workers, 1)),
		interval:   PollInterval,
		statusCron: statusCron,
	}
}

// Tick processes every channel once and waits for all of them.
// A failing channel only loses its own pass.
func (p *Poller) Tick(ctx context.Context) {
	runID := uuid.NewString()
	ctx = WithRunID(ctx, runID)
	sem := semaphore.NewWeighted(p.workers)
	var wg sync.WaitGroup

	for _, ch := range p.channels {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			p.ic.Log.Warn().Err(err).Str("run_id", runID).Msg("tick cancelled")
			break
		}

		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := p.ic.ProcessChannel(ctx, ch)
			if err != nil {
				p.ic.Log.Warn().Err(err).
					Str("run_id", runID).
					Str("channel", ch.ID).
					Str("platform", string(ch.Platform)).
					Msg("channel tick failed")
				observability.ObserveTick(string(ch.Platform), "failed")
				return
			}
			if res.Fetched == 0 {
				observability.ObserveTick(string(ch.Platform), "empty")
				return
			}
			observability.ObserveTick(string(ch.Platform), "ok")
		}(ch)
	}
	wg.Wait()
}

// Run ticks immediately and then every interval until ctx is done. Ticks never
// overlap. Status reports follow the cron schedule.
func (p *Poller) Run(ctx context.Context) {
	p.ic.Log.Info().
		Dur("interval", p.interval).
		Int("channels", len(p.channels)).
		Str("status_cron", p.statusCron).
		Msg("poller started")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.reportLoop(ctx)
	}()

	p.Tick(ctx)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			p.ic.Log.Info().Msg("poller stopped")
			return
		case <-t.C:
			p.Tick(ctx)
		}
	}
}

func (p *Poller) reportLoop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(p.statusCron, time.Now(), false)
		if err != nil {
			p.ic.Log.Error().Err(err).Str("cron", p.statusCron).Msg("status schedule failed")
			return
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			p.LogStatus(ctx)
		}
	}
}

// LogStatus writes the monitor report followed by every channel cursor.
func (p *Poller) LogStatus(ctx context.Context) {
	p.ic.Monitor.Log(ctx, p.ic.Log.Info(), "status report")
	entries, err := p.ic.Cursor.List(ctx)
	if err != nil {
		p.ic.Log.Warn().Err(err).Msg("cursor listing failed")
		return
	}
	for _, e := range entries {
		p.ic.Log.Info().
			Str("channel", e.ChannelID).
			Str("name", e.ChannelName).
			Str("last_read_ts", e.LastReadTS).
			Time("updated_at", e.UpdatedAt).
			Msg("channel cursor")
	}
}

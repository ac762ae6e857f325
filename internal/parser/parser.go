package parser

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"reservation_ingest/internal/domain"
)

// Extractor pulls a platform's fields out of one message.
// It returns (nil, nil) when the message has no parseable payload.
type Extractor interface {
	Platform() domain.Platform
	Extract(ctx context.Context, msg domain.RawMessage) (*domain.Record, error)
}

// Parser is the per-platform capability used by the ingestion loop.
// Parse never fails outward: extraction errors and panics become nil plus one error event.
type Parser interface {
	Platform() domain.Platform
	Parse(ctx context.Context, msg domain.RawMessage) *domain.Record
	Validate(rec *domain.Record) bool
}

type platformParser struct {
	ex       Extractor
	required Requirements
	defaults []Default
	log      zerolog.Logger
}

func New(ex Extractor, required Requirements, defaults []Default, log zerolog.Logger) Parser {
	return &platformParser{
		ex:       ex,
		required: required,
		defaults: defaults,
		log:      log.With().Str("platform", string(ex.Platform())).Logger(),
	}
}

func (p *platformParser) Platform() domain.Platform { return p.ex.Platform() }

func (p *platformParser) Parse(ctx context.Context, msg domain.RawMessage) (rec *domain.Record) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Str("ts", msg.TS).Str("panic", fmt.Sprint(r)).Msg("parse failed")
			rec = nil
		}
	}()

	out, err := p.ex.Extract(ctx, msg)
	if err != nil {
		p.log.Error().Err(err).Str("ts", msg.TS).Msg("parse failed")
		return nil
	}
	if out == nil {
		return nil
	}
	applyDefaults(out, p.defaults)
	return out
}

func (p *platformParser) Validate(rec *domain.Record) bool {
	return validate(p.log, rec, p.required)
}

// Registry maps each platform to its parser.
type Registry struct {
	byPlatform map[domain.Platform]Parser
}

func NewRegistry(ps ...Parser) *Registry {
	r := &Registry{byPlatform: make(map[domain.Platform]Parser, len(ps))}
	for _, p := range ps {
		r.byPlatform[p.Platform()] = p
	}
	return r
}

func (r *Registry) For(p domain.Platform) (Parser, bool) {
	ps, ok := r.byPlatform[p]
	return ps, ok
}

// DefaultRegistry wires the four production parsers.
// now supplies the current year for date formats that omit it.
func DefaultRegistry(dl domain.Downloader, log zerolog.Logger, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return NewRegistry(
		New(&Yanolja{}, yanoljaRequired, nil, log),
		New(&Naver{dl: dl}, naverRequired, nil, log),
		New(&Airbnb{now: now}, airbnbRequired, airbnbDefaults, log),
		New(&Yeogi{dl: dl}, yeogiRequired, nil, log),
	)
}

func NewYanolja() *Yanolja { return &Yanolja{} }
func NewNaver(dl domain.Downloader) *Naver { return &Naver{dl: dl} }
func NewAirbnb(now func() time.Time) *Airbnb { return &Airbnb{now: now} }
func NewYeogi(dl domain.Downloader) *Yeogi { return &Yeogi{dl: dl} }

package parser

import (
	"github.com/rs/zerolog"

	"reservation_ingest/internal/domain"
)

// Requirements is a platform's required-field table: Common fields always,
// plus the fields listed for the record's status.
type Requirements struct {
	Common   []string
	ByStatus map[domain.Status][]string
}

func (q Requirements) Fields(st domain.Status) []string {
	out := make([]string, 0, len(q.Common)+len(q.ByStatus[st]))
	out = append(out, q.Common...)
	return append(out, q.ByStatus[st]...)
}

// Missing lists required fields the record left empty, in table order.
func (q Requirements) Missing(rec *domain.Record) []string {
	var out []string
	for _, f := range q.Fields(rec.Status) {
		if !rec.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// validate warns once per missing field. It never blocks persistence.
func validate(log zerolog.Logger, rec *domain.Record, q Requirements) bool {
	if rec == nil {
		return false
	}
	missing := q.Missing(rec)
	for _, f := range missing {
		log.Warn().
			Str("status", string(rec.Status)).
			Str("title", rec.Title).
			Str("field", f).
			Msg("required field empty")
	}
	return len(missing) == 0
}

// Default fills Field with Value when extraction left it empty.
// An empty Statuses list applies to every status.
type Default struct {
	Field    string
	Value    string
	Statuses []domain.Status
}

func (d Default) appliesTo(st domain.Status) bool {
	if len(d.Statuses) == 0 {
		return true
	}
	for _, s := range d.Statuses {
		if s == st {
			return true
		}
	}
	return false
}

func applyDefaults(rec *domain.Record, defs []Default) {
	for _, d := range defs {
		if d.appliesTo(rec.Status) {
			rec.SetIfEmpty(d.Field, d.Value)
		}
	}
}

// PreFilter is a cheap accept/reject decision taken before parsing.
type PreFilter func(msg domain.RawMessage) bool

// PreFilters holds the platforms that reject messages early.
// Airbnb notices are only worth parsing for these three attachment titles.
var PreFilters = map[domain.Platform]PreFilter{
	domain.PlatformAirbnb: AttachmentTitleContains("취소됨", "대기 중", "예약 확정"),
}

func AttachmentTitleContains(labels ...string) PreFilter {
	return func(msg domain.RawMessage) bool {
		f, ok := msg.Attachment()
		return ok && containsAny(f.Title, labels...)
	}
}

// Accept reports whether msg passes the platform's pre-filter (if it has one).
func Accept(p domain.Platform, msg domain.RawMessage) bool {
	if f, ok := PreFilters[p]; ok {
		return f(msg)
	}
	return true
}

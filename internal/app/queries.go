package app

import (
	"context"

	"reservation_ingest/internal/cursor"
	"reservation_ingest/internal/domain"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// QueryService backs the read-only status API.
type QueryService struct {
	repo    domain.ReservationRepository
	cursors *cursor.Tracker
	monitor *Monitor
}

// NewQueryService wires the read side. monitor is nil when the API runs
// outside the ingestor process.
func NewQueryService(r domain.ReservationRepository, c *cursor.Tracker, m *Monitor) *QueryService {
	return &QueryService{repo: r, cursors: c, monitor: m}
}

func (s *QueryService) GetReservation(ctx context.Context, id int64) (domain.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

// ListReservations clamps the page window before hitting the store.
func (s *QueryService) ListReservations(ctx context.Context, q domain.ReservationsQuery) (domain.ReservationsPage, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	q.Limit = min(q.Limit, MaxPageSize)
	q.Offset = max(q.Offset, 0)
	return s.repo.ListReservations(ctx, q)
}

func (s *QueryService) Channels(ctx context.Context) ([]domain.CursorEntry, error) {
	out, err := s.cursors.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.CursorEntry{}
	}
	return out, nil
}

type Status struct {
	Monitor  *Report              `json:"monitor,omitempty"`
	Channels []domain.CursorEntry `json:"channels"`
}

func (s *QueryService) Status(ctx context.Context) (Status, error) {
	chs, err := s.Channels(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{Channels: chs}
	if s.monitor != nil {
		r := s.monitor.Report(ctx)
		st.Monitor = &r
	}
	return st, nil
}

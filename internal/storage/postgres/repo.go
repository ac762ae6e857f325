// Package postgres stores reservations and channel cursors in PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reservation_ingest/internal/domain"
)

// Open parses dsn and connects a pool of at most maxConns connections.
func Open(ctx context.Context, dsn string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 4
	}
	cfg.MaxConns = int32(maxConns)
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	return pool, nil
}

type Repo struct {
	pool      *pgxpool.Pool
	hasUnique atomic.Bool
}

func New(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func reservationArgs(r domain.Reservation) []any {
	var extras map[string]any
	if len(r.Extras) > 0 {
		extras = r.Extras
	}
	return []any{
		string(r.Platform), string(r.Status), r.ReservationNumber, r.AccommodationName,
		r.GuestName, r.FinalGuestName, r.GuestPhone, r.RoomName, r.FinalRoomName,
		r.CheckInDate, r.CheckOutDate, r.FinalCheckInDate, r.FinalCheckOutDate, r.Guests,
		r.TotalPrice, r.Discount, r.Coupon, r.Point, r.FinalPrice, r.HostEarnings, r.ServiceFee, r.Tax,
		r.RequestNote, r.PickupStatus, r.RemainingRooms, r.DetailsURL, r.Message,
		r.CheckInTime, r.CheckOutTime, r.PaymentDate, r.MessageSent,
		r.TSUnix, r.TSKoreaTime,
		r.Sender, r.SenderNumber, r.Receiver, r.ReceiverNumber, r.ReceivedDate, extras,
	}
}

// UpsertReservation is idempotent on (reservation_number, platform) when the
// unique constraint exists, a plain insert otherwise.
func (r *Repo) UpsertReservation(ctx context.Context, res domain.Reservation) error {
	q := insertReservationSQL
	if r.uniqueKey(ctx) {
		q = upsertReservationSQL
	}
	_, err := r.pool.Exec(ctx, q, reservationArgs(res)...)
	return err
}

func (r *Repo) uniqueKey(ctx context.Context) bool {
	if r.hasUnique.Load() {
		return true
	}
	var ok bool
	if err := r.pool.QueryRow(ctx, uniqueConstraintSQL).Scan(&ok); err != nil || !ok {
		return false
	}
	r.hasUnique.Store(true)
	return true
}

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var (
		res              domain.Reservation
		platform, status string
	)
	err := row.Scan(
		&res.ID,
		&platform, &status, &res.ReservationNumber, &res.AccommodationName,
		&res.GuestName, &res.FinalGuestName, &res.GuestPhone, &res.RoomName, &res.FinalRoomName,
		&res.CheckInDate, &res.CheckOutDate, &res.FinalCheckInDate, &res.FinalCheckOutDate, &res.Guests,
		&res.TotalPrice, &res.Discount, &res.Coupon, &res.Point, &res.FinalPrice, &res.HostEarnings, &res.ServiceFee, &res.Tax,
		&res.RequestNote, &res.PickupStatus, &res.RemainingRooms, &res.DetailsURL, &res.Message,
		&res.CheckInTime, &res.CheckOutTime, &res.PaymentDate, &res.MessageSent,
		&res.TSUnix, &res.TSKoreaTime,
		&res.Sender, &res.SenderNumber, &res.Receiver, &res.ReceiverNumber, &res.ReceivedDate, &res.Extras,
		&res.CreatedAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.Platform = domain.Platform(platform)
	res.Status = domain.Status(status)
	return res, nil
}

func (r *Repo) GetReservation(ctx context.Context, id int64) (domain.Reservation, error) {
	res, err := scanReservation(r.pool.QueryRow(ctx, getReservationSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return res, err
}

func (r *Repo) ListReservations(ctx context.Context, q domain.ReservationsQuery) (domain.ReservationsPage, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if q.Platform != nil {
		where = append(where, "platform = "+arg(string(*q.Platform)))
	}
	if q.Status != nil {
		where = append(where, "reservation_status = "+arg(string(*q.Status)))
	}
	stmt := selectReservationSQL
	if len(where) > 0 {
		stmt += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	stmt += "ORDER BY ts_unixtime DESC NULLS LAST, id DESC\nLIMIT " + arg(q.Limit) + " OFFSET " + arg(q.Offset)

	rows, err := r.pool.Query(ctx, stmt, args...)
	if err != nil {
		return domain.ReservationsPage{}, err
	}
	defer rows.Close()

	out := []domain.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return domain.ReservationsPage{}, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return domain.ReservationsPage{}, err
	}
	return domain.ReservationsPage{Items: out, Limit: q.Limit, Offset: q.Offset}, nil
}

// EnsureSchema creates the channel_state table when it is missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, createChannelStateSQL)
	return err
}

func (r *Repo) GetCursor(ctx context.Context, channelID string) (domain.CursorEntry, error) {
	var e domain.CursorEntry
	err := r.pool.QueryRow(ctx, getCursorSQL, channelID).Scan(&e.ChannelID, &e.LastReadTS, &e.ChannelName, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CursorEntry{}, domain.ErrNotFound
	}
	return e, err
}

func (r *Repo) SetCursor(ctx context.Context, e domain.CursorEntry) error {
	_, err := r.pool.Exec(ctx, setCursorSQL, e.ChannelID, e.ChannelName, e.LastReadTS, e.UpdatedAt)
	return err
}

func (r *Repo) ListCursors(ctx context.Context) ([]domain.CursorEntry, error) {
	rows, err := r.pool.Query(ctx, listCursorsSQL)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CursorEntry, error) {
		var e domain.CursorEntry
		err := row.Scan(&e.ChannelID, &e.LastReadTS, &e.ChannelName, &e.UpdatedAt)
		return e, err
	})
}

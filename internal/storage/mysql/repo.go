package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"reservation_ingest/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type Repo struct {
	db *sql.DB
	// set once the unique key on (reservation_number, platform) has been seen
	hasUnique atomic.Bool
}

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// reservationArgs returns the values in reservationColumns order.
func reservationArgs(r domain.Reservation) ([]any, error) {
	var extras []byte
	if len(r.Extras) > 0 {
		b, err := json.Marshal(r.Extras)
		if err != nil {
			return nil, fmt.Errorf("marshal extras: %w", err)
		}
		extras = b
	}
	return []any{
		string(r.Platform),
		string(r.Status),
		r.ReservationNumber,
		r.AccommodationName,
		r.GuestName,
		r.FinalGuestName,
		r.GuestPhone,
		r.RoomName,
		r.FinalRoomName,
		r.CheckInDate,
		r.CheckOutDate,
		valStr(r.FinalCheckInDate),
		valStr(r.FinalCheckOutDate),
		valInt(r.Guests),
		valF64(r.TotalPrice),
		valF64(r.Discount),
		valF64(r.Coupon),
		valF64(r.Point),
		valF64(r.FinalPrice),
		valF64(r.HostEarnings),
		valF64(r.ServiceFee),
		valF64(r.Tax),
		r.RequestNote,
		r.PickupStatus,
		r.RemainingRooms,
		r.DetailsURL,
		r.Message,
		r.CheckInTime,
		r.CheckOutTime,
		r.PaymentDate,
		r.MessageSent,
		valF64(r.TSUnix),
		r.TSKoreaTime,
		valStr(r.Sender),
		valStr(r.SenderNumber),
		valStr(r.Receiver),
		valStr(r.ReceiverNumber),
		valTime(r.ReceivedDate),
		valJSON(extras),
	}, nil
}

// UpsertReservation is idempotent on (reservation_number, platform) when the
// table carries that unique key; without it every call inserts a row.
func (r *Repo) UpsertReservation(ctx context.Context, res domain.Reservation) error {
	args, err := reservationArgs(res)
	if err != nil {
		return err
	}
	q := insertReservationSQL
	if r.uniqueKey(ctx) {
		q = upsertReservationSQL
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

func (r *Repo) uniqueKey(ctx context.Context) bool {
	if r.hasUnique.Load() {
		return true
	}
	var n int
	if err := r.db.QueryRowContext(ctx, uniqueConstraintSQL).Scan(&n); err != nil || n == 0 {
		return false
	}
	r.hasUnique.Store(true)
	return true
}

type scanner interface{ Scan(dest ...any) error }

func scanReservation(s scanner) (domain.Reservation, error) {
	var (
		res                     domain.Reservation
		platform, status        string
		finalIn, finalOut       sql.NullString
		guests                  sql.NullInt64
		total, discount, coupon sql.NullFloat64
		point, final, host, fee sql.NullFloat64
		tax, tsUnix             sql.NullFloat64
		request, message        sql.NullString
		sender, senderNo        sql.NullString
		receiver, receiverNo    sql.NullString
		received                sql.NullTime
		extras                  []byte
	)
	if err := s.Scan(
		&res.ID,
		&platform, &status, &res.ReservationNumber, &res.AccommodationName,
		&res.GuestName, &res.FinalGuestName, &res.GuestPhone, &res.RoomName, &res.FinalRoomName,
		&res.CheckInDate, &res.CheckOutDate, &finalIn, &finalOut, &guests,
		&total, &discount, &coupon, &point, &final, &host, &fee, &tax,
		&request, &res.PickupStatus, &res.RemainingRooms, &res.DetailsURL, &message,
		&res.CheckInTime, &res.CheckOutTime, &res.PaymentDate, &res.MessageSent,
		&tsUnix, &res.TSKoreaTime,
		&sender, &senderNo, &receiver, &receiverNo, &received, &extras,
		&res.CreatedAt,
	); err != nil {
		return domain.Reservation{}, err
	}

	res.Platform = domain.Platform(platform)
	res.Status = domain.Status(status)
	res.FinalCheckInDate = nullStr(finalIn)
	res.FinalCheckOutDate = nullStr(finalOut)
	if guests.Valid {
		g := int(guests.Int64)
		res.Guests = &g
	}
	res.TotalPrice = nullF64(total)
	res.Discount = nullF64(discount)
	res.Coupon = nullF64(coupon)
	res.Point = nullF64(point)
	res.FinalPrice = nullF64(final)
	res.HostEarnings = nullF64(host)
	res.ServiceFee = nullF64(fee)
	res.Tax = nullF64(tax)
	res.TSUnix = nullF64(tsUnix)
	res.RequestNote = request.String
	res.Message = message.String
	res.Sender = nullStr(sender)
	res.SenderNumber = nullStr(senderNo)
	res.Receiver = nullStr(receiver)
	res.ReceiverNumber = nullStr(receiverNo)
	if received.Valid {
		t := received.Time
		res.ReceivedDate = &t
	}
	if len(extras) > 0 {
		_ = json.Unmarshal(extras, &res.Extras)
	}
	return res, nil
}

func nullStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func nullF64(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

func (r *Repo) GetReservation(ctx context.Context, id int64) (domain.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, getReservationSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return res, err
}

// ListReservations returns the newest rows first (by message timestamp, then id).
func (r *Repo) ListReservations(ctx context.Context, q domain.ReservationsQuery) (domain.ReservationsPage, error) {
	var (
		where []string
		args  []any
	)
	if q.Platform != nil {
		where = append(where, "platform = ?")
		args = append(args, string(*q.Platform))
	}
	if q.Status != nil {
		where = append(where, "reservation_status = ?")
		args = append(args, string(*q.Status))
	}
	stmt := selectReservationSQL
	if len(where) > 0 {
		stmt += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	stmt += "ORDER BY ts_unixtime DESC, id DESC\nLIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := r.db.QueryContext(ctx, stmt, args...)
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

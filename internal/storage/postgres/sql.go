package postgres

import (
	"strconv"
	"strings"
)

const reservationColumns = `platform, reservation_status, reservation_number, accommodation_name,
  guest_name, final_guest_name, guest_phone, room_name, final_room_name,
  check_in_date, check_out_date, final_check_in_date, final_check_out_date, guests,
  total_price, discount, coupon, point, final_price, host_earnings, service_fee, tax,
  request, pickup_status, remaining_rooms, reservation_details_url, message,
  check_in_time, check_out_time, payment_date, message_sent,
  ts_unixtime, ts_korea_time,
  sender, sender_number, receiver, receiver_number, received_date, extras`

const reservationColumnCount = 39

func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "$" + strconv.Itoa(i+1)
	}
	return strings.Join(ps, ", ")
}

var insertReservationSQL = "INSERT INTO reservations\n  (" + reservationColumns + ")\nVALUES\n  (" +
	placeholders(reservationColumnCount) + ")"

var upsertReservationSQL = insertReservationSQL + `
ON CONFLICT (reservation_number, platform) DO UPDATE SET
  reservation_status      = EXCLUDED.reservation_status,
  accommodation_name      = EXCLUDED.accommodation_name,
  guest_name              = EXCLUDED.guest_name,
  final_guest_name        = EXCLUDED.final_guest_name,
  guest_phone             = EXCLUDED.guest_phone,
  room_name               = EXCLUDED.room_name,
  final_room_name         = EXCLUDED.final_room_name,
  check_in_date           = EXCLUDED.check_in_date,
  check_out_date          = EXCLUDED.check_out_date,
  final_check_in_date     = EXCLUDED.final_check_in_date,
  final_check_out_date    = EXCLUDED.final_check_out_date,
  guests                  = EXCLUDED.guests,
  total_price             = EXCLUDED.total_price,
  discount                = EXCLUDED.discount,
  coupon                  = EXCLUDED.coupon,
  point                   = EXCLUDED.point,
  final_price             = EXCLUDED.final_price,
  host_earnings           = EXCLUDED.host_earnings,
  service_fee             = EXCLUDED.service_fee,
  tax                     = EXCLUDED.tax,
  request                 = EXCLUDED.request,
  pickup_status           = EXCLUDED.pickup_status,
  remaining_rooms         = EXCLUDED.remaining_rooms,
  reservation_details_url = EXCLUDED.reservation_details_url,
  message                 = EXCLUDED.message,
  check_in_time           = EXCLUDED.check_in_time,
  check_out_time          = EXCLUDED.check_out_time,
  payment_date            = EXCLUDED.payment_date,
  ts_unixtime             = EXCLUDED.ts_unixtime,
  ts_korea_time           = EXCLUDED.ts_korea_time,
  sender                  = EXCLUDED.sender,
  sender_number           = EXCLUDED.sender_number,
  receiver                = EXCLUDED.receiver,
  receiver_number         = EXCLUDED.receiver_number,
  received_date           = EXCLUDED.received_date,
  extras                  = EXCLUDED.extras,
  updated_at              = now()
`

const uniqueConstraintSQL = `
SELECT EXISTS (
  SELECT 1 FROM pg_constraint
  WHERE conname = 'reservations_unique_reservation'
)`

const selectReservationSQL = "SELECT id, " + reservationColumns + ", created_at\nFROM reservations\n"

const getReservationSQL = selectReservationSQL + "WHERE id = $1"

const createChannelStateSQL = `
CREATE TABLE IF NOT EXISTS channel_state (
  channel_id   VARCHAR(50) PRIMARY KEY,
  last_read_ts VARCHAR(30) NOT NULL,
  channel_name VARCHAR(50),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const getCursorSQL = `SELECT channel_id, last_read_ts, COALESCE(channel_name, ''), updated_at FROM channel_state WHERE channel_id = $1`

const setCursorSQL = `
INSERT INTO channel_state (channel_id, channel_name, last_read_ts, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (channel_id) DO UPDATE SET
  last_read_ts = EXCLUDED.last_read_ts,
  channel_name = EXCLUDED.channel_name,
  updated_at   = EXCLUDED.updated_at
`

const listCursorsSQL = `
SELECT channel_id, last_read_ts, COALESCE(channel_name, ''), updated_at
FROM channel_state
ORDER BY updated_at DESC, channel_id
`

package mysql

import "strings"

// reservationColumns is the write/read column order shared by every query below.
const reservationColumns = `platform, reservation_status, reservation_number, accommodation_name,
  guest_name, final_guest_name, guest_phone, room_name, final_room_name,
  check_in_date, check_out_date, final_check_in_date, final_check_out_date, guests,
  total_price, discount, coupon, ` + "`point`" + `, final_price, host_earnings, service_fee, tax,
  request, pickup_status, remaining_rooms, reservation_details_url, message,
  check_in_time, check_out_time, payment_date, message_sent,
  ts_unixtime, ts_korea_time,
  sender, sender_number, receiver, receiver_number, received_date, extras`

const reservationColumnCount = 39

var insertReservationSQL = "INSERT INTO reservations\n  (" + reservationColumns + ")\nVALUES\n  (" +
	strings.TrimSuffix(strings.Repeat("?, ", reservationColumnCount), ", ") + ")"

// The natural key (reservation_number, platform) keeps the first row's id; a
// later notice for the same booking overwrites the descriptive columns.
var upsertReservationSQL = insertReservationSQL + `
ON DUPLICATE KEY UPDATE
  reservation_status      = VALUES(reservation_status),
  accommodation_name      = VALUES(accommodation_name),
  guest_name              = VALUES(guest_name),
  final_guest_name        = VALUES(final_guest_name),
  guest_phone             = VALUES(guest_phone),
  room_name               = VALUES(room_name),
  final_room_name         = VALUES(final_room_name),
  check_in_date           = VALUES(check_in_date),
  check_out_date          = VALUES(check_out_date),
  final_check_in_date     = VALUES(final_check_in_date),
  final_check_out_date    = VALUES(final_check_out_date),
  guests                  = VALUES(guests),
  total_price             = VALUES(total_price),
  discount                = VALUES(discount),
  coupon                  = VALUES(coupon),
  ` + "`point`" + `                 = VALUES(` + "`point`" + `),
  final_price             = VALUES(final_price),
  host_earnings           = VALUES(host_earnings),
  service_fee             = VALUES(service_fee),
  tax                     = VALUES(tax),
  request                 = VALUES(request),
  pickup_status           = VALUES(pickup_status),
  remaining_rooms         = VALUES(remaining_rooms),
  reservation_details_url = VALUES(reservation_details_url),
  message                 = VALUES(message),
  check_in_time           = VALUES(check_in_time),
  check_out_time          = VALUES(check_out_time),
  payment_date            = VALUES(payment_date),
  ts_unixtime             = VALUES(ts_unixtime),
  ts_korea_time           = VALUES(ts_korea_time),
  sender                  = VALUES(sender),
  sender_number           = VALUES(sender_number),
  receiver                = VALUES(receiver),
  receiver_number         = VALUES(receiver_number),
  received_date           = VALUES(received_date),
  extras                  = VALUES(extras),
  updated_at              = CURRENT_TIMESTAMP
`

const uniqueConstraintSQL = `
SELECT COUNT(*)
FROM information_schema.table_constraints
WHERE table_schema = DATABASE()
  AND table_name = 'reservations'
  AND constraint_name = 'reservations_unique_reservation'
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const selectReservationSQL = "SELECT id, " + reservationColumns + ", created_at\nFROM reservations\n"

const getReservationSQL = selectReservationSQL + "WHERE id = ?"

// -----------------------------------------------------------------------------
// CHANNEL STATE
// -----------------------------------------------------------------------------

const createChannelStateSQL = `
CREATE TABLE IF NOT EXISTS channel_state (
  channel_id   VARCHAR(50) PRIMARY KEY,
  last_read_ts VARCHAR(30) NOT NULL,
  channel_name VARCHAR(50),
  updated_at   TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
`

const getCursorSQL = `SELECT channel_id, last_read_ts, channel_name, updated_at FROM channel_state WHERE channel_id = ?`

const setCursorSQL = `
INSERT INTO channel_state (channel_id, channel_name, last_read_ts, updated_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  last_read_ts = VALUES(last_read_ts),
  channel_name = VALUES(channel_name),
  updated_at   = VALUES(updated_at)
`

const listCursorsSQL = `
SELECT channel_id, last_read_ts, channel_name, updated_at
FROM channel_state
ORDER BY updated_at DESC, channel_id
`

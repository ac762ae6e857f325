package domain

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Reservation is the canonical record persisted for every parsed booking event.
// (ReservationNumber, Platform) is the upsert key; ReservationNumber is "" when the
// source carries none.
type Reservation struct {
	ID                int64    `json:"id,omitempty"`
	Platform          Platform `json:"platform"`
	Status            Status   `json:"reservation_status"`
	ReservationNumber string   `json:"reservation_number"`
	AccommodationName string   `json:"accommodation_name"`
	GuestName         string   `json:"guest_name"`
	FinalGuestName    string   `json:"final_guest_name"`
	GuestPhone        string   `json:"guest_phone"`
	RoomName          string   `json:"room_name"`
	FinalRoomName     string   `json:"final_room_name"`
	CheckInDate       string   `json:"check_in_date"`
	CheckOutDate      string   `json:"check_out_date"`
	FinalCheckInDate  *string  `json:"final_check_in_date"`
	FinalCheckOutDate *string  `json:"final_check_out_date"`
	Guests            *int     `json:"guests"`

	TotalPrice   *float64 `json:"total_price"`
	Discount     *float64 `json:"discount"`
	Coupon       *float64 `json:"coupon"`
	Point        *float64 `json:"point"`
	FinalPrice   *float64 `json:"final_price"`
	HostEarnings *float64 `json:"host_earnings"`
	ServiceFee   *float64 `json:"service_fee"`
	Tax          *float64 `json:"tax"`

	RequestNote    string `json:"request"`
	PickupStatus   string `json:"pickup_status"`
	RemainingRooms string `json:"remaining_rooms"`
	DetailsURL     string `json:"reservation_details_url"`
	Message        string `json:"message"`
	CheckInTime    string `json:"check_in_time"`
	CheckOutTime   string `json:"check_out_time"`
	PaymentDate    string `json:"payment_date"`
	MessageSent    bool   `json:"message_sent"`

	TSUnix      *float64 `json:"ts_unixtime"`
	TSKoreaTime string   `json:"ts_korea_time"`

	// SMS relay metadata, only populated for yanolja.
	Sender         *string    `json:"sender,omitempty"`
	SenderNumber   *string    `json:"sender_number,omitempty"`
	Receiver       *string    `json:"receiver,omitempty"`
	ReceiverNumber *string    `json:"receiver_number,omitempty"`
	ReceivedDate   *time.Time `json:"received_date,omitempty"`

	Extras    map[string]any `json:"extras,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// CursorEntry is the per-channel ingestion watermark.
type CursorEntry struct {
	ChannelID   string    `json:"channel_id"`
	LastReadTS  string    `json:"last_read_ts"`
	ChannelName string    `json:"channel_name"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DedupeEntry marks a message that was already persisted.
type DedupeEntry struct {
	Processed  bool      `json:"processed"`
	Platform   Platform  `json:"platform,omitempty"`
	InsertedAt time.Time `json:"inserted_at"`
}

type CacheStats struct {
	Size     int     `json:"size"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

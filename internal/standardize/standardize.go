// Package standardize maps platform-shaped records onto the canonical reservation.
package standardize

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"reservation_ingest/internal/domain"
)

var (
	ErrNilRecord       = errors.New("standardize: nil record")
	ErrUnknownPlatform = errors.New("standardize: unknown platform")
)

type Standardizer struct {
	now func() time.Time
}

// New returns a Standardizer; now supplies the year for dates that omit it.
func New(now func() time.Time) *Standardizer {
	if now == nil {
		now = time.Now
	}
	return &Standardizer{now: now}
}

// Standardize builds the canonical reservation for rec. The output depends
// only on rec, msg and the current year.
func (s *Standardizer) Standardize(rec *domain.Record, msg domain.RawMessage) (out domain.Reservation, err error) {
	if rec == nil {
		return domain.Reservation{}, ErrNilRecord
	}
	if !rec.Platform.Valid() {
		return domain.Reservation{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, rec.Platform)
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = domain.Reservation{}, fmt.Errorf("standardize %s message %s: %v", rec.Platform, msg.TS, r)
		}
	}()

	p := rec.Platform
	year := s.now().In(kst).Year()
	guest := pick(rec, "guest")
	checkIn, checkOut := pick(rec, "check_in"), pick(rec, "check_out")
	accommodation := pick(rec, "accommodation")

	out = domain.Reservation{
		Platform:          p,
		Status:            rec.Status,
		ReservationNumber: pick(rec, "reservation_no"),
		AccommodationName: accommodation,
		GuestName:         guest,
		FinalGuestName:    FormatGuestName(p, guest),
		GuestPhone:        pick(rec, "phone"),
		RoomName:          pick(rec, "room"),
		FinalRoomName:     FormatRoomName(p, pick(rec, "room"), rec.Get("accommodationName")),
		CheckInDate:       checkIn,
		CheckOutDate:      checkOut,
		FinalCheckInDate:  FormatDate(p, checkIn, rec.Status, year),
		FinalCheckOutDate: FormatDate(p, checkOut, rec.Status, year),
		Guests:            guestCount(pick(rec, "guests")),

		TotalPrice:   ExtractNumber(pick(rec, "total_price")),
		Discount:     ExtractNumber(pick(rec, "discount")),
		Coupon:       ExtractNumber(pick(rec, "coupon")),
		Point:        ExtractNumber(pick(rec, "point")),
		FinalPrice:   ExtractNumber(pick(rec, "final_price")),
		HostEarnings: ExtractNumber(pick(rec, "host_earnings")),
		ServiceFee:   ExtractNumber(pick(rec, "service_fee")),
		Tax:          ExtractNumber(pick(rec, "tax")),

		RequestNote:    pick(rec, "request"),
		PickupStatus:   pick(rec, "pickup"),
		RemainingRooms: pick(rec, "remaining_rooms"),
		DetailsURL:     pick(rec, "details_url"),
		Message:        pick(rec, "message"),
		CheckInTime:    pick(rec, "check_in_time"),
		CheckOutTime:   pick(rec, "check_out_time"),
		PaymentDate:    pick(rec, "payment_date"),

		TSKoreaTime: KoreaTime(msg.TS),
	}
	if f, ok := domain.TSFloat(msg.TS); ok {
		out.TSUnix = &f
	}
	if p == domain.PlatformYanolja {
		out.Sender = ptrStr(pick(rec, "sender"))
		out.SenderNumber = ptrStr(pick(rec, "sender_number"))
		out.Receiver = ptrStr(pick(rec, "receiver"))
		out.ReceiverNumber = ptrStr(pick(rec, "receiver_number"))
		out.ReceivedDate = parseReceived(pick(rec, "received_date"))
	}
	if len(rec.Extras) > 0 {
		out.Extras = maps.Clone(rec.Extras)
	}
	return out, nil
}

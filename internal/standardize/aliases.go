package standardize

import "reservation_ingest/internal/domain"

/********** alias registry (single source of truth) **********/

// aliases lists, per canonical field, the record field names that may carry it.
// Order matters: the first non-empty value wins. English names come from the
// current parsers, Korean names from older parser generations.
var aliases = map[string][]string{
	"accommodation":  {"accommodationName", "숙소명", "pensionName", "펜션명", "partnerName", "제휴점명"},
	"reservation_no": {"reservationNumber", "예약번호"},
	"guest":          {"guestName", "게스트", "예약자", "customerName", "고객명"},
	"phone":          {"phoneNumber", "연락처", "mobileNumber", "휴대전화번호"},
	"room":           {"roomName", "객실명"},
	"check_in":       {"checkInDate", "체크인", "checkInDay", "입실일"},
	"check_out":      {"checkOutDate", "체크아웃", "checkOutDay", "퇴실일"},
	"guests":         {"guestCount", "예약인원", "guests", "인원"},
	"total_price": {
		"totalAmount", "총결제금액", "totalSellingPrice", "총판매가",
		"paymentAmount", "결제금액", "sellingPrice", "판매가격",
	},
	"discount":        {"discount", "할인"},
	"coupon":          {"coupon", "쿠폰"},
	"point":           {"point", "포인트"},
	"final_price":     {"finalSalesPrice", "최종매출가"},
	"host_earnings":   {"hostEarnings", "호스트수익"},
	"service_fee":     {"serviceFee", "서비스수수료"},
	"tax":             {"tax", "숙박세"},
	"request":         {"requestMessage", "요청사항", "deliveryNote", "전달사항", "message", "메시지"},
	"pickup":          {"pickupStatus", "픽업여부"},
	"remaining_rooms": {"remainingRooms", "잔여객실"},
	"details_url":     {"reservationDetailUrl", "예약상세URL"},
	"message":         {"message", "메시지"},
	"check_in_time":   {"checkInTime", "체크인시간"},
	"check_out_time":  {"checkOutTime", "체크아웃시간"},
	"payment_date":    {"paymentDate", "결제일"},

	"sender":          {"senderName", "발신자"},
	"sender_number":   {"senderNumber", "발신번호"},
	"receiver":        {"receiverName", "수신자"},
	"receiver_number": {"receiverNumber", "수신번호"},
	"received_date":   {"receivedDate", "수신날짜"},
}

// pick returns the first non-empty value for a canonical field, or "".
func pick(rec *domain.Record, key string) string {
	for _, name := range aliases[key] {
		if v := rec.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

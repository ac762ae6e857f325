package parser

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"reservation_ingest/internal/domain"
)

// Yeogi parses Yeogi-eottae partner-center emails (HTML, with a plain-text fallback).
type Yeogi struct{ dl domain.Downloader }

var yeogiRequired = Requirements{
	Common: []string{
		"partnerName", "reservationNumber", "paymentDate", "checkInDate", "checkOutDate",
		"stayDuration", "customerName", "phoneNumber",
	},
	ByStatus: map[domain.Status][]string{
		domain.StatusConfirmed: {"roomName", "totalSellingPrice", "totalDepositAmount", "remainingRooms"},
		domain.StatusPending:   {"roomName"},
		domain.StatusCancelled: {"remainingRooms"},
		domain.StatusUnknown:   {"remainingRooms"},
	},
}

// Checked in order. A withdrawn hold ("예약대기 취소") counts as cancelled.
var yeogiStatus = []statusRule{
	{markers: []string{"예약 취소"}, status: domain.StatusCancelled},
	{markers: []string{"예약대기 확인"}, status: domain.StatusPending},
	{markers: []string{"예약대기 취소"}, status: domain.StatusCancelled},
	{markers: []string{"예약 확정"}, status: domain.StatusConfirmed},
}

var yeogiAllFields = []string{
	"partnerName", "reservationNumber", "paymentDate", "checkInDate", "checkOutDate", "stayDuration",
	"customerName", "phoneNumber", "roomName", "remainingRooms", "totalSellingPrice", "totalDepositAmount",
	"discount", "coupon", "point", "finalSalesPrice", "deliveryNote",
}

var (
	yeogiTitleNumber = regexp.MustCompile(`\d{14}YE1`)

	// column label -> field, for the booking details and payment tables
	yeogiDetailColumns = []struct{ label, field string }{
		{"체크인", "checkInDate"},
		{"체크아웃", "checkOutDate"},
		{"투숙기간", "stayDuration"},
		{"고객명", "customerName"},
		{"연락처", "phoneNumber"},
	}
	yeogiPaymentColumns = []struct{ label, field string }{
		{"총 판매가", "totalSellingPrice"},
		{"총 입금가", "totalDepositAmount"},
		{"할인", "discount"},
		{"쿠폰", "coupon"},
		{"포인트", "point"},
		{"최종 매출가", "finalSalesPrice"},
	}
)

func (y *Yeogi) Platform() domain.Platform { return domain.PlatformYeogi }

func (y *Yeogi) Extract(ctx context.Context, msg domain.RawMessage) (*domain.Record, error) {
	f, ok := msg.Attachment()
	if !ok {
		return nil, nil
	}
	if f.DownloadURL == "" || y.dl == nil {
		return y.fromText(f), nil
	}
	body, err := y.dl.DownloadAttachment(ctx, f)
	if err != nil {
		return y.fromText(f), nil
	}
	rec, err := y.fromHTML(body, f.Title)
	if err != nil {
		return y.fromText(f), nil
	}
	return rec, nil
}

func (y *Yeogi) newRecord(title string) *domain.Record {
	rec := domain.NewRecord(domain.PlatformYeogi, title)
	rec.Status = statusFrom(yeogiStatus, title)
	for _, f := range yeogiAllFields {
		rec.Set(f, "")
	}
	rec.Set("reservationNumber", yeogiTitleNumber.FindString(title))
	return rec
}

func (y *Yeogi) fromHTML(body []byte, title string) (*domain.Record, error) {
	d, err := parseHTML(body)
	if err != nil {
		return nil, err
	}
	rec := y.newRecord(title)

	for _, t := range d.leafTables() {
		content := text(t)
		if containsAny(content, "제휴점명", "예약번호", "결제일") {
			yeogiPartner(t, rec)
		}
		if strings.Contains(content, "체크인") && strings.Contains(content, "체크아웃") {
			yeogiColumns(t, rec, yeogiDetailColumns)
		}
		if strings.Contains(content, "객실명") {
			yeogiRoom(t, rec)
		}
		if strings.Contains(content, "총 판매가") && strings.Contains(content, "최종 매출가") {
			yeogiColumns(t, rec, yeogiPaymentColumns)
		}
	}

	if !rec.Has("roomName") {
		for _, li := range d.all(atom.Li) {
			if v := after(text(li), "객실명:"); v != "" {
				rec.Set("roomName", v)
			}
		}
	}
	rec.Set("deliveryNote", yeogiDeliveryNote(d))
	return rec, nil
}

// yeogiPartner reads "label : value" rows. A reservation number taken from the
// title is kept.
func yeogiPartner(t *html.Node, rec *domain.Record) {
	for _, tr := range rows(t) {
		line := text(tr)
		switch {
		case strings.Contains(line, "제휴점명"):
			rec.Set("partnerName", labelRest(line, "제휴점명"))
		case strings.Contains(line, "예약번호"):
			rec.SetIfEmpty("reservationNumber", labelRest(line, "예약번호"))
		case strings.Contains(line, "결제일"):
			rec.Set("paymentDate", labelRest(line, "결제일"))
		}
	}
}

// labelRest returns what follows label on the line, minus the ":" separator.
func labelRest(line, label string) string {
	_, v, ok := strings.Cut(line, label)
	if !ok {
		return ""
	}
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(v), ":"))
}

// yeogiColumns reads a header row of labels and the value row beneath it.
// Without a recognizable header the second row is read positionally.
func yeogiColumns(t *html.Node, rec *domain.Record, cols []struct{ label, field string }) {
	labels := make([]string, len(cols))
	for i, c := range cols {
		labels[i] = c.label
	}
	trs := rows(t)
	if hdr, idx, ok := headerColumns(t, labels...); ok && hdr+1 < len(trs) {
		for _, c := range cols {
			rec.Set(c.field, cellText(trs[hdr+1], idx[c.label]))
		}
		return
	}
	if len(trs) >= 2 {
		for i, c := range cols {
			rec.Set(c.field, cellText(trs[1], i))
		}
	}
}

// yeogiRoom splits "객실명 | <room> 잔여 객실 <n>".
func yeogiRoom(t *html.Node, rec *domain.Record) {
	trs := rows(t)
	if len(trs) == 0 {
		return
	}
	room, left, _ := strings.Cut(cellText(trs[0], 1), "잔여 객실")
	rec.Set("roomName", room)
	rec.Set("remainingRooms", left)
}

func yeogiDeliveryNote(d *doc) string {
	for _, td := range d.all(atom.Td) {
		if !strings.Contains(text(td), "전달사항") || len(descendants(td, atom.Td)) > 0 {
			continue
		}
		next := nextCell(td)
		if next == nil {
			return ""
		}
		var notes []string
		for _, li := range descendants(next, atom.Li) {
			if v := text(li); v != "" {
				notes = append(notes, v)
			}
		}
		return strings.Join(notes, " ")
	}
	return ""
}

// yeogiTextLabels are read from the line after the label in the text export.
var yeogiTextLabels = []struct{ label, field string }{
	{"체크인", "checkInDate"},
	{"체크아웃", "checkOutDate"},
	{"투숙기간", "stayDuration"},
	{"고객명", "customerName"},
	{"연락처", "phoneNumber"},
	{"객실명", "roomName"},
}

func (y *Yeogi) fromText(f domain.File) *domain.Record {
	rec := y.newRecord(f.Title)
	lines := strings.Split(f.PlainText, "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		next := ""
		if i+1 < len(lines) {
			next = lines[i+1]
		}
		switch {
		case strings.HasPrefix(line, "제휴점명 :"):
			rec.Set("partnerName", labelRest(line, "제휴점명"))
			continue
		case strings.HasPrefix(line, "예약번호 :"):
			rec.Set("reservationNumber", labelRest(line, "예약번호"))
			continue
		case strings.HasPrefix(line, "결제일 :"):
			rec.Set("paymentDate", labelRest(line, "결제일"))
			continue
		}
		matched := false
		for _, l := range yeogiTextLabels {
			if strings.HasPrefix(line, l.label) {
				rec.Set(l.field, next)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		for _, c := range yeogiPaymentColumns {
			if _, v, ok := strings.Cut(line, c.label); ok {
				rec.Set(c.field, v)
				break
			}
		}
	}

	if start := strings.Index(f.PlainText, "전달사항"); start >= 0 {
		rest := f.PlainText[start+len("전달사항"):]
		if end := strings.Index(rest, "파트너센터 URL:"); end >= 0 {
			rec.Set("deliveryNote", rest[:end])
		}
	}
	rec.Extras["emailTitle"] = f.Title
	rec.Extras["attachmentName"] = f.Name
	return rec
}

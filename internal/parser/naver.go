package parser

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"reservation_ingest/internal/domain"
)

// Naver parses the booking notice emails Naver sends as HTML attachments.
type Naver struct{ dl domain.Downloader }

var naverRequired = Requirements{
	Common: []string{"reservationNumber", "guestName", "roomName", "checkInDate", "checkOutDate", "paymentAmount"},
}

var naverStatus = []statusRule{
	{markers: []string{"예약을 취소"}, status: domain.StatusCancelled},
	{markers: []string{"새로운 예약이 접수"}, status: domain.StatusPending},
	{markers: []string{"새로운 예약이 확정", "입금이 완료되어 예약이 확정"}, status: domain.StatusConfirmed},
}

var (
	naverStay  = regexp.MustCompile(`(\d{4}\.\d{2}\.\d{2})\.\(.+?\)~(\d{4}\.\d{2}\.\d{2})\.\(.+?\)`)
	naverPrice = regexp.MustCompile(`(\d{1,3}(,\d{3})*원)`)
)

// naverLabels maps a label cell to the record fields filled from its neighbour.
var naverLabels = []struct {
	label string
	apply func(rec *domain.Record, v string)
}{
	{"예약자명", func(rec *domain.Record, v string) { rec.Set("guestName", strings.Replace(v, "님", "", 1)) }},
	{"예약번호", func(rec *domain.Record, v string) {
		if f := strings.Fields(v); len(f) > 0 {
			rec.Set("reservationNumber", f[0])
		}
	}},
	{"예약상품", func(rec *domain.Record, v string) { rec.Set("roomName", v) }},
	{"이용일시", func(rec *domain.Record, v string) {
		if m := naverStay.FindStringSubmatch(strings.ReplaceAll(v, " ", "")); m != nil {
			rec.Set("checkInDate", m[1])
			rec.Set("checkOutDate", m[2])
		}
	}},
	{"결제금액", func(rec *domain.Record, v string) {
		if m := naverPrice.FindStringSubmatch(v); m != nil {
			rec.Set("paymentAmount", m[1])
		}
	}},
	{"요청사항", func(rec *domain.Record, v string) { rec.Set("requestMessage", v) }},
	{"연락처", func(rec *domain.Record, v string) { rec.Set("phoneNumber", v) }},
}

var naverAllFields = []string{
	"reservationNumber", "guestName", "phoneNumber", "roomName",
	"checkInDate", "checkOutDate", "paymentAmount", "requestMessage",
}

func (n *Naver) Platform() domain.Platform { return domain.PlatformNaver }

func (n *Naver) Extract(ctx context.Context, msg domain.RawMessage) (*domain.Record, error) {
	f, ok := msg.Attachment()
	if !ok {
		return nil, nil
	}
	if f.DownloadURL == "" || n.dl == nil {
		if f.PlainText == "" {
			return nil, nil
		}
		return n.fromText(f), nil
	}

	body, err := n.dl.DownloadAttachment(ctx, f)
	if err == nil {
		var rec *domain.Record
		if rec, err = n.fromHTML(body, f.Title); err == nil {
			return rec, nil
		}
	}
	if f.PlainText != "" {
		return n.fromText(f), nil
	}
	return nil, fmt.Errorf("naver attachment %s: %w", f.ID, err)
}

func (n *Naver) newRecord(title string) *domain.Record {
	rec := domain.NewRecord(domain.PlatformNaver, title)
	rec.Status = statusFrom(naverStatus, title)
	for _, f := range naverAllFields {
		rec.Set(f, "")
	}
	return rec
}

func (n *Naver) fromHTML(body []byte, title string) (*domain.Record, error) {
	d, err := parseHTML(body)
	if err != nil {
		return nil, err
	}
	rec := n.newRecord(title)
	values := d.labelValues(isNaverLabel)
	for _, l := range naverLabels {
		if v, ok := values[l.label]; ok {
			l.apply(rec, v)
		}
	}
	return rec, nil
}

// isNaverLabel matches the grey label column of the notice template.
func isNaverLabel(td *html.Node) bool {
	style := strings.ToLower(strings.ReplaceAll(attr(td, "style"), " ", ""))
	return strings.Contains(style, "color:#696969")
}

// fromText reads the same labels from the plain-text export: the value is the
// rest of the label's line, or the next non-empty line.
func (n *Naver) fromText(f domain.File) *domain.Record {
	rec := n.newRecord(f.Title)
	lines := strings.Split(f.PlainText, "\n")
	for _, l := range naverLabels {
		if v, ok := lineValue(lines, l.label); ok {
			l.apply(rec, v)
		}
	}
	return rec
}

func lineValue(lines []string, label string) (string, bool) {
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if !strings.HasPrefix(t, label) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimLeft(strings.TrimPrefix(t, label), " :"))
		if rest != "" {
			return rest, true
		}
		for _, next := range lines[i+1:] {
			if v := strings.TrimSpace(next); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

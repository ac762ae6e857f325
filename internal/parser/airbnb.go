package parser

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"reservation_ingest/internal/domain"
)

// Airbnb parses the plain-text export of Airbnb host emails.
type Airbnb struct{ now func() time.Time }

var airbnbRequired = Requirements{
	Common: []string{
		"accommodationName", "reservationNumber", "guestName", "reservationDetailUrl", "message",
		"guestCount", "totalAmount", "hostEarnings", "serviceFee",
	},
	ByStatus: map[domain.Status][]string{
		domain.StatusConfirmed: {"checkInDate", "checkOutDate", "checkInTime", "checkOutTime"},
		domain.StatusPending:   {"checkInDate", "checkOutDate", "checkInTime", "checkOutTime"},
	},
}

var airbnbDefaults = []Default{
	{Field: "checkInTime", Value: "오후 4:00", Statuses: []domain.Status{domain.StatusConfirmed, domain.StatusPending, domain.StatusUnknown}},
	{Field: "checkOutTime", Value: "오전 11:00", Statuses: []domain.Status{domain.StatusConfirmed, domain.StatusPending, domain.StatusUnknown}},
}

var airbnbStatus = []statusRule{
	{markers: []string{"취소됨", "취소되었습니다"}, status: domain.StatusCancelled},
	{markers: []string{"대기 중", "예약 요청"}, status: domain.StatusPending},
	{markers: []string{"예약 확정", "체크인할 예정입니다"}, status: domain.StatusConfirmed},
}

var airbnbAllFields = []string{
	"accommodationName", "checkInDate", "checkOutDate", "reservationNumber", "guestName",
	"reservationDetailUrl", "message", "guestCount", "totalAmount", "hostEarnings", "serviceFee",
	"checkInTime", "checkOutTime",
}

// previewWidth bounds the stored message excerpt in display cells.
const previewWidth = 400

var (
	airbnbGuest = Chain{
		Capture(`게스트\s+(.+)\s+님이.*예약.*취소했습니다`, 1),
		Capture(`(.+)님에게\s+메시지를\s+보내\s+체크인`, 1),
		Capture(`(.+)님의\s+예약\s+요청에\s+답하세요`, 1),
		Capture(`(.+)\s+님이.*체크인할\s+예정입니다`, 1),
	}
	airbnbNumber = Chain{
		Capture(`예약\s+번호\s*\r?\n\s*(\w+)`, 1),
		Capture(`예약\s*번호[:\s]+(\w+)`, 1),
		Capture(`reservations/details/(\w+)`, 1),
	}
	airbnbURL        = Chain{Capture(`https://www\.airbnb\.co\.kr/hosting/reservations/details/\w+`)}
	airbnbGuestCount = Chain{Capture(`성인\s+(\d+)명`, 1)}
	airbnbPayment    = []struct {
		field string
		chain Chain
	}{
		{"totalAmount", Chain{Capture(`총\s+금액\(KRW\)\s+₩([\d,]+)`, 1)}},
		{"hostEarnings", Chain{Capture(`호스트\s+수익\s+₩([\d,]+)`, 1)}},
		{"serviceFee", Chain{Capture(`호스트\s+서비스\s+수수료\([^)]+\)\s+-₩([\d,]+)`, 1)}},
	}

	cancelledNumber     = Chain{Capture(`예약\(([A-Z0-9]+)\)`, 1)}
	cancelledGuest      = Chain{Capture(`게스트\s+(\S+)\s+님이`, 1)}
	cancelledGuestCount = Chain{Capture(`숙박\s+인원\s+(\d+)\s*명`, 1)}
	cancelledEarnings   = Chain{Capture(`변경\s+후\s+금액:\s*₩([\d,]+)`, 1)}
	cancelledURL        = Chain{Capture(`https://www\.airbnb\.co\.kr/hosting/reservations/\S+`)}

	titleBrandNumber = regexp.MustCompile(`(?i)카이브(?:No\.|\s)?\.?\s*(\d+)`)
	numberedLine     = regexp.MustCompile(`(?i)(?:No\.|#)(\d+)`)
)

func (a *Airbnb) Platform() domain.Platform { return domain.PlatformAirbnb }

func (a *Airbnb) Extract(_ context.Context, msg domain.RawMessage) (*domain.Record, error) {
	f, ok := msg.Attachment()
	if !ok {
		return nil, nil
	}
	body := f.PlainText
	if body == "" {
		body = msg.Text
	}

	rec := domain.NewRecord(domain.PlatformAirbnb, f.Title)
	rec.Status = statusFrom(airbnbStatus, f.Title)
	for _, name := range airbnbAllFields {
		rec.Set(name, "")
	}
	rec.Set("message", runewidth.Truncate(body, previewWidth, "..."))

	if acc := accommodation(body, f.Title); acc != nil {
		rec.Set("accommodationName", acc.Name)
		rec.Extras["accommodation"] = acc
	}

	if rec.Status == domain.StatusCancelled {
		a.cancelled(body, rec)
	} else {
		a.regular(body, f.Title, rec)
	}
	return rec, nil
}

func (a *Airbnb) year() string {
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	return strconv.Itoa(now().Year()) + "년"
}

func (a *Airbnb) regular(body, title string, rec *domain.Record) {
	rec.Set("guestName", airbnbGuest.String(body))
	if in, out, ok := a.stay(body, title); ok {
		rec.Set("checkInDate", in)
		rec.Set("checkOutDate", out)
	}
	rec.Set("reservationNumber", airbnbNumber.String(body))
	rec.Set("reservationDetailUrl", airbnbURL.String(body))
	rec.Set("guestCount", airbnbGuestCount.String(body))
	for _, p := range airbnbPayment {
		if v := p.chain.String(body); v != "" {
			rec.Set(p.field, v)
		}
	}
}

// stay resolves check-in/out: two full dates, then a month/day range, then the title.
func (a *Airbnb) stay(body, title string) (string, string, bool) {
	year := a.year()
	chain := Chain{
		CaptureN(`\d{4}년\s+\d+월\s+\d+일\s+\([월화수목금토일]\)`, 2),
		Build(`(\d+월\s+\d+일)\s*\([월화수목금토일]\)\s*(?:~|   )\s*(\d+월\s+\d+일)`, func(m []string) []string {
			return []string{year + " " + strings.TrimSpace(m[1]), year + " " + strings.TrimSpace(m[2])}
		}),
	}
	if v, ok := chain.First(body); ok {
		return v[0], v[1], true
	}
	titleRange := Build(`(\d{4}년)?\s*(\d+월\s+\d+일)~(\d+일)`, func(m []string) []string {
		y := m[1]
		if y == "" {
			y = year
		}
		month, _, _ := strings.Cut(m[2], "월")
		return []string{y + " " + m[2], y + " " + month + "월 " + m[3]}
	})
	if v, ok := titleRange(title); ok {
		return v[0], v[1], true
	}
	return "", "", false
}

func (a *Airbnb) cancelled(body string, rec *domain.Record) {
	rec.Set("reservationNumber", cancelledNumber.String(body))
	rec.Set("guestName", cancelledGuest.String(body))
	rec.Set("guestCount", cancelledGuestCount.String(body))
	rec.Set("hostEarnings", cancelledEarnings.String(body))
	rec.Set("reservationDetailUrl", cancelledURL.String(body))

	year := a.year()
	dates := Chain{
		Build(`(\d{4}년)?\s*(\d+월\s+\d+일)(?:~|\s+)?(\d+월\s+\d+일|\d+일)`, func(m []string) []string {
			y := m[1]
			if y == "" {
				y = year
			}
			out := m[3]
			if !strings.Contains(out, "월") {
				month, _, _ := strings.Cut(m[2], "월")
				out = month + "월 " + out
			}
			return []string{y + " " + m[2], y + " " + out}
		}),
		CaptureN(`\d{4}년\s+\d+월\s+\d+일`, 2),
	}
	if v, ok := dates.First(body); ok {
		rec.Set("checkInDate", v[0])
		rec.Set("checkOutDate", v[1])
	}
}

// Accommodation is the listing an Airbnb notice refers to.
type Accommodation struct {
	Name     string         `json:"name"`
	Number   string         `json:"number"`
	Location string         `json:"location"`
	Features map[string]any `json:"features,omitempty"`
}

var accommodationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[한정세일\]\s+카이브(?:No\.|\s)?\.?\s*(\d+)\s+([^|\n]+)`),
	regexp.MustCompile(`(?i)카이브(?:No\.|\s)?\.?\s*(\d+)\s+([^|\n]+)`),
	regexp.MustCompile(`(?i)카이브\s*(\d+)(?:번)?\s+([^|\n]+)`),
	regexp.MustCompile(`(?i)(?:No\.|#)(\d+)\s+([^|\n]+)`),
}

// accommodation tries the listing patterns over the whole body, then line by
// line, then the title.
func accommodation(body, title string) *Accommodation {
	if acc := matchAccommodation(body, false); acc != nil {
		return acc
	}
	for _, line := range strings.Split(body, "\n") {
		if containsAny(line, "[한정세일]", "카이브") && containsAny(line, "오션뷰", "독채", "평") {
			if acc := matchAccommodation(line, true); acc != nil {
				return acc
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			return &Accommodation{Name: strings.TrimSpace(line), Number: m[1], Features: features(line)}
		}
	}
	if m := titleBrandNumber.FindStringSubmatch(title); m != nil {
		return &Accommodation{Name: title, Number: m[1], Features: features(title)}
	}
	return nil
}

func matchAccommodation(text string, single bool) *Accommodation {
	for _, re := range accommodationPatterns {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		name := strings.TrimSpace(text[loc[0]:loc[1]])
		if !single {
			name = widenName(text, loc[0])
		}
		acc := &Accommodation{
			Name:     name,
			Number:   text[loc[2]:loc[3]],
			Location: strings.TrimSpace(text[loc[4]:loc[5]]),
			Features: features(name),
		}
		for k, v := range features(text) {
			if _, ok := acc.Features[k]; !ok {
				acc.Features[k] = v
			}
		}
		return acc
	}
	return nil
}

// widenName extends a listing name through its " | "-separated descriptors,
// up to four separators, stopping at a line break, '.' or '"'.
func widenName(text string, start int) string {
	rest := text[start:]
	pipe := strings.IndexByte(rest, '|')
	nl := strings.IndexByte(rest, '\n')
	if pipe < 0 || (nl >= 0 && nl < pipe) {
		if nl >= 0 {
			rest = rest[:nl]
		}
		return strings.TrimSpace(rest)
	}
	end := pipe
	pipes := 0
	for end < len(rest) && pipes < 4 {
		if rest[end] == '|' {
			pipes++
		}
		end++
		if end < len(rest) && strings.IndexByte("\n.\"", rest[end]) >= 0 {
			break
		}
	}
	return strings.TrimRight(strings.TrimSpace(rest[:end]), " |")
}

var (
	featOceanView = regexp.MustCompile(`(?i)오션뷰|오션 뷰|ocean\s*view`)
	featPrivate   = regexp.MustCompile(`(?i)독채|단독|whole|entire`)
	featBBQ       = regexp.MustCompile(`(?i)개별\s*바베큐|bbq|바비큐`)
	featLargest   = regexp.MustCompile(`(?i)최대\s*규모|largest|big`)
	featSize      = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*평(?:대|형)?`),
		regexp.MustCompile(`(?i)(\d+)\s*pyeong`),
		regexp.MustCompile(`(\d+)\s*㎡`),
	}
	featCapacityRange = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)~(\d+)인`),
		regexp.MustCompile(`(?i)(\d+)~(\d+)\s*persons`),
		regexp.MustCompile(`(?i)(\d+)\s*~\s*(\d+)\s*guests`),
	}
	featCapacityMax = regexp.MustCompile(`최대\s*(\d+)인`)
)

// features reads listing attributes (view, size, capacity, BBQ) from a name.
func features(s string) map[string]any {
	out := map[string]any{}
	if featOceanView.MatchString(s) {
		out["oceanView"] = true
	}
	if featPrivate.MatchString(s) {
		out["privateHouse"] = true
	}
	for _, re := range featSize {
		if m := re.FindStringSubmatch(s); m != nil {
			n, _ := strconv.Atoi(m[1])
			out["size"] = n
			out["sizeText"] = m[0]
			break
		}
	}
	capacity := false
	for _, re := range featCapacityRange {
		if m := re.FindStringSubmatch(s); m != nil {
			lo, _ := strconv.Atoi(m[1])
			hi, _ := strconv.Atoi(m[2])
			out["minCapacity"], out["maxCapacity"] = lo, hi
			out["capacityText"] = m[1] + "~" + m[2] + "인"
			capacity = true
			break
		}
	}
	if !capacity {
		if m := featCapacityMax.FindStringSubmatch(s); m != nil {
			hi, _ := strconv.Atoi(m[1])
			out["maxCapacity"] = hi
			out["capacityText"] = "최대 " + m[1] + "인"
		}
	}
	if featBBQ.MatchString(s) {
		out["privateBBQ"] = true
	}
	if featLargest.MatchString(s) {
		out["largestSize"] = true
	}
	return out
}

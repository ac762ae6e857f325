package standardize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"reservation_ingest/internal/domain"
)

var nonNumeric = regexp.MustCompile(`[^0-9.-]+`)

// ExtractNumber strips currency symbols and separators and parses what is left.
// Blank or unparsable input yields nil, so a real zero stays distinguishable.
func ExtractNumber(s string) *float64 {
	s = nonNumeric.ReplaceAllString(s, "")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

var leadingInt = regexp.MustCompile(`^\s*[-+]?\d+`)

// guestCount reads the leading integer ("4명" -> 4); zero or no number is nil.
func guestCount(s string) *int {
	m := leadingInt.FindString(s)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil || n == 0 {
		return nil
	}
	return &n
}

// dateRule turns one native date layout into YYYY-MM-DD.
type dateRule struct {
	re *regexp.Regexp
	// fn receives the submatches and the current year
	fn func(m []string, year int) string
}

func ymd(m []string, _ int) string {
	return m[1] + "-" + pad2(m[2]) + "-" + pad2(m[3])
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// dateRules are tried in order per platform.
var dateRules = map[domain.Platform][]dateRule{
	domain.PlatformAirbnb: {
		{regexp.MustCompile(`(\d{4})년\s+(\d+)월\s+(\d+)일`), ymd},
		{regexp.MustCompile(`(\d+)월\s+(\d+)일\s*\([월화수목금토일]\)`), func(m []string, year int) string {
			return strconv.Itoa(year) + "-" + pad2(m[1]) + "-" + pad2(m[2])
		}},
	},
	domain.PlatformYanolja: {{regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})\(.\)`), ymd}},
	domain.PlatformNaver:   {{regexp.MustCompile(`(\d{4})\.(\d{2})\.(\d{2})`), ymd}},
	domain.PlatformYeogi:   {{regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2}) \(.\)`), ymd}},
}

// rawDates lists the platform/status pairs whose date strings are kept as-is.
var rawDates = map[domain.Platform]domain.Status{
	domain.PlatformAirbnb: domain.StatusCancelled,
}

// FormatDate normalizes a platform date string to YYYY-MM-DD. year fills in
// layouts that omit it. Unmatched input is nil.
func FormatDate(p domain.Platform, raw string, st domain.Status, year int) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if s, ok := rawDates[p]; ok && s == st {
		return &raw
	}
	for _, r := range dateRules[p] {
		if m := r.re.FindStringSubmatch(raw); m != nil {
			out := r.fn(m, year)
			return &out
		}
	}
	return nil
}

var (
	brandCasing = regexp.MustCompile(`(?i)([li]{1,2})카이브([li]{1,2})`)
	yanoljaRoom = regexp.MustCompile(`^(.+?)(?:\s*\(.*(?:입실\s*\d+시)?.*(?:\d+평형)?\))?$`)
)

// FormatRoomName derives the display room name. Airbnb has no room field, so
// the listing name is used with the brand's L/LL spelling and 평대 unit applied.
func FormatRoomName(p domain.Platform, room, accommodation string) string {
	switch p {
	case domain.PlatformAirbnb:
		if accommodation == "" {
			return ""
		}
		out := accommodation
		if loc := brandCasing.FindStringSubmatchIndex(out); loc != nil {
			out = out[:loc[0]] + ells(loc[3]-loc[2]) + "카이브" + ells(loc[5]-loc[4]) + out[loc[1]:]
		}
		return strings.Replace(out, "평형", "평대", 1)
	case domain.PlatformYanolja:
		if m := yanoljaRoom.FindStringSubmatch(room); m != nil {
			return strings.TrimSpace(m[1])
		}
		return ""
	default:
		return room
	}
}

func ells(n int) string {
	if n > 1 {
		return "LL"
	}
	return "L"
}

// FormatGuestName drops the subject prefix Airbnb puts in front of the guest.
func FormatGuestName(p domain.Platform, guest string) string {
	if p == domain.PlatformAirbnb {
		return strings.Replace(guest, "예약 확정 - ", "", 1)
	}
	return guest
}

const koreaLayout = "2006-01-02 15:04:05"

var kst = loadKST()

func loadKST() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// KoreaTime renders a chat timestamp in Seoul time, independent of the host zone.
func KoreaTime(ts string) string {
	t, ok := domain.TSTime(ts)
	if !ok {
		return ""
	}
	return t.In(kst).Format(koreaLayout)
}

var receivedLayouts = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})(?:[ T](\d{1,2}):(\d{2}))?`),
	regexp.MustCompile(`(\d{4})\.\s*(\d{1,2})\.\s*(\d{1,2})\.?(?:\s+(\d{1,2}):(\d{2}))?`),
	regexp.MustCompile(`(\d{4})년\s*(\d{1,2})월\s*(\d{1,2})일(?:\s+(\d{1,2}):(\d{2}))?`),
}

// parseReceived reads the SMS relay's reception time (ISO, dotted or Korean
// date, optional HH:MM) as Seoul time.
func parseReceived(s string) *time.Time {
	for _, re := range receivedLayouts {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		n := make([]int, 6)
		for i := 1; i <= 5; i++ {
			n[i], _ = strconv.Atoi(m[i])
		}
		t := time.Date(n[1], time.Month(n[2]), n[3], n[4], n[5], 0, 0, kst)
		return &t
	}
	return nil
}

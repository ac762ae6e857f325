package parser

import (
	"context"
	"strings"

	"reservation_ingest/internal/domain"
)

// Yanolja parses the SMS-relay text the yanolja channel receives.
type Yanolja struct{}

var yanoljaRequired = Requirements{
	Common: []string{
		"수신날짜", "발신번호", "발신자", "수신번호", "수신자",
		"펜션명", "예약번호", "예약자", "객실명", "입실일", "퇴실일", "이용기간", "판매가격",
	},
	ByStatus: map[domain.Status][]string{
		domain.StatusConfirmed: {"픽업여부", "연락처"},
		domain.StatusUnknown:   {"연락처"},
	},
}

var yanoljaStatus = []statusRule{
	{markers: []string{"예약완료"}, status: domain.StatusConfirmed},
	{markers: []string{"예약취소"}, status: domain.StatusCancelled},
}

// yanoljaFields is checked in order per line; the first prefix found owns the line.
var yanoljaFields = []struct{ prefix, field string }{
	{"야놀자펜션 예약번호 :", "예약번호"},
	{"펜션명 :", "펜션명"},
	{"예약자 :", "예약자"},
	{"연락처 :", "연락처"},
	{"객실명 :", "객실명"},
	{"입실일 :", "입실일"},
	{"퇴실일 :", "퇴실일"},
	{"이용기간:", "이용기간"},
	{"판매가격:", "판매가격"},
	{"픽업여부:", "픽업여부"},
}

var yanoljaAllFields = []string{
	"수신날짜", "발신번호", "발신자", "수신번호", "수신자",
	"펜션명", "예약번호", "예약자", "연락처", "객실명", "입실일", "퇴실일", "이용기간", "판매가격", "픽업여부",
}

const yanoljaStatusMarker = "[야놀자펜션 - "

func (y *Yanolja) Platform() domain.Platform { return domain.PlatformYanolja }

func (y *Yanolja) Extract(_ context.Context, msg domain.RawMessage) (*domain.Record, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return nil, nil
	}
	lines := strings.Split(msg.Text, "\n")
	rec := domain.NewRecord(domain.PlatformYanolja, "")
	for _, f := range yanoljaAllFields {
		rec.Set(f, "")
	}

	for _, line := range lines {
		switch {
		case strings.Contains(line, "[수신날짜]"):
			rec.Set("수신날짜", after(line, "]"))
		case strings.Contains(line, "[발신번호]"):
			// [발신번호] 1644-1234 (야놀자)
			num, name, _ := strings.Cut(after(line, "]"), "(")
			rec.Set("발신번호", num)
			rec.Set("발신자", strings.TrimSuffix(strings.TrimSpace(name), ")"))
		case strings.Contains(line, "[수신번호]"):
			// [수신번호] 010-1234-5678 [사장님]
			num, name, _ := strings.Cut(after(line, "]"), "[")
			rec.Set("수신번호", num)
			rec.Set("수신자", strings.TrimSuffix(strings.TrimSpace(name), "]"))
		}

		if strings.Contains(line, yanoljaStatusMarker) {
			rec.Title = strings.TrimSpace(line)
			rec.Status = statusFrom(yanoljaStatus, line)
		}

		for _, f := range yanoljaFields {
			if _, v, ok := strings.Cut(line, f.prefix); ok {
				rec.Set(f.field, v)
				break
			}
		}
	}
	return rec, nil
}

// after returns the trimmed text following the first sep, or "" when sep is absent.
func after(s, sep string) string {
	if _, v, ok := strings.Cut(s, sep); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

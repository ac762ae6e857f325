package parser_test

import (
	"context"
	"testing"

	"reservation_ingest/internal/domain"
	"reservation_ingest/internal/parser"
)

const yeogiHTML = `<html><body><table><tr><td>
<table>
  <tr><td>제휴점명 : 카이브 펜션</td></tr>
  <tr><td>예약번호 : 20250601123456YE1</td></tr>
  <tr><td>결제일 : 2025-06-01 12:34</td></tr>
</table>
<table>
  <tr><th>체크인</th><th>체크아웃</th><th>투숙기간</th><th>고객명</th><th>연락처</th></tr>
  <tr><td>2025-06-10 (화)<br>15:00</td><td>2025-06-12 (목)<br>11:00</td><td>2박</td><td>김철수</td><td>050-1111-2222</td></tr>
</table>
<table><tr><td>객실명</td><td>A동 오션 스위트 잔여 객실 2</td></tr></table>
<table>
  <tr><th>총 판매가</th><th>총 입금가</th><th>할인</th><th>쿠폰</th><th>포인트</th><th>최종 매출가</th></tr>
  <tr><td>300,000원</td><td>270,000원</td><td>0원</td><td>10,000원</td><td>0원</td><td>290,000원</td></tr>
</table>
<table><tr><td>전달사항</td><td><ul><li>늦은 체크인</li><li>유아 1명</li></ul></td></tr></table>
</td></tr></table></body></html>`

const yeogiPlain = `제휴점명 : 카이브 펜션
예약번호 : 20250601123456YE1
결제일 : 2025-06-01 12:34
체크인
2025-06-10 (화) 15:00
체크아웃
2025-06-12 (목) 11:00
투숙기간
2박
고객명
김철수
연락처
050-1111-2222
객실명
A동 오션 스위트
총 판매가 300,000원
최종 매출가 290,000원
전달사항
늦은 체크인
파트너센터 URL: https://partner.example`

const yeogiTitle = "[여기어때] 예약 확정 안내 20250601123456YE1"

func yeogiMessage(title, plain, url string) domain.RawMessage {
	return domain.RawMessage{TS: "1748700000.000300", Files: []domain.File{{
		ID: "F3", Name: "yeogi.html", Title: title, PlainText: plain, DownloadURL: url,
	}}}
}

func TestYeogi_HTML(t *testing.T) {
	buf, log := bufLogger()
	dl := &fakeDownloader{body: []byte(yeogiHTML)}
	p, _ := parser.DefaultRegistry(dl, log, fixedNow).For(domain.PlatformYeogi)

	rec := p.Parse(context.Background(), yeogiMessage(yeogiTitle, "", "https://files.example/yeogi.html"))
	if rec == nil {
		t.Fatalf("expected record: %s", buf.String())
	}
	want := map[string]string{
		"partnerName":        "카이브 펜션",
		"reservationNumber":  "20250601123456YE1",
		"paymentDate":        "2025-06-01 12:34",
		"checkInDate":        "2025-06-10 (화) 15:00",
		"checkOutDate":       "2025-06-12 (목) 11:00",
		"stayDuration":       "2박",
		"customerName":       "김철수",
		"phoneNumber":        "050-1111-2222",
		"roomName":           "A동 오션 스위트",
		"remainingRooms":     "2",
		"totalSellingPrice":  "300,000원",
		"totalDepositAmount": "270,000원",
		"coupon":             "10,000원",
		"finalSalesPrice":    "290,000원",
		"deliveryNote":       "늦은 체크인 유아 1명",
	}
	for k, v := range want {
		if got := rec.Get(k); got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}
	if rec.Status != domain.StatusConfirmed {
		t.Fatalf("status: %s", rec.Status)
	}
	if !p.Validate(rec) {
		t.Fatalf("record should validate: %s", buf.String())
	}
}

func TestYeogi_TextFallback(t *testing.T) {
	_, log := bufLogger()
	p, _ := parser.DefaultRegistry(nil, log, fixedNow).For(domain.PlatformYeogi)

	rec := p.Parse(context.Background(), yeogiMessage(yeogiTitle, yeogiPlain, ""))
	if rec == nil {
		t.Fatalf("expected record")
	}
	want := map[string]string{
		"partnerName":       "카이브 펜션",
		"checkInDate":       "2025-06-10 (화) 15:00",
		"checkOutDate":      "2025-06-12 (목) 11:00",
		"customerName":      "김철수",
		"roomName":          "A동 오션 스위트",
		"totalSellingPrice": "300,000원",
		"finalSalesPrice":   "290,000원",
		"deliveryNote":      "늦은 체크인",
	}
	for k, v := range want {
		if got := rec.Get(k); got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}
	if rec.Extras["emailTitle"] != yeogiTitle || rec.Extras["attachmentName"] != "yeogi.html" {
		t.Fatalf("extras: %v", rec.Extras)
	}
}

func TestYeogi_Statuses(t *testing.T) {
	_, log := bufLogger()
	p, _ := parser.DefaultRegistry(nil, log, fixedNow).For(domain.PlatformYeogi)

	cases := map[string]domain.Status{
		"[여기어때] 예약 취소 안내":    domain.StatusCancelled,
		"[여기어때] 예약대기 확인 요청":  domain.StatusPending,
		"[여기어때] 예약대기 취소 안내":  domain.StatusCancelled,
		"[여기어때] 예약 확정 안내":    domain.StatusConfirmed,
		"[여기어때] 정산 안내":       domain.StatusUnknown,
	}
	for title, want := range cases {
		rec := p.Parse(context.Background(), yeogiMessage(title, yeogiPlain, ""))
		if rec == nil || rec.Status != want {
			t.Fatalf("%q: got %+v, want %s", title, rec, want)
		}
	}
}

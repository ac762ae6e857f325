package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"reservation_ingest/internal/app"
	"reservation_ingest/internal/domain"
)

func TestPollerTick_ChannelsAreIndependent(t *testing.T) {
	h := newHarness(t,
		&scripted{platform: domain.PlatformYanolja},
		&scripted{platform: domain.PlatformNaver},
	)
	naver := app.Channel{ID: "C_NV", Name: "네이버", Platform: domain.PlatformNaver}
	h.chat.history[yanolja.ID] = msgs(yanolja.ID, "1", "2")
	h.chat.history[naver.ID] = msgs(naver.ID, "7")
	h.chat.err[naver.ID] = errors.New("timeout")

	p := app.NewPoller(h.ic, []app.Channel{yanolja, naver}, 0, "")
	p.Tick(context.Background())

	if got := h.cursors.ts(yanolja.ID); got != "2" {
		t.Fatalf("yanolja cursor = %q", got)
	}
	if _, ok := h.cursors.m[naver.ID]; ok {
		t.Fatalf("failed channel must keep its cursor")
	}
	if !strings.Contains(h.buf.String(), `"run_id"`) {
		t.Fatalf("tick logs should carry a run id")
	}

	delete(h.chat.err, naver.ID)
	p.Tick(context.Background())
	if got := h.cursors.ts(naver.ID); got != "7" {
		t.Fatalf("naver cursor after retry = %q", got)
	}
}

func TestPollerTick_CancelledContext(t *testing.T) {
	h := newHarness(t, &scripted{platform: domain.PlatformYanolja})
	h.chat.history[yanolja.ID] = msgs(yanolja.ID, "1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	app.NewPoller(h.ic, []app.Channel{yanolja}, 1, "").Tick(ctx)

	if len(h.repo.numbers()) != 0 {
		t.Fatalf("cancelled tick should not persist")
	}
}

func TestPoller_LogStatus(t *testing.T) {
	h := newHarness(t, &scripted{platform: domain.PlatformYanolja})
	h.chat.history[yanolja.ID] = msgs(yanolja.ID, "1")
	p := app.NewPoller(h.ic, []app.Channel{yanolja}, 1, "*/5 * * * *")
	p.Tick(context.Background())
	h.buf.Reset()

	p.LogStatus(context.Background())
	out := h.buf.String()
	for _, want := range []string{`"message":"status report"`, `"saved":1`, `"message":"channel cursor"`, `"last_read_ts":"1"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("status log missing %s:\n%s", want, out)
		}
	}
}

func TestIngestionContextClose(t *testing.T) {
	h := newHarness(t)
	if err := h.ic.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !strings.Contains(h.buf.String(), "final report") {
		t.Fatalf("close should log the final report")
	}
	if err := h.ic.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

//go:build integration || !unit

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/rs/zerolog"

	httpserver "reservation_ingest/internal/adapters/http_server"
	"reservation_ingest/internal/adapters/slack"
	"reservation_ingest/internal/app"
	"reservation_ingest/internal/cursor"
	"reservation_ingest/internal/dedupe"
	"reservation_ingest/internal/domain"
	"reservation_ingest/internal/parser"
	"reservation_ingest/internal/standardize"
	mysqlrepo "reservation_ingest/internal/storage/mysql"
)

const smsText = `[수신날짜] 2025-06-10 14:22
[발신번호] 1644-1234 (야놀자)
[수신번호] 010-1111-2222 [카이브펜션]
[야놀자펜션 - 예약완료]
펜션명 : 카이브펜션
야놀자펜션 예약번호 : 25061012345
예약자 : 홍길동
연락처 : 050-1234-5678
객실명 : 오션뷰 101호 (입실 15시, 20평형)
입실일 : 2025-06-15(일)
퇴실일 : 2025-06-16(월)
이용기간: 1박
판매가격: 150,000원
픽업여부: 미사용`

// ---------- helpers ----------
func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/migrations/mysql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=ingest"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/ingest?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fakeSlack serves one page of history, newest first, honouring oldest.
func fakeSlack(t *testing.T) *httptest.Server {
	t.Helper()
	msgs := []map[string]any{
		{"ts": "1749533000.000200", "text": "", "subtype": "channel_join"},
		{"ts": "1749532920.000100", "text": smsText},
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		oldest := r.URL.Query().Get("oldest")
		var out []map[string]any
		for _, m := range msgs {
			if domain.CompareTS(m["ts"].(string), oldest) > 0 {
				out = append(out, m)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "has_more": false, "messages": out})
	}))
	t.Cleanup(ts.Close)
	return ts
}

// ---------- the test ----------
func TestHTTP_EndToEnd_IngestThenQuery(t *testing.T) {
	db := startMySQL(t)
	applyMigrations(t, db)

	ctx := context.Background()
	log := zerolog.Nop()
	repo := mysqlrepo.New(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	client, err := slack.New(fakeSlack(t).URL, "xoxb-test", 100)
	if err != nil {
		t.Fatalf("slack.New: %v", err)
	}
	cache := dedupe.NewMemory(dedupe.DefaultOptions(), log)
	now := func() time.Time { return time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC) }
	tracker := cursor.New(repo, nil, log)
	ic := &app.IngestionContext{
		Chat:         client,
		Store:        repo,
		Cursor:       tracker,
		Dedupe:       cache,
		Parsers:      parser.DefaultRegistry(client, log, now),
		Standardizer: standardize.New(now),
		Monitor:      app.NewMonitor(cache),
		Log:          log,
	}
	t.Cleanup(func() { _ = ic.Close(ctx) })

	ch := app.Channel{ID: "C_YA", Name: "야놀자", Platform: domain.PlatformYanolja}
	p := app.NewPoller(ic, []app.Channel{ch}, 1, "")
	p.Tick(ctx)
	p.Tick(ctx) // nothing new: must not duplicate

	srv := httpserver.New(log)
	srv.MountHandlers(&httpserver.Handlers{Q: app.NewQueryService(repo, tracker, ic.Monitor)})
	api := httptest.NewServer(srv.Mux())
	defer api.Close()

	res, err := http.Get(api.URL + "/v1/reservations?platform=yanolja")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	var page domain.ReservationsPage
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected one reservation, got %d", len(page.Items))
	}
	got := page.Items[0]
	if got.ReservationNumber != "25061012345" || got.Status != domain.StatusConfirmed {
		t.Fatalf("unexpected reservation: %+v", got)
	}
	if got.FinalCheckInDate == nil || *got.FinalCheckInDate != "2025-06-15" || got.TotalPrice == nil || *got.TotalPrice != 150000 {
		t.Fatalf("standardized fields: %+v", got)
	}
	if got.Sender == nil || *got.Sender != "야놀자" {
		t.Fatalf("sms metadata: %+v", got)
	}

	chs, err := http.Get(api.URL + "/v1/channels")
	if err != nil {
		t.Fatalf("GET channels: %v", err)
	}
	defer chs.Body.Close()
	var listing struct {
		Items []domain.CursorEntry `json:"items"`
	}
	if err := json.NewDecoder(chs.Body).Decode(&listing); err != nil {
		t.Fatalf("decode channels: %v", err)
	}
	if len(listing.Items) != 1 || listing.Items[0].LastReadTS != "1749533000.000200" {
		t.Fatalf("cursor should sit on the newest message: %+v", listing.Items)
	}
}

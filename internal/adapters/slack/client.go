// internal/adapters/slack/client.go
package slack

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"reservation_ingest/internal/adapters/observability"
	"reservation_ingest/internal/domain"
)

const (
	pageSize = 200
	// MaxAttachmentBytes caps a single file download.
	MaxAttachmentBytes = 10 << 20
	maxAPIBody         = 32 << 20
)

type Client struct {
	base  string
	hc    *http.Client
	token string
	rl    *rate.Limiter
}

func New(base, token string, rps int) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if rps <= 0 {
		rps = 1
	}
	if base == "" {
		base = "https://slack.com/api"
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		hc:    &http.Client{Timeout: 30 * time.Second},
		token: token,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API ----

type file struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Title              string `json:"title"`
	FileType           string `json:"filetype"`
	PlainText          string `json:"plain_text"`
	URLPrivateDownload string `json:"url_private_download"`
	URLPrivate         string `json:"url_private"`
	Created            int64  `json:"created"`
}

type message struct {
	TS    string `json:"ts"`
	User  string `json:"user"`
	Text  string `json:"text"`
	Files []file `json:"files"`
}

type historyResponse struct {
	OK       bool      `json:"ok"`
	Error    string    `json:"error"`
	Messages []message `json:"messages"`
	HasMore  bool      `json:"has_more"`
	Meta     struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// FetchHistory returns every message newer than oldest (all history when
// oldest is ""), newest first, following pagination to the end.
func (c *Client) FetchHistory(ctx context.Context, channelID, oldest string) ([]domain.RawMessage, error) {
	var out []domain.RawMessage
	cursor := ""
	for {
		q := url.Values{}
		q.Set("channel", channelID)
		q.Set("limit", strconv.Itoa(pageSize))
		if oldest != "" {
			q.Set("oldest", oldest)
		}
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		body, err := c.get(ctx, "conversations.history", c.base+"/conversations.history?"+q.Encode(), maxAPIBody)
		if err != nil {
			return nil, err
		}
		var page historyResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
		if !page.OK {
			return nil, fmt.Errorf("%w: %s", ErrAPI, page.Error)
		}
		for _, m := range page.Messages {
			out = append(out, toRaw(channelID, m))
		}
		cursor = page.Meta.NextCursor
		if !page.HasMore || cursor == "" {
			return out, nil
		}
	}
}

// DownloadAttachment fetches a file's private download URL with the bot token.
func (c *Client) DownloadAttachment(ctx context.Context, f domain.File) ([]byte, error) {
	if f.DownloadURL == "" {
		return nil, fmt.Errorf("file %s has no download url", f.ID)
	}
	return c.get(ctx, "files.download", f.DownloadURL, MaxAttachmentBytes)
}

func toRaw(channelID string, m message) domain.RawMessage {
	raw := domain.RawMessage{TS: m.TS, Channel: channelID, User: m.User, Text: m.Text}
	for _, f := range m.Files {
		dl := f.URLPrivateDownload
		if dl == "" {
			dl = f.URLPrivate
		}
		raw.Files = append(raw.Files, domain.File{
			ID: f.ID, Name: f.Name, Title: f.Title, FileType: f.FileType,
			PlainText: f.PlainText, DownloadURL: dl, Created: f.Created,
		})
	}
	return raw
}

// ---- Internals ----

var (
	ErrNotFound     = errors.New("slack: not found")
	ErrUnauthorized = errors.New("slack: unauthorized")
	ErrAPI          = errors.New("slack: api error")
	ErrTooLarge     = errors.New("slack: response too large")
)

// get performs a GET with client-side rate limiting, retries, and returns at
// most limit bytes of body. Retries on 429 and transient 5xx, honoring
// Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint, url string, limit int64) ([]byte, error) {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("User-Agent", "reservation-ingest/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("slack", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveExternal("slack", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
			resp.Body.Close()
			if err != nil {
				return nil, err
			}
			if int64(len(b)) > limit {
				return nil, fmt.Errorf("%w: %s over %d bytes", ErrTooLarge, endpoint, limit)
			}
			return b, nil

		case http.StatusNotFound:
			resp.Body.Close()
			return nil, ErrNotFound

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return nil, ErrUnauthorized

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return nil, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns 200ms, 400ms, 800ms... plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}

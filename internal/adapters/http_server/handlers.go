package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"reservation_ingest/internal/app"
	"reservation_ingest/internal/domain"
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/status", h.status)
	s.mux.Get("/v1/channels", h.listChannels)
	s.mux.Get("/v1/reservations", h.listReservations)
	s.mux.Get("/v1/reservations/{id}", h.getReservation)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

// writeJSON answers 304 when the client already holds this representation.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "response encoding failed")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func (h *Handlers) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.Q.Status(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("status failed")
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "cursor store unavailable")
		return
	}
	writeJSON(w, r, st)
}

func (h *Handlers) listChannels(w http.ResponseWriter, r *http.Request) {
	chs, err := h.Q.Channels(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list channels failed")
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "cursor store unavailable")
		return
	}
	writeJSON(w, r, map[string]any{"items": chs})
}

func (h *Handlers) listReservations(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := domain.ReservationsQuery{Limit: app.DefaultPageSize}

	if ls := qs.Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > app.MaxPageSize {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		q.Limit = l
	}
	if off := qs.Get("offset"); off != "" {
		o, err := strconv.Atoi(off)
		if err != nil || o < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid offset", "offset must be a non-negative integer")
			return
		}
		q.Offset = o
	}
	if ps := qs.Get("platform"); ps != "" {
		p, ok := domain.ParsePlatform(ps)
		if !ok {
			writeProblem(w, http.StatusBadRequest, "Invalid platform", "platform must be one of yanolja, naver, airbnb, yeogi")
			return
		}
		q.Platform = &p
	}
	if ss := qs.Get("status"); ss != "" {
		st, ok := domain.ParseStatus(ss)
		if !ok {
			writeProblem(w, http.StatusBadRequest, "Invalid status", "status must be one of confirmed, pending, cancelled, unknown")
			return
		}
		q.Status = &st
	}

	out, err := h.Q.ListReservations(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("list reservations failed")
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "reservation store unavailable")
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) getReservation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	res, err := h.Q.GetReservation(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "reservation not found")
		return
	case err != nil:
		log.Error().Err(err).Int64("id", id).Msg("get reservation failed")
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "reservation store unavailable")
		return
	}
	writeJSON(w, r, res)
}

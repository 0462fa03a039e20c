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

	"travel_market/internal/app"
	"travel_market/internal/domain"
)

type Handlers struct {
	Q         *app.QueryService
	Reviews   *app.ReviewService
	Targets   *app.TargetService
	Bookings  *app.BookingService
	Recompute *app.RecomputeService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	authn := s.auth.Authenticate

	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Route("/targets/{kind}", func(r chi.Router) {
			r.Get("/", h.listTargets)
			r.With(authn, RequireAdmin, s.limit).Post("/", h.createTarget)
			r.Get("/{id}", h.getTarget)
			r.Get("/{id}/reviews", h.listReviews)
			r.Get("/{id}/reviews/analytics", h.reviewAnalytics)
			r.With(authn, s.limit).Post("/{id}/reviews", h.submitReview)
		})
		r.With(authn, RequireAdmin).Post("/admin/targets/{kind}/{id}/recompute", h.recomputeTarget)

		r.Get("/reviews/{id}", h.getReview)
		r.With(authn, s.limit).Patch("/reviews/{id}", h.editReview)
		r.With(authn, s.limit).Delete("/reviews/{id}", h.deleteReview)

		r.Route("/bookings", func(r chi.Router) {
			r.Use(authn)
			r.With(s.limit).Post("/", h.createBooking)
			r.With(RequireAdmin).Get("/", h.listAllBookings)
			r.Get("/mine", h.listMyBookings)
			r.Get("/{id}", h.getBooking)
			r.With(s.limit).Patch("/{id}/status", h.setBookingStatus)
			r.With(s.limit).Patch("/{id}/payment-status", h.setPaymentStatus)
			r.With(s.limit).Delete("/{id}", h.deleteBooking)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain sentinels onto HTTP statuses. Anything else is an
// unexpected failure: logged, and answered without internal detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		log.Error().Err(err).Str("route", routeOf(r)).Str("method", r.Method).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
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
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable answers 304 when the client already holds this version.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
		return
	}
	w.Header().Set("ETag", etag)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("route", routeOf(r)).Msg("failed to write body")
	}
}

func targetParam(r *http.Request) (domain.Target, error) {
	kind, err := domain.ParseTargetKind(chi.URLParam(r, "kind"))
	if err != nil {
		return domain.Target{}, err
	}
	t := domain.Target{Kind: kind, ID: chi.URLParam(r, "id")}
	return t, t.Validate()
}

// actor is only called behind Authenticate, so a missing actor is a wiring bug.
func actor(r *http.Request) domain.Actor {
	a, _ := ActorFrom(r.Context())
	return a
}

func limitParam(r *http.Request, def, maxLimit int) (int, bool) {
	ls := r.URL.Query().Get("limit")
	if ls == "" {
		return def, true
	}
	l, err := strconv.Atoi(ls)
	if err != nil || l <= 0 || l > maxLimit {
		return 0, false
	}
	return l, true
}

// ---- targets ----

func (h *Handlers) listTargets(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseTargetKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, ok := limitParam(r, app.DefaultListLimit, app.MaxListLimit)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
		return
	}
	out, err := h.Q.ListTargets(r.Context(), kind, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, map[string]any{"items": out})
}

func (h *Handlers) createTarget(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseTargetKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createTargetRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ti, err := h.Targets.CreateTarget(r.Context(), actor(r), req.toDomain(kind))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ti)
}

func (h *Handlers) getTarget(w http.ResponseWriter, r *http.Request) {
	t, err := targetParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ti, err := h.Q.GetTarget(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, ti)
}

func (h *Handlers) recomputeTarget(w http.ResponseWriter, r *http.Request) {
	t, err := targetParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ti, err := h.Recompute.RecomputeTarget(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ti)
}

// ---- reviews ----

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	t, err := targetParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, ok := limitParam(r, app.DefaultReviewLimit, app.MaxReviewLimit)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
		return
	}

	// Newest first; aligns with the storage index on (target, created_at, id)
	page := domain.PageQuery{Limit: limit, Cursor: nil, Sort: "-created_at"}
	out, err := h.Q.ListReviews(r.Context(), t, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) reviewAnalytics(w http.ResponseWriter, r *http.Request) {
	t, err := targetParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Q.ComputeReviewAnalytics(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	t, err := targetParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req submitReviewRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rv, err := h.Reviews.SubmitReview(r.Context(), actor(r).ID, t, app.ReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
		Images:  req.Images,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (h *Handlers) getReview(w http.ResponseWriter, r *http.Request) {
	rv, err := h.Q.GetReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, rv)
}

func (h *Handlers) editReview(w http.ResponseWriter, r *http.Request) {
	var req editReviewRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rv, err := h.Reviews.EditReview(r.Context(), actor(r), chi.URLParam(r, "id"), req.Rating, req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *Handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.Reviews.DeleteReview(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- bookings ----

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := req.toDomain()
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Bookings.CreateBooking(r.Context(), actor(r).ID, b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) listMyBookings(w http.ResponseWriter, r *http.Request) {
	out, err := h.Bookings.ListMyBookings(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) listAllBookings(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r, app.DefaultListLimit, app.MaxListLimit)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
		return
	}
	out, err := h.Bookings.ListAllBookings(r.Context(), actor(r), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.GetBooking(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) setBookingStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Bookings.SetBookingStatus(r.Context(), actor(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) setPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req paymentStatusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Bookings.SetPaymentStatus(r.Context(), actor(r), chi.URLParam(r, "id"), req.PaymentStatus)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) deleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.Bookings.DeleteBooking(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

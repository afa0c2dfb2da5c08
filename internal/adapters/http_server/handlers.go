package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"reviewdeck/internal/adapters/observability"
	"reviewdeck/internal/app"
	"reviewdeck/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	S *app.StatsService
	I *app.IngestionService
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/reviews", h.listReviews)
		r.Post("/reviews", h.ingestBatch)
		r.Get("/stats", h.getStats)
		r.Get("/review-trends", h.reviewTrends)
		r.Get("/response-trends", h.responseTrends)
		r.Post("/webhooks/reviews", h.webhook)
	})
}

// ---- response envelopes (wire names are load-bearing for the dashboard) ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]any{"success": false, "message": message}
	if err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, status, body)
}

// ---- GET /api/reviews ----

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	filter := domain.ListFilter{
		Profile: domain.ParseProfileRef(q.Get("profileId")),
		Status:  q.Get("status"),
		Rating:  q.Get("rating"),
		Search:  q.Get("search"),
		Limit:   limit,
		Skip:    (page - 1) * limit,
	}

	out, err := h.Q.ListReviews(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("list reviews failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch reviews", err)
		return
	}

	totalPages := 0
	if out.Total > 0 {
		totalPages = (out.Total + limit - 1) / limit
	}

	// Listing responses are never cached.
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"reviews":    out.Items,
			"total":      out.Total,
			"page":       page,
			"limit":      limit,
			"totalPages": totalPages,
		},
	})
}

// ---- POST /api/reviews ----

func (h *Handlers) ingestBatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	var batch app.BatchPayload
	if err := json.Unmarshal(body, &batch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if batch.Reviews == nil {
		// single-review variant: one review carrying its own profile id
		var single app.SingleReviewPayload
		if err := json.Unmarshal(body, &single); err != nil ||
			single.ReviewID == "" || single.BusinessProfileID.String() == "" {
			writeError(w, http.StatusBadRequest, "Invalid data format. Expected reviews array.", nil)
			return
		}
		batch = app.BatchPayload{
			BusinessProfileID: single.BusinessProfileID,
			Reviews:           []app.IncomingReview{single.IncomingReview},
		}
	}

	count, err := h.I.IngestBatch(r.Context(), batch)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedInput) {
			writeError(w, http.StatusBadRequest, "Invalid review payload", err)
			return
		}
		log.Error().Err(err).Msg("batch ingestion failed")
		writeError(w, http.StatusInternalServerError, "Failed to create review", err)
		return
	}
	observability.ObserveIngested("batch", count)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Processed " + strconv.Itoa(count) + " reviews",
		"count":   count,
	})
}

// ---- POST /api/webhooks/reviews ----

func (h *Handlers) webhook(w http.ResponseWriter, r *http.Request) {
	var in app.IncomingReview
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	if err := h.I.IngestWebhook(r.Context(), in); err != nil {
		if errors.Is(err, domain.ErrMalformedInput) {
			writeError(w, http.StatusBadRequest, "Invalid review payload", err)
			return
		}
		log.Error().Err(err).Msg("webhook ingestion failed")
		writeError(w, http.StatusInternalServerError, "Failed to process review", err)
		return
	}
	observability.ObserveIngested("webhook", 1)

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Review processed"})
}

// ---- GET /api/stats ----

func (h *Handlers) getStats(w http.ResponseWriter, r *http.Request) {
	profile := domain.ParseProfileRef(r.URL.Query().Get("profileId"))

	dashboard, reasons := h.S.DashboardStats(r.Context(), profile)
	logDegraded(r, "dashboard stats", reasons)

	profiles, preasons := h.S.ProfileStats(r.Context())
	logDegraded(r, "profile stats", preasons)

	writeJSON(w, http.StatusOK, map[string]any{
		"dashboardStats": dashboard,
		"profileStats":   profiles,
	})
}

// ---- GET /api/review-trends and /api/response-trends ----

func (h *Handlers) reviewTrends(w http.ResponseWriter, r *http.Request) {
	period, profile, ok := trendParams(w, r)
	if !ok {
		return
	}
	data, reasons := h.S.ReviewTrends(r.Context(), period, profile)
	logDegraded(r, "review trends", reasons)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func (h *Handlers) responseTrends(w http.ResponseWriter, r *http.Request) {
	period, profile, ok := trendParams(w, r)
	if !ok {
		return
	}
	data, reasons := h.S.ResponseTrends(r.Context(), period, profile)
	logDegraded(r, "response trends", reasons)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func trendParams(w http.ResponseWriter, r *http.Request) (app.Period, *domain.ProfileRef, bool) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		raw = "30d"
	}
	period, ok := app.ParsePeriod(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid period. Expected 7d, 30d, 3m or 12m.", nil)
		return "", nil, false
	}
	return period, domain.ParseProfileRef(r.URL.Query().Get("profileId")), true
}

// The dashboard must render something even when aggregation degrades, so
// reasons are logged rather than surfaced in the response body.
func logDegraded(r *http.Request, what string, reasons []string) {
	if len(reasons) == 0 {
		return
	}
	log.Warn().Str("path", r.URL.Path).Strs("reasons", reasons).Msgf("%s degraded", what)
}

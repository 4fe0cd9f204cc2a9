package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Aitbek01/arena-gauntlet/services"
)

type RatingHandler struct {
	distributor *services.Distributor
}

func NewRatingHandler(d *services.Distributor) *RatingHandler {
	return &RatingHandler{distributor: d}
}

// LeaderboardHandler handles GET /ratings/leaderboard. The period query
// parameter defaults to the current ISO week.
func (h *RatingHandler) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	period := services.PeriodOf(time.Now().UTC())
	if raw := r.URL.Query().Get("period"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			badRequestResponse(w, r, errInvalidPeriod)
			return
		}
		period = p
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l < 1 || l > 500 {
			badRequestResponse(w, r, errInvalidLimit)
			return
		}
		limit = l
	}

	entries, err := h.distributor.Leaderboard(r.Context(), period, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	payload := jsonResponse{
		"period":      period,
		"leaderboard": entries,
	}
	if err := writeJSON(w, http.StatusOK, payload, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CompetitorRatingHandler handles GET /ratings/{competitorID}.
func (h *RatingHandler) CompetitorRatingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "competitorID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	period := services.PeriodOf(time.Now().UTC())
	if raw := r.URL.Query().Get("period"); raw != "" {
		p, perr := strconv.Atoi(raw)
		if perr != nil || p < 1 {
			badRequestResponse(w, r, errInvalidPeriod)
			return
		}
		period = p
	}

	points, err := h.distributor.Rating(r.Context(), id, period)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	payload := jsonResponse{
		"competitor_id": id,
		"period":        period,
		"points":        points,
	}
	if err := writeJSON(w, http.StatusOK, payload, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

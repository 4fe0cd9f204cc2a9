package handlers

import (
	"net/http"
	"strconv"

	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/Aitbek01/arena-gauntlet/repositories"
)

type RunHandler struct {
	runs repositories.RunRepository
}

func NewRunHandler(runs repositories.RunRepository) *RunHandler {
	return &RunHandler{runs: runs}
}

// GetByIDHandler handles GET /runs/{runID}.
func (h *RunHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "runID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"run": run}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /runs with optional kind, state and limit
// query parameters.
func (h *RunHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListRunsFilter{Limit: 50}

	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind := models.RunKind(raw)
		filter.Kind = &kind
	}
	if raw := r.URL.Query().Get("state"); raw != "" {
		state := models.RunState(raw)
		filter.State = &state
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			badRequestResponse(w, r, errInvalidLimit)
			return
		}
		filter.Limit = limit
	}

	runs, err := h.runs.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"runs": runs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

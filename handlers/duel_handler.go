package handlers

import (
	"errors"
	"net/http"

	"github.com/Aitbek01/arena-gauntlet/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type DuelHandler struct {
	duelService *services.DuelService
}

func NewDuelHandler(ds *services.DuelService) *DuelHandler {
	return &DuelHandler{duelService: ds}
}

var errInvalidDuelID = errors.New("invalid duel id")

type createDuelInput struct {
	FighterAID int64 `json:"fighter_a_id"`
	FighterBID int64 `json:"fighter_b_id"`
}

// CreateHandler handles POST /duels.
func (h *DuelHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input createDuelInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	duel, err := h.duelService.Create(r.Context(), input.FighterAID, input.FighterBID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"duel": duel}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResolveHandler handles POST /duels/{duelID}/resolve.
func (h *DuelHandler) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "duelID"))
	if err != nil {
		badRequestResponse(w, r, errInvalidDuelID)
		return
	}

	duel, err := h.duelService.Resolve(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"duel": duel}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

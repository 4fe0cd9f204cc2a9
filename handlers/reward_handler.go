package handlers

import (
	"errors"
	"net/http"

	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/Aitbek01/arena-gauntlet/services"
	"github.com/go-chi/chi/v5"
)

type RewardHandler struct {
	distributor *services.Distributor
}

func NewRewardHandler(d *services.Distributor) *RewardHandler {
	return &RewardHandler{distributor: d}
}

var errInvalidTier = errors.New("tier must be one of champion, runner_up, semifinalist")

func tierFromURL(r *http.Request) (models.PlacementTier, error) {
	tier := models.PlacementTier(chi.URLParam(r, "tier"))
	switch tier {
	case models.TierChampion, models.TierRunnerUp, models.TierSemifinalist:
		return tier, nil
	default:
		return "", errInvalidTier
	}
}

// GetPolicyHandler handles GET /rewards/policies/{tier}.
func (h *RewardHandler) GetPolicyHandler(w http.ResponseWriter, r *http.Request) {
	tier, err := tierFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	slots, err := h.distributor.Policy(r.Context(), tier)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	payload := jsonResponse{
		"tier":  tier,
		"slots": slots,
	}
	if err := writeJSON(w, http.StatusOK, payload, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type updatePolicyInput struct {
	Slots []models.RewardSlot `json:"slots"`
}

// UpdatePolicyHandler handles PUT /rewards/policies/{tier}.
func (h *RewardHandler) UpdatePolicyHandler(w http.ResponseWriter, r *http.Request) {
	tier, err := tierFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input updatePolicyInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.distributor.UpdatePolicy(r.Context(), tier, input.Slots); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	payload := jsonResponse{
		"tier":  tier,
		"slots": input.Slots,
	}
	if err := writeJSON(w, http.StatusOK, payload, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

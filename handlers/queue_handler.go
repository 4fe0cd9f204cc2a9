package handlers

import (
	"net/http"

	"github.com/Aitbek01/arena-gauntlet/middleware"
	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/Aitbek01/arena-gauntlet/services"
)

type QueueHandler struct {
	queueService *services.QueueService
}

func NewQueueHandler(qs *services.QueueService) *QueueHandler {
	return &QueueHandler{queueService: qs}
}

type joinQueueInput struct {
	CompetitorID int64          `json:"competitor_id"`
	Loadout      models.Loadout `json:"loadout"`
}

// JoinHandler handles POST /queue/join.
func (h *QueueHandler) JoinHandler(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to join the queue")
		return
	}

	var input joinQueueInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.queueService.Join(r.Context(), callerID, input.CompetitorID, input.Loadout); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"queue_size": h.queueService.Size()}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type leaveQueueInput struct {
	CompetitorID int64 `json:"competitor_id"`
}

// LeaveHandler handles POST /queue/leave.
func (h *QueueHandler) LeaveHandler(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to leave the queue")
		return
	}

	var input leaveQueueInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.queueService.Leave(r.Context(), callerID, input.CompetitorID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"queue_size": h.queueService.Size()}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /queue.
func (h *QueueHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	entries := h.queueService.Entries()
	payload := jsonResponse{
		"size":    len(entries),
		"entries": entries,
	}
	if err := writeJSON(w, http.StatusOK, payload, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

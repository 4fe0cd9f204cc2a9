package handlers

import (
	"net/http"

	"github.com/Aitbek01/arena-gauntlet/services"
)

// SchedulerHandler exposes the tournament pipeline's phase transitions.
// The routes are operator-only; the ticker in main drives the same
// methods on a cadence.
type SchedulerHandler struct {
	scheduler *services.Scheduler
}

func NewSchedulerHandler(s *services.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{scheduler: s}
}

// CommitHandler handles POST /scheduler/commit.
func (h *SchedulerHandler) CommitHandler(w http.ResponseWriter, r *http.Request) {
	pending, err := h.scheduler.Commit(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"pending_run": pending}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SelectHandler handles POST /scheduler/select.
func (h *SchedulerHandler) SelectHandler(w http.ResponseWriter, r *http.Request) {
	run, err := h.scheduler.Select(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"run": run}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ExecuteHandler handles POST /scheduler/execute.
func (h *SchedulerHandler) ExecuteHandler(w http.ResponseWriter, r *http.Request) {
	run, err := h.scheduler.Execute(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"run": run}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecoverHandler handles POST /scheduler/recover.
func (h *SchedulerHandler) RecoverHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Recover(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"recovered": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GauntletHandler exposes the continuous pipeline, addressed per run.
type GauntletHandler struct {
	gauntlet *services.Gauntlet
}

func NewGauntletHandler(g *services.Gauntlet) *GauntletHandler {
	return &GauntletHandler{gauntlet: g}
}

// TriggerHandler handles POST /gauntlet/trigger.
func (h *GauntletHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	pending, err := h.gauntlet.Trigger(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"pending_run": pending}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SelectHandler handles POST /gauntlet/{runID}/select.
func (h *GauntletHandler) SelectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "runID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	run, err := h.gauntlet.Select(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"run": run}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ExecuteHandler handles POST /gauntlet/{runID}/execute.
func (h *GauntletHandler) ExecuteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "runID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	run, err := h.gauntlet.Execute(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"run": run}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecoverHandler handles POST /gauntlet/{runID}/recover.
func (h *GauntletHandler) RecoverHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "runID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.gauntlet.Recover(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"recovered": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PendingHandler handles GET /gauntlet/pending.
func (h *GauntletHandler) PendingHandler(w http.ResponseWriter, r *http.Request) {
	pending, err := h.gauntlet.Pending(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"pending_runs": pending}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

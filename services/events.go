package services

import (
	"strconv"

	"github.com/Aitbek01/arena-gauntlet/brackets"
	"github.com/Aitbek01/arena-gauntlet/models"
)

// roomForRun names the per-run websocket room.
func roomForRun(runID int64) string {
	return "run:" + strconv.FormatInt(runID, 10)
}

type QueueEventPayload struct {
	CompetitorID int64 `json:"competitor_id"`
	QueueSize    int   `json:"queue_size"`
}

type PhaseEventPayload struct {
	RunID int64          `json:"run_id"`
	Kind  models.RunKind `json:"kind"`
	Phase models.Phase   `json:"phase"`
	Round uint64         `json:"round,omitempty"`
}

type RunCompletedPayload struct {
	Run *models.Run `json:"run"`
}

type ReplacementEventPayload struct {
	RunID        int64                   `json:"run_id"`
	Seat         int                     `json:"seat"`
	CompetitorID int64                   `json:"competitor_id"`
	StandInID    int64                   `json:"stand_in_id"`
	Cause        models.ReplacementCause `json:"cause"`
}

type RatingEventPayload struct {
	RunID        int64 `json:"run_id"`
	CompetitorID int64 `json:"competitor_id"`
	Period       int   `json:"period"`
	Points       int   `json:"points"`
}

// RewardEventPayload reports a rolled reward. Issued is false when ticket
// issuance failed and the reward degraded to a zero-amount report.
type RewardEventPayload struct {
	RunID        int64                 `json:"run_id"`
	CompetitorID int64                 `json:"competitor_id"`
	Tier         models.PlacementTier  `json:"tier"`
	Category     models.RewardCategory `json:"category"`
	Issued       bool                  `json:"issued"`
}

type RecoveryEventPayload struct {
	RunID    int64        `json:"run_id"`
	Phase    models.Phase `json:"phase"`
	Requeued int          `json:"requeued"`
}

type DuelEventPayload struct {
	DuelID string `json:"duel_id"`
}

// compile-time check: the registry doubles as the simulator's recorder.
var _ brackets.Recorder = (CompetitorRegistry)(nil)

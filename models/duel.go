package models

import (
	"time"

	"github.com/google/uuid"
)

// DuelStatus represents duel states, matching the ENUM in the database.
type DuelStatus string

const (
	DuelPending   DuelStatus = "pending"
	DuelCompleted DuelStatus = "completed"
	DuelCanceled  DuelStatus = "canceled"
)

// Duel is a single 1-on-1 bout resolved at a future beacon round. A duel
// whose randomness stalls past the validity window is canceled without a
// result by the recovery manager.
type Duel struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	FighterAID  int64      `json:"fighter_a_id" db:"fighter_a_id"`
	FighterBID  int64      `json:"fighter_b_id" db:"fighter_b_id"`
	Round       uint64     `json:"round" db:"round"`
	Status      DuelStatus `json:"status" db:"status"`
	WinnerID    *int64     `json:"winner_id,omitempty" db:"winner_id"`
	Outcome     OutcomeTag `json:"outcome,omitempty" db:"outcome"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

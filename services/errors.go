package services

import (
	"errors"
	"fmt"
)

// Shared errors used across services and the HTTP mapping.
var (
	// Validation errors: reported to the caller, no state mutated.
	ErrNotOwner             = errors.New("caller does not control this competitor")
	ErrCompetitorIneligible = errors.New("competitor is retired and cannot compete")
	ErrAlreadyQueued        = errors.New("competitor is already queued")
	ErrNotQueued            = errors.New("competitor is not queued")
	ErrInvalidLoadout       = errors.New("loadout failed validation")
	ErrInvalidSkin          = errors.New("skin is not owned by this competitor")

	// Phase errors: reported with retry context, no state mutated.
	ErrNoPendingRun         = errors.New("no pending run in flight")
	ErrRunAlreadyPending    = errors.New("a pending run is already in flight")
	ErrDailyWindowUsed      = errors.New("the daily tournament window was already used")
	ErrQueueBelowThreshold  = errors.New("queue has not reached the gauntlet threshold")
	ErrInsufficientQueue    = errors.New("not enough queued competitors for selection")
	ErrWrongPhase           = errors.New("pending run is in the wrong phase for this transition")
	ErrCheckpointNotReached = errors.New("checkpoint not reached")

	// Dependency failures.
	ErrRandomnessExpired = errors.New("randomness validity window elapsed, run recovered")
	ErrDuelNotTimedOut   = errors.New("duel has not timed out yet")

	// Invariant violations: fatal to the specific operation, never clamped.
	ErrInsufficientStandIns     = errors.New("stand-in pool exhausted")
	ErrInvalidRewardPercentages = errors.New("reward weights do not sum to the fixed total")
	ErrNoRatingTable            = errors.New("no rating table configured for bracket size")
)

// CheckpointNotReachedError reports a phase transition attempted before its
// checkpoint, carrying both positions so the caller knows how long to wait.
// It matches ErrCheckpointNotReached under errors.Is.
type CheckpointNotReachedError struct {
	Required uint64
	Current  uint64
}

func (e *CheckpointNotReachedError) Error() string {
	return fmt.Sprintf("checkpoint not reached: need round %d, current round is %d", e.Required, e.Current)
}

func (e *CheckpointNotReachedError) Is(target error) bool {
	return target == ErrCheckpointNotReached
}

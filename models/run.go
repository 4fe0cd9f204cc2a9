package models

import "time"

// Phase is the scheduling phase of a pending run.
type Phase string

const (
	PhaseNone      Phase = "none"
	PhaseCommitted Phase = "committed"
	PhaseSelected  Phase = "selected"
	PhaseReady     Phase = "ready"
)

// RunKind distinguishes the calendar-cadence tournament from the
// continuously-running gauntlet.
type RunKind string

const (
	KindTournament RunKind = "tournament"
	KindGauntlet   RunKind = "gauntlet"
)

// RunState represents run states, matching the ENUM in the database.
type RunState string

const (
	RunPending   RunState = "pending"
	RunCompleted RunState = "completed"
)

// PendingRun is the persisted checkpoint state of a run being assembled.
// SelectionRound and ExecutionRound are beacon rounds; ExecutionRound is
// zero until the run reaches the selected phase.
type PendingRun struct {
	RunID          int64     `json:"run_id" db:"run_id"`
	Kind           RunKind   `json:"kind" db:"kind"`
	Phase          Phase     `json:"phase" db:"phase"`
	SelectionRound uint64    `json:"selection_round" db:"selection_round"`
	ExecutionRound uint64    `json:"execution_round" db:"execution_round"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ReplacementCause tags why a seat was handed to a stand-in.
type ReplacementCause string

const (
	CauseRetired        ReplacementCause = "RETIRED"
	CauseLoadoutInvalid ReplacementCause = "LOADOUT_INVALID"
)

// RunParticipant is one seat of a run's participant list, captured at
// selection time. StandIn seats carry the stand-in id and the cause of the
// replacement instead of a live loadout.
type RunParticipant struct {
	Seat         int              `json:"seat" db:"seat"`
	CompetitorID int64            `json:"competitor_id" db:"competitor_id"`
	Loadout      Loadout          `json:"loadout"`
	StandIn      bool             `json:"stand_in" db:"stand_in"`
	StandInID    int64            `json:"stand_in_id,omitempty" db:"stand_in_id"`
	Cause        ReplacementCause `json:"replacement_cause,omitempty" db:"replacement_cause"`
}

// OutcomeTag classifies how a single fight ended. Death outcomes gate the
// lethality side effects (permanent retirement, kill counters).
type OutcomeTag string

const (
	OutcomeDecision OutcomeTag = "decision"
	OutcomeDeath    OutcomeTag = "death"
)

// Elimination is one entry of a run's elimination trace, in round order.
type Elimination struct {
	RunID        int64      `json:"run_id" db:"run_id"`
	CompetitorID int64      `json:"competitor_id" db:"competitor_id"`
	StandIn      bool       `json:"stand_in" db:"stand_in"`
	Round        int        `json:"round" db:"round"`
	FightIndex   int        `json:"fight_index" db:"fight_index"`
	Outcome      OutcomeTag `json:"outcome" db:"outcome"`
}

// Run is an immutable historical record of a tournament or gauntlet
// instance. State moves from pending to completed exactly once.
type Run struct {
	ID           int64            `json:"id" db:"id"`
	Kind         RunKind          `json:"kind" db:"kind"`
	Size         int              `json:"size" db:"size"`
	State        RunState         `json:"state" db:"state"`
	Participants []RunParticipant `json:"participants,omitempty" db:"-"`
	Eliminations []Elimination    `json:"eliminations,omitempty" db:"-"`
	ChampionID   *int64           `json:"champion_id,omitempty" db:"champion_id"`
	RunnerUpID   *int64           `json:"runner_up_id,omitempty" db:"runner_up_id"`
	// A stand-in podium seat records the replaced competitor's id; the flag
	// is what tells readers that competitor never fought.
	ChampionStandIn bool       `json:"champion_stand_in,omitempty" db:"champion_stand_in"`
	RunnerUpStandIn bool       `json:"runner_up_stand_in,omitempty" db:"runner_up_stand_in"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

package brackets

import (
	"context"

	"github.com/Aitbek01/arena-gauntlet/models"
)

// Fighter is a resolved participant as the simulator sees it: either a live
// competitor with its captured loadout applied, or a synthetic stand-in.
type Fighter struct {
	CompetitorID int64            `json:"competitor_id"`
	StandIn      bool             `json:"stand_in"`
	StandInID    int64            `json:"stand_in_id,omitempty"`
	Name         string           `json:"name"`
	Stats        models.StatBlock `json:"stats"`
	Appearance   string           `json:"appearance"`
}

// CombatOracle resolves a single bout from two stat blocks and a fight
// seed. The resolution algorithm itself is an external collaborator; the
// simulator only consumes this interface.
type CombatOracle interface {
	Resolve(ctx context.Context, a, b Fighter, seed [32]byte, lethal bool) (winnerIsA bool, outcome models.OutcomeTag, encodedLog []byte, err error)
}

// PowerWeightedOracle is the default combat resolution: the winner is drawn
// proportionally to aggregate stat power, and in lethal mode roughly one
// loss in four ends in death.
type PowerWeightedOracle struct{}

func NewPowerWeightedOracle() *PowerWeightedOracle {
	return &PowerWeightedOracle{}
}

func (o *PowerWeightedOracle) Resolve(_ context.Context, a, b Fighter, seed [32]byte, lethal bool) (bool, models.OutcomeTag, []byte, error) {
	powerA := a.Stats.Power()
	powerB := b.Stats.Power()
	total := powerA + powerB
	if total <= 0 {
		powerA, total = 1, 2
	}

	winnerIsA := SeedMod(SubSeed(seed, 0), uint64(total)) < uint64(powerA)

	outcome := models.OutcomeDecision
	if lethal && SeedMod(SubSeed(seed, 1), 4) == 0 {
		outcome = models.OutcomeDeath
	}

	log := encodeFightLog(a, b, winnerIsA, outcome)
	return winnerIsA, outcome, log, nil
}

// encodeFightLog produces the opaque log blob attached to a fight. The
// format is not part of any contract; it exists for archival only.
func encodeFightLog(a, b Fighter, winnerIsA bool, outcome models.OutcomeTag) []byte {
	w, l := a, b
	if !winnerIsA {
		w, l = b, a
	}
	return []byte("winner=" + w.Name + ";loser=" + l.Name + ";outcome=" + string(outcome))
}

package brackets

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/Aitbek01/arena-gauntlet/models"
)

var (
	ErrBadBracketSize = errors.New("bracket size must be a power of two, at least 8")
)

// Recorder receives the per-fight side effects for real (non-stand-in)
// participants. It is satisfied by the competitor registry.
type Recorder interface {
	RecordWin(ctx context.Context, competitorID int64) error
	RecordLoss(ctx context.Context, competitorID int64) error
	RecordKill(ctx context.Context, competitorID int64) error
	Retire(ctx context.Context, competitorID int64) error
}

// Fight is one resolved bout of a run.
type Fight struct {
	Round      int
	Index      int
	Winner     Fighter
	Loser      Fighter
	Outcome    models.OutcomeTag
	EncodedLog []byte
}

// Elimination is one entry of the elimination trace, appended in round
// order. The competitor eliminated last is the runner-up.
type Elimination struct {
	Fighter    Fighter
	Round      int
	FightIndex int
	Outcome    models.OutcomeTag
}

// Result is the full outcome of a simulated bracket: exactly one champion,
// one runner-up and N-1 eliminations for N fighters.
type Result struct {
	Champion     Fighter
	RunnerUp     Fighter
	Eliminations []Elimination
	Fights       []Fight
}

// SimulateParams carries the resolved fighters and the 256-bit execution
// seed. Lethal gates the death outcomes and their side effects.
type SimulateParams struct {
	Fighters []Fighter
	Seed     [32]byte
	Lethal   bool
}

// Simulator shuffles fighters and runs consecutive single-elimination
// rounds through the combat oracle. A simulation runs to completion
// atomically; there is no mid-bracket cancellation.
type Simulator struct {
	combat   CombatOracle
	recorder Recorder
}

func NewSimulator(combat CombatOracle, recorder Recorder) *Simulator {
	return &Simulator{combat: combat, recorder: recorder}
}

func (s *Simulator) Simulate(ctx context.Context, params SimulateParams) (*Result, error) {
	n := len(params.Fighters)
	if n < 8 || bits.OnesCount(uint(n)) != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadBracketSize, n)
	}

	current := make([]Fighter, n)
	copy(current, params.Fighters)
	shuffle(current, params.Seed)

	rounds := bits.TrailingZeros(uint(n))
	result := &Result{
		Eliminations: make([]Elimination, 0, n-1),
		Fights:       make([]Fight, 0, n-1),
	}

	for round := 1; round <= rounds; round++ {
		next := make([]Fighter, 0, len(current)/2)

		for fight := 0; fight < len(current)/2; fight++ {
			a := current[2*fight]
			b := current[2*fight+1]

			fightSeed := SubSeed(params.Seed, uint64(round), uint64(fight))
			winnerIsA, outcome, log, err := s.combat.Resolve(ctx, a, b, fightSeed, params.Lethal)
			if err != nil {
				return nil, fmt.Errorf("resolve round %d fight %d: %w", round, fight, err)
			}

			winner, loser := a, b
			if !winnerIsA {
				winner, loser = b, a
			}

			if err := s.recordFight(ctx, winner, loser, outcome); err != nil {
				return nil, fmt.Errorf("record round %d fight %d: %w", round, fight, err)
			}

			next = append(next, winner)
			result.Eliminations = append(result.Eliminations, Elimination{
				Fighter:    loser,
				Round:      round,
				FightIndex: fight,
				Outcome:    outcome,
			})
			result.Fights = append(result.Fights, Fight{
				Round:      round,
				Index:      fight,
				Winner:     winner,
				Loser:      loser,
				Outcome:    outcome,
				EncodedLog: log,
			})
		}
		current = next
	}

	result.Champion = current[0]
	result.RunnerUp = result.Eliminations[len(result.Eliminations)-1].Fighter
	return result, nil
}

// shuffle is the canonical unbiased Fisher-Yates: iterate i from n-1 down
// to 1 and swap position i with H(seed, i) mod (i+1).
func shuffle(fighters []Fighter, seed [32]byte) {
	for i := len(fighters) - 1; i >= 1; i-- {
		j := SeedMod(SubSeed(seed, uint64(i)), uint64(i+1))
		fighters[i], fighters[j] = fighters[j], fighters[i]
	}
}

func (s *Simulator) recordFight(ctx context.Context, winner, loser Fighter, outcome models.OutcomeTag) error {
	if s.recorder == nil {
		return nil
	}
	if !winner.StandIn {
		if err := s.recorder.RecordWin(ctx, winner.CompetitorID); err != nil {
			return err
		}
	}
	if !loser.StandIn {
		if err := s.recorder.RecordLoss(ctx, loser.CompetitorID); err != nil {
			return err
		}
	}
	if outcome == models.OutcomeDeath {
		if !loser.StandIn {
			if err := s.recorder.Retire(ctx, loser.CompetitorID); err != nil {
				return err
			}
		}
		if !winner.StandIn {
			if err := s.recorder.RecordKill(ctx, winner.CompetitorID); err != nil {
				return err
			}
		}
	}
	return nil
}

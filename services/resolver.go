package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aitbek01/arena-gauntlet/brackets"
	"github.com/Aitbek01/arena-gauntlet/models"
)

// standInSeedTag separates stand-in draws from the other sub-seed domains
// derived from the same execution seed.
const standInSeedTag = 0xA11E

// Resolver decides, at execution time, whether each captured seat still
// holds an eligible competitor, swapping in synthetic stand-ins where it
// does not. Replacement is deterministic given the run seed and seat index.
type Resolver struct {
	registry  CompetitorRegistry
	validator LoadoutValidator
	standIns  []models.StandIn
	byID      map[int64]models.StandIn
	events    EventPublisher
	logger    *slog.Logger
}

func NewResolver(
	registry CompetitorRegistry,
	validator LoadoutValidator,
	standIns []models.StandIn,
	events EventPublisher,
	logger *slog.Logger,
) *Resolver {
	byID := make(map[int64]models.StandIn, len(standIns))
	for _, s := range standIns {
		byID[s.ID] = s
	}
	return &Resolver{
		registry:  registry,
		validator: validator,
		standIns:  standIns,
		byID:      byID,
		events:    events,
		logger:    logger,
	}
}

// Resolve maps a run's captured participant list to fighters, returning
// the stand-in replacements applied, seat by seat.
func (r *Resolver) Resolve(ctx context.Context, run *models.Run, seed [32]byte) ([]brackets.Fighter, []models.RunParticipant, error) {
	used := make(map[int64]bool)
	for _, p := range run.Participants {
		if p.StandIn {
			used[p.StandInID] = true
		}
	}

	fighters := make([]brackets.Fighter, 0, len(run.Participants))
	var replacements []models.RunParticipant

	for _, p := range run.Participants {
		if p.StandIn {
			standIn, ok := r.byID[p.StandInID]
			if !ok {
				return nil, nil, fmt.Errorf("unknown stand-in %d at seat %d", p.StandInID, p.Seat)
			}
			fighters = append(fighters, standInFighter(p.CompetitorID, standIn))
			continue
		}

		cause, err := r.eligibility(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		if cause != "" {
			standIn, err := r.drawStandIn(seed, p.Seat, used)
			if err != nil {
				return nil, nil, err
			}
			used[standIn.ID] = true

			replacement := p
			replacement.StandIn = true
			replacement.StandInID = standIn.ID
			replacement.Cause = cause
			replacements = append(replacements, replacement)
			fighters = append(fighters, standInFighter(p.CompetitorID, standIn))

			r.logger.Info("participant replaced by stand-in",
				slog.Int64("run_id", run.ID), slog.Int("seat", p.Seat),
				slog.Int64("competitor_id", p.CompetitorID), slog.String("cause", string(cause)))
			r.events.Publish(roomForRun(run.ID), models.Event{
				Type: models.EventParticipantReplaced,
				Payload: ReplacementEventPayload{
					RunID:        run.ID,
					Seat:         p.Seat,
					CompetitorID: p.CompetitorID,
					StandInID:    standIn.ID,
					Cause:        cause,
				},
			})
			continue
		}

		competitor, err := r.registry.GetByID(ctx, p.CompetitorID)
		if err != nil {
			return nil, nil, fmt.Errorf("load competitor %d for seat %d: %w", p.CompetitorID, p.Seat, err)
		}
		fighters = append(fighters, brackets.Fighter{
			CompetitorID: competitor.ID,
			Name:         competitor.Name,
			Stats:        competitor.Stats,
			Appearance:   competitor.Appearance,
		})
	}
	return fighters, replacements, nil
}

// eligibility returns the replacement cause for a seat, or empty when the
// competitor may still fight with its captured loadout.
func (r *Resolver) eligibility(ctx context.Context, p models.RunParticipant) (models.ReplacementCause, error) {
	retired, err := r.registry.IsRetired(ctx, p.CompetitorID)
	if err != nil {
		return "", fmt.Errorf("check retirement of competitor %d: %w", p.CompetitorID, err)
	}
	if retired {
		return models.CauseRetired, nil
	}
	if err := r.validator.ValidateLoadout(ctx, p.CompetitorID, p.Loadout); err != nil {
		return models.CauseLoadoutInvalid, nil
	}
	return "", nil
}

// drawStandIn picks a stand-in not yet used in this run: the seed and seat
// choose a starting position, then the scan walks forward until a free one
// turns up. The exclusion set is threaded in explicitly so re-execution
// with the same seed reproduces the same draws.
func (r *Resolver) drawStandIn(seed [32]byte, seat int, used map[int64]bool) (models.StandIn, error) {
	n := len(r.standIns)
	if n == 0 {
		return models.StandIn{}, ErrInsufficientStandIns
	}
	start := brackets.SeedMod(brackets.SubSeed(seed, standInSeedTag, uint64(seat)), uint64(n))
	for off := 0; off < n; off++ {
		candidate := r.standIns[(int(start)+off)%n]
		if !used[candidate.ID] {
			return candidate, nil
		}
	}
	return models.StandIn{}, ErrInsufficientStandIns
}

func standInFighter(competitorID int64, s models.StandIn) brackets.Fighter {
	return brackets.Fighter{
		CompetitorID: competitorID,
		StandIn:      true,
		StandInID:    s.ID,
		Name:         s.Name,
		Stats:        s.Stats,
		Appearance:   s.Appearance,
	}
}

// DefaultStandIns builds the synthetic roster: modest, varied stat blocks
// so a stand-in is a credible but unremarkable opponent.
func DefaultStandIns(n int) []models.StandIn {
	out := make([]models.StandIn, n)
	for i := range out {
		out[i] = models.StandIn{
			ID:         int64(i + 1),
			Name:       fmt.Sprintf("Shade %d", i+1),
			Stats:      models.StatBlock{Attack: 8 + i%5, Defense: 8 + (i+2)%5, Vitality: 10, Speed: 8 + (i+3)%5},
			Appearance: fmt.Sprintf("shade-%02d", i+1),
		}
	}
	return out
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/bits"
	"time"

	"github.com/Aitbek01/arena-gauntlet/brackets"
	"github.com/Aitbek01/arena-gauntlet/metrics"
	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/Aitbek01/arena-gauntlet/repositories"
)

// PeriodOf keys the rating ledger by UTC ISO week.
func PeriodOf(t time.Time) int {
	year, week := t.UTC().ISOWeek()
	return year*100 + week
}

// DistributorConfig holds the rating point tables. Tables map bracket size
// to points by elimination round, round 1 first; the values are plain
// configuration with no derivation rule.
type DistributorConfig struct {
	Tables         map[int][]int
	ChampionPoints int
	RunnerUpPoints int
}

// Distributor converts a run's elimination order into rating deltas and
// rolls placement-weighted reward categories for the top four.
type Distributor struct {
	ratings  repositories.RatingRepository
	policies repositories.RewardPolicyRepository
	issuer   RewardIssuer
	registry CompetitorRegistry
	cfg      DistributorConfig
	events   EventPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      nowFunc
}

func NewDistributor(
	ratings repositories.RatingRepository,
	policies repositories.RewardPolicyRepository,
	issuer RewardIssuer,
	registry CompetitorRegistry,
	cfg DistributorConfig,
	events EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Distributor {
	return &Distributor{
		ratings:  ratings,
		policies: policies,
		issuer:   issuer,
		registry: registry,
		cfg:      cfg,
		events:   events,
		metrics:  m,
		logger:   logger,
		now:      defaultNow,
	}
}

// DistributeRatings awards rating points by placement. Only real
// competitors accrue; stand-ins never do. Errors here are fatal to run
// completion, so they run inside the completion transaction.
func (d *Distributor) DistributeRatings(ctx context.Context, exec repositories.SQLExecutor, run *models.Run, result *brackets.Result) error {
	rounds := bits.TrailingZeros(uint(run.Size))
	table, ok := d.cfg.Tables[run.Size]
	if !ok || len(table) != rounds {
		return fmt.Errorf("%w: size %d", ErrNoRatingTable, run.Size)
	}
	period := PeriodOf(d.now())

	if err := d.award(ctx, exec, run, result.Champion, period, d.cfg.ChampionPoints); err != nil {
		return err
	}
	if err := d.award(ctx, exec, run, result.RunnerUp, period, d.cfg.RunnerUpPoints); err != nil {
		return err
	}

	// Everyone else earns by the round they fell in; the final round's
	// loser is the runner-up and was already paid above.
	for _, e := range result.Eliminations[:len(result.Eliminations)-1] {
		if err := d.award(ctx, exec, run, e.Fighter, period, table[e.Round-1]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Distributor) award(ctx context.Context, exec repositories.SQLExecutor, run *models.Run, f brackets.Fighter, period, points int) error {
	if f.StandIn || points <= 0 {
		return nil
	}
	if err := d.ratings.Add(ctx, exec, f.CompetitorID, period, points); err != nil {
		return fmt.Errorf("award %d rating to competitor %d: %w", points, f.CompetitorID, err)
	}
	if err := d.registry.AwardExperience(ctx, f.CompetitorID, points); err != nil {
		return fmt.Errorf("award experience to competitor %d: %w", f.CompetitorID, err)
	}
	d.events.Publish(roomForRun(run.ID), models.Event{
		Type: models.EventRatingAwarded,
		Payload: RatingEventPayload{
			RunID:        run.ID,
			CompetitorID: f.CompetitorID,
			Period:       period,
			Points:       points,
		},
	})
	return nil
}

// DistributeRewards rolls a placement-weighted category for champion,
// runner-up and the two semifinal losers. The whole pass is best-effort: a
// missing policy or failed issuance degrades that placement to a
// zero-amount reward event and never aborts run completion.
func (d *Distributor) DistributeRewards(ctx context.Context, run *models.Run, result *brackets.Result, seed [32]byte) {
	rounds := bits.TrailingZeros(uint(run.Size))

	placements := []struct {
		fighter brackets.Fighter
		tier    models.PlacementTier
	}{
		{result.Champion, models.TierChampion},
		{result.RunnerUp, models.TierRunnerUp},
	}
	for _, e := range result.Eliminations {
		if e.Round == rounds-1 {
			placements = append(placements, struct {
				fighter brackets.Fighter
				tier    models.PlacementTier
			}{e.Fighter, models.TierSemifinalist})
		}
	}

	for _, p := range placements {
		if p.fighter.StandIn {
			continue
		}
		d.rollAndIssue(ctx, run, p.fighter.CompetitorID, p.tier, seed)
	}
}

func (d *Distributor) rollAndIssue(ctx context.Context, run *models.Run, competitorID int64, tier models.PlacementTier, seed [32]byte) {
	slots, err := d.policies.GetPolicy(ctx, tier)
	if err != nil {
		d.logger.Error("load reward policy", slog.String("tier", string(tier)), slog.Any("error", err))
		d.publishReward(run, competitorID, tier, models.CategoryNone, false)
		return
	}

	roll := brackets.SeedMod(brackets.SubSeed(seed, uint64(run.ID), uint64(competitorID)), models.RewardWeightTotal)
	category := rollCategory(slots, int(roll))
	if category == models.CategoryNone {
		d.publishReward(run, competitorID, tier, category, true)
		return
	}

	if err := d.issuer.Issue(ctx, competitorID, category); err != nil {
		// Issuance is best-effort: report a zero-amount reward and move on.
		d.logger.Warn("reward issuance failed",
			slog.Int64("run_id", run.ID), slog.Int64("competitor_id", competitorID),
			slog.String("category", string(category)), slog.Any("error", err))
		d.publishReward(run, competitorID, tier, category, false)
		return
	}
	d.publishReward(run, competitorID, tier, category, true)
}

func (d *Distributor) publishReward(run *models.Run, competitorID int64, tier models.PlacementTier, category models.RewardCategory, issued bool) {
	d.metrics.RewardsRolled.WithLabelValues(string(category)).Inc()
	d.events.Publish(roomForRun(run.ID), models.Event{
		Type: models.EventRewardDistributed,
		Payload: RewardEventPayload{
			RunID:        run.ID,
			CompetitorID: competitorID,
			Tier:         tier,
			Category:     category,
			Issued:       issued,
		},
	})
}

// rollCategory walks the ordered slot list, consuming the roll. A
// zero-weight slot marks the end of the list.
func rollCategory(slots []models.RewardSlot, roll int) models.RewardCategory {
	for _, s := range slots {
		if s.Weight == 0 {
			break
		}
		if roll < s.Weight {
			return s.Category
		}
		roll -= s.Weight
	}
	return models.CategoryNone
}

// ValidatePolicy rejects any slot list whose weights do not sum to the
// fixed total. Invalid policies are never clamped or partially applied.
func ValidatePolicy(slots []models.RewardSlot) error {
	sum := 0
	for _, s := range slots {
		if s.Weight < 0 {
			return fmt.Errorf("%w: negative weight for %s", ErrInvalidRewardPercentages, s.Category)
		}
		sum += s.Weight
	}
	if sum != models.RewardWeightTotal {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidRewardPercentages, sum, models.RewardWeightTotal)
	}
	return nil
}

// UpdatePolicy validates and replaces a placement tier's reward policy.
func (d *Distributor) UpdatePolicy(ctx context.Context, tier models.PlacementTier, slots []models.RewardSlot) error {
	if err := ValidatePolicy(slots); err != nil {
		return err
	}
	return d.policies.PutPolicy(ctx, tier, slots)
}

// Leaderboard returns the top rated competitors of a rating period.
func (d *Distributor) Leaderboard(ctx context.Context, period, limit int) ([]models.RatingEntry, error) {
	return d.ratings.Leaderboard(ctx, period, limit)
}

// Rating returns one competitor's accumulated points for a period.
func (d *Distributor) Rating(ctx context.Context, competitorID int64, period int) (int, error) {
	return d.ratings.Get(ctx, competitorID, period)
}

// Policy returns a tier's current reward policy.
func (d *Distributor) Policy(ctx context.Context, tier models.PlacementTier) ([]models.RewardSlot, error) {
	return d.policies.GetPolicy(ctx, tier)
}

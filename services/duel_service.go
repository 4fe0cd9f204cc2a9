package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Aitbek01/arena-gauntlet/brackets"
	"github.com/Aitbek01/arena-gauntlet/metrics"
	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/Aitbek01/arena-gauntlet/oracle"
	"github.com/Aitbek01/arena-gauntlet/repositories"
	"github.com/google/uuid"
)

// DuelService runs one-off head-to-head fights outside the bracket
// pipeline. A duel commits to a future randomness round at creation and
// resolves once that round's value is available. Duels are never lethal.
type DuelService struct {
	duels    repositories.DuelRepository
	registry CompetitorRegistry
	oracle   oracle.Client
	combat   brackets.CombatOracle
	recovery *RecoveryManager
	events   EventPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      nowFunc

	offsetRounds uint64
}

func NewDuelService(
	duels repositories.DuelRepository,
	registry CompetitorRegistry,
	orc oracle.Client,
	combat brackets.CombatOracle,
	recovery *RecoveryManager,
	events EventPublisher,
	m *metrics.Metrics,
	offsetRounds uint64,
	logger *slog.Logger,
) *DuelService {
	return &DuelService{
		duels:        duels,
		registry:     registry,
		oracle:       orc,
		combat:       combat,
		recovery:     recovery,
		events:       events,
		metrics:      m,
		logger:       logger,
		now:          defaultNow,
		offsetRounds: offsetRounds,
	}
}

// Create opens a duel between two distinct, non-retired competitors.
func (s *DuelService) Create(ctx context.Context, fighterAID, fighterBID int64) (*models.Duel, error) {
	if fighterAID == fighterBID {
		return nil, fmt.Errorf("%w: a competitor cannot duel itself", ErrCompetitorIneligible)
	}
	for _, id := range []int64{fighterAID, fighterBID} {
		retired, err := s.registry.IsRetired(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("check competitor %d: %w", id, err)
		}
		if retired {
			return nil, fmt.Errorf("%w: competitor %d is retired", ErrCompetitorIneligible, id)
		}
	}

	round := s.oracle.CurrentRound() + s.offsetRounds
	if _, err := s.oracle.RequestAt(round); err != nil {
		return nil, fmt.Errorf("request duel randomness: %w", err)
	}

	duel := &models.Duel{
		ID:         uuid.New(),
		FighterAID: fighterAID,
		FighterBID: fighterBID,
		Round:      round,
		Status:     models.DuelPending,
		CreatedAt:  s.now(),
	}
	if err := s.duels.Create(ctx, duel); err != nil {
		return nil, err
	}

	s.logger.Info("duel created", slog.String("duel_id", duel.ID.String()),
		slog.Int64("fighter_a", fighterAID), slog.Int64("fighter_b", fighterBID),
		slog.Uint64("round", round))
	return duel, nil
}

// Resolve settles a pending duel once its randomness round is available.
// An expired round cancels the duel instead.
func (s *DuelService) Resolve(ctx context.Context, id uuid.UUID) (*models.Duel, error) {
	duel, err := s.duels.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if duel.Status != models.DuelPending {
		return nil, repositories.ErrDuelNotPending
	}

	value, err := s.oracle.ValueFor(duel.Round)
	switch {
	case errors.Is(err, oracle.ErrNotYetAvailable):
		return nil, &CheckpointNotReachedError{Required: duel.Round, Current: s.oracle.CurrentRound()}
	case errors.Is(err, oracle.ErrExpired):
		if recErr := s.recovery.RecoverDuel(ctx, duel); recErr != nil {
			return nil, recErr
		}
		return nil, fmt.Errorf("duel %s round %d: %w", duel.ID, duel.Round, ErrRandomnessExpired)
	case err != nil:
		return nil, fmt.Errorf("fetch duel randomness: %w", err)
	}

	a, err := s.fighterFor(ctx, duel.FighterAID)
	if err != nil {
		return nil, err
	}
	b, err := s.fighterFor(ctx, duel.FighterBID)
	if err != nil {
		return nil, err
	}

	winnerIsA, outcome, _, err := s.combat.Resolve(ctx, a, b, value, false)
	if err != nil {
		return nil, fmt.Errorf("resolve duel %s: %w", duel.ID, err)
	}
	winner, loser := duel.FighterAID, duel.FighterBID
	if !winnerIsA {
		winner, loser = loser, winner
	}

	completedAt := s.now()
	if err := s.duels.Complete(ctx, duel.ID, models.DuelCompleted, &winner, outcome, completedAt); err != nil {
		return nil, err
	}
	if err := s.registry.RecordWin(ctx, winner); err != nil {
		s.logger.Warn("record duel win", slog.Int64("competitor_id", winner), slog.Any("error", err))
	}
	if err := s.registry.RecordLoss(ctx, loser); err != nil {
		s.logger.Warn("record duel loss", slog.Int64("competitor_id", loser), slog.Any("error", err))
	}

	duel.Status = models.DuelCompleted
	duel.WinnerID = &winner
	duel.Outcome = outcome
	duel.CompletedAt = &completedAt

	s.logger.Info("duel resolved", slog.String("duel_id", duel.ID.String()),
		slog.Int64("winner_id", winner))
	s.metrics.DuelsResolved.Inc()
	s.events.Publish(brackets.RoomGlobal, models.Event{
		Type:    models.EventDuelResolved,
		Payload: DuelEventPayload{DuelID: duel.ID.String()},
	})
	return duel, nil
}

func (s *DuelService) fighterFor(ctx context.Context, id int64) (brackets.Fighter, error) {
	c, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return brackets.Fighter{}, fmt.Errorf("load competitor %d: %w", id, err)
	}
	return brackets.Fighter{
		CompetitorID: c.ID,
		Name:         c.Name,
		Stats:        c.Stats,
		Appearance:   c.Appearance,
	}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aitbek01/arena-gauntlet/brackets"
	"github.com/Aitbek01/arena-gauntlet/metrics"
	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/Aitbek01/arena-gauntlet/oracle"
	"github.com/Aitbek01/arena-gauntlet/queue"
	"github.com/Aitbek01/arena-gauntlet/repositories"
)

// RecoveryManager cleans up runs and duels whose randomness window has
// passed or that stalled mid-pipeline. Every operation is idempotent:
// a second invocation for the same run or duel is a no-op.
type RecoveryManager struct {
	queue    *queue.Store
	runs     repositories.RunRepository
	pendings repositories.PendingRunRepository
	duels    repositories.DuelRepository
	oracle   oracle.Client
	events   EventPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      nowFunc

	duelTimeout time.Duration
}

func NewRecoveryManager(
	q *queue.Store,
	runs repositories.RunRepository,
	pendings repositories.PendingRunRepository,
	duels repositories.DuelRepository,
	orc oracle.Client,
	events EventPublisher,
	m *metrics.Metrics,
	duelTimeout time.Duration,
	logger *slog.Logger,
) *RecoveryManager {
	return &RecoveryManager{
		queue:       q,
		runs:        runs,
		pendings:    pendings,
		duels:       duels,
		oracle:      orc,
		events:      events,
		metrics:     m,
		logger:      logger,
		now:         defaultNow,
		duelTimeout: duelTimeout,
	}
}

// RecoverPendingRun discards a stale pending run. A run that never got
// past COMMITTED has nothing to restore; a run that reached SELECTED or
// READY returns its original participants to the queue before the run
// and pending records are deleted. Stand-ins are never requeued, and a
// competitor who rejoined the queue on their own is not enqueued twice.
func (r *RecoveryManager) RecoverPendingRun(ctx context.Context, pending *models.PendingRun) error {
	// Re-read by id so that two overlapping recoveries settle on one
	// winner: the loser observes the deleted record and stops.
	current, err := r.pendings.GetByID(ctx, pending.RunID)
	if err != nil {
		if errors.Is(err, repositories.ErrPendingRunNotFound) {
			return nil
		}
		return err
	}

	requeued := 0
	if current.Phase == models.PhaseSelected || current.Phase == models.PhaseReady {
		run, err := r.runs.GetByID(ctx, current.RunID)
		if err != nil && !errors.Is(err, repositories.ErrRunNotFound) {
			return fmt.Errorf("load run %d for recovery: %w", current.RunID, err)
		}
		if err == nil {
			for _, p := range run.Participants {
				if p.StandIn || r.queue.Contains(p.CompetitorID) {
					continue
				}
				entry := models.QueueEntry{
					CompetitorID: p.CompetitorID,
					Loadout:      p.Loadout,
					EnqueuedAt:   r.now(),
				}
				if err := r.queue.Add(entry); err != nil {
					r.logger.Error("requeue participant during recovery",
						slog.Int64("run_id", run.ID), slog.Int64("competitor_id", p.CompetitorID),
						slog.Any("error", err))
					continue
				}
				requeued++
			}
			if err := r.runs.Delete(ctx, nil, run.ID); err != nil {
				return fmt.Errorf("delete run %d during recovery: %w", run.ID, err)
			}
		}
	}

	if err := r.pendings.Delete(ctx, nil, current.RunID); err != nil {
		if errors.Is(err, repositories.ErrPendingRunNotFound) {
			return nil
		}
		return fmt.Errorf("delete pending run %d: %w", current.RunID, err)
	}

	r.logger.Info("pending run recovered",
		slog.Int64("run_id", current.RunID), slog.String("phase", string(current.Phase)),
		slog.Int("requeued", requeued))
	r.metrics.RunsRecovered.WithLabelValues(string(current.Phase)).Inc()
	r.metrics.QueueSize.Set(float64(r.queue.Len()))
	r.events.Publish(brackets.RoomGlobal, models.Event{
		Type:    models.EventRunRecovered,
		Payload: RecoveryEventPayload{RunID: current.RunID, Phase: current.Phase, Requeued: requeued},
	})
	return nil
}

// RecoverDuel cancels a pending duel whose randomness expired or whose
// age exceeds the duel timeout. A duel that is still live returns
// ErrDuelNotTimedOut.
func (r *RecoveryManager) RecoverDuel(ctx context.Context, duel *models.Duel) error {
	if duel.Status != models.DuelPending {
		return nil
	}

	_, err := r.oracle.ValueFor(duel.Round)
	expired := errors.Is(err, oracle.ErrExpired)
	timedOut := r.now().Sub(duel.CreatedAt) >= r.duelTimeout
	if !expired && !timedOut {
		return ErrDuelNotTimedOut
	}

	err = r.duels.Complete(ctx, duel.ID, models.DuelCanceled, nil, models.OutcomeDecision, r.now())
	if err != nil {
		if errors.Is(err, repositories.ErrDuelNotPending) {
			return nil
		}
		return fmt.Errorf("cancel duel %s: %w", duel.ID, err)
	}

	r.logger.Info("duel recovered", slog.String("duel_id", duel.ID.String()),
		slog.Bool("randomness_expired", expired))
	r.metrics.DuelsRecovered.Inc()
	r.events.Publish(brackets.RoomGlobal, models.Event{
		Type:    models.EventDuelRecovered,
		Payload: DuelEventPayload{DuelID: duel.ID.String()},
	})
	return nil
}

// SweepDuels cancels every pending duel older than the timeout. Errors
// on individual duels are logged and do not stop the sweep.
func (r *RecoveryManager) SweepDuels(ctx context.Context) (int, error) {
	stale, err := r.duels.ListPending(ctx, r.now().Add(-r.duelTimeout))
	if err != nil {
		return 0, fmt.Errorf("list stale duels: %w", err)
	}
	recovered := 0
	for i := range stale {
		if err := r.RecoverDuel(ctx, &stale[i]); err != nil {
			r.logger.Error("sweep duel", slog.String("duel_id", stale[i].ID.String()), slog.Any("error", err))
			continue
		}
		recovered++
	}
	return recovered, nil
}

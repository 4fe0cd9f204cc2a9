package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Aitbek01/arena-gauntlet/brackets"
	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/Aitbek01/arena-gauntlet/queue"
	"github.com/Aitbek01/arena-gauntlet/repositories"
)

// QueueService guards enqueue/withdraw with ownership, retirement and
// loadout validation before touching the queue store.
type QueueService struct {
	queue     *queue.Store
	registry  CompetitorRegistry
	validator LoadoutValidator
	events    EventPublisher
	logger    *slog.Logger
	now       nowFunc
}

func NewQueueService(
	store *queue.Store,
	registry CompetitorRegistry,
	validator LoadoutValidator,
	events EventPublisher,
	logger *slog.Logger,
) *QueueService {
	return &QueueService{
		queue:     store,
		registry:  registry,
		validator: validator,
		events:    events,
		logger:    logger,
		now:       defaultNow,
	}
}

func (s *QueueService) Join(ctx context.Context, callerID, competitorID int64, loadout models.Loadout) error {
	if err := s.checkOwner(ctx, callerID, competitorID); err != nil {
		return err
	}

	retired, err := s.registry.IsRetired(ctx, competitorID)
	if err != nil {
		return fmt.Errorf("check retirement of competitor %d: %w", competitorID, err)
	}
	if retired {
		return ErrCompetitorIneligible
	}

	if err := s.validator.ValidateLoadout(ctx, competitorID, loadout); err != nil {
		// Validation failures are translated, never propagated raw.
		if errors.Is(err, repositories.ErrSkinNotOwned) {
			return fmt.Errorf("%w: %v", ErrInvalidSkin, err)
		}
		return fmt.Errorf("%w: %v", ErrInvalidLoadout, err)
	}

	entry := models.QueueEntry{
		CompetitorID: competitorID,
		Loadout:      loadout,
		EnqueuedAt:   s.now(),
	}
	if err := s.queue.Add(entry); err != nil {
		if errors.Is(err, queue.ErrAlreadyQueued) {
			return ErrAlreadyQueued
		}
		return err
	}

	s.logger.Info("competitor joined queue",
		slog.Int64("competitor_id", competitorID), slog.Int("queue_size", s.queue.Len()))
	s.events.Publish(brackets.RoomGlobal, models.Event{
		Type:    models.EventQueueJoined,
		Payload: QueueEventPayload{CompetitorID: competitorID, QueueSize: s.queue.Len()},
	})
	return nil
}

func (s *QueueService) Leave(ctx context.Context, callerID, competitorID int64) error {
	if err := s.checkOwner(ctx, callerID, competitorID); err != nil {
		return err
	}

	if _, err := s.queue.Remove(competitorID); err != nil {
		if errors.Is(err, queue.ErrNotQueued) {
			return ErrNotQueued
		}
		return err
	}

	s.logger.Info("competitor left queue",
		slog.Int64("competitor_id", competitorID), slog.Int("queue_size", s.queue.Len()))
	s.events.Publish(brackets.RoomGlobal, models.Event{
		Type:    models.EventQueueLeft,
		Payload: QueueEventPayload{CompetitorID: competitorID, QueueSize: s.queue.Len()},
	})
	return nil
}

func (s *QueueService) Size() int {
	return s.queue.Len()
}

func (s *QueueService) Entries() []models.QueueEntry {
	return s.queue.Snapshot()
}

func (s *QueueService) checkOwner(ctx context.Context, callerID, competitorID int64) error {
	owner, err := s.registry.OwnerOf(ctx, competitorID)
	if err != nil {
		return fmt.Errorf("resolve owner of competitor %d: %w", competitorID, err)
	}
	if owner != callerID {
		return ErrNotOwner
	}
	return nil
}

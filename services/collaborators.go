package services

import (
	"context"

	"github.com/Aitbek01/arena-gauntlet/models"
)

// CompetitorRegistry is the external registry of competitor identity,
// ownership, retirement and lifetime counters. The Postgres competitor
// repository satisfies it; so does any remote registry client. It also
// satisfies brackets.Recorder, so the simulator can apply per-fight side
// effects through it directly.
type CompetitorRegistry interface {
	GetByID(ctx context.Context, id int64) (*models.Competitor, error)
	OwnerOf(ctx context.Context, id int64) (int64, error)
	IsRetired(ctx context.Context, id int64) (bool, error)
	Retire(ctx context.Context, id int64) error
	RecordWin(ctx context.Context, id int64) error
	RecordLoss(ctx context.Context, id int64) error
	RecordKill(ctx context.Context, id int64) error
	AwardExperience(ctx context.Context, id int64, points int) error
}

// LoadoutValidator checks that a competitor owns and may use a loadout.
// Implementations report failures as ordinary errors; services translate
// them and never propagate them raw.
type LoadoutValidator interface {
	ValidateLoadout(ctx context.Context, competitorID int64, loadout models.Loadout) error
}

// RewardIssuer mints a reward ticket of a category. Issuance is
// best-effort: callers catch failures, report a zero-amount reward and
// carry on.
type RewardIssuer interface {
	Issue(ctx context.Context, competitorID int64, category models.RewardCategory) error
}

// EventPublisher fans produced events out to operators and indexers. The
// websocket hub satisfies it.
type EventPublisher interface {
	Publish(room string, event models.Event)
}

// LogArchiver stores a run's encoded combat logs, returning the archive
// key. Archival is best-effort.
type LogArchiver interface {
	Archive(ctx context.Context, runID int64, logs [][]byte) (string, error)
}

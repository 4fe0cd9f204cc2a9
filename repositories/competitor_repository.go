package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Aitbek01/arena-gauntlet/models"
)

var (
	ErrCompetitorNotFound = errors.New("competitor not found")
	ErrSkinNotOwned       = errors.New("skin is not owned by competitor")
	ErrStanceUnknown      = errors.New("stance does not exist")
)

// CompetitorRepository is the Postgres-backed competitor registry:
// ownership, retirement, lifetime counters and stat blocks.
type CompetitorRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Competitor, error)
	OwnerOf(ctx context.Context, id int64) (int64, error)
	IsRetired(ctx context.Context, id int64) (bool, error)
	Retire(ctx context.Context, id int64) error
	RecordWin(ctx context.Context, id int64) error
	RecordLoss(ctx context.Context, id int64) error
	RecordKill(ctx context.Context, id int64) error
	AwardExperience(ctx context.Context, id int64, points int) error
	// ValidateLoadout checks the competitor owns the skin and the stance
	// exists. Failures surface as ErrSkinNotOwned / ErrStanceUnknown.
	ValidateLoadout(ctx context.Context, id int64, loadout models.Loadout) error
}

type postgresCompetitorRepository struct {
	db *sql.DB
}

func NewPostgresCompetitorRepository(db *sql.DB) CompetitorRepository {
	return &postgresCompetitorRepository{db: db}
}

func (r *postgresCompetitorRepository) GetByID(ctx context.Context, id int64) (*models.Competitor, error) {
	c := &models.Competitor{}
	query := `
		SELECT id, owner_id, name, retired, attack, defense, vitality, speed,
		       appearance, wins, losses, kills, experience, created_at
		FROM competitors
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Retired,
		&c.Stats.Attack, &c.Stats.Defense, &c.Stats.Vitality, &c.Stats.Speed,
		&c.Appearance, &c.Wins, &c.Losses, &c.Kills, &c.Experience, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCompetitorNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresCompetitorRepository) OwnerOf(ctx context.Context, id int64) (int64, error) {
	var ownerID int64
	err := r.db.QueryRowContext(ctx, `SELECT owner_id FROM competitors WHERE id = $1`, id).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrCompetitorNotFound
	}
	return ownerID, err
}

func (r *postgresCompetitorRepository) IsRetired(ctx context.Context, id int64) (bool, error) {
	var retired bool
	err := r.db.QueryRowContext(ctx, `SELECT retired FROM competitors WHERE id = $1`, id).Scan(&retired)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrCompetitorNotFound
	}
	return retired, err
}

func (r *postgresCompetitorRepository) Retire(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE competitors SET retired = TRUE WHERE id = $1`, id)
}

func (r *postgresCompetitorRepository) RecordWin(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE competitors SET wins = wins + 1 WHERE id = $1`, id)
}

func (r *postgresCompetitorRepository) RecordLoss(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE competitors SET losses = losses + 1 WHERE id = $1`, id)
}

func (r *postgresCompetitorRepository) RecordKill(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE competitors SET kills = kills + 1 WHERE id = $1`, id)
}

func (r *postgresCompetitorRepository) AwardExperience(ctx context.Context, id int64, points int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE competitors SET experience = experience + $1 WHERE id = $2`, points, id)
	if err != nil {
		return fmt.Errorf("award experience to competitor %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrCompetitorNotFound)
}

func (r *postgresCompetitorRepository) ValidateLoadout(ctx context.Context, id int64, loadout models.Loadout) error {
	var owned bool
	query := `SELECT EXISTS (SELECT 1 FROM competitor_skins WHERE competitor_id = $1 AND skin_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, id, loadout.SkinID).Scan(&owned); err != nil {
		return fmt.Errorf("check skin ownership: %w", err)
	}
	if !owned {
		return ErrSkinNotOwned
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM stances WHERE id = $1)`, loadout.StanceID).Scan(&exists); err != nil {
		return fmt.Errorf("check stance: %w", err)
	}
	if !exists {
		return ErrStanceUnknown
	}
	return nil
}

func (r *postgresCompetitorRepository) exec(ctx context.Context, query string, id int64) error {
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("update competitor %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrCompetitorNotFound)
}

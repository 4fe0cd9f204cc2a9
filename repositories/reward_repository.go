package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Aitbek01/arena-gauntlet/models"
)

var ErrRewardPolicyNotFound = errors.New("reward policy not found for tier")

// RewardPolicyRepository stores the ordered (category, weight) slot list
// per placement tier. Put replaces a tier's slots all-or-nothing; weight
// validation happens in the service layer before the write.
type RewardPolicyRepository interface {
	GetPolicy(ctx context.Context, tier models.PlacementTier) ([]models.RewardSlot, error)
	PutPolicy(ctx context.Context, tier models.PlacementTier, slots []models.RewardSlot) error
}

type postgresRewardPolicyRepository struct {
	db *sql.DB
}

func NewPostgresRewardPolicyRepository(db *sql.DB) RewardPolicyRepository {
	return &postgresRewardPolicyRepository{db: db}
}

func (r *postgresRewardPolicyRepository) GetPolicy(ctx context.Context, tier models.PlacementTier) ([]models.RewardSlot, error) {
	query := `
		SELECT category, weight
		FROM reward_policies
		WHERE tier = $1
		ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, tier)
	if err != nil {
		return nil, fmt.Errorf("query reward policy: %w", err)
	}
	defer rows.Close()

	var slots []models.RewardSlot
	for rows.Next() {
		var s models.RewardSlot
		if err := rows.Scan(&s.Category, &s.Weight); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, ErrRewardPolicyNotFound
	}
	return slots, nil
}

func (r *postgresRewardPolicyRepository) PutPolicy(ctx context.Context, tier models.PlacementTier, slots []models.RewardSlot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reward policy tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reward_policies WHERE tier = $1`, tier); err != nil {
		return fmt.Errorf("clear reward policy: %w", err)
	}
	query := `INSERT INTO reward_policies (tier, position, category, weight) VALUES ($1, $2, $3, $4)`
	for i, s := range slots {
		if _, err := tx.ExecContext(ctx, query, tier, i, s.Category, s.Weight); err != nil {
			return fmt.Errorf("insert reward slot %d: %w", i, err)
		}
	}
	return tx.Commit()
}

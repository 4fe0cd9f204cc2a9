package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Aitbek01/arena-gauntlet/models"
)

var ErrNegativeRatingDelta = errors.New("rating deltas must not be negative")

// RatingRepository is the per-competitor, per-period rating ledger. Points
// only accumulate.
type RatingRepository interface {
	Add(ctx context.Context, exec SQLExecutor, competitorID int64, period int, points int) error
	Get(ctx context.Context, competitorID int64, period int) (int, error)
	Leaderboard(ctx context.Context, period int, limit int) ([]models.RatingEntry, error)
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

func (r *postgresRatingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRatingRepository) Add(ctx context.Context, exec SQLExecutor, competitorID int64, period int, points int) error {
	if points < 0 {
		return ErrNegativeRatingDelta
	}
	if points == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rating_ledger (competitor_id, period, points)
		VALUES ($1, $2, $3)
		ON CONFLICT (competitor_id, period)
		DO UPDATE SET points = rating_ledger.points + EXCLUDED.points`
	if _, err := executor.ExecContext(ctx, query, competitorID, period, points); err != nil {
		return fmt.Errorf("accumulate rating for competitor %d: %w", competitorID, err)
	}
	return nil
}

func (r *postgresRatingRepository) Get(ctx context.Context, competitorID int64, period int) (int, error) {
	executor := r.getExecutor(nil)
	var points int
	query := `SELECT points FROM rating_ledger WHERE competitor_id = $1 AND period = $2`
	err := executor.QueryRowContext(ctx, query, competitorID, period).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return points, err
}

func (r *postgresRatingRepository) Leaderboard(ctx context.Context, period int, limit int) ([]models.RatingEntry, error) {
	executor := r.getExecutor(nil)
	query := `
		SELECT competitor_id, period, points
		FROM rating_ledger
		WHERE period = $1
		ORDER BY points DESC, competitor_id
		LIMIT $2`
	rows, err := executor.QueryContext(ctx, query, period, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []models.RatingEntry
	for rows.Next() {
		var e models.RatingEntry
		if err := rows.Scan(&e.CompetitorID, &e.Period, &e.Points); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

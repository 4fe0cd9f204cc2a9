package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Aitbek01/arena-gauntlet/models"
)

// TicketRepository is the issued-reward ledger. Issue appends one ticket
// per call; the distributor treats failures as best-effort.
type TicketRepository interface {
	Issue(ctx context.Context, competitorID int64, category models.RewardCategory) error
	CountByCompetitor(ctx context.Context, competitorID int64) (map[models.RewardCategory]int, error)
}

type postgresTicketRepository struct {
	db *sql.DB
}

func NewPostgresTicketRepository(db *sql.DB) TicketRepository {
	return &postgresTicketRepository{db: db}
}

func (r *postgresTicketRepository) Issue(ctx context.Context, competitorID int64, category models.RewardCategory) error {
	query := `
		INSERT INTO reward_tickets (competitor_id, category, issued_at)
		VALUES ($1, $2, now())`

	if _, err := r.db.ExecContext(ctx, query, competitorID, string(category)); err != nil {
		return fmt.Errorf("issue %s ticket to competitor %d: %w", category, competitorID, err)
	}
	return nil
}

func (r *postgresTicketRepository) CountByCompetitor(ctx context.Context, competitorID int64) (map[models.RewardCategory]int, error) {
	query := `
		SELECT category, count(*)
		FROM reward_tickets
		WHERE competitor_id = $1
		GROUP BY category`

	rows, err := r.db.QueryContext(ctx, query, competitorID)
	if err != nil {
		return nil, fmt.Errorf("count tickets of competitor %d: %w", competitorID, err)
	}
	defer rows.Close()

	counts := make(map[models.RewardCategory]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan ticket count: %w", err)
		}
		counts[models.RewardCategory(category)] = n
	}
	return counts, rows.Err()
}

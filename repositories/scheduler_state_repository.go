package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SchedulerStateRepository persists the tournament scheduler's cadence
// marker. The once-per-day commit gate reads it on startup, so a restart
// between a completed run and midnight cannot reopen the window.
type SchedulerStateRepository interface {
	LastCommitDay(ctx context.Context) (string, error)
	SetLastCommitDay(ctx context.Context, exec SQLExecutor, day string) error
	ClearLastCommitDay(ctx context.Context, exec SQLExecutor) error
}

// The scheduler_state table holds at most one row, keyed by a fixed id.
type postgresSchedulerStateRepository struct {
	db *sql.DB
}

func NewPostgresSchedulerStateRepository(db *sql.DB) SchedulerStateRepository {
	return &postgresSchedulerStateRepository{db: db}
}

func (r *postgresSchedulerStateRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// LastCommitDay returns the stored day in YYYY-MM-DD form, or an empty
// string when no commit has been recorded.
func (r *postgresSchedulerStateRepository) LastCommitDay(ctx context.Context) (string, error) {
	executor := r.getExecutor(nil)

	var day string
	query := `SELECT last_commit_day FROM scheduler_state WHERE id = TRUE`
	err := executor.QueryRowContext(ctx, query).Scan(&day)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load last commit day: %w", err)
	}
	return day, nil
}

func (r *postgresSchedulerStateRepository) SetLastCommitDay(ctx context.Context, exec SQLExecutor, day string) error {
	executor := r.getExecutor(exec)

	query := `
		INSERT INTO scheduler_state (id, last_commit_day)
		VALUES (TRUE, $1)
		ON CONFLICT (id) DO UPDATE SET last_commit_day = EXCLUDED.last_commit_day`
	if _, err := executor.ExecContext(ctx, query, day); err != nil {
		return fmt.Errorf("store last commit day: %w", err)
	}
	return nil
}

func (r *postgresSchedulerStateRepository) ClearLastCommitDay(ctx context.Context, exec SQLExecutor) error {
	executor := r.getExecutor(exec)

	query := `DELETE FROM scheduler_state WHERE id = TRUE`
	if _, err := executor.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("clear last commit day: %w", err)
	}
	return nil
}

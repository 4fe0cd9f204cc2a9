package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Aitbek01/arena-gauntlet/models"
)

var (
	ErrPendingRunNotFound = errors.New("pending run not found")
	ErrPendingRunConflict = errors.New("a pending run already exists for this kind")
)

// PendingRunRepository persists the checkpoint state carried between the
// separate commit/select/execute invocations. Create assigns the run id
// from the shared run id sequence.
type PendingRunRepository interface {
	Create(ctx context.Context, exec SQLExecutor, pending *models.PendingRun) error
	GetByID(ctx context.Context, runID int64) (*models.PendingRun, error)
	GetCurrent(ctx context.Context, kind models.RunKind) (*models.PendingRun, error)
	ListByKind(ctx context.Context, kind models.RunKind) ([]models.PendingRun, error)
	Update(ctx context.Context, exec SQLExecutor, pending *models.PendingRun) error
	Delete(ctx context.Context, exec SQLExecutor, runID int64) error
}

type postgresPendingRunRepository struct {
	db *sql.DB
}

func NewPostgresPendingRunRepository(db *sql.DB) PendingRunRepository {
	return &postgresPendingRunRepository{db: db}
}

func (r *postgresPendingRunRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPendingRunRepository) Create(ctx context.Context, exec SQLExecutor, p *models.PendingRun) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO pending_runs (run_id, kind, phase, selection_round, execution_round)
		VALUES (nextval('run_id_seq'), $1, $2, $3, $4)
		RETURNING run_id, created_at`
	err := executor.QueryRowContext(ctx, query, p.Kind, p.Phase, p.SelectionRound, p.ExecutionRound).
		Scan(&p.RunID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pending run: %w", err)
	}
	return nil
}

func (r *postgresPendingRunRepository) GetByID(ctx context.Context, runID int64) (*models.PendingRun, error) {
	return r.getOne(ctx, `WHERE run_id = $1`, runID)
}

// GetCurrent returns the single in-flight pending run for a kind. Only the
// calendar-cadence tournament uses it; the gauntlet tracks many.
func (r *postgresPendingRunRepository) GetCurrent(ctx context.Context, kind models.RunKind) (*models.PendingRun, error) {
	return r.getOne(ctx, `WHERE kind = $1 ORDER BY created_at LIMIT 1`, kind)
}

func (r *postgresPendingRunRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.PendingRun, error) {
	executor := r.getExecutor(nil)
	query := `
		SELECT run_id, kind, phase, selection_round, execution_round, created_at
		FROM pending_runs ` + where

	p := &models.PendingRun{}
	err := executor.QueryRowContext(ctx, query, arg).Scan(
		&p.RunID, &p.Kind, &p.Phase, &p.SelectionRound, &p.ExecutionRound, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPendingRunNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresPendingRunRepository) ListByKind(ctx context.Context, kind models.RunKind) ([]models.PendingRun, error) {
	executor := r.getExecutor(nil)
	query := `
		SELECT run_id, kind, phase, selection_round, execution_round, created_at
		FROM pending_runs
		WHERE kind = $1
		ORDER BY created_at`
	rows, err := executor.QueryContext(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("list pending runs: %w", err)
	}
	defer rows.Close()

	var pendings []models.PendingRun
	for rows.Next() {
		var p models.PendingRun
		if err := rows.Scan(&p.RunID, &p.Kind, &p.Phase, &p.SelectionRound, &p.ExecutionRound, &p.CreatedAt); err != nil {
			return nil, err
		}
		pendings = append(pendings, p)
	}
	return pendings, rows.Err()
}

func (r *postgresPendingRunRepository) Update(ctx context.Context, exec SQLExecutor, p *models.PendingRun) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE pending_runs
		SET phase = $1, selection_round = $2, execution_round = $3
		WHERE run_id = $4`
	result, err := executor.ExecContext(ctx, query, p.Phase, p.SelectionRound, p.ExecutionRound, p.RunID)
	if err != nil {
		return fmt.Errorf("update pending run %d: %w", p.RunID, err)
	}
	return checkAffectedRows(result, ErrPendingRunNotFound)
}

func (r *postgresPendingRunRepository) Delete(ctx context.Context, exec SQLExecutor, runID int64) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM pending_runs WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("delete pending run %d: %w", runID, err)
	}
	return checkAffectedRows(result, ErrPendingRunNotFound)
}

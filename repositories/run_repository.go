package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Aitbek01/arena-gauntlet/models"
)

var (
	ErrRunNotFound = errors.New("run not found")
)

type ListRunsFilter struct {
	Kind   *models.RunKind
	State  *models.RunState
	Limit  int
	Offset int
}

// RunCompletion carries everything Complete writes atomically: the podium,
// the elimination trace and any stand-in substitutions applied at
// execution time.
type RunCompletion struct {
	ChampionID      int64
	RunnerUpID      int64
	ChampionStandIn bool
	RunnerUpStandIn bool
	Eliminations    []models.Elimination
	Replacements    []models.RunParticipant
	CompletedAt     time.Time
}

type RunRepository interface {
	Create(ctx context.Context, exec SQLExecutor, run *models.Run) error
	GetByID(ctx context.Context, id int64) (*models.Run, error)
	List(ctx context.Context, filter ListRunsFilter) ([]models.Run, error)
	Complete(ctx context.Context, exec SQLExecutor, id int64, completion RunCompletion) error
	Delete(ctx context.Context, exec SQLExecutor, id int64) error
	LastCompleted(ctx context.Context, kind models.RunKind) (*models.Run, error)
}

type postgresRunRepository struct {
	db *sql.DB
}

func NewPostgresRunRepository(db *sql.DB) RunRepository {
	return &postgresRunRepository{db: db}
}

func (r *postgresRunRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRunRepository) Create(ctx context.Context, exec SQLExecutor, run *models.Run) error {
	executor := r.getExecutor(exec)

	query := `
		INSERT INTO runs (id, kind, size, state)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	if err := executor.QueryRowContext(ctx, query, run.ID, run.Kind, run.Size, run.State).Scan(&run.CreatedAt); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	participantQuery := `
		INSERT INTO run_participants (run_id, seat, competitor_id, skin_id, stance_id, stand_in, stand_in_id, replacement_cause)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, p := range run.Participants {
		_, err := executor.ExecContext(ctx, participantQuery,
			run.ID, p.Seat, p.CompetitorID, p.Loadout.SkinID, p.Loadout.StanceID, p.StandIn, p.StandInID, string(p.Cause))
		if err != nil {
			return fmt.Errorf("insert run participant seat %d: %w", p.Seat, err)
		}
	}
	return nil
}

func (r *postgresRunRepository) GetByID(ctx context.Context, id int64) (*models.Run, error) {
	executor := r.getExecutor(nil)

	run := &models.Run{}
	query := `
		SELECT id, kind, size, state, champion_id, runner_up_id, champion_stand_in, runner_up_stand_in, created_at, completed_at
		FROM runs
		WHERE id = $1`
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Kind, &run.Size, &run.State,
		&run.ChampionID, &run.RunnerUpID, &run.ChampionStandIn, &run.RunnerUpStandIn,
		&run.CreatedAt, &run.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	if run.Participants, err = r.participants(ctx, id); err != nil {
		return nil, err
	}
	if run.Eliminations, err = r.eliminations(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

func (r *postgresRunRepository) participants(ctx context.Context, runID int64) ([]models.RunParticipant, error) {
	query := `
		SELECT seat, competitor_id, skin_id, stance_id, stand_in, stand_in_id, replacement_cause
		FROM run_participants
		WHERE run_id = $1
		ORDER BY seat`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query run participants: %w", err)
	}
	defer rows.Close()

	var participants []models.RunParticipant
	for rows.Next() {
		var p models.RunParticipant
		var cause string
		if err := rows.Scan(&p.Seat, &p.CompetitorID, &p.Loadout.SkinID, &p.Loadout.StanceID, &p.StandIn, &p.StandInID, &cause); err != nil {
			return nil, err
		}
		p.Cause = models.ReplacementCause(cause)
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *postgresRunRepository) eliminations(ctx context.Context, runID int64) ([]models.Elimination, error) {
	query := `
		SELECT competitor_id, stand_in, round, fight_index, outcome
		FROM run_eliminations
		WHERE run_id = $1
		ORDER BY round, fight_index`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query run eliminations: %w", err)
	}
	defer rows.Close()

	var eliminations []models.Elimination
	for rows.Next() {
		e := models.Elimination{RunID: runID}
		if err := rows.Scan(&e.CompetitorID, &e.StandIn, &e.Round, &e.FightIndex, &e.Outcome); err != nil {
			return nil, err
		}
		eliminations = append(eliminations, e)
	}
	return eliminations, rows.Err()
}

func (r *postgresRunRepository) List(ctx context.Context, filter ListRunsFilter) ([]models.Run, error) {
	executor := r.getExecutor(nil)

	query := `
		SELECT id, kind, size, state, champion_id, runner_up_id, champion_stand_in, runner_up_stand_in, created_at, completed_at
		FROM runs
		WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", argID)
		args = append(args, *filter.Kind)
		argID++
	}
	if filter.State != nil {
		query += fmt.Sprintf(" AND state = $%d", argID)
		args = append(args, *filter.State)
		argID++
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		if err := rows.Scan(&run.ID, &run.Kind, &run.Size, &run.State,
			&run.ChampionID, &run.RunnerUpID, &run.ChampionStandIn, &run.RunnerUpStandIn,
		&run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *postgresRunRepository) Complete(ctx context.Context, exec SQLExecutor, id int64, completion RunCompletion) error {
	executor := r.getExecutor(exec)

	query := `
		UPDATE runs
		SET state = $1, champion_id = $2, runner_up_id = $3,
			champion_stand_in = $4, runner_up_stand_in = $5, completed_at = $6
		WHERE id = $7 AND state = $8`
	result, err := executor.ExecContext(ctx, query,
		models.RunCompleted, completion.ChampionID, completion.RunnerUpID,
		completion.ChampionStandIn, completion.RunnerUpStandIn, completion.CompletedAt, id, models.RunPending)
	if err != nil {
		return fmt.Errorf("complete run %d: %w", id, err)
	}
	if err := checkAffectedRows(result, ErrRunNotFound); err != nil {
		return err
	}

	replacementQuery := `
		UPDATE run_participants
		SET stand_in = TRUE, stand_in_id = $1, replacement_cause = $2
		WHERE run_id = $3 AND seat = $4`
	for _, p := range completion.Replacements {
		if _, err := executor.ExecContext(ctx, replacementQuery, p.StandInID, string(p.Cause), id, p.Seat); err != nil {
			return fmt.Errorf("record replacement seat %d: %w", p.Seat, err)
		}
	}

	eliminationQuery := `
		INSERT INTO run_eliminations (run_id, competitor_id, stand_in, round, fight_index, outcome)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, e := range completion.Eliminations {
		if _, err := executor.ExecContext(ctx, eliminationQuery, id, e.CompetitorID, e.StandIn, e.Round, e.FightIndex, e.Outcome); err != nil {
			return fmt.Errorf("insert elimination round %d fight %d: %w", e.Round, e.FightIndex, err)
		}
	}
	return nil
}

func (r *postgresRunRepository) Delete(ctx context.Context, exec SQLExecutor, id int64) error {
	executor := r.getExecutor(exec)

	// Participants and eliminations cascade via FK.
	result, err := executor.ExecContext(ctx, `DELETE FROM runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete run %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrRunNotFound)
}

func (r *postgresRunRepository) LastCompleted(ctx context.Context, kind models.RunKind) (*models.Run, error) {
	executor := r.getExecutor(nil)

	run := &models.Run{}
	query := `
		SELECT id, kind, size, state, champion_id, runner_up_id, champion_stand_in, runner_up_stand_in, created_at, completed_at
		FROM runs
		WHERE kind = $1 AND state = $2
		ORDER BY completed_at DESC
		LIMIT 1`
	err := executor.QueryRowContext(ctx, query, kind, models.RunCompleted).Scan(
		&run.ID, &run.Kind, &run.Size, &run.State,
		&run.ChampionID, &run.RunnerUpID, &run.ChampionStandIn, &run.RunnerUpStandIn,
		&run.CreatedAt, &run.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/google/uuid"
)

var (
	ErrDuelNotFound   = errors.New("duel not found")
	ErrDuelNotPending = errors.New("duel is not pending")
)

type DuelRepository interface {
	Create(ctx context.Context, duel *models.Duel) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Duel, error)
	// Complete transitions a pending duel to the given terminal status. A
	// nil winner with DuelCanceled records a timeout without a result.
	Complete(ctx context.Context, id uuid.UUID, status models.DuelStatus, winnerID *int64, outcome models.OutcomeTag, completedAt time.Time) error
	ListPending(ctx context.Context, olderThan time.Time) ([]models.Duel, error)
}

type postgresDuelRepository struct {
	db *sql.DB
}

func NewPostgresDuelRepository(db *sql.DB) DuelRepository {
	return &postgresDuelRepository{db: db}
}

func (r *postgresDuelRepository) Create(ctx context.Context, d *models.Duel) error {
	query := `
		INSERT INTO duels (id, fighter_a_id, fighter_b_id, round, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, d.ID, d.FighterAID, d.FighterBID, d.Round, d.Status).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert duel: %w", err)
	}
	return nil
}

func (r *postgresDuelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Duel, error) {
	d := &models.Duel{}
	var outcome sql.NullString
	query := `
		SELECT id, fighter_a_id, fighter_b_id, round, status, winner_id, outcome, created_at, completed_at
		FROM duels
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.FighterAID, &d.FighterBID, &d.Round, &d.Status, &d.WinnerID, &outcome, &d.CreatedAt, &d.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDuelNotFound
		}
		return nil, err
	}
	if outcome.Valid {
		d.Outcome = models.OutcomeTag(outcome.String)
	}
	return d, nil
}

func (r *postgresDuelRepository) Complete(ctx context.Context, id uuid.UUID, status models.DuelStatus, winnerID *int64, outcome models.OutcomeTag, completedAt time.Time) error {
	query := `
		UPDATE duels
		SET status = $1, winner_id = $2, outcome = NULLIF($3, ''), completed_at = $4
		WHERE id = $5 AND status = $6`
	result, err := r.db.ExecContext(ctx, query, status, winnerID, string(outcome), completedAt, id, models.DuelPending)
	if err != nil {
		return fmt.Errorf("complete duel %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrDuelNotPending)
}

func (r *postgresDuelRepository) ListPending(ctx context.Context, olderThan time.Time) ([]models.Duel, error) {
	query := `
		SELECT id, fighter_a_id, fighter_b_id, round, status, winner_id, outcome, created_at, completed_at
		FROM duels
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, models.DuelPending, olderThan)
	if err != nil {
		return nil, fmt.Errorf("list pending duels: %w", err)
	}
	defer rows.Close()

	var duels []models.Duel
	for rows.Next() {
		var d models.Duel
		var outcome sql.NullString
		if err := rows.Scan(&d.ID, &d.FighterAID, &d.FighterBID, &d.Round, &d.Status, &d.WinnerID, &outcome, &d.CreatedAt, &d.CompletedAt); err != nil {
			return nil, err
		}
		if outcome.Valid {
			d.Outcome = models.OutcomeTag(outcome.String)
		}
		duels = append(duels, d)
	}
	return duels, rows.Err()
}

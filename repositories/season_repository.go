package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/markovtsev/ladder-system/models"
)

var ErrSeasonNotFound = errors.New("season not found")

type SeasonRepository interface {
	Create(ctx context.Context, season *models.Season) error
	GetByID(ctx context.Context, id int) (*models.Season, error)
	GetActive(ctx context.Context) (*models.Season, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.SeasonStatus) error
	SetPlayoffWinner(ctx context.Context, exec SQLExecutor, id, winnerID int) error
}

type postgresSeasonRepository struct {
	db *sql.DB
}

func NewPostgresSeasonRepository(db *sql.DB) SeasonRepository {
	return &postgresSeasonRepository{db: db}
}

const seasonColumns = `id, name, status, wildcards_per_player, playoff_winner_id, created_at`

func (r *postgresSeasonRepository) Create(ctx context.Context, season *models.Season) error {
	query := `
		INSERT INTO seasons (name, status, wildcards_per_player)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, season.Name, season.Status, season.WildcardsPerPlayer).
		Scan(&season.ID, &season.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create season: %w", err)
	}
	return nil
}

func (r *postgresSeasonRepository) GetByID(ctx context.Context, id int) (*models.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetActive returns the season currently in active or playoffs status.
// There is at most one at a time.
func (r *postgresSeasonRepository) GetActive(ctx context.Context) (*models.Season, error) {
	query := `
		SELECT ` + seasonColumns + `
		FROM seasons
		WHERE status IN ($1, $2)
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, models.SeasonActive, models.SeasonPlayoffs))
}

func (r *postgresSeasonRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.SeasonStatus) error {
	query := `UPDATE seasons SET status = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status for season %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrSeasonNotFound)
}

func (r *postgresSeasonRepository) SetPlayoffWinner(ctx context.Context, exec SQLExecutor, id, winnerID int) error {
	query := `UPDATE seasons SET playoff_winner_id = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, winnerID, id)
	if err != nil {
		return fmt.Errorf("failed to set playoff winner for season %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrSeasonNotFound)
}

func (r *postgresSeasonRepository) scanOne(row *sql.Row) (*models.Season, error) {
	season := &models.Season{}
	err := row.Scan(
		&season.ID, &season.Name, &season.Status, &season.WildcardsPerPlayer,
		&season.PlayoffWinnerID, &season.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, fmt.Errorf("failed to scan season: %w", err)
	}
	return season, nil
}

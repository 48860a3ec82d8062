package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/markovtsev/ladder-system/models"
)

var (
	ErrLadderPositionNotFound = errors.New("ladder position not found")
	ErrLadderPositionConflict = errors.New("ladder position already occupied")
	ErrLadderSeasonInvalid    = errors.New("ladder position season conflict or invalid")
	ErrLadderUserInvalid      = errors.New("ladder position user conflict or invalid")
)

// LadderRepository is the persisted ladder store. Every method takes an
// SQLExecutor so the position engine can run a whole shift sequence inside
// one transaction.
type LadderRepository interface {
	Create(ctx context.Context, exec SQLExecutor, pos *models.LadderPosition) error
	GetActiveByUser(ctx context.Context, exec SQLExecutor, seasonID, userID int) (*models.LadderPosition, error)
	ListActiveBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.LadderPosition, error)
	ListSentinel(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.LadderPosition, error)
	UpdatePosition(ctx context.Context, exec SQLExecutor, id, position int) error
	SoftDelete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresLadderRepository struct{}

func NewPostgresLadderRepository() LadderRepository {
	return &postgresLadderRepository{}
}

const ladderColumns = `id, season_id, user_id, position, is_active, created_at, updated_at`

func (r *postgresLadderRepository) Create(ctx context.Context, exec SQLExecutor, pos *models.LadderPosition) error {
	query := `
		INSERT INTO ladder_positions (season_id, user_id, position, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, created_at, updated_at`

	err := exec.QueryRowContext(ctx, query, pos.SeasonID, pos.UserID, pos.Position).
		Scan(&pos.ID, &pos.CreatedAt, &pos.UpdatedAt)
	if err != nil {
		return r.handleLadderError(err)
	}
	pos.IsActive = true
	return nil
}

func (r *postgresLadderRepository) GetActiveByUser(ctx context.Context, exec SQLExecutor, seasonID, userID int) (*models.LadderPosition, error) {
	query := `
		SELECT ` + ladderColumns + `
		FROM ladder_positions
		WHERE season_id = $1 AND user_id = $2 AND is_active`

	pos := &models.LadderPosition{}
	err := exec.QueryRowContext(ctx, query, seasonID, userID).Scan(
		&pos.ID, &pos.SeasonID, &pos.UserID, &pos.Position, &pos.IsActive, &pos.CreatedAt, &pos.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLadderPositionNotFound
		}
		return nil, fmt.Errorf("failed to scan ladder position for user %d: %w", userID, err)
	}
	return pos, nil
}

func (r *postgresLadderRepository) ListActiveBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.LadderPosition, error) {
	query := `
		SELECT ` + ladderColumns + `
		FROM ladder_positions
		WHERE season_id = $1 AND is_active AND position <> $2
		ORDER BY position ASC`

	return r.list(ctx, exec, query, seasonID, models.SentinelPosition)
}

func (r *postgresLadderRepository) ListSentinel(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.LadderPosition, error) {
	query := `
		SELECT ` + ladderColumns + `
		FROM ladder_positions
		WHERE season_id = $1 AND is_active AND position = $2
		ORDER BY id ASC`

	return r.list(ctx, exec, query, seasonID, models.SentinelPosition)
}

func (r *postgresLadderRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.LadderPosition, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ladder positions: %w", err)
	}
	defer rows.Close()

	positions := make([]*models.LadderPosition, 0)
	for rows.Next() {
		var pos models.LadderPosition
		if scanErr := rows.Scan(
			&pos.ID, &pos.SeasonID, &pos.UserID, &pos.Position, &pos.IsActive, &pos.CreatedAt, &pos.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan ladder position row: %w", scanErr)
		}
		positions = append(positions, &pos)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during ladder position rows iteration: %w", err)
	}
	return positions, nil
}

func (r *postgresLadderRepository) UpdatePosition(ctx context.Context, exec SQLExecutor, id, position int) error {
	query := `UPDATE ladder_positions SET position = $1, updated_at = NOW() WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, position, id)
	if err != nil {
		return r.handleLadderError(err)
	}
	return checkAffectedRows(result, ErrLadderPositionNotFound)
}

func (r *postgresLadderRepository) SoftDelete(ctx context.Context, exec SQLExecutor, id int) error {
	// The position value is retained for history; the partial unique index
	// only covers is_active rows.
	query := `UPDATE ladder_positions SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`
	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete ladder position %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrLadderPositionNotFound)
}

func (r *postgresLadderRepository) handleLadderError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "ladder_positions_season_position_active_key":
			return ErrLadderPositionConflict
		case "ladder_positions_season_id_fkey":
			return ErrLadderSeasonInvalid
		case "ladder_positions_user_id_fkey":
			return ErrLadderUserInvalid
		}
	}
	return err
}

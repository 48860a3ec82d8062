package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/markovtsev/ladder-system/models"
)

var ErrLadderHistoryNotFound = errors.New("ladder history entry not found")

type LadderHistoryRepository interface {
	Create(ctx context.Context, entry *models.LadderHistory) error
	ListByUser(ctx context.Context, seasonID, userID int) ([]*models.LadderHistory, error)

	// LatestByReason returns the user's most recent entry with the given
	// reason, or ErrLadderHistoryNotFound.
	LatestByReason(ctx context.Context, seasonID, userID int, reason models.LadderHistoryReason) (*models.LadderHistory, error)
}

type postgresLadderHistoryRepository struct {
	db *sql.DB
}

func NewPostgresLadderHistoryRepository(db *sql.DB) LadderHistoryRepository {
	return &postgresLadderHistoryRepository{db: db}
}

func (r *postgresLadderHistoryRepository) Create(ctx context.Context, entry *models.LadderHistory) error {
	query := `
		INSERT INTO ladder_history (season_id, user_id, previous_position, new_position, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		entry.SeasonID, entry.UserID, entry.PreviousPosition, entry.NewPosition, entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ladder history entry: %w", err)
	}
	return nil
}

func (r *postgresLadderHistoryRepository) ListByUser(ctx context.Context, seasonID, userID int) ([]*models.LadderHistory, error) {
	query := `
		SELECT id, season_id, user_id, previous_position, new_position, reason, created_at
		FROM ladder_history
		WHERE season_id = $1 AND user_id = $2
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, seasonID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ladder history for user %d: %w", userID, err)
	}
	defer rows.Close()

	entries := make([]*models.LadderHistory, 0)
	for rows.Next() {
		var e models.LadderHistory
		if scanErr := rows.Scan(
			&e.ID, &e.SeasonID, &e.UserID, &e.PreviousPosition, &e.NewPosition, &e.Reason, &e.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan ladder history row: %w", scanErr)
		}
		entries = append(entries, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during ladder history rows iteration: %w", err)
	}
	return entries, nil
}

func (r *postgresLadderHistoryRepository) LatestByReason(ctx context.Context, seasonID, userID int, reason models.LadderHistoryReason) (*models.LadderHistory, error) {
	query := `
		SELECT id, season_id, user_id, previous_position, new_position, reason, created_at
		FROM ladder_history
		WHERE season_id = $1 AND user_id = $2 AND reason = $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var e models.LadderHistory
	err := r.db.QueryRowContext(ctx, query, seasonID, userID, reason).Scan(
		&e.ID, &e.SeasonID, &e.UserID, &e.PreviousPosition, &e.NewPosition, &e.Reason, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLadderHistoryNotFound
		}
		return nil, fmt.Errorf("failed to query latest %s history entry for user %d: %w", reason, userID, err)
	}
	return &e, nil
}

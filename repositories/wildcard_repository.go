package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/markovtsev/ladder-system/models"
)

type WildcardRepository interface {
	Create(ctx context.Context, usage *models.WildcardUsage) error
	CountByUser(ctx context.Context, seasonID, userID int) (int, error)
}

type postgresWildcardRepository struct {
	db *sql.DB
}

func NewPostgresWildcardRepository(db *sql.DB) WildcardRepository {
	return &postgresWildcardRepository{db: db}
}

func (r *postgresWildcardRepository) Create(ctx context.Context, usage *models.WildcardUsage) error {
	query := `
		INSERT INTO wildcard_usages (season_id, user_id, challenge_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, usage.SeasonID, usage.UserID, usage.ChallengeID).
		Scan(&usage.ID, &usage.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record wildcard usage: %w", err)
	}
	return nil
}

func (r *postgresWildcardRepository) CountByUser(ctx context.Context, seasonID, userID int) (int, error) {
	query := `SELECT COUNT(*) FROM wildcard_usages WHERE season_id = $1 AND user_id = $2`

	var count int
	if err := r.db.QueryRowContext(ctx, query, seasonID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count wildcard usage for user %d: %w", userID, err)
	}
	return count, nil
}

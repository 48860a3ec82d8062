package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/markovtsev/ladder-system/models"
)

var (
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrChallengeUserInvalid = errors.New("challenge user conflict or invalid")
)

type ChallengeRepository interface {
	Create(ctx context.Context, challenge *models.Challenge) error
	GetByID(ctx context.Context, id int) (*models.Challenge, error)
	ListBySeason(ctx context.Context, seasonID int, status *models.ChallengeStatus) ([]*models.Challenge, error)
	// HasActiveForUser reports whether the user holds a pending or accepted
	// challenge anywhere in the system, as challenger or challenged.
	HasActiveForUser(ctx context.Context, userID int) (bool, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ChallengeStatus) error
	SetAccepted(ctx context.Context, exec SQLExecutor, id int, date time.Time, location *string) error
}

type postgresChallengeRepository struct {
	db *sql.DB
}

func NewPostgresChallengeRepository(db *sql.DB) ChallengeRepository {
	return &postgresChallengeRepository{db: db}
}

const challengeColumns = `id, season_id, challenger_id, challenged_id, is_wildcard, status,
	proposed_date, proposed_location, accepted_date, accepted_location, created_at`

func (r *postgresChallengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	query := `
		INSERT INTO challenges
			(season_id, challenger_id, challenged_id, is_wildcard, status, proposed_date, proposed_location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		challenge.SeasonID,
		challenge.ChallengerID,
		challenge.ChallengedID,
		challenge.IsWildcard,
		challenge.Status,
		challenge.ProposedDate,
		challenge.ProposedLocation,
	).Scan(&challenge.ID, &challenge.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "challenges_challenger_id_fkey", "challenges_challenged_id_fkey":
				return ErrChallengeUserInvalid
			}
		}
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

func (r *postgresChallengeRepository) GetByID(ctx context.Context, id int) (*models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`

	ch := &models.Challenge{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ch.ID, &ch.SeasonID, &ch.ChallengerID, &ch.ChallengedID, &ch.IsWildcard, &ch.Status,
		&ch.ProposedDate, &ch.ProposedLocation, &ch.AcceptedDate, &ch.AcceptedLocation, &ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to scan challenge %d: %w", id, err)
	}
	return ch, nil
}

func (r *postgresChallengeRepository) ListBySeason(ctx context.Context, seasonID int, status *models.ChallengeStatus) ([]*models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE season_id = $1`
	args := []interface{}{seasonID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges for season %d: %w", seasonID, err)
	}
	defer rows.Close()

	challenges := make([]*models.Challenge, 0)
	for rows.Next() {
		var ch models.Challenge
		if scanErr := rows.Scan(
			&ch.ID, &ch.SeasonID, &ch.ChallengerID, &ch.ChallengedID, &ch.IsWildcard, &ch.Status,
			&ch.ProposedDate, &ch.ProposedLocation, &ch.AcceptedDate, &ch.AcceptedLocation, &ch.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan challenge row: %w", scanErr)
		}
		challenges = append(challenges, &ch)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during challenge rows iteration: %w", err)
	}
	return challenges, nil
}

func (r *postgresChallengeRepository) HasActiveForUser(ctx context.Context, userID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM challenges
			WHERE (challenger_id = $1 OR challenged_id = $1)
			  AND status IN ($2, $3)
		)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID, models.ChallengePending, models.ChallengeAccepted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active challenges for user %d: %w", userID, err)
	}
	return exists, nil
}

func (r *postgresChallengeRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ChallengeStatus) error {
	query := `UPDATE challenges SET status = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status for challenge %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrChallengeNotFound)
}

func (r *postgresChallengeRepository) SetAccepted(ctx context.Context, exec SQLExecutor, id int, date time.Time, location *string) error {
	query := `
		UPDATE challenges
		SET status = $1, accepted_date = $2, accepted_location = $3
		WHERE id = $4`
	result, err := exec.ExecContext(ctx, query, models.ChallengeAccepted, date, location, id)
	if err != nil {
		return fmt.Errorf("failed to accept challenge %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrChallengeNotFound)
}

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/markovtsev/ladder-system/models"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchUserInvalid = errors.New("match player conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListBySeason(ctx context.Context, seasonID int, matchType *models.MatchType) ([]*models.Match, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, id int, sets []models.SetScore, finalSetType *models.FinalSetType, winnerID int, completedAt time.Time) error
	SetDisputed(ctx context.Context, id, byUserID int) error
	ClearDispute(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, challenge_id, season_id, player1_id, player2_id, match_type,
	sets, final_set_type, winner_id, completed_at, is_disputed, disputed_by_user_id,
	round_number, bracket_position, player1_seed, player2_seed, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	setsJSON, err := marshalSets(match.Sets)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO matches
			(challenge_id, season_id, player1_id, player2_id, match_type, sets,
			 round_number, bracket_position, player1_seed, player2_seed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err = exec.QueryRowContext(ctx, query,
		match.ChallengeID,
		match.SeasonID,
		match.Player1ID,
		match.Player2ID,
		match.MatchType,
		setsJSON,
		match.RoundNumber,
		match.BracketPosition,
		match.Player1Seed,
		match.Player2Seed,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "matches_player1_id_fkey", "matches_player2_id_fkey":
				return ErrMatchUserInvalid
			}
		}
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListBySeason(ctx context.Context, seasonID int, matchType *models.MatchType) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE season_id = $1`
	args := []interface{}{seasonID}
	if matchType != nil {
		query += ` AND match_type = $2`
		args = append(args, *matchType)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for season %d: %w", seasonID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id int, sets []models.SetScore, finalSetType *models.FinalSetType, winnerID int, completedAt time.Time) error {
	setsJSON, err := marshalSets(sets)
	if err != nil {
		return err
	}

	query := `
		UPDATE matches
		SET sets = $1, final_set_type = $2, winner_id = $3, completed_at = $4
		WHERE id = $5`
	result, err := exec.ExecContext(ctx, query, setsJSON, finalSetType, winnerID, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update result for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetDisputed(ctx context.Context, id, byUserID int) error {
	query := `UPDATE matches SET is_disputed = TRUE, disputed_by_user_id = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, byUserID, id)
	if err != nil {
		return fmt.Errorf("failed to mark match %d disputed: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ClearDispute(ctx context.Context, exec SQLExecutor, id int) error {
	query := `UPDATE matches SET is_disputed = FALSE, disputed_by_user_id = NULL WHERE id = $1`
	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to clear dispute on match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	match := &models.Match{}
	var setsJSON []byte
	err := row.Scan(
		&match.ID, &match.ChallengeID, &match.SeasonID, &match.Player1ID, &match.Player2ID,
		&match.MatchType, &setsJSON, &match.FinalSetType, &match.WinnerID, &match.CompletedAt,
		&match.IsDisputed, &match.DisputedByUserID,
		&match.RoundNumber, &match.BracketPosition, &match.Player1Seed, &match.Player2Seed,
		&match.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(setsJSON) > 0 {
		if err := json.Unmarshal(setsJSON, &match.Sets); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sets for match %d: %w", match.ID, err)
		}
	}
	return match, nil
}

func marshalSets(sets []models.SetScore) ([]byte, error) {
	if sets == nil {
		sets = []models.SetScore{}
	}
	data, err := json.Marshal(sets)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal set scores: %w", err)
	}
	return data, nil
}

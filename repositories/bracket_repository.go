package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/markovtsev/ladder-system/models"
)

var (
	ErrBracketNotFound = errors.New("playoff bracket not found")
	ErrBracketConflict = errors.New("playoff bracket already exists for season")
)

type BracketRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bracket *models.PlayoffBracket) error
	GetBySeason(ctx context.Context, seasonID int) (*models.PlayoffBracket, error)
	UpdateData(ctx context.Context, exec SQLExecutor, id int, data models.BracketData) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) Create(ctx context.Context, exec SQLExecutor, bracket *models.PlayoffBracket) error {
	dataJSON, err := json.Marshal(bracket.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal bracket data: %w", err)
	}

	query := `
		INSERT INTO playoff_brackets (season_id, format, bracket_data)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err = exec.QueryRowContext(ctx, query, bracket.SeasonID, bracket.Format, dataJSON).
		Scan(&bracket.ID, &bracket.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "playoff_brackets_season_id_key" {
			return ErrBracketConflict
		}
		return fmt.Errorf("failed to create playoff bracket: %w", err)
	}
	return nil
}

func (r *postgresBracketRepository) GetBySeason(ctx context.Context, seasonID int) (*models.PlayoffBracket, error) {
	query := `
		SELECT id, season_id, format, bracket_data, created_at
		FROM playoff_brackets
		WHERE season_id = $1`

	bracket := &models.PlayoffBracket{}
	var dataJSON []byte
	err := r.db.QueryRowContext(ctx, query, seasonID).Scan(
		&bracket.ID, &bracket.SeasonID, &bracket.Format, &dataJSON, &bracket.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to scan playoff bracket for season %d: %w", seasonID, err)
	}
	if err := json.Unmarshal(dataJSON, &bracket.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bracket data for season %d: %w", seasonID, err)
	}
	return bracket, nil
}

func (r *postgresBracketRepository) UpdateData(ctx context.Context, exec SQLExecutor, id int, data models.BracketData) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal bracket data: %w", err)
	}

	query := `UPDATE playoff_brackets SET bracket_data = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, dataJSON, id)
	if err != nil {
		return fmt.Errorf("failed to update bracket %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

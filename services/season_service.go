package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/markovtsev/ladder-system/models"
	"github.com/markovtsev/ladder-system/repositories"
)

type CreateSeasonInput struct {
	Name               string `json:"name"`
	WildcardsPerPlayer int    `json:"wildcards_per_player"`
}

type SeasonService interface {
	// Create registers a new season in pending status. Admin-only.
	Create(ctx context.Context, adminID int, input CreateSeasonInput) (*models.Season, error)

	// Activate moves a pending season to active so challenges can start.
	// Only one season may be active or in playoffs at a time.
	Activate(ctx context.Context, adminID, seasonID int) error

	GetByID(ctx context.Context, id int) (*models.Season, error)
	GetActive(ctx context.Context) (*models.Season, error)
}

type seasonService struct {
	txRunner   repositories.TxRunner
	seasonRepo repositories.SeasonRepository
	userRepo   repositories.UserRepository
}

func NewSeasonService(txRunner repositories.TxRunner, seasonRepo repositories.SeasonRepository, userRepo repositories.UserRepository) SeasonService {
	return &seasonService{txRunner: txRunner, seasonRepo: seasonRepo, userRepo: userRepo}
}

func (s *seasonService) Create(ctx context.Context, adminID int, input CreateSeasonInput) (*models.Season, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, fmt.Errorf("%w: season name is required", ErrValidationFailed)
	}
	if input.WildcardsPerPlayer < 0 {
		return nil, fmt.Errorf("%w: wildcards per player cannot be negative", ErrValidationFailed)
	}

	season := &models.Season{
		Name:               input.Name,
		Status:             models.SeasonPending,
		WildcardsPerPlayer: input.WildcardsPerPlayer,
	}
	if err := s.seasonRepo.Create(ctx, season); err != nil {
		return nil, err
	}
	return season, nil
}

func (s *seasonService) Activate(ctx context.Context, adminID, seasonID int) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}

	season, err := s.seasonRepo.GetByID(ctx, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return ErrSeasonNotFound
		}
		return err
	}
	if season.Status != models.SeasonPending {
		return fmt.Errorf("%w: cannot activate a %s season", ErrSeasonInvalidTransition, season.Status)
	}

	if _, err := s.seasonRepo.GetActive(ctx); err == nil {
		return fmt.Errorf("%w: another season is already running", ErrSeasonInvalidTransition)
	} else if !errors.Is(err, repositories.ErrSeasonNotFound) {
		return err
	}

	return s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.seasonRepo.UpdateStatus(ctx, exec, seasonID, models.SeasonActive)
	})
}

func (s *seasonService) GetByID(ctx context.Context, id int) (*models.Season, error) {
	season, err := s.seasonRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}
	return season, nil
}

func (s *seasonService) GetActive(ctx context.Context) (*models.Season, error) {
	season, err := s.seasonRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}
	return season, nil
}

func (s *seasonService) requireAdmin(ctx context.Context, userID int) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !user.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}

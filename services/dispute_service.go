package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/markovtsev/ladder-system/models"
	"github.com/markovtsev/ladder-system/repositories"
)

type DisputeAction string

const (
	DisputeConfirm DisputeAction = "confirm"
	DisputeReverse DisputeAction = "reverse"
)

type ResolveDisputeInput struct {
	Action DisputeAction `json:"action"`
	// Replacement result, required for reverse.
	Sets         []models.SetScore    `json:"sets,omitempty"`
	FinalSetType *models.FinalSetType `json:"final_set_type,omitempty"`
}

type DisputeService interface {
	// DisputeMatch flags a completed match; only a participant may raise it.
	DisputeMatch(ctx context.Context, matchID, userID int) error
	// ResolveDispute is admin-only. Confirm clears the flag without
	// touching scores or the ladder. Reverse replaces the result and, for
	// challenge matches where the winner actually changed, unwinds and/or
	// applies the corresponding promotion.
	ResolveDispute(ctx context.Context, matchID, adminID int, input ResolveDisputeInput) (*models.Match, error)
}

type disputeService struct {
	txRunner      repositories.TxRunner
	matchRepo     repositories.MatchRepository
	challengeRepo repositories.ChallengeRepository
	userRepo      repositories.UserRepository
	ladder        LadderService
	notifier      Notifier
	logger        *slog.Logger
}

func NewDisputeService(
	txRunner repositories.TxRunner,
	matchRepo repositories.MatchRepository,
	challengeRepo repositories.ChallengeRepository,
	userRepo repositories.UserRepository,
	ladder LadderService,
	notifier Notifier,
	logger *slog.Logger,
) DisputeService {
	return &disputeService{
		txRunner:      txRunner,
		matchRepo:     matchRepo,
		challengeRepo: challengeRepo,
		userRepo:      userRepo,
		ladder:        ladder,
		notifier:      notifier,
		logger:        logger,
	}
}

func (s *disputeService) DisputeMatch(ctx context.Context, matchID, userID int) error {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if !match.HasParticipant(userID) {
		return ErrNotMatchParticipant
	}
	if !match.IsCompleted() {
		return ErrMatchNotCompleted
	}
	if match.IsDisputed {
		return ErrMatchAlreadyDisputed
	}

	if err := s.matchRepo.SetDisputed(ctx, matchID, userID); err != nil {
		return err
	}

	s.notifier.Notify(ctx, match.Opponent(userID), "Match disputed",
		"Your opponent disputed the recorded result. An administrator will review it.")
	return nil
}

func (s *disputeService) ResolveDispute(ctx context.Context, matchID, adminID int, input ResolveDisputeInput) (*models.Match, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsDisputed {
		return nil, ErrMatchNotDisputed
	}

	switch input.Action {
	case DisputeConfirm:
		return s.confirm(ctx, match)
	case DisputeReverse:
		return s.reverse(ctx, match, input)
	default:
		return nil, fmt.Errorf("%w: unknown dispute action %q", ErrValidationFailed, input.Action)
	}
}

// confirm upholds the recorded result: the dispute flag is cleared and
// nothing else changes, no matter how often it is retried.
func (s *disputeService) confirm(ctx context.Context, match *models.Match) (*models.Match, error) {
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.matchRepo.ClearDispute(ctx, exec, match.ID)
	})
	if err != nil {
		return nil, err
	}
	match.IsDisputed = false
	match.DisputedByUserID = nil
	return match, nil
}

func (s *disputeService) reverse(ctx context.Context, match *models.Match, input ResolveDisputeInput) (*models.Match, error) {
	if len(input.Sets) < 2 || len(input.Sets) > 3 {
		return nil, ErrScoreSetCount
	}
	winnerSide := CalculateWinner(input.Sets)
	if winnerSide == 0 {
		return nil, ErrScoreNoWinner
	}

	newWinnerID := match.Player1ID
	if winnerSide == 2 {
		newWinnerID = match.Player2ID
	}
	originalWinnerID := *match.WinnerID
	completedAt := time.Now().UTC()

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.matchRepo.UpdateResult(ctx, exec, match.ID, input.Sets, input.FinalSetType, newWinnerID, completedAt); txErr != nil {
			return txErr
		}
		return s.matchRepo.ClearDispute(ctx, exec, match.ID)
	})
	if err != nil {
		return nil, err
	}

	// Ladder effects only apply to challenge matches, and only when the
	// winner actually changed. Identical winners with different scores
	// leave the ladder alone.
	if match.MatchType == models.MatchTypeChallenge && match.ChallengeID != nil && newWinnerID != originalWinnerID {
		if err := s.reverseLadderEffects(ctx, match, originalWinnerID, newWinnerID); err != nil {
			return nil, err
		}
	}

	match.Sets = input.Sets
	match.FinalSetType = input.FinalSetType
	match.WinnerID = &newWinnerID
	match.CompletedAt = &completedAt
	match.IsDisputed = false
	match.DisputedByUserID = nil

	s.notifier.Notify(ctx, newWinnerID, "Dispute resolved", "The disputed result was reversed in your favour.")
	s.notifier.Notify(ctx, originalWinnerID, "Dispute resolved", "The disputed result was reversed against you.")

	return match, nil
}

func (s *disputeService) reverseLadderEffects(ctx context.Context, match *models.Match, originalWinnerID, newWinnerID int) error {
	challenge, err := s.challengeRepo.GetByID(ctx, *match.ChallengeID)
	if err != nil {
		return err
	}

	// The original result only moved the ladder when the challenger won,
	// so that promotion is the only thing to unwind.
	if challenge.ChallengerID == originalWinnerID {
		originalLoserID := match.Opponent(originalWinnerID)
		if err := s.ladder.Rollback(ctx, match.SeasonID, originalWinnerID, originalLoserID); err != nil {
			return fmt.Errorf("failed to roll back promotion of %d: %w", originalWinnerID, err)
		}
	}

	// The corrected result promotes the challenger when they are the new
	// winner.
	if challenge.ChallengerID == newWinnerID {
		newLoserID := match.Opponent(newWinnerID)
		if err := s.ladder.Promote(ctx, match.SeasonID, newWinnerID, newLoserID); err != nil {
			return fmt.Errorf("failed to promote corrected winner %d: %w", newWinnerID, err)
		}
	}
	return nil
}

func (s *disputeService) getMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *disputeService) requireAdmin(ctx context.Context, userID int) error {
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

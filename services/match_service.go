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

// CalculateWinner reports which side won at least 2 of the (up to 3) sets:
// 1 for player1, 2 for player2, 0 when the scores produce no winner. Set
// scores are not validated against tennis scoring rules; any pair where one
// side is strictly larger counts as a set win.
func CalculateWinner(sets []models.SetScore) int {
	p1, p2 := 0, 0
	for _, set := range sets {
		switch {
		case set.Player1Score > set.Player2Score:
			p1++
		case set.Player2Score > set.Player1Score:
			p2++
		}
	}
	if p1 >= 2 {
		return 1
	}
	if p2 >= 2 {
		return 2
	}
	return 0
}

// BracketProgressor advances a playoff bracket after one of its matches
// completes. Implemented by the playoff service.
type BracketProgressor interface {
	ProgressToNextRound(ctx context.Context, matchID int) error
}

type SubmitScoreInput struct {
	Sets         []models.SetScore    `json:"sets"`
	FinalSetType *models.FinalSetType `json:"final_set_type,omitempty"`
}

type MatchService interface {
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListBySeason(ctx context.Context, seasonID int, matchType *models.MatchType) ([]*models.Match, error)
	// SubmitScore records a result. For challenge matches it completes the
	// originating challenge and promotes the challenger on a challenger
	// win; losing a defense never demotes the defender. For playoff
	// matches it advances the bracket.
	SubmitScore(ctx context.Context, matchID, submitterID int, input SubmitScoreInput) (*models.Match, error)
}

type matchService struct {
	txRunner      repositories.TxRunner
	matchRepo     repositories.MatchRepository
	challengeRepo repositories.ChallengeRepository
	ladder        LadderService
	progressor    BracketProgressor
	notifier      Notifier
	logger        *slog.Logger
}

func NewMatchService(
	txRunner repositories.TxRunner,
	matchRepo repositories.MatchRepository,
	challengeRepo repositories.ChallengeRepository,
	ladder LadderService,
	progressor BracketProgressor,
	notifier Notifier,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		txRunner:      txRunner,
		matchRepo:     matchRepo,
		challengeRepo: challengeRepo,
		ladder:        ladder,
		progressor:    progressor,
		notifier:      notifier,
		logger:        logger,
	}
}

func (s *matchService) GetByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListBySeason(ctx context.Context, seasonID int, matchType *models.MatchType) ([]*models.Match, error) {
	return s.matchRepo.ListBySeason(ctx, seasonID, matchType)
}

func (s *matchService) SubmitScore(ctx context.Context, matchID, submitterID int, input SubmitScoreInput) (*models.Match, error) {
	match, err := s.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(submitterID) {
		return nil, ErrNotMatchParticipant
	}
	if match.IsCompleted() {
		return nil, ErrMatchAlreadyCompleted
	}

	if len(input.Sets) < 2 || len(input.Sets) > 3 {
		return nil, ErrScoreSetCount
	}
	winnerSide := CalculateWinner(input.Sets)
	if winnerSide == 0 {
		return nil, ErrScoreNoWinner
	}

	winnerID := match.Player1ID
	if winnerSide == 2 {
		winnerID = match.Player2ID
	}
	loserID := match.Opponent(winnerID)
	completedAt := time.Now().UTC()

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.matchRepo.UpdateResult(ctx, exec, match.ID, input.Sets, input.FinalSetType, winnerID, completedAt); txErr != nil {
			return txErr
		}
		if match.MatchType == models.MatchTypeChallenge && match.ChallengeID != nil {
			return s.challengeRepo.UpdateStatus(ctx, exec, *match.ChallengeID, models.ChallengeCompleted)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	match.Sets = input.Sets
	match.FinalSetType = input.FinalSetType
	match.WinnerID = &winnerID
	match.CompletedAt = &completedAt

	switch {
	case match.MatchType == models.MatchTypeChallenge:
		if err := s.applyChallengeOutcome(ctx, match, winnerID, loserID); err != nil {
			return nil, err
		}
	case match.MatchType.IsPlayoff():
		if err := s.progressor.ProgressToNextRound(ctx, match.ID); err != nil {
			return nil, fmt.Errorf("failed to advance playoff bracket after match %d: %w", match.ID, err)
		}
	}

	s.notifier.Notify(ctx, winnerID, "Match result recorded", "Your win has been recorded.")
	s.notifier.Notify(ctx, loserID, "Match result recorded", "Your match result has been recorded.")

	return match, nil
}

// applyChallengeOutcome promotes the challenger when they won. A successful
// defense by the challenged player leaves the ladder untouched.
func (s *matchService) applyChallengeOutcome(ctx context.Context, match *models.Match, winnerID, loserID int) error {
	challenge, err := s.challengeRepo.GetByID(ctx, *match.ChallengeID)
	if err != nil {
		return err
	}
	if challenge.ChallengerID != winnerID {
		return nil
	}
	if err := s.ladder.Promote(ctx, match.SeasonID, winnerID, loserID); err != nil {
		return fmt.Errorf("failed to promote challenger %d: %w", winnerID, err)
	}
	return nil
}

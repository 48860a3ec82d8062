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

// maxChallengeRange is how many positions above their own a player may
// challenge without a wildcard.
const maxChallengeRange = 2

// CanChallenge is the pure eligibility rule. A regular challenge may only
// target a player ranked 1 or 2 slots above the challenger; a wildcard may
// target anyone else while budget remains.
func CanChallenge(challengerPosition, challengedPosition int, isWildcard bool, wildcardsRemaining int) bool {
	if isWildcard {
		return challengedPosition != challengerPosition && wildcardsRemaining > 0
	}
	diff := challengerPosition - challengedPosition
	return diff > 0 && diff <= maxChallengeRange
}

type CreateChallengeInput struct {
	ChallengedID     int       `json:"challenged_id"`
	IsWildcard       bool      `json:"is_wildcard"`
	ProposedDate     time.Time `json:"proposed_date"`
	ProposedLocation *string   `json:"proposed_location,omitempty"`
}

type AcceptChallengeInput struct {
	AcceptedDate     *time.Time `json:"accepted_date,omitempty"`
	AcceptedLocation *string    `json:"accepted_location,omitempty"`
}

type ChallengeService interface {
	Create(ctx context.Context, challengerID int, input CreateChallengeInput) (*models.Challenge, error)
	GetByID(ctx context.Context, id int) (*models.Challenge, error)
	ListBySeason(ctx context.Context, seasonID int, status *models.ChallengeStatus) ([]*models.Challenge, error)
	// Accept transitions pending→accepted and creates the challenge match
	// atomically with the transition.
	Accept(ctx context.Context, challengeID, userID int, input AcceptChallengeInput) (*models.Challenge, *models.Match, error)
	// Decline is the challenged player's rejection: pending→cancelled.
	Decline(ctx context.Context, challengeID, userID int) error
	// Withdraw is the challenger backing out: pending|accepted→withdrawn.
	Withdraw(ctx context.Context, challengeID, userID int) error
	WildcardsRemaining(ctx context.Context, seasonID, userID int) (int, error)
}

type challengeService struct {
	txRunner      repositories.TxRunner
	challengeRepo repositories.ChallengeRepository
	ladderRepo    repositories.LadderRepository
	wildcardRepo  repositories.WildcardRepository
	seasonRepo    repositories.SeasonRepository
	matchRepo     repositories.MatchRepository
	notifier      Notifier
	logger        *slog.Logger
}

func NewChallengeService(
	txRunner repositories.TxRunner,
	challengeRepo repositories.ChallengeRepository,
	ladderRepo repositories.LadderRepository,
	wildcardRepo repositories.WildcardRepository,
	seasonRepo repositories.SeasonRepository,
	matchRepo repositories.MatchRepository,
	notifier Notifier,
	logger *slog.Logger,
) ChallengeService {
	return &challengeService{
		txRunner:      txRunner,
		challengeRepo: challengeRepo,
		ladderRepo:    ladderRepo,
		wildcardRepo:  wildcardRepo,
		seasonRepo:    seasonRepo,
		matchRepo:     matchRepo,
		notifier:      notifier,
		logger:        logger,
	}
}

func (s *challengeService) WildcardsRemaining(ctx context.Context, seasonID, userID int) (int, error) {
	season, err := s.seasonRepo.GetByID(ctx, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return 0, ErrSeasonNotFound
		}
		return 0, err
	}
	used, err := s.wildcardRepo.CountByUser(ctx, seasonID, userID)
	if err != nil {
		return 0, err
	}
	remaining := season.WildcardsPerPlayer - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *challengeService) Create(ctx context.Context, challengerID int, input CreateChallengeInput) (*models.Challenge, error) {
	if input.ChallengedID == challengerID {
		return nil, ErrChallengeSelf
	}

	season, err := s.seasonRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, ErrSeasonNotActive
		}
		return nil, err
	}
	if season.Status != models.SeasonActive {
		return nil, ErrSeasonNotActive
	}

	var challengerPos, challengedPos *models.LadderPosition
	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var posErr error
		if challengerPos, posErr = s.ladderRepo.GetActiveByUser(ctx, exec, season.ID, challengerID); posErr != nil {
			return posErr
		}
		challengedPos, posErr = s.ladderRepo.GetActiveByUser(ctx, exec, season.ID, input.ChallengedID)
		return posErr
	})
	if err != nil {
		if errors.Is(err, repositories.ErrLadderPositionNotFound) {
			return nil, ErrLadderEntryNotFound
		}
		return nil, err
	}

	wildcardsRemaining := 0
	if input.IsWildcard {
		if wildcardsRemaining, err = s.WildcardsRemaining(ctx, season.ID, challengerID); err != nil {
			return nil, err
		}
		if wildcardsRemaining == 0 {
			return nil, ErrWildcardBudgetExceeded
		}
	}

	if !CanChallenge(challengerPos.Position, challengedPos.Position, input.IsWildcard, wildcardsRemaining) {
		return nil, ErrChallengeOutOfRange
	}

	// One active challenge per player, system-wide, on both sides.
	for _, userID := range []int{challengerID, input.ChallengedID} {
		active, checkErr := s.challengeRepo.HasActiveForUser(ctx, userID)
		if checkErr != nil {
			return nil, checkErr
		}
		if active {
			return nil, fmt.Errorf("%w: user %d", ErrChallengeConflict, userID)
		}
	}

	challenge := &models.Challenge{
		SeasonID:         season.ID,
		ChallengerID:     challengerID,
		ChallengedID:     input.ChallengedID,
		IsWildcard:       input.IsWildcard,
		Status:           models.ChallengePending,
		ProposedDate:     input.ProposedDate,
		ProposedLocation: input.ProposedLocation,
	}
	if err := s.challengeRepo.Create(ctx, challenge); err != nil {
		return nil, err
	}

	// Wildcard bookkeeping is best-effort; the challenge stands even when
	// the usage record fails.
	if input.IsWildcard {
		usage := &models.WildcardUsage{SeasonID: season.ID, UserID: challengerID, ChallengeID: challenge.ID}
		if usageErr := s.wildcardRepo.Create(ctx, usage); usageErr != nil {
			s.logger.Error("failed to record wildcard usage",
				slog.Int("challenge_id", challenge.ID), slog.Any("error", usageErr))
		}
	}

	s.notifier.Notify(ctx, input.ChallengedID, "New ladder challenge",
		fmt.Sprintf("You have been challenged. Proposed date: %s.", input.ProposedDate.Format(time.RFC1123)))

	return challenge, nil
}

func (s *challengeService) GetByID(ctx context.Context, id int) (*models.Challenge, error) {
	challenge, err := s.challengeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrChallengeNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return challenge, nil
}

func (s *challengeService) ListBySeason(ctx context.Context, seasonID int, status *models.ChallengeStatus) ([]*models.Challenge, error) {
	return s.challengeRepo.ListBySeason(ctx, seasonID, status)
}

func (s *challengeService) Accept(ctx context.Context, challengeID, userID int, input AcceptChallengeInput) (*models.Challenge, *models.Match, error) {
	challenge, err := s.GetByID(ctx, challengeID)
	if err != nil {
		return nil, nil, err
	}
	if challenge.ChallengedID != userID {
		return nil, nil, ErrNotChallengeParticipant
	}
	if challenge.Status != models.ChallengePending {
		return nil, nil, ErrChallengeInvalidTransition
	}

	acceptedDate := challenge.ProposedDate
	if input.AcceptedDate != nil {
		acceptedDate = *input.AcceptedDate
	}
	acceptedLocation := challenge.ProposedLocation
	if input.AcceptedLocation != nil {
		acceptedLocation = input.AcceptedLocation
	}

	match := &models.Match{
		ChallengeID: &challenge.ID,
		SeasonID:    challenge.SeasonID,
		Player1ID:   challenge.ChallengerID,
		Player2ID:   challenge.ChallengedID,
		MatchType:   models.MatchTypeChallenge,
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.challengeRepo.SetAccepted(ctx, exec, challenge.ID, acceptedDate, acceptedLocation); txErr != nil {
			return txErr
		}
		return s.matchRepo.Create(ctx, exec, match)
	})
	if err != nil {
		return nil, nil, err
	}

	challenge.Status = models.ChallengeAccepted
	challenge.AcceptedDate = &acceptedDate
	challenge.AcceptedLocation = acceptedLocation

	s.notifier.Notify(ctx, challenge.ChallengerID, "Challenge accepted",
		fmt.Sprintf("Your challenge was accepted for %s.", acceptedDate.Format(time.RFC1123)))

	return challenge, match, nil
}

func (s *challengeService) Decline(ctx context.Context, challengeID, userID int) error {
	challenge, err := s.GetByID(ctx, challengeID)
	if err != nil {
		return err
	}
	if challenge.ChallengedID != userID {
		return ErrNotChallengeParticipant
	}
	if challenge.Status != models.ChallengePending {
		return ErrChallengeInvalidTransition
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.challengeRepo.UpdateStatus(ctx, exec, challenge.ID, models.ChallengeCancelled)
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, challenge.ChallengerID, "Challenge declined", "Your challenge was declined.")
	return nil
}

func (s *challengeService) Withdraw(ctx context.Context, challengeID, userID int) error {
	challenge, err := s.GetByID(ctx, challengeID)
	if err != nil {
		return err
	}
	if challenge.ChallengerID != userID {
		return ErrNotChallengeParticipant
	}
	if !challenge.Status.IsActive() {
		return ErrChallengeInvalidTransition
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.challengeRepo.UpdateStatus(ctx, exec, challenge.ID, models.ChallengeWithdrawn)
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, challenge.ChallengedID, "Challenge withdrawn", "The challenge against you was withdrawn.")
	return nil
}

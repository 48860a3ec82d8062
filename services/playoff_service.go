package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markovtsev/ladder-system/brackets"
	"github.com/markovtsev/ladder-system/models"
	"github.com/markovtsev/ladder-system/repositories"
)

// BracketView aggregates everything a client needs to render the playoff
// tree for a season.
type BracketView struct {
	Season  *models.Season         `json:"season"`
	Bracket *models.PlayoffBracket `json:"bracket"`
	Players []*models.User         `json:"players"`
	Matches []*models.Match        `json:"matches"`
}

type PlayoffService interface {
	// StartPlayoffs seeds a bracket from the top ladder positions, creates
	// the first-round matches eagerly and flips the season to playoffs.
	// Admin-only; the season must be active and have no bracket yet.
	StartPlayoffs(ctx context.Context, adminID, seasonID int, format models.BracketFormat) (*models.PlayoffBracket, error)

	// ProgressToNextRound advances the bracket after a playoff match
	// completes. Later-round match rows are created lazily, once both
	// feeder matches are done. Completing the final completes the season.
	ProgressToNextRound(ctx context.Context, matchID int) error

	GetBracketView(ctx context.Context, seasonID int) (*BracketView, error)
}

type playoffService struct {
	txRunner    repositories.TxRunner
	bracketRepo repositories.BracketRepository
	matchRepo   repositories.MatchRepository
	ladderRepo  repositories.LadderRepository
	seasonRepo  repositories.SeasonRepository
	userRepo    repositories.UserRepository
	notifier    Notifier
	hub         *brackets.Hub
	logger      *slog.Logger
}

func NewPlayoffService(
	txRunner repositories.TxRunner,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	ladderRepo repositories.LadderRepository,
	seasonRepo repositories.SeasonRepository,
	userRepo repositories.UserRepository,
	notifier Notifier,
	hub *brackets.Hub,
	logger *slog.Logger,
) PlayoffService {
	return &playoffService{
		txRunner:    txRunner,
		bracketRepo: bracketRepo,
		matchRepo:   matchRepo,
		ladderRepo:  ladderRepo,
		seasonRepo:  seasonRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		hub:         hub,
		logger:      logger,
	}
}

func (s *playoffService) StartPlayoffs(ctx context.Context, adminID, seasonID int, format models.BracketFormat) (*models.PlayoffBracket, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if !format.Valid() {
		return nil, fmt.Errorf("%w: unknown playoff format %q", ErrValidationFailed, format)
	}

	season, err := s.seasonRepo.GetByID(ctx, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}
	if season.Status != models.SeasonActive {
		return nil, ErrSeasonNotActive
	}

	if _, err := s.bracketRepo.GetBySeason(ctx, seasonID); err == nil {
		return nil, ErrBracketAlreadyExists
	} else if !errors.Is(err, repositories.ErrBracketNotFound) {
		return nil, err
	}

	bracket := &models.PlayoffBracket{SeasonID: seasonID, Format: format}
	var participants []int

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		standings, txErr := s.ladderRepo.ListActiveBySeason(ctx, exec, seasonID)
		if txErr != nil {
			return txErr
		}
		needed := format.PlayerCount()
		if len(standings) < needed {
			return fmt.Errorf("%w: format %q needs %d, ladder has %d",
				ErrBracketNotEnoughPlayers, format, needed, len(standings))
		}

		// Seeds are the ladder order at playoff start, frozen into the
		// bracket from here on.
		seedToUser := make(map[int]int, needed)
		for i := 0; i < needed; i++ {
			seedToUser[i+1] = standings[i].UserID
			participants = append(participants, standings[i].UserID)
		}

		data, txErr := brackets.NewBracketData(format, seedToUser)
		if txErr != nil {
			return txErr
		}

		// Round 1 match rows are created eagerly; later rounds wait for
		// their feeders.
		matchType := brackets.RoundMatchType(format, 1)
		firstRound := &data.Rounds[0]
		for i := range firstRound.Matches {
			bm := &firstRound.Matches[i]
			roundNumber := 1
			position := bm.Position
			match := &models.Match{
				SeasonID:        seasonID,
				Player1ID:       *bm.Player1ID,
				Player2ID:       *bm.Player2ID,
				MatchType:       matchType,
				RoundNumber:     &roundNumber,
				BracketPosition: &position,
				Player1Seed:     &bm.Player1Seed,
				Player2Seed:     &bm.Player2Seed,
			}
			if txErr := s.matchRepo.Create(ctx, exec, match); txErr != nil {
				return txErr
			}
			bm.MatchID = &match.ID
		}

		bracket.Data = data
		if txErr := s.bracketRepo.Create(ctx, exec, bracket); txErr != nil {
			if errors.Is(txErr, repositories.ErrBracketConflict) {
				return ErrBracketAlreadyExists
			}
			return txErr
		}
		return s.seasonRepo.UpdateStatus(ctx, exec, seasonID, models.SeasonPlayoffs)
	})
	if err != nil {
		return nil, err
	}

	for _, userID := range participants {
		s.notifier.Notify(ctx, userID, "Playoffs started",
			fmt.Sprintf("The %s playoffs have started. Check the bracket for your first match.", format))
	}
	s.hub.BroadcastToRoom(brackets.SeasonRoom(seasonID), brackets.Event{
		Type:    brackets.EventPlayoffStarted,
		Payload: bracket,
	})

	return bracket, nil
}

func (s *playoffService) ProgressToNextRound(ctx context.Context, matchID int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	if !match.MatchType.IsPlayoff() || match.RoundNumber == nil || match.BracketPosition == nil {
		return fmt.Errorf("%w: match %d is not a playoff match", ErrValidationFailed, matchID)
	}
	if !match.IsCompleted() {
		return ErrMatchNotCompleted
	}

	bracket, err := s.bracketRepo.GetBySeason(ctx, match.SeasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return ErrBracketNotFound
		}
		return err
	}

	roundNumber := *match.RoundNumber
	position := *match.BracketPosition
	winnerID := *match.WinnerID

	if err := brackets.ApplyResult(&bracket.Data, roundNumber, position, winnerID, match.Sets); err != nil {
		if errors.Is(err, brackets.ErrMatchAlreadyScored) {
			return ErrMatchAlreadyCompleted
		}
		return err
	}

	if brackets.IsFinalRound(bracket.Format, roundNumber) {
		return s.completePlayoffs(ctx, bracket, match.SeasonID, winnerID)
	}

	completedBM, err := brackets.FindMatch(&bracket.Data, roundNumber, position)
	if err != nil {
		return err
	}
	slot, ok := brackets.NextSlotFor(bracket.Format, roundNumber, position)
	if !ok {
		return fmt.Errorf("no next slot for round %d position %d in format %q", roundNumber, position, bracket.Format)
	}
	targetBM, bothKnown, err := brackets.AssignWinner(&bracket.Data, slot, winnerID, brackets.WinnerSeed(*completedBM))
	if err != nil {
		return err
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if bothKnown && targetBM.MatchID == nil {
			nextMatch := &models.Match{
				SeasonID:        match.SeasonID,
				Player1ID:       *targetBM.Player1ID,
				Player2ID:       *targetBM.Player2ID,
				MatchType:       brackets.RoundMatchType(bracket.Format, slot.RoundNumber),
				RoundNumber:     &slot.RoundNumber,
				BracketPosition: &slot.Position,
				Player1Seed:     &targetBM.Player1Seed,
				Player2Seed:     &targetBM.Player2Seed,
			}
			if txErr := s.matchRepo.Create(ctx, exec, nextMatch); txErr != nil {
				return txErr
			}
			targetBM.MatchID = &nextMatch.ID
		}
		return s.bracketRepo.UpdateData(ctx, exec, bracket.ID, bracket.Data)
	})
	if err != nil {
		return err
	}

	loserID := match.Opponent(winnerID)
	s.notifier.Notify(ctx, winnerID, "Advanced to the next round",
		fmt.Sprintf("You advanced to the %s.", brackets.RoundName(bracket.Format, slot.RoundNumber)))
	s.notifier.Notify(ctx, loserID, "Eliminated from playoffs",
		"You have been eliminated from the playoffs. Thanks for a great season.")

	s.hub.BroadcastToRoom(brackets.SeasonRoom(match.SeasonID), brackets.Event{
		Type:    brackets.EventBracketUpdated,
		Payload: bracket,
	})
	return nil
}

func (s *playoffService) completePlayoffs(ctx context.Context, bracket *models.PlayoffBracket, seasonID, championID int) error {
	now := time.Now().UTC()
	bracket.Data.WinnerID = &championID
	bracket.Data.CompletedAt = &now

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.bracketRepo.UpdateData(ctx, exec, bracket.ID, bracket.Data); txErr != nil {
			return txErr
		}
		if txErr := s.seasonRepo.SetPlayoffWinner(ctx, exec, seasonID, championID); txErr != nil {
			return txErr
		}
		return s.seasonRepo.UpdateStatus(ctx, exec, seasonID, models.SeasonCompleted)
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, championID, "Season champion",
		"Congratulations, you won the playoff final and the season title.")
	s.hub.BroadcastToRoom(brackets.SeasonRoom(seasonID), brackets.Event{
		Type:    brackets.EventPlayoffComplete,
		Payload: bracket,
	})
	return nil
}

func (s *playoffService) GetBracketView(ctx context.Context, seasonID int) (*BracketView, error) {
	bracket, err := s.bracketRepo.GetBySeason(ctx, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}

	view := &BracketView{Bracket: bracket}
	playerIDs := collectBracketPlayerIDs(bracket.Data)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		season, gErr := s.seasonRepo.GetByID(gCtx, seasonID)
		if gErr != nil {
			return gErr
		}
		view.Season = season
		return nil
	})
	g.Go(func() error {
		users, gErr := s.userRepo.ListByIDs(gCtx, playerIDs)
		if gErr != nil {
			return gErr
		}
		for _, u := range users {
			u.PasswordHash = ""
		}
		view.Players = users
		return nil
	})
	g.Go(func() error {
		matches, gErr := s.matchRepo.ListBySeason(gCtx, seasonID, nil)
		if gErr != nil {
			return gErr
		}
		playoffMatches := make([]*models.Match, 0, len(matches))
		for _, m := range matches {
			if m.MatchType.IsPlayoff() {
				playoffMatches = append(playoffMatches, m)
			}
		}
		view.Matches = playoffMatches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to assemble bracket view for season %d: %w", seasonID, err)
	}
	return view, nil
}

func (s *playoffService) requireAdmin(ctx context.Context, userID int) error {
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

func collectBracketPlayerIDs(data models.BracketData) []int {
	seen := make(map[int]bool)
	ids := make([]int, 0)
	for _, round := range data.Rounds {
		for _, bm := range round.Matches {
			for _, p := range []*int{bm.Player1ID, bm.Player2ID} {
				if p != nil && !seen[*p] {
					seen[*p] = true
					ids = append(ids, *p)
				}
			}
		}
	}
	return ids
}

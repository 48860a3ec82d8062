package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markovtsev/ladder-system/brackets"
	"github.com/markovtsev/ladder-system/models"
)

type playoffFixture struct {
	svc         PlayoffService
	matchRepo   *fakeMatchRepo
	bracketRepo *fakeBracketRepo
	seasonRepo  *fakeSeasonRepo
	userRepo    *fakeUserRepo
}

// newPlayoffFixture builds an active season whose ladder holds players
// 101..100+n at positions 1..n, plus an administrator with ID 1.
func newPlayoffFixture(t *testing.T, players int) *playoffFixture {
	t.Helper()

	userRepo := newFakeUserRepo()
	userRepo.add(adminID, models.RoleAdmin)
	for i := 1; i <= players; i++ {
		userRepo.add(100+i, models.RolePlayer)
	}

	ladderRepo := newFakeLadderRepo()
	ladderSvc := NewLadderService(stubTxRunner{}, ladderRepo, &fakeHistoryRepo{}, testLogger())
	for i := 1; i <= players; i++ {
		_, err := ladderSvc.InsertPlayer(context.Background(), testSeasonID, 100+i, i)
		require.NoError(t, err)
	}

	seasonRepo := newFakeSeasonRepo()
	seasonRepo.add(testSeasonID, models.SeasonActive, 1)

	matchRepo := newFakeMatchRepo()
	bracketRepo := newFakeBracketRepo()

	svc := NewPlayoffService(
		stubTxRunner{}, bracketRepo, matchRepo, ladderRepo, seasonRepo, userRepo,
		NopNotifier{}, brackets.NewHub(), testLogger())

	return &playoffFixture{
		svc:         svc,
		matchRepo:   matchRepo,
		bracketRepo: bracketRepo,
		seasonRepo:  seasonRepo,
		userRepo:    userRepo,
	}
}

// playoffMatches returns the stored playoff match rows in creation order.
func (f *playoffFixture) playoffMatches(t *testing.T) []*models.Match {
	t.Helper()
	matches, err := f.matchRepo.ListBySeason(context.Background(), testSeasonID, nil)
	require.NoError(t, err)
	out := matches[:0]
	for _, m := range matches {
		if m.MatchType.IsPlayoff() {
			out = append(out, m)
		}
	}
	return out
}

// completeAndProgress records a winner for the match row and advances the
// bracket, the way the match service does after a playoff score comes in.
func (f *playoffFixture) completeAndProgress(t *testing.T, matchID, winnerID int) {
	t.Helper()
	sets := []models.SetScore{{Player1Score: 6, Player2Score: 4}, {Player1Score: 6, Player2Score: 2}}
	require.NoError(t, f.matchRepo.UpdateResult(context.Background(), nil, matchID, sets, nil, winnerID, time.Now().UTC()))
	require.NoError(t, f.svc.ProgressToNextRound(context.Background(), matchID))
}

func TestStartPlayoffs(t *testing.T) {
	t.Run("requires an administrator", func(t *testing.T) {
		f := newPlayoffFixture(t, 6)
		_, err := f.svc.StartPlayoffs(context.Background(), 101, testSeasonID, models.BracketSemis)
		assert.ErrorIs(t, err, ErrAdminOnly)
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		f := newPlayoffFixture(t, 6)
		_, err := f.svc.StartPlayoffs(context.Background(), adminID, testSeasonID, models.BracketFormat("round_robin"))
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("season must be active", func(t *testing.T) {
		f := newPlayoffFixture(t, 6)
		f.seasonRepo.add(2, models.SeasonPending, 1)
		_, err := f.svc.StartPlayoffs(context.Background(), adminID, 2, models.BracketSemis)
		assert.ErrorIs(t, err, ErrSeasonNotActive)
	})

	t.Run("not enough ranked players", func(t *testing.T) {
		f := newPlayoffFixture(t, 3)
		_, err := f.svc.StartPlayoffs(context.Background(), adminID, testSeasonID, models.BracketSemis)
		assert.ErrorIs(t, err, ErrBracketNotEnoughPlayers)
	})

	t.Run("seeds the top of the ladder and creates round one", func(t *testing.T) {
		f := newPlayoffFixture(t, 6)

		bracket, err := f.svc.StartPlayoffs(context.Background(), adminID, testSeasonID, models.BracketSemis)
		require.NoError(t, err)
		require.NotNil(t, bracket)
		assert.Equal(t, models.BracketSemis, bracket.Format)

		// Only the top four make the cut, paired 1v4 and 2v3.
		matches := f.playoffMatches(t)
		require.Len(t, matches, 2)
		assert.Equal(t, models.MatchTypeSemifinal, matches[0].MatchType)
		assert.Equal(t, 101, matches[0].Player1ID)
		assert.Equal(t, 104, matches[0].Player2ID)
		assert.Equal(t, 102, matches[1].Player1ID)
		assert.Equal(t, 103, matches[1].Player2ID)
		require.NotNil(t, matches[0].RoundNumber)
		assert.Equal(t, 1, *matches[0].RoundNumber)
		require.NotNil(t, matches[1].BracketPosition)
		assert.Equal(t, 2, *matches[1].BracketPosition)
		require.NotNil(t, matches[0].Player2Seed)
		assert.Equal(t, 4, *matches[0].Player2Seed)

		// The bracket document points back at the created rows.
		for _, bm := range bracket.Data.Rounds[0].Matches {
			assert.NotNil(t, bm.MatchID)
		}

		season, err := f.seasonRepo.GetByID(context.Background(), testSeasonID)
		require.NoError(t, err)
		assert.Equal(t, models.SeasonPlayoffs, season.Status)
	})

	t.Run("a season gets at most one bracket", func(t *testing.T) {
		f := newPlayoffFixture(t, 6)
		_, err := f.svc.StartPlayoffs(context.Background(), adminID, testSeasonID, models.BracketSemis)
		require.NoError(t, err)

		// Even with the status forced back to active, the existing bracket
		// blocks a restart.
		require.NoError(t, f.seasonRepo.UpdateStatus(context.Background(), nil, testSeasonID, models.SeasonActive))
		_, err = f.svc.StartPlayoffs(context.Background(), adminID, testSeasonID, models.BracketSemis)
		assert.ErrorIs(t, err, ErrBracketAlreadyExists)
	})
}

func TestProgressToNextRound(t *testing.T) {
	t.Run("rejects non-playoff and unfinished matches", func(t *testing.T) {
		f := newPlayoffFixture(t, 6)
		_, err := f.svc.StartPlayoffs(context.Background(), adminID, testSeasonID, models.BracketSemis)
		require.NoError(t, err)

		challenge := &models.Match{SeasonID: testSeasonID, Player1ID: 105, Player2ID: 106, MatchType: models.MatchTypeChallenge}
		require.NoError(t, f.matchRepo.Create(context.Background(), nil, challenge))
		assert.ErrorIs(t, f.svc.ProgressToNextRound(context.Background(), challenge.ID), ErrValidationFailed)

		semis := f.playoffMatches(t)
		assert.ErrorIs(t, f.svc.ProgressToNextRound(context.Background(), semis[0].ID), ErrMatchNotCompleted)

		assert.ErrorIs(t, f.svc.ProgressToNextRound(context.Background(), 999), ErrMatchNotFound)
	})

	t.Run("plays a four player bracket through to a champion", func(t *testing.T) {
		f := newPlayoffFixture(t, 6)
		_, err := f.svc.StartPlayoffs(context.Background(), adminID, testSeasonID, models.BracketSemis)
		require.NoError(t, err)
		semis := f.playoffMatches(t)
		require.Len(t, semis, 2)

		// Seed 4 upsets seed 1. The final row is not created until the other
		// semifinal produces its winner.
		f.completeAndProgress(t, semis[0].ID, 104)
		assert.Len(t, f.playoffMatches(t), 2)

		bracket, err := f.bracketRepo.GetBySeason(context.Background(), testSeasonID)
		require.NoError(t, err)
		finalBM := bracket.Data.Rounds[1].Matches[0]
		require.NotNil(t, finalBM.Player1ID)
		assert.Equal(t, 104, *finalBM.Player1ID)
		assert.Equal(t, 4, finalBM.Player1Seed)
		assert.Nil(t, finalBM.Player2ID)

		// Progressing the same match twice is rejected.
		assert.ErrorIs(t, f.svc.ProgressToNextRound(context.Background(), semis[0].ID), ErrMatchAlreadyCompleted)

		// The second semifinal fills the other slot and creates the final
		// match row with the carried seeds.
		f.completeAndProgress(t, semis[1].ID, 102)
		matches := f.playoffMatches(t)
		require.Len(t, matches, 3)
		final := matches[2]
		assert.Equal(t, models.MatchTypeFinal, final.MatchType)
		assert.Equal(t, 104, final.Player1ID)
		assert.Equal(t, 102, final.Player2ID)
		require.NotNil(t, final.Player1Seed)
		assert.Equal(t, 4, *final.Player1Seed)
		require.NotNil(t, final.RoundNumber)
		assert.Equal(t, 2, *final.RoundNumber)

		// Winning the final closes out the season.
		f.completeAndProgress(t, final.ID, 102)

		season, err := f.seasonRepo.GetByID(context.Background(), testSeasonID)
		require.NoError(t, err)
		assert.Equal(t, models.SeasonCompleted, season.Status)
		require.NotNil(t, season.PlayoffWinnerID)
		assert.Equal(t, 102, *season.PlayoffWinnerID)

		bracket, err = f.bracketRepo.GetBySeason(context.Background(), testSeasonID)
		require.NoError(t, err)
		require.NotNil(t, bracket.Data.WinnerID)
		assert.Equal(t, 102, *bracket.Data.WinnerID)
		assert.NotNil(t, bracket.Data.CompletedAt)
		champion := brackets.Champion(&bracket.Data)
		require.NotNil(t, champion)
		assert.Equal(t, 102, *champion)
	})

	t.Run("plays an eight player bracket", func(t *testing.T) {
		f := newPlayoffFixture(t, 8)
		_, err := f.svc.StartPlayoffs(context.Background(), adminID, testSeasonID, models.BracketQuarters)
		require.NoError(t, err)

		quarters := f.playoffMatches(t)
		require.Len(t, quarters, 4)
		// Pairings by seed: 1v8, 4v5, 2v7, 3v6.
		assert.Equal(t, models.MatchTypeQuarterfinal, quarters[0].MatchType)
		assert.Equal(t, 101, quarters[0].Player1ID)
		assert.Equal(t, 108, quarters[0].Player2ID)
		assert.Equal(t, 104, quarters[1].Player1ID)
		assert.Equal(t, 105, quarters[1].Player2ID)
		assert.Equal(t, 102, quarters[2].Player1ID)
		assert.Equal(t, 107, quarters[2].Player2ID)
		assert.Equal(t, 103, quarters[3].Player1ID)
		assert.Equal(t, 106, quarters[3].Player2ID)

		// Higher seed wins every quarterfinal.
		for _, m := range quarters {
			f.completeAndProgress(t, m.ID, m.Player1ID)
		}

		matches := f.playoffMatches(t)
		require.Len(t, matches, 6)
		assert.Equal(t, models.MatchTypeSemifinal, matches[4].MatchType)
		assert.Equal(t, 101, matches[4].Player1ID)
		assert.Equal(t, 104, matches[4].Player2ID)
		assert.Equal(t, 102, matches[5].Player1ID)
		assert.Equal(t, 103, matches[5].Player2ID)

		f.completeAndProgress(t, matches[4].ID, 101)
		f.completeAndProgress(t, matches[5].ID, 102)

		matches = f.playoffMatches(t)
		require.Len(t, matches, 7)
		final := matches[6]
		assert.Equal(t, models.MatchTypeFinal, final.MatchType)
		assert.Equal(t, 101, final.Player1ID)
		assert.Equal(t, 102, final.Player2ID)

		f.completeAndProgress(t, final.ID, 101)
		season, err := f.seasonRepo.GetByID(context.Background(), testSeasonID)
		require.NoError(t, err)
		require.NotNil(t, season.PlayoffWinnerID)
		assert.Equal(t, 101, *season.PlayoffWinnerID)
	})
}

func TestGetBracketView(t *testing.T) {
	t.Run("missing bracket", func(t *testing.T) {
		f := newPlayoffFixture(t, 6)
		_, err := f.svc.GetBracketView(context.Background(), testSeasonID)
		assert.ErrorIs(t, err, ErrBracketNotFound)
	})

	t.Run("aggregates season, players and matches", func(t *testing.T) {
		f := newPlayoffFixture(t, 6)
		_, err := f.svc.StartPlayoffs(context.Background(), adminID, testSeasonID, models.BracketSemis)
		require.NoError(t, err)

		view, err := f.svc.GetBracketView(context.Background(), testSeasonID)
		require.NoError(t, err)
		require.NotNil(t, view.Season)
		assert.Equal(t, models.SeasonPlayoffs, view.Season.Status)
		require.NotNil(t, view.Bracket)
		assert.Len(t, view.Players, 4)
		for _, u := range view.Players {
			assert.Empty(t, u.PasswordHash)
		}
		assert.Len(t, view.Matches, 2)
	})
}

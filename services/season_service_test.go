package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markovtsev/ladder-system/models"
)

func newSeasonFixture() (SeasonService, *fakeSeasonRepo) {
	userRepo := newFakeUserRepo()
	userRepo.add(adminID, models.RoleAdmin)
	userRepo.add(101, models.RolePlayer)
	seasonRepo := newFakeSeasonRepo()
	return NewSeasonService(stubTxRunner{}, seasonRepo, userRepo), seasonRepo
}

func TestCreateSeason(t *testing.T) {
	t.Run("admin creates a pending season", func(t *testing.T) {
		svc, _ := newSeasonFixture()

		season, err := svc.Create(context.Background(), adminID, CreateSeasonInput{
			Name:               "  Spring 2026  ",
			WildcardsPerPlayer: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, "Spring 2026", season.Name)
		assert.Equal(t, models.SeasonPending, season.Status)
		assert.Equal(t, 2, season.WildcardsPerPlayer)
	})

	t.Run("players cannot create seasons", func(t *testing.T) {
		svc, _ := newSeasonFixture()
		_, err := svc.Create(context.Background(), 101, CreateSeasonInput{Name: "Spring"})
		assert.ErrorIs(t, err, ErrAdminOnly)
	})

	t.Run("validation", func(t *testing.T) {
		svc, _ := newSeasonFixture()

		_, err := svc.Create(context.Background(), adminID, CreateSeasonInput{Name: "   "})
		assert.ErrorIs(t, err, ErrValidationFailed)

		_, err = svc.Create(context.Background(), adminID, CreateSeasonInput{Name: "Spring", WildcardsPerPlayer: -1})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func TestActivateSeason(t *testing.T) {
	t.Run("pending season becomes active", func(t *testing.T) {
		svc, seasonRepo := newSeasonFixture()
		seasonRepo.add(1, models.SeasonPending, 1)

		require.NoError(t, svc.Activate(context.Background(), adminID, 1))

		season, err := svc.GetByID(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, models.SeasonActive, season.Status)
	})

	t.Run("only pending seasons can be activated", func(t *testing.T) {
		svc, seasonRepo := newSeasonFixture()
		seasonRepo.add(1, models.SeasonCompleted, 1)

		err := svc.Activate(context.Background(), adminID, 1)
		assert.ErrorIs(t, err, ErrSeasonInvalidTransition)
	})

	t.Run("one running season at a time", func(t *testing.T) {
		svc, seasonRepo := newSeasonFixture()
		seasonRepo.add(1, models.SeasonPlayoffs, 1)
		seasonRepo.add(2, models.SeasonPending, 1)

		err := svc.Activate(context.Background(), adminID, 2)
		assert.ErrorIs(t, err, ErrSeasonInvalidTransition)
	})

	t.Run("unknown season", func(t *testing.T) {
		svc, _ := newSeasonFixture()
		err := svc.Activate(context.Background(), adminID, 9)
		assert.ErrorIs(t, err, ErrSeasonNotFound)
	})
}

func TestGetActiveSeason(t *testing.T) {
	svc, seasonRepo := newSeasonFixture()

	_, err := svc.GetActive(context.Background())
	assert.ErrorIs(t, err, ErrSeasonNotFound)

	seasonRepo.add(1, models.SeasonActive, 1)
	season, err := svc.GetActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, season.ID)
}

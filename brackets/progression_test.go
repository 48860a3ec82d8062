package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markovtsev/ladder-system/models"
)

func TestNextSlotFor(t *testing.T) {
	tests := []struct {
		name     string
		format   models.BracketFormat
		round    int
		position int
		want     NextSlot
		ok       bool
	}{
		{"quarters pos1 feeds semi1 slot1", models.BracketQuarters, 1, 1, NextSlot{2, 1, 1}, true},
		{"quarters pos2 feeds semi1 slot2", models.BracketQuarters, 1, 2, NextSlot{2, 1, 2}, true},
		{"quarters pos3 feeds semi2 slot1", models.BracketQuarters, 1, 3, NextSlot{2, 2, 1}, true},
		{"quarters pos4 feeds semi2 slot2", models.BracketQuarters, 1, 4, NextSlot{2, 2, 2}, true},
		{"semis feed the final", models.BracketQuarters, 2, 2, NextSlot{3, 1, 2}, true},
		{"final has no next slot", models.BracketQuarters, 3, 1, NextSlot{}, false},
		{"semis format final", models.BracketSemis, 2, 1, NextSlot{}, false},
		{"single final", models.BracketFinal, 1, 1, NextSlot{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextSlotFor(tt.format, tt.round, tt.position)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsFinalRound(t *testing.T) {
	assert.True(t, IsFinalRound(models.BracketFinal, 1))
	assert.False(t, IsFinalRound(models.BracketSemis, 1))
	assert.True(t, IsFinalRound(models.BracketSemis, 2))
	assert.True(t, IsFinalRound(models.BracketQuarters, 3))
}

func TestApplyResult(t *testing.T) {
	scores := []models.SetScore{{Player1Score: 6, Player2Score: 4}, {Player1Score: 7, Player2Score: 5}}

	t.Run("records the winner and completes the round", func(t *testing.T) {
		data, err := NewBracketData(models.BracketSemis, seedMap(4))
		require.NoError(t, err)

		require.NoError(t, ApplyResult(&data, 1, 1, 104, scores))
		bm, err := FindMatch(&data, 1, 1)
		require.NoError(t, err)
		assert.True(t, bm.IsComplete)
		require.NotNil(t, bm.WinnerID)
		assert.Equal(t, 104, *bm.WinnerID)
		assert.Equal(t, scores, bm.Scores)
		assert.False(t, data.Rounds[0].IsComplete)

		require.NoError(t, ApplyResult(&data, 1, 2, 102, scores))
		assert.True(t, data.Rounds[0].IsComplete)
	})

	t.Run("rejects a repeat result", func(t *testing.T) {
		data, err := NewBracketData(models.BracketSemis, seedMap(4))
		require.NoError(t, err)

		require.NoError(t, ApplyResult(&data, 1, 1, 101, scores))
		assert.ErrorIs(t, ApplyResult(&data, 1, 1, 104, scores), ErrMatchAlreadyScored)
	})

	t.Run("winner must be one of the two players", func(t *testing.T) {
		data, err := NewBracketData(models.BracketSemis, seedMap(4))
		require.NoError(t, err)

		assert.Error(t, ApplyResult(&data, 1, 1, 102, scores))
	})

	t.Run("unknown coordinates", func(t *testing.T) {
		data, err := NewBracketData(models.BracketSemis, seedMap(4))
		require.NoError(t, err)

		assert.ErrorIs(t, ApplyResult(&data, 5, 1, 101, scores), ErrRoundOutOfRange)
		assert.ErrorIs(t, ApplyResult(&data, 1, 9, 101, scores), ErrMatchNotInBracket)
	})
}

func TestAssignWinner(t *testing.T) {
	data, err := NewBracketData(models.BracketSemis, seedMap(4))
	require.NoError(t, err)

	slot1, ok := NextSlotFor(models.BracketSemis, 1, 1)
	require.True(t, ok)
	bm, bothKnown, err := AssignWinner(&data, slot1, 104, 4)
	require.NoError(t, err)
	assert.False(t, bothKnown)
	require.NotNil(t, bm.Player1ID)
	assert.Equal(t, 104, *bm.Player1ID)
	assert.Equal(t, 4, bm.Player1Seed)
	assert.Nil(t, bm.Player2ID)

	slot2, ok := NextSlotFor(models.BracketSemis, 1, 2)
	require.True(t, ok)
	bm, bothKnown, err = AssignWinner(&data, slot2, 102, 2)
	require.NoError(t, err)
	assert.True(t, bothKnown)
	require.NotNil(t, bm.Player2ID)
	assert.Equal(t, 102, *bm.Player2ID)
	assert.Equal(t, 2, bm.Player2Seed)

	_, _, err = AssignWinner(&data, NextSlot{RoundNumber: 9, Position: 1, Slot: 1}, 101, 1)
	assert.ErrorIs(t, err, ErrRoundOutOfRange)
}

func TestWinnerSeed(t *testing.T) {
	p1, p2, w := 101, 104, 104
	bm := models.BracketMatch{Player1Seed: 1, Player2Seed: 4, Player1ID: &p1, Player2ID: &p2}
	assert.Zero(t, WinnerSeed(bm))

	bm.WinnerID = &w
	assert.Equal(t, 4, WinnerSeed(bm))

	bm.WinnerID = &p1
	assert.Equal(t, 1, WinnerSeed(bm))
}

func TestFindMatchByID(t *testing.T) {
	data, err := NewBracketData(models.BracketSemis, seedMap(4))
	require.NoError(t, err)
	id := 42
	data.Rounds[0].Matches[1].MatchID = &id

	bm, round, err := FindMatchByID(&data, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, round)
	assert.Equal(t, 2, bm.Position)

	_, _, err = FindMatchByID(&data, 7)
	assert.ErrorIs(t, err, ErrMatchNotInBracket)
}

// TestEightPlayerRun walks a full quarters bracket, higher seed winning
// throughout, and checks the champion emerges only at the very end.
func TestEightPlayerRun(t *testing.T) {
	data, err := NewBracketData(models.BracketQuarters, seedMap(8))
	require.NoError(t, err)
	scores := []models.SetScore{{Player1Score: 6, Player2Score: 3}, {Player1Score: 6, Player2Score: 4}}

	advance := func(round, position int) {
		t.Helper()
		bm, err := FindMatch(&data, round, position)
		require.NoError(t, err)
		winner := *bm.Player1ID
		if bm.Player2Seed < bm.Player1Seed {
			winner = *bm.Player2ID
		}
		require.NoError(t, ApplyResult(&data, round, position, winner, scores))
		if slot, ok := NextSlotFor(models.BracketQuarters, round, position); ok {
			_, _, err := AssignWinner(&data, slot, winner, WinnerSeed(*bm))
			require.NoError(t, err)
		}
	}

	for pos := 1; pos <= 4; pos++ {
		advance(1, pos)
	}
	assert.Nil(t, Champion(&data))
	assert.True(t, data.Rounds[0].IsComplete)

	// Semifinals are now 1v4 and 2v3.
	semi1, err := FindMatch(&data, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, semi1.Player1Seed)
	assert.Equal(t, 4, semi1.Player2Seed)
	semi2, err := FindMatch(&data, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, semi2.Player1Seed)
	assert.Equal(t, 3, semi2.Player2Seed)

	advance(2, 1)
	advance(2, 2)
	assert.Nil(t, Champion(&data))

	// The final is the classic 1v2.
	final, err := FindMatch(&data, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, final.Player1Seed)
	assert.Equal(t, 2, final.Player2Seed)

	advance(3, 1)
	champion := Champion(&data)
	require.NotNil(t, champion)
	assert.Equal(t, 101, *champion)
}

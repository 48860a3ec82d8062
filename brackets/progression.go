package brackets

import (
	"errors"
	"fmt"

	"github.com/markovtsev/ladder-system/models"
)

var (
	ErrMatchNotInBracket  = errors.New("match not found in bracket data")
	ErrMatchAlreadyScored = errors.New("bracket match already marked complete")
	ErrRoundOutOfRange    = errors.New("round number out of range for bracket")
)

// NextSlot identifies where a winner lands in the following round.
type NextSlot struct {
	RoundNumber int
	Position    int
	Slot        int // 1 = player1, 2 = player2
}

// NextSlotFor maps a completed match's position to its slot in the next
// round. Winners of odd bracket positions take the player1 slot, even
// positions the player2 slot. Returns false for the final round.
func NextSlotFor(format models.BracketFormat, roundNumber, position int) (NextSlot, bool) {
	if roundNumber >= RoundCount(format) {
		return NextSlot{}, false
	}
	slot := 2
	if position%2 == 1 {
		slot = 1
	}
	return NextSlot{
		RoundNumber: roundNumber + 1,
		Position:    (position + 1) / 2,
		Slot:        slot,
	}, true
}

// IsFinalRound reports whether roundNumber is the format's last round.
func IsFinalRound(format models.BracketFormat, roundNumber int) bool {
	return roundNumber == RoundCount(format)
}

// FindMatch returns a pointer into data for the bracket match at
// (roundNumber, position).
func FindMatch(data *models.BracketData, roundNumber, position int) (*models.BracketMatch, error) {
	if roundNumber < 1 || roundNumber > len(data.Rounds) {
		return nil, ErrRoundOutOfRange
	}
	round := &data.Rounds[roundNumber-1]
	for i := range round.Matches {
		if round.Matches[i].Position == position {
			return &round.Matches[i], nil
		}
	}
	return nil, ErrMatchNotInBracket
}

// FindMatchByID locates a bracket match by its matches-table row ID.
func FindMatchByID(data *models.BracketData, matchID int) (*models.BracketMatch, int, error) {
	for r := range data.Rounds {
		round := &data.Rounds[r]
		for i := range round.Matches {
			if round.Matches[i].MatchID != nil && *round.Matches[i].MatchID == matchID {
				return &round.Matches[i], round.RoundNumber, nil
			}
		}
	}
	return nil, 0, ErrMatchNotInBracket
}

// ApplyResult records a completed match in the bracket data and refreshes
// the round's completeness flag. It does not touch later rounds; AssignWinner
// handles advancement.
func ApplyResult(data *models.BracketData, roundNumber, position, winnerID int, scores []models.SetScore) error {
	bm, err := FindMatch(data, roundNumber, position)
	if err != nil {
		return err
	}
	if bm.IsComplete {
		return ErrMatchAlreadyScored
	}

	validWinner := (bm.Player1ID != nil && *bm.Player1ID == winnerID) ||
		(bm.Player2ID != nil && *bm.Player2ID == winnerID)
	if !validWinner {
		return fmt.Errorf("winner %d is not a player of bracket match R%dP%d", winnerID, roundNumber, position)
	}

	bm.WinnerID = &winnerID
	bm.IsComplete = true
	bm.Scores = scores

	round := &data.Rounds[roundNumber-1]
	round.IsComplete = roundComplete(*round)
	return nil
}

// WinnerSeed returns the seed the winner carried into the given match.
func WinnerSeed(bm models.BracketMatch) int {
	if bm.WinnerID == nil {
		return 0
	}
	if bm.Player1ID != nil && *bm.Player1ID == *bm.WinnerID {
		return bm.Player1Seed
	}
	return bm.Player2Seed
}

// AssignWinner places a winner into its next-round slot and reports whether
// both players of the target match are now known, i.e. whether the caller
// should create the match row.
func AssignWinner(data *models.BracketData, slot NextSlot, userID, seed int) (*models.BracketMatch, bool, error) {
	bm, err := FindMatch(data, slot.RoundNumber, slot.Position)
	if err != nil {
		return nil, false, err
	}
	if slot.Slot == 1 {
		bm.Player1ID = &userID
		bm.Player1Seed = seed
	} else {
		bm.Player2ID = &userID
		bm.Player2Seed = seed
	}
	return bm, bm.Player1ID != nil && bm.Player2ID != nil, nil
}

// Champion returns the winner of the final round's single match, nil while
// the tournament is still in flight.
func Champion(data *models.BracketData) *int {
	if len(data.Rounds) == 0 {
		return nil
	}
	final := data.Rounds[len(data.Rounds)-1]
	if len(final.Matches) != 1 || !final.Matches[0].IsComplete {
		return nil
	}
	return final.Matches[0].WinnerID
}

func roundComplete(round models.BracketRound) bool {
	for _, m := range round.Matches {
		if !m.IsComplete {
			return false
		}
	}
	return true
}

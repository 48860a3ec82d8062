package brackets

import (
	"fmt"

	"github.com/markovtsev/ladder-system/models"
)

// Fixed first-round seed pairings per format. Seeds 1 and 2 sit on opposite
// halves of the draw, so they can only meet in the final.
var seedPairs = map[models.BracketFormat][][2]int{
	models.BracketFinal:    {{1, 2}},
	models.BracketSemis:    {{1, 4}, {2, 3}},
	models.BracketQuarters: {{1, 8}, {4, 5}, {2, 7}, {3, 6}},
}

// SeedPairs returns the first-round pairings for the format, in bracket
// position order.
func SeedPairs(format models.BracketFormat) ([][2]int, error) {
	pairs, ok := seedPairs[format]
	if !ok {
		return nil, fmt.Errorf("unsupported bracket format %q", format)
	}
	return pairs, nil
}

// RoundCount returns the number of rounds the format plays.
func RoundCount(format models.BracketFormat) int {
	switch format {
	case models.BracketFinal:
		return 1
	case models.BracketSemis:
		return 2
	case models.BracketQuarters:
		return 3
	}
	return 0
}

func RoundName(format models.BracketFormat, roundNumber int) string {
	remaining := RoundCount(format) - roundNumber
	switch remaining {
	case 0:
		return "Final"
	case 1:
		return "Semifinals"
	case 2:
		return "Quarterfinals"
	}
	return fmt.Sprintf("Round %d", roundNumber)
}

// RoundMatchType maps a round of the format to the match type its rows
// carry in the matches table.
func RoundMatchType(format models.BracketFormat, roundNumber int) models.MatchType {
	remaining := RoundCount(format) - roundNumber
	switch remaining {
	case 0:
		return models.MatchTypeFinal
	case 1:
		return models.MatchTypeSemifinal
	default:
		return models.MatchTypeQuarterfinal
	}
}

// NewBracketData builds the full round tree for the format. Round 1 carries
// the seed pairings and resolved player IDs; later rounds are placeholders
// until feeder matches complete. seedToUser maps seed number (1-based ladder
// order at playoff start) to user ID and must cover every seed the format
// needs.
func NewBracketData(format models.BracketFormat, seedToUser map[int]int) (models.BracketData, error) {
	pairs, err := SeedPairs(format)
	if err != nil {
		return models.BracketData{}, err
	}
	if len(seedToUser) < format.PlayerCount() {
		return models.BracketData{}, fmt.Errorf("format %q needs %d seeded players, got %d",
			format, format.PlayerCount(), len(seedToUser))
	}

	rounds := make([]models.BracketRound, 0, RoundCount(format))

	firstRound := models.BracketRound{
		RoundNumber: 1,
		RoundName:   RoundName(format, 1),
		Matches:     make([]models.BracketMatch, 0, len(pairs)),
	}
	for i, pair := range pairs {
		p1, ok1 := seedToUser[pair[0]]
		p2, ok2 := seedToUser[pair[1]]
		if !ok1 || !ok2 {
			return models.BracketData{}, fmt.Errorf("missing user for seed pairing %dv%d", pair[0], pair[1])
		}
		firstRound.Matches = append(firstRound.Matches, models.BracketMatch{
			Position:    i + 1,
			Player1Seed: pair[0],
			Player2Seed: pair[1],
			Player1ID:   &p1,
			Player2ID:   &p2,
		})
	}
	rounds = append(rounds, firstRound)

	matchesInRound := len(pairs)
	for r := 2; r <= RoundCount(format); r++ {
		matchesInRound /= 2
		round := models.BracketRound{
			RoundNumber: r,
			RoundName:   RoundName(format, r),
			Matches:     make([]models.BracketMatch, matchesInRound),
		}
		for i := range round.Matches {
			round.Matches[i] = models.BracketMatch{Position: i + 1}
		}
		rounds = append(rounds, round)
	}

	return models.BracketData{Rounds: rounds}, nil
}

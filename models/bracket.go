package models

import "time"

// BracketFormat selects one of the three supported playoff sizes.
type BracketFormat string

const (
	BracketFinal    BracketFormat = "final"
	BracketSemis    BracketFormat = "semis"
	BracketQuarters BracketFormat = "quarters"
)

// PlayerCount returns the number of ladder players the format requires.
func (f BracketFormat) PlayerCount() int {
	switch f {
	case BracketFinal:
		return 2
	case BracketSemis:
		return 4
	case BracketQuarters:
		return 8
	}
	return 0
}

func (f BracketFormat) Valid() bool {
	return f.PlayerCount() != 0
}

type PlayoffBracket struct {
	ID        int           `json:"id"`
	SeasonID  int           `json:"season_id"`
	Format    BracketFormat `json:"format"`
	Data      BracketData   `json:"bracket_data"`
	CreatedAt time.Time     `json:"created_at"`
}

// BracketData is the whole round tree, persisted as a single JSONB document
// and owned exclusively by the playoff engine.
type BracketData struct {
	Rounds      []BracketRound `json:"rounds"`
	WinnerID    *int           `json:"winner_id,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

type BracketRound struct {
	RoundNumber int            `json:"round_number"`
	RoundName   string         `json:"round_name"`
	Matches     []BracketMatch `json:"matches"`
	IsComplete  bool           `json:"is_complete"`
}

type BracketMatch struct {
	// MatchID references the matches table. Nil until the row is created;
	// round 1 rows are created eagerly, later rounds lazily once both
	// feeder matches are complete.
	MatchID *int `json:"match_id,omitempty"`

	Position    int  `json:"position"`
	Player1Seed int  `json:"player1_seed,omitempty"`
	Player2Seed int  `json:"player2_seed,omitempty"`
	Player1ID   *int `json:"player1_id,omitempty"`
	Player2ID   *int `json:"player2_id,omitempty"`

	WinnerID   *int       `json:"winner_id,omitempty"`
	IsComplete bool       `json:"is_complete"`
	Scores     []SetScore `json:"scores,omitempty"`
}

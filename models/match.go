package models

import "time"

type MatchType string

const (
	MatchTypeChallenge    MatchType = "challenge"
	MatchTypeQuarterfinal MatchType = "quarterfinal"
	MatchTypeSemifinal    MatchType = "semifinal"
	MatchTypeFinal        MatchType = "final"
	MatchTypeThirdPlace   MatchType = "third_place"
)

func (t MatchType) IsPlayoff() bool {
	return t != MatchTypeChallenge
}

type FinalSetType string

const (
	FinalSetTiebreak FinalSetType = "tiebreak"
	FinalSetFull     FinalSetType = "full_set"
)

type SetScore struct {
	Player1Score int `json:"player1_score"`
	Player2Score int `json:"player2_score"`
}

type Match struct {
	ID          int       `json:"id"`
	ChallengeID *int      `json:"challenge_id,omitempty"`
	SeasonID    int       `json:"season_id"`
	Player1ID   int       `json:"player1_id"`
	Player2ID   int       `json:"player2_id"`
	MatchType   MatchType `json:"match_type"`

	Sets         []SetScore    `json:"sets,omitempty"`
	FinalSetType *FinalSetType `json:"final_set_type,omitempty"`
	WinnerID     *int          `json:"winner_id,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`

	IsDisputed       bool `json:"is_disputed"`
	DisputedByUserID *int `json:"disputed_by_user_id,omitempty"`

	// Playoff placement, nil for challenge matches.
	RoundNumber     *int `json:"round_number,omitempty"`
	BracketPosition *int `json:"bracket_position,omitempty"`
	Player1Seed     *int `json:"player1_seed,omitempty"`
	Player2Seed     *int `json:"player2_seed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (m *Match) IsCompleted() bool {
	return m.WinnerID != nil
}

func (m *Match) HasParticipant(userID int) bool {
	return m.Player1ID == userID || m.Player2ID == userID
}

// Opponent returns the other side of the match, assuming userID is a
// participant.
func (m *Match) Opponent(userID int) int {
	if m.Player1ID == userID {
		return m.Player2ID
	}
	return m.Player1ID
}

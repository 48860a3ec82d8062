package models

import "time"

// SeasonStatus mirrors the season_status ENUM in the database.
type SeasonStatus string

const (
	SeasonPending   SeasonStatus = "pending"
	SeasonActive    SeasonStatus = "active"
	SeasonPlayoffs  SeasonStatus = "playoffs"
	SeasonCompleted SeasonStatus = "completed"
)

type Season struct {
	ID                 int          `json:"id"`
	Name               string       `json:"name"`
	Status             SeasonStatus `json:"status"`
	WildcardsPerPlayer int          `json:"wildcards_per_player"`
	PlayoffWinnerID    *int         `json:"playoff_winner_id,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
}

package models

import "time"

// WildcardUsage records one unit spent from a player's per-season wildcard
// budget. Remaining budget is wildcards_per_player minus the usage count.
type WildcardUsage struct {
	ID          int       `json:"id"`
	SeasonID    int       `json:"season_id"`
	UserID      int       `json:"user_id"`
	ChallengeID int       `json:"challenge_id"`
	CreatedAt   time.Time `json:"created_at"`
}

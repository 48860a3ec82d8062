package models

import "time"

// SentinelPosition parks a row outside the valid range while a multi-row
// shift is in flight, so the unique index on (season_id, position) holds
// at every intermediate statement.
const SentinelPosition = -1

type LadderPosition struct {
	ID       int  `json:"id"`
	SeasonID int  `json:"season_id"`
	UserID   int  `json:"user_id"`
	Position int  `json:"position"`
	IsActive bool `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Optional, populated for standings responses.
	User *User `json:"user,omitempty"`
}

type LadderHistoryReason string

const (
	HistoryReasonMatchResult     LadderHistoryReason = "match_result"
	HistoryReasonDisputeReversal LadderHistoryReason = "dispute_reversal"
)

type LadderHistory struct {
	ID               int                 `json:"id"`
	SeasonID         int                 `json:"season_id"`
	UserID           int                 `json:"user_id"`
	PreviousPosition int                 `json:"previous_position"`
	NewPosition      int                 `json:"new_position"`
	Reason           LadderHistoryReason `json:"reason"`
	CreatedAt        time.Time           `json:"created_at"`
}

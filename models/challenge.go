package models

import "time"

type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "pending"
	ChallengeAccepted  ChallengeStatus = "accepted"
	ChallengeWithdrawn ChallengeStatus = "withdrawn"
	ChallengeForfeited ChallengeStatus = "forfeited"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeCancelled ChallengeStatus = "cancelled"
)

// IsActive reports whether the challenge still blocks either player from
// opening another one. Only one pending or accepted challenge per player
// is allowed system-wide.
func (s ChallengeStatus) IsActive() bool {
	return s == ChallengePending || s == ChallengeAccepted
}

type Challenge struct {
	ID           int             `json:"id"`
	SeasonID     int             `json:"season_id"`
	ChallengerID int             `json:"challenger_id"`
	ChallengedID int             `json:"challenged_id"`
	IsWildcard   bool            `json:"is_wildcard"`
	Status       ChallengeStatus `json:"status"`

	ProposedDate     time.Time  `json:"proposed_date"`
	ProposedLocation *string    `json:"proposed_location,omitempty"`
	AcceptedDate     *time.Time `json:"accepted_date,omitempty"`
	AcceptedLocation *string    `json:"accepted_location,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

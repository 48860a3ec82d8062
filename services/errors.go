package services

import "errors"

// Shared business-rule errors, mapped to HTTP statuses in the handlers.
var (
	// Not found
	ErrNotFound            = errors.New("requested resource not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrSeasonNotFound      = errors.New("season not found")
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrBracketNotFound     = errors.New("playoff bracket not found")
	ErrLadderEntryNotFound = errors.New("player has no active ladder position")

	// Validation and business rules
	ErrValidationFailed       = errors.New("validation failed")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrChallengeSelf          = errors.New("cannot challenge yourself")
	ErrChallengeOutOfRange    = errors.New("challenged player is out of range (max 2 positions above)")
	ErrWildcardBudgetExceeded = errors.New("no wildcard challenges remaining this season")
	ErrScoreNoWinner          = errors.New("scores do not produce a winner of at least 2 sets")
	ErrScoreSetCount          = errors.New("a match result requires 2 or 3 sets")

	// Conflicts
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrChallengeConflict    = errors.New("player already has an active challenge")
	ErrLadderAlreadyRanked  = errors.New("player already holds an active ladder position")
	ErrBracketAlreadyExists = errors.New("playoffs already started for this season")

	// Invalid state
	ErrChallengeInvalidTransition  = errors.New("challenge is not in a state that allows this action")
	ErrMatchAlreadyCompleted       = errors.New("match result has already been submitted")
	ErrMatchNotCompleted           = errors.New("match is not completed")
	ErrMatchAlreadyDisputed        = errors.New("match is already disputed")
	ErrMatchNotDisputed            = errors.New("match is not disputed")
	ErrSeasonNotActive             = errors.New("season is not active")
	ErrSeasonInvalidTransition     = errors.New("invalid season status transition")
	ErrBracketNotEnoughPlayers     = errors.New("not enough ladder players for the requested playoff format")
	ErrBracketPlayersNotDetermined = errors.New("next round players are not determined yet")

	// Authentication / authorization
	ErrAuthInvalidCredentials  = errors.New("invalid email or password")
	ErrForbiddenOperation      = errors.New("operation not allowed for the current user")
	ErrAdminOnly               = errors.New("administrator privileges required")
	ErrNotMatchParticipant     = errors.New("user is not a participant of this match")
	ErrNotChallengeParticipant = errors.New("user is not a participant of this challenge")

	// Consistency
	ErrLadderConsistency = errors.New("ladder positions are inconsistent for this operation")
)

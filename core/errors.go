package core

import (
	"errors"
)

// ErrNotFound is a sentinel error for "not found" cases
var ErrNotFound = errors.New("not found")

// Round-engine sentinel errors. Callers check these with errors.Is and
// translate them into user-facing replies.
var (
	// ErrNoEligibleMessage means the target selector exhausted its retry budget
	// without finding a usable message
	ErrNoEligibleMessage = errors.New("no eligible message found")

	// ErrRoundAlreadyActive means a round is already running in this channel
	ErrRoundAlreadyActive = errors.New("round already active")

	// ErrRoundNotActive means there is no active round to guess on or skip
	ErrRoundNotActive = errors.New("round not active")

	// ErrDuplicateGuess means the player already submitted a guess for this
	// round. The original guess stands; resubmission never overwrites.
	ErrDuplicateGuess = errors.New("duplicate guess")

	// ErrInvalidTimeGuess means the player's time guess could not be parsed
	ErrInvalidTimeGuess = errors.New("invalid time guess")
)

// IsNotFoundError checks if an error is a "not found" error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

package engine

import "errors"

// Validation errors surfaced directly to the caller. The engine never
// retries on its own; forfeit is the recovery path for dead matches.
var (
	ErrRegistrationClosed       = errors.New("registration is closed")
	ErrAlreadyRegistered        = errors.New("player already registered")
	ErrTournamentFull           = errors.New("tournament is full")
	ErrTooFewParticipants       = errors.New("not enough participants")
	ErrTournamentNotFound       = errors.New("tournament not found")
	ErrTournamentNotCancellable = errors.New("tournament can no longer be cancelled")

	ErrNotAParticipant      = errors.New("actor is not a participant of this match")
	ErrMatchAlreadyComplete = errors.New("match already complete")
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchNotRunning      = errors.New("match is not running")

	// Authority errors: the match authority rejected a game action.
	// Nothing is appended to the replay log when one of these is returned.
	ErrOutOfTurn   = errors.New("not this player's turn")
	ErrIllegalMove = errors.New("illegal move")
)

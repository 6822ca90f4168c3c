package bracket

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("only the tournament organizer can perform this action")

	ErrInvalidTransition    = errors.New("invalid tournament status transition")
	ErrInsufficientEntrants = errors.New("minimum 4 paid teams required")
	ErrBracketAlreadyExists = errors.New("bracket already generated")
	ErrInvalidEntrantCount  = errors.New("bracket size must be a power of two")

	ErrMatchAlreadyCompleted = errors.New("match already completed")
	ErrMatchNotReady         = errors.New("match is still waiting for an opponent")
	ErrInvalidWinner         = errors.New("winner is not part of this match")

	ErrRegistrationClosed = errors.New("tournament registration is not open")
	ErrTournamentFull     = errors.New("tournament is full")
	ErrInvalidInput       = errors.New("invalid input")
)

// TransitionError is returned for status changes outside the transition table.
type TransitionError struct {
	From TournamentStatus
	To   TournamentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

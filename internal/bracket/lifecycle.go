package bracket

var transitions = map[TournamentStatus][]TournamentStatus{
	TournamentDraft:              {TournamentRegistrationOpen, TournamentCancelled},
	TournamentRegistrationOpen:   {TournamentRegistrationClosed, TournamentCancelled},
	TournamentRegistrationClosed: {TournamentRegistrationOpen, TournamentInProgress, TournamentCancelled},
	TournamentInProgress:         {TournamentCompleted, TournamentCancelled},
}

func (s TournamentStatus) Valid() bool {
	switch s {
	case TournamentDraft, TournamentRegistrationOpen, TournamentRegistrationClosed,
		TournamentInProgress, TournamentCompleted, TournamentCancelled:
		return true
	}
	return false
}

func (s TournamentStatus) Terminal() bool {
	return s == TournamentCompleted || s == TournamentCancelled
}

// ManagedByEngine reports whether the status is only ever entered as a side
// effect of bracket generation or of completing the final.
func (s TournamentStatus) ManagedByEngine() bool {
	return s == TournamentInProgress || s == TournamentCompleted
}

// CheckTransition validates a single hop against the transition table.
func CheckTransition(from, to TournamentStatus) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

// CheckRequestedTransition validates a transition asked for directly by the
// organizer. Engine managed targets are never accepted here.
func CheckRequestedTransition(from, to TournamentStatus) error {
	if !to.Valid() || to.ManagedByEngine() {
		return &TransitionError{From: from, To: to}
	}
	return CheckTransition(from, to)
}

// StartPath returns the hops that take a tournament from its current status
// to in_progress when a bracket is generated. Open registration is closed on
// the way.
func StartPath(from TournamentStatus) ([]TournamentStatus, error) {
	switch from {
	case TournamentRegistrationOpen:
		return []TournamentStatus{TournamentRegistrationClosed, TournamentInProgress}, nil
	case TournamentRegistrationClosed:
		return []TournamentStatus{TournamentInProgress}, nil
	}
	return nil, &TransitionError{From: from, To: TournamentInProgress}
}

// CanGenerateBracket reports whether the status allows bracket generation.
func CanGenerateBracket(status TournamentStatus) bool {
	_, err := StartPath(status)
	return err == nil
}

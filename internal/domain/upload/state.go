package upload

import "errors"

// State is a step of the upload workflow.
type State string

const (
	StateIdle              State = "idle"
	StateIssuing           State = "issuing"
	StateTransferring      State = "transferring"
	StateCheckingDuplicate State = "checking_duplicate"
	StatePolling           State = "polling"

	// Terminal states
	StateDuplicateFound State = "duplicate_found"
	StateTagged         State = "tagged"
	StatePollExhausted  State = "poll_exhausted"
	StateFailed         State = "failed"
	StateCancelled      State = "cancelled"
)

// ErrInvalidTransition is returned when a state change is not allowed.
var ErrInvalidTransition = errors.New("invalid upload state transition")

// IsTerminal returns true once an upload can no longer progress.
func (s State) IsTerminal() bool {
	switch s {
	case StateDuplicateFound, StateTagged, StatePollExhausted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// IsActive returns true while an upload is in flight.
func (s State) IsActive() bool {
	return s != StateIdle && !s.IsTerminal()
}

func (s State) String() string { return string(s) }

// ValidTransitions lists the allowed next states. Polling may re-enter itself to report attempts.
var ValidTransitions = map[State][]State{
	StateIdle:              {StateIssuing},
	StateIssuing:           {StateTransferring, StateFailed, StateCancelled},
	StateTransferring:      {StateCheckingDuplicate, StateFailed, StateCancelled},
	StateCheckingDuplicate: {StateDuplicateFound, StatePolling, StateFailed, StateCancelled},
	StatePolling:           {StatePolling, StateTagged, StatePollExhausted, StateFailed, StateCancelled},
	StateDuplicateFound:    {},
	StateTagged:            {},
	StatePollExhausted:     {},
	StateFailed:            {},
	StateCancelled:         {},
}

// CanTransitionTo checks whether target may follow s.
func (s State) CanTransitionTo(target State) bool {
	for _, t := range ValidTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo returns target, or ErrInvalidTransition with s unchanged.
func (s State) TransitionTo(target State) (State, error) {
	if !s.CanTransitionTo(target) {
		return s, ErrInvalidTransition
	}
	return target, nil
}

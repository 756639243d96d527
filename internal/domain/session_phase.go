package domain

import "errors"

// SessionPhase is the state of one playback session as observed by the UI.
// It is distinct from LoadingPhase, which only covers acquisition.
type SessionPhase string

const (
	PhaseSearching   SessionPhase = "searching"
	PhaseDownloading SessionPhase = "downloading"
	PhaseReady       SessionPhase = "ready"
	PhasePlaying     SessionPhase = "playing"
	PhasePaused      SessionPhase = "paused"
	PhaseEnded       SessionPhase = "ended"
	PhaseError       SessionPhase = "error"
)

var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines the adjacency list of allowed phase transitions.
// PhaseError is reachable from any non-terminal phase and is handled
// separately in CanTransition.
var validTransitions = map[SessionPhase][]SessionPhase{
	PhaseSearching:   {PhaseDownloading, PhaseReady},
	PhaseDownloading: {PhaseReady},
	PhaseReady:       {PhasePlaying},
	PhasePlaying:     {PhasePaused, PhaseEnded},
	PhasePaused:      {PhasePlaying, PhaseEnded},
	PhaseEnded:       {},
	PhaseError:       {},
}

// Terminal reports whether no further transitions leave the phase.
func (p SessionPhase) Terminal() bool {
	return p == PhaseEnded || p == PhaseError
}

// CanTransition reports whether a transition from one phase to another is
// valid.
func CanTransition(from, to SessionPhase) bool {
	if to == PhaseError {
		return !from.Terminal()
	}
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

package domain

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to SessionPhase }{
		{PhaseSearching, PhaseDownloading},
		{PhaseSearching, PhaseReady}, // cache hit skips downloading
		{PhaseDownloading, PhaseReady},
		{PhaseReady, PhasePlaying},
		{PhasePlaying, PhasePaused},
		{PhasePaused, PhasePlaying},
		{PhasePlaying, PhaseEnded},
		{PhasePaused, PhaseEnded},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to SessionPhase }{
		{PhaseReady, PhaseDownloading}, // downloading never follows ready
		{PhasePlaying, PhaseSearching},
		{PhaseEnded, PhasePlaying},
		{PhaseDownloading, PhasePlaying},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestErrorReachableFromNonTerminalOnly(t *testing.T) {
	for _, from := range []SessionPhase{PhaseSearching, PhaseDownloading, PhaseReady, PhasePlaying, PhasePaused} {
		if !CanTransition(from, PhaseError) {
			t.Errorf("expected %s -> error to be allowed", from)
		}
	}
	for _, from := range []SessionPhase{PhaseEnded, PhaseError} {
		if CanTransition(from, PhaseError) {
			t.Errorf("expected %s -> error to be denied", from)
		}
	}
}

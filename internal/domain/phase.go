package domain

// LoadingPhase is the UI-visible acquisition progress. Within a single
// acquisition the sequence is monotonic (searching → downloading → ready);
// it resets only on an explicit retry or a report-bad re-entry.
type LoadingPhase string

const (
	LoadingSearching   LoadingPhase = "searching"
	LoadingDownloading LoadingPhase = "downloading"
	LoadingReady       LoadingPhase = "ready"
)

// PhaseUpdate is one acquisition progress transition. Progress and Message
// carry the server's fields verbatim.
type PhaseUpdate struct {
	Phase    LoadingPhase `json:"phase"`
	Progress float64      `json:"progress"`
	Message  string       `json:"message,omitempty"`
}

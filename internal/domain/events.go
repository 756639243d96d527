package domain

// PlayerEventType enumerates the closed set of events the media sink
// reports back into the session controller.
type PlayerEventType string

const (
	EventReady     PlayerEventType = "ready"
	EventPlaying   PlayerEventType = "playing"
	EventPaused    PlayerEventType = "paused"
	EventBuffering PlayerEventType = "buffering"
	EventPosition  PlayerEventType = "position"
	EventTracks    PlayerEventType = "tracks"
	EventEnded     PlayerEventType = "ended"
	EventError     PlayerEventType = "error"
)

// PlayerEvent is one sink-reported event. Only the fields relevant to the
// event type are populated.
type PlayerEvent struct {
	Type         PlayerEventType  `json:"type"`
	Position     PlaybackPosition `json:"position,omitzero"`
	Tracks       []AudioTrack     `json:"tracks,omitempty"`
	BitrateBps   int64            `json:"bitrateBps,omitempty"`
	ErrorCode    string           `json:"errorCode,omitempty"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
	// Recoverable marks sink errors raised during best-effort operations
	// (e.g. mid subtitle attachment); these are logged and swallowed.
	Recoverable bool `json:"recoverable,omitempty"`
}

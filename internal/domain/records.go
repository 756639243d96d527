package domain

import "time"

// WatchProgress is a persisted playback position, keyed by content identity.
type WatchProgress struct {
	Key        ContentKey  `json:"key"`
	Kind       ContentKind `json:"kind"`
	Title      string      `json:"title,omitempty"`
	PositionMs int64       `json:"positionMs"`
	DurationMs int64       `json:"durationMs"`
	Completed  bool        `json:"completed"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// PlaybackErrorRecord is an append-only diagnostic record for sink-reported
// playback errors, kept for later fallback-pattern analysis.
type PlaybackErrorRecord struct {
	Key       ContentKey `json:"key"`
	StreamURL string     `json:"streamUrl,omitempty"`
	Code      string     `json:"code,omitempty"`
	Cause     string     `json:"cause,omitempty"`
	Fatal     bool       `json:"fatal"`
	At        time.Time  `json:"at"`
}

package domain

import "time"

// SessionSnapshot is the externally observable state of a playback session.
// The controller owns it exclusively; everything the UI renders about
// playback comes from here.
type SessionSnapshot struct {
	Request   ContentRequest   `json:"request"`
	Phase     SessionPhase     `json:"phase"`
	Loading   PhaseUpdate      `json:"loading"`
	Position  PlaybackPosition `json:"position"`
	StreamURL string           `json:"streamUrl,omitempty"`
	JobID     JobID            `json:"jobId,omitempty"`
	Error     string           `json:"error,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

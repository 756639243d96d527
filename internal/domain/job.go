package domain

import "time"

// JobID is the server-assigned identifier of an acquisition job.
type JobID string

// JobPhase is the server-reported status of an acquisition job.
type JobPhase string

const (
	JobSearching   JobPhase = "searching"
	JobDownloading JobPhase = "downloading"
	JobCompleted   JobPhase = "completed"
	JobFailed      JobPhase = "failed"
)

// Terminal reports whether the phase ends the job's lifecycle.
func (p JobPhase) Terminal() bool {
	return p == JobCompleted || p == JobFailed
}

// JobStatus is one poll response for an acquisition job. Every field is
// server-authoritative; the client never synthesizes its own progress text.
type JobStatus struct {
	Phase       JobPhase         `json:"status"`
	Progress    float64          `json:"progress"`
	Message     string           `json:"message,omitempty"`
	StreamURL   string           `json:"streamUrl,omitempty"`
	FileName    string           `json:"fileName,omitempty"`
	Error       string           `json:"error,omitempty"`
	Subtitles   []SubtitleTrack  `json:"subtitles,omitempty"`
	NextEpisode *NextContentHint `json:"nextEpisode,omitempty"`
}

// AcquisitionJob is the client-side view of a server-side resolution task.
// It is created by a start-resolution call and mutated only by poll
// responses. At most one live job exists per playback session, plus at most
// one prefetch job with a distinct lifecycle; the two never share identity.
type AcquisitionJob struct {
	ID        JobID     `json:"id"`
	Status    JobStatus `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

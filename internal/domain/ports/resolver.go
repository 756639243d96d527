package ports

import (
	"context"

	"streampilot/internal/domain"
)

// StartResult is the response to a start-resolution call. Immediate means a
// cache hit: StreamURL is required and no job was created. Otherwise JobID
// identifies the download job to poll.
type StartResult struct {
	Immediate bool
	StreamURL string
	Source    string
	FileName  string
	JobID     domain.JobID
	Subtitles []domain.SubtitleTrack
}

// ReportBadResult is the response to a bad-stream report. On success with a
// NewJobID the caller re-enters the polling flow with the new id.
type ReportBadResult struct {
	Success  bool
	NewJobID domain.JobID
	Message  string
}

// PrefetchResult is the response to a prefetch-next call.
type PrefetchResult struct {
	HasNext bool
	JobID   domain.JobID
	Next    *domain.NextContentHint
}

// PromoteResult is the response to promoting a prefetch job to live.
type PromoteResult struct {
	Success   bool
	Status    domain.JobPhase
	Progress  float64
	StreamURL string
	FileName  string
	HasNext   bool
	Next      *domain.NextContentHint
	// Content is the identity of the promoted unit itself, used to re-seed
	// the prefetch chain for the unit after it.
	Content *domain.ContentRequest
}

// FallbackHints carries what the client knows about the current stream when
// asking for a lower-quality alternative.
type FallbackHints struct {
	DurationMs        int64
	CurrentBitrateBps int64
}

// SessionPing is the periodic keep-alive payload.
type SessionPing struct {
	Request  domain.ContentRequest
	Position domain.PlaybackPosition
}

// ResolutionService is the remote content-resolution API. All calls suspend
// on the network and honor context cancellation; none of them block other
// session activities.
type ResolutionService interface {
	// CheckSession verifies session validity; errors are fatal to starting
	// playback.
	CheckSession(ctx context.Context) error

	StartStream(ctx context.Context, req domain.ContentRequest) (StartResult, error)
	JobProgress(ctx context.Context, id domain.JobID) (domain.JobStatus, error)
	// CancelJob is best-effort; failures are logged only.
	CancelJob(ctx context.Context, id domain.JobID) error
	ReportBadStream(ctx context.Context, id domain.JobID, reason string) (ReportBadResult, error)

	SearchSubtitles(ctx context.Context, req domain.ContentRequest, lang string) ([]domain.SubtitleTrack, error)

	PrefetchNext(ctx context.Context, req domain.ContentRequest) (PrefetchResult, error)
	PromoteJob(ctx context.Context, id domain.JobID) (PromoteResult, error)

	// FallbackStream returns a lower-quality stream URL for the same
	// content, or "" when none is available.
	FallbackStream(ctx context.Context, req domain.ContentRequest, hints FallbackHints) (string, error)
	// FallbackConfig returns the server-supplied stutter thresholds.
	FallbackConfig(ctx context.Context) (domain.StutterConfig, error)

	// Fire-and-forget telemetry and session bookkeeping.
	Heartbeat(ctx context.Context, ping SessionPing) error
	SyncProgress(ctx context.Context, progress domain.WatchProgress) error
	EndSession(ctx context.Context) error
}

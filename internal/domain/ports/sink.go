package ports

import (
	"context"

	"streampilot/internal/domain"
)

// MediaSink is the local media decode/render engine. Commands are
// asynchronous: they return once dispatched, and completion is observed via
// sink-reported events on Events(), never by blocking. The sink is
// exclusively owned by one session controller at a time.
type MediaSink interface {
	// Prepare begins loading the given stream in the background. Readiness
	// is reported as an EventReady on Events().
	Prepare(ctx context.Context, streamURL string, startAtMs int64) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	// SetSource performs a live source swap without tearing the sink down.
	SetSource(ctx context.Context, streamURL string) error
	Seek(ctx context.Context, offsetMs int64) error
	AttachSubtitles(ctx context.Context, tracks []domain.SubtitleTrack) error
	SelectAudioTrack(ctx context.Context, trackID string) error
	Release(ctx context.Context) error

	// Events delivers the closed set of player event variants. The channel
	// is owned by the sink and stays open for its lifetime.
	Events() <-chan domain.PlayerEvent
}

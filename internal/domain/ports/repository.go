package ports

import (
	"context"

	"streampilot/internal/domain"
)

// WatchProgressStore persists playback positions keyed by content identity.
type WatchProgressStore interface {
	Upsert(ctx context.Context, progress domain.WatchProgress) error
	Get(ctx context.Context, key domain.ContentKey) (domain.WatchProgress, error)
	ListRecent(ctx context.Context, limit int) ([]domain.WatchProgress, error)
}

// ErrorLogStore records sink-reported playback errors for diagnostics and
// fallback-pattern analysis. Writes are best-effort.
type ErrorLogStore interface {
	Append(ctx context.Context, record domain.PlaybackErrorRecord) error
	ListRecent(ctx context.Context, limit int) ([]domain.PlaybackErrorRecord, error)
}

// AutoPlayStore persists the auto-play toggle, scoped per series for
// episodic content. The second return of Get reports whether a stored value
// exists.
type AutoPlayStore interface {
	Get(ctx context.Context, seriesID string) (enabled bool, ok bool, err error)
	Set(ctx context.Context, seriesID string, enabled bool) error
}

package domain

// Completion thresholds for persisting a title as watched. Episodes carry
// credits and next-episode previews, so they use a higher bar than movies.
const (
	completionThresholdEpisode = 0.95
	completionThresholdMovie   = 0.90
)

// PlaybackPosition is the media sink's latest reported playback state.
// It is updated on a fixed cadence (1s) while a session is active.
type PlaybackPosition struct {
	OffsetMs        int64   `json:"offsetMs"`
	DurationMs      int64   `json:"durationMs"`
	BufferedPercent float64 `json:"bufferedPercent"`
}

// Fraction returns the played fraction of the title in [0,1], or 0 when the
// duration is not yet known.
func (p PlaybackPosition) Fraction() float64 {
	if p.DurationMs <= 0 {
		return 0
	}
	f := float64(p.OffsetMs) / float64(p.DurationMs)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// CountsAsWatched reports whether the position is far enough through the
// title to persist it as completed for the given content kind.
func (p PlaybackPosition) CountsAsWatched(kind ContentKind) bool {
	threshold := completionThresholdMovie
	if kind == KindEpisode {
		threshold = completionThresholdEpisode
	}
	return p.DurationMs > 0 && p.Fraction() >= threshold
}

package resolver

import "streampilot/internal/domain"

// Wire bodies for the resolution-service HTTP contract. Field names follow
// the service's JSON conventions and never leak outside this package.

type startStreamRequest struct {
	ContentID string `json:"contentId"`
	Title     string `json:"title"`
	Year      int    `json:"year,omitempty"`
	Kind      string `json:"kind"`
	Season    int    `json:"season,omitempty"`
	Episode   int    `json:"episode,omitempty"`
}

type startStreamResponse struct {
	Immediate bool                   `json:"immediate"`
	StreamURL string                 `json:"streamUrl,omitempty"`
	Source    string                 `json:"source,omitempty"`
	FileName  string                 `json:"fileName,omitempty"`
	JobID     string                 `json:"jobId,omitempty"`
	Subtitles []domain.SubtitleTrack `json:"subtitles,omitempty"`
}

type reportBadRequest struct {
	JobID  string `json:"jobId"`
	Reason string `json:"reason,omitempty"`
}

type reportBadResponse struct {
	Success  bool   `json:"success"`
	NewJobID string `json:"newJobId,omitempty"`
	Message  string `json:"message,omitempty"`
}

type subtitleSearchRequest struct {
	ContentID string `json:"contentId"`
	Title     string `json:"title"`
	Year      int    `json:"year,omitempty"`
	Kind      string `json:"kind"`
	Season    int    `json:"season,omitempty"`
	Episode   int    `json:"episode,omitempty"`
	Language  string `json:"language,omitempty"`
}

type subtitleSearchResponse struct {
	Subtitles []domain.SubtitleTrack `json:"subtitles"`
}

type prefetchNextRequest struct {
	ContentID      string `json:"contentId"`
	Title          string `json:"title"`
	Year           int    `json:"year,omitempty"`
	Kind           string `json:"kind"`
	CurrentSeason  int    `json:"currentSeason,omitempty"`
	CurrentEpisode int    `json:"currentEpisode,omitempty"`
	Mode           string `json:"mode,omitempty"`
}

type prefetchNextResponse struct {
	HasNext bool                    `json:"hasNext"`
	JobID   string                  `json:"jobId,omitempty"`
	Next    *domain.NextContentHint `json:"nextEpisode,omitempty"`
}

type promoteResponse struct {
	Success   bool                    `json:"success"`
	Status    string                  `json:"status,omitempty"`
	Progress  float64                 `json:"progress,omitempty"`
	StreamURL string                  `json:"streamUrl,omitempty"`
	FileName  string                  `json:"fileName,omitempty"`
	HasNext   bool                    `json:"hasNext,omitempty"`
	Next      *domain.NextContentHint `json:"nextEpisode,omitempty"`
	Content   *contentInfo            `json:"contentInfo,omitempty"`
}

type contentInfo struct {
	ContentID string `json:"contentId"`
	Title     string `json:"title,omitempty"`
	Year      int    `json:"year,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Season    int    `json:"season,omitempty"`
	Episode   int    `json:"episode,omitempty"`
}

type fallbackRequest struct {
	ContentID      string `json:"contentId"`
	Kind           string `json:"kind"`
	Year           int    `json:"year,omitempty"`
	Season         int    `json:"season,omitempty"`
	Episode        int    `json:"episode,omitempty"`
	DurationMs     int64  `json:"duration,omitempty"`
	CurrentBitrate int64  `json:"currentBitrate,omitempty"`
}

type fallbackResponse struct {
	StreamURL string `json:"streamUrl,omitempty"`
}

type heartbeatRequest struct {
	ContentID  string `json:"contentId"`
	Season     int    `json:"season,omitempty"`
	Episode    int    `json:"episode,omitempty"`
	PositionMs int64  `json:"positionMs"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

type progressSyncRequest struct {
	ContentID  string `json:"contentId"`
	Season     int    `json:"season,omitempty"`
	Episode    int    `json:"episode,omitempty"`
	Kind       string `json:"kind"`
	PositionMs int64  `json:"positionMs"`
	DurationMs int64  `json:"durationMs,omitempty"`
	Completed  bool   `json:"completed"`
}

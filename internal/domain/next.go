package domain

// NextContentHint is server-provided metadata about the unit of content that
// follows the one currently playing. It arrives asynchronously on poll,
// prefetch and promotion responses.
type NextContentHint struct {
	ContentID string      `json:"contentId"`
	Title     string      `json:"title,omitempty"`
	Year      int         `json:"year,omitempty"`
	Kind      ContentKind `json:"kind,omitempty"`
	Season    int         `json:"season,omitempty"`
	Episode   int         `json:"episode,omitempty"`
}

// Request converts the hint into a playable ContentRequest, carrying over
// the playback mode of the session that produced it.
func (h NextContentHint) Request(mode PlaybackMode) ContentRequest {
	kind := h.Kind
	if kind == "" {
		kind = KindEpisode
	}
	return ContentRequest{
		ContentID: h.ContentID,
		Title:     h.Title,
		Year:      h.Year,
		Kind:      kind,
		Season:    h.Season,
		Episode:   h.Episode,
		Mode:      mode,
	}
}

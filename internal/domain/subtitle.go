package domain

// SubtitleTrack is one subtitle candidate, either embedded in a resolution
// response or returned by the out-of-band subtitle search.
type SubtitleTrack struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Label    string `json:"label,omitempty"`
	URL      string `json:"url"`
	Format   string `json:"format,omitempty"`
}

package domain

import "errors"

// ContentKind distinguishes standalone titles from episodic content.
type ContentKind string

const (
	KindMovie   ContentKind = "movie"
	KindEpisode ContentKind = "episode"
)

// PlaybackMode controls how the next unit of content is chosen when a
// session reaches end-of-content.
type PlaybackMode string

const (
	ModeSequential PlaybackMode = "sequential"
	ModeRandom     PlaybackMode = "random"
)

// ContentRequest identifies what to play. It is created once per playback
// session and never mutated afterwards.
type ContentRequest struct {
	ContentID string       `json:"contentId"`
	Title     string       `json:"title"`
	Year      int          `json:"year,omitempty"`
	Kind      ContentKind  `json:"kind"`
	Season    int          `json:"season,omitempty"`
	Episode   int          `json:"episode,omitempty"`
	Mode      PlaybackMode `json:"mode,omitempty"`
}

// Validate checks domain invariants for ContentRequest.
func (r ContentRequest) Validate() error {
	if r.ContentID == "" {
		return errors.New("contentId is required")
	}
	switch r.Kind {
	case KindMovie:
		// season/episode ignored for movies
	case KindEpisode:
		if r.Season <= 0 || r.Episode <= 0 {
			return errors.New("episode requests need positive season and episode")
		}
	case "":
		return errors.New("kind is required")
	default:
		return errors.New("invalid kind: " + string(r.Kind))
	}
	switch r.Mode {
	case "", ModeSequential, ModeRandom:
	default:
		return errors.New("invalid mode: " + string(r.Mode))
	}
	return nil
}

// Key returns the identity under which watch progress is persisted.
func (r ContentRequest) Key() ContentKey {
	key := ContentKey{ContentID: r.ContentID}
	if r.Kind == KindEpisode {
		key.Season = r.Season
		key.Episode = r.Episode
	}
	return key
}

// ContentKey is the persistence key for watch-progress records.
type ContentKey struct {
	ContentID string `json:"contentId"`
	Season    int    `json:"season,omitempty"`
	Episode   int    `json:"episode,omitempty"`
}

package domain

import "golang.org/x/text/language"

// AudioTrack is one selectable audio stream reported by the media sink.
type AudioTrack struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Label    string `json:"label,omitempty"`
	Channels int    `json:"channels,omitempty"`
}

// SelectAudioTrack picks the best audio track for a title: the original
// language wins, then the caller's preference list in order, then the first
// candidate. It is a pure function of its inputs so the heuristic stays
// independently testable.
func SelectAudioTrack(candidates []AudioTrack, originalLanguage string, preferred []string) (AudioTrack, bool) {
	if len(candidates) == 0 {
		return AudioTrack{}, false
	}

	wanted := make([]language.Tag, 0, len(preferred)+1)
	for _, raw := range append([]string{originalLanguage}, preferred...) {
		if raw == "" {
			continue
		}
		if tag, err := language.Parse(raw); err == nil {
			wanted = append(wanted, tag)
		}
	}
	if len(wanted) == 0 {
		return candidates[0], true
	}

	matcher := language.NewMatcher(wanted)
	bestIdx := -1
	bestConf := language.No
	bestRank := len(wanted)
	for i, c := range candidates {
		tag, err := language.Parse(c.Language)
		if err != nil {
			continue
		}
		_, rank, conf := matcher.Match(tag)
		if conf == language.No {
			continue
		}
		if conf > bestConf || (conf == bestConf && rank < bestRank) {
			bestIdx, bestConf, bestRank = i, conf, rank
		}
	}
	if bestIdx < 0 {
		return candidates[0], true
	}
	return candidates[bestIdx], true
}

package domain

import "testing"

func TestValidStreamURL(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"https://cdn.example.com/a.mkv", true},
		{"http://10.0.0.2:8080/stream/42", true},
		{"", false},
		{"   ", false},
		{"ftp://x/a.mkv", false},
		{"file:///tmp/a.mkv", false},
		{"https://", false},
		{"not a url", false},
	}
	for _, tc := range cases {
		if got := ValidStreamURL(tc.raw); got != tc.want {
			t.Errorf("ValidStreamURL(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestContentRequestValidate(t *testing.T) {
	valid := ContentRequest{ContentID: "42", Title: "A Movie", Kind: KindMovie}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid movie request rejected: %v", err)
	}

	episode := ContentRequest{ContentID: "7", Kind: KindEpisode, Season: 2, Episode: 5, Mode: ModeSequential}
	if err := episode.Validate(); err != nil {
		t.Fatalf("valid episode request rejected: %v", err)
	}

	bad := []ContentRequest{
		{Kind: KindMovie},
		{ContentID: "7"},
		{ContentID: "7", Kind: "clip"},
		{ContentID: "7", Kind: KindEpisode},
		{ContentID: "7", Kind: KindEpisode, Season: 1},
		{ContentID: "7", Kind: KindMovie, Mode: "shuffle"},
	}
	for i, req := range bad {
		if err := req.Validate(); err == nil {
			t.Errorf("case %d: expected validation error for %+v", i, req)
		}
	}
}

func TestContentRequestKey(t *testing.T) {
	movie := ContentRequest{ContentID: "42", Kind: KindMovie, Season: 3, Episode: 1}
	if key := movie.Key(); key.Season != 0 || key.Episode != 0 {
		t.Fatalf("movie key carries episode identity: %+v", key)
	}
	ep := ContentRequest{ContentID: "7", Kind: KindEpisode, Season: 3, Episode: 1}
	if key := ep.Key(); key.Season != 3 || key.Episode != 1 {
		t.Fatalf("episode key mismatch: %+v", key)
	}
}

func TestCountsAsWatched(t *testing.T) {
	cases := []struct {
		offset, duration int64
		kind             ContentKind
		want             bool
	}{
		{91_000, 100_000, KindMovie, true},
		{89_000, 100_000, KindMovie, false},
		{96_000, 100_000, KindEpisode, true},
		{94_000, 100_000, KindEpisode, false},
		{50_000, 0, KindMovie, false},
	}
	for i, tc := range cases {
		pos := PlaybackPosition{OffsetMs: tc.offset, DurationMs: tc.duration}
		if got := pos.CountsAsWatched(tc.kind); got != tc.want {
			t.Errorf("case %d: CountsAsWatched = %v, want %v", i, got, tc.want)
		}
	}
}

func TestResolutionErrorUserMessage(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"no seeders found for this release", "no seeders found for this release"},
		{"", "title unavailable"},
		{"failed", "title unavailable"},
		{"Error", "title unavailable"},
		{"  ", "title unavailable"},
	}
	for _, tc := range cases {
		err := &ResolutionError{Message: tc.message}
		if got := err.UserMessage(); got != tc.want {
			t.Errorf("UserMessage(%q) = %q, want %q", tc.message, got, tc.want)
		}
	}
}

func TestNewResolutionErrorPrefersErrorField(t *testing.T) {
	err := NewResolutionError(JobStatus{Phase: JobFailed, Message: "failed", Error: "tracker timeout"})
	if err.Message != "tracker timeout" {
		t.Fatalf("expected error field to win, got %q", err.Message)
	}
	err = NewResolutionError(JobStatus{Phase: JobFailed, Message: "no sources"})
	if err.Message != "no sources" {
		t.Fatalf("expected message fallback, got %q", err.Message)
	}
}

func TestStutterConfigNormalize(t *testing.T) {
	cfg := StutterConfig{}.Normalize()
	def := DefaultStutterConfig()
	if cfg.ConsecutiveThreshold != def.ConsecutiveThreshold || cfg.TimeWindowMs != def.TimeWindowMs {
		t.Fatalf("empty config did not normalize to defaults: %+v", cfg)
	}
	partial := StutterConfig{ConsecutiveThreshold: 5, TimeWindowMs: 60_000}.Normalize()
	if partial.ConsecutiveThreshold != 5 || partial.TimeWindow.Seconds() != 60 {
		t.Fatalf("partial config lost server values: %+v", partial)
	}
}

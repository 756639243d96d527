package session

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"streampilot/internal/domain"
	"streampilot/internal/domain/ports"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.DiscardHandler)
}

// fakeService scripts the resolution-service contract for tests. Poll
// responses are consumed per job in order; the last one repeats.
type fakeService struct {
	mu sync.Mutex

	checkErr error

	startResult ports.StartResult
	startErr    error
	startCalls  int

	progressByJob map[domain.JobID][]domain.JobStatus
	progressCalls map[domain.JobID]int

	reportResult ports.ReportBadResult
	reportErr    error
	reportCalls  []domain.JobID

	subtitles    []domain.SubtitleTrack
	subtitleErr  error
	searchCalls  int

	prefetchResults []ports.PrefetchResult
	prefetchErr     error
	prefetchCalls   int

	promoteResult ports.PromoteResult
	promoteErr    error
	promoteCalls  []domain.JobID

	fallbackURL   string
	fallbackErr   error
	fallbackCalls int

	config    domain.StutterConfig
	configErr error

	cancelled  []domain.JobID
	heartbeats int
	syncs      int
	ended      int
}

func newFakeService() *fakeService {
	return &fakeService{
		progressByJob: make(map[domain.JobID][]domain.JobStatus),
		progressCalls: make(map[domain.JobID]int),
		config:        domain.DefaultStutterConfig(),
	}
}

func (f *fakeService) CheckSession(ctx context.Context) error { return f.checkErr }

func (f *fakeService) StartStream(ctx context.Context, req domain.ContentRequest) (ports.StartResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return f.startResult, f.startErr
}

func (f *fakeService) JobProgress(ctx context.Context, id domain.JobID) (domain.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	steps := f.progressByJob[id]
	if len(steps) == 0 {
		return domain.JobStatus{}, domain.ErrNotFound
	}
	i := f.progressCalls[id]
	f.progressCalls[id]++
	if i >= len(steps) {
		i = len(steps) - 1
	}
	return steps[i], nil
}

func (f *fakeService) CancelJob(ctx context.Context, id domain.JobID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeService) ReportBadStream(ctx context.Context, id domain.JobID, reason string) (ports.ReportBadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportCalls = append(f.reportCalls, id)
	return f.reportResult, f.reportErr
}

func (f *fakeService) SearchSubtitles(ctx context.Context, req domain.ContentRequest, lang string) ([]domain.SubtitleTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	return f.subtitles, f.subtitleErr
}

func (f *fakeService) PrefetchNext(ctx context.Context, req domain.ContentRequest) (ports.PrefetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefetchErr != nil {
		f.prefetchCalls++
		return ports.PrefetchResult{}, f.prefetchErr
	}
	i := f.prefetchCalls
	f.prefetchCalls++
	if len(f.prefetchResults) == 0 {
		return ports.PrefetchResult{}, nil
	}
	if i >= len(f.prefetchResults) {
		i = len(f.prefetchResults) - 1
	}
	return f.prefetchResults[i], nil
}

func (f *fakeService) PromoteJob(ctx context.Context, id domain.JobID) (ports.PromoteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.promoteCalls = append(f.promoteCalls, id)
	return f.promoteResult, f.promoteErr
}

func (f *fakeService) FallbackStream(ctx context.Context, req domain.ContentRequest, hints ports.FallbackHints) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallbackCalls++
	return f.fallbackURL, f.fallbackErr
}

func (f *fakeService) FallbackConfig(ctx context.Context) (domain.StutterConfig, error) {
	return f.config, f.configErr
}

func (f *fakeService) Heartbeat(ctx context.Context, ping ports.SessionPing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats++
	return nil
}

func (f *fakeService) SyncProgress(ctx context.Context, progress domain.WatchProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs++
	return nil
}

func (f *fakeService) EndSession(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended++
	return nil
}

func (f *fakeService) progressCallCount(id domain.JobID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progressCalls[id]
}

var _ ports.ResolutionService = (*fakeService)(nil)

// fakeSink records sink commands and lets tests feed player events.
type fakeSink struct {
	mu        sync.Mutex
	events    chan domain.PlayerEvent
	prepared  []string
	startAt   []int64
	sources   []string
	seeks     []int64
	plays     int
	pauses    int
	releases  int
	subtitles [][]domain.SubtitleTrack
	audio     []string
}

func newFakeSink() *fakeSink {
	return &fakeSink{events: make(chan domain.PlayerEvent, 32)}
}

func (s *fakeSink) Prepare(ctx context.Context, streamURL string, startAtMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prepared = append(s.prepared, streamURL)
	s.startAt = append(s.startAt, startAtMs)
	return nil
}

func (s *fakeSink) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays++
	return nil
}

func (s *fakeSink) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses++
	return nil
}

func (s *fakeSink) SetSource(ctx context.Context, streamURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, streamURL)
	return nil
}

func (s *fakeSink) Seek(ctx context.Context, offsetMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeks = append(s.seeks, offsetMs)
	return nil
}

func (s *fakeSink) AttachSubtitles(ctx context.Context, tracks []domain.SubtitleTrack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subtitles = append(s.subtitles, tracks)
	return nil
}

func (s *fakeSink) SelectAudioTrack(ctx context.Context, trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, trackID)
	return nil
}

func (s *fakeSink) Release(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases++
	return nil
}

func (s *fakeSink) Events() <-chan domain.PlayerEvent { return s.events }

func (s *fakeSink) preparedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prepared...)
}

func (s *fakeSink) sourceSwaps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sources...)
}

var _ ports.MediaSink = (*fakeSink)(nil)

// memProgressStore is an in-memory watch-progress store.
type memProgressStore struct {
	mu      sync.Mutex
	records map[domain.ContentKey]domain.WatchProgress
}

func newMemProgressStore() *memProgressStore {
	return &memProgressStore{records: make(map[domain.ContentKey]domain.WatchProgress)}
}

func (s *memProgressStore) Upsert(ctx context.Context, progress domain.WatchProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[progress.Key] = progress
	return nil
}

func (s *memProgressStore) Get(ctx context.Context, key domain.ContentKey) (domain.WatchProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	if !ok {
		return domain.WatchProgress{}, domain.ErrNotFound
	}
	return record, nil
}

func (s *memProgressStore) ListRecent(ctx context.Context, limit int) ([]domain.WatchProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.WatchProgress, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

type memErrorLog struct {
	mu      sync.Mutex
	records []domain.PlaybackErrorRecord
}

func (s *memErrorLog) Append(ctx context.Context, record domain.PlaybackErrorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *memErrorLog) ListRecent(ctx context.Context, limit int) ([]domain.PlaybackErrorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PlaybackErrorRecord(nil), s.records...), nil
}

type memAutoPlayStore struct {
	mu     sync.Mutex
	values map[string]bool
}

func newMemAutoPlayStore() *memAutoPlayStore {
	return &memAutoPlayStore{values: make(map[string]bool)}
}

func (s *memAutoPlayStore) Get(ctx context.Context, seriesID string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[seriesID]
	return v, ok, nil
}

func (s *memAutoPlayStore) Set(ctx context.Context, seriesID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[seriesID] = enabled
	return nil
}

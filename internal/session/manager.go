package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"streampilot/internal/domain"
	"streampilot/internal/domain/ports"
)

// Notifier publishes session-level signals the UI renders outside the
// session snapshot (series complete, show recommendations, session ended).
type Notifier func(event string, data any)

// ManagerConfig wires the session manager's collaborators.
type ManagerConfig struct {
	Service  ports.ResolutionService
	Sink     ports.MediaSink
	Progress ports.WatchProgressStore
	ErrorLog ports.ErrorLogStore
	AutoPlay ports.AutoPlayStore
	Logger   *slog.Logger
	Notify   Notifier

	PollInterval      time.Duration
	SettleDelay       time.Duration
	HeartbeatInterval time.Duration
	MaxPollFailures   int
}

// Manager owns the single live playback session and the prefetch pipeline
// that spans session boundaries. Starting a new session replaces and tears
// down the previous one.
type Manager struct {
	service  ports.ResolutionService
	sink     ports.MediaSink
	progress ports.WatchProgressStore
	errorLog ports.ErrorLogStore
	autoplay ports.AutoPlayStore
	prefetch *PrefetchPipeline
	logger   *slog.Logger
	notify   Notifier

	pollInterval      time.Duration
	settleDelay       time.Duration
	heartbeatInterval time.Duration
	maxPollFailures   int

	mu      sync.Mutex
	current *Controller
}

func NewManager(cfg ManagerConfig) *Manager {
	notify := cfg.Notify
	if notify == nil {
		notify = func(string, any) {}
	}
	return &Manager{
		service:           cfg.Service,
		sink:              cfg.Sink,
		progress:          cfg.Progress,
		errorLog:          cfg.ErrorLog,
		autoplay:          cfg.AutoPlay,
		prefetch:          NewPrefetchPipeline(cfg.Service, cfg.Logger),
		logger:            cfg.Logger,
		notify:            notify,
		pollInterval:      cfg.PollInterval,
		settleDelay:       cfg.SettleDelay,
		heartbeatInterval: cfg.HeartbeatInterval,
		maxPollFailures:   cfg.MaxPollFailures,
	}
}

// Start begins a new playback session for the request, replacing any live
// one. It returns the initial snapshot immediately; acquisition continues in
// the background.
func (m *Manager) Start(ctx context.Context, req domain.ContentRequest) (domain.SessionSnapshot, error) {
	if err := req.Validate(); err != nil {
		return domain.SessionSnapshot{}, err
	}
	if err := m.service.CheckSession(ctx); err != nil {
		return domain.SessionSnapshot{}, err
	}

	m.teardownCurrent(ctx)
	m.prefetch.ResetSession(ctx)

	startAt := m.resumeOffset(ctx, req)
	ctrl := m.newController(ctx, req, startAt, nil)

	m.mu.Lock()
	m.current = ctrl
	m.mu.Unlock()

	ctrl.Start()
	return ctrl.Snapshot(), nil
}

// Current returns the live session's snapshot.
func (m *Manager) Current() (domain.SessionSnapshot, error) {
	m.mu.Lock()
	ctrl := m.current
	m.mu.Unlock()
	if ctrl == nil {
		return domain.SessionSnapshot{}, domain.ErrNoActiveSession
	}
	return ctrl.Snapshot(), nil
}

// Stop tears the live session down.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	ctrl := m.current
	m.current = nil
	m.mu.Unlock()
	if ctrl == nil {
		return domain.ErrNoActiveSession
	}
	ctrl.Teardown(ctx)
	m.prefetch.ResetSession(ctx)
	return nil
}

func (m *Manager) Pause(ctx context.Context) error {
	ctrl, err := m.live()
	if err != nil {
		return err
	}
	return ctrl.Pause(ctx)
}

func (m *Manager) Resume(ctx context.Context) error {
	ctrl, err := m.live()
	if err != nil {
		return err
	}
	return ctrl.Resume(ctx)
}

func (m *Manager) Seek(ctx context.Context, offsetMs int64) error {
	ctrl, err := m.live()
	if err != nil {
		return err
	}
	return ctrl.Seek(ctx, offsetMs)
}

func (m *Manager) ReportBad(ctx context.Context, reason string) error {
	ctrl, err := m.live()
	if err != nil {
		return err
	}
	return ctrl.ReportBad(ctx, reason)
}

func (m *Manager) live() (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, domain.ErrNoActiveSession
	}
	return m.current, nil
}

func (m *Manager) teardownCurrent(ctx context.Context) {
	m.mu.Lock()
	old := m.current
	m.current = nil
	m.mu.Unlock()
	if old != nil {
		old.Teardown(ctx)
	}
}

// resumeOffset looks up stored watch progress so an interrupted title
// resumes where it left off. Completed titles start from the beginning.
func (m *Manager) resumeOffset(ctx context.Context, req domain.ContentRequest) int64 {
	record, err := m.progress.Get(ctx, req.Key())
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			m.logger.Warn("watch progress lookup failed",
				slog.String("content_id", req.ContentID),
				slog.String("error", err.Error()))
		}
		return 0
	}
	if record.Completed {
		return 0
	}
	return record.PositionMs
}

func (m *Manager) newController(ctx context.Context, req domain.ContentRequest, startAtMs int64, preResolved *StreamDescriptor) *Controller {
	stutterCfg, err := m.service.FallbackConfig(ctx)
	if err != nil {
		stutterCfg = domain.DefaultStutterConfig()
		m.logger.Warn("fallback config fetch failed, using defaults",
			slog.String("error", err.Error()))
	}

	return NewController(ControllerConfig{
		Request: req,
		Service: m.service,
		Sink:    m.sink,
		Resolver: &StreamResolver{
			Service:         m.service,
			Sink:            m.sink,
			Logger:          m.logger,
			PollInterval:    m.pollInterval,
			MaxPollFailures: m.maxPollFailures,
			SettleDelay:     m.settleDelay,
		},
		Prefetch:          m.prefetch,
		Progress:          m.progress,
		ErrorLog:          m.errorLog,
		Logger:            m.logger,
		StutterConfig:     stutterCfg,
		HeartbeatInterval: m.heartbeatInterval,
		AutoPlay:          m.autoPlayEnabled(ctx, req),
		StartAtMs:         startAtMs,
		OnEnded:           m.handleEnded,
		PreResolved:       preResolved,
	})
}

// autoPlayEnabled reads the per-series auto-play toggle; absent a stored
// value auto-play defaults to on.
func (m *Manager) autoPlayEnabled(ctx context.Context, req domain.ContentRequest) bool {
	if req.Kind != domain.KindEpisode {
		return true
	}
	enabled, ok, err := m.autoplay.Get(ctx, req.ContentID)
	if err != nil {
		m.logger.Warn("auto-play setting lookup failed",
			slog.String("series_id", req.ContentID),
			slog.String("error", err.Error()))
		return true
	}
	if !ok {
		return true
	}
	return enabled
}

// SetAutoPlay stores the auto-play toggle for a series.
func (m *Manager) SetAutoPlay(ctx context.Context, seriesID string, enabled bool) error {
	return m.autoplay.Set(ctx, seriesID, enabled)
}

// AutoPlay reports the effective auto-play setting for a series.
func (m *Manager) AutoPlay(ctx context.Context, seriesID string) bool {
	enabled, ok, err := m.autoplay.Get(ctx, seriesID)
	if err != nil || !ok {
		return true
	}
	return enabled
}

// handleEnded decides what follows natural end-of-content: promotion of a
// prefetched job, on-demand resolution of the next unit, or a terminal
// signal to the UI. Runs on the ended session's event goroutine.
func (m *Manager) handleEnded(final domain.SessionSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req := final.Request
	m.notify("session_ended", final)

	if req.Kind != domain.KindEpisode {
		m.notify("show_recommendations", req)
		return
	}
	if !m.autoPlayEnabled(ctx, req) {
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = domain.ModeSequential
	}

	// Seamless fast path: a completed prefetch job becomes the live source
	// without going through resolution again.
	if outcome := m.prefetch.Promote(ctx, mode); outcome.Ready {
		m.startContinuation(ctx, outcome.Request, &outcome.Stream)
		return
	}

	next, ok := m.nextRequest(ctx, req, mode)
	if !ok {
		m.notify("series_complete", req)
		return
	}
	m.startContinuation(ctx, next, nil)
}

// nextRequest picks the unit that follows req when no promoted stream is
// available. Sequential mode advances deterministically; random mode asks
// the service for a fresh pick rather than reporting series complete.
func (m *Manager) nextRequest(ctx context.Context, req domain.ContentRequest, mode domain.PlaybackMode) (domain.ContentRequest, bool) {
	if _, hint, armed := m.prefetch.Armed(); armed && hint != nil {
		return hint.Request(mode), true
	}

	if mode == domain.ModeRandom {
		result, err := m.service.PrefetchNext(ctx, req)
		if err != nil || !result.HasNext || result.Next == nil {
			if err != nil {
				m.logger.Warn("random next pick failed", slog.String("error", err.Error()))
			}
			return domain.ContentRequest{}, false
		}
		return result.Next.Request(mode), true
	}

	next := req
	next.Episode++
	return next, true
}

// startContinuation replaces the ended session with the next unit's.
func (m *Manager) startContinuation(ctx context.Context, req domain.ContentRequest, preResolved *StreamDescriptor) {
	if err := req.Validate(); err != nil {
		m.logger.Error("continuation request invalid",
			slog.String("content_id", req.ContentID),
			slog.String("error", err.Error()))
		m.notify("series_complete", req)
		return
	}

	m.teardownCurrent(ctx)
	ctrl := m.newController(ctx, req, 0, preResolved)

	m.mu.Lock()
	m.current = ctrl
	m.mu.Unlock()

	ctrl.Start()
	m.notify("session_continued", ctrl.Snapshot())
	m.logger.Info("continuing playback with next unit",
		slog.String("content_id", req.ContentID),
		slog.Int("season", req.Season),
		slog.Int("episode", req.Episode),
		slog.Bool("promoted", preResolved != nil))
}

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"streampilot/internal/domain"
	"streampilot/internal/domain/ports"
	"streampilot/internal/metrics"
)

const defaultHeartbeatInterval = 30 * time.Second

// ControllerConfig wires one playback session together.
type ControllerConfig struct {
	Request  domain.ContentRequest
	Service  ports.ResolutionService
	Sink     ports.MediaSink
	Resolver *StreamResolver
	Prefetch *PrefetchPipeline
	Progress ports.WatchProgressStore
	ErrorLog ports.ErrorLogStore
	Logger   *slog.Logger

	StutterConfig     domain.StutterConfig
	HeartbeatInterval time.Duration
	AutoPlay          bool
	StartAtMs         int64

	// OnEnded is invoked once when playback reaches natural end-of-content,
	// after the final position has been persisted. It runs on the session's
	// event goroutine.
	OnEnded func(final domain.SessionSnapshot)

	// PreResolved carries an already-playable stream (a promoted prefetch
	// job); when set, acquisition is skipped entirely.
	PreResolved *StreamDescriptor
}

// Controller owns one playback session: the phase state machine, the
// position and heartbeat loops, and the wiring of sink events into the
// stutter fallback and prefetch pipeline. At most one controller owns the
// media sink at a time.
type Controller struct {
	request  domain.ContentRequest
	service  ports.ResolutionService
	sink     ports.MediaSink
	resolver *StreamResolver
	prefetch *PrefetchPipeline
	stutter  *StutterFallback
	progress ports.WatchProgressStore
	errorLog ports.ErrorLogStore
	logger   *slog.Logger

	heartbeatInterval time.Duration
	autoPlay          bool
	startAtMs         int64
	onEnded           func(domain.SessionSnapshot)
	preResolved       *StreamDescriptor

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	snap        domain.SessionSnapshot
	sinkReady   bool
	swapping    bool
	tornDown    bool
	lastBitrate int64

	teardownOnce sync.Once

	now func() time.Time
}

func NewController(cfg ControllerConfig) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	c := &Controller{
		request:           cfg.Request,
		service:           cfg.Service,
		sink:              cfg.Sink,
		resolver:          cfg.Resolver,
		prefetch:          cfg.Prefetch,
		progress:          cfg.Progress,
		errorLog:          cfg.ErrorLog,
		logger:            cfg.Logger,
		heartbeatInterval: heartbeat,
		autoPlay:          cfg.AutoPlay,
		startAtMs:         cfg.StartAtMs,
		onEnded:           cfg.OnEnded,
		preResolved:       cfg.PreResolved,
		ctx:               ctx,
		cancel:            cancel,
		done:              make(chan struct{}),
		now:               time.Now,
	}
	c.snap = domain.SessionSnapshot{
		Request:   cfg.Request,
		Phase:     domain.PhaseSearching,
		Loading:   domain.PhaseUpdate{Phase: domain.LoadingSearching},
		UpdatedAt: c.now(),
	}
	c.stutter = NewStutterFallback(cfg.Service, c, cfg.Request, cfg.StutterConfig, c.fallbackHints, cfg.Logger)
	return c
}

// Start launches the acquisition and the session event loop. It returns
// immediately; all progress is observable through Snapshot.
func (c *Controller) Start() {
	metrics.ActiveSessions.Inc()
	go c.run()
	if c.preResolved != nil {
		go c.adoptPreResolved(*c.preResolved)
	} else {
		go c.acquire()
	}
}

// Done is closed when the session's event loop has fully stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Snapshot returns the externally observable session state.
func (c *Controller) Snapshot() domain.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *Controller) Request() domain.ContentRequest {
	return c.request
}

// acquire runs the full resolution flow and hands the result to playback.
func (c *Controller) acquire() {
	desc, err := c.resolver.Resolve(c.ctx, c.request, c.startAtMs, c.publishPhase)
	c.finishAcquisition(desc, err)
}

// adoptPreResolved plays a promoted prefetch stream, skipping resolution.
// The sink still needs preparation; the settle delay does not apply.
func (c *Controller) adoptPreResolved(desc StreamDescriptor) {
	if err := c.sink.Prepare(c.ctx, desc.StreamURL, c.startAtMs); err != nil {
		c.finishAcquisition(StreamDescriptor{}, err)
		return
	}
	c.publishPhase(domain.PhaseUpdate{Phase: domain.LoadingReady, Progress: 100})
	c.finishAcquisition(desc, nil)
}

func (c *Controller) finishAcquisition(desc StreamDescriptor, err error) {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return
	}
	if err == nil {
		c.snap.StreamURL = desc.StreamURL
		c.snap.JobID = desc.JobID
		c.snap.UpdatedAt = c.now()
	}
	c.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.setError(err)
		return
	}
	c.maybeStartPlayback()
}

// resumeAfterBadReport re-enters polling against a replacement job id,
// without touching the start endpoint.
func (c *Controller) resumeAfterBadReport(id domain.JobID, startAtMs int64) {
	c.resetPhase("bad stream report")
	desc, err := c.resolver.ResumePolling(c.ctx, c.request, id, startAtMs, c.publishPhase)
	c.finishAcquisition(desc, err)
}

// run is the session event loop: sink events plus the heartbeat ticker.
func (c *Controller) run() {
	defer close(c.done)
	defer metrics.ActiveSessions.Dec()

	heartbeat := time.NewTicker(c.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-heartbeat.C:
			go c.heartbeat()
		case ev, ok := <-c.sink.Events():
			if !ok {
				return
			}
			if c.handleEvent(ev) {
				return
			}
		}
	}
}

// handleEvent processes one sink event; returning true stops the loop.
func (c *Controller) handleEvent(ev domain.PlayerEvent) bool {
	if ev.BitrateBps > 0 {
		c.mu.Lock()
		c.lastBitrate = ev.BitrateBps
		c.mu.Unlock()
	}

	switch ev.Type {
	case domain.EventReady:
		c.mu.Lock()
		c.sinkReady = true
		c.mu.Unlock()
		c.maybeStartPlayback()

	case domain.EventPlaying:
		c.transitionTo(domain.PhasePlaying)

	case domain.EventPaused:
		c.transitionTo(domain.PhasePaused)

	case domain.EventBuffering:
		go c.stutter.OnBuffering(c.ctx)

	case domain.EventPosition:
		c.onPosition(ev.Position)

	case domain.EventTracks:
		go c.selectAudioTrack(ev.Tracks)

	case domain.EventEnded:
		c.onEndOfContent()
		return true

	case domain.EventError:
		return c.onPlayerError(ev)
	}
	return false
}

// onPosition publishes the sink's latest position and piggybacks the
// prefetch trigger check. Updates are dropped while a source swap is in
// flight so stale duration values never race the new source's.
func (c *Controller) onPosition(pos domain.PlaybackPosition) {
	c.mu.Lock()
	if c.swapping {
		c.mu.Unlock()
		return
	}
	c.snap.Position = pos
	c.snap.UpdatedAt = c.now()
	c.mu.Unlock()

	go c.prefetch.MaybeTrigger(c.ctx, c.request, pos, c.autoPlay)
}

// maybeStartPlayback transitions Ready → Playing once both the acquisition
// has published ready and the sink has reported its ready signal. No second
// explicit start is ever required.
func (c *Controller) maybeStartPlayback() {
	c.mu.Lock()
	ready := c.sinkReady && c.snap.Phase == domain.PhaseReady
	c.mu.Unlock()
	if !ready {
		return
	}
	if err := c.sink.Play(c.ctx); err != nil {
		c.setError(err)
		return
	}
	c.transitionTo(domain.PhasePlaying)
}

func (c *Controller) onEndOfContent() {
	final := c.persistFinalPosition()
	c.transitionTo(domain.PhaseEnded)
	if c.onEnded != nil {
		final.Phase = domain.PhaseEnded
		c.onEnded(final)
	}
}

// onPlayerError records the sink error and decides fatality. Recoverable
// errors (subtitle attachment, transient decode hiccups the sink survives)
// are swallowed; everything else is surfaced as unavailability.
func (c *Controller) onPlayerError(ev domain.PlayerEvent) bool {
	c.mu.Lock()
	streamURL := c.snap.StreamURL
	c.mu.Unlock()

	record := domain.PlaybackErrorRecord{
		Key:       c.request.Key(),
		StreamURL: streamURL,
		Code:      ev.ErrorCode,
		Cause:     ev.ErrorMessage,
		Fatal:     !ev.Recoverable,
		At:        c.now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := c.errorLog.Append(ctx, record); err != nil {
		c.logger.Warn("playback error log write failed", slog.String("error", err.Error()))
	}
	cancel()

	if ev.Recoverable {
		metrics.PlayerErrorsTotal.WithLabelValues("false").Inc()
		c.logger.Warn("recoverable player error",
			slog.String("content_id", c.request.ContentID),
			slog.String("code", ev.ErrorCode),
			slog.String("cause", ev.ErrorMessage))
		return false
	}

	metrics.PlayerErrorsTotal.WithLabelValues("true").Inc()
	c.setError(errors.New("player error: " + ev.ErrorMessage))
	return true
}

func (c *Controller) selectAudioTrack(candidates []domain.AudioTrack) {
	track, ok := domain.SelectAudioTrack(candidates, "", nil)
	if !ok {
		return
	}
	if err := c.sink.SelectAudioTrack(c.ctx, track.ID); err != nil {
		c.logger.Debug("audio track selection failed",
			slog.String("track_id", track.ID),
			slog.String("error", err.Error()))
	}
}

// Pause and Resume forward the user's intent to the sink; the published
// phase follows the sink's own events, not these calls.
func (c *Controller) Pause(ctx context.Context) error {
	return c.sink.Pause(ctx)
}

func (c *Controller) Resume(ctx context.Context) error {
	return c.sink.Play(ctx)
}

func (c *Controller) Seek(ctx context.Context, offsetMs int64) error {
	return c.sink.Seek(ctx, offsetMs)
}

// ReportBad reports the current stream as broken. On success with a
// replacement job id the session re-enters polling against it; the start
// endpoint is not called again.
func (c *Controller) ReportBad(ctx context.Context, reason string) error {
	c.mu.Lock()
	jobID := c.snap.JobID
	startAt := c.snap.Position.OffsetMs
	c.mu.Unlock()

	if jobID == "" {
		return errors.New("current stream has no acquisition job to report")
	}

	result, err := c.service.ReportBadStream(ctx, jobID, reason)
	if err != nil {
		return err
	}
	if !result.Success || result.NewJobID == "" {
		if result.Message != "" {
			return errors.New(result.Message)
		}
		return errors.New("bad stream report was not accepted")
	}

	c.logger.Info("bad stream reported, re-entering polling",
		slog.String("old_job_id", string(jobID)),
		slog.String("new_job_id", string(result.NewJobID)))
	go c.resumeAfterBadReport(result.NewJobID, startAt)
	return nil
}

// SwapTo performs the live source swap for the stutter fallback: capture
// position, switch the source, seek back, resume. Position reporting is
// paused for the duration so stale values never mix with the new source's.
func (c *Controller) SwapTo(ctx context.Context, streamURL string) error {
	c.mu.Lock()
	offset := c.snap.Position.OffsetMs
	c.swapping = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.swapping = false
		c.mu.Unlock()
	}()

	if err := c.sink.SetSource(ctx, streamURL); err != nil {
		return err
	}
	if err := c.sink.Seek(ctx, offset); err != nil {
		return err
	}
	if err := c.sink.Play(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.snap.StreamURL = streamURL
	c.snap.UpdatedAt = c.now()
	c.mu.Unlock()
	return nil
}

// heartbeat persists the current position and pings the resolution service.
// Failures are logged and never reach the user-visible state.
func (c *Controller) heartbeat() {
	c.mu.Lock()
	if c.snap.Phase != domain.PhasePlaying && c.snap.Phase != domain.PhasePaused {
		c.mu.Unlock()
		return
	}
	pos := c.snap.Position
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	record := c.progressRecord(pos)
	if err := c.progress.Upsert(ctx, record); err != nil {
		c.logger.Warn("watch progress upsert failed", slog.String("error", err.Error()))
	}
	if err := c.service.SyncProgress(ctx, record); err != nil {
		metrics.HeartbeatFailuresTotal.Inc()
		c.logger.Warn("progress sync failed", slog.String("error", err.Error()))
	}
	if err := c.service.Heartbeat(ctx, ports.SessionPing{Request: c.request, Position: pos}); err != nil {
		metrics.HeartbeatFailuresTotal.Inc()
		c.logger.Warn("session heartbeat failed", slog.String("error", err.Error()))
	}
}

func (c *Controller) progressRecord(pos domain.PlaybackPosition) domain.WatchProgress {
	return domain.WatchProgress{
		Key:        c.request.Key(),
		Kind:       c.request.Kind,
		Title:      c.request.Title,
		PositionMs: pos.OffsetMs,
		DurationMs: pos.DurationMs,
		Completed:  pos.CountsAsWatched(c.request.Kind),
		UpdatedAt:  c.now(),
	}
}

func (c *Controller) persistFinalPosition() domain.SessionSnapshot {
	c.mu.Lock()
	snap := c.snap
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	record := c.progressRecord(snap.Position)
	if err := c.progress.Upsert(ctx, record); err != nil {
		c.logger.Warn("final watch progress upsert failed", slog.String("error", err.Error()))
	}
	if err := c.service.SyncProgress(ctx, record); err != nil {
		c.logger.Warn("final progress sync failed", slog.String("error", err.Error()))
	}
	return snap
}

// Teardown ends the session: the final position is persisted, the service
// is told the session ended and the sink is released. Safe to call more
// than once; results of in-flight work arriving afterwards are discarded.
func (c *Controller) Teardown(ctx context.Context) {
	c.teardownOnce.Do(func() {
		c.mu.Lock()
		c.tornDown = true
		alreadyEnded := c.snap.Phase.Terminal()
		jobID := c.snap.JobID
		c.mu.Unlock()

		if !alreadyEnded {
			c.persistFinalPosition()
		}
		c.cancel()

		if jobID != "" && !alreadyEnded {
			if err := c.service.CancelJob(ctx, jobID); err != nil {
				c.logger.Debug("job cancel failed",
					slog.String("job_id", string(jobID)),
					slog.String("error", err.Error()))
			}
		}
		if err := c.service.EndSession(ctx); err != nil {
			c.logger.Warn("session end notification failed", slog.String("error", err.Error()))
		}
		if err := c.sink.Release(ctx); err != nil {
			c.logger.Warn("sink release failed", slog.String("error", err.Error()))
		}
		c.stutter.Reset()
	})
}

func (c *Controller) fallbackHints() ports.FallbackHints {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ports.FallbackHints{
		DurationMs:        c.snap.Position.DurationMs,
		CurrentBitrateBps: c.lastBitrate,
	}
}

// publishPhase maps a loading-phase transition onto the session state
// machine and records the server's progress fields verbatim.
func (c *Controller) publishPhase(update domain.PhaseUpdate) {
	c.mu.Lock()
	c.snap.Loading = update
	c.snap.UpdatedAt = c.now()
	c.mu.Unlock()

	switch update.Phase {
	case domain.LoadingDownloading:
		c.transitionTo(domain.PhaseDownloading)
	case domain.LoadingReady:
		c.transitionTo(domain.PhaseReady)
		c.maybeStartPlayback()
	}
}

func (c *Controller) transitionTo(phase domain.SessionPhase) {
	c.mu.Lock()
	from := c.snap.Phase
	if from == phase || !domain.CanTransition(from, phase) {
		c.mu.Unlock()
		return
	}
	c.snap.Phase = phase
	c.snap.UpdatedAt = c.now()
	c.mu.Unlock()

	metrics.SessionPhaseTransitionsTotal.WithLabelValues(string(from), string(phase)).Inc()
	c.logger.Info("session phase transition",
		slog.String("content_id", c.request.ContentID),
		slog.String("from", string(from)),
		slog.String("to", string(phase)))
}

// resetPhase is the one sanctioned non-monotonic move: an explicit
// re-acquisition drops the session back to searching.
func (c *Controller) resetPhase(reason string) {
	c.mu.Lock()
	from := c.snap.Phase
	c.snap.Phase = domain.PhaseSearching
	c.snap.Loading = domain.PhaseUpdate{Phase: domain.LoadingSearching}
	c.snap.Error = ""
	c.sinkReady = false
	c.snap.UpdatedAt = c.now()
	c.mu.Unlock()

	metrics.SessionPhaseTransitionsTotal.WithLabelValues(string(from), string(domain.PhaseSearching)).Inc()
	c.logger.Info("session phase reset",
		slog.String("content_id", c.request.ContentID),
		slog.String("from", string(from)),
		slog.String("reason", reason))
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	if c.tornDown || c.snap.Phase.Terminal() {
		c.mu.Unlock()
		return
	}
	from := c.snap.Phase
	c.snap.Phase = domain.PhaseError
	c.snap.Error = domain.UserFacingMessage(err)
	c.snap.UpdatedAt = c.now()
	c.mu.Unlock()

	metrics.SessionPhaseTransitionsTotal.WithLabelValues(string(from), string(domain.PhaseError)).Inc()
	c.logger.Error("session error",
		slog.String("content_id", c.request.ContentID),
		slog.String("phase", string(from)),
		slog.String("error", err.Error()))
}

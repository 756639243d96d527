package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"streampilot/internal/domain"
	"streampilot/internal/domain/ports"
	"streampilot/internal/metrics"
	"streampilot/internal/poller"
)

const defaultSettleDelay = 3 * time.Second

// StreamDescriptor is the product of a successful acquisition: a validated
// stream URL plus whatever the server attached to it.
type StreamDescriptor struct {
	StreamURL string
	FileName  string
	Source    string
	JobID     domain.JobID
	Subtitles []domain.SubtitleTrack
	Next      *domain.NextContentHint
}

// StreamResolver turns a content request into a playable stream. It emits
// loading-phase transitions as it goes; progress and message fields are the
// server's verbatim, never synthesized here.
type StreamResolver struct {
	Service ports.ResolutionService
	Sink    ports.MediaSink
	Logger  *slog.Logger

	PollInterval    time.Duration
	MaxPollFailures int
	// SettleDelay holds the loading phase after sink preparation begins,
	// letting buffering get ahead of the visible transition.
	SettleDelay time.Duration
}

// Resolve acquires a stream for the request. The emit callback receives
// phase transitions in order; the final emit is always the ready phase on
// success. On the cache-hit path no polling happens at all.
func (r *StreamResolver) Resolve(ctx context.Context, req domain.ContentRequest, startAtMs int64, emit func(domain.PhaseUpdate)) (StreamDescriptor, error) {
	started := time.Now()
	emit(domain.PhaseUpdate{Phase: domain.LoadingSearching})

	result, err := r.Service.StartStream(ctx, req)
	if err != nil {
		metrics.AcquisitionsTotal.WithLabelValues("failed").Inc()
		return StreamDescriptor{}, fmt.Errorf("start stream: %w", err)
	}

	if result.Immediate {
		if !domain.ValidStreamURL(result.StreamURL) {
			metrics.AcquisitionsTotal.WithLabelValues("failed").Inc()
			return StreamDescriptor{}, domain.ErrInvalidStreamURL
		}
		desc := StreamDescriptor{
			StreamURL: result.StreamURL,
			FileName:  result.FileName,
			Source:    result.Source,
			Subtitles: result.Subtitles,
		}
		if err := r.prepareAndSettle(ctx, req, desc, startAtMs, emit); err != nil {
			metrics.AcquisitionsTotal.WithLabelValues("failed").Inc()
			return StreamDescriptor{}, err
		}
		metrics.AcquisitionsTotal.WithLabelValues("immediate").Inc()
		metrics.AcquisitionDuration.Observe(time.Since(started).Seconds())
		r.Logger.Info("stream resolved from cache",
			slog.String("content_id", req.ContentID),
			slog.String("source", result.Source))
		return desc, nil
	}

	if result.JobID == "" {
		metrics.AcquisitionsTotal.WithLabelValues("failed").Inc()
		return StreamDescriptor{}, errors.New("start response carries neither stream url nor job id")
	}

	desc, err := r.pollToCompletion(ctx, result.JobID, emit)
	if err != nil {
		metrics.AcquisitionsTotal.WithLabelValues("failed").Inc()
		return StreamDescriptor{}, err
	}
	if len(desc.Subtitles) == 0 {
		desc.Subtitles = result.Subtitles
	}
	if err := r.prepareAndSettle(ctx, req, desc, startAtMs, emit); err != nil {
		metrics.AcquisitionsTotal.WithLabelValues("failed").Inc()
		return StreamDescriptor{}, err
	}
	metrics.AcquisitionsTotal.WithLabelValues("polled").Inc()
	metrics.AcquisitionDuration.Observe(time.Since(started).Seconds())
	r.Logger.Info("stream resolved via download job",
		slog.String("content_id", req.ContentID),
		slog.String("job_id", string(desc.JobID)))
	return desc, nil
}

// ResumePolling re-enters the polling flow against an already-known job id.
// Used after a bad-stream report hands back a replacement job; the start
// endpoint is deliberately not called again.
func (r *StreamResolver) ResumePolling(ctx context.Context, req domain.ContentRequest, id domain.JobID, startAtMs int64, emit func(domain.PhaseUpdate)) (StreamDescriptor, error) {
	emit(domain.PhaseUpdate{Phase: domain.LoadingSearching})

	desc, err := r.pollToCompletion(ctx, id, emit)
	if err != nil {
		metrics.AcquisitionsTotal.WithLabelValues("failed").Inc()
		return StreamDescriptor{}, err
	}
	if err := r.prepareAndSettle(ctx, req, desc, startAtMs, emit); err != nil {
		metrics.AcquisitionsTotal.WithLabelValues("failed").Inc()
		return StreamDescriptor{}, err
	}
	metrics.AcquisitionsTotal.WithLabelValues("polled").Inc()
	return desc, nil
}

func (r *StreamResolver) pollToCompletion(ctx context.Context, id domain.JobID, emit func(domain.PhaseUpdate)) (StreamDescriptor, error) {
	p := poller.JobPoller{
		Fetch: func(ctx context.Context) (domain.JobStatus, error) {
			status, err := r.Service.JobProgress(ctx, id)
			if err != nil {
				metrics.PollAttemptsTotal.WithLabelValues("error").Inc()
				return domain.JobStatus{}, err
			}
			metrics.PollAttemptsTotal.WithLabelValues("ok").Inc()
			return status, nil
		},
		Interval:               r.PollInterval,
		MaxConsecutiveFailures: r.MaxPollFailures,
		Logger:                 r.Logger,
	}

	for update := range p.Run(ctx, id) {
		if update.Err != nil {
			return StreamDescriptor{}, update.Err
		}
		status := update.Status
		switch status.Phase {
		case domain.JobDownloading:
			emit(domain.PhaseUpdate{Phase: domain.LoadingDownloading, Progress: status.Progress, Message: status.Message})
		case domain.JobCompleted:
			return StreamDescriptor{
				StreamURL: status.StreamURL,
				FileName:  status.FileName,
				JobID:     id,
				Subtitles: status.Subtitles,
				Next:      status.NextEpisode,
			}, nil
		default:
			// Still searching server-side; the phase stays searching but the
			// server's message is passed through.
			emit(domain.PhaseUpdate{Phase: domain.LoadingSearching, Progress: status.Progress, Message: status.Message})
		}
	}
	if err := ctx.Err(); err != nil {
		return StreamDescriptor{}, err
	}
	return StreamDescriptor{}, errors.New("polling ended without a terminal status")
}

// prepareAndSettle starts background sink preparation, kicks off best-effort
// subtitle acquisition, holds the current phase for the settle delay, then
// emits ready.
func (r *StreamResolver) prepareAndSettle(ctx context.Context, req domain.ContentRequest, desc StreamDescriptor, startAtMs int64, emit func(domain.PhaseUpdate)) error {
	if err := r.Sink.Prepare(ctx, desc.StreamURL, startAtMs); err != nil {
		return fmt.Errorf("sink prepare: %w", err)
	}

	go r.attachSubtitles(ctx, req, desc)

	settle := r.SettleDelay
	if settle <= 0 {
		settle = defaultSettleDelay
	}
	timer := time.NewTimer(settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	emit(domain.PhaseUpdate{Phase: domain.LoadingReady, Progress: 100})
	return nil
}

// attachSubtitles prefers tracks embedded in the acquisition response and
// falls back to the out-of-band search. Everything here is best-effort;
// failures are logged and swallowed.
func (r *StreamResolver) attachSubtitles(ctx context.Context, req domain.ContentRequest, desc StreamDescriptor) {
	tracks := desc.Subtitles
	if len(tracks) == 0 {
		found, err := r.Service.SearchSubtitles(ctx, req, "")
		if err != nil {
			r.Logger.Debug("subtitle search failed",
				slog.String("content_id", req.ContentID),
				slog.String("error", err.Error()))
			return
		}
		tracks = found
	}
	if len(tracks) == 0 {
		return
	}
	if err := r.Sink.AttachSubtitles(ctx, tracks); err != nil {
		r.Logger.Debug("subtitle attach failed",
			slog.String("content_id", req.ContentID),
			slog.String("error", err.Error()))
	}
}

package session

import (
	"context"
	"log/slog"
	"sync"

	"streampilot/internal/domain"
	"streampilot/internal/domain/ports"
	"streampilot/internal/metrics"
)

// prefetchTriggerFraction is how far into the current unit playback must be
// before the next unit is speculatively acquired.
const prefetchTriggerFraction = 0.75

// PromotionOutcome is the result of converting a prefetch job into the live
// playback source.
type PromotionOutcome struct {
	Ready   bool
	Request domain.ContentRequest
	Stream  StreamDescriptor
}

// PrefetchPipeline speculatively acquires the next unit of content while the
// current one is still playing, and promotes the finished job at
// end-of-content. The trigger fires at most once per session; a successful
// promotion re-seeds the chain for the unit after the promoted one.
type PrefetchPipeline struct {
	service ports.ResolutionService
	logger  *slog.Logger

	mu        sync.Mutex
	jobID     domain.JobID
	next      *domain.NextContentHint
	triggered bool
}

func NewPrefetchPipeline(service ports.ResolutionService, logger *slog.Logger) *PrefetchPipeline {
	return &PrefetchPipeline{service: service, logger: logger}
}

// MaybeTrigger issues the speculative prefetch call once playback of an
// episode crosses the trigger threshold with auto-play enabled. Repeated
// calls past the threshold are no-ops; a failed or empty prefetch is
// non-fatal and leaves end-of-content to on-demand resolution.
func (p *PrefetchPipeline) MaybeTrigger(ctx context.Context, req domain.ContentRequest, pos domain.PlaybackPosition, autoPlay bool) {
	if req.Kind != domain.KindEpisode || !autoPlay {
		return
	}
	if pos.Fraction() < prefetchTriggerFraction {
		return
	}

	p.mu.Lock()
	if p.triggered {
		p.mu.Unlock()
		return
	}
	p.triggered = true
	p.mu.Unlock()

	metrics.PrefetchTriggersTotal.Inc()
	result, err := p.service.PrefetchNext(ctx, req)
	if err != nil {
		p.logger.Warn("prefetch trigger failed",
			slog.String("content_id", req.ContentID),
			slog.String("error", err.Error()))
		return
	}
	if !result.HasNext {
		p.logger.Info("no next content to prefetch",
			slog.String("content_id", req.ContentID))
		return
	}

	p.mu.Lock()
	p.jobID = result.JobID
	p.next = result.Next
	p.mu.Unlock()

	p.logger.Info("prefetch armed",
		slog.String("content_id", req.ContentID),
		slog.String("prefetch_job_id", string(result.JobID)))
}

// Armed reports the currently held prefetch job, if any.
func (p *PrefetchPipeline) Armed() (domain.JobID, *domain.NextContentHint, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jobID, p.next, p.jobID != ""
}

// Promote converts the held prefetch job into an immediately playable
// stream. Success requires a completed job with a valid URL; anything else
// reports not ready and leaves the caller to the normal end-of-content flow.
// A promotion response carrying its own next-content hint re-seeds the
// chain for the following unit before returning.
func (p *PrefetchPipeline) Promote(ctx context.Context, mode domain.PlaybackMode) PromotionOutcome {
	p.mu.Lock()
	jobID := p.jobID
	next := p.next
	p.mu.Unlock()

	if jobID == "" {
		return PromotionOutcome{}
	}

	result, err := p.service.PromoteJob(ctx, jobID)
	if err != nil {
		metrics.PromotionsTotal.WithLabelValues("error").Inc()
		p.logger.Warn("promotion failed",
			slog.String("prefetch_job_id", string(jobID)),
			slog.String("error", err.Error()))
		return PromotionOutcome{}
	}
	if !result.Success || result.Status != domain.JobCompleted || !domain.ValidStreamURL(result.StreamURL) {
		metrics.PromotionsTotal.WithLabelValues("miss").Inc()
		p.logger.Info("prefetch job not ready, falling back to on-demand resolution",
			slog.String("prefetch_job_id", string(jobID)),
			slog.String("status", string(result.Status)))
		return PromotionOutcome{}
	}

	var promoted domain.ContentRequest
	if result.Content != nil {
		promoted = *result.Content
		promoted.Mode = mode
	} else if next != nil {
		promoted = next.Request(mode)
	}

	// Consume the held state, then re-seed the chain for the unit after the
	// promoted one when the server already knows about it.
	p.mu.Lock()
	p.jobID = ""
	p.next = nil
	p.triggered = result.HasNext
	p.mu.Unlock()

	if result.HasNext && promoted.ContentID != "" {
		p.chain(ctx, promoted)
	}

	metrics.PromotionsTotal.WithLabelValues("hit").Inc()
	p.logger.Info("prefetch job promoted to live",
		slog.String("prefetch_job_id", string(jobID)),
		slog.String("content_id", promoted.ContentID))

	return PromotionOutcome{
		Ready:   true,
		Request: promoted,
		Stream: StreamDescriptor{
			StreamURL: result.StreamURL,
			FileName:  result.FileName,
			Next:      result.Next,
		},
	}
}

// chain re-arms the pipeline for the unit following the just-promoted one.
func (p *PrefetchPipeline) chain(ctx context.Context, promoted domain.ContentRequest) {
	result, err := p.service.PrefetchNext(ctx, promoted)
	if err != nil {
		p.logger.Warn("prefetch chain re-arm failed",
			slog.String("content_id", promoted.ContentID),
			slog.String("error", err.Error()))
		return
	}
	if !result.HasNext {
		return
	}
	metrics.PrefetchTriggersTotal.Inc()

	p.mu.Lock()
	p.jobID = result.JobID
	p.next = result.Next
	p.mu.Unlock()

	p.logger.Info("prefetch chain re-armed",
		slog.String("content_id", promoted.ContentID),
		slog.String("prefetch_job_id", string(result.JobID)))
}

// ResetSession drops any held prefetch state and re-enables the trigger.
// Called when a session starts from scratch rather than by promotion.
func (p *PrefetchPipeline) ResetSession(ctx context.Context) {
	p.mu.Lock()
	jobID := p.jobID
	p.jobID = ""
	p.next = nil
	p.triggered = false
	p.mu.Unlock()

	if jobID != "" {
		if err := p.service.CancelJob(ctx, jobID); err != nil {
			p.logger.Debug("prefetch job cancel failed",
				slog.String("prefetch_job_id", string(jobID)),
				slog.String("error", err.Error()))
		}
	}
}

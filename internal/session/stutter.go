package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"streampilot/internal/domain"
	"streampilot/internal/domain/ports"
	"streampilot/internal/metrics"
)

// SourceSwapper performs a live source swap once a fallback URL has been
// obtained: capture position, set the new source, seek back, resume.
type SourceSwapper interface {
	SwapTo(ctx context.Context, streamURL string) error
}

// StutterFallback watches buffering events through a sliding time window and
// requests a lower-quality stream when they cluster. The window resets only
// after a swap actually succeeds; a fallback miss leaves it intact.
type StutterFallback struct {
	service ports.ResolutionService
	swapper SourceSwapper
	request domain.ContentRequest
	config  domain.StutterConfig
	hints   func() ports.FallbackHints
	logger  *slog.Logger

	mu     sync.Mutex
	events []time.Time

	group singleflight.Group

	now func() time.Time
}

func NewStutterFallback(service ports.ResolutionService, swapper SourceSwapper, request domain.ContentRequest, config domain.StutterConfig, hints func() ports.FallbackHints, logger *slog.Logger) *StutterFallback {
	return &StutterFallback{
		service: service,
		swapper: swapper,
		request: request,
		config:  config.Normalize(),
		hints:   hints,
		logger:  logger,
		now:     time.Now,
	}
}

// OnBuffering records one buffering transition and, when the pruned window
// reaches the threshold, requests a fallback stream. Concurrent calls while
// a fallback request is in flight collapse into the single in-flight one.
func (s *StutterFallback) OnBuffering(ctx context.Context) {
	if !s.record() {
		return
	}
	_, _, _ = s.group.Do("fallback", func() (any, error) {
		s.triggerFallback(ctx)
		return nil, nil
	})
}

// record appends a timestamp, prunes events outside the window and reports
// whether the threshold was reached.
func (s *StutterFallback) record() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.events = append(s.events, now)

	cutoff := now.Add(-s.config.TimeWindow)
	kept := s.events[:0]
	for _, ts := range s.events {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	s.events = kept

	return len(s.events) >= s.config.ConsecutiveThreshold
}

func (s *StutterFallback) triggerFallback(ctx context.Context) {
	url, err := s.service.FallbackStream(ctx, s.request, s.hints())
	if err != nil {
		metrics.FallbackSwapsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("fallback stream request failed",
			slog.String("content_id", s.request.ContentID),
			slog.String("error", err.Error()))
		return
	}
	if url == "" {
		metrics.FallbackSwapsTotal.WithLabelValues("none").Inc()
		s.logger.Info("no fallback stream available, staying on current source",
			slog.String("content_id", s.request.ContentID))
		return
	}

	if err := s.swapper.SwapTo(ctx, url); err != nil {
		metrics.FallbackSwapsTotal.WithLabelValues("swap_failed").Inc()
		s.logger.Warn("fallback source swap failed",
			slog.String("content_id", s.request.ContentID),
			slog.String("error", err.Error()))
		return
	}

	metrics.FallbackSwapsTotal.WithLabelValues("swapped").Inc()
	s.logger.Info("swapped to fallback stream",
		slog.String("content_id", s.request.ContentID))
	s.Reset()
}

// Reset clears the stutter window. Called after a successful swap and on
// any content or session change.
func (s *StutterFallback) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

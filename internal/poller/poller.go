package poller

import (
	"context"
	"log/slog"
	"time"

	"streampilot/internal/domain"
)

const (
	defaultInterval               = 2 * time.Second
	defaultMaxConsecutiveFailures = 3
)

// FetchFunc returns the current server-side status of an acquisition job.
type FetchFunc func(ctx context.Context) (domain.JobStatus, error)

// Update is one observation of a polled job. Err is set only on the final
// update when polling ends in failure; otherwise Status carries the server
// response verbatim.
type Update struct {
	Status domain.JobStatus
	Err    error
}

// JobPoller repeatedly fetches an async job's status at a fixed interval
// until the job reaches a terminal state or the consecutive-failure budget
// is spent. One transport failure is swallowed and polling continues; any
// successful fetch resets the failure counter.
type JobPoller struct {
	Fetch                  FetchFunc
	Interval               time.Duration
	MaxConsecutiveFailures int
	Logger                 *slog.Logger
}

// Run polls the job until a terminal response, a hard failure, or context
// cancellation. The first fetch happens immediately, not after one interval.
// The returned channel is closed after the final update; cancellation closes
// it without a final update.
func (p JobPoller) Run(ctx context.Context, id domain.JobID) <-chan Update {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	maxFailures := p.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = defaultMaxConsecutiveFailures
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	updates := make(chan Update)

	go func() {
		defer close(updates)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		failures := 0
		for {
			status, err := p.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				logger.Warn("job poll attempt failed",
					slog.String("job_id", string(id)),
					slog.Int("consecutive_failures", failures),
					slog.String("error", err.Error()))
				if failures >= maxFailures {
					emit(ctx, updates, Update{Err: domain.ErrConnectionLost})
					return
				}
			} else {
				failures = 0
				update, terminal := classify(status)
				if !emit(ctx, updates, update) {
					return
				}
				if terminal {
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return updates
}

// classify maps a poll response to the update it produces and whether it
// ends polling. A completed response with a missing or non-http stream URL
// is a failure, never a success.
func classify(status domain.JobStatus) (Update, bool) {
	if status.Phase == domain.JobFailed || status.Error != "" {
		return Update{Status: status, Err: domain.NewResolutionError(status)}, true
	}
	if status.Phase == domain.JobCompleted {
		if !domain.ValidStreamURL(status.StreamURL) {
			return Update{Status: status, Err: domain.ErrInvalidStreamURL}, true
		}
		return Update{Status: status}, true
	}
	return Update{Status: status}, false
}

func emit(ctx context.Context, ch chan<- Update, u Update) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- u:
		return true
	}
}

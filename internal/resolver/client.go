package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"streampilot/internal/domain"
	"streampilot/internal/domain/ports"
)

const maxResponseBytes = 512 * 1024

// Client talks to the remote content-resolution service over its JSON HTTP
// contract. It implements ports.ResolutionService.
type Client struct {
	baseURL  string
	http     *http.Client
	redis    *redis.Client
	cacheTTL time.Duration
	logger   *slog.Logger
}

type Config struct {
	BaseURL  string
	Client   *http.Client
	Redis    *redis.Client
	CacheTTL time.Duration
	Logger   *slog.Logger
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:     httpClient,
		redis:    cfg.Redis,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

var _ ports.ResolutionService = (*Client)(nil)

func (c *Client) CheckSession(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/session/check", nil, nil)
}

func (c *Client) StartStream(ctx context.Context, req domain.ContentRequest) (ports.StartResult, error) {
	body := startStreamRequest{
		ContentID: req.ContentID,
		Title:     req.Title,
		Year:      req.Year,
		Kind:      string(req.Kind),
		Season:    req.Season,
		Episode:   req.Episode,
	}
	var resp startStreamResponse
	if err := c.call(ctx, http.MethodPost, "/stream/start", body, &resp); err != nil {
		return ports.StartResult{}, err
	}
	return ports.StartResult{
		Immediate: resp.Immediate,
		StreamURL: resp.StreamURL,
		Source:    resp.Source,
		FileName:  resp.FileName,
		JobID:     domain.JobID(resp.JobID),
		Subtitles: resp.Subtitles,
	}, nil
}

func (c *Client) JobProgress(ctx context.Context, id domain.JobID) (domain.JobStatus, error) {
	var status domain.JobStatus
	if err := c.call(ctx, http.MethodGet, "/stream/progress/"+string(id), nil, &status); err != nil {
		return domain.JobStatus{}, err
	}
	return status, nil
}

func (c *Client) CancelJob(ctx context.Context, id domain.JobID) error {
	return c.call(ctx, http.MethodPost, "/stream/cancel/"+string(id), nil, nil)
}

func (c *Client) ReportBadStream(ctx context.Context, id domain.JobID, reason string) (ports.ReportBadResult, error) {
	var resp reportBadResponse
	err := c.call(ctx, http.MethodPost, "/stream/report-bad", reportBadRequest{JobID: string(id), Reason: reason}, &resp)
	if err != nil {
		return ports.ReportBadResult{}, err
	}
	return ports.ReportBadResult{
		Success:  resp.Success,
		NewJobID: domain.JobID(resp.NewJobID),
		Message:  resp.Message,
	}, nil
}

func (c *Client) PrefetchNext(ctx context.Context, req domain.ContentRequest) (ports.PrefetchResult, error) {
	body := prefetchNextRequest{
		ContentID:      req.ContentID,
		Title:          req.Title,
		Year:           req.Year,
		Kind:           string(req.Kind),
		CurrentSeason:  req.Season,
		CurrentEpisode: req.Episode,
		Mode:           string(req.Mode),
	}
	var resp prefetchNextResponse
	if err := c.call(ctx, http.MethodPost, "/prefetch/next", body, &resp); err != nil {
		return ports.PrefetchResult{}, err
	}
	return ports.PrefetchResult{
		HasNext: resp.HasNext,
		JobID:   domain.JobID(resp.JobID),
		Next:    resp.Next,
	}, nil
}

func (c *Client) PromoteJob(ctx context.Context, id domain.JobID) (ports.PromoteResult, error) {
	var resp promoteResponse
	if err := c.call(ctx, http.MethodPost, "/prefetch/promote/"+string(id), nil, &resp); err != nil {
		return ports.PromoteResult{}, err
	}
	result := ports.PromoteResult{
		Success:   resp.Success,
		Status:    domain.JobPhase(resp.Status),
		Progress:  resp.Progress,
		StreamURL: resp.StreamURL,
		FileName:  resp.FileName,
		HasNext:   resp.HasNext,
		Next:      resp.Next,
	}
	if info := resp.Content; info != nil {
		kind := domain.ContentKind(info.Kind)
		if kind == "" {
			kind = domain.KindEpisode
		}
		result.Content = &domain.ContentRequest{
			ContentID: info.ContentID,
			Title:     info.Title,
			Year:      info.Year,
			Kind:      kind,
			Season:    info.Season,
			Episode:   info.Episode,
		}
	}
	return result, nil
}

func (c *Client) FallbackStream(ctx context.Context, req domain.ContentRequest, hints ports.FallbackHints) (string, error) {
	body := fallbackRequest{
		ContentID:      req.ContentID,
		Kind:           string(req.Kind),
		Year:           req.Year,
		Season:         req.Season,
		Episode:        req.Episode,
		DurationMs:     hints.DurationMs,
		CurrentBitrate: hints.CurrentBitrateBps,
	}
	var resp fallbackResponse
	if err := c.call(ctx, http.MethodPost, "/playback/fallback", body, &resp); err != nil {
		return "", err
	}
	return resp.StreamURL, nil
}

func (c *Client) Heartbeat(ctx context.Context, ping ports.SessionPing) error {
	body := heartbeatRequest{
		ContentID:  ping.Request.ContentID,
		Season:     ping.Request.Season,
		Episode:    ping.Request.Episode,
		PositionMs: ping.Position.OffsetMs,
		DurationMs: ping.Position.DurationMs,
	}
	return c.call(ctx, http.MethodPost, "/playback/heartbeat", body, nil)
}

func (c *Client) SyncProgress(ctx context.Context, progress domain.WatchProgress) error {
	body := progressSyncRequest{
		ContentID:  progress.Key.ContentID,
		Season:     progress.Key.Season,
		Episode:    progress.Key.Episode,
		Kind:       string(progress.Kind),
		PositionMs: progress.PositionMs,
		DurationMs: progress.DurationMs,
		Completed:  progress.Completed,
	}
	return c.call(ctx, http.MethodPost, "/playback/progress-sync", body, nil)
}

func (c *Client) EndSession(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/session/end", nil, nil)
}

// call issues one JSON request against the service. A nil out discards the
// response body; a nil body sends no payload.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("resolution service %s %s: HTTP %d: %s",
			method, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

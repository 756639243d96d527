package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"streampilot/internal/domain"
)

const (
	fallbackConfigCacheKey = "spilot:fallback:config"
	subtitleCachePrefix    = "spilot:subtitles:"
)

// FallbackConfig fetches the server-supplied stutter thresholds, serving
// from Redis when a cached copy exists. The response is normalized so a
// partial server payload still yields usable thresholds.
func (c *Client) FallbackConfig(ctx context.Context) (domain.StutterConfig, error) {
	if c.redis != nil {
		if data, err := c.redis.Get(ctx, fallbackConfigCacheKey).Bytes(); err == nil {
			var cfg domain.StutterConfig
			if json.Unmarshal(data, &cfg) == nil {
				return cfg.Normalize(), nil
			}
		}
	}

	var cfg domain.StutterConfig
	if err := c.call(ctx, http.MethodGet, "/playback/fallback-config", nil, &cfg); err != nil {
		return domain.StutterConfig{}, err
	}
	cfg = cfg.Normalize()

	if c.redis != nil {
		if data, err := json.Marshal(cfg); err == nil {
			if err := c.redis.Set(ctx, fallbackConfigCacheKey, data, c.cacheTTL).Err(); err != nil {
				c.logger.Debug("fallback config cache write failed", slog.String("error", err.Error()))
			}
		}
	}
	return cfg, nil
}

// SearchSubtitles queries the out-of-band subtitle search, caching results
// per content identity. Subtitle manifests rarely change, so cache hits are
// served without revalidation.
func (c *Client) SearchSubtitles(ctx context.Context, req domain.ContentRequest, lang string) ([]domain.SubtitleTrack, error) {
	cacheKey := subtitleCacheKey(req, lang)

	if c.redis != nil {
		if data, err := c.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var tracks []domain.SubtitleTrack
			if json.Unmarshal(data, &tracks) == nil {
				return tracks, nil
			}
		}
	}

	body := subtitleSearchRequest{
		ContentID: req.ContentID,
		Title:     req.Title,
		Year:      req.Year,
		Kind:      string(req.Kind),
		Season:    req.Season,
		Episode:   req.Episode,
		Language:  lang,
	}
	var resp subtitleSearchResponse
	if err := c.call(ctx, http.MethodPost, "/subtitles/search", body, &resp); err != nil {
		return nil, err
	}

	if c.redis != nil && len(resp.Subtitles) > 0 {
		if data, err := json.Marshal(resp.Subtitles); err == nil {
			if err := c.redis.Set(ctx, cacheKey, data, c.cacheTTL).Err(); err != nil {
				c.logger.Debug("subtitle cache write failed", slog.String("error", err.Error()))
			}
		}
	}
	return resp.Subtitles, nil
}

func subtitleCacheKey(req domain.ContentRequest, lang string) string {
	return fmt.Sprintf("%s%s:s%de%d:%s", subtitleCachePrefix, req.ContentID, req.Season, req.Episode, lang)
}

package domain

import "time"

// StutterConfig holds the server-supplied thresholds for the buffering
// fallback heuristic. It is fetched once per session; the defaults below
// apply when the endpoint is unavailable.
type StutterConfig struct {
	BufferLowPercent     float64       `json:"bufferLowPercent"`
	ConsecutiveThreshold int           `json:"consecutiveThreshold"`
	TimeWindow           time.Duration `json:"-"`
	TimeWindowMs         int64         `json:"timeWindowMs"`
}

// DefaultStutterConfig returns the hardcoded safe defaults: three buffering
// events inside a 30 second window trigger a fallback request.
func DefaultStutterConfig() StutterConfig {
	return StutterConfig{
		BufferLowPercent:     15,
		ConsecutiveThreshold: 3,
		TimeWindow:           30 * time.Second,
		TimeWindowMs:         30_000,
	}
}

// Normalize fills derived and missing fields so a partially-populated server
// response is still usable.
func (c StutterConfig) Normalize() StutterConfig {
	def := DefaultStutterConfig()
	if c.ConsecutiveThreshold <= 0 {
		c.ConsecutiveThreshold = def.ConsecutiveThreshold
	}
	if c.TimeWindowMs <= 0 {
		c.TimeWindowMs = def.TimeWindowMs
	}
	if c.BufferLowPercent <= 0 {
		c.BufferLowPercent = def.BufferLowPercent
	}
	c.TimeWindow = time.Duration(c.TimeWindowMs) * time.Millisecond
	return c
}

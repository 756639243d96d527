package sink

import (
	"context"
	"log/slog"

	"streampilot/internal/domain"
	"streampilot/internal/domain/ports"
)

// CommandSender delivers typed player commands to the connected client
// device. Delivery is asynchronous and best-effort; command completion is
// observed through the events the device reports back.
type CommandSender interface {
	Send(msgType string, data any)
}

const commandMessageType = "player_command"

// playerCommand is the wire shape of one command to the device player.
type playerCommand struct {
	Action     string                 `json:"action"`
	StreamURL  string                 `json:"streamUrl,omitempty"`
	PositionMs int64                  `json:"positionMs,omitempty"`
	TrackID    string                 `json:"trackId,omitempty"`
	Subtitles  []domain.SubtitleTrack `json:"subtitles,omitempty"`
}

// Remote is a media sink living on the other side of a websocket: the
// device that renders video. Commands go out as messages; player events
// come back through Feed.
type Remote struct {
	sender CommandSender
	logger *slog.Logger
	events chan domain.PlayerEvent
}

func NewRemote(sender CommandSender, logger *slog.Logger) *Remote {
	return &Remote{
		sender: sender,
		logger: logger,
		events: make(chan domain.PlayerEvent, 64),
	}
}

var _ ports.MediaSink = (*Remote)(nil)

func (r *Remote) Prepare(ctx context.Context, streamURL string, startAtMs int64) error {
	return r.send(ctx, playerCommand{Action: "prepare", StreamURL: streamURL, PositionMs: startAtMs})
}

func (r *Remote) Play(ctx context.Context) error {
	return r.send(ctx, playerCommand{Action: "play"})
}

func (r *Remote) Pause(ctx context.Context) error {
	return r.send(ctx, playerCommand{Action: "pause"})
}

func (r *Remote) SetSource(ctx context.Context, streamURL string) error {
	return r.send(ctx, playerCommand{Action: "set_source", StreamURL: streamURL})
}

func (r *Remote) Seek(ctx context.Context, offsetMs int64) error {
	return r.send(ctx, playerCommand{Action: "seek", PositionMs: offsetMs})
}

func (r *Remote) AttachSubtitles(ctx context.Context, tracks []domain.SubtitleTrack) error {
	return r.send(ctx, playerCommand{Action: "subtitles", Subtitles: tracks})
}

func (r *Remote) SelectAudioTrack(ctx context.Context, trackID string) error {
	return r.send(ctx, playerCommand{Action: "audio_track", TrackID: trackID})
}

func (r *Remote) Release(ctx context.Context) error {
	return r.send(ctx, playerCommand{Action: "release"})
}

// Events delivers the device's reported player events. The channel belongs
// to the sink and stays open for its lifetime.
func (r *Remote) Events() <-chan domain.PlayerEvent {
	return r.events
}

// Feed injects one device-reported event. Called by the websocket read
// path. When the session controller falls behind, the oldest buffered
// event is dropped in favor of the new one; position updates are a stream
// of latest-wins values anyway.
func (r *Remote) Feed(ev domain.PlayerEvent) {
	select {
	case r.events <- ev:
		return
	default:
	}
	select {
	case old := <-r.events:
		r.logger.Debug("player event buffer full, dropping oldest",
			slog.String("dropped", string(old.Type)))
	default:
	}
	select {
	case r.events <- ev:
	default:
	}
}

func (r *Remote) send(ctx context.Context, cmd playerCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.sender.Send(commandMessageType, cmd)
	return nil
}

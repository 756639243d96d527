package sink

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"streampilot/internal/domain"
)

type recordingSender struct {
	mu       sync.Mutex
	commands []playerCommand
}

func (s *recordingSender) Send(msgType string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msgType != commandMessageType {
		return
	}
	if cmd, ok := data.(playerCommand); ok {
		s.commands = append(s.commands, cmd)
	}
}

func (s *recordingSender) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	for i, c := range s.commands {
		out[i] = c.Action
	}
	return out
}

func TestRemoteCommandDispatch(t *testing.T) {
	sender := &recordingSender{}
	r := NewRemote(sender, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	if err := r.Prepare(ctx, "https://x/a.mkv", 42_000); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := r.Play(ctx); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := r.Seek(ctx, 10_000); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if err := r.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}

	want := []string{"prepare", "play", "seek", "release"}
	got := sender.actions()
	if len(got) != len(want) {
		t.Fatalf("commands: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("commands: got %v, want %v", got, want)
		}
	}

	sender.mu.Lock()
	prepare := sender.commands[0]
	sender.mu.Unlock()
	if prepare.StreamURL != "https://x/a.mkv" || prepare.PositionMs != 42_000 {
		t.Fatalf("prepare payload wrong: %+v", prepare)
	}
}

func TestRemoteHonorsCancelledContext(t *testing.T) {
	sender := &recordingSender{}
	r := NewRemote(sender, slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.Play(ctx); err == nil {
		t.Fatal("expected context error")
	}
	if len(sender.actions()) != 0 {
		t.Fatal("no command should be sent after cancellation")
	}
}

func TestRemoteFeedDropsOldestWhenFull(t *testing.T) {
	sender := &recordingSender{}
	r := NewRemote(sender, slog.New(slog.DiscardHandler))

	for i := 0; i < 70; i++ {
		r.Feed(domain.PlayerEvent{
			Type:     domain.EventPosition,
			Position: domain.PlaybackPosition{OffsetMs: int64(i)},
		})
	}

	// The newest event must still be in the buffer.
	var last domain.PlayerEvent
	for {
		select {
		case ev := <-r.Events():
			last = ev
			continue
		default:
		}
		break
	}
	if last.Position.OffsetMs != 69 {
		t.Fatalf("newest event lost, last seen offset %d", last.Position.OffsetMs)
	}
}

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"streampilot/internal/domain"
	"streampilot/internal/domain/ports"
)

type fakeSwapper struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (s *fakeSwapper) SwapTo(ctx context.Context, streamURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.urls = append(s.urls, streamURL)
	return nil
}

func (s *fakeSwapper) swapped() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.urls...)
}

func newTestStutter(t *testing.T, service ports.ResolutionService, swapper SourceSwapper) (*StutterFallback, *time.Time) {
	cfg := domain.StutterConfig{ConsecutiveThreshold: 3, TimeWindowMs: 30_000}
	s := NewStutterFallback(service, swapper,
		domain.ContentRequest{ContentID: "42", Kind: domain.KindMovie},
		cfg, func() ports.FallbackHints { return ports.FallbackHints{} }, testLogger(t))

	clock := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestStutterTriggersWithinWindow(t *testing.T) {
	service := newFakeService()
	service.fallbackURL = "https://x/low.mkv"
	swapper := &fakeSwapper{}
	s, clock := newTestStutter(t, service, swapper)

	base := *clock
	for _, offset := range []time.Duration{0, 10 * time.Second, 20 * time.Second} {
		*clock = base.Add(offset)
		s.OnBuffering(context.Background())
	}

	if service.fallbackCalls != 1 {
		t.Fatalf("expected one fallback request, got %d", service.fallbackCalls)
	}
	if got := swapper.swapped(); len(got) != 1 || got[0] != "https://x/low.mkv" {
		t.Fatalf("swap not performed: %v", got)
	}

	// A successful swap resets the window, so the next event alone must not
	// trigger again.
	*clock = base.Add(21 * time.Second)
	s.OnBuffering(context.Background())
	if service.fallbackCalls != 1 {
		t.Fatalf("window not reset after swap: %d fallback calls", service.fallbackCalls)
	}
}

func TestStutterWindowExpiry(t *testing.T) {
	service := newFakeService()
	service.fallbackURL = "https://x/low.mkv"
	swapper := &fakeSwapper{}
	s, clock := newTestStutter(t, service, swapper)

	base := *clock
	for _, offset := range []time.Duration{0, 10 * time.Second, 40 * time.Second} {
		*clock = base.Add(offset)
		s.OnBuffering(context.Background())
	}

	if service.fallbackCalls != 0 {
		t.Fatalf("events outside the window must not trigger, got %d calls", service.fallbackCalls)
	}
}

func TestStutterNoFallbackKeepsWindow(t *testing.T) {
	service := newFakeService()
	service.fallbackURL = ""
	swapper := &fakeSwapper{}
	s, clock := newTestStutter(t, service, swapper)

	base := *clock
	for _, offset := range []time.Duration{0, time.Second, 2 * time.Second} {
		*clock = base.Add(offset)
		s.OnBuffering(context.Background())
	}
	if service.fallbackCalls != 1 {
		t.Fatalf("expected one fallback request, got %d", service.fallbackCalls)
	}
	if len(swapper.swapped()) != 0 {
		t.Fatal("no swap expected when no fallback URL is available")
	}

	// The window was not reset, so the next event re-evaluates the threshold.
	*clock = base.Add(3 * time.Second)
	s.OnBuffering(context.Background())
	if service.fallbackCalls != 2 {
		t.Fatalf("window lost without a successful swap: %d calls", service.fallbackCalls)
	}
}

// gatedService blocks fallback requests until released, to exercise the
// in-flight dedup.
type gatedService struct {
	*fakeService
	gate chan struct{}
}

func (g *gatedService) FallbackStream(ctx context.Context, req domain.ContentRequest, hints ports.FallbackHints) (string, error) {
	<-g.gate
	return g.fakeService.FallbackStream(ctx, req, hints)
}

func TestStutterConcurrentEventsSingleRequest(t *testing.T) {
	inner := newFakeService()
	inner.fallbackURL = "https://x/low.mkv"
	service := &gatedService{fakeService: inner, gate: make(chan struct{})}
	swapper := &fakeSwapper{}
	s, _ := newTestStutter(t, service, swapper)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.OnBuffering(context.Background())
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(service.gate)
	wg.Wait()

	if inner.fallbackCalls != 1 {
		t.Fatalf("concurrent buffering events must share one in-flight request, got %d", inner.fallbackCalls)
	}
}

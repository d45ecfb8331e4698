package speechqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-guide/core/language"
)

// gatedSynthesizer blocks every call until release is called for its text.
type gatedSynthesizer struct {
	mu      sync.Mutex
	spoken  []string
	gates   map[string]chan struct{}
	started chan string
	active  atomic.Int32
	maxSeen atomic.Int32
}

func newGatedSynthesizer() *gatedSynthesizer {
	return &gatedSynthesizer{gates: map[string]chan struct{}{}, started: make(chan string, 16)}
}

func (s *gatedSynthesizer) gate(text string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gates[text]; !ok {
		s.gates[text] = make(chan struct{})
	}
	return s.gates[text]
}

func (s *gatedSynthesizer) release(text string) { close(s.gate(text)) }

func (s *gatedSynthesizer) Synthesize(ctx context.Context, text string, _ language.Language) error {
	active := s.active.Add(1)
	defer s.active.Add(-1)
	if active > s.maxSeen.Load() {
		s.maxSeen.Store(active)
	}

	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	s.started <- text

	select {
	case <-s.gate(text):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *gatedSynthesizer) order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

func waitStarted(t *testing.T, synthesizer *gatedSynthesizer, expected string) {
	t.Helper()
	select {
	case text := <-synthesizer.started:
		if text != expected {
			t.Fatalf("expected %q to start, got %q", expected, text)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q to start", expected)
	}
}

func TestHighPriorityGoesBeforeNormal(t *testing.T) {
	synthesizer := newGatedSynthesizer()
	queue := New(synthesizer, WithInterItemDelay(0))
	defer queue.Close()

	queue.Enqueue(Request{Text: "first"})
	queue.Start(context.Background())
	waitStarted(t, synthesizer, "first")

	queue.Enqueue(Request{Text: "normal 1"})
	queue.Enqueue(Request{Text: "normal 2"})
	queue.Enqueue(Request{Text: "urgent 1", Priority: PriorityHigh})
	queue.Enqueue(Request{Text: "urgent 2", Priority: PriorityHigh})

	pending := queue.Pending()
	expected := []string{"urgent 1", "urgent 2", "normal 1", "normal 2"}
	for i, request := range pending {
		if request.Text != expected[i] {
			t.Fatalf("expected %q at %d, got %q", expected[i], i, request.Text)
		}
	}

	for _, text := range append([]string{"first"}, expected...) {
		if text != "first" {
			waitStarted(t, synthesizer, text)
		}
		synthesizer.release(text)
	}

	if got := synthesizer.maxSeen.Load(); got != 1 {
		t.Fatalf("expected one synthesis at a time, got %d", got)
	}
}

func TestCallbacksFireAroundSynthesis(t *testing.T) {
	synthesizer := newGatedSynthesizer()
	started := make(chan Request, 1)
	finished := make(chan error, 1)
	queue := New(synthesizer,
		WithInterItemDelay(0),
		WithStartedCallback(func(request Request) { started <- request }),
		WithFinishedCallback(func(_ Request, err error) { finished <- err }),
	)
	defer queue.Close()
	queue.Start(context.Background())

	enqueued, err := queue.Enqueue(Request{Text: "hello", Kind: "say"})
	if err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if enqueued.ID == "" {
		t.Fatalf("expected an id to be assigned")
	}

	select {
	case request := <-started:
		if request.ID != enqueued.ID || request.Kind != "say" {
			t.Fatalf("expected started callback for %s, got %+v", enqueued.ID, request)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for started callback")
	}

	if inFlight, ok := queue.InFlight(); !ok || inFlight.ID != enqueued.ID {
		t.Fatalf("expected %s in flight, got %+v", enqueued.ID, inFlight)
	}

	synthesizer.release("hello")
	select {
	case err := <-finished:
		if err != nil {
			t.Fatalf("expected successful synthesis, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for finished callback")
	}
}

type failingSynthesizer struct{ calls atomic.Int32 }

func (s *failingSynthesizer) Synthesize(context.Context, string, language.Language) error {
	s.calls.Add(1)
	return errors.New("provider unavailable")
}

func TestFailureCountsAsCompletion(t *testing.T) {
	synthesizer := &failingSynthesizer{}
	finished := make(chan error, 2)
	queue := New(synthesizer,
		WithInterItemDelay(time.Millisecond),
		WithFinishedCallback(func(_ Request, err error) { finished <- err }),
	)
	defer queue.Close()
	queue.Start(context.Background())

	queue.Enqueue(Request{Text: "one"})
	queue.Enqueue(Request{Text: "two"})

	for range 2 {
		select {
		case err := <-finished:
			if err == nil {
				t.Fatalf("expected synthesis error to be reported")
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for queue to move past a failure")
		}
	}
	if got := synthesizer.calls.Load(); got != 2 {
		t.Fatalf("expected 2 synthesis calls, got %d", got)
	}
}

func TestCancelAllDropsQueueAndCancelsInFlight(t *testing.T) {
	synthesizer := newGatedSynthesizer()
	finished := make(chan error, 4)
	queue := New(synthesizer,
		WithInterItemDelay(0),
		WithFinishedCallback(func(_ Request, err error) { finished <- err }),
	)
	defer queue.Close()
	queue.Start(context.Background())

	queue.Enqueue(Request{Text: "speaking"})
	waitStarted(t, synthesizer, "speaking")
	queue.Enqueue(Request{Text: "waiting 1"})
	queue.Enqueue(Request{Text: "waiting 2", Priority: PriorityHigh})

	if dropped := queue.CancelAll(); dropped != 2 {
		t.Fatalf("expected 2 dropped requests, got %d", dropped)
	}
	if queue.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", queue.Len())
	}

	select {
	case err := <-finished:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for in-flight cancellation")
	}

	time.Sleep(20 * time.Millisecond)
	if spoken := synthesizer.order(); len(spoken) != 1 {
		t.Fatalf("expected dropped requests never to be spoken, got %v", spoken)
	}
}

func TestInterItemDelay(t *testing.T) {
	var mu sync.Mutex
	var startedAt []time.Time
	done := make(chan struct{})

	queue := New(&instantSynthesizer{},
		WithInterItemDelay(50*time.Millisecond),
		WithStartedCallback(func(Request) {
			mu.Lock()
			startedAt = append(startedAt, time.Now())
			mu.Unlock()
		}),
		WithFinishedCallback(func(request Request, _ error) {
			if request.Text == "two" {
				close(done)
			}
		}),
	)
	defer queue.Close()
	queue.Start(context.Background())

	queue.Enqueue(Request{Text: "one"})
	queue.Enqueue(Request{Text: "two"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for both requests")
	}

	mu.Lock()
	defer mu.Unlock()
	if gap := startedAt[1].Sub(startedAt[0]); gap < 50*time.Millisecond {
		t.Fatalf("expected at least 50ms between requests, got %s", gap)
	}
}

type instantSynthesizer struct{}

func (instantSynthesizer) Synthesize(context.Context, string, language.Language) error { return nil }

func TestEnqueueAfterCloseFails(t *testing.T) {
	queue := New(instantSynthesizer{})
	queue.Close()

	if _, err := queue.Enqueue(Request{Text: "late"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

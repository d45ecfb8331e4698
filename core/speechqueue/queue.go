// Package speechqueue serialises everything the guide says.
//
// Requests are kept in two FIFO tiers. High priority requests go after any
// waiting high priority requests but before every normal one. A single
// consumer goroutine synthesises one request at a time and pauses briefly
// between requests so utterances do not run into each other.
package speechqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-guide/core/language"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultInterItemDelay is the pause between two synthesised requests.
const DefaultInterItemDelay = 100 * time.Millisecond

var ErrClosed = errors.New("speech queue closed")

type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

type Request struct {
	ID       string
	Text     string
	Language language.Language
	Priority Priority
	// Kind is an opaque label chosen by the caller, e.g. "question".
	Kind       string
	EnqueuedAt time.Time
}

// Synthesizer speaks text. Synthesize blocks until playback finished, failed
// or ctx was cancelled.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang language.Language) error
}

type Queue struct {
	synthesizer    Synthesizer
	interItemDelay time.Duration

	// onStarted fires on the consumer goroutine right before synthesis.
	onStarted func(Request)
	// onFinished fires on the consumer goroutine after synthesis returned,
	// whether it succeeded or not.
	onFinished func(Request, error)

	mu             sync.Mutex
	high           []Request
	normal         []Request
	inFlight       *Request
	cancelInFlight context.CancelFunc

	wake    chan struct{}
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
}

type Option func(*Queue)

func WithInterItemDelay(delay time.Duration) Option {
	return func(q *Queue) { q.interItemDelay = max(delay, 0) }
}

func WithStartedCallback(callback func(Request)) Option {
	return func(q *Queue) { q.onStarted = callback }
}

func WithFinishedCallback(callback func(Request, error)) Option {
	return func(q *Queue) { q.onFinished = callback }
}

func New(synthesizer Synthesizer, opts ...Option) *Queue {
	q := &Queue{
		synthesizer:    synthesizer,
		interItemDelay: DefaultInterItemDelay,
		onStarted:      func(Request) {},
		onFinished:     func(Request, error) {},
		wake:           make(chan struct{}, 1),
		closeCh:        make(chan struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the consumer. Requests enqueued before Start wait for it.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		q.started.Store(true)
		go func() {
			defer close(q.done)
			q.consume(ctx)
		}()
	})
}

// Close stops the consumer, cancels the in-flight request and waits for the
// consumer to exit.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.closeCh)
		q.CancelAll()
	})
	if q.started.Load() {
		<-q.done
	}
}

// Enqueue assigns an ID to request and places it in its tier.
func (q *Queue) Enqueue(request Request) (Request, error) {
	if q.isClosed() {
		return Request{}, ErrClosed
	}
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.EnqueuedAt.IsZero() {
		request.EnqueuedAt = time.Now()
	}

	q.mu.Lock()
	if request.Priority == PriorityHigh {
		q.high = append(q.high, request)
	} else {
		q.normal = append(q.normal, request)
	}
	q.mu.Unlock()

	q.signal()
	return request, nil
}

// CancelAll drops every waiting request and cancels the in-flight one. It
// returns the number of waiting requests dropped.
func (q *Queue) CancelAll() int {
	q.mu.Lock()
	dropped := len(q.high) + len(q.normal)
	q.high, q.normal = nil, nil
	cancel := q.cancelInFlight
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return dropped
}

// Len counts the waiting requests, excluding the in-flight one.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.high) + len(q.normal)
}

// InFlight returns the request being synthesised, if any.
func (q *Queue) InFlight() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight == nil {
		return Request{}, false
	}
	return *q.inFlight, true
}

// Pending returns the waiting requests in the order they will be spoken.
func (q *Queue) Pending() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending := make([]Request, 0, len(q.high)+len(q.normal))
	pending = append(pending, q.high...)
	return append(pending, q.normal...)
}

func (q *Queue) consume(ctx context.Context) {
	for {
		request, requestCtx, ok := q.pop(ctx)
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.closeCh:
				return
			case <-q.wake:
				continue
			}
		}

		q.onStarted(request)
		err := q.synthesize(requestCtx, request)

		q.mu.Lock()
		q.inFlight = nil
		cancel := q.cancelInFlight
		q.cancelInFlight = nil
		q.mu.Unlock()
		cancel()

		q.onFinished(request, err)

		if q.interItemDelay > 0 {
			delay := time.NewTimer(q.interItemDelay)
			select {
			case <-ctx.Done():
				delay.Stop()
				return
			case <-q.closeCh:
				delay.Stop()
				return
			case <-delay.C:
			}
		}
	}
}

func (q *Queue) pop(ctx context.Context) (Request, context.Context, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.inFlight != nil || q.isClosed() {
		return Request{}, nil, false
	}

	var request Request
	switch {
	case len(q.high) > 0:
		request, q.high = q.high[0], q.high[1:]
	case len(q.normal) > 0:
		request, q.normal = q.normal[0], q.normal[1:]
	default:
		return Request{}, nil, false
	}

	requestCtx, cancel := context.WithCancel(ctx)
	q.inFlight = &request
	q.cancelInFlight = cancel
	return request, requestCtx, true
}

func (q *Queue) synthesize(ctx context.Context, request Request) (err error) {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()
	span.SetAttributes(
		attribute.String("speech.id", request.ID),
		attribute.String("speech.kind", request.Kind),
		attribute.String("speech.priority", request.Priority.String()),
		attribute.String("speech.language", request.Language.String()),
	)

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("synthesizer panicked: %v", recovered)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "synthesis failed")
			logger.Warn("speech synthesis failed", "id", request.ID, "kind", request.Kind, "error", err)
		}
	}()

	if q.synthesizer == nil {
		return fmt.Errorf("no synthesizer configured")
	}
	return q.synthesizer.Synthesize(ctx, request.Text, request.Language)
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) isClosed() bool {
	select {
	case <-q.closeCh:
		return true
	default:
		return false
	}
}

package orchestration

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/speechtotext"
	"golang.org/x/time/rate"
)

// recognition wraps the configured recognizer. Apart from forwarding, its
// fields are owned by the controller goroutine.
type recognition struct {
	recognizer speechtotext.Recognizer
	logLimiter *rate.Limiter

	// generation tags every start; callbacks from older starts are stale.
	generation uint64
	armed      bool
	wakeScan   bool
	lang       language.Language

	// blocked is set by capture and permission failures and cleared on the
	// next activation.
	blocked         bool
	restartPending  bool
	networkFailures int

	forwarding atomic.Bool
}

func newRecognition() *recognition {
	return &recognition{
		logLimiter: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
}

func (r *recognition) set(recognizer speechtotext.Recognizer) {
	if r != nil {
		r.recognizer = recognizer
	}
}

func (r *recognition) isConfigured() bool {
	return r != nil && r.recognizer != nil
}

// start arms the recognizer for lang. Results and errors reach the
// callbacks tagged with the generation of this start.
func (r *recognition) start(
	ctx context.Context,
	lang language.Language,
	onResult func(generation uint64, transcript speechtotext.Transcript),
	onError func(generation uint64, err error),
) (uint64, error) {
	r.generation++
	generation := r.generation

	if r.isConfigured() {
		err := r.recognizer.Start(ctx, lang,
			func(transcript speechtotext.Transcript) { onResult(generation, transcript) },
			func(err error) { onError(generation, err) },
		)
		if err != nil {
			return generation, fmt.Errorf("failed to start recognizer: %w", err)
		}
	}

	r.armed = true
	r.lang = lang
	r.forwarding.Store(true)
	return generation, nil
}

// stop disarms the recognizer and invalidates outstanding callbacks.
func (r *recognition) stop() error {
	r.generation++
	wasArmed := r.armed
	r.armed = false
	r.wakeScan = false
	r.forwarding.Store(false)

	if !wasArmed || !r.isConfigured() {
		return nil
	}
	if err := r.recognizer.Stop(); err != nil {
		return fmt.Errorf("failed to stop recognizer: %w", err)
	}
	return nil
}

func (r *recognition) isCurrent(generation uint64) bool {
	return r.armed && generation == r.generation
}

func (r *recognition) sendAudio(audio []byte) error {
	if !r.isConfigured() || !r.forwarding.Load() {
		return nil
	}
	return r.recognizer.SendAudio(audio)
}

// logNetworkFailure logs at most once per limiter interval.
func (r *recognition) logNetworkFailure(err error) {
	if r.logLimiter == nil || r.logLimiter.Allow() {
		logger.Warn("recognizer lost its connection", "consecutive_failures", r.networkFailures, "error", err)
	}
}

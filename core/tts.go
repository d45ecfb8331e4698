package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/speechqueue"
)

// Speech request kinds.
const (
	kindSpeech        = "speech"
	kindWelcome       = "welcome"
	kindQuestion      = "question"
	kindFollowUp      = "followUp"
	kindConfirmation  = "confirmation"
	kindClarification = "clarification"
	kindNudge         = "nudge"
	kindClosing       = "closing"
	kindCommand       = "command"
	kindError         = "error"
)

// silentSynthesizer completes every request immediately. It stands in when
// no synthesizer is configured.
type silentSynthesizer struct{}

func (silentSynthesizer) Synthesize(context.Context, string, language.Language) error { return nil }

type speechOutput struct {
	queue *speechqueue.Queue
}

func newSpeechOutput(
	synthesizer speechqueue.Synthesizer,
	interItemDelay time.Duration,
	onStarted func(speechqueue.Request),
	onFinished func(speechqueue.Request, error),
) *speechOutput {
	if synthesizer == nil {
		synthesizer = silentSynthesizer{}
	}
	return &speechOutput{
		queue: speechqueue.New(synthesizer,
			speechqueue.WithInterItemDelay(interItemDelay),
			speechqueue.WithStartedCallback(onStarted),
			speechqueue.WithFinishedCallback(onFinished),
		),
	}
}

func (s *speechOutput) start(ctx context.Context) {
	if s != nil && s.queue != nil {
		s.queue.Start(ctx)
	}
}

func (s *speechOutput) enqueue(request speechqueue.Request) (speechqueue.Request, error) {
	return s.queue.Enqueue(request)
}

func (s *speechOutput) cancelAll() int {
	if s == nil || s.queue == nil {
		return 0
	}
	return s.queue.CancelAll()
}

// busy reports whether anything is being spoken or waits to be.
func (s *speechOutput) busy() bool {
	if s == nil || s.queue == nil {
		return false
	}
	if s.queue.Len() > 0 {
		return true
	}
	_, inFlight := s.queue.InFlight()
	return inFlight
}

func (s *speechOutput) close() {
	if s != nil && s.queue != nil {
		s.queue.Close()
	}
}

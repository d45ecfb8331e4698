package orchestration

import (
	"context"
	"errors"

	"github.com/koscakluka/ema-guide/core/vad"
)

// HandleAudio feeds one chunk of 16-bit PCM from the microphone to the
// voice activity detector, and to the recognizer while it is armed. It is
// safe to call from the capture goroutine.
func (c *Controller) HandleAudio(pcm []byte) {
	if c == nil || len(pcm) == 0 {
		return
	}

	c.detector.Process(pcm)
	if err := c.recognition.sendAudio(pcm); err != nil {
		c.audioErrors.Add(1)
		if c.audioLogLimiter.Allow() {
			logger.Warn("failed to forward audio to recognizer", "failures", c.audioErrors.Load(), "error", err)
		}
	}
}

// Listen streams source into HandleAudio until ctx is done.
func (c *Controller) Listen(ctx context.Context, source vad.Source) error {
	if source == nil {
		return errors.New("no audio source")
	}

	hook := withContextCancelHook(ctx, c.detector.Reset)
	defer close(hook)

	err := panicSafeNamedWorker("audio input", func(ctx context.Context) error {
		return source.Stream(ctx, c.HandleAudio)
	})(ctx)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// OnVoiceDetected tells the controller that the detector heard voice. In
// quiet mode it arms the wake phrase scan.
func (c *Controller) OnVoiceDetected(vad.AudioAnalysisSample) {
	c.runtime.post("voice detected", func() {
		if c.state == StateQuiet {
			c.wakeScanRequested = true
		}
		c.reconcile()
	})
}

// OnSilence ends a wake phrase scan.
func (c *Controller) OnSilence(vad.AudioAnalysisSample) {
	c.runtime.post("silence detected", func() {
		c.wakeScanRequested = false
		c.reconcile()
	})
}

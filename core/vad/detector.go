package vad

import (
	"context"
	"sync"
	"time"

	"github.com/koscakluka/ema-guide/core/audio"
	"github.com/koscakluka/ema-guide/core/timer"
)

// Source delivers little-endian 16-bit mono PCM until ctx is done.
type Source interface {
	Stream(ctx context.Context, onAudio func(audio []byte)) error
}

type Detector struct {
	params Params
	clock  timer.Clock

	onVoiceDetected func(AudioAnalysisSample)
	onSilence       func(AudioAnalysisSample)

	mu       sync.Mutex
	carry    []byte
	frame    []float64
	voice    bool
	quietAt  time.Time
	analysed int
}

type Option func(*Detector)

// WithVoiceDetectedCallback is called for every frame classified as human
// voice.
func WithVoiceDetectedCallback(callback func(AudioAnalysisSample)) Option {
	return func(d *Detector) { d.onVoiceDetected = callback }
}

// WithSilenceCallback is called once per utterance, after the stream has
// stayed below the silence threshold for the grace period.
func WithSilenceCallback(callback func(AudioAnalysisSample)) Option {
	return func(d *Detector) { d.onSilence = callback }
}

func WithClock(clock timer.Clock) Option {
	return func(d *Detector) { d.clock = clock }
}

func NewDetector(params Params, opts ...Option) (*Detector, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		params: params,
		clock:  timer.RealClock(),
		frame:  make([]float64, 0, params.FrameSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Process consumes a chunk of PCM. Chunks may be any size; samples are
// buffered until a full frame is available.
func (d *Detector) Process(pcm []byte) {
	if d == nil {
		return
	}

	d.mu.Lock()
	if len(d.carry) > 0 {
		pcm = append(d.carry, pcm...)
		d.carry = nil
	}
	if len(pcm)%2 == 1 {
		d.carry = []byte{pcm[len(pcm)-1]}
		pcm = pcm[:len(pcm)-1]
	}

	var voiced, silent []AudioAnalysisSample
	for _, sample := range audio.Linear16ToFloat(pcm) {
		d.frame = append(d.frame, sample)
		if len(d.frame) < d.params.FrameSize {
			continue
		}

		analysis := Analyze(d.frame, d.params)
		analysis.Timestamp = d.clock.Now()
		d.frame = d.frame[:0]
		d.analysed++

		switch d.observeLocked(analysis) {
		case voiceEvent:
			voiced = append(voiced, analysis)
		case silenceEvent:
			silent = append(silent, analysis)
		}
	}
	onVoice, onSilence := d.onVoiceDetected, d.onSilence
	d.mu.Unlock()

	if onVoice != nil {
		for _, analysis := range voiced {
			onVoice(analysis)
		}
	}
	if onSilence != nil {
		for _, analysis := range silent {
			onSilence(analysis)
		}
	}
}

type event int

const (
	noEvent event = iota
	voiceEvent
	silenceEvent
)

func (d *Detector) observeLocked(analysis AudioAnalysisSample) event {
	if IsHumanVoice(analysis, d.params) {
		d.voice = true
		d.quietAt = time.Time{}
		return voiceEvent
	}

	if analysis.RMS >= d.params.SilenceThreshold || !d.voice {
		return noEvent
	}

	if d.quietAt.IsZero() {
		d.quietAt = analysis.Timestamp
	}
	if analysis.Timestamp.Sub(d.quietAt) < d.params.SilenceGrace {
		return noEvent
	}

	d.voice = false
	d.quietAt = time.Time{}
	return silenceEvent
}

// VoicePending reports whether speech was heard and silence has not been
// reported since.
func (d *Detector) VoicePending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.voice
}

// Frames is the number of frames analysed so far.
func (d *Detector) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.analysed
}

// Reset drops buffered samples and any pending voice.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.carry = nil
	d.frame = d.frame[:0]
	d.voice = false
	d.quietAt = time.Time{}
}

package vad

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-guide/core/audio"
	"github.com/koscakluka/ema-guide/core/timer"
)

func voiceFrame(params Params) []float64 {
	samples := make([]float64, params.FrameSize)
	for harmonic := 1; harmonic <= 20; harmonic++ {
		frequency := 150.0 * float64(harmonic)
		for i := range samples {
			samples[i] += 0.05 * math.Sin(2*math.Pi*frequency*float64(i)/float64(params.SampleRate))
		}
	}
	return samples
}

func toneFrame(params Params, frequency, amplitude float64) []float64 {
	samples := make([]float64, params.FrameSize)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*frequency*float64(i)/float64(params.SampleRate))
	}
	return samples
}

func TestDefaultParamsAreValid(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("expected default params to be valid, got %v", err)
	}
}

func TestValidateRejectsFrameSize(t *testing.T) {
	params := DefaultParams()
	params.FrameSize = 1000

	var validationErr *ValidationError
	if err := params.Validate(); !errors.As(err, &validationErr) || validationErr.Field != "FrameSize" {
		t.Fatalf("expected FrameSize validation error, got %v", err)
	}
}

func TestAnalyzeClassifiesSignals(t *testing.T) {
	params := DefaultParams()

	testCases := []struct {
		name     string
		samples  []float64
		expected bool
	}{
		{name: "harmonic voice", samples: voiceFrame(params), expected: true},
		{name: "silence", samples: make([]float64, params.FrameSize), expected: false},
		{name: "high pitched whistle", samples: toneFrame(params, 6000, 0.5), expected: false},
		{name: "quiet voice", samples: scale(voiceFrame(params), 0.05), expected: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			sample := Analyze(testCase.samples, params)
			if got := IsHumanVoice(sample, params); got != testCase.expected {
				t.Fatalf("expected voice=%t, got %t (%+v)", testCase.expected, got, sample)
			}
		})
	}
}

func TestAnalyzeSilenceHasNoEnergy(t *testing.T) {
	params := DefaultParams()
	sample := Analyze(make([]float64, params.FrameSize), params)

	if sample.RMS != 0 || sample.VoiceRatio != 0 {
		t.Fatalf("expected empty analysis, got %+v", sample)
	}
}

func TestFFTFindsTonePeak(t *testing.T) {
	n := 64
	x := make([]complex128, n)
	for i := range x {
		x[i] = complex(math.Cos(2*math.Pi*4*float64(i)/float64(n)), 0)
	}
	fft(x)

	peak := 0
	for i := 1; i < n/2; i++ {
		if math.Abs(real(x[i]))+math.Abs(imag(x[i])) > math.Abs(real(x[peak]))+math.Abs(imag(x[peak])) {
			peak = i
		}
	}
	if peak != 4 {
		t.Fatalf("expected peak at bin 4, got %d", peak)
	}
}

func TestDetectorReportsSilenceAfterGrace(t *testing.T) {
	params := DefaultParams()
	clock := timer.NewManualClock(time.Unix(0, 0))

	var voiced, silent atomic.Int32
	detector, err := NewDetector(params,
		WithClock(clock),
		WithVoiceDetectedCallback(func(AudioAnalysisSample) { voiced.Add(1) }),
		WithSilenceCallback(func(AudioAnalysisSample) { silent.Add(1) }),
	)
	if err != nil {
		t.Fatalf("expected detector, got error: %v", err)
	}

	quiet := audio.FloatToLinear16(make([]float64, params.FrameSize))
	speech := audio.FloatToLinear16(voiceFrame(params))

	detector.Process(quiet)
	if silent.Load() != 0 {
		t.Fatalf("expected no silence before any voice")
	}

	detector.Process(speech)
	if voiced.Load() != 1 || !detector.VoicePending() {
		t.Fatalf("expected one voice event, got %d", voiced.Load())
	}

	detector.Process(quiet)
	clock.Advance(time.Second)
	detector.Process(quiet)
	if silent.Load() != 0 {
		t.Fatalf("expected pause inside grace period to be tolerated")
	}

	clock.Advance(time.Second)
	detector.Process(quiet)
	if silent.Load() != 1 {
		t.Fatalf("expected one silence event, got %d", silent.Load())
	}
	if detector.VoicePending() {
		t.Fatalf("expected pending voice to be cleared")
	}

	clock.Advance(5 * time.Second)
	detector.Process(quiet)
	if silent.Load() != 1 {
		t.Fatalf("expected silence to be reported once, got %d", silent.Load())
	}
}

func TestDetectorVoiceRestartsGrace(t *testing.T) {
	params := DefaultParams()
	clock := timer.NewManualClock(time.Unix(0, 0))

	var silent atomic.Int32
	detector, err := NewDetector(params,
		WithClock(clock),
		WithSilenceCallback(func(AudioAnalysisSample) { silent.Add(1) }),
	)
	if err != nil {
		t.Fatalf("expected detector, got error: %v", err)
	}

	quiet := audio.FloatToLinear16(make([]float64, params.FrameSize))
	speech := audio.FloatToLinear16(voiceFrame(params))

	detector.Process(speech)
	detector.Process(quiet)
	clock.Advance(1500 * time.Millisecond)
	detector.Process(speech)
	detector.Process(quiet)
	clock.Advance(1500 * time.Millisecond)
	detector.Process(quiet)

	if silent.Load() != 0 {
		t.Fatalf("expected voice to restart the grace period, got %d silence events", silent.Load())
	}
}

func TestDetectorBuffersPartialChunks(t *testing.T) {
	params := DefaultParams()
	detector, err := NewDetector(params)
	if err != nil {
		t.Fatalf("expected detector, got error: %v", err)
	}

	pcm := audio.FloatToLinear16(voiceFrame(params))
	detector.Process(pcm[:1001])
	if detector.Frames() != 0 {
		t.Fatalf("expected no frame from a partial chunk")
	}
	detector.Process(pcm[1001:])
	if detector.Frames() != 1 {
		t.Fatalf("expected one frame, got %d", detector.Frames())
	}
}

func scale(samples []float64, factor float64) []float64 {
	for i := range samples {
		samples[i] *= factor
	}
	return samples
}

// Package vad reports when a live audio stream contains human speech and when
// it has gone quiet. It only reports; callers decide what to do with it.
package vad

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/koscakluka/ema-guide/core/audio"
)

// Band is a frequency range in Hz, inclusive on both ends.
type Band struct {
	Low  float64
	High float64
}

type Params struct {
	SampleRate int
	// FrameSize is the number of samples per analysis window. It must be a
	// power of two.
	FrameSize int

	VoiceThreshold   float64
	SilenceThreshold float64
	FundamentalMin   float64
	FormantMin       float64
	VoiceRatioMin    float64

	FundamentalBand Band
	FormantBand     Band

	// SilenceGrace is how long the stream must stay quiet after speech
	// before silence is reported.
	SilenceGrace time.Duration
}

func DefaultParams() Params {
	return Params{
		SampleRate:       audio.DefaultSampleRate,
		FrameSize:        2048,
		VoiceThreshold:   0.02,
		SilenceThreshold: 0.005,
		FundamentalMin:   0.01,
		FormantMin:       0.02,
		VoiceRatioMin:    0.3,
		FundamentalBand:  Band{Low: 85, High: 300},
		FormantBand:      Band{Low: 300, High: 3400},
		SilenceGrace:     2 * time.Second,
	}
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid vad parameter %s: %s", e.Field, e.Message)
}

func (p Params) Validate() error {
	switch {
	case p.SampleRate <= 0:
		return &ValidationError{Field: "SampleRate", Message: "must be positive"}
	case p.FrameSize < 64 || bits.OnesCount(uint(p.FrameSize)) != 1:
		return &ValidationError{Field: "FrameSize", Message: "must be a power of two of at least 64"}
	case p.SilenceThreshold < 0 || p.SilenceThreshold >= p.VoiceThreshold:
		return &ValidationError{Field: "SilenceThreshold", Message: "must be non-negative and below VoiceThreshold"}
	case p.VoiceRatioMin < 0:
		return &ValidationError{Field: "VoiceRatioMin", Message: "must not be negative"}
	case p.FundamentalBand.Low >= p.FundamentalBand.High:
		return &ValidationError{Field: "FundamentalBand", Message: "low edge must be below high edge"}
	case p.FormantBand.Low >= p.FormantBand.High:
		return &ValidationError{Field: "FormantBand", Message: "low edge must be below high edge"}
	case p.FormantBand.High > float64(p.SampleRate)/2:
		return &ValidationError{Field: "FormantBand", Message: "must lie below the Nyquist frequency"}
	case p.SilenceGrace < 0:
		return &ValidationError{Field: "SilenceGrace", Message: "must not be negative"}
	}
	return nil
}

package vad

import (
	"math"
	"math/cmplx"
	"time"
)

// Spectrum magnitudes are mapped from this decibel range onto [0, 1].
const (
	minDecibels = -100.0
	maxDecibels = -30.0
	ratioFloor  = 0.001
)

// AudioAnalysisSample is the summary of one analysis frame.
type AudioAnalysisSample struct {
	RMS                   float64
	FundamentalBandEnergy float64
	FormantBandEnergy     float64
	VoiceRatio            float64
	Timestamp             time.Time
}

// Analyze summarises one frame of samples in [-1, 1]. len(samples) must be a
// power of two.
func Analyze(samples []float64, params Params) AudioAnalysisSample {
	if len(samples) == 0 {
		return AudioAnalysisSample{}
	}

	var sum float64
	for _, sample := range samples {
		sum += sample * sample
	}
	rms := math.Sqrt(sum / float64(len(samples)))

	spectrum := magnitudeSpectrum(samples)
	binHz := float64(params.SampleRate) / float64(len(samples))

	fundamental := bandMean(spectrum, params.FundamentalBand, binHz)
	formant := bandMean(spectrum, params.FormantBand, binHz)
	total := 0.0
	for _, magnitude := range spectrum {
		total += magnitude
	}
	total /= float64(len(spectrum))

	return AudioAnalysisSample{
		RMS:                   rms,
		FundamentalBandEnergy: fundamental,
		FormantBandEnergy:     formant,
		VoiceRatio:            (fundamental + formant) / max(total, ratioFloor),
	}
}

func IsHumanVoice(sample AudioAnalysisSample, params Params) bool {
	return sample.RMS > params.VoiceThreshold &&
		sample.FundamentalBandEnergy > params.FundamentalMin &&
		sample.FormantBandEnergy > params.FormantMin &&
		sample.VoiceRatio > params.VoiceRatioMin
}

// magnitudeSpectrum returns the Hann windowed magnitudes of the first half
// of the spectrum, scaled from decibels onto [0, 1].
func magnitudeSpectrum(samples []float64) []float64 {
	n := len(samples)
	buffer := make([]complex128, n)
	for i, sample := range samples {
		window := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		buffer[i] = complex(sample*window, 0)
	}
	fft(buffer)

	spectrum := make([]float64, n/2)
	for i := range spectrum {
		magnitude := cmplx.Abs(buffer[i]) / float64(n)
		if magnitude <= 0 {
			continue
		}
		db := 20 * math.Log10(magnitude)
		spectrum[i] = min(max((db-minDecibels)/(maxDecibels-minDecibels), 0), 1)
	}
	return spectrum
}

func bandMean(spectrum []float64, band Band, binHz float64) float64 {
	low := int(math.Round(band.Low / binHz))
	high := min(int(math.Round(band.High/binHz)), len(spectrum)-1)
	if low > high {
		return 0
	}

	var sum float64
	for _, magnitude := range spectrum[low : high+1] {
		sum += magnitude
	}
	return sum / float64(high-low+1)
}

// fft is an in-place iterative radix-2 transform. len(x) must be a power of
// two.
func fft(x []complex128) {
	n := len(x)

	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		step := cmplx.Exp(complex(0, -2*math.Pi/float64(size)))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := 0; k < size/2; k++ {
				even := x[start+k]
				odd := x[start+k+size/2] * w
				x[start+k] = even + odd
				x[start+k+size/2] = even - odd
				w *= step
			}
		}
	}
}

package audio

import (
	"encoding/binary"
	"math"
)

// Linear16ToFloat decodes little-endian signed 16-bit samples into the
// [-1, 1] range. A trailing odd byte is ignored.
func Linear16ToFloat(pcm []byte) []float64 {
	samples := make([]float64, len(pcm)/2)
	for i := range samples {
		sample := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		samples[i] = float64(sample) / 32768
	}
	return samples
}

// FloatToLinear16 is the inverse of Linear16ToFloat; values are clipped.
func FloatToLinear16(samples []float64) []byte {
	pcm := make([]byte, 2*len(samples))
	for i, sample := range samples {
		sample = math.Max(-1, math.Min(1, sample))
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(int16(math.Round(sample*32767))))
	}
	return pcm
}

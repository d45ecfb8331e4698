package texttospeech

import "github.com/koscakluka/ema-guide/core/audio"

type TextToSpeechOptions struct {
	// EncodingInfo is the PCM format generators must produce.
	EncodingInfo audio.EncodingInfo
	// Voice overrides the provider's default voice when set.
	Voice string
}

type TextToSpeechOption func(*TextToSpeechOptions)

func NewTextToSpeechOptions(opts ...TextToSpeechOption) TextToSpeechOptions {
	options := TextToSpeechOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

func WithVoice(voice string) TextToSpeechOption {
	return func(o *TextToSpeechOptions) { o.Voice = voice }
}

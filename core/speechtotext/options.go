package speechtotext

import "github.com/koscakluka/ema-guide/core/audio"

type TranscriptionOptions struct {
	// InterimResults asks the recognizer to also report non-final
	// transcripts while the user is still talking.
	InterimResults bool

	SpeechStartedCallback func()

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithInterimResults(enabled bool) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimResults = enabled
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}

func NewTranscriptionOptions(opts ...TranscriptionOption) TranscriptionOptions {
	options := TranscriptionOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

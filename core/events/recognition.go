package events

import "time"

const (
	KindRecognitionArmed    Kind = "recognition.armed"
	KindRecognitionDisarmed Kind = "recognition.disarmed"
	KindTranscriptReceived  Kind = "recognition.transcript"
	KindRecognitionFailed   Kind = "recognition.failed"
)

type RecognitionArmed struct {
	Base
	Language string
}

func NewRecognitionArmed(language string, at time.Time) RecognitionArmed {
	return RecognitionArmed{Base: NewBaseAt(KindRecognitionArmed, at), Language: language}
}

type RecognitionDisarmed struct{ Base }

func NewRecognitionDisarmed(at time.Time) RecognitionDisarmed {
	return RecognitionDisarmed{Base: NewBaseAt(KindRecognitionDisarmed, at)}
}

type TranscriptReceived struct {
	Base
	Transcript string
	Language   string
}

func NewTranscriptReceived(transcript, language string, at time.Time) TranscriptReceived {
	return TranscriptReceived{Base: NewBaseAt(KindTranscriptReceived, at), Transcript: transcript, Language: language}
}

type RecognitionFailed struct {
	Base
	// ErrorKind is the recognizer's error classification, e.g. "network".
	ErrorKind string
	Err       error
}

func NewRecognitionFailed(errorKind string, err error, at time.Time) RecognitionFailed {
	return RecognitionFailed{Base: NewBaseAt(KindRecognitionFailed, at), ErrorKind: errorKind, Err: err}
}

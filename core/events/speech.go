package events

import "time"

const (
	KindSpeechQueued   Kind = "speech.queued"
	KindSpeechStarted  Kind = "speech.started"
	KindSpeechFinished Kind = "speech.finished"
)

type SpeechQueued struct {
	Base
	ID       string
	Text     string
	Purpose  string
	Priority string
}

func NewSpeechQueued(id, text, purpose, priority string, at time.Time) SpeechQueued {
	return SpeechQueued{Base: NewBaseAt(KindSpeechQueued, at), ID: id, Text: text, Purpose: purpose, Priority: priority}
}

type SpeechStarted struct {
	Base
	ID      string
	Text    string
	Purpose string
}

func NewSpeechStarted(id, text, purpose string, at time.Time) SpeechStarted {
	return SpeechStarted{Base: NewBaseAt(KindSpeechStarted, at), ID: id, Text: text, Purpose: purpose}
}

type SpeechFinished struct {
	Base
	ID      string
	Purpose string
	Err     error
}

func NewSpeechFinished(id, purpose string, err error, at time.Time) SpeechFinished {
	return SpeechFinished{Base: NewBaseAt(KindSpeechFinished, at), ID: id, Purpose: purpose, Err: err}
}

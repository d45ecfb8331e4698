package events

import "time"

const (
	KindStateChanged    Kind = "session.state_changed"
	KindLanguageChanged Kind = "session.language_changed"
)

type StateChanged struct {
	Base
	From string
	To   string
}

func NewStateChanged(from, to string, at time.Time) StateChanged {
	return StateChanged{Base: NewBaseAt(KindStateChanged, at), From: from, To: to}
}

type LanguageChanged struct {
	Base
	Language string
	// Detected is false when the user asked for the switch explicitly.
	Detected bool
}

func NewLanguageChanged(language string, detected bool, at time.Time) LanguageChanged {
	return LanguageChanged{Base: NewBaseAt(KindLanguageChanged, at), Language: language, Detected: detected}
}

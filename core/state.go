package orchestration

import "github.com/koscakluka/ema-guide/core/language"

type State int

const (
	StateDormant State = iota
	StateActiveIdle
	StateSpeaking
	StateAwaitingAnswer
	StateQuiet
)

func (s State) String() string {
	switch s {
	case StateDormant:
		return "dormant"
	case StateActiveIdle:
		return "active-idle"
	case StateSpeaking:
		return "speaking"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateQuiet:
		return "quiet"
	}
	return "unknown"
}

// listens is the should-listen predicate: recognition is armed for commands
// and answers only in these states, and never while speaking.
func (s State) listens() bool {
	return s == StateActiveIdle || s == StateAwaitingAnswer
}

type Mode string

const (
	ModeGeneral      Mode = "general"
	ModeOnboarding   Mode = "onboarding"
	ModeTest         Mode = "test"
	ModeGame         Mode = "game"
	ModeResults      Mode = "results"
	ModeConsultation Mode = "consultation"
)

// Session is the conversation as seen from outside the controller.
// Language and Quiet survive restarts through the preference store.
type Session struct {
	Mode        Mode
	Language    language.Language
	Quiet       bool
	Active      bool
	ScenarioKey string
}

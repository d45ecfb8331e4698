package events

import "time"

const (
	KindAnswerRecorded  Kind = "script.answer_recorded"
	KindScriptCompleted Kind = "script.completed"
)

type AnswerRecorded struct {
	Base
	QuestionKey    string
	Transcript     string
	Classification string
	Confidence     float64
}

func NewAnswerRecorded(questionKey, transcript, classification string, confidence float64, at time.Time) AnswerRecorded {
	return AnswerRecorded{
		Base:           NewBaseAt(KindAnswerRecorded, at),
		QuestionKey:    questionKey,
		Transcript:     transcript,
		Classification: classification,
		Confidence:     confidence,
	}
}

type ScriptCompleted struct {
	Base
	ScenarioKey string
	Answers     int
}

func NewScriptCompleted(scenarioKey string, answers int, at time.Time) ScriptCompleted {
	return ScriptCompleted{Base: NewBaseAt(KindScriptCompleted, at), ScenarioKey: scenarioKey, Answers: answers}
}

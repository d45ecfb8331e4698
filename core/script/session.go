package script

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/phrases"
	"github.com/koscakluka/ema-guide/core/utterance"
)

// Answer is one accepted response to a script question.
type Answer struct {
	ID             string                   `json:"id"`
	QuestionKey    string                   `json:"question_key"`
	RawTranscript  string                   `json:"raw_transcript"`
	Classification utterance.Classification `json:"classification"`
	Confidence     float64                  `json:"confidence"`
	Timestamp      time.Time                `json:"timestamp"`
}

// Session is the state of one script run: the question list (with any
// inserted follow-ups), the cursor and the recorded answers.
//
// A Session is not safe for concurrent use. Snapshot returns a deep copy
// that can be handed to other goroutines.
type Session struct {
	library  *Library
	scenario Scenario
	lang     language.Language

	questions  []Question
	cursor     int
	answers    []Answer
	followedUp map[string]bool

	picker  *phrases.Picker
	catalog phrases.Catalog
}

type SessionOption func(*Session)

// WithPicker shares a picker with the caller so phrase recency spans every
// utterance of the activation.
func WithPicker(picker *phrases.Picker) SessionOption {
	return func(s *Session) { s.picker = picker }
}

func WithCatalog(catalog phrases.Catalog) SessionOption {
	return func(s *Session) { s.catalog = catalog }
}

// NewSession starts scenarioKey's script in lang.
func (l *Library) NewSession(scenarioKey string, lang language.Language, opts ...SessionOption) (*Session, error) {
	scenario, err := l.Scenario(scenarioKey)
	if err != nil {
		return nil, err
	}

	var questions []Question
	if err := copier.CopyWithOption(&questions, &scenario.Questions, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to copy %q questions: %w", scenarioKey, err)
	}

	session := &Session{
		library:    l,
		scenario:   scenario,
		lang:       lang.OrDefault(),
		questions:  questions,
		followedUp: map[string]bool{},
	}
	for _, opt := range opts {
		opt(session)
	}
	if session.picker == nil {
		session.picker = phrases.NewPicker(uint64(time.Now().UnixNano()), phrases.DefaultMemory)
	}
	if session.catalog == nil {
		session.catalog = phrases.Default()
	}
	return session, nil
}

func (s *Session) ScenarioKey() string                { return s.scenario.Key }
func (s *Session) Language() language.Language        { return s.lang }
func (s *Session) SetLanguage(lang language.Language) { s.lang = lang.OrDefault() }

func (s *Session) Welcome() string { return s.scenario.Welcome.Text(s.lang) }

// Len counts every question including inserted follow-ups.
func (s *Session) Len() int { return len(s.questions) }

// Total counts the scripted questions only.
func (s *Session) Total() int {
	total := 0
	for _, question := range s.questions {
		if !question.Transient {
			total++
		}
	}
	return total
}

func (s *Session) Cursor() int { return s.cursor }

func (s *Session) Done() bool { return s.cursor >= len(s.questions) }

func (s *Session) Current() (Question, bool) {
	if s.Done() {
		return Question{}, false
	}
	return s.questions[s.cursor], true
}

// Advance moves to the next question and reports whether one remains.
func (s *Session) Advance() bool {
	if !s.Done() {
		s.cursor++
	}
	return !s.Done()
}

// Prompt is the text that asks the current question. Scripted questions
// are prefixed with their step phrase; follow-ups are asked as they are.
func (s *Session) Prompt() string {
	question, ok := s.Current()
	if !ok {
		return ""
	}
	if question.Transient {
		return question.Prompts.Text(s.lang)
	}

	ordinal := 0
	for _, q := range s.questions[:s.cursor] {
		if !q.Transient {
			ordinal++
		}
	}
	return s.NextPrompt(ordinal, s.Total())
}

// NextPrompt combines the step phrase for the index-th of total scripted
// questions with that question's text.
func (s *Session) NextPrompt(index, total int) string {
	var question *Question
	ordinal := 0
	for i := range s.questions {
		if s.questions[i].Transient {
			continue
		}
		if ordinal == index {
			question = &s.questions[i]
			break
		}
		ordinal++
	}
	if question == nil {
		return ""
	}

	step := s.StepPhrase(index, total)
	text := question.Prompts.Text(s.lang)
	if step == "" {
		return text
	}
	return step + " " + text
}

// StepPhrase announces the position of the index-th of total questions.
func (s *Session) StepPhrase(index, total int) string {
	if total <= 0 || index < 0 || index >= total {
		return ""
	}

	template := s.library.Steps.Middle
	switch {
	case index == 0:
		template = s.library.Steps.First
	case index == total-1:
		template = s.library.Steps.Last
	}

	return strings.NewReplacer(
		"{n}", strconv.Itoa(index+1),
		"{total}", strconv.Itoa(total),
	).Replace(template.Text(s.lang))
}

// FollowUp inserts a follow-up question right after questionKey when answer
// matches one of its rules. Only the current question can be followed up.
// Follow-ups never chain and each scripted question gets at most one.
func (s *Session) FollowUp(answer utterance.Result, questionKey string) (Question, bool) {
	current, ok := s.Current()
	if !ok || current.Key != questionKey || current.Transient || s.followedUp[current.Key] {
		return Question{}, false
	}

	for _, rule := range current.FollowUps {
		if !rule.matches(answer) {
			continue
		}

		text := s.picker.Pick(rule.Templates.List(s.lang))
		if text == "" {
			continue
		}
		followUp := Question{
			Key:       current.Key + ".followUp",
			Prompts:   Localized{s.lang: text},
			Transient: true,
		}
		s.followedUp[current.Key] = true
		s.questions = slices.Insert(s.questions, s.cursor+1, followUp)
		return followUp, true
	}
	return Question{}, false
}

// Confirmation acknowledges an answer to the current question. Question
// specific texts win unless the user sounds nervous, in which case the
// softer generic pools are used for yes and no.
func (s *Session) Confirmation(answer utterance.Result, nervous bool) string {
	question, _ := s.Current()

	if !nervous || (answer.Classification != utterance.Yes && answer.Classification != utterance.No) {
		if text, ok := question.Confirmations[answer.Classification]; ok {
			return text.Text(s.lang)
		}
		if answer.HasDetails {
			if text, ok := question.Confirmations[utterance.Detail]; ok {
				return text.Text(s.lang)
			}
		}
	}

	pool := phrases.ConfirmGeneric
	switch answer.Classification {
	case utterance.Yes:
		pool = phrases.ConfirmYes
		if nervous {
			pool = phrases.ConfirmYesNervous
		}
	case utterance.No:
		pool = phrases.ConfirmNo
		if nervous {
			pool = phrases.ConfirmNoNervous
		}
	case utterance.Detail:
		pool = phrases.ConfirmDetail
	}
	return s.picker.Pick(s.catalog.Lookup(pool, s.lang))
}

// Record stores answer against the current question.
func (s *Session) Record(answer Answer) {
	if answer.QuestionKey == "" {
		if question, ok := s.Current(); ok {
			answer.QuestionKey = question.Key
		}
	}
	s.answers = append(s.answers, answer)
}

func (s *Session) Answers() []Answer { return slices.Clone(s.answers) }

// ClosingSummary picks the empathetic closing when any answer sounded
// nervous and the neutral one otherwise.
func (s *Session) ClosingSummary(answers []Answer) string {
	closing := s.scenario.Closing
	if closing.isZero() {
		closing = s.library.Closing
	}

	for _, answer := range answers {
		if utterance.IsNervous(answer.RawTranscript) {
			return closing.Empathetic.Text(s.lang)
		}
	}
	return closing.Neutral.Text(s.lang)
}

// Snapshot is a detached copy of a session.
type Snapshot struct {
	ScenarioKey string            `json:"scenario_key"`
	Language    language.Language `json:"language"`
	Questions   []Question        `json:"questions"`
	Cursor      int               `json:"cursor"`
	Answers     []Answer          `json:"answers"`
}

func (s *Session) Snapshot() (Snapshot, error) {
	snapshot := Snapshot{
		ScenarioKey: s.scenario.Key,
		Language:    s.lang,
		Cursor:      s.cursor,
	}
	if err := copier.CopyWithOption(&snapshot.Questions, &s.questions, copier.Option{DeepCopy: true}); err != nil {
		return Snapshot{}, fmt.Errorf("failed to copy session questions: %w", err)
	}
	snapshot.Answers = slices.Clone(s.answers)
	return snapshot, nil
}

package script

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/phrases"
	"github.com/koscakluka/ema-guide/core/utterance"
)

func newTestSession(t *testing.T, scenario string, lang language.Language) *Session {
	t.Helper()

	session, err := Default().NewSession(scenario, lang, WithPicker(phrases.NewPicker(7, phrases.DefaultMemory)))
	if err != nil {
		t.Fatalf("expected session, got error: %v", err)
	}
	return session
}

func TestDefaultLibraryHasEveryScenario(t *testing.T) {
	library := Default()

	for _, key := range []string{"astigmatism", "color", "eye-scan", "hyperopia", "myopia"} {
		if _, err := library.Scenario(key); err != nil {
			t.Fatalf("expected scenario %q, got error: %v", key, err)
		}
	}
}

func TestUnknownScenario(t *testing.T) {
	_, err := Default().NewSession("retina", language.English)

	if !errors.Is(err, ErrUnknownScenario) {
		t.Fatalf("expected ErrUnknownScenario, got %v", err)
	}
}

func TestParseRejectsMissingTranslation(t *testing.T) {
	data := `
closing:
  neutral: {en: "done", sw: "tayari"}
  empathetic: {en: "done", sw: "tayari"}
scenarios:
  short:
    questions:
      - key: only
        prompts: {en: "Ready?"}
`
	_, err := Parse([]byte(data))
	if err == nil || !strings.Contains(err.Error(), "no sw prompt") {
		t.Fatalf("expected missing sw prompt error, got %v", err)
	}
}

func TestNextPromptStepPhrases(t *testing.T) {
	session := newTestSession(t, "myopia", language.English)

	first := session.NextPrompt(0, 2)
	if !strings.HasPrefix(first, "Let's begin. Question 1 of 2.") {
		t.Fatalf("expected first step phrase, got %q", first)
	}
	if !strings.HasSuffix(first, "Can you read the letters on the screen?") {
		t.Fatalf("expected first question text, got %q", first)
	}

	last := session.NextPrompt(1, 2)
	if !strings.HasPrefix(last, "And the last question.") {
		t.Fatalf("expected last step phrase, got %q", last)
	}

	if got := session.StepPhrase(1, 3); got != "Question 2 of 3." {
		t.Fatalf("expected middle step phrase, got %q", got)
	}
	if got := session.NextPrompt(5, 2); got != "" {
		t.Fatalf("expected empty prompt out of range, got %q", got)
	}
}

func TestPromptFollowsLanguage(t *testing.T) {
	session := newTestSession(t, "hyperopia", language.Swahili)

	if got := session.Prompt(); !strings.Contains(got, "maandishi") {
		t.Fatalf("expected swahili prompt, got %q", got)
	}

	session.SetLanguage(language.English)
	if got := session.Prompt(); !strings.Contains(got, "Which text appears clearer") {
		t.Fatalf("expected english prompt, got %q", got)
	}
}

func TestFollowUpInsertedAfterCurrentQuestion(t *testing.T) {
	session := newTestSession(t, "eye-scan", language.English)
	total := session.Total()

	answer := utterance.Classify("yes things look blurry at night", language.English)
	followUp, ok := session.FollowUp(answer, "symptoms")
	if !ok {
		t.Fatalf("expected a follow-up for a blurry answer")
	}
	if !followUp.Transient {
		t.Fatalf("expected follow-up to be transient")
	}
	if session.Total() != total {
		t.Fatalf("expected scripted total to stay %d, got %d", total, session.Total())
	}
	if session.Len() != total+1 {
		t.Fatalf("expected %d questions, got %d", total+1, session.Len())
	}

	if _, ok := session.FollowUp(answer, "symptoms"); ok {
		t.Fatalf("expected at most one follow-up per question")
	}
	if _, ok := session.FollowUp(answer, "history"); ok {
		t.Fatalf("expected only the current question to be followed up")
	}

	session.Advance()
	current, _ := session.Current()
	if current.Key != "symptoms.followUp" {
		t.Fatalf("expected follow-up to be asked next, got %q", current.Key)
	}
	if got := session.Prompt(); got != followUp.Prompts.Text(language.English) {
		t.Fatalf("expected follow-up prompt without step phrase, got %q", got)
	}
	if _, ok := session.FollowUp(utterance.Classify("it hurts", language.English), "symptoms.followUp"); ok {
		t.Fatalf("expected follow-ups not to chain")
	}

	session.Advance()
	if got := session.Prompt(); !strings.HasPrefix(got, "Question 2 of 5.") {
		t.Fatalf("expected second scripted question, got %q", got)
	}
}

func TestFollowUpRules(t *testing.T) {
	testCases := []struct {
		name     string
		skip     int
		answer   string
		expected bool
	}{
		{name: "pain keyword", skip: 0, answer: "my eyes feel dry", expected: true},
		{name: "plain no", skip: 0, answer: "no", expected: false},
		{name: "lenses yes", skip: 1, answer: "ndiyo", expected: true},
		{name: "lenses no", skip: 1, answer: "no I don't", expected: false},
		{name: "long history", skip: 2, answer: "I had laser surgery two years ago", expected: true},
		{name: "short history", skip: 2, answer: "none", expected: false},
		{name: "lighting has no rules", skip: 3, answer: "yes", expected: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			session := newTestSession(t, "eye-scan", language.English)
			for range testCase.skip {
				session.Advance()
			}
			current, _ := session.Current()

			_, ok := session.FollowUp(utterance.Classify(testCase.answer, language.English), current.Key)
			if ok != testCase.expected {
				t.Fatalf("expected follow-up=%t for %q", testCase.expected, testCase.answer)
			}
		})
	}
}

func TestConfirmationPrefersQuestionText(t *testing.T) {
	session := newTestSession(t, "eye-scan", language.English)

	got := session.Confirmation(utterance.Classify("no", language.English), false)
	if got != "Good to hear you're not experiencing any discomfort. That's helpful information." {
		t.Fatalf("expected symptoms confirmation, got %q", got)
	}

	nervous := session.Confirmation(utterance.Classify("no", language.English), true)
	if !contains(phrases.Default().Lookup(phrases.ConfirmNoNervous, language.English), nervous) {
		t.Fatalf("expected nervous confirmation, got %q", nervous)
	}
}

func TestConfirmationFallsBackToGenericPools(t *testing.T) {
	session := newTestSession(t, "color", language.Swahili)

	got := session.Confirmation(utterance.Classify("ndiyo", language.Swahili), false)
	if !contains(phrases.Default().Lookup(phrases.ConfirmYes, language.Swahili), got) {
		t.Fatalf("expected generic swahili yes confirmation, got %q", got)
	}
}

func TestClosingSummary(t *testing.T) {
	session := newTestSession(t, "myopia", language.English)
	library := Default()

	calm := []Answer{{QuestionKey: "readability", RawTranscript: "yes"}}
	if got := session.ClosingSummary(calm); got != library.Closing.Neutral.Text(language.English) {
		t.Fatalf("expected neutral closing, got %q", got)
	}

	nervous := []Answer{{QuestionKey: "readability", RawTranscript: "yes but I'm nervous"}}
	if got := session.ClosingSummary(nervous); got != library.Closing.Empathetic.Text(language.English) {
		t.Fatalf("expected empathetic closing, got %q", got)
	}

	eyeScan := newTestSession(t, "eye-scan", language.English)
	if got := eyeScan.ClosingSummary(calm); !strings.Contains(got, "consultation") {
		t.Fatalf("expected scenario closing, got %q", got)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	session := newTestSession(t, "myopia", language.English)
	session.Record(Answer{RawTranscript: "yes", Classification: utterance.Yes})

	snapshot, err := session.Snapshot()
	if err != nil {
		t.Fatalf("expected snapshot, got error: %v", err)
	}
	if snapshot.Answers[0].QuestionKey != "readability" {
		t.Fatalf("expected answer keyed by current question, got %q", snapshot.Answers[0].QuestionKey)
	}

	snapshot.Questions[0].Prompts[language.English] = "changed"
	if got := session.NextPrompt(0, 2); strings.Contains(got, "changed") {
		t.Fatalf("expected snapshot edits not to leak into the session, got %q", got)
	}
}

func TestSessionsDoNotShareQuestions(t *testing.T) {
	first := newTestSession(t, "eye-scan", language.English)
	first.FollowUp(utterance.Classify("it is blurry", language.English), "symptoms")

	second := newTestSession(t, "eye-scan", language.English)
	if second.Len() != second.Total() {
		t.Fatalf("expected fresh session without follow-ups, got %d of %d", second.Len(), second.Total())
	}
}

func TestJSONSchema(t *testing.T) {
	data, err := JSONSchema()
	if err != nil {
		t.Fatalf("expected schema, got error: %v", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatalf("expected valid json, got error: %v", err)
	}
	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected schema properties, got %v", schema)
	}
	if _, ok := properties["scenarios"]; !ok {
		t.Fatalf("expected scenarios property, got %v", properties)
	}
}

func contains(pool []string, phrase string) bool {
	for _, candidate := range pool {
		if candidate == phrase {
			return true
		}
	}
	return false
}

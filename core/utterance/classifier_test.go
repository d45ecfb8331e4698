package utterance

import (
	"testing"

	"github.com/koscakluka/ema-guide/core/language"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name       string
		transcript string
		lang       language.Language
		expected   Classification
		understood bool
	}{
		{name: "english yes", transcript: "yes", lang: language.English, expected: Yes, understood: true},
		{name: "swahili yes", transcript: "ndiyo", lang: language.Swahili, expected: Yes, understood: true},
		{name: "swahili no", transcript: "hapana", lang: language.Swahili, expected: No, understood: true},
		{name: "code switched yes", transcript: "ndiyo", lang: language.English, expected: Yes, understood: true},
		{name: "english no with filler", transcript: "um, no", lang: language.English, expected: No, understood: true},
		{name: "detail", transcript: "I think maybe around the edges it gets a bit blurry when reading", lang: language.English, expected: Detail, understood: true},
		{name: "digits are details", transcript: "20", lang: language.English, expected: Detail, understood: true},
		{name: "unknown short word", transcript: "umm uh", lang: language.English, expected: Unclear, understood: true},
		{name: "only filler stripped", transcript: "uh", lang: language.English, expected: Unclear, understood: false},
		{name: "stray word", transcript: "the", lang: language.English, expected: Unclear, understood: false},
		{name: "negation does not match inside words", transcript: "know", lang: language.English, expected: Unclear, understood: true},
		{name: "i do not", transcript: "I do not wear glasses", lang: language.English, expected: No, understood: true},
		{name: "i am not", transcript: "I am not in pain", lang: language.English, expected: No, understood: true},
		{name: "i have never", transcript: "I have never had eye surgery", lang: language.English, expected: No, understood: true},
		{name: "i have not", transcript: "I have not noticed anything", lang: language.English, expected: No, understood: true},
		{name: "i don't", transcript: "I don't", lang: language.English, expected: No, understood: true},
		{name: "negator after yes phrase", transcript: "I use hardly ever", lang: language.English, expected: No, understood: true},
		{name: "swahili negated", transcript: "hapana sina miwani", lang: language.Swahili, expected: No, understood: true},
		{name: "yes i do", transcript: "yes I do", lang: language.English, expected: Yes, understood: true},
		{name: "yes then details", transcript: "I have them but not for reading", lang: language.English, expected: Yes, understood: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := Classify(testCase.transcript, testCase.lang)
			if result.Classification != testCase.expected {
				t.Fatalf("expected %q, got %q (cleaned %q)", testCase.expected, result.Classification, result.Cleaned)
			}
			if result.Understood() != testCase.understood {
				t.Fatalf("expected understood=%t, got confidence %.2f", testCase.understood, result.Confidence)
			}
		})
	}
}

func TestClassifyDetailConfidence(t *testing.T) {
	result := Classify("I think maybe around the edges it gets a bit blurry when reading", language.English)

	if result.Confidence <= UnderstoodThreshold {
		t.Fatalf("expected confidence above %.1f, got %.2f", UnderstoodThreshold, result.Confidence)
	}
	if !result.HasDetails {
		t.Fatalf("expected details to be detected")
	}
}

func TestClassifyConfidenceIsCapped(t *testing.T) {
	result := Classify("yes I wear glasses every single day", language.English)

	if result.Confidence != 1.0 {
		t.Fatalf("expected confidence capped at 1.0, got %.2f", result.Confidence)
	}
	if result.Classification != Yes {
		t.Fatalf("expected yes, got %q", result.Classification)
	}
}

func TestClassifyEarlierPhraseWinsConflicts(t *testing.T) {
	if got := Classify("no, I'm sure", language.English).Classification; got != No {
		t.Fatalf("expected no, got %q", got)
	}
	if got := Classify("yes but not always", language.English).Classification; got != Yes {
		t.Fatalf("expected yes, got %q", got)
	}
}

func TestClassifyReportsMatchedLanguage(t *testing.T) {
	result := Classify("hapana", language.English)

	if result.MatchedLanguage != language.Swahili {
		t.Fatalf("expected swahili patterns to decide, got %q", result.MatchedLanguage)
	}
}

func TestDetectMood(t *testing.T) {
	if got := DetectMood("I'm a bit nervous about this"); got != MoodNervous {
		t.Fatalf("expected nervous, got %q", got)
	}
	if got := DetectMood("nina wasiwasi"); got != MoodNervous {
		t.Fatalf("expected nervous, got %q", got)
	}
	if got := DetectMood("the lights are on"); got != MoodNeutral {
		t.Fatalf("expected neutral, got %q", got)
	}
}

func TestRemovePhraseDropsMultiWordFillers(t *testing.T) {
	tokens := RemovePhrase(Tokenize("you know I mean yes you know"), Tokenize("you know"))

	if got := len(tokens); got != 3 {
		t.Fatalf("expected 3 tokens left, got %d (%v)", got, tokens)
	}
}

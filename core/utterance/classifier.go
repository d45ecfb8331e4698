// Package utterance turns raw transcripts into structured answers.
//
// The classifier is a keyword heuristic, not a language model. Both
// languages' yes/no lists are always consulted because users switch
// languages mid-sentence.
package utterance

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/koscakluka/ema-guide/core/language"
)

type Classification string

const (
	Yes     Classification = "yes"
	No      Classification = "no"
	Detail  Classification = "detail"
	Unclear Classification = "unclear"
)

// UnderstoodThreshold is the confidence an answer must exceed to be accepted.
const UnderstoodThreshold = 0.3

const (
	weightYesNo      = 0.8
	weightDetails    = 0.6
	weightMeaningful = 0.4
	weightLength     = 0.2
)

type Result struct {
	Raw     string
	Cleaned string

	Classification Classification
	Confidence     float64

	IsYes      bool
	IsNo       bool
	HasDetails bool
	Meaningful bool

	// MatchedLanguage is the language whose yes/no list decided the result,
	// or the requested language when neither list matched.
	MatchedLanguage language.Language
}

func (r Result) Understood() bool { return r.Confidence > UnderstoodThreshold }

// Classify interprets transcript as an answer spoken in lang.
func Classify(transcript string, lang language.Language) Result {
	lang = lang.OrDefault()
	tokens := stripFillers(Tokenize(transcript))
	cleaned := strings.Join(tokens, " ")

	result := Result{
		Raw:             transcript,
		Cleaned:         cleaned,
		MatchedLanguage: lang,
	}

	yesAt, yesLen, yesLang := firstMatch(tokens, yesPatterns, lang)
	noAt, noLen, noLang := firstMatch(tokens, noPatterns, lang)
	result.IsYes = yesAt >= 0
	result.IsNo = noAt >= 0

	length := utf8.RuneCountInString(cleaned)
	result.HasDetails = length > 8 ||
		len(tokens) >= 3 ||
		ContainsAny(tokens, detailKeywords) ||
		strings.ContainsFunc(cleaned, unicode.IsDigit)
	result.Meaningful = length >= 2 && !isStray(cleaned)

	confidence := 0.0
	if result.IsYes || result.IsNo {
		confidence += weightYesNo
	}
	if result.HasDetails {
		confidence += weightDetails
	}
	if result.Meaningful {
		confidence += weightMeaningful
	}
	if length > 5 {
		confidence += weightLength
	}
	result.Confidence = min(confidence, 1.0)

	switch {
	case result.IsYes && result.IsNo:
		// The earlier phrase frames the answer; a longer phrase wins a tie.
		// A negator right after the yes phrase negates it.
		if (yesAt < noAt && !negatedAt(tokens, yesAt+yesLen)) || (yesAt == noAt && yesLen > noLen) {
			result.Classification, result.MatchedLanguage = Yes, yesLang
		} else {
			result.Classification, result.MatchedLanguage = No, noLang
		}
	case result.IsYes:
		result.Classification, result.MatchedLanguage = Yes, yesLang
	case result.IsNo:
		result.Classification, result.MatchedLanguage = No, noLang
	case result.HasDetails:
		result.Classification = Detail
	default:
		result.Classification = Unclear
	}

	return result
}

func stripFillers(tokens []string) []string {
	for _, lang := range []language.Language{language.English, language.Swahili} {
		for _, filler := range fillers[lang] {
			tokens = RemovePhrase(tokens, Tokenize(filler))
		}
	}
	return tokens
}

func isStray(cleaned string) bool {
	for _, word := range strayWords {
		if cleaned == word {
			return true
		}
	}
	return false
}

// firstMatch returns the token index and length of the earliest matching
// phrase, preferring lang's list when two lists match at the same index.
func firstMatch(tokens []string, patterns map[language.Language][]string, lang language.Language) (int, int, language.Language) {
	bestAt, bestLen, bestLang := -1, 0, lang
	for _, candidate := range []language.Language{lang, otherLanguage(lang)} {
		for _, pattern := range patterns[candidate] {
			phrase := Tokenize(pattern)
			at := IndexPhrase(tokens, phrase)
			if at < 0 {
				continue
			}
			if bestAt < 0 || at < bestAt || (at == bestAt && len(phrase) > bestLen) {
				bestAt, bestLen, bestLang = at, len(phrase), candidate
			}
		}
	}
	return bestAt, bestLen, bestLang
}

func negatedAt(tokens []string, i int) bool {
	return i < len(tokens) && slices.Contains(negators, tokens[i])
}

func otherLanguage(lang language.Language) language.Language {
	if lang == language.Swahili {
		return language.English
	}
	return language.Swahili
}

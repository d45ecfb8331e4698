package utterance

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases text and splits it into words. Letters, digits and
// apostrophes belong to words; everything else separates them.
func Tokenize(text string) []string {
	text = strings.ReplaceAll(strings.ToLower(text), "’", "'")
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// IndexPhrase returns the index of the first occurrence of phrase as a
// contiguous token run, or -1.
func IndexPhrase(tokens, phrase []string) int {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return -1
	}

outer:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j, word := range phrase {
			if tokens[i+j] != word {
				continue outer
			}
		}
		return i
	}
	return -1
}

func ContainsPhrase(tokens []string, phrase string) bool {
	return IndexPhrase(tokens, Tokenize(phrase)) >= 0
}

func ContainsAny(tokens []string, phrases []string) bool {
	for _, phrase := range phrases {
		if ContainsPhrase(tokens, phrase) {
			return true
		}
	}
	return false
}

// RemovePhrase drops every occurrence of phrase from tokens.
func RemovePhrase(tokens, phrase []string) []string {
	if len(phrase) == 0 {
		return tokens
	}

	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		if i+len(phrase) <= len(tokens) && IndexPhrase(tokens[i:i+len(phrase)], phrase) == 0 {
			i += len(phrase)
			continue
		}
		out = append(out, tokens[i])
		i++
	}
	return out
}

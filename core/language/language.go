// Package language holds the two conversation languages and the lexical
// detector used to follow a user who switches between them.
package language

import (
	"fmt"
	"regexp"
	"strings"
)

type Language string

const (
	English Language = "en"
	Swahili Language = "sw"
)

const Default = English

func (l Language) String() string { return string(l) }

func (l Language) IsValid() bool { return l == English || l == Swahili }

// OrDefault returns l when it is valid and English otherwise.
func (l Language) OrDefault() Language {
	if l.IsValid() {
		return l
	}
	return Default
}

func Parse(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "english", "en-us", "en-ke":
		return English, nil
	case "sw", "swahili", "kiswahili", "sw-ke":
		return Swahili, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// swahiliThreshold is the share of meaningful words that must be Swahili.
const swahiliThreshold = 0.15

var swahiliLexicon = []string{
	"jambo", "habari", "asante", "karibu", "pole", "sawa", "hapana", "ndiyo", "ndio", "siyo", "sio",
	"mimi", "wewe", "yeye", "sisi", "nyinyi", "wao", "hapa", "huko", "hapo", "huku",
	"leo", "kesho", "jana", "sasa", "zamani", "baadaye", "kabla", "baada", "mwaka", "mwezi", "siku",
	"na", "au", "lakini", "kwa", "katika", "kutoka", "hadi", "mpaka", "kama", "kwa sababu",
	"macho", "jicho", "machozi", "kuona", "angalia", "tazama", "ona", "mwangaza", "giza",
	"afya", "mgonjwa", "daktari", "hospitali", "dawa", "tiba", "chakula", "maji",
	"moto", "baridi", "nzuri", "baya", "kubwa", "ndogo", "refu", "fupi", "wazi", "fifia",
	"upasuaji", "uchunguzi", "mtihani", "dalili", "hali", "tatizo", "maumivu", "uchungu",
	"miwani", "lenzi", "msaada", "usaidizi",
	"tafadhali", "samahani", "pole sana", "asante sana", "karibu tena",
	"nina", "sina", "nimekuwa", "sijawahi", "navaa", "sivai", "natumia", "situmii",
	"ninaweza", "siwezi", "nafahamu", "sifahamu", "naelewa", "sielewi",
	"moja", "mbili", "tatu", "nne", "tano", "sita", "saba", "nane", "tisa", "kumi",
	"kidogo", "sana", "mengi", "chache", "yote", "wote", "zote",
	"fanya", "anza", "maliza", "endelea", "acha", "ngoja", "subiri",
	"sema", "ongea", "sikiliza", "sikia", "elewa", "fahamu",
	"nini", "wapi", "lini", "nani", "kwa nini", "jinsi gani", "vipi",
	"haya", "kweli", "hakika", "bila shaka", "labda", "pengine",
	"la", "kamwe", "hakuna", "hamna",
}

var swahiliSignature = regexp.MustCompile(`\b(jambo|habari|asante|tafadhali|samahani|pole|sawa|hapana|ndiyo)\b`)

var lexiconPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(swahiliLexicon))
	seen := map[string]bool{}
	for _, word := range swahiliLexicon {
		if seen[word] {
			continue
		}
		seen[word] = true
		patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(word)+`\b`))
	}
	return patterns
}()

// Detect guesses the language of a transcript. Text containing a Swahili
// signature word, or whose meaningful words are more than 15% Swahili, is
// Swahili; everything else is English.
func Detect(text string) Language {
	lower := strings.ToLower(text)
	if swahiliSignature.MatchString(lower) {
		return Swahili
	}

	matches := 0
	for _, pattern := range lexiconPatterns {
		if pattern.MatchString(lower) {
			matches++
		}
	}

	meaningful := 0
	for _, word := range strings.Fields(lower) {
		if len(word) > 2 {
			meaningful++
		}
	}

	if matches > 0 && float64(matches)/float64(max(meaningful, 1)) > swahiliThreshold {
		return Swahili
	}
	return English
}

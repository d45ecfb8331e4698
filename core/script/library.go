// Package script holds the question scripts the guide walks a user through
// and the per-activation session that sequences them.
package script

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/utterance"
	"gopkg.in/yaml.v3"
)

// Localized is a single text in each supported language.
type Localized map[language.Language]string

// Text returns the entry for lang and falls back to English.
func (l Localized) Text(lang language.Language) string {
	if text, ok := l[lang.OrDefault()]; ok && text != "" {
		return text
	}
	return l[language.English]
}

// LocalizedList is a pool of interchangeable texts in each language.
type LocalizedList map[language.Language][]string

func (l LocalizedList) List(lang language.Language) []string {
	if list := l[lang.OrDefault()]; len(list) > 0 {
		return list
	}
	return l[language.English]
}

type Question struct {
	Key     string    `yaml:"key" json:"key" jsonschema:"required"`
	Prompts Localized `yaml:"prompts" json:"prompts" jsonschema:"required"`

	// Confirmations are keyed by answer classification. A "detail" entry
	// also covers yes answers that carry details.
	Confirmations map[utterance.Classification]Localized `yaml:"confirmations,omitempty" json:"confirmations,omitempty"`
	FollowUps     []FollowUpRule                         `yaml:"follow_ups,omitempty" json:"follow_ups,omitempty"`

	// Transient is set on follow-up questions inserted during a session.
	Transient bool `yaml:"-" json:"-"`
}

// FollowUpRule asks one extra question when an answer mentions any trigger
// word, has one of the listed classifications, or is at least MinLength
// characters long.
type FollowUpRule struct {
	Triggers        []string                   `yaml:"triggers,omitempty" json:"triggers,omitempty"`
	Classifications []utterance.Classification `yaml:"classifications,omitempty" json:"classifications,omitempty"`
	MinLength       int                        `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	Templates       LocalizedList              `yaml:"templates" json:"templates" jsonschema:"required"`
}

func (r FollowUpRule) matches(answer utterance.Result) bool {
	if utterance.ContainsAny(utterance.Tokenize(answer.Raw), r.Triggers) {
		return true
	}
	if slices.Contains(r.Classifications, answer.Classification) {
		return true
	}
	return r.MinLength > 0 && len([]rune(answer.Cleaned)) >= r.MinLength
}

type Closing struct {
	Neutral    Localized `yaml:"neutral" json:"neutral"`
	Empathetic Localized `yaml:"empathetic" json:"empathetic"`
}

func (c Closing) isZero() bool { return len(c.Neutral) == 0 && len(c.Empathetic) == 0 }

type StepPhrases struct {
	First  Localized `yaml:"first" json:"first"`
	Middle Localized `yaml:"middle" json:"middle"`
	Last   Localized `yaml:"last" json:"last"`
}

type Scenario struct {
	Key       string     `yaml:"-" json:"-"`
	Mode      string     `yaml:"mode,omitempty" json:"mode,omitempty" jsonschema:"enum=consultation,enum=test"`
	Welcome   Localized  `yaml:"welcome,omitempty" json:"welcome,omitempty"`
	Questions []Question `yaml:"questions" json:"questions" jsonschema:"required,minItems=1"`
	Closing   Closing    `yaml:"closing,omitempty" json:"closing,omitempty"`
}

// Library is the full set of scenario scripts plus the shared step and
// closing phrases.
type Library struct {
	Steps     StepPhrases         `yaml:"steps" json:"steps" jsonschema:"required"`
	Closing   Closing             `yaml:"closing" json:"closing" jsonschema:"required"`
	Scenarios map[string]Scenario `yaml:"scenarios" json:"scenarios" jsonschema:"required"`
}

var ErrUnknownScenario = errors.New("unknown scenario")

//go:embed scripts.yaml
var defaultLibraryYAML []byte

// Default returns the built-in library. It panics if the embedded file is
// malformed, which is a build defect.
func Default() *Library {
	library, err := Parse(defaultLibraryYAML)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded script library: %v", err))
	}
	return library
}

func Parse(data []byte) (*Library, error) {
	var library Library
	if err := yaml.Unmarshal(data, &library); err != nil {
		return nil, fmt.Errorf("failed to parse script library: %w", err)
	}
	for key, scenario := range library.Scenarios {
		scenario.Key = key
		library.Scenarios[key] = scenario
	}
	if err := library.Validate(); err != nil {
		return nil, err
	}
	return &library, nil
}

// Validate reports every missing translation and duplicate key at once.
func (l *Library) Validate() error {
	var errs []error
	languages := []language.Language{language.English, language.Swahili}

	for _, lang := range languages {
		if l.Closing.Neutral[lang] == "" || l.Closing.Empathetic[lang] == "" {
			errs = append(errs, fmt.Errorf("default closing has no %s text", lang))
		}
	}

	for _, key := range l.ScenarioKeys() {
		scenario := l.Scenarios[key]
		if len(scenario.Questions) == 0 {
			errs = append(errs, fmt.Errorf("scenario %q has no questions", key))
		}

		seen := map[string]bool{}
		for _, question := range scenario.Questions {
			if question.Key == "" {
				errs = append(errs, fmt.Errorf("scenario %q has a question without a key", key))
			} else if seen[question.Key] {
				errs = append(errs, fmt.Errorf("scenario %q repeats question %q", key, question.Key))
			}
			seen[question.Key] = true

			for _, lang := range languages {
				if question.Prompts[lang] == "" {
					errs = append(errs, fmt.Errorf("question %s/%s has no %s prompt", key, question.Key, lang))
				}
				for i, rule := range question.FollowUps {
					if len(rule.Templates[lang]) == 0 {
						errs = append(errs, fmt.Errorf("follow-up %d of %s/%s has no %s templates", i, key, question.Key, lang))
					}
				}
			}
		}
	}

	return errors.Join(errs...)
}

func (l *Library) ScenarioKeys() []string {
	keys := make([]string, 0, len(l.Scenarios))
	for key := range l.Scenarios {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (l *Library) Scenario(key string) (Scenario, error) {
	scenario, ok := l.Scenarios[key]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, key)
	}
	return scenario, nil
}

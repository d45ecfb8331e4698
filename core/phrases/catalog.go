// Package phrases holds the spoken phrase pools and the recency-aware picker
// that chooses among them.
package phrases

import (
	_ "embed"
	"fmt"

	"github.com/koscakluka/ema-guide/core/language"
	"gopkg.in/yaml.v3"
)

type Pool string

const (
	Nudge             Pool = "nudge"
	Clarification     Pool = "clarification"
	QuestionWas       Pool = "question_was"
	Fallback          Pool = "fallback"
	ConfirmYes        Pool = "confirm_yes"
	ConfirmYesNervous Pool = "confirm_yes_nervous"
	ConfirmNo         Pool = "confirm_no"
	ConfirmNoNervous  Pool = "confirm_no_nervous"
	ConfirmDetail     Pool = "confirm_detail"
	ConfirmGeneric    Pool = "confirm_generic"
	Skipped           Pool = "skipped"
	LanguageSwitched  Pool = "language_switched"

	CommandGreeting      Pool = "command_greeting"
	CommandNervous       Pool = "command_nervous"
	CommandDuration      Pool = "command_duration"
	CommandExplain       Pool = "command_explain"
	CommandAccuracy      Pool = "command_accuracy"
	CommandPain          Pool = "command_pain"
	CommandPrivacy       Pool = "command_privacy"
	CommandReady         Pool = "command_ready"
	CommandRepeatNothing Pool = "command_repeat_nothing"
	CommandHelp          Pool = "command_help"
	CommandNext          Pool = "command_next"
	CommandThanks        Pool = "command_thanks"
	CommandWake          Pool = "command_wake"

	ErrorAudioCapture Pool = "error_audio_capture"
	ErrorPermission   Pool = "error_permission"
	ErrorNetwork      Pool = "error_network"
)

//go:embed phrases.yaml
var defaultCatalogYAML []byte

type Catalog map[Pool]map[language.Language][]string

// Default returns the built-in catalog. It panics if the embedded file is
// malformed, which is a build defect.
func Default() Catalog {
	catalog, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded phrase catalog: %v", err))
	}
	return catalog
}

func Parse(data []byte) (Catalog, error) {
	catalog := Catalog{}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse phrase catalog: %w", err)
	}

	for pool, byLanguage := range catalog {
		for _, lang := range []language.Language{language.English, language.Swahili} {
			if len(byLanguage[lang]) == 0 {
				return nil, fmt.Errorf("phrase pool %q has no %s entries", pool, lang)
			}
		}
	}
	return catalog, nil
}

// Lookup falls back to English when lang has no entries.
func (c Catalog) Lookup(pool Pool, lang language.Language) []string {
	byLanguage := c[pool]
	if phrases := byLanguage[lang]; len(phrases) > 0 {
		return phrases
	}
	return byLanguage[language.English]
}

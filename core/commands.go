package orchestration

import (
	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/phrases"
	"github.com/koscakluka/ema-guide/core/speechqueue"
	"github.com/koscakluka/ema-guide/core/utterance"
)

var (
	quietKeywords  = []string{"stop", "quiet", "pause", "silence", "acha", "nyamaza", "pumzika"}
	wakeKeywords   = []string{"hello", "hi", "hey", "jambo", "habari", "amka"}
	skipKeywords   = []string{"skip", "ruka"}
	repeatKeywords = []string{"repeat", "again", "rudia", "tena"}
)

// voiceCommand is a spoken command recognised outside of answers. The
// first command whose keywords match wins.
type voiceCommand struct {
	name     string
	keywords []string
	run      func(c *Controller)
	// keepsLanguage skips language detection for the turn.
	keepsLanguage bool
}

// voiceCommands is filled in init because the handlers reach back into
// handleCommandTurn, which reads the table.
var voiceCommands []voiceCommand

func init() {
	voiceCommands = []voiceCommand{
		{name: "quiet", keywords: quietKeywords, run: func(c *Controller) { c.enterQuiet(true) }, keepsLanguage: true},
		{name: "swahili", keywords: []string{"swahili", "kiswahili"}, run: func(c *Controller) { c.switchLanguage(language.Swahili) }, keepsLanguage: true},
		{name: "english", keywords: []string{"english", "kiingereza"}, run: func(c *Controller) { c.switchLanguage(language.English) }, keepsLanguage: true},
		{name: "greeting", keywords: []string{"hello", "hi", "hey", "jambo", "habari", "mambo"}, run: reply(phrases.CommandGreeting)},
		{name: "nervous", keywords: []string{"nervous", "scared", "worried", "afraid", "anxious", "hofu", "wasiwasi", "ogopa", "naogopa"}, run: reply(phrases.CommandNervous)},
		{name: "duration", keywords: []string{"how long", "duration", "muda gani"}, run: reply(phrases.CommandDuration)},
		{name: "explain", keywords: []string{"what happens", "explain", "process", "nini kitatokea", "eleza", "mchakato"}, run: reply(phrases.CommandExplain)},
		{name: "accuracy", keywords: []string{"accurate", "reliable", "trust", "sahihi", "aminifu", "aminika"}, run: reply(phrases.CommandAccuracy)},
		{name: "pain", keywords: []string{"pain", "hurt", "uncomfortable", "maumivu", "uumiza", "sio raha"}, run: reply(phrases.CommandPain)},
		{name: "privacy", keywords: []string{"privacy", "data", "secure", "faragha"}, run: reply(phrases.CommandPrivacy)},
		{name: "ready", keywords: []string{"ready", "start", "begin", "tayari", "anza"}, run: (*Controller).ready},
		{name: "repeat", keywords: repeatKeywords, run: (*Controller).repeatQuestion},
		{name: "help", keywords: []string{"help", "confused", "msaada", "taabu", "sielewi"}, run: reply(phrases.CommandHelp)},
		{name: "next", keywords: []string{"next", "continue", "ijayo", "endelea"}, run: (*Controller).next},
		{name: "thanks", keywords: []string{"thank you", "thanks", "asante", "shukrani"}, run: reply(phrases.CommandThanks)},
	}
}

func reply(pool phrases.Pool) func(c *Controller) {
	return func(c *Controller) {
		c.speakLogged(c.phrase(pool), speechqueue.PriorityNormal, kindCommand)
	}
}

// handleCommandTurn follows the user's language and runs the first matching
// voice command, or answers with a fallback.
func (c *Controller) handleCommandTurn(text string, tokens []string) {
	for _, command := range voiceCommands {
		if utterance.ContainsAny(tokens, command.keywords) {
			if !command.keepsLanguage {
				c.followLanguage(text, tokens)
			}
			logger.Debug("voice command", "command", command.name)
			command.run(c)
			return
		}
	}

	c.followLanguage(text, tokens)
	pool, ok := moodReplies[utterance.DetectMood(text)]
	if !ok {
		pool = phrases.Fallback
	}
	c.speakLogged(c.phrase(pool), speechqueue.PriorityNormal, kindCommand)
}

// moodReplies answers speech that matched no command by the mood it carries.
// Positive speech gets the generic fallback.
var moodReplies = map[utterance.Mood]phrases.Pool{
	utterance.MoodNervous:  phrases.CommandNervous,
	utterance.MoodConfused: phrases.CommandHelp,
	utterance.MoodGrateful: phrases.CommandThanks,
}

// followLanguage switches to Swahili as soon as the user speaks it. Going
// back to English needs a longer English sentence, so short loan words such
// as "ready" do not flip the session.
func (c *Controller) followLanguage(text string, tokens []string) {
	detected := language.Detect(text)
	if detected == c.session.Language {
		return
	}
	if detected == language.English && len(tokens) < minEnglishTokensToSwitch {
		return
	}
	c.setLanguage(detected, true)
}

const minEnglishTokensToSwitch = 3

func (c *Controller) switchLanguage(lang language.Language) {
	c.setLanguage(lang, false)
	c.speakLogged(c.phrase(phrases.LanguageSwitched), speechqueue.PriorityNormal, kindCommand)
}

// ready starts the session's scenario, or resumes it when it was
// interrupted.
func (c *Controller) ready() {
	if c.script != nil && !c.script.Done() {
		c.repeatQuestion()
		return
	}
	if c.session.ScenarioKey != "" {
		if err := c.startScript(c.session.ScenarioKey); err != nil {
			logger.Warn("failed to start script", "scenario", c.session.ScenarioKey, "error", err)
		}
		return
	}
	reply(phrases.CommandReady)(c)
}

func (c *Controller) next() {
	reply(phrases.CommandNext)(c)
	if c.script != nil && !c.script.Done() {
		c.repeatQuestion()
	}
}

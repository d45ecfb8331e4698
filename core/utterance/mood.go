package utterance

type Mood string

const (
	MoodNeutral  Mood = "neutral"
	MoodNervous  Mood = "nervous"
	MoodPositive Mood = "positive"
	MoodConfused Mood = "confused"
	MoodGrateful Mood = "grateful"
)

func DetectMood(text string) Mood {
	tokens := Tokenize(text)
	for _, mood := range moodOrder {
		if ContainsAny(tokens, moodKeywords[mood]) {
			return mood
		}
	}
	return MoodNeutral
}

// IsNervous is the keyword check used to soften confirmations and closings.
func IsNervous(text string) bool {
	return ContainsAny(Tokenize(text), moodKeywords[MoodNervous])
}

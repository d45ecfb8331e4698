package orchestration

import "time"

const (
	// NoAnswerTimeout is how long a freshly asked question waits for an
	// answer before the guide nudges.
	NoAnswerTimeout = 10 * time.Second
	// ClarificationTimeout replaces NoAnswerTimeout after a clarification or
	// a nudge.
	ClarificationTimeout = 15 * time.Second

	// DuplicateWindow drops a transcript identical to the previous one.
	DuplicateWindow = time.Second
	// MinTranscriptLength is the shortest transcript, in characters, that is
	// acted upon. Shorter ones are ignored without feedback.
	MinTranscriptLength = 2

	AbortedRestartDelay         = time.Second
	NetworkRetryBackoff         = 2 * time.Second
	NetworkFailuresBeforeNotice = 3

	InterItemDelay = 100 * time.Millisecond

	// preferenceSaveTimeout bounds writes to the preference store.
	preferenceSaveTimeout = 2 * time.Second
)

package events

import (
	"testing"
	"time"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	at := time.Unix(100, 0)

	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "state changed", event: NewStateChanged("dormant", "active-idle", at), expected: KindStateChanged},
		{name: "language changed", event: NewLanguageChanged("sw", true, at), expected: KindLanguageChanged},
		{name: "speech queued", event: NewSpeechQueued("id", "hello", "say", "normal", at), expected: KindSpeechQueued},
		{name: "speech started", event: NewSpeechStarted("id", "hello", "say", at), expected: KindSpeechStarted},
		{name: "speech finished", event: NewSpeechFinished("id", "say", nil, at), expected: KindSpeechFinished},
		{name: "recognition armed", event: NewRecognitionArmed("en", at), expected: KindRecognitionArmed},
		{name: "recognition disarmed", event: NewRecognitionDisarmed(at), expected: KindRecognitionDisarmed},
		{name: "transcript received", event: NewTranscriptReceived("yes", "en", at), expected: KindTranscriptReceived},
		{name: "recognition failed", event: NewRecognitionFailed("network", nil, at), expected: KindRecognitionFailed},
		{name: "answer recorded", event: NewAnswerRecorded("symptoms", "yes", "yes", 0.8, at), expected: KindAnswerRecorded},
		{name: "script completed", event: NewScriptCompleted("eye-scan", 5, at), expected: KindScriptCompleted},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if !testCase.event.Timestamp().Equal(at) {
				t.Fatalf("expected timestamp %s, got %s", at, testCase.event.Timestamp())
			}
		})
	}
}

func TestNewBaseStampsCurrentTime(t *testing.T) {
	before := time.Now()
	base := NewBase(KindRecognitionArmed)

	if base.Timestamp().Before(before) {
		t.Fatalf("expected timestamp after %s, got %s", before, base.Timestamp())
	}
}

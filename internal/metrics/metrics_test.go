package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/koscakluka/ema-guide/core/events"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveTracksState(t *testing.T) {
	e := NewExporter()
	now := time.Now()

	assert.Equal(t, 1.0, testutil.ToFloat64(e.state.WithLabelValues("dormant")))

	e.Observe(events.NewStateChanged("dormant", "active-idle", now))
	e.Observe(events.NewStateChanged("active-idle", "speaking", now))

	assert.Equal(t, 0.0, testutil.ToFloat64(e.state.WithLabelValues("dormant")))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.state.WithLabelValues("active-idle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.state.WithLabelValues("speaking")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.transitions.WithLabelValues("active-idle", "speaking")))
}

func TestObserveCountsGuideActivity(t *testing.T) {
	e := NewExporter()
	now := time.Now()

	e.Observe(events.NewRecognitionArmed("en", now))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.recognitionArmed))
	e.Observe(events.NewRecognitionDisarmed(now))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.recognitionArmed))

	e.Observe(events.NewSpeechStarted("1", "hello", "welcome", now))
	e.Observe(events.NewSpeechFinished("1", "welcome", nil, now))
	e.Observe(events.NewSpeechFinished("2", "question", errors.New("cancelled"), now))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.speech.WithLabelValues("welcome")))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.speechFailures.WithLabelValues("welcome")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.speechFailures.WithLabelValues("question")))

	e.Observe(events.NewTranscriptReceived("yes", "en", now))
	e.Observe(events.NewRecognitionFailed("network", errors.New("offline"), now))
	e.Observe(events.NewAnswerRecorded("readability", "yes", "yes", 0.8, now))
	e.Observe(events.NewScriptCompleted("myopia", 2, now))
	e.Observe(events.NewLanguageChanged("sw", true, now))
	e.Observe(events.NewLanguageChanged("en", false, now))

	assert.Equal(t, 1.0, testutil.ToFloat64(e.transcripts))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.recognitionErrors.WithLabelValues("network")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.answers.WithLabelValues("yes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.scriptsCompleted.WithLabelValues("myopia")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.languageSwitches.WithLabelValues("sw", "detected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.languageSwitches.WithLabelValues("en", "command")))
}

func TestHandlerServesMetrics(t *testing.T) {
	e := NewExporter()
	e.Observe(events.NewAnswerRecorded("readability", "yes", "yes", 0.8, time.Now()))

	recorder := httptest.NewRecorder()
	e.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.True(t, strings.Contains(body, `ema_guide_answers_total{classification="yes"} 1`))
	assert.Contains(t, body, "ema_guide_answer_confidence_bucket")
}

func TestServeStopsWithContext(t *testing.T) {
	e := NewExporter()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Serve(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected Serve to return after cancel")
	}
}

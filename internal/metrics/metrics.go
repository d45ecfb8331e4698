// Package metrics exports guide events as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/koscakluka/ema-guide/core/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace         = "ema_guide"
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

var guideStates = []string{"dormant", "active-idle", "speaking", "awaiting-answer", "quiet"}

// Exporter turns controller events into metrics. Observe is safe to call
// from the controller's event observer.
type Exporter struct {
	registry *prometheus.Registry

	state             *prometheus.GaugeVec
	recognitionArmed  prometheus.Gauge
	transitions       *prometheus.CounterVec
	speech            *prometheus.CounterVec
	speechFailures    *prometheus.CounterVec
	transcripts       prometheus.Counter
	recognitionErrors *prometheus.CounterVec
	answers           *prometheus.CounterVec
	answerConfidence  prometheus.Histogram
	scriptsCompleted  *prometheus.CounterVec
	languageSwitches  *prometheus.CounterVec
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "state",
			Help: "1 for the current turn-taking state.",
		}, []string{"state"}),
		recognitionArmed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "recognition_armed",
			Help: "1 while the speech recognizer is listening.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "state_transitions_total",
			Help: "State transitions by source and target state.",
		}, []string{"from", "to"}),
		speech: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "speech_started_total",
			Help: "Utterances that started playing, by purpose.",
		}, []string{"purpose"}),
		speechFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "speech_failures_total",
			Help: "Utterances that failed or were cancelled, by purpose.",
		}, []string{"purpose"}),
		transcripts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "transcripts_total",
			Help: "Final transcripts handled by the guide.",
		}),
		recognitionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "recognition_errors_total",
			Help: "Recognizer failures by kind.",
		}, []string{"kind"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "answers_total",
			Help: "Recorded answers by classification.",
		}, []string{"classification"}),
		answerConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "answer_confidence",
			Help:    "Classifier confidence of recorded answers.",
			Buckets: []float64{0.2, 0.4, 0.6, 0.8, 1},
		}),
		scriptsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "scripts_completed_total",
			Help: "Scripts that reached their closing summary, by scenario.",
		}, []string{"scenario"}),
		languageSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "language_switches_total",
			Help: "Session language changes by target language and cause.",
		}, []string{"language", "cause"}),
	}

	e.registry.MustRegister(
		e.state, e.recognitionArmed, e.transitions, e.speech, e.speechFailures,
		e.transcripts, e.recognitionErrors, e.answers, e.answerConfidence,
		e.scriptsCompleted, e.languageSwitches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	e.setState("dormant")
	return e
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

func (e *Exporter) Observe(event events.Event) {
	switch event := event.(type) {
	case events.StateChanged:
		e.transitions.WithLabelValues(event.From, event.To).Inc()
		e.setState(event.To)
	case events.RecognitionArmed:
		e.recognitionArmed.Set(1)
	case events.RecognitionDisarmed:
		e.recognitionArmed.Set(0)
	case events.SpeechStarted:
		e.speech.WithLabelValues(event.Purpose).Inc()
	case events.SpeechFinished:
		if event.Err != nil {
			e.speechFailures.WithLabelValues(event.Purpose).Inc()
		}
	case events.TranscriptReceived:
		e.transcripts.Inc()
	case events.RecognitionFailed:
		e.recognitionErrors.WithLabelValues(event.ErrorKind).Inc()
	case events.AnswerRecorded:
		e.answers.WithLabelValues(event.Classification).Inc()
		e.answerConfidence.Observe(event.Confidence)
	case events.ScriptCompleted:
		e.scriptsCompleted.WithLabelValues(event.ScenarioKey).Inc()
	case events.LanguageChanged:
		cause := "command"
		if event.Detected {
			cause = "detected"
		}
		e.languageSwitches.WithLabelValues(event.Language, cause).Inc()
	}
}

func (e *Exporter) setState(current string) {
	for _, state := range guideStates {
		value := 0.0
		if state == current {
			value = 1
		}
		e.state.WithLabelValues(state).Set(value)
	}
}

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

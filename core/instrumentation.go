package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-guide/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

type instruments struct {
	answers           metric.Int64Counter
	nudges            metric.Int64Counter
	clarifications    metric.Int64Counter
	recognitionErrors metric.Int64Counter
}

func newInstruments() instruments {
	var i instruments
	var err error
	if i.answers, err = meter.Int64Counter("guide.answers", metric.WithDescription("Answers recorded")); err != nil {
		logger.Warn("failed to create answers counter", "error", err)
	}
	if i.nudges, err = meter.Int64Counter("guide.nudges", metric.WithDescription("No-answer nudges spoken")); err != nil {
		logger.Warn("failed to create nudges counter", "error", err)
	}
	if i.clarifications, err = meter.Int64Counter("guide.clarifications", metric.WithDescription("Clarifications requested")); err != nil {
		logger.Warn("failed to create clarifications counter", "error", err)
	}
	if i.recognitionErrors, err = meter.Int64Counter("guide.recognition.errors", metric.WithDescription("Recognizer failures by kind")); err != nil {
		logger.Warn("failed to create recognition errors counter", "error", err)
	}
	return i
}

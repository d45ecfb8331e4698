package orchestration

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-guide/core/events"
	"github.com/koscakluka/ema-guide/core/phrases"
	"github.com/koscakluka/ema-guide/core/script"
	"github.com/koscakluka/ema-guide/core/speechqueue"
	"github.com/koscakluka/ema-guide/core/speechtotext"
	"github.com/koscakluka/ema-guide/core/utterance"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

func (c *Controller) onTranscript(generation uint64, transcript speechtotext.Transcript) {
	c.runtime.post("transcript", func() { c.handleTranscript(generation, transcript) })
}

func (c *Controller) onRecognitionError(generation uint64, err error) {
	c.runtime.post("recognition error", func() {
		if c.recognition.isCurrent(generation) {
			c.recognitionFailed(err)
		}
	})
}

func (c *Controller) handleTranscript(generation uint64, transcript speechtotext.Transcript) {
	if !c.recognition.isCurrent(generation) || !transcript.IsFinal {
		return
	}
	c.recognition.networkFailures = 0

	text := strings.TrimSpace(transcript.Text)
	if utf8.RuneCountInString(text) < MinTranscriptLength {
		return
	}

	normalized := strings.ToLower(text)
	now := c.clock.Now()
	if normalized == c.lastTranscript && now.Sub(c.lastTranscriptAt) < DuplicateWindow {
		logger.Debug("dropping duplicate transcript", "transcript", text)
		return
	}
	c.lastTranscript, c.lastTranscriptAt = normalized, now

	_, span := tracer.Start(c.ctx, "handle transcript")
	defer span.End()
	span.SetAttributes(
		attribute.String("guide.state", c.state.String()),
		attribute.Int("transcript.length", len(text)),
	)
	c.emitter.emit(events.NewTranscriptReceived(text, c.session.Language.String(), now))

	tokens := utterance.Tokenize(text)
	switch c.state {
	case StateQuiet:
		if utterance.ContainsAny(tokens, wakeKeywords) {
			span.AddEvent("wake phrase")
			c.wake()
		}
	case StateAwaitingAnswer:
		span.AddEvent("answer turn", trace.WithAttributes(attribute.Int("tokens", len(tokens))))
		c.handleAnswerTurn(text, tokens)
	case StateActiveIdle:
		span.AddEvent("command turn", trace.WithAttributes(attribute.Int("tokens", len(tokens))))
		c.handleCommandTurn(text, tokens)
	}
}

func (c *Controller) handleAnswerTurn(text string, tokens []string) {
	switch {
	case utterance.ContainsAny(tokens, quietKeywords):
		c.enterQuiet(true)
	case utterance.ContainsAny(tokens, skipKeywords):
		c.skipQuestion()
	case utterance.ContainsAny(tokens, repeatKeywords):
		c.repeatQuestion()
	case c.script == nil || c.script.Done():
		c.handleCommandTurn(text, tokens)
	default:
		c.handleAnswer(text)
	}
}

func (c *Controller) handleAnswer(text string) {
	question, _ := c.script.Current()
	result := utterance.Classify(text, c.session.Language)

	if result.Classification == utterance.Unclear || !result.Understood() {
		c.clarify(question)
		return
	}

	c.noAnswer.Cancel()
	c.nervous = c.nervous || utterance.IsNervous(text)
	confirmation := c.script.Confirmation(result, c.nervous)

	answer := script.Answer{
		ID:             uuid.NewString(),
		QuestionKey:    question.Key,
		RawTranscript:  text,
		Classification: result.Classification,
		Confidence:     result.Confidence,
		Timestamp:      c.clock.Now(),
	}
	c.script.Record(answer)
	c.notifyAnswer(answer)
	c.emitter.emit(events.NewAnswerRecorded(answer.QuestionKey, answer.RawTranscript, string(answer.Classification), answer.Confidence, answer.Timestamp))
	c.metrics.answers.Add(c.ctx, 1, metric.WithAttributes(attribute.String("classification", string(answer.Classification))))
	logger.Info("answer recorded", "question", answer.QuestionKey, "classification", string(answer.Classification), "confidence", answer.Confidence)

	c.answerTimeout = NoAnswerTimeout
	c.speakLogged(confirmation, speechqueue.PriorityNormal, kindConfirmation)
	if followUp, ok := c.script.FollowUp(result, question.Key); ok {
		logger.Debug("follow-up inserted", "question", followUp.Key)
	}
	c.askNext()
}

// askNext moves the script on and asks the next question, or closes the
// script when none is left.
func (c *Controller) askNext() {
	if c.script.Advance() {
		kind := kindQuestion
		if question, _ := c.script.Current(); question.Transient {
			kind = kindFollowUp
		}
		c.speakLogged(c.script.Prompt(), speechqueue.PriorityNormal, kind)
		c.awaitingQuestion = true
		return
	}

	c.awaitingQuestion = false
	answers := c.script.Answers()
	c.speakLogged(c.script.ClosingSummary(answers), speechqueue.PriorityNormal, kindClosing)
	c.emitter.emit(events.NewScriptCompleted(c.script.ScenarioKey(), len(answers), c.clock.Now()))
	logger.Info("script completed", "scenario", c.script.ScenarioKey(), "answers", len(answers))
}

func (c *Controller) clarify(question script.Question) {
	c.noAnswer.Cancel()
	c.metrics.clarifications.Add(c.ctx, 1)

	parts := []string{c.phrase(phrases.Clarification), c.phrase(phrases.QuestionWas), question.Prompts.Text(c.session.Language)}
	c.answerTimeout = ClarificationTimeout
	c.speakLogged(strings.Join(nonEmpty(parts), " "), speechqueue.PriorityHigh, kindClarification)
}

func (c *Controller) skipQuestion() {
	if c.script == nil || c.script.Done() {
		c.speakLogged(c.phrase(phrases.CommandRepeatNothing), speechqueue.PriorityNormal, kindCommand)
		return
	}

	c.noAnswer.Cancel()
	c.answerTimeout = NoAnswerTimeout
	c.speakLogged(c.phrase(phrases.Skipped), speechqueue.PriorityNormal, kindCommand)
	c.askNext()
}

// repeatQuestion asks the current question again. It also resumes a script
// that was interrupted by quiet mode.
func (c *Controller) repeatQuestion() {
	if c.script == nil || c.script.Done() {
		c.speakLogged(c.phrase(phrases.CommandRepeatNothing), speechqueue.PriorityNormal, kindCommand)
		return
	}

	c.noAnswer.Cancel()
	kind := kindQuestion
	if question, _ := c.script.Current(); question.Transient {
		kind = kindFollowUp
	}
	c.speakLogged(c.script.Prompt(), speechqueue.PriorityHigh, kind)
	c.awaitingQuestion = true
}

func (c *Controller) recognitionFailed(err error) {
	kind := speechtotext.KindOf(err)
	c.metrics.recognitionErrors.Add(c.ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	c.emitter.emit(events.NewRecognitionFailed(string(kind), err, c.clock.Now()))

	switch kind {
	case speechtotext.ErrorNoSpeech:
		return
	case speechtotext.ErrorNetwork:
		c.recognition.networkFailures++
		c.recognition.logNetworkFailure(err)
		c.stopRecognition()
		c.scheduleRestart(NetworkRetryBackoff)
		if c.recognition.networkFailures == NetworkFailuresBeforeNotice {
			c.speakLogged(c.phrase(phrases.ErrorNetwork), speechqueue.PriorityHigh, kindError)
		}
	case speechtotext.ErrorAudioCapture, speechtotext.ErrorPermissionDenied:
		logger.Error("recognition blocked until the next activation", "kind", string(kind), "error", err)
		c.noAnswer.Cancel()
		c.stopRecognition()
		c.recognition.blocked = true
		pool := phrases.ErrorAudioCapture
		if kind == speechtotext.ErrorPermissionDenied {
			pool = phrases.ErrorPermission
		}
		c.speakLogged(c.phrase(pool), speechqueue.PriorityHigh, kindError)
	case speechtotext.ErrorAborted:
		c.stopRecognition()
		if c.state == StateAwaitingAnswer {
			c.scheduleRestart(AbortedRestartDelay)
		}
	default:
		logger.Warn("recognizer failed", "kind", string(kind), "error", err)
		c.stopRecognition()
		c.scheduleRestart(NetworkRetryBackoff)
	}
}

// scheduleRestart keeps recognition disarmed for delay.
func (c *Controller) scheduleRestart(delay time.Duration) {
	c.recognition.restartPending = true
	c.restart.Start(delay, func(generation uint64) {
		c.runtime.post("restart recognition", func() {
			if !c.restart.Consume(generation) {
				return
			}
			c.recognition.restartPending = false
			c.reconcile()
		})
	})
}

func nonEmpty(parts []string) []string {
	kept := parts[:0:0]
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, part)
		}
	}
	return kept
}

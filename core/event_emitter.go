package orchestration

import (
	"fmt"

	"github.com/koscakluka/ema-guide/core/events"
	"github.com/koscakluka/ema-guide/core/script"
)

type eventEmitter struct {
	observers []func(events.Event)
}

// emit runs every observer in registration order. A panicking observer is
// logged and skipped.
func (e *eventEmitter) emit(event events.Event) {
	for _, observer := range e.observers {
		func() {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.Error("event observer panicked", "event", string(event.Kind()), "panic", fmt.Sprint(recovered))
				}
			}()
			observer(event)
		}()
	}
}

type AnswerHandler func(script.Answer)

// notifyAnswer calls the handlers registered for the answer's question
// first, then the catch-all handlers.
func (c *Controller) notifyAnswer(answer script.Answer) {
	handlers := append(append([]AnswerHandler{}, c.answerHandlers[answer.QuestionKey]...), c.answerHandlers[""]...)
	for _, handler := range handlers {
		func() {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.Error("answer handler panicked", "question", answer.QuestionKey, "panic", fmt.Sprint(recovered))
				}
			}()
			handler(answer)
		}()
	}
}

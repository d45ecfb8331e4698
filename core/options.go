package orchestration

import (
	"time"

	"github.com/koscakluka/ema-guide/core/events"
	"github.com/koscakluka/ema-guide/core/phrases"
	"github.com/koscakluka/ema-guide/core/prefs"
	"github.com/koscakluka/ema-guide/core/registry"
	"github.com/koscakluka/ema-guide/core/script"
	"github.com/koscakluka/ema-guide/core/speechqueue"
	"github.com/koscakluka/ema-guide/core/speechtotext"
	"github.com/koscakluka/ema-guide/core/timer"
	"github.com/koscakluka/ema-guide/core/vad"
	"golang.org/x/time/rate"
)

type ControllerOption func(*Controller)

func WithRecognizer(recognizer speechtotext.Recognizer) ControllerOption {
	return func(c *Controller) { c.recognition.set(recognizer) }
}

// WithSynthesizer sets what the speech queue speaks through.
func WithSynthesizer(synthesizer speechqueue.Synthesizer) ControllerOption {
	return func(c *Controller) { c.synthesizer = synthesizer }
}

func WithInterItemDelay(delay time.Duration) ControllerOption {
	return func(c *Controller) { c.interItemDelay = delay }
}

// WithClock replaces the wall clock used by every controller timer.
func WithClock(clock timer.Clock) ControllerOption {
	return func(c *Controller) { c.clock = clock }
}

// WithRegistry injects the single-instance registry. The process wide one
// is used otherwise.
func WithRegistry(r *registry.Registry) ControllerOption {
	return func(c *Controller) { c.registry = r }
}

func WithPreferences(store *prefs.Store) ControllerOption {
	return func(c *Controller) { c.preferences = store }
}

func WithLibrary(library *script.Library) ControllerOption {
	return func(c *Controller) { c.library = library }
}

func WithCatalog(catalog phrases.Catalog) ControllerOption {
	return func(c *Controller) { c.catalog = catalog }
}

// WithPhraseSeed makes phrase selection deterministic.
func WithPhraseSeed(seed uint64) ControllerOption {
	return func(c *Controller) { c.picker = phrases.NewPicker(seed, phrases.DefaultMemory) }
}

// WithEventObserver registers an observer for controller events. Observers
// run on the controller goroutine and must not call back into it.
func WithEventObserver(observer func(events.Event)) ControllerOption {
	return func(c *Controller) {
		if observer != nil {
			c.emitter.observers = append(c.emitter.observers, observer)
		}
	}
}

// WithVoiceActivityParams configures the detector fed by HandleAudio.
func WithVoiceActivityParams(params vad.Params) ControllerOption {
	return func(c *Controller) { c.vadParams = &params }
}

// WithRecognitionLogLimit caps how often network recognition failures are
// logged.
func WithRecognitionLogLimit(limit rate.Limit, burst int) ControllerOption {
	return func(c *Controller) { c.recognition.logLimiter = rate.NewLimiter(limit, burst) }
}

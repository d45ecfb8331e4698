// Package orchestration is the turn-taking controller of the guide. It owns
// the conversation state, decides when the recognizer listens, feeds the
// speech queue and drives the dialogue script from classified answers.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-guide/core/events"
	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/phrases"
	"github.com/koscakluka/ema-guide/core/prefs"
	"github.com/koscakluka/ema-guide/core/registry"
	"github.com/koscakluka/ema-guide/core/script"
	"github.com/koscakluka/ema-guide/core/speechqueue"
	"github.com/koscakluka/ema-guide/core/timer"
	"github.com/koscakluka/ema-guide/core/vad"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var (
	ErrNotActive   = errors.New("guide is not active")
	ErrQuietMode   = errors.New("guide is in quiet mode")
	ErrNoScenario  = errors.New("no scenario selected")
	ErrEmptySpeech = errors.New("nothing to say")
	ErrSuperseded  = errors.New("guide was superseded by a newer activation")
)

type Controller struct {
	clock          timer.Clock
	registry       *registry.Registry
	preferences    *prefs.Store
	library        *script.Library
	catalog        phrases.Catalog
	picker         *phrases.Picker
	synthesizer    speechqueue.Synthesizer
	interItemDelay time.Duration
	vadParams      *vad.Params

	runtime     *conversationRuntime
	speech      *speechOutput
	recognition *recognition
	detector    *vad.Detector
	emitter     eventEmitter
	metrics     instruments

	audioErrors     atomic.Int64
	audioLogLimiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	// Everything below is owned by the controller goroutine.
	state          State
	session        Session
	script         *script.Session
	registrationID string

	ownSpeech     map[string]speechqueue.Request
	currentSpeech string

	awaitingQuestion  bool
	answerTimeout     time.Duration
	nervous           bool
	wakeScanRequested bool
	noAnswer          *timer.Timer
	restart           *timer.Timer

	lastTranscript   string
	lastTranscriptAt time.Time

	answerHandlers map[string][]AnswerHandler

	snapshotMu sync.RWMutex
	snapshot   controllerSnapshot

	closeOnce sync.Once
}

type controllerSnapshot struct {
	state   State
	session Session
	answers []script.Answer
	armed   bool
}

func NewController(opts ...ControllerOption) (*Controller, error) {
	c := &Controller{
		clock:           timer.RealClock(),
		library:         script.Default(),
		catalog:         phrases.Default(),
		interItemDelay:  InterItemDelay,
		recognition:     newRecognition(),
		audioLogLimiter: rate.NewLimiter(rate.Every(10*time.Second), 1),
		session:         Session{Mode: ModeGeneral, Language: language.Default},
		ownSpeech:       map[string]speechqueue.Request{},
		answerTimeout:   NoAnswerTimeout,
		answerHandlers:  map[string][]AnswerHandler{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.registry == nil {
		c.registry = registry.Global()
	}
	if c.preferences == nil {
		c.preferences = prefs.NewStore(prefs.NewMemory())
	}
	if c.picker == nil {
		c.picker = phrases.NewPicker(uint64(time.Now().UnixNano()), phrases.DefaultMemory)
	}

	params := vad.DefaultParams()
	if c.vadParams != nil {
		params = *c.vadParams
	}
	detector, err := vad.NewDetector(params,
		vad.WithVoiceDetectedCallback(c.OnVoiceDetected),
		vad.WithSilenceCallback(c.OnSilence),
		vad.WithClock(c.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid voice activity parameters: %w", err)
	}
	c.detector = detector

	c.noAnswer = timer.New("no-answer", c.clock)
	c.restart = timer.New("recognition-restart", c.clock)
	c.metrics = newInstruments()
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.runtime = newConversationRuntime()
	c.runtime.onCommandDone = c.publishSnapshot
	c.speech = newSpeechOutput(c.synthesizer, c.interItemDelay, c.onSpeechStarted, c.onSpeechFinished)

	c.publishSnapshot()
	c.runtime.start()
	c.speech.start(c.ctx)
	return c, nil
}

// Activate starts a session for scenarioKey, which may be empty for general
// use. An empty lang selects the stored language preference. A controller
// registered elsewhere is deactivated before Activate returns.
func (c *Controller) Activate(ctx context.Context, scenarioKey string, lang language.Language) (err error) {
	ctx, span := tracer.Start(ctx, "activate guide")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "activation failed")
		}
	}()
	span.SetAttributes(attribute.String("guide.scenario", scenarioKey))

	mode := ModeGeneral
	if scenarioKey != "" {
		scenario, err := c.library.Scenario(scenarioKey)
		if err != nil {
			return err
		}
		if scenario.Mode != "" {
			mode = Mode(scenario.Mode)
		}
	}
	if lang != "" && !lang.IsValid() {
		return fmt.Errorf("unsupported language %q", lang)
	}

	stored, err := c.preferences.Load(ctx)
	if err != nil {
		logger.Warn("failed to load preferences, using defaults", "error", err)
		stored = prefs.Defaults()
	}
	if lang == "" {
		lang = stored.Language
	}
	lang = lang.OrDefault()

	id, err := c.registry.Register(ctx, c)
	if id == "" {
		return fmt.Errorf("failed to register guide: %w", err)
	}
	if err != nil {
		logger.Warn("previous guide did not stand down cleanly", "error", err)
	}

	superseded := false
	err = c.runtime.call("activate", func() {
		// Another activation may have registered while this one waited.
		if live, _ := c.registry.Active(); live != id {
			superseded = true
			return
		}
		c.activate(id, mode, scenarioKey, lang, stored.Quiet)
	})
	if err != nil {
		return err
	}
	if superseded {
		return ErrSuperseded
	}
	return nil
}

func (c *Controller) activate(id string, mode Mode, scenarioKey string, lang language.Language, quiet bool) {
	if c.state != StateDormant {
		c.reset()
	}

	c.registrationID = id
	c.recognition.blocked = false
	c.recognition.networkFailures = 0
	c.session = Session{Mode: mode, Language: lang, Active: true, ScenarioKey: scenarioKey}
	c.script = nil
	c.nervous = false
	c.lastTranscript = ""
	c.setState(StateActiveIdle)
	logger.Info("guide activated", "scenario", scenarioKey, "language", lang.String(), "mode", string(mode))

	if quiet {
		c.enterQuiet(false)
		return
	}
	c.reconcile()
}

// Deactivate ends the session. It is a no-op on a dormant controller.
func (c *Controller) Deactivate(ctx context.Context) error {
	_, span := tracer.Start(ctx, "deactivate guide")
	defer span.End()

	var id string
	if err := c.runtime.call("deactivate", func() { id = c.deactivate() }); err != nil {
		if errors.Is(err, ErrClosed) {
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "deactivation failed")
		return err
	}
	if id != "" {
		c.registry.Unregister(id)
	}
	return nil
}

func (c *Controller) deactivate() string {
	if c.state == StateDormant {
		return ""
	}

	c.reset()
	c.session.Active = false
	c.setState(StateDormant)
	logger.Info("guide deactivated", "scenario", c.session.ScenarioKey)

	id := c.registrationID
	c.registrationID = ""
	return id
}

// reset cancels everything the current activation started.
func (c *Controller) reset() {
	c.noAnswer.Cancel()
	c.restart.Cancel()
	c.recognition.restartPending = false
	c.speech.cancelAll()
	c.stopRecognition()
	c.ownSpeech = map[string]speechqueue.Request{}
	c.currentSpeech = ""
	c.awaitingQuestion = false
	c.answerTimeout = NoAnswerTimeout
	c.wakeScanRequested = false
}

// Say speaks text ahead of normal speech. Priority defaults to high. The
// returned ID identifies the request in speech events.
func (c *Controller) Say(text string, priority ...speechqueue.Priority) (string, error) {
	p := speechqueue.PriorityHigh
	if len(priority) > 0 {
		p = priority[0]
	}
	return c.enqueueSpeech("say", text, p)
}

// QueueSpeech speaks text after everything already queued. Priority
// defaults to normal.
func (c *Controller) QueueSpeech(text string, priority ...speechqueue.Priority) (string, error) {
	p := speechqueue.PriorityNormal
	if len(priority) > 0 {
		p = priority[0]
	}
	return c.enqueueSpeech("queue speech", text, p)
}

func (c *Controller) enqueueSpeech(name string, text string, priority speechqueue.Priority) (id string, err error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptySpeech
	}

	callErr := c.runtime.call(name, func() {
		switch c.state {
		case StateDormant:
			err = ErrNotActive
			return
		case StateQuiet:
			err = ErrQuietMode
			return
		}
		id, err = c.speak(text, priority, kindSpeech)
	})
	if callErr != nil {
		return "", callErr
	}
	return id, err
}

// StartScript asks the first question of scenarioKey, or of the scenario
// the session was activated with when scenarioKey is empty.
func (c *Controller) StartScript(scenarioKey string) error {
	var err error
	if callErr := c.runtime.call("start script", func() { err = c.startScript(scenarioKey) }); callErr != nil {
		return callErr
	}
	return err
}

func (c *Controller) startScript(scenarioKey string) error {
	switch c.state {
	case StateDormant:
		return ErrNotActive
	case StateQuiet:
		return ErrQuietMode
	}
	if scenarioKey == "" {
		scenarioKey = c.session.ScenarioKey
	}
	if scenarioKey == "" {
		return ErrNoScenario
	}

	session, err := c.library.NewSession(scenarioKey, c.session.Language,
		script.WithPicker(c.picker),
		script.WithCatalog(c.catalog),
	)
	if err != nil {
		return err
	}
	if scenario, err := c.library.Scenario(scenarioKey); err == nil && scenario.Mode != "" {
		c.session.Mode = Mode(scenario.Mode)
	}

	c.noAnswer.Cancel()
	c.session.ScenarioKey = scenarioKey
	c.script = session
	c.nervous = false
	c.answerTimeout = NoAnswerTimeout

	if welcome := session.Welcome(); welcome != "" {
		c.speakLogged(welcome, speechqueue.PriorityNormal, kindWelcome)
	}
	c.speakLogged(session.Prompt(), speechqueue.PriorityNormal, kindQuestion)
	c.awaitingQuestion = true
	logger.Info("script started", "scenario", scenarioKey, "questions", session.Total())
	return nil
}

// OnAnswer registers handler for answers to questionKey, or to every
// question when questionKey is empty. Handlers run on the controller
// goroutine and must not call back into the controller.
func (c *Controller) OnAnswer(questionKey string, handler AnswerHandler) error {
	if handler == nil {
		return errors.New("nil answer handler")
	}
	return c.runtime.call("register answer handler", func() {
		c.answerHandlers[questionKey] = append(c.answerHandlers[questionKey], handler)
	})
}

func (c *Controller) State() State {
	c.snapshotMu.RLock()
	defer c.snapshotMu.RUnlock()
	return c.snapshot.state
}

func (c *Controller) Session() Session {
	c.snapshotMu.RLock()
	defer c.snapshotMu.RUnlock()
	return c.snapshot.session
}

// Answers returns the answers recorded by the current script, in order.
func (c *Controller) Answers() []script.Answer {
	c.snapshotMu.RLock()
	defer c.snapshotMu.RUnlock()
	return append([]script.Answer(nil), c.snapshot.answers...)
}

// Script returns a detached copy of the running script. ok is false when no
// script was started.
func (c *Controller) Script() (snapshot script.Snapshot, ok bool) {
	_ = c.runtime.call("snapshot script", func() {
		if c.script == nil {
			return
		}
		copied, err := c.script.Snapshot()
		if err != nil {
			logger.Warn("failed to snapshot script", "error", err)
			return
		}
		snapshot, ok = copied, true
	})
	return snapshot, ok
}

// IsRecognitionArmed reports whether the recognizer listens for commands
// and answers. A quiet mode wake phrase scan does not count.
func (c *Controller) IsRecognitionArmed() bool {
	c.snapshotMu.RLock()
	defer c.snapshotMu.RUnlock()
	return c.snapshot.armed
}

// Close deactivates the controller and stops its goroutines. A closed
// controller cannot be activated again.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		var id string
		_ = c.runtime.call("close", func() { id = c.deactivate() })
		c.runtime.end()
		c.runtime.waitUntilEnded()

		c.speech.close()
		c.noAnswer.Cancel()
		c.restart.Cancel()
		c.cancel()
		if id != "" {
			c.registry.Unregister(id)
		}
	})
	return nil
}

func (c *Controller) publishSnapshot() {
	var answers []script.Answer
	if c.script != nil {
		answers = c.script.Answers()
	}

	c.snapshotMu.Lock()
	c.snapshot = controllerSnapshot{
		state:   c.state,
		session: c.session,
		answers: answers,
		armed:   c.recognition.armed && !c.recognition.wakeScan,
	}
	c.snapshotMu.Unlock()
}

func (c *Controller) setState(to State) {
	if c.state == to {
		return
	}
	from := c.state
	c.state = to
	logger.Debug("guide state changed", "from", from.String(), "to", to.String())
	c.emitter.emit(events.NewStateChanged(from.String(), to.String(), c.clock.Now()))
}

// reconcile arms or disarms the recognizer to match the current state. It
// runs after every transition and on every voice activity event.
func (c *Controller) reconcile() {
	wakeScan := c.state == StateQuiet && c.wakeScanRequested
	want := (c.state.listens() || wakeScan) &&
		!c.speech.busy() &&
		!c.recognition.blocked &&
		!c.recognition.restartPending

	switch {
	case want && c.recognition.armed &&
		c.recognition.wakeScan == wakeScan &&
		c.recognition.lang == c.session.Language:
	case want:
		c.stopRecognition()
		c.startRecognition(wakeScan)
	default:
		c.stopRecognition()
	}
}

func (c *Controller) startRecognition(wakeScan bool) {
	if _, err := c.recognition.start(c.ctx, c.session.Language, c.onTranscript, c.onRecognitionError); err != nil {
		c.recognitionFailed(err)
		return
	}
	c.recognition.wakeScan = wakeScan
	c.emitter.emit(events.NewRecognitionArmed(c.session.Language.String(), c.clock.Now()))
}

func (c *Controller) stopRecognition() {
	wasArmed := c.recognition.armed
	if err := c.recognition.stop(); err != nil {
		logger.Warn("failed to stop recognizer", "error", err)
	}
	if wasArmed {
		c.emitter.emit(events.NewRecognitionDisarmed(c.clock.Now()))
	}
}

// speak queues text in the session language and tracks it as speech of
// this activation.
func (c *Controller) speak(text string, priority speechqueue.Priority, kind string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptySpeech
	}

	request := speechqueue.Request{
		ID:         uuid.NewString(),
		Text:       text,
		Language:   c.session.Language,
		Priority:   priority,
		Kind:       kind,
		EnqueuedAt: c.clock.Now(),
	}
	c.ownSpeech[request.ID] = request
	if _, err := c.speech.enqueue(request); err != nil {
		delete(c.ownSpeech, request.ID)
		return "", fmt.Errorf("failed to queue speech: %w", err)
	}

	c.emitter.emit(events.NewSpeechQueued(request.ID, request.Text, request.Kind, request.Priority.String(), request.EnqueuedAt))
	c.reconcile()
	return request.ID, nil
}

func (c *Controller) speakLogged(text string, priority speechqueue.Priority, kind string) {
	if _, err := c.speak(text, priority, kind); err != nil {
		logger.Warn("failed to speak", "kind", kind, "error", err)
	}
}

func (c *Controller) phrase(pool phrases.Pool) string {
	return c.picker.Pick(c.catalog.Lookup(pool, c.session.Language))
}

// onSpeechStarted runs on the queue goroutine and blocks until the
// controller has disarmed recognition.
func (c *Controller) onSpeechStarted(request speechqueue.Request) {
	_ = c.runtime.call("speech started", func() { c.speechStarted(request) })
}

func (c *Controller) speechStarted(request speechqueue.Request) {
	if _, ok := c.ownSpeech[request.ID]; !ok || c.state == StateDormant || c.state == StateQuiet {
		return
	}

	c.currentSpeech = request.ID
	c.noAnswer.Cancel()
	c.setState(StateSpeaking)
	c.reconcile()
	c.emitter.emit(events.NewSpeechStarted(request.ID, request.Text, request.Kind, c.clock.Now()))
}

func (c *Controller) onSpeechFinished(request speechqueue.Request, err error) {
	c.runtime.post("speech finished", func() { c.speechFinished(request, err) })
}

func (c *Controller) speechFinished(request speechqueue.Request, err error) {
	if _, ok := c.ownSpeech[request.ID]; ok {
		delete(c.ownSpeech, request.ID)
		c.emitter.emit(events.NewSpeechFinished(request.ID, request.Kind, err, c.clock.Now()))
	}

	if c.state == StateDormant || c.state == StateQuiet || request.ID != c.currentSpeech {
		// Speech left over from before a reset kept recognition disarmed.
		if c.state != StateDormant && !c.speech.busy() {
			c.reconcile()
		}
		return
	}
	c.currentSpeech = ""
	if c.speech.busy() {
		return
	}

	if c.awaitingQuestion {
		c.setState(StateAwaitingAnswer)
		c.startNoAnswerTimer()
	} else {
		c.setState(StateActiveIdle)
	}
	c.reconcile()
}

func (c *Controller) startNoAnswerTimer() {
	if c.recognition.blocked {
		return
	}
	c.noAnswer.Start(c.answerTimeout, func(generation uint64) {
		c.runtime.post("no answer", func() { c.noAnswerElapsed(generation) })
	})
}

func (c *Controller) noAnswerElapsed(generation uint64) {
	if !c.noAnswer.Consume(generation) || c.state != StateAwaitingAnswer {
		return
	}

	c.metrics.nudges.Add(c.ctx, 1)
	c.answerTimeout = ClarificationTimeout
	c.speakLogged(c.phrase(phrases.Nudge), speechqueue.PriorityHigh, kindNudge)
}

// enterQuiet silences the guide. persist is false when the quiet flag was
// restored from preferences.
func (c *Controller) enterQuiet(persist bool) {
	c.reset()
	c.session.Quiet = true
	c.setState(StateQuiet)
	c.reconcile()
	logger.Info("guide entered quiet mode")

	if persist {
		c.savePreferences("quiet", func(ctx context.Context) error { return c.preferences.SaveQuiet(ctx, true) })
	}
}

func (c *Controller) wake() {
	c.wakeScanRequested = false
	c.session.Quiet = false
	c.setState(StateActiveIdle)
	c.savePreferences("quiet", func(ctx context.Context) error { return c.preferences.SaveQuiet(ctx, false) })
	c.speakLogged(c.phrase(phrases.CommandWake), speechqueue.PriorityHigh, kindCommand)
	c.reconcile()
	logger.Info("guide woke up")
}

func (c *Controller) setLanguage(lang language.Language, detected bool) bool {
	lang = lang.OrDefault()
	if lang == c.session.Language {
		return false
	}

	c.session.Language = lang
	if c.script != nil {
		c.script.SetLanguage(lang)
	}
	c.emitter.emit(events.NewLanguageChanged(lang.String(), detected, c.clock.Now()))
	c.savePreferences("language", func(ctx context.Context) error { return c.preferences.SaveLanguage(ctx, lang) })
	c.reconcile()
	return true
}

func (c *Controller) savePreferences(name string, save func(context.Context) error) {
	ctx, cancel := context.WithTimeout(c.ctx, preferenceSaveTimeout)
	defer cancel()
	if err := save(ctx); err != nil {
		logger.Warn("failed to save preference", "preference", name, "error", err)
	}
}

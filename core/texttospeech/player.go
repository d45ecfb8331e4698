// Package texttospeech turns queued speech requests into audible output.
//
// A [Generator] streams PCM for one utterance from a provider. A [Player]
// pushes that audio to an [AudioOutput] and blocks until it has been played,
// which is what lets the speech queue report an utterance as finished only
// once the user actually heard it.
package texttospeech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/koscakluka/ema-guide/core/language"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Generator produces speech audio for text. Generate returns once the
// provider delivered every chunk or failed.
type Generator interface {
	Generate(ctx context.Context, text string, lang language.Language, onAudio func([]byte)) error
}

type GeneratorFunc func(ctx context.Context, text string, lang language.Language, onAudio func([]byte)) error

func (f GeneratorFunc) Generate(ctx context.Context, text string, lang language.Language, onAudio func([]byte)) error {
	return f(ctx, text, lang, onAudio)
}

// AudioOutput plays PCM. AwaitMark blocks until everything sent so far has
// been played or the buffer was cleared.
type AudioOutput interface {
	SendAudio(audio []byte) error
	ClearBuffer()
	AwaitMark() error
}

type Player struct {
	generator Generator
	output    AudioOutput

	mu sync.Mutex
}

func NewPlayer(generator Generator, output AudioOutput) *Player {
	return &Player{generator: generator, output: output}
}

// Synthesize generates text and blocks until it has been played. Cancelling
// ctx clears whatever is still buffered in the output.
func (p *Player) Synthesize(ctx context.Context, text string, lang language.Language) (err error) {
	ctx, span := tracer.Start(ctx, "play speech")
	defer span.End()
	span.SetAttributes(
		attribute.String("speech.language", lang.String()),
		attribute.Int("speech.length", len(text)),
	)
	defer func() {
		if err != nil && !errors.Is(err, context.Canceled) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "speech playback failed")
		}
	}()

	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if p == nil || p.generator == nil || p.output == nil {
		return fmt.Errorf("player not configured")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var sendErr error
	var chunks int
	generateErr := p.generator.Generate(ctx, text, lang, func(chunk []byte) {
		if sendErr != nil || len(chunk) == 0 {
			return
		}
		if err := p.output.SendAudio(chunk); err != nil {
			sendErr = fmt.Errorf("%w: %w", ErrOutputRejected, err)
			return
		}
		chunks++
	})
	span.SetAttributes(attribute.Int("speech.chunks", chunks))

	if ctx.Err() != nil {
		p.output.ClearBuffer()
		return ctx.Err()
	}
	if err := errors.Join(generateErr, sendErr); err != nil {
		p.output.ClearBuffer()
		return err
	}

	played := make(chan error, 1)
	go func() { played <- p.output.AwaitMark() }()

	select {
	case <-ctx.Done():
		p.output.ClearBuffer()
		return ctx.Err()
	case err := <-played:
		return err
	}
}

// Router picks a generator by language and falls back to a default one.
type Router struct {
	fallback   Generator
	generators map[language.Language]Generator
}

type RouterOption func(*Router)

func WithLanguageGenerator(lang language.Language, generator Generator) RouterOption {
	return func(r *Router) { r.generators[lang] = generator }
}

func NewRouter(fallback Generator, opts ...RouterOption) *Router {
	router := &Router{fallback: fallback, generators: map[language.Language]Generator{}}
	for _, opt := range opts {
		opt(router)
	}
	return router
}

func (r *Router) Generate(ctx context.Context, text string, lang language.Language, onAudio func([]byte)) error {
	generator, routed := r.fallback, false
	if g, ok := r.generators[lang]; ok && g != nil {
		generator, routed = g, true
	}
	if generator == nil {
		return fmt.Errorf("%w %q", ErrNoGenerator, lang)
	}

	delivered := false
	err := generator.Generate(ctx, text, lang, func(chunk []byte) {
		delivered = true
		onAudio(chunk)
	})
	// Only fall back when nothing was played yet so no words are repeated.
	if err != nil && !delivered && IsRetryable(err) && ctx.Err() == nil && routed && r.fallback != nil {
		logger.Warn("speech provider failed, using fallback", "language", lang.String(), "error", err)
		return r.fallback.Generate(ctx, text, lang, onAudio)
	}
	return err
}

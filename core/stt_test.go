package orchestration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/koscakluka/ema-guide/core/language"
	"github.com/koscakluka/ema-guide/core/speechtotext"
)

func TestRecognitionTagsCallbacksWithGeneration(t *testing.T) {
	recognizer := &fakeRecognizer{}
	facade := newRecognition()
	facade.set(recognizer)

	var results []uint64
	onResult := func(generation uint64, _ speechtotext.Transcript) { results = append(results, generation) }
	onError := func(uint64, error) {}

	first, err := facade.start(context.Background(), language.English, onResult, onError)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	recognizer.hear(t, "hello")

	if err := facade.stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if facade.isCurrent(first) {
		t.Fatalf("expected stopped generation to be stale")
	}

	second, err := facade.start(context.Background(), language.Swahili, onResult, onError)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if second <= first || !facade.isCurrent(second) {
		t.Fatalf("expected a newer current generation, got %d after %d", second, first)
	}
	recognizer.hear(t, "jambo")

	if len(results) != 2 || results[0] != first || results[1] != second {
		t.Fatalf("expected results tagged %d then %d, got %v", first, second, results)
	}
	if facade.lang != language.Swahili || recognizer.language() != language.Swahili {
		t.Fatalf("expected recognizer to restart in sw")
	}
}

func TestRecognitionForwardsAudioOnlyWhileArmed(t *testing.T) {
	recognizer := &countingRecognizer{}
	facade := newRecognition()
	facade.set(recognizer)

	if err := facade.sendAudio([]byte{1, 2}); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if _, err := facade.start(context.Background(), language.English, func(uint64, speechtotext.Transcript) {}, func(uint64, error) {}); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if err := facade.sendAudio([]byte{1, 2}); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if err := facade.stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if err := facade.sendAudio([]byte{1, 2}); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	if got := recognizer.sent.Load(); got != 1 {
		t.Fatalf("expected one forwarded chunk, got %d", got)
	}
	if got := recognizer.stops.Load(); got != 1 {
		t.Fatalf("expected one stop, got %d", got)
	}
}

func TestRecognitionStartFailureLeavesItDisarmed(t *testing.T) {
	recognizer := &fakeRecognizer{}
	recognizer.setStartError(speechtotext.NewError(speechtotext.ErrorPermissionDenied, nil))
	facade := newRecognition()
	facade.set(recognizer)

	_, err := facade.start(context.Background(), language.English, func(uint64, speechtotext.Transcript) {}, func(uint64, error) {})
	if speechtotext.KindOf(err) != speechtotext.ErrorPermissionDenied {
		t.Fatalf("expected permission error to survive wrapping, got %v", err)
	}
	if facade.armed || facade.forwarding.Load() {
		t.Fatalf("expected failed start to leave recognition disarmed")
	}
}

func TestUnconfiguredRecognitionTracksArming(t *testing.T) {
	facade := newRecognition()

	generation, err := facade.start(context.Background(), language.English, func(uint64, speechtotext.Transcript) {}, func(uint64, error) {})
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if !facade.isCurrent(generation) {
		t.Fatalf("expected unconfigured recognition to still track arming")
	}
	if err := facade.sendAudio([]byte{1}); err != nil {
		t.Fatalf("expected unconfigured send to be a no-op, got %v", err)
	}
	if err := facade.stop(); err != nil {
		t.Fatalf("expected unconfigured stop to be a no-op, got %v", err)
	}
}

type countingRecognizer struct {
	sent    atomic.Int32
	stops   atomic.Int32
	sendErr error
}

func (r *countingRecognizer) Start(context.Context, language.Language, func(speechtotext.Transcript), func(error)) error {
	return nil
}

func (r *countingRecognizer) Stop() error {
	r.stops.Add(1)
	return nil
}

func (r *countingRecognizer) SendAudio([]byte) error {
	r.sent.Add(1)
	return r.sendErr
}

var errSendFailed = errors.New("send failed")

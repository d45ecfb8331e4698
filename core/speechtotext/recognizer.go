// Package speechtotext defines the recognition port the guide listens
// through and the error taxonomy adapters report with.
package speechtotext

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-guide/core/language"
)

type Transcript struct {
	Text       string
	IsFinal    bool
	Confidence float64
}

// Recognizer turns streamed audio into transcripts. Start returns once the
// recognizer is listening; results and asynchronous failures are delivered
// through the callbacks until Stop is called or ctx is done.
type Recognizer interface {
	Start(ctx context.Context, lang language.Language, onResult func(Transcript), onError func(error)) error
	Stop() error
	SendAudio(audio []byte) error
}

type ErrorKind string

const (
	ErrorNoSpeech         ErrorKind = "no-speech"
	ErrorNetwork          ErrorKind = "network"
	ErrorAudioCapture     ErrorKind = "audio-capture"
	ErrorPermissionDenied ErrorKind = "permission-denied"
	ErrorAborted          ErrorKind = "aborted"
	ErrorUnknown          ErrorKind = "unknown"
)

var ErrNotStarted = errors.New("recognizer not started")

type RecognitionError struct {
	Kind  ErrorKind
	Cause error
}

func NewError(kind ErrorKind, cause error) *RecognitionError {
	return &RecognitionError{Kind: kind, Cause: cause}
}

func (e *RecognitionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("recognition failed: %s", e.Kind)
	}
	return fmt.Sprintf("recognition failed (%s): %v", e.Kind, e.Cause)
}

func (e *RecognitionError) Unwrap() error { return e.Cause }

// KindOf extracts the kind of a recognition error. Errors that are not
// RecognitionErrors are ErrorUnknown, and nil is ErrorUnknown too.
func KindOf(err error) ErrorKind {
	var recognitionErr *RecognitionError
	if errors.As(err, &recognitionErr) {
		return recognitionErr.Kind
	}
	if errors.Is(err, context.Canceled) {
		return ErrorAborted
	}
	return ErrorUnknown
}

// Transient reports whether the recognizer can simply be restarted.
func (k ErrorKind) Transient() bool {
	return k == ErrorNetwork || k == ErrorAborted || k == ErrorNoSpeech
}

package texttospeech

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyText      = errors.New("text is empty")
	ErrNoGenerator    = errors.New("no speech generator for language")
	ErrMissingAPIKey  = errors.New("api key not configured")
	ErrOutputRejected = errors.New("audio output rejected audio")
)

// SynthesisError is returned by provider generators.
type SynthesisError struct {
	Provider  string
	Code      string
	Message   string
	Cause     error
	Retryable bool
}

func NewSynthesisError(provider, code, message string, cause error, retryable bool) *SynthesisError {
	return &SynthesisError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: retryable,
	}
}

func (e *SynthesisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *SynthesisError) Unwrap() error { return e.Cause }

// IsRetryable reports whether err is a SynthesisError marked retryable.
func IsRetryable(err error) bool {
	var synthesisErr *SynthesisError
	return errors.As(err, &synthesisErr) && synthesisErr.Retryable
}

package coach

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every lookup failure: unknown run or unknown question.
	ErrNotFound         = errors.New("not found")
	ErrRunNotFound      = fmt.Errorf("run %w", ErrNotFound)
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)

	// ErrInvalidArgument wraps caller mistakes such as an empty job description.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStaleAnswer means the answer a scoring job was scheduled for has been
	// replaced or cleared since.
	ErrStaleAnswer = errors.New("answer changed since scoring was scheduled")
	// ErrEmptyTranscript is returned when transcription produced no text.
	ErrEmptyTranscript = errors.New("transcript is empty")
	// ErrTranscriptionDisabled is returned when no transcriber is configured.
	ErrTranscriptionDisabled = errors.New("transcription is not configured")
)

// UpstreamError reports a failure of an external collaborator such as the AI
// model or the speech service.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StoreError reports a persistence or queueing failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

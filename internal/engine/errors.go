package engine

import (
	"errors"
	"fmt"
)

// ErrSinkUnavailable is matched by errors.Is for every EnvironmentError
// raised because the audio sink could not be opened.
var ErrSinkUnavailable = errors.New("audio sink unavailable")

// ErrClosed is returned by Start and Toggle after Close.
var ErrClosed = errors.New("metronome closed")

// EnvironmentError reports that playback cannot start because a host
// resource is missing. It is fatal for the Start call that returned it; the
// Metronome stays stopped and does not retry on its own.
type EnvironmentError struct {
	// Code identifies the error category.
	Code EnvironmentErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// EnvironmentErrorCode categorizes environment errors.
type EnvironmentErrorCode string

const (
	// ErrCodeSinkUnavailable indicates the audio sink opener failed.
	ErrCodeSinkUnavailable EnvironmentErrorCode = "SINK_UNAVAILABLE"

	// ErrCodeNoSink indicates neither a sink nor a sink opener was configured.
	ErrCodeNoSink EnvironmentErrorCode = "NO_SINK"
)

// Error implements the error interface.
func (e *EnvironmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EnvironmentError) Unwrap() error {
	return e.Err
}

// Is makes every EnvironmentError match ErrSinkUnavailable.
func (e *EnvironmentError) Is(target error) bool {
	return target == ErrSinkUnavailable
}

// IsEnvironmentError returns true if err is or wraps an EnvironmentError.
func IsEnvironmentError(err error) bool {
	var ee *EnvironmentError
	return errors.As(err, &ee)
}

func newSinkError(err error) *EnvironmentError {
	return &EnvironmentError{
		Code:    ErrCodeSinkUnavailable,
		Message: "cannot open audio sink",
		Err:     err,
	}
}

package service

import (
	"errors"
	"fmt"
)

// ErrEmptyPrompt is returned at submission when the prompt is blank.
var ErrEmptyPrompt = errors.New("prompt is empty")

// ErrOutputMissing means the renderer reported success but produced no video.
var ErrOutputMissing = errors.New("rendered but output missing")

// ValidationError rejects a submission field other than the prompt.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// UpstreamError wraps a failed LLM call. It is never retried.
type UpstreamError struct {
	Attempt int
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("LLM request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned when no attempt produced valid output.
type ExhaustedError struct {
	Attempts   int
	LastReason string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed to generate valid output after %d attempts. Last error: %s", e.Attempts, e.LastReason)
}

// RenderError is returned when every render attempt exited non-zero.
type RenderError struct {
	ExitCode   int
	StderrTail string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed (returncode=%d)", e.ExitCode)
}

package domain

import (
	"fmt"
	"time"
)

// PlatformError reports a non-success response from the conferencing platform.
// It is always fatal: raised before any resource exists it aborts the run,
// raised later it triggers compensating cleanup.
type PlatformError struct {
	Operation  string
	StatusCode int
	Body       string
}

// Error formats the failed operation with status and response context.
func (e *PlatformError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("platform: %s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("platform: %s: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// SynthesisError wraps a speech provider failure that survived the retry budget.
type SynthesisError struct {
	Voice string
	Err   error
}

// Error reports the voice and the final provider error.
func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize voice %q: %v", e.Voice, e.Err)
}

// Unwrap exposes the provider error for errors.Is / errors.As.
func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// InvalidUtteranceError reports malformed scripted input. This is a programmer
// error and is never retried.
type InvalidUtteranceError struct {
	Reason string
}

// Error describes why the utterance was rejected.
func (e *InvalidUtteranceError) Error() string {
	return "invalid utterance: " + e.Reason
}

// RecordingFailedError reports a recording that reached the terminal error state.
type RecordingFailedError struct {
	RecordingID string
}

// Error identifies the failed recording job.
func (e *RecordingFailedError) Error() string {
	return fmt.Sprintf("recording %s entered error state", e.RecordingID)
}

// RecordingTimeoutError reports a recording still processing when the wait
// budget ran out.
type RecordingTimeoutError struct {
	RecordingID string
	Budget      time.Duration
}

// Error identifies the recording and the exhausted budget.
func (e *RecordingTimeoutError) Error() string {
	return fmt.Sprintf("recording %s not ready within %s", e.RecordingID, e.Budget)
}

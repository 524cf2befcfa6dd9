package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the rejection taxonomy. The API layer maps these to
// HTTP status codes; the orchestrator guarantees none of them carry side
// effects (no stage ran, no quota was touched).
var (
	// ErrAccountNotFound means no quota account exists for the requester.
	ErrAccountNotFound = errors.New("requester account not found")
	// ErrQuotaExceeded means a metered account has no credits left.
	ErrQuotaExceeded = errors.New("insufficient credits")
	// ErrRunInProgress means another run for the same requester is active.
	ErrRunInProgress = errors.New("a run for this requester is already in progress")
	// ErrPostNotFound means a post id does not exist.
	ErrPostNotFound = errors.New("post not found")
)

// UpstreamError wraps a provider failure in the one stage that cannot fall
// back. Every other stage recovers locally and never surfaces an error.
type UpstreamError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

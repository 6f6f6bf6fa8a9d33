package agent

import (
	"errors"
	"fmt"
)

// ErrWebSearchUnavailable signals that no web search collaborator was
// configured. It is a configuration-level failure and is never retried.
var ErrWebSearchUnavailable = errors.New("web search unavailable")

// RetriesExhaustedError is returned by Retry once every attempt has failed.
// It carries the last underlying error and the attempt count.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Last }

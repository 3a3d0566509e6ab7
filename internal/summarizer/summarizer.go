// Package summarizer produces clinical summaries through a configured
// chat completion backend.
package summarizer

import (
	"context"
	"errors"
	"fmt"
)

// Approver guards the dispatch of patient data to the external backend.
// Implementations may block on interactive input; declining is a normal
// outcome, not an error.
type Approver interface {
	Approve(ctx context.Context, preview string) (bool, error)
}

// ErrCancelled reports that the approver declined the request. It is a
// user decision, kept distinct from the LLMError failure taxonomy.
var ErrCancelled = errors.New("summary request cancelled by user")

// LLMError wraps a backend failure or an unusable response, preserving
// the backend's own diagnostic.
type LLMError struct {
	Err error
}

func (e *LLMError) Error() string { return fmt.Sprintf("llm: %v", e.Err) }

func (e *LLMError) Unwrap() error { return e.Err }

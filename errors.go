package zentry

import (
	"fmt"

	"github.com/casualjim/zentry/provider"
)

// GenerationFailedError wraps an error returned by a provider's Generate.
type GenerationFailedError struct {
	Provider provider.ID
	Err      error
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("failed to generate response with %s: %v", e.Provider, e.Err)
}

func (e *GenerationFailedError) Unwrap() error {
	return e.Err
}

// StreamFailedError wraps an error returned by a provider's Stream.
type StreamFailedError struct {
	Provider provider.ID
	Err      error
}

func (e *StreamFailedError) Error() string {
	return fmt.Sprintf("failed to stream response with %s: %v", e.Provider, e.Err)
}

func (e *StreamFailedError) Unwrap() error {
	return e.Err
}

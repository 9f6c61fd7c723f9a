package provider

import (
	"errors"
	"fmt"
)

// ID identifies a supported provider.
type ID string

const (
	OpenAI    ID = "openai"
	Anthropic ID = "anthropic"
	Cohere    ID = "cohere"
	Groq      ID = "groq"
	Google    ID = "google"
)

// IDs returns the supported providers in a stable order.
func IDs() []ID {
	return []ID{OpenAI, Anthropic, Cohere, Groq, Google}
}

func (id ID) String() string { return string(id) }

// ParseID validates s against the supported providers.
func ParseID(s string) (ID, error) {
	switch id := ID(s); id {
	case OpenAI, Anthropic, Cohere, Groq, Google:
		return id, nil
	default:
		return "", &UnsupportedProviderError{ID: s}
	}
}

var (
	// ErrUnsupportedProvider matches every UnsupportedProviderError with errors.Is.
	ErrUnsupportedProvider = errors.New("model not supported")

	// ErrStreamConsumed is reported when a stream is ranged over more than once.
	ErrStreamConsumed = errors.New("stream already consumed")
)

// UnsupportedProviderError is returned when a provider id is not in the allow-list.
type UnsupportedProviderError struct {
	ID string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("model not supported: %q", e.ID)
}

func (e *UnsupportedProviderError) Is(target error) bool {
	return target == ErrUnsupportedProvider
}

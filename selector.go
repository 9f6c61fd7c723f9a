package zentry

import (
	"github.com/casualjim/zentry/provider"
	"github.com/casualjim/zentry/provider/anthropic"
	"github.com/casualjim/zentry/provider/cohere"
	"github.com/casualjim/zentry/provider/google"
	"github.com/casualjim/zentry/provider/openai"
)

// Selector turns a validated provider id into a capability.
type Selector interface {
	Select(id provider.ID, cfg provider.Config) (provider.Capability, error)
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(id provider.ID, cfg provider.Config) (provider.Capability, error)

func (f SelectorFunc) Select(id provider.ID, cfg provider.Config) (provider.Capability, error) {
	return f(id, cfg)
}

// DefaultSelector builds the vendor capabilities shipped with this module.
var DefaultSelector Selector = SelectorFunc(selectProvider)

// Select validates providerID and builds its capability. Unknown ids fail
// with *provider.UnsupportedProviderError before anything is constructed.
// Building a capability never performs network I/O.
func Select(providerID string, cfg provider.Config) (provider.Capability, error) {
	id, err := provider.ParseID(providerID)
	if err != nil {
		return nil, err
	}
	return selectProvider(id, cfg)
}

func selectProvider(id provider.ID, cfg provider.Config) (provider.Capability, error) {
	switch id {
	case provider.OpenAI:
		return openai.New(cfg), nil
	case provider.Groq:
		return openai.NewGroq(cfg), nil
	case provider.Anthropic:
		return anthropic.New(cfg), nil
	case provider.Cohere:
		return cohere.New(cfg), nil
	case provider.Google:
		return google.New(cfg), nil
	default:
		return nil, &provider.UnsupportedProviderError{ID: string(id)}
	}
}

package zentry

import (
	"context"
	"errors"
	"log/slog"

	"github.com/casualjim/zentry/memory"
	"github.com/casualjim/zentry/pkg/slogx"
	"github.com/casualjim/zentry/pkg/uuidx"
	"github.com/casualjim/zentry/provider"
	"github.com/fogfish/opts"
	"github.com/google/uuid"
)

// Model is a language model whose calls are augmented with memories.
// A Model holds no per-call state and is safe for concurrent use.
type Model struct {
	provider       provider.ID
	modelID        string
	providerConfig provider.Config
	store          memory.Store
	memory         memory.Config
	selector       Selector
	sourceURL      string
}

var (
	// ModelID sets the vendor model id, e.g. "gpt-4o-mini". Empty uses the provider default.
	ModelID = opts.ForName[Model, string]("modelID")
	// ProviderConfig sets the provider credentials and transport.
	ProviderConfig = opts.ForName[Model, provider.Config]("providerConfig")
	// Store sets the memory store. Without one, calls are not augmented.
	Store = opts.ForName[Model, memory.Store]("store")
	// Memory sets the default memory scope and retrieval tuning.
	Memory = opts.ForName[Model, memory.Config]("memory")
	// WithSelector replaces DefaultSelector.
	WithSelector = opts.ForName[Model, Selector]("selector")
	// SourceURL sets the URL attached to memory source annotations.
	SourceURL = opts.ForName[Model, string]("sourceURL")
)

// Provider sets the provider. The id is validated against the supported providers.
func Provider(id string) opts.Option[Model] {
	return opts.Type[Model](func(m *Model) error {
		pid, err := provider.ParseID(id)
		if err != nil {
			return err
		}
		m.provider = pid
		return nil
	})
}

// New creates a model. The provider defaults to openai.
func New(options ...opts.Option[Model]) (*Model, error) {
	m := &Model{
		provider:  provider.OpenAI,
		selector:  DefaultSelector,
		sourceURL: DefaultSourceURL,
	}
	if err := opts.Apply(m, options); err != nil {
		return nil, err
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) validate() error {
	var err error
	if m.selector == nil {
		err = errors.Join(err, errors.New("selector is required"))
	}
	if m.store != nil {
		if verr := m.memory.Validate(); verr != nil {
			err = errors.Join(err, verr)
		}
	}
	return err
}

// ProviderID returns the default provider of the model.
func (m *Model) ProviderID() provider.ID {
	return m.provider
}

// CallOptions are the options for one Generate or Stream call.
type CallOptions struct {
	provider.CallOptions

	// Provider overrides the model's provider for this call.
	Provider string
	// Memory overrides the model's memory config for this call.
	Memory *memory.Config
	// Store overrides the model's memory store for this call.
	Store memory.Store
}

// call is one resolved, augmented model call.
type call struct {
	id         provider.ID
	capability provider.Capability
	records    []memory.Record
	params     provider.CallOptions
}

// prepare selects the capability and augments the prompt. Selection happens
// first so an unsupported provider fails before the memory store is touched.
func (m *Model) prepare(ctx context.Context, options CallOptions) (*call, error) {
	id := m.provider
	if options.Provider != "" {
		pid, err := provider.ParseID(options.Provider)
		if err != nil {
			return nil, err
		}
		id = pid
	}

	capability, err := m.selector.Select(id, m.providerConfig)
	if err != nil {
		return nil, err
	}

	store := m.store
	if options.Store != nil {
		store = options.Store
	}
	cfg := m.memory
	if options.Memory != nil {
		cfg = *options.Memory
		if err := cfg.Validate(); err != nil && store != nil {
			slog.WarnContext(ctx, "invalid memory config, skipping memories", slogx.Provider(id), slogx.Error(err))
			store = nil
		}
	}
	aug := memory.Augment(ctx, store, options.Prompt, cfg)

	params := options.CallOptions.WithPrompt(aug.Prompt)
	if params.Model == "" {
		params.Model = m.modelID
	}
	if params.RunID == uuid.Nil {
		params.RunID = uuidx.New()
	}

	return &call{
		id:         id,
		capability: capability,
		records:    aug.Records,
		params:     params,
	}, nil
}

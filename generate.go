package zentry

import (
	"context"
	"errors"
	"log/slog"

	"github.com/casualjim/zentry/pkg/slogx"
	"github.com/casualjim/zentry/provider"
)

// Generate augments the prompt with memories and performs a single-shot call.
//
// When memories were injected the response is a copy of the provider's whose
// Sources are the provider's own followed by one annotation for all memories
// and one per memory. Otherwise the provider's response is returned as is.
// Provider errors are wrapped in *GenerationFailedError; memory failures are
// logged and never returned.
func (m *Model) Generate(ctx context.Context, options CallOptions) (*provider.Response, error) {
	c, err := m.prepare(ctx, options)
	if err != nil {
		return nil, err
	}

	resp, err := c.capability.Generate(ctx, c.params)
	if err != nil {
		return nil, &GenerationFailedError{Provider: c.id, Err: err}
	}
	if resp == nil {
		return nil, &GenerationFailedError{Provider: c.id, Err: errors.New("provider returned no response")}
	}
	if len(c.records) == 0 {
		return resp, nil
	}

	sources, err := memorySources(c.records, m.sourceURL)
	if err != nil {
		slog.WarnContext(ctx, "failed to build memory sources", slogx.Provider(c.id), slogx.Error(err))
		return resp, nil
	}

	out := resp.Clone()
	out.Sources = append(out.Sources, sources...)
	return out, nil
}

package zentry

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/casualjim/zentry/memory"
	"github.com/casualjim/zentry/pkg/slogx"
	"github.com/casualjim/zentry/provider"
	"github.com/google/uuid"
)

// Stream augments the prompt with memories and starts a streaming call.
//
// When memories were injected, the returned events start with one source
// event for all memories and one per memory, followed by every provider event
// unchanged. Otherwise the provider's StreamResponse is returned as is.
//
// The events are lazy: nothing is requested from the provider until they are
// ranged over. Breaking out of the range stops the provider stream.
func (m *Model) Stream(ctx context.Context, options CallOptions) (*provider.StreamResponse, error) {
	c, err := m.prepare(ctx, options)
	if err != nil {
		return nil, err
	}

	resp, err := c.capability.Stream(ctx, c.params)
	if err != nil {
		return nil, &StreamFailedError{Provider: c.id, Err: err}
	}
	if resp == nil || resp.Events == nil {
		return nil, &StreamFailedError{Provider: c.id, Err: errors.New("provider returned no stream")}
	}
	if len(c.records) == 0 {
		return resp, nil
	}

	inj := &sourceInjector{
		ctx:      ctx,
		provider: c.id,
		runID:    c.params.RunID,
		records:  c.records,
		build: func(records []memory.Record) ([]provider.Source, error) {
			return memorySources(records, m.sourceURL)
		},
		delegate: resp.Events,
	}
	return &provider.StreamResponse{
		Events:   provider.SingleUse(c.params.RunID, inj.events),
		Warnings: resp.Warnings,
	}, nil
}

type streamState int32

const (
	stateNotStarted streamState = iota
	stateInjectingSources
	stateForwarding
	stateClosed
	stateErrored
)

func (s streamState) String() string {
	switch s {
	case stateNotStarted:
		return "not-started"
	case stateInjectingSources:
		return "injecting-sources"
	case stateForwarding:
		return "forwarding"
	case stateClosed:
		return "closed"
	case stateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// sourceInjector emits memory source events ahead of a provider stream.
type sourceInjector struct {
	ctx      context.Context
	provider provider.ID
	runID    uuid.UUID
	records  []memory.Record
	build    func([]memory.Record) ([]provider.Source, error)
	delegate iter.Seq[provider.StreamEvent]

	state atomic.Int32
}

func (s *sourceInjector) current() streamState {
	return streamState(s.state.Load())
}

func (s *sourceInjector) transition(from, to streamState) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

func (s *sourceInjector) events(yield func(provider.StreamEvent) bool) {
	if !s.transition(stateNotStarted, stateInjectingSources) {
		return
	}
	if !s.inject(yield) {
		s.transition(stateInjectingSources, stateClosed)
		return
	}

	s.transition(stateInjectingSources, stateForwarding)
	for ev := range s.delegate {
		if _, isErr := ev.(provider.Error); isErr {
			s.transition(stateForwarding, stateErrored)
			yield(ev)
			return
		}
		if !yield(ev) {
			break
		}
	}
	s.transition(stateForwarding, stateClosed)
}

// inject yields the source events. It returns false when the consumer stopped.
// Failing to build the sources is logged and leaves the stream as a pass-through.
func (s *sourceInjector) inject(yield func(provider.StreamEvent) bool) bool {
	sources, err := s.sources()
	if err != nil {
		slog.ErrorContext(s.ctx, "failed to inject memory sources into stream", slogx.Provider(s.provider), slogx.Error(err))
		return true
	}
	for _, src := range sources {
		if !yield(provider.SourceEvent{RunID: s.runID, Source: src, Timestamp: provider.Now()}) {
			return false
		}
	}
	return true
}

func (s *sourceInjector) sources() (sources []provider.Source, err error) {
	defer func() {
		if r := recover(); r != nil {
			sources, err = nil, fmt.Errorf("building memory sources panicked: %v", r)
		}
	}()
	return s.build(s.records)
}

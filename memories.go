package zentry

import (
	"context"
	"errors"

	"github.com/casualjim/zentry/memory"
	"github.com/casualjim/zentry/messages"
)

var errNoStore = errors.New("memory store is required")

// AddMemories writes prompt to store and waits for the result, unlike the
// background write performed by Generate and Stream.
func AddMemories(ctx context.Context, store memory.Store, prompt messages.Prompt, cfg memory.Config) error {
	if store == nil {
		return errNoStore
	}
	return store.Add(ctx, prompt, cfg)
}

// GetMemories returns the raw search result for the user text of prompt.
func GetMemories(ctx context.Context, store memory.Store, prompt messages.Prompt, cfg memory.Config) (memory.SearchResult, error) {
	if store == nil {
		return memory.SearchResult{}, errNoStore
	}
	return store.Search(ctx, prompt.UserText(), cfg)
}

// RetrieveMemories returns the system message text Generate would inject for
// prompt, or "" when there are no memories.
func RetrieveMemories(ctx context.Context, store memory.Store, prompt messages.Prompt, cfg memory.Config) (string, error) {
	result, err := GetMemories(ctx, store, prompt, cfg)
	if err != nil {
		return "", err
	}
	if result.Empty() {
		return "", nil
	}
	return memory.FormatPrompt(result, cfg)
}

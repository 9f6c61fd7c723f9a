package chromem

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/casualjim/zentry/memory"
	"github.com/casualjim/zentry/memory/embedder"
	"github.com/casualjim/zentry/messages"
	chromem "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(WithEmbedder(embedder.Hash(embedder.DefaultDimensions)))
	require.NoError(t, err)

	ctx := context.Background()
	alice := memory.Config{Scope: memory.Scope{UserID: "alice"}, Metadata: map[string]any{"channel": "web", "turn": 2}}
	require.NoError(t, s.Add(ctx, messages.Prompt{
		messages.System("ignored"),
		messages.User(messages.Text("I really like SUVs")),
		messages.Assistant(messages.Text("Noted, SUVs it is")),
		messages.User(messages.Text("I live in Oslo")),
	}, alice))

	bob := memory.Config{Scope: memory.Scope{UserID: "bob"}}
	require.NoError(t, s.Add(ctx, messages.Prompt{messages.User(messages.Text("I like sports cars"))}, bob))
	return s
}

func TestStore_Search(t *testing.T) {
	s := seededStore(t)

	res, err := s.Search(context.Background(), "which SUVs should I buy", memory.Config{Scope: memory.Scope{UserID: "alice"}})
	require.NoError(t, err)
	require.Len(t, res.Results, 2, "only alice's user messages are stored")
	assert.Equal(t, "I really like SUVs", res.Results[0].Memory)
	assert.Equal(t, "web", res.Results[0].Metadata["channel"])
	assert.Equal(t, "2", res.Results[0].Metadata["turn"])
	assert.NotNil(t, res.Results[0].CreatedAt)
	assert.Empty(t, res.Relations)
}

func TestStore_SearchScopes(t *testing.T) {
	s := seededStore(t)

	res, err := s.Search(context.Background(), "cars", memory.Config{Scope: memory.Scope{UserID: "bob"}})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "I like sports cars", res.Results[0].Memory)

	res, err = s.Search(context.Background(), "cars", memory.Config{Scope: memory.Scope{UserID: "carol"}})
	require.NoError(t, err)
	assert.Empty(t, res.Results)

	res, err = s.Search(context.Background(), "SUVs", memory.Config{Scope: memory.Scope{UserID: "alice", RunID: "other-run"}})
	require.NoError(t, err)
	assert.Empty(t, res.Results, "run id is matched as metadata")
}

func TestStore_TopKAndThreshold(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	res, err := s.Search(ctx, "SUVs", memory.Config{Scope: memory.Scope{UserID: "alice"}, TopK: 1})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "I really like SUVs", res.Results[0].Memory)

	threshold := 0.99
	res, err = s.Search(ctx, "SUVs", memory.Config{Scope: memory.Scope{UserID: "alice"}, Threshold: &threshold})
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestStore_SearchEmbedsQueryOnce(t *testing.T) {
	var calls atomic.Int32
	hash := embedder.Hash(embedder.DefaultDimensions)
	var counting chromem.EmbeddingFunc = func(ctx context.Context, text string) ([]float32, error) {
		calls.Add(1)
		return hash(ctx, text)
	}
	s, err := New(WithEmbedder(counting))
	require.NoError(t, err)

	ctx := context.Background()
	runOne := memory.Config{Scope: memory.Scope{UserID: "alice", RunID: "run-1"}}
	require.NoError(t, s.Add(ctx, messages.Prompt{
		messages.User(messages.Text("I like SUVs")),
		messages.User(messages.Text("I live in Oslo")),
		messages.User(messages.Text("I drive to work")),
	}, runOne))
	runTwo := memory.Config{Scope: memory.Scope{UserID: "alice", RunID: "run-2"}}
	require.NoError(t, s.Add(ctx, messages.Prompt{messages.User(messages.Text("I want a red car"))}, runTwo))

	calls.Store(0)
	runTwo.TopK = 10
	res, err := s.Search(ctx, "car", runTwo)
	require.NoError(t, err)
	require.Len(t, res.Results, 1, "the run filter leaves fewer documents than top_k")
	assert.Equal(t, "I want a red car", res.Results[0].Memory)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStore_AddIsIdempotent(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	cfg := memory.Config{Scope: memory.Scope{UserID: "bob"}}

	require.NoError(t, s.Add(ctx, messages.Prompt{messages.User(messages.Text("I like sports cars"))}, cfg))

	res, err := s.Search(ctx, "cars", cfg)
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)
}

func TestStore_Augment(t *testing.T) {
	s := seededStore(t)
	prompt := messages.Prompt{messages.User(messages.Text("Suggest SUVs for me"))}

	aug := memory.Augment(context.Background(), s, prompt, memory.Config{Scope: memory.Scope{UserID: "alice"}, TopK: 1})

	require.Len(t, aug.Records, 1)
	assert.Contains(t, aug.Prompt[0].Text(), "Memory: I really like SUVs")
	assert.Equal(t, prompt, aug.Prompt[1:])
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "user_alice", collectionName(memory.Scope{UserID: "alice", AgentID: "x"}))
	assert.Equal(t, "agent_x", collectionName(memory.Scope{AgentID: "x"}))
	assert.Equal(t, "global", collectionName(memory.Scope{}))
}

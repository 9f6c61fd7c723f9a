package console

import (
	"slices"
	"strings"
	"testing"

	"github.com/casualjim/zentry/provider"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintStream(t *testing.T) {
	events := slices.Values([]provider.StreamEvent{
		provider.SourceEvent{Source: provider.Source{ID: "zentry-1", Title: "Zentry Memories"}},
		provider.TextDelta{Text: "test streaming "},
		provider.TextDelta{Text: "message"},
		provider.ToolCallEvent{ToolCall: provider.ToolCall{ID: "call-1", Name: "test_tool", Arguments: `{"arg": "value"}`}},
		provider.Finish{Reason: provider.FinishToolCalls, Usage: provider.Usage{InputTokens: 3, OutputTokens: 5}},
	})

	var buf strings.Builder
	usage, err := PrintStream(&buf, events)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, color.CyanString("Source:")+" Zentry Memories (zentry-1)")
	assert.Contains(t, output, color.MagentaString("Assistant")+": test streaming message")
	assert.Contains(t, output, color.YellowString("test_tool")+`{"arg"="value"}`)
	assert.Equal(t, int64(8), usage.TotalTokens())
}

func TestPrintStream_Error(t *testing.T) {
	events := slices.Values([]provider.StreamEvent{
		provider.TextDelta{Text: "partial"},
		provider.Error{Err: assert.AnError},
		provider.TextDelta{Text: "never printed"},
	})

	var buf strings.Builder
	_, err := PrintStream(&buf, events)
	require.ErrorIs(t, err, assert.AnError)
	assert.NotContains(t, buf.String(), "never printed")
}

func TestPrintResponse(t *testing.T) {
	resp := &provider.Response{
		Text:     "Try the **Model 3**.",
		Sources:  []provider.Source{{ID: "zentry-memory-1"}},
		Warnings: []string{"seed is not supported"},
	}

	var buf strings.Builder
	PrintResponse(&buf, resp, 80)

	output := buf.String()
	assert.Contains(t, output, "zentry-memory-1 (zentry-memory-1)")
	assert.Contains(t, output, "Model 3")
	assert.Contains(t, output, "seed is not supported")
}

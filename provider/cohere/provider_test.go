package cohere

import (
	"testing"

	"github.com/casualjim/zentry/messages"
	"github.com/casualjim/zentry/provider"
	cohere "github.com/cohere-ai/cohere-go/v2"
	"github.com/go-openapi/swag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest(t *testing.T) {
	temp := 0.3
	req, err := buildRequest(&provider.CallOptions{
		Prompt: messages.Prompt{
			messages.System("Memory: likes SUVs"),
			messages.User(messages.Text("Hello")),
			messages.Assistant(messages.Text("Hi, how can I help?")),
			messages.User(messages.Text("Suggest a car")),
		},
		Temperature: &temp,
		MaxTokens:   100,
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, swag.StringValue(req.Model))
	assert.Equal(t, "Memory: likes SUVs", swag.StringValue(req.Preamble))
	assert.Equal(t, "Suggest a car", req.Message)
	assert.Equal(t, 100, swag.IntValue(req.MaxTokens))
	assert.Equal(t, 0.3, swag.Float64Value(req.Temperature))
	require.Len(t, req.ChatHistory, 2)
	assert.Equal(t, "Hello", req.ChatHistory[0].User.Message)
	assert.Equal(t, "Hi, how can I help?", req.ChatHistory[1].Chatbot.Message)
	assert.Empty(t, req.ToolResults)

	chat := req.chat()
	assert.Equal(t, req.Message, chat.Message)
	stream := req.stream()
	assert.Equal(t, req.Preamble, stream.Preamble)
}

func TestSplitPrompt_TrailingToolResults(t *testing.T) {
	message, history, results, err := splitPrompt(messages.Prompt{
		messages.User(messages.Text("Weather in Paris?")),
		messages.Assistant(messages.ToolCall("c1", "weather", `{"city":"Paris"}`)),
		messages.Tool(messages.ToolResult("c1", "weather", `{"temp":21}`, false)),
	})
	require.NoError(t, err)

	assert.Empty(t, message)
	require.Len(t, history, 2)
	require.Len(t, history[1].Chatbot.ToolCalls, 1)
	assert.Equal(t, "weather", history[1].Chatbot.ToolCalls[0].Name)

	require.Len(t, results, 1)
	assert.Equal(t, "weather", results[0].Call.Name)
	assert.Equal(t, map[string]any{"city": "Paris"}, results[0].Call.Parameters)
	assert.Equal(t, []map[string]any{{"temp": float64(21)}}, results[0].Outputs)
}

func TestSplitPrompt_PlainToolOutput(t *testing.T) {
	_, _, results, err := splitPrompt(messages.Prompt{
		messages.Tool(messages.ToolResult("c9", "lookup", "not json", true)),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "lookup", results[0].Call.Name)
	assert.Equal(t, []map[string]any{{"result": "not json", "is_error": true}}, results[0].Outputs)
}

func TestSplitPrompt_InvalidArguments(t *testing.T) {
	_, _, _, err := splitPrompt(messages.Prompt{
		messages.Assistant(messages.ToolCall("c1", "weather", `{broken`)),
		messages.User(messages.Text("and?")),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c1")
}

type weatherArgs struct {
	City string `json:"city" jsonschema:"description=City name"`
	Days int    `json:"days,omitempty"`
}

func TestToolsToCohere(t *testing.T) {
	tools, err := toolsToCohere([]provider.Tool{provider.ToolFor[weatherArgs]("weather", "Get the weather")})
	require.NoError(t, err)
	require.Len(t, tools, 1)

	defs := tools[0].ParameterDefinitions
	require.Len(t, defs, 2)
	assert.Equal(t, "string", defs["city"].Type)
	assert.Equal(t, "City name", swag.StringValue(defs["city"].Description))
	assert.True(t, swag.BoolValue(defs["city"].Required))
	assert.Equal(t, "integer", defs["days"].Type)
	assert.False(t, swag.BoolValue(defs["days"].Required))
}

func TestChatToResponse(t *testing.T) {
	reason := cohere.FinishReason("COMPLETE")
	resp := chatToResponse(&cohere.NonStreamedChatResponse{
		Text:         "Try an SUV",
		GenerationId: swag.String("gen-1"),
		FinishReason: &reason,
		ToolCalls: []*cohere.ToolCall{
			{Name: "inventory", Parameters: map[string]any{"type": "suv"}},
		},
		Meta: &cohere.ApiMeta{BilledUnits: &cohere.ApiMetaBilledUnits{
			InputTokens:  swag.Float64(8),
			OutputTokens: swag.Float64(3),
		}},
	})

	assert.Equal(t, "gen-1", resp.ID)
	assert.Equal(t, "Try an SUV", resp.Text)
	assert.Equal(t, provider.FinishToolCalls, resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.JSONEq(t, `{"type":"suv"}`, resp.ToolCalls[0].Arguments)
	assert.Equal(t, provider.Usage{InputTokens: 8, OutputTokens: 3}, resp.Usage)
}

func TestFinishReason(t *testing.T) {
	assert.Equal(t, provider.FinishStop, finishReason("COMPLETE"))
	assert.Equal(t, provider.FinishLength, finishReason("MAX_TOKENS"))
	assert.Equal(t, provider.FinishContentFilter, finishReason("ERROR_TOXIC"))
	assert.Equal(t, provider.FinishError, finishReason("ERROR"))
	assert.Equal(t, provider.FinishOther, finishReason("USER_CANCEL"))
}

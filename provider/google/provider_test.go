package google

import (
	"context"
	"testing"

	"github.com/casualjim/zentry/messages"
	"github.com/casualjim/zentry/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type weatherArgs struct {
	City  string   `json:"city" jsonschema:"description=City name"`
	Units string   `json:"units,omitempty" jsonschema:"enum=metric,enum=imperial"`
	Days  []int    `json:"days,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

func TestBuildRequest(t *testing.T) {
	temp := 0.5
	topK := int64(4)

	req, err := buildRequest(&provider.CallOptions{
		Prompt: messages.Prompt{
			messages.System("Memory: likes SUVs"),
			messages.User(messages.Text("Suggest a car")),
			messages.Assistant(messages.ToolCall("fc1", "weather", `{"city":"Oslo"}`)),
			messages.Tool(messages.ToolResult("fc1", "weather", "cold", false)),
		},
		Temperature: &temp,
		TopK:        &topK,
		MaxTokens:   64,
		Tools:       []provider.Tool{provider.ToolFor[weatherArgs]("weather", "Get the weather")},
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, req.model)
	require.NotNil(t, req.config.SystemInstruction)
	assert.Equal(t, "Memory: likes SUVs", req.config.SystemInstruction.Parts[0].Text)
	assert.Equal(t, int32(64), req.config.MaxOutputTokens)
	assert.InDelta(t, 0.5, *req.config.Temperature, 0.0001)
	assert.InDelta(t, 4, *req.config.TopK, 0.0001)

	require.Len(t, req.contents, 3)
	assert.Equal(t, genai.RoleUser, req.contents[0].Role)
	assert.Equal(t, genai.RoleModel, req.contents[1].Role)
	require.NotNil(t, req.contents[1].Parts[0].FunctionCall)
	assert.Equal(t, map[string]any{"city": "Oslo"}, req.contents[1].Parts[0].FunctionCall.Args)
	assert.Equal(t, genai.RoleUser, req.contents[2].Role)
	require.NotNil(t, req.contents[2].Parts[0].FunctionResponse)
	assert.Equal(t, "weather", req.contents[2].Parts[0].FunctionResponse.Name)

	require.Len(t, req.config.Tools, 1)
	decl := req.config.Tools[0].FunctionDeclarations[0]
	assert.Equal(t, "weather", decl.Name)
	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
	assert.Equal(t, []string{"city"}, decl.Parameters.Required)
	assert.Equal(t, []string{"city", "units", "days", "tags"}, decl.Parameters.PropertyOrdering)
	assert.Equal(t, genai.TypeString, decl.Parameters.Properties["city"].Type)
	assert.Equal(t, "City name", decl.Parameters.Properties["city"].Description)
	assert.Equal(t, []string{"metric", "imperial"}, decl.Parameters.Properties["units"].Enum)
	assert.Equal(t, genai.TypeArray, decl.Parameters.Properties["days"].Type)
	assert.Equal(t, genai.TypeInteger, decl.Parameters.Properties["days"].Items.Type)
}

func TestBuildRequest_InvalidToolArguments(t *testing.T) {
	_, err := buildRequest(&provider.CallOptions{
		Prompt: messages.Prompt{messages.Assistant(messages.ToolCall("fc9", "weather", `{nope`))},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fc9")
}

func TestMessagesToGenai_Images(t *testing.T) {
	contents, err := messagesToGenai(messages.Prompt{
		messages.User(
			messages.ImageData([]byte("png"), "image/png"),
			messages.Image("gs://bucket/car.jpg"),
		),
	})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, []byte("png"), contents[0].Parts[0].InlineData.Data)
	assert.Equal(t, "gs://bucket/car.jpg", contents[0].Parts[1].FileData.FileURI)
}

func TestContentToResponse(t *testing.T) {
	resp := contentToResponse(&genai.GenerateContentResponse{
		ResponseID:   "r1",
		ModelVersion: "gemini-2.0-flash",
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
				{Text: "Try "},
				{Text: "an SUV"},
				{FunctionCall: &genai.FunctionCall{ID: "fc1", Name: "inventory", Args: map[string]any{"type": "suv"}}},
			}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 9, CandidatesTokenCount: 5},
	})

	assert.Equal(t, "r1", resp.ID)
	assert.Equal(t, "Try an SUV", resp.Text)
	assert.Equal(t, provider.FinishToolCalls, resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.JSONEq(t, `{"type":"suv"}`, resp.ToolCalls[0].Arguments)
	assert.Equal(t, provider.Usage{InputTokens: 9, OutputTokens: 5}, resp.Usage)
}

func TestContentToResponse_NoCandidates(t *testing.T) {
	resp := contentToResponse(&genai.GenerateContentResponse{ResponseID: "r2"})
	assert.Equal(t, provider.FinishUnknown, resp.FinishReason)
	assert.Empty(t, resp.Text)
}

func TestStream_Lazy(t *testing.T) {
	p := New(provider.Config{APIKey: "k"})
	resp, err := p.Stream(context.Background(), provider.CallOptions{
		Prompt: messages.Prompt{messages.User(messages.Text("hi"))},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Events)
	assert.Nil(t, p.client, "client is only built when the stream is consumed")
}

func TestFinishReason(t *testing.T) {
	tests := map[string]provider.FinishReason{
		"STOP":                    provider.FinishStop,
		"MAX_TOKENS":              provider.FinishLength,
		"SAFETY":                  provider.FinishContentFilter,
		"RECITATION":              provider.FinishContentFilter,
		"MALFORMED_FUNCTION_CALL": provider.FinishError,
		"":                        provider.FinishUnknown,
		"LANGUAGE":                provider.FinishOther,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, finishReason(in))
		})
	}
}

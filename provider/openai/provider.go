package openai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/casualjim/zentry/messages"
	"github.com/casualjim/zentry/provider"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	// DefaultModel is used when the call options don't name a model.
	DefaultModel = openai.ChatModelGPT4oMini

	// GroqBaseURL is Groq's OpenAI compatible endpoint.
	GroqBaseURL = "https://api.groq.com/openai/v1/"

	// GroqDefaultModel is used for Groq when the call options don't name a model.
	GroqDefaultModel = "llama-3.3-70b-versatile"
)

var _ provider.Capability = (*Provider)(nil)

// Provider talks to the OpenAI chat completions API, or any endpoint that speaks it.
type Provider struct {
	id           provider.ID
	defaultModel string
	client       *openai.Client
}

// New creates an OpenAI capability. The API key falls back to OPENAI_API_KEY.
func New(cfg provider.Config, options ...option.RequestOption) *Provider {
	return newProvider(provider.OpenAI, DefaultModel, cfg, options)
}

// NewGroq creates a capability for Groq's OpenAI compatible API.
// The API key falls back to GROQ_API_KEY.
func NewGroq(cfg provider.Config, options ...option.RequestOption) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GroqBaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GROQ_API_KEY")
	}
	return newProvider(provider.Groq, GroqDefaultModel, cfg, options)
}

func newProvider(id provider.ID, defaultModel string, cfg provider.Config, extra []option.RequestOption) *Provider {
	var options []option.RequestOption
	if cfg.APIKey != "" {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		options = append(options, option.WithBaseURL(base))
	}
	if cfg.HTTPClient != nil {
		options = append(options, option.WithHTTPClient(cfg.HTTPClient))
	}
	for k, v := range cfg.Headers {
		options = append(options, option.WithHeader(k, v))
	}
	options = append(options, extra...)

	return &Provider{
		id:           id,
		defaultModel: defaultModel,
		client:       openai.NewClient(options...),
	}
}

// ID reports which provider this capability serves.
func (p *Provider) ID() provider.ID {
	return p.id
}

func (p *Provider) buildRequest(params *provider.CallOptions) (openai.ChatCompletionNewParams, []string, error) {
	var warnings []string

	tools := make([]openai.ChatCompletionToolParam, len(params.Tools))
	for i, tool := range params.Tools {
		jv, err := tool.ParametersMap()
		if err != nil {
			return openai.ChatCompletionNewParams{}, nil, fmt.Errorf("failed to convert parameters of tool %s: %w", tool.Name, err)
		}

		def := openai.FunctionDefinitionParam{
			Name:       openai.String(tool.Name),
			Parameters: openai.F(shared.FunctionParameters(jv)),
		}
		if strings.TrimSpace(tool.Description) != "" {
			def.Description = openai.String(tool.Description)
		}

		tools[i] = openai.ChatCompletionToolParam{
			Type:     openai.F(openai.ChatCompletionToolTypeFunction),
			Function: openai.F(def),
		}
	}

	model := params.Model
	if model == "" {
		model = p.defaultModel
	}

	oaiParams := openai.ChatCompletionNewParams{
		Messages: openai.F(messagesToOpenAI(params.Prompt)),
		Model:    openai.F(model),
		N:        openai.Int(1),
	}
	if params.MaxTokens > 0 {
		oaiParams.MaxCompletionTokens = openai.Int(params.MaxTokens)
	}
	if params.Temperature != nil {
		oaiParams.Temperature = openai.Float(*params.Temperature)
	}
	if params.TopP != nil {
		oaiParams.TopP = openai.Float(*params.TopP)
	}
	if params.Seed != nil {
		oaiParams.Seed = openai.Int(*params.Seed)
	}
	if params.TopK != nil {
		warnings = append(warnings, fmt.Sprintf("top_k is not supported by %s", p.id))
	}
	if len(params.StopSequences) > 0 {
		oaiParams.Stop = openai.F[openai.ChatCompletionNewParamsStopUnion](openai.ChatCompletionNewParamsStopArray(params.StopSequences))
	}
	if len(tools) > 0 {
		oaiParams.Tools = openai.F(tools)
		oaiParams.ParallelToolCalls = openai.Bool(true)
	}

	return oaiParams, warnings, nil
}

// Generate performs a single chat completion.
func (p *Provider) Generate(ctx context.Context, params provider.CallOptions) (*provider.Response, error) {
	chatParams, warnings, err := p.buildRequest(&params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	chat, err := p.client.Chat.Completions.New(ctx, chatParams)
	if err != nil {
		return nil, err
	}

	resp := completionToResponse(chat)
	resp.Warnings = warnings
	return resp, nil
}

// Stream performs a streaming chat completion. The HTTP request is sent when
// the events are first ranged over.
func (p *Provider) Stream(ctx context.Context, params provider.CallOptions) (*provider.StreamResponse, error) {
	chatParams, warnings, err := p.buildRequest(&params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	chatParams.StreamOptions = openai.F(openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	})

	events := func(yield func(provider.StreamEvent) bool) {
		p.runStream(ctx, chatParams, params.RunID, yield)
	}

	return &provider.StreamResponse{
		Events:   provider.SingleUse(params.RunID, events),
		Warnings: warnings,
	}, nil
}

func (p *Provider) runStream(ctx context.Context, params openai.ChatCompletionNewParams, runID uuid.UUID, yield func(provider.StreamEvent) bool) {
	strm := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer strm.Close()

	var acc openai.ChatCompletionAccumulator
	for strm.Next() {
		chunk := strm.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if !yield(provider.TextDelta{
			RunID:     runID,
			Text:      chunk.Choices[0].Delta.Content,
			Timestamp: provider.Now(),
		}) {
			return
		}
	}

	if err := strm.Err(); err != nil {
		yield(provider.Error{RunID: runID, Err: err, Timestamp: provider.Now()})
		return
	}
	if err := ctx.Err(); err != nil {
		yield(provider.Error{RunID: runID, Err: err, Timestamp: provider.Now()})
		return
	}

	var reason provider.FinishReason = provider.FinishUnknown
	if len(acc.Choices) > 0 {
		for _, tc := range acc.Choices[0].Message.ToolCalls {
			if !yield(provider.ToolCallEvent{
				RunID:     runID,
				ToolCall:  provider.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments},
				Timestamp: provider.Now(),
			}) {
				return
			}
		}
		reason = finishReason(string(acc.Choices[0].FinishReason))
	}

	yield(provider.Finish{
		RunID:     runID,
		Reason:    reason,
		Usage:     provider.Usage{InputTokens: acc.Usage.PromptTokens, OutputTokens: acc.Usage.CompletionTokens},
		Timestamp: provider.Now(),
	})
}

func messagesToOpenAI(prompt messages.Prompt) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(prompt))
	for _, message := range prompt {
		switch message.Role {
		case messages.RoleSystem:
			result = append(result, openai.SystemMessage(message.Text()))
		case messages.RoleUser:
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(message.Content))
			for _, part := range message.Content {
				switch part := part.(type) {
				case messages.TextContentPart:
					parts = append(parts, openai.TextPart(part.Text))
				case messages.ImageContentPart:
					parts = append(parts, openai.ImagePart(part.DataURL()))
				}
			}
			if len(parts) > 0 {
				result = append(result, openai.UserMessageParts(parts...))
			}
		case messages.RoleAssistant:
			var tcd []openai.ChatCompletionMessageToolCallParam
			for _, part := range message.Content {
				if tc, ok := part.(messages.ToolCallContentPart); ok {
					tcd = append(tcd, openai.ChatCompletionMessageToolCallParam{
						ID:   openai.String(tc.ID),
						Type: openai.F(openai.ChatCompletionMessageToolCallTypeFunction),
						Function: openai.F(openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      openai.String(tc.Name),
							Arguments: openai.String(tc.Arguments),
						}),
					})
				}
			}
			if len(tcd) == 0 {
				result = append(result, openai.AssistantMessage(message.Text()))
				continue
			}
			am := openai.ChatCompletionMessageParam{
				Role:      openai.F(openai.ChatCompletionMessageParamRoleAssistant),
				ToolCalls: openai.F[any](tcd),
			}
			if text := message.Text(); text != "" {
				am.Content = openai.F[any](text)
			}
			result = append(result, am)
		case messages.RoleTool:
			for _, part := range message.Content {
				if tr, ok := part.(messages.ToolResultContentPart); ok {
					result = append(result, openai.ToolMessage(tr.ToolCallID, tr.Result))
				}
			}
		}
	}
	return result
}

func completionToResponse(chat *openai.ChatCompletion) *provider.Response {
	resp := &provider.Response{
		ID:           chat.ID,
		Model:        chat.Model,
		FinishReason: provider.FinishUnknown,
		Usage: provider.Usage{
			InputTokens:  chat.Usage.PromptTokens,
			OutputTokens: chat.Usage.CompletionTokens,
		},
	}
	if len(chat.Choices) == 0 {
		return resp
	}

	choice := chat.Choices[0]
	resp.Text = choice.Message.Content
	resp.FinishReason = finishReason(string(choice.FinishReason))
	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return resp
}

func finishReason(reason string) provider.FinishReason {
	switch reason {
	case "stop":
		return provider.FinishStop
	case "length":
		return provider.FinishLength
	case "tool_calls", "function_call":
		return provider.FinishToolCalls
	case "content_filter":
		return provider.FinishContentFilter
	case "":
		return provider.FinishUnknown
	default:
		return provider.FinishOther
	}
}

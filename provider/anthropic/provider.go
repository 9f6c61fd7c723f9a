// Package anthropic implements provider.Capability for Anthropic's Messages API.
//
// System messages are lifted out of the prompt and sent as the system parameter,
// joined in prompt order, so a memory block prepended to the prompt reaches the
// model ahead of the caller's own instructions.
package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/casualjim/zentry/messages"
	"github.com/casualjim/zentry/provider"
	"github.com/google/uuid"
)

const (
	// DefaultModel is used when the call options don't name a model.
	DefaultModel = anthropic.ModelClaude3_5HaikuLatest

	// DefaultMaxTokens is sent when the call options leave MaxTokens unset,
	// the Messages API requires it.
	DefaultMaxTokens int64 = 4096
)

var _ provider.Capability = (*Provider)(nil)

// Provider talks to the Anthropic Messages API.
type Provider struct {
	client anthropic.Client
}

// New creates an Anthropic capability. The API key falls back to ANTHROPIC_API_KEY.
func New(cfg provider.Config, extra ...option.RequestOption) *Provider {
	var options []option.RequestOption
	if cfg.APIKey != "" {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		options = append(options, option.WithHTTPClient(cfg.HTTPClient))
	}
	for k, v := range cfg.Headers {
		options = append(options, option.WithHeader(k, v))
	}
	options = append(options, extra...)

	return &Provider{client: anthropic.NewClient(options...)}
}

func (p *Provider) buildRequest(params *provider.CallOptions) (anthropic.MessageNewParams, error) {
	model := params.Model
	if model == "" {
		model = string(DefaultModel)
	}
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	msgs, err := messagesToAnthropic(params.Prompt.WithoutSystem())
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	req := anthropic.MessageNewParams{
		Model:         anthropic.Model(model),
		MaxTokens:     maxTokens,
		Messages:      msgs,
		StopSequences: params.StopSequences,
	}
	if system := params.Prompt.SystemText(); system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if params.Temperature != nil {
		req.Temperature = anthropic.Float(*params.Temperature)
	}
	if params.TopP != nil {
		req.TopP = anthropic.Float(*params.TopP)
	}
	if params.TopK != nil {
		req.TopK = anthropic.Int(*params.TopK)
	}

	for _, tool := range params.Tools {
		props, err := tool.PropertiesMap()
		if err != nil {
			return anthropic.MessageNewParams{}, fmt.Errorf("failed to convert parameters of tool %s: %w", tool.Name, err)
		}
		toolParam := anthropic.ToolParam{
			Name:        tool.Name,
			InputSchema: anthropic.ToolInputSchemaParam{Properties: props},
		}
		if strings.TrimSpace(tool.Description) != "" {
			toolParam.Description = anthropic.String(tool.Description)
		}
		req.Tools = append(req.Tools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}

	return req, nil
}

func warnings(params *provider.CallOptions) []string {
	if params.Seed != nil {
		return []string{"seed is not supported by anthropic"}
	}
	return nil
}

// Generate sends a single Messages request.
func (p *Provider) Generate(ctx context.Context, params provider.CallOptions) (*provider.Response, error) {
	req, err := p.buildRequest(&params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	msg, err := p.client.Messages.New(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := messageToResponse(msg)
	resp.Warnings = warnings(&params)
	return resp, nil
}

// Stream sends a streaming Messages request when the events are first ranged over.
func (p *Provider) Stream(ctx context.Context, params provider.CallOptions) (*provider.StreamResponse, error) {
	req, err := p.buildRequest(&params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	events := func(yield func(provider.StreamEvent) bool) {
		p.runStream(ctx, req, params.RunID, yield)
	}
	return &provider.StreamResponse{
		Events:   provider.SingleUse(params.RunID, events),
		Warnings: warnings(&params),
	}, nil
}

func (p *Provider) runStream(ctx context.Context, req anthropic.MessageNewParams, runID uuid.UUID, yield func(provider.StreamEvent) bool) {
	stream := p.client.Messages.NewStreaming(ctx, req)
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			yield(provider.Error{RunID: runID, Err: fmt.Errorf("failed to accumulate message event: %w", err), Timestamp: provider.Now()})
			return
		}

		switch event := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if event.Delta.Text == "" {
				continue
			}
			if !yield(provider.TextDelta{RunID: runID, Text: event.Delta.Text, Timestamp: provider.Now()}) {
				return
			}
		case anthropic.MessageStopEvent:
			for _, tc := range toolCalls(&message) {
				if !yield(provider.ToolCallEvent{RunID: runID, ToolCall: tc, Timestamp: provider.Now()}) {
					return
				}
			}
			if !yield(provider.Finish{
				RunID:     runID,
				Reason:    finishReason(string(message.StopReason)),
				Usage:     provider.Usage{InputTokens: message.Usage.InputTokens, OutputTokens: message.Usage.OutputTokens},
				Timestamp: provider.Now(),
			}) {
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		yield(provider.Error{RunID: runID, Err: err, Timestamp: provider.Now()})
	}
}

func messagesToAnthropic(prompt messages.Prompt) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(prompt))
	for _, message := range prompt {
		var blocks []anthropic.ContentBlockParamUnion
		for _, part := range message.Content {
			switch part := part.(type) {
			case messages.TextContentPart:
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			case messages.ImageContentPart:
				if part.URL != "" {
					blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: part.URL}))
				} else {
					blocks = append(blocks, anthropic.NewImageBlockBase64(part.MediaType, base64.StdEncoding.EncodeToString(part.Data)))
				}
			case messages.ToolCallContentPart:
				var input any = json.RawMessage("{}")
				if strings.TrimSpace(part.Arguments) != "" {
					if !json.Valid([]byte(part.Arguments)) {
						return nil, fmt.Errorf("tool call %s has invalid arguments", part.ID)
					}
					input = json.RawMessage(part.Arguments)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(part.ID, input, part.Name))
			case messages.ToolResultContentPart:
				blocks = append(blocks, anthropic.NewToolResultBlock(part.ToolCallID, part.Result, part.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}

		switch message.Role {
		case messages.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		default:
			// user and tool messages both travel as user turns
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
	}
	return result, nil
}

func toolCalls(msg *anthropic.Message) []provider.ToolCall {
	var calls []provider.ToolCall
	for _, block := range msg.Content {
		if tu, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			calls = append(calls, provider.ToolCall{ID: tu.ID, Name: tu.Name, Arguments: string(tu.Input)})
		}
	}
	return calls
}

func messageToResponse(msg *anthropic.Message) *provider.Response {
	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	return &provider.Response{
		ID:           msg.ID,
		Model:        string(msg.Model),
		Text:         text.String(),
		ToolCalls:    toolCalls(msg),
		FinishReason: finishReason(string(msg.StopReason)),
		Usage:        provider.Usage{InputTokens: msg.Usage.InputTokens, OutputTokens: msg.Usage.OutputTokens},
	}
}

func finishReason(reason string) provider.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return provider.FinishStop
	case "max_tokens":
		return provider.FinishLength
	case "tool_use":
		return provider.FinishToolCalls
	case "refusal":
		return provider.FinishContentFilter
	case "":
		return provider.FinishUnknown
	default:
		return provider.FinishOther
	}
}

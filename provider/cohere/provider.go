// Package cohere implements provider.Capability on Cohere's chat API.
//
// Cohere takes the conversation as a preamble, a chat history and a current
// message, so the prompt is split accordingly: system text becomes the preamble,
// the trailing user message becomes the message, and trailing tool messages
// become tool results.
package cohere

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/casualjim/zentry/messages"
	"github.com/casualjim/zentry/provider"
	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"
	"github.com/go-openapi/swag"
	"github.com/google/uuid"
)

// DefaultModel is used when the call options don't name a model.
const DefaultModel = "command-r-plus"

var _ provider.Capability = (*Provider)(nil)

// Provider talks to the Cohere chat API.
type Provider struct {
	client *cohereclient.Client
}

// New creates a Cohere capability. The API key falls back to COHERE_API_KEY.
func New(cfg provider.Config) *Provider {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("COHERE_API_KEY")
	}

	options := []option.RequestOption{option.WithToken(key)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	if cfg.HTTPClient != nil {
		options = append(options, option.WithHTTPClient(cfg.HTTPClient))
	}
	if len(cfg.Headers) > 0 {
		header := make(http.Header, len(cfg.Headers))
		for k, v := range cfg.Headers {
			header.Set(k, v)
		}
		options = append(options, option.WithHTTPHeader(header))
	}

	return &Provider{client: cohereclient.NewClient(options...)}
}

// chatRequest is the provider independent shape of a Cohere chat call,
// shared by the streaming and non-streaming requests.
type chatRequest struct {
	Model         *string
	Preamble      *string
	Message       string
	ChatHistory   []*cohere.Message
	ToolResults   []*cohere.ToolResult
	Tools         []*cohere.Tool
	MaxTokens     *int
	Temperature   *float64
	P             *float64
	K             *int
	Seed          *int
	StopSequences []string
}

func buildRequest(params *provider.CallOptions) (chatRequest, error) {
	model := params.Model
	if model == "" {
		model = DefaultModel
	}

	req := chatRequest{
		Model:         swag.String(model),
		StopSequences: params.StopSequences,
	}
	if system := params.Prompt.SystemText(); system != "" {
		req.Preamble = swag.String(system)
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = swag.Int(int(params.MaxTokens))
	}
	if params.Temperature != nil {
		req.Temperature = swag.Float64(*params.Temperature)
	}
	if params.TopP != nil {
		req.P = swag.Float64(*params.TopP)
	}
	if params.TopK != nil {
		req.K = swag.Int(int(*params.TopK))
	}
	if params.Seed != nil {
		req.Seed = swag.Int(int(*params.Seed))
	}

	var err error
	if req.Message, req.ChatHistory, req.ToolResults, err = splitPrompt(params.Prompt.WithoutSystem()); err != nil {
		return chatRequest{}, err
	}
	if req.Tools, err = toolsToCohere(params.Tools); err != nil {
		return chatRequest{}, err
	}
	return req, nil
}

func (r chatRequest) chat() *cohere.ChatRequest {
	return &cohere.ChatRequest{
		Model:         r.Model,
		Preamble:      r.Preamble,
		Message:       r.Message,
		ChatHistory:   r.ChatHistory,
		ToolResults:   r.ToolResults,
		Tools:         r.Tools,
		MaxTokens:     r.MaxTokens,
		Temperature:   r.Temperature,
		P:             r.P,
		K:             r.K,
		Seed:          r.Seed,
		StopSequences: r.StopSequences,
	}
}

func (r chatRequest) stream() *cohere.ChatStreamRequest {
	return &cohere.ChatStreamRequest{
		Model:         r.Model,
		Preamble:      r.Preamble,
		Message:       r.Message,
		ChatHistory:   r.ChatHistory,
		ToolResults:   r.ToolResults,
		Tools:         r.Tools,
		MaxTokens:     r.MaxTokens,
		Temperature:   r.Temperature,
		P:             r.P,
		K:             r.K,
		Seed:          r.Seed,
		StopSequences: r.StopSequences,
	}
}

// Generate performs a single chat call.
func (p *Provider) Generate(ctx context.Context, params provider.CallOptions) (*provider.Response, error) {
	req, err := buildRequest(&params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := p.client.Chat(ctx, req.chat())
	if err != nil {
		return nil, err
	}
	return chatToResponse(resp), nil
}

// Stream performs a streaming chat call when the events are first ranged over.
func (p *Provider) Stream(ctx context.Context, params provider.CallOptions) (*provider.StreamResponse, error) {
	req, err := buildRequest(&params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	events := func(yield func(provider.StreamEvent) bool) {
		p.runStream(ctx, req.stream(), params.RunID, yield)
	}
	return &provider.StreamResponse{Events: provider.SingleUse(params.RunID, events)}, nil
}

func (p *Provider) runStream(ctx context.Context, req *cohere.ChatStreamRequest, runID uuid.UUID, yield func(provider.StreamEvent) bool) {
	stream, err := p.client.ChatStream(ctx, req)
	if err != nil {
		yield(provider.Error{RunID: runID, Err: err, Timestamp: provider.Now()})
		return
	}
	defer stream.Close()

	for {
		event, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(provider.Error{RunID: runID, Err: err, Timestamp: provider.Now()})
			return
		}

		if tg := event.GetTextGeneration(); tg != nil && tg.GetText() != "" {
			if !yield(provider.TextDelta{RunID: runID, Text: tg.GetText(), Timestamp: provider.Now()}) {
				return
			}
		}
		if tcg := event.GetToolCallsGeneration(); tcg != nil {
			for _, tc := range tcg.GetToolCalls() {
				if !yield(provider.ToolCallEvent{RunID: runID, ToolCall: toolCallFromCohere(tc), Timestamp: provider.Now()}) {
					return
				}
			}
		}
		if end := event.GetStreamEnd(); end != nil {
			var usage provider.Usage
			if end.Response != nil {
				usage = usageFromMeta(end.Response.Meta)
			}
			yield(provider.Finish{
				RunID:     runID,
				Reason:    finishReason(string(end.FinishReason)),
				Usage:     usage,
				Timestamp: provider.Now(),
			})
			return
		}
	}
}

// splitPrompt maps a system-free prompt onto Cohere's message, history and tool results.
func splitPrompt(prompt messages.Prompt) (string, []*cohere.Message, []*cohere.ToolResult, error) {
	calls := make(map[string]messages.ToolCallContentPart)
	for _, msg := range prompt {
		for _, part := range msg.Content {
			if tc, ok := part.(messages.ToolCallContentPart); ok {
				calls[tc.ID] = tc
			}
		}
	}

	end := len(prompt)
	for end > 0 && prompt[end-1].Role == messages.RoleTool {
		end--
	}
	trailing := prompt[end:]

	var message string
	if len(trailing) == 0 && end > 0 && prompt[end-1].Role == messages.RoleUser {
		message = prompt[end-1].Text()
		end--
	}

	history := make([]*cohere.Message, 0, end)
	for _, msg := range prompt[:end] {
		switch msg.Role {
		case messages.RoleUser:
			history = append(history, &cohere.Message{Role: "USER", User: &cohere.ChatMessage{Message: msg.Text()}})
		case messages.RoleAssistant:
			cm := &cohere.ChatMessage{Message: msg.Text()}
			for _, part := range msg.Content {
				if tc, ok := part.(messages.ToolCallContentPart); ok {
					call, err := toolCallToCohere(tc)
					if err != nil {
						return "", nil, nil, err
					}
					cm.ToolCalls = append(cm.ToolCalls, call)
				}
			}
			history = append(history, &cohere.Message{Role: "CHATBOT", Chatbot: cm})
		case messages.RoleTool:
			results, err := toolResultsToCohere(msg, calls)
			if err != nil {
				return "", nil, nil, err
			}
			history = append(history, &cohere.Message{Role: "TOOL", Tool: &cohere.ToolMessage{ToolResults: results}})
		}
	}

	var results []*cohere.ToolResult
	for _, msg := range trailing {
		r, err := toolResultsToCohere(msg, calls)
		if err != nil {
			return "", nil, nil, err
		}
		results = append(results, r...)
	}
	return message, history, results, nil
}

func toolCallToCohere(tc messages.ToolCallContentPart) (*cohere.ToolCall, error) {
	params := map[string]any{}
	if strings.TrimSpace(tc.Arguments) != "" {
		if err := json.Unmarshal([]byte(tc.Arguments), &params); err != nil {
			return nil, fmt.Errorf("tool call %s has invalid arguments: %w", tc.ID, err)
		}
	}
	return &cohere.ToolCall{Name: tc.Name, Parameters: params}, nil
}

func toolResultsToCohere(msg messages.Message, calls map[string]messages.ToolCallContentPart) ([]*cohere.ToolResult, error) {
	var results []*cohere.ToolResult
	for _, part := range msg.Content {
		tr, ok := part.(messages.ToolResultContentPart)
		if !ok {
			continue
		}
		call, known := calls[tr.ToolCallID]
		if !known {
			call = messages.ToolCall(tr.ToolCallID, tr.Name, "")
		}
		cc, err := toolCallToCohere(call)
		if err != nil {
			return nil, err
		}

		output := map[string]any{}
		if err := json.Unmarshal([]byte(tr.Result), &output); err != nil {
			output = map[string]any{"result": tr.Result}
		}
		if tr.IsError {
			output["is_error"] = true
		}
		results = append(results, &cohere.ToolResult{Call: cc, Outputs: []map[string]any{output}})
	}
	return results, nil
}

func toolsToCohere(tools []provider.Tool) ([]*cohere.Tool, error) {
	out := make([]*cohere.Tool, 0, len(tools))
	for _, tool := range tools {
		props, err := tool.PropertiesMap()
		if err != nil {
			return nil, fmt.Errorf("failed to convert parameters of tool %s: %w", tool.Name, err)
		}
		required := tool.ParametersSchema().Required

		defs := make(map[string]*cohere.ToolParameterDefinitionsValue, props.Len())
		for pair := props.Oldest(); pair != nil; pair = pair.Next() {
			def := &cohere.ToolParameterDefinitionsValue{
				Type:     jsonType(pair.Value["type"]),
				Required: swag.Bool(slices.Contains(required, pair.Key)),
			}
			if desc, ok := pair.Value["description"].(string); ok && desc != "" {
				def.Description = swag.String(desc)
			}
			defs[pair.Key] = def
		}

		out = append(out, &cohere.Tool{
			Name:                 tool.Name,
			Description:          tool.Description,
			ParameterDefinitions: defs,
		})
	}
	return out, nil
}

func jsonType(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return s
			}
		}
	}
	return "object"
}

func toolCallFromCohere(tc *cohere.ToolCall) provider.ToolCall {
	args, err := json.Marshal(tc.Parameters)
	if err != nil {
		args = []byte("{}")
	}
	return provider.ToolCall{Name: tc.Name, Arguments: string(args)}
}

func chatToResponse(resp *cohere.NonStreamedChatResponse) *provider.Response {
	out := &provider.Response{
		Text:         resp.GetText(),
		FinishReason: provider.FinishUnknown,
		Usage:        usageFromMeta(resp.Meta),
	}
	if resp.GenerationId != nil {
		out.ID = *resp.GenerationId
	}
	if resp.FinishReason != nil {
		out.FinishReason = finishReason(string(*resp.FinishReason))
	}
	for _, tc := range resp.GetToolCalls() {
		out.ToolCalls = append(out.ToolCalls, toolCallFromCohere(tc))
	}
	if len(out.ToolCalls) > 0 && out.FinishReason == provider.FinishStop {
		out.FinishReason = provider.FinishToolCalls
	}
	return out
}

func usageFromMeta(meta *cohere.ApiMeta) provider.Usage {
	if meta == nil || meta.BilledUnits == nil {
		return provider.Usage{}
	}
	return provider.Usage{
		InputTokens:  int64(swag.Float64Value(meta.BilledUnits.InputTokens)),
		OutputTokens: int64(swag.Float64Value(meta.BilledUnits.OutputTokens)),
	}
}

func finishReason(reason string) provider.FinishReason {
	switch reason {
	case "COMPLETE", "STOP_SEQUENCE":
		return provider.FinishStop
	case "MAX_TOKENS":
		return provider.FinishLength
	case "ERROR_TOXIC":
		return provider.FinishContentFilter
	case "ERROR", "ERROR_LIMIT":
		return provider.FinishError
	case "":
		return provider.FinishUnknown
	default:
		return provider.FinishOther
	}
}

// Package google implements provider.Capability on the Gemini API through
// google.golang.org/genai.
//
// The genai client is created on the first call rather than in New, since
// building it may resolve credentials.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/casualjim/zentry/messages"
	"github.com/casualjim/zentry/provider"
	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"google.golang.org/genai"
)

// DefaultModel is used when the call options don't name a model.
const DefaultModel = "gemini-2.0-flash"

var _ provider.Capability = (*Provider)(nil)

// Provider talks to the Gemini API.
type Provider struct {
	cfg provider.Config

	once    sync.Once
	client  *genai.Client
	initErr error
}

// New creates a Google capability. The API key falls back to GOOGLE_API_KEY
// and then GEMINI_API_KEY.
func New(cfg provider.Config) *Provider {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) genaiClient(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		cc := &genai.ClientConfig{
			APIKey:     p.cfg.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: p.cfg.HTTPClient,
		}
		if p.cfg.BaseURL != "" {
			cc.HTTPOptions.BaseURL = p.cfg.BaseURL
		}
		if len(p.cfg.Headers) > 0 {
			cc.HTTPOptions.Headers = make(http.Header, len(p.cfg.Headers))
			for k, v := range p.cfg.Headers {
				cc.HTTPOptions.Headers.Set(k, v)
			}
		}
		p.client, p.initErr = genai.NewClient(ctx, cc)
	})
	return p.client, p.initErr
}

type request struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func buildRequest(params *provider.CallOptions) (request, error) {
	model := params.Model
	if model == "" {
		model = DefaultModel
	}

	config := &genai.GenerateContentConfig{
		StopSequences: params.StopSequences,
	}
	if system := params.Prompt.SystemText(); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if params.MaxTokens > 0 {
		config.MaxOutputTokens = int32(params.MaxTokens)
	}
	if params.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*params.Temperature))
	}
	if params.TopP != nil {
		config.TopP = genai.Ptr(float32(*params.TopP))
	}
	if params.TopK != nil {
		config.TopK = genai.Ptr(float32(*params.TopK))
	}
	if params.Seed != nil {
		config.Seed = genai.Ptr(int32(*params.Seed))
	}
	if len(params.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(params.Tools))
		for i, tool := range params.Tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  schemaToGenai(tool.ParametersSchema()),
			}
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	contents, err := messagesToGenai(params.Prompt.WithoutSystem())
	if err != nil {
		return request{}, err
	}
	return request{model: model, contents: contents, config: config}, nil
}

// Generate performs a single GenerateContent call.
func (p *Provider) Generate(ctx context.Context, params provider.CallOptions) (*provider.Response, error) {
	req, err := buildRequest(&params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	client, err := p.genaiClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, req.model, req.contents, req.config)
	if err != nil {
		return nil, err
	}
	return contentToResponse(resp), nil
}

// Stream performs a GenerateContentStream call when the events are first ranged over.
func (p *Provider) Stream(ctx context.Context, params provider.CallOptions) (*provider.StreamResponse, error) {
	req, err := buildRequest(&params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	events := func(yield func(provider.StreamEvent) bool) {
		p.runStream(ctx, req, params.RunID, yield)
	}
	return &provider.StreamResponse{Events: provider.SingleUse(params.RunID, events)}, nil
}

func (p *Provider) runStream(ctx context.Context, req request, runID uuid.UUID, yield func(provider.StreamEvent) bool) {
	client, err := p.genaiClient(ctx)
	if err != nil {
		yield(provider.Error{RunID: runID, Err: fmt.Errorf("failed to create genai client: %w", err), Timestamp: provider.Now()})
		return
	}

	reason := provider.FinishUnknown
	var usage provider.Usage
	var sawToolCall bool
	for resp, err := range client.Models.GenerateContentStream(ctx, req.model, req.contents, req.config) {
		if err != nil {
			yield(provider.Error{RunID: runID, Err: err, Timestamp: provider.Now()})
			return
		}
		if resp == nil {
			continue
		}
		if resp.UsageMetadata != nil {
			usage = usageFromMetadata(resp.UsageMetadata)
		}
		if len(resp.Candidates) == 0 {
			continue
		}

		cand := resp.Candidates[0]
		if cand.FinishReason != "" {
			reason = finishReason(string(cand.FinishReason))
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				sawToolCall = true
				if !yield(provider.ToolCallEvent{RunID: runID, ToolCall: toolCallFromGenai(part.FunctionCall), Timestamp: provider.Now()}) {
					return
				}
			case part.Text != "" && !part.Thought:
				if !yield(provider.TextDelta{RunID: runID, Text: part.Text, Timestamp: provider.Now()}) {
					return
				}
			}
		}
	}

	if sawToolCall && reason == provider.FinishStop {
		reason = provider.FinishToolCalls
	}
	yield(provider.Finish{RunID: runID, Reason: reason, Usage: usage, Timestamp: provider.Now()})
}

func messagesToGenai(prompt messages.Prompt) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(prompt))
	for _, msg := range prompt {
		var parts []*genai.Part
		for _, part := range msg.Content {
			switch part := part.(type) {
			case messages.TextContentPart:
				parts = append(parts, &genai.Part{Text: part.Text})
			case messages.ImageContentPart:
				if len(part.Data) > 0 {
					parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: part.MediaType, Data: part.Data}})
				} else {
					parts = append(parts, &genai.Part{FileData: &genai.FileData{FileURI: part.URL, MIMEType: part.MediaType}})
				}
			case messages.ToolCallContentPart:
				args := map[string]any{}
				if strings.TrimSpace(part.Arguments) != "" {
					if err := json.Unmarshal([]byte(part.Arguments), &args); err != nil {
						return nil, fmt.Errorf("tool call %s has invalid arguments: %w", part.ID, err)
					}
				}
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: part.ID, Name: part.Name, Args: args}})
			case messages.ToolResultContentPart:
				response := map[string]any{"content": part.Result}
				if part.IsError {
					response["error"] = map[string]any{"message": part.Result}
				}
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{ID: part.ToolCallID, Name: part.Name, Response: response}})
			}
		}
		if len(parts) == 0 {
			continue
		}

		role := genai.RoleUser
		if msg.Role == messages.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out, nil
}

// schemaToGenai converts a JSON schema into the OpenAPI subset Gemini accepts.
func schemaToGenai(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genaiType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Items:       schemaToGenai(s.Items),
	}
	for _, v := range s.Enum {
		out.Enum = append(out.Enum, fmt.Sprint(v))
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		out.Properties = make(map[string]*genai.Schema, s.Properties.Len())
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			out.Properties[pair.Key] = schemaToGenai(pair.Value)
			out.PropertyOrdering = append(out.PropertyOrdering, pair.Key)
		}
	}
	return out
}

func genaiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeObject
	}
}

func toolCallFromGenai(fc *genai.FunctionCall) provider.ToolCall {
	args, err := json.Marshal(fc.Args)
	if err != nil {
		args = []byte("{}")
	}
	return provider.ToolCall{ID: fc.ID, Name: fc.Name, Arguments: string(args)}
}

func contentToResponse(resp *genai.GenerateContentResponse) *provider.Response {
	out := &provider.Response{
		ID:           resp.ResponseID,
		Model:        resp.ModelVersion,
		FinishReason: provider.FinishUnknown,
	}
	if resp.UsageMetadata != nil {
		out.Usage = usageFromMetadata(resp.UsageMetadata)
	}
	if len(resp.Candidates) == 0 {
		return out
	}

	cand := resp.Candidates[0]
	out.FinishReason = finishReason(string(cand.FinishReason))
	if cand.Content != nil {
		var text strings.Builder
		for _, part := range cand.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				out.ToolCalls = append(out.ToolCalls, toolCallFromGenai(part.FunctionCall))
			case !part.Thought:
				text.WriteString(part.Text)
			}
		}
		out.Text = text.String()
	}
	if len(out.ToolCalls) > 0 && out.FinishReason == provider.FinishStop {
		out.FinishReason = provider.FinishToolCalls
	}
	return out
}

func usageFromMetadata(md *genai.GenerateContentResponseUsageMetadata) provider.Usage {
	return provider.Usage{
		InputTokens:  int64(md.PromptTokenCount),
		OutputTokens: int64(md.CandidatesTokenCount),
	}
}

func finishReason(reason string) provider.FinishReason {
	switch reason {
	case "STOP":
		return provider.FinishStop
	case "MAX_TOKENS":
		return provider.FinishLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return provider.FinishContentFilter
	case "MALFORMED_FUNCTION_CALL":
		return provider.FinishError
	case "", "FINISH_REASON_UNSPECIFIED":
		return provider.FinishUnknown
	default:
		return provider.FinishOther
	}
}

package provider

import (
	"context"
	"iter"
	"net/http"

	"github.com/casualjim/zentry/messages"
	"github.com/google/uuid"
)

// Capability is the contract every provider implements. Both operations take
// the same normalized call options. Implementations must not perform network
// I/O when they are constructed.
type Capability interface {
	// Generate performs a single-shot completion.
	Generate(ctx context.Context, opts CallOptions) (*Response, error)

	// Stream starts a streaming completion. The request is sent when the
	// returned Events sequence is first ranged over.
	Stream(ctx context.Context, opts CallOptions) (*StreamResponse, error)
}

// Config holds the credentials and transport settings used to build a provider client.
type Config struct {
	// APIKey is the provider credential. When empty the vendor's environment
	// variable is used.
	APIKey string

	// BaseURL overrides the vendor endpoint.
	BaseURL string

	// HTTPClient overrides the transport used by the vendor SDK.
	HTTPClient *http.Client

	// Headers are added to every request.
	Headers map[string]string

	// Prevents unkeyed literals
	_ struct{}
}

// CallOptions are the normalized parameters for one model call.
type CallOptions struct {
	// RunID correlates events produced by this call
	RunID uuid.UUID

	// Model is the vendor model id, e.g. "gpt-4o-mini"
	Model string

	// Prompt is the conversation sent to the model
	Prompt messages.Prompt

	MaxTokens     int64
	Temperature   *float64
	TopP          *float64
	TopK          *int64
	Seed          *int64
	StopSequences []string

	// Tools defines the functions the model may call
	Tools []Tool

	// Prevents unkeyed literals
	_ struct{}
}

// WithPrompt returns a copy of the options with the prompt replaced.
func (o CallOptions) WithPrompt(prompt messages.Prompt) CallOptions {
	o.Prompt = prompt
	return o
}

// FinishReason describes why the model stopped generating.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool-calls"
	FinishContentFilter FinishReason = "content-filter"
	FinishError         FinishReason = "error"
	FinishOther         FinishReason = "other"
	FinishUnknown       FinishReason = "unknown"
)

// ToolCall is a function invocation requested by the model. Arguments is raw JSON.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Usage reports token accounting for a call.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// Response is the result of a single-shot completion.
type Response struct {
	ID           string
	Model        string
	Text         string
	ToolCalls    []ToolCall
	FinishReason FinishReason
	Usage        Usage
	Sources      []Source
	Warnings     []string
}

// Clone returns a shallow copy of the response with its own slices.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	cp := *r
	cp.ToolCalls = append([]ToolCall(nil), r.ToolCalls...)
	cp.Sources = append([]Source(nil), r.Sources...)
	cp.Warnings = append([]string(nil), r.Warnings...)
	return &cp
}

// StreamResponse is the result of a streaming completion.
// Events may be ranged over once.
type StreamResponse struct {
	Events   iter.Seq[StreamEvent]
	Warnings []string
}

package memory

import (
	"context"
	"errors"

	"github.com/casualjim/zentry/messages"
)

const (
	// DefaultTopK is the number of memories requested when Config.TopK is unset.
	DefaultTopK = 10

	// OutputFormatV1 returns search results as a bare array.
	OutputFormatV1 = "v1.0"
	// OutputFormatV11 returns search results as {results, relations}.
	OutputFormatV11 = "v1.1"
)

// Scope identifies whose memories are read and written.
type Scope struct {
	UserID    string
	AgentID   string
	RunID     string
	AppID     string
	OrgID     string
	ProjectID string
}

// IsZero reports whether no identifier is set.
func (s Scope) IsZero() bool {
	return s == Scope{}
}

// Config scopes and tunes one memory read or write.
type Config struct {
	Scope

	TopK         int
	Threshold    *float64
	Rerank       bool
	EnableGraph  bool
	OutputFormat string
	Metadata     map[string]any
	Filters      map[string]any
}

// Validate reports every problem with the config at once.
func (c Config) Validate() error {
	var errs []error
	if c.Scope.IsZero() {
		errs = append(errs, errors.New("at least one of user_id, agent_id, run_id or app_id is required"))
	}
	if c.TopK < 0 {
		errs = append(errs, errors.New("top_k must not be negative"))
	}
	if c.Threshold != nil && (*c.Threshold < 0 || *c.Threshold > 1) {
		errs = append(errs, errors.New("threshold must be between 0 and 1"))
	}
	switch c.OutputFormat {
	case "", OutputFormatV1, OutputFormatV11:
	default:
		errs = append(errs, errors.New("output_format must be v1.0 or v1.1"))
	}
	return errors.Join(errs...)
}

// Limit returns TopK or DefaultTopK when it is unset.
func (c Config) Limit() int {
	if c.TopK <= 0 {
		return DefaultTopK
	}
	return c.TopK
}

// Format returns the output format the store should answer with. Graph mode
// needs the v1.1 shape to carry relations.
func (c Config) Format() string {
	if c.OutputFormat == "" || c.EnableGraph {
		return OutputFormatV11
	}
	return c.OutputFormat
}

// Store is the memory store the augmenter reads from and writes to.
type Store interface {
	// Add persists the conversation so future calls can recall it.
	Add(ctx context.Context, prompt messages.Prompt, cfg Config) error
	// Search returns the memories relevant to query.
	Search(ctx context.Context, query string, cfg Config) (SearchResult, error)
}

// Package hosted is a memory.Store backed by the hosted memory API.
package hosted

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/casualjim/zentry/memory"
	"github.com/casualjim/zentry/messages"
	"github.com/fogfish/opts"
	"github.com/tidwall/sjson"
)

const (
	// DefaultHost is the hosted memory API.
	DefaultHost = "https://api.zentry.gg"

	addPath    = "/v1/memories/"
	searchPath = "/v1/memories/search/"

	maxErrorBody = 512
)

var _ memory.Store = (*Client)(nil)

// StatusError is returned when the memory API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("memory store returned %d", e.StatusCode)
	}
	return fmt.Sprintf("memory store returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the hosted memory API.
type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

var (
	// WithHost overrides DefaultHost.
	WithHost = opts.ForName[Client, string]("host")
	// WithAPIKey sets the memory API key. It defaults to ZENTRY_API_KEY.
	WithAPIKey = opts.ForName[Client, string]("apiKey")
	// WithHTTPClient sets the HTTP client used for every request.
	WithHTTPClient = opts.ForName[Client, *http.Client]("httpClient")
)

// New creates a client for the hosted memory API.
func New(options ...opts.Option[Client]) (*Client, error) {
	c := &Client{
		host:       DefaultHost,
		apiKey:     os.Getenv("ZENTRY_API_KEY"),
		httpClient: http.DefaultClient,
	}
	if err := opts.Apply(c, options); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.host = strings.TrimRight(c.host, "/")
	return c, nil
}

func (c *Client) validate() error {
	var errs []error
	if c.apiKey == "" {
		errs = append(errs, errors.New("memory api key is required, set ZENTRY_API_KEY or use WithAPIKey"))
	}
	if c.host == "" {
		errs = append(errs, errors.New("memory host is required"))
	}
	if c.httpClient == nil {
		errs = append(errs, errors.New("http client is required"))
	}
	return errors.Join(errs...)
}

// Add stores the conversation in prompt. System messages are not sent.
func (c *Client) Add(ctx context.Context, prompt messages.Prompt, cfg memory.Config) error {
	body, err := addBody(prompt, cfg)
	if err != nil {
		return fmt.Errorf("failed to build add request: %w", err)
	}
	_, err = c.post(ctx, addPath, body)
	return err
}

// Search returns the memories relevant to query.
func (c *Client) Search(ctx context.Context, query string, cfg memory.Config) (memory.SearchResult, error) {
	body, err := searchBody(query, cfg)
	if err != nil {
		return memory.SearchResult{}, fmt.Errorf("failed to build search request: %w", err)
	}
	data, err := c.post(ctx, searchPath, body)
	if err != nil {
		return memory.SearchResult{}, err
	}
	return memory.DecodeSearchResult(data)
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: excerpt(data, maxErrorBody)}
	}
	return data, nil
}

// excerpt trims data to at most n bytes without splitting a rune.
func excerpt(data []byte, n int) string {
	text := strings.TrimSpace(string(data))
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

func addBody(prompt messages.Prompt, cfg memory.Config) ([]byte, error) {
	body := []byte(`{"messages":[]}`)
	var err error
	for _, msg := range prompt {
		if msg.Role == messages.RoleSystem {
			continue
		}
		text := msg.Text()
		if text == "" {
			continue
		}
		if body, err = sjson.SetBytes(body, "messages.-1", map[string]string{"role": msg.Role.String(), "content": text}); err != nil {
			return nil, err
		}
	}

	if body, err = setScope(body, cfg); err != nil {
		return nil, err
	}
	if len(cfg.Metadata) > 0 {
		if body, err = sjson.SetBytes(body, "metadata", cfg.Metadata); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func searchBody(query string, cfg memory.Config) ([]byte, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "query", query)
	if err != nil {
		return nil, err
	}
	if body, err = setScope(body, cfg); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "top_k", cfg.Limit()); err != nil {
		return nil, err
	}
	if cfg.Threshold != nil {
		if body, err = sjson.SetBytes(body, "threshold", *cfg.Threshold); err != nil {
			return nil, err
		}
	}
	if body, err = sjson.SetBytes(body, "rerank", cfg.Rerank); err != nil {
		return nil, err
	}
	if len(cfg.Filters) > 0 {
		if body, err = sjson.SetBytes(body, "filters", cfg.Filters); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// setScope writes the scope ids, output format and graph flag shared by both requests.
func setScope(body []byte, cfg memory.Config) ([]byte, error) {
	fields := []struct{ key, value string }{
		{"user_id", cfg.UserID},
		{"agent_id", cfg.AgentID},
		{"run_id", cfg.RunID},
		{"app_id", cfg.AppID},
		{"org_id", cfg.OrgID},
		{"project_id", cfg.ProjectID},
		{"output_format", cfg.Format()},
	}
	var err error
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if body, err = sjson.SetBytes(body, f.key, f.value); err != nil {
			return nil, err
		}
	}
	if cfg.EnableGraph {
		if body, err = sjson.SetBytes(body, "enable_graph", true); err != nil {
			return nil, err
		}
	}
	return body, nil
}

package memory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ErrMalformedResult is returned when a search payload is neither a list of
// memories nor a {results, relations} object.
var ErrMalformedResult = errors.New("malformed memory search result")

// Relation is a graph triple extracted by the memory store.
type Relation struct {
	Source       string `json:"source"`
	Relationship string `json:"relationship"`
	Target       string `json:"target"`
}

func (r Relation) String() string {
	return r.Source + " -> " + r.Relationship + " -> " + r.Target
}

// Record is a stored fact about a user or agent. Records are read-only to this module.
type Record struct {
	ID         string           `json:"id"`
	Memory     string           `json:"memory"`
	Title      string           `json:"title,omitempty"`
	Score      float64          `json:"score,omitempty"`
	Hash       string           `json:"hash,omitempty"`
	Categories []string         `json:"categories,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
	CreatedAt  *strfmt.DateTime `json:"created_at,omitempty"`
	UpdatedAt  *strfmt.DateTime `json:"updated_at,omitempty"`
	Relation   *Relation        `json:"relation,omitempty"`
}

// SearchResult holds the flat memories and, in graph mode, the relation triples.
type SearchResult struct {
	Results   []Record   `json:"results"`
	Relations []Relation `json:"relations,omitempty"`
}

// Empty reports whether the result carries no flat memories.
func (s SearchResult) Empty() bool {
	return len(s.Results) == 0
}

// DecodeSearchResult accepts both the v1.0 shape (a bare array of memories)
// and the v1.1 shape ({"results": [...], "relations": [...]}).
func DecodeSearchResult(data []byte) (SearchResult, error) {
	if !gjson.ValidBytes(data) {
		return SearchResult{}, fmt.Errorf("%w: invalid json", ErrMalformedResult)
	}

	root := gjson.ParseBytes(data)
	var results, relations gjson.Result
	switch {
	case root.IsArray():
		results = root
	case root.IsObject():
		results = root.Get("results")
		relations = root.Get("relations")
		if results.Exists() && !results.IsArray() {
			return SearchResult{}, fmt.Errorf("%w: results must be an array", ErrMalformedResult)
		}
	default:
		return SearchResult{}, fmt.Errorf("%w: unexpected %s", ErrMalformedResult, root.Type)
	}

	var out SearchResult
	if results.Exists() {
		if err := json.Unmarshal([]byte(results.Raw), &out.Results); err != nil {
			return SearchResult{}, fmt.Errorf("%w: %w", ErrMalformedResult, err)
		}
	}
	if relations.Exists() && relations.IsArray() {
		if err := json.Unmarshal([]byte(relations.Raw), &out.Relations); err != nil {
			return SearchResult{}, fmt.Errorf("%w: %w", ErrMalformedResult, err)
		}
	}
	return out, nil
}

// Text joins the memory text of every record with a blank line.
func Text(records []Record) string {
	texts := make([]string, 0, len(records))
	for _, r := range records {
		texts = append(texts, r.Memory)
	}
	return strings.Join(texts, "\n\n")
}

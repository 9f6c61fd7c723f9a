// Package chromem is a memory.Store kept in an embedded chromem-go vector
// database. It needs no external service, which makes it the store used for
// local runs and tests.
//
// Every user message added becomes one memory. Memories live in one
// collection per user, or per agent when no user is set, and the remaining
// scope ids are matched as document metadata.
package chromem

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/casualjim/zentry/internal/registry"
	"github.com/casualjim/zentry/memory"
	"github.com/casualjim/zentry/memory/embedder"
	"github.com/casualjim/zentry/messages"
	"github.com/casualjim/zentry/pkg/jsonx"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

const (
	metaUserID    = "user_id"
	metaAgentID   = "agent_id"
	metaRunID     = "run_id"
	metaAppID     = "app_id"
	metaOrgID     = "org_id"
	metaProjectID = "project_id"
	metaCreatedAt = "created_at"
)

var reservedKeys = map[string]struct{}{
	metaUserID: {}, metaAgentID: {}, metaRunID: {}, metaAppID: {},
	metaOrgID: {}, metaProjectID: {}, metaCreatedAt: {},
}

// memoryNamespace seeds document ids so the same text in the same scope is
// stored once.
var memoryNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://zentry.gg/memories"))

var _ memory.Store = (*Store)(nil)

// Store keeps memories in chromem-go collections.
type Store struct {
	db          *chromem.DB
	embed       chromem.EmbeddingFunc
	path        string
	collections *registry.Registry[*chromem.Collection]
}

var (
	// WithEmbedder sets the embedding function. It defaults to embedder.Hash.
	WithEmbedder = opts.ForName[Store, chromem.EmbeddingFunc]("embed")
	// WithPath persists the database to a directory instead of keeping it in memory.
	WithPath = opts.ForName[Store, string]("path")
)

// New creates a store.
func New(options ...opts.Option[Store]) (*Store, error) {
	s := &Store{
		embed:       embedder.Hash(embedder.DefaultDimensions),
		collections: registry.New[*chromem.Collection](),
	}
	if err := opts.Apply(s, options); err != nil {
		return nil, err
	}

	if s.path == "" {
		s.db = chromem.NewDB()
		return s, nil
	}
	db, err := chromem.NewPersistentDB(s.path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database at %s: %w", s.path, err)
	}
	s.db = db
	return s, nil
}

func collectionName(scope memory.Scope) string {
	switch {
	case scope.UserID != "":
		return "user_" + scope.UserID
	case scope.AgentID != "":
		return "agent_" + scope.AgentID
	default:
		return "global"
	}
}

func (s *Store) collection(scope memory.Scope) (*chromem.Collection, error) {
	name := collectionName(scope)
	return s.collections.GetOrCreate(name, func() (*chromem.Collection, error) {
		col, err := s.db.GetOrCreateCollection(name, nil, s.embed)
		if err != nil {
			return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		return col, nil
	})
}

func scopeMetadata(scope memory.Scope) map[string]string {
	meta := make(map[string]string, 6)
	for k, v := range map[string]string{
		metaUserID:    scope.UserID,
		metaAgentID:   scope.AgentID,
		metaRunID:     scope.RunID,
		metaAppID:     scope.AppID,
		metaOrgID:     scope.OrgID,
		metaProjectID: scope.ProjectID,
	} {
		if v != "" {
			meta[k] = v
		}
	}
	return meta
}

// Add stores the text of every user message in prompt.
func (s *Store) Add(ctx context.Context, prompt messages.Prompt, cfg memory.Config) error {
	col, err := s.collection(cfg.Scope)
	if err != nil {
		return err
	}

	now := strfmt.DateTime(time.Now().UTC()).String()
	scopeKey := collectionName(cfg.Scope) + "\x00" + cfg.RunID + "\x00" + cfg.AppID

	var docs []chromem.Document
	for _, msg := range prompt {
		if msg.Role != messages.RoleUser {
			continue
		}
		text := strings.TrimSpace(msg.Text())
		if text == "" {
			continue
		}

		meta := scopeMetadata(cfg.Scope)
		meta[metaCreatedAt] = now
		for k, v := range cfg.Metadata {
			if _, reserved := reservedKeys[k]; reserved {
				continue
			}
			meta[k] = metadataString(v)
		}

		docs = append(docs, chromem.Document{
			ID:       uuid.NewSHA1(memoryNamespace, []byte(scopeKey+"\x00"+text)).String(),
			Content:  text,
			Metadata: meta,
		})
	}
	if len(docs) == 0 {
		return nil
	}

	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to add memories: %w", err)
	}
	slog.DebugContext(ctx, "added memories", slog.String("collection", col.Name), slog.Int("count", len(docs)))
	return nil
}

// Search returns up to cfg.Limit() memories similar to query, dropping those
// below cfg.Threshold. Relations are never produced.
func (s *Store) Search(ctx context.Context, query string, cfg memory.Config) (memory.SearchResult, error) {
	col, err := s.collection(cfg.Scope)
	if err != nil {
		return memory.SearchResult{}, err
	}
	if strings.TrimSpace(query) == "" {
		return memory.SearchResult{}, nil
	}

	where := scopeMetadata(cfg.Scope)
	for k, v := range cfg.Filters {
		where[k] = metadataString(v)
	}

	// chromem rejects nResults larger than the collection and clamps to the
	// documents left after the where filter.
	limit := min(cfg.Limit(), col.Count())
	if limit == 0 {
		return memory.SearchResult{}, nil
	}
	embedding, err := s.embed(ctx, query)
	if err != nil {
		return memory.SearchResult{}, fmt.Errorf("failed to embed query: %w", err)
	}
	results, err := col.QueryEmbedding(ctx, embedding, limit, where, nil)
	if err != nil {
		return memory.SearchResult{}, fmt.Errorf("failed to query memories: %w", err)
	}

	out := memory.SearchResult{Results: make([]memory.Record, 0, len(results))}
	for _, res := range results {
		if cfg.Threshold != nil && float64(res.Similarity) < *cfg.Threshold {
			continue
		}
		out.Results = append(out.Results, toRecord(res))
	}
	return out, nil
}

func toRecord(res chromem.Result) memory.Record {
	rec := memory.Record{
		ID:     res.ID,
		Memory: res.Content,
		Score:  float64(res.Similarity),
	}
	if created, err := strfmt.ParseDateTime(res.Metadata[metaCreatedAt]); err == nil {
		rec.CreatedAt = &created
	}
	for k, v := range res.Metadata {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]any)
		}
		rec.Metadata[k] = v
	}
	return rec
}

func metadataString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	res, err := jsonx.ToResult(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return res.Raw
}

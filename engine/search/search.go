// Package search implements hybrid retrieval: vector similarity over chunks
// unioned with graph name/description matching, per project or fanned out
// across every project.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/contextgraph/context-graph/engine/domain"
	"github.com/contextgraph/context-graph/engine/semantic"
	"github.com/contextgraph/context-graph/pkg/fn"
	"github.com/contextgraph/context-graph/pkg/metrics"
)

// Mode selects which arms of the hybrid run.
type Mode string

const (
	ModeHybrid Mode = "hybrid"
	ModeVector Mode = "vector"
	ModeGraph  Mode = "graph"
)

// FanoutParallelism caps concurrent per-project searches.
const FanoutParallelism = 8

const contentPreviewLen = 500

// Request is a search over one project (or, for Fanout, over all).
type Request struct {
	Query       string              `json:"query"`
	Mode        Mode                `json:"mode"`
	EntityTypes []domain.EntityType `json:"entity_types,omitempty"`
	Limit       int                 `json:"limit"`
}

// Result is one hit from either arm. Type discriminates chunk and entity
// hits; Label carries the node label (entities) or "Chunk".
type Result struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Label   string  `json:"label"`
	Content string  `json:"content,omitempty"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
	Project string  `json:"project,omitempty"`
}

// Stats describes one project search.
type Stats struct {
	VectorHits  int   `json:"vector_hits"`
	GraphHits   int   `json:"graph_hits"`
	TotalTimeMS int64 `json:"total_time_ms"`
}

// Response is the per-project search envelope.
type Response struct {
	Results []Result `json:"results"`
	Stats   Stats    `json:"stats"`
}

// ProjectRef identifies one tenant inside a fanout.
type ProjectRef struct {
	Slug      string
	GraphName string
}

// ProjectStat reports one project's share of a fanout.
type ProjectStat struct {
	Project string `json:"project"`
	Hits    int    `json:"result_count"`
	Failed  bool   `json:"failed,omitempty"`
}

// FanoutResponse is the cross-project search envelope.
type FanoutResponse struct {
	Results          []Result      `json:"results"`
	Total            int           `json:"total"`
	ProjectsSearched int           `json:"projects_searched"`
	ProjectStats     []ProjectStat `json:"project_stats"`
}

// CypherStore runs graph-arm queries.
type CypherStore interface {
	ExecuteCypher(ctx context.Context, graphName, query string) ([]map[string]any, error)
}

// VectorSearcher runs the vector arm.
type VectorSearcher interface {
	Search(ctx context.Context, slug string, vector []float32, limit int, contentTypes []string) ([]semantic.ScoredChunk, error)
}

// Embedder turns the query into a vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Service runs searches.
type Service struct {
	db       CypherStore
	vector   VectorSearcher
	embedder Embedder
	log      *slog.Logger

	searches *metrics.Counter
	latency  *metrics.Histogram
}

// New creates the search service.
func New(db CypherStore, vector VectorSearcher, embedder Embedder, reg *metrics.Registry, log *slog.Logger) *Service {
	s := &Service{db: db, vector: vector, embedder: embedder, log: log}
	if reg != nil {
		s.searches = reg.Counter("searches_total", "Search requests served.")
		s.latency = reg.Histogram("search_seconds", "Search latency.",
			[]float64{0.05, 0.25, 1, 5})
	}
	return s
}

// Search runs the requested arms against one project. embedding may carry a
// pre-computed query vector (fanout shares one embedding call); pass nil to
// have it computed here.
func (s *Service) Search(ctx context.Context, project ProjectRef, req Request, embedding []float32) (Response, error) {
	start := time.Now()
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.Mode == "" {
		req.Mode = ModeHybrid
	}

	resp := Response{Results: []Result{}}

	if req.Mode == ModeHybrid || req.Mode == ModeVector {
		if embedding == nil {
			vec, err := s.embedder.EmbedText(ctx, req.Query)
			if err != nil {
				return resp, fmt.Errorf("embed query: %w", err)
			}
			embedding = vec
		}
		hits, err := s.vector.Search(ctx, project.Slug, embedding, req.Limit, nil)
		if err != nil {
			return resp, fmt.Errorf("vector search: %w", err)
		}
		for _, h := range hits {
			resp.Results = append(resp.Results, chunkResult(h))
		}
		resp.Stats.VectorHits = len(hits)
	}

	if req.Mode == ModeHybrid || req.Mode == ModeGraph {
		hits, err := s.graphSearch(ctx, project.GraphName, req)
		if err != nil {
			return resp, fmt.Errorf("graph search: %w", err)
		}
		resp.Results = append(resp.Results, hits...)
		resp.Stats.GraphHits = len(hits)
	}

	// Sort before deduplicating so the highest-scoring duplicate survives.
	sort.SliceStable(resp.Results, func(i, j int) bool {
		return resp.Results[i].Score > resp.Results[j].Score
	})
	resp.Results = dedupeByID(resp.Results)
	if len(resp.Results) > req.Limit {
		resp.Results = resp.Results[:req.Limit]
	}
	resp.Stats.TotalTimeMS = time.Since(start).Milliseconds()

	if s.searches != nil {
		s.searches.Inc()
		s.latency.Observe(time.Since(start).Seconds())
	}
	return resp, nil
}

// Fanout searches every project with bounded parallelism. The query is
// embedded exactly once; a failing project contributes an empty, flagged
// result set instead of failing the whole search.
func (s *Service) Fanout(ctx context.Context, projects []ProjectRef, req Request) (FanoutResponse, error) {
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.Mode == "" {
		req.Mode = ModeHybrid
	}

	var embedding []float32
	if req.Mode != ModeGraph {
		vec, err := s.embedder.EmbedText(ctx, req.Query)
		if err != nil {
			return FanoutResponse{}, fmt.Errorf("embed query: %w", err)
		}
		embedding = vec
	}

	type slice struct {
		project string
		results []Result
		failed  bool
	}
	tasks := make([]func(context.Context) slice, len(projects))
	for i, p := range projects {
		tasks[i] = func(tctx context.Context) slice {
			resp, err := s.Search(tctx, p, req, embedding)
			if err != nil {
				s.log.Warn("fanout project search failed", "project", p.Slug, "error", err)
				return slice{project: p.Slug, results: []Result{}, failed: true}
			}
			tagged := make([]Result, len(resp.Results))
			for j, r := range resp.Results {
				r.Project = p.Slug
				tagged[j] = r
			}
			return slice{project: p.Slug, results: tagged}
		}
	}
	slices := fn.FanOut(ctx, FanoutParallelism, tasks)

	out := FanoutResponse{
		Results:          []Result{},
		ProjectsSearched: len(projects),
		ProjectStats:     make([]ProjectStat, 0, len(projects)),
	}
	for _, sl := range slices {
		out.ProjectStats = append(out.ProjectStats, ProjectStat{
			Project: sl.project, Hits: len(sl.results), Failed: sl.failed,
		})
		out.Results = append(out.Results, sl.results...)
	}
	sort.SliceStable(out.Results, func(i, j int) bool {
		return out.Results[i].Score > out.Results[j].Score
	})
	out.Results = dedupeByID(out.Results)
	if len(out.Results) > req.Limit {
		out.Results = out.Results[:req.Limit]
	}
	out.Total = len(out.Results)
	return out, nil
}

// graphSearch matches node names and descriptions case-insensitively, with
// an optional label union filter. Graph hits score a flat 1.0.
func (s *Service) graphSearch(ctx context.Context, graphName string, req Request) ([]Result, error) {
	esc := strings.ReplaceAll(req.Query, `\`, `\\`)
	esc = strings.ReplaceAll(esc, `'`, `\'`)

	labelFilter := ""
	if len(req.EntityTypes) > 0 {
		parts := make([]string, len(req.EntityTypes))
		for i, et := range req.EntityTypes {
			parts[i] = fmt.Sprintf("label(n) = '%s'", et)
		}
		labelFilter = " AND (" + strings.Join(parts, " OR ") + ")"
	}

	q := fmt.Sprintf(
		"MATCH (n) WHERE (toLower(n.name) CONTAINS toLower('%s') OR toLower(n.description) CONTAINS toLower('%s'))%s RETURN n LIMIT %d",
		esc, esc, labelFilter, req.Limit)
	rows, err := s.db.ExecuteCypher(ctx, graphName, q)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		m, ok := row["n"].(map[string]any)
		if !ok {
			continue
		}
		props, _ := m["properties"].(map[string]any)
		name, _ := props["name"].(string)
		desc, _ := props["description"].(string)
		results = append(results, Result{
			ID:      idString(m["id"]),
			Name:    name,
			Type:    "entity",
			Label:   labelString(m["label"]),
			Content: truncate(desc, contentPreviewLen),
			Score:   1.0,
			Source:  "graph",
		})
	}
	return results, nil
}

func chunkResult(h semantic.ScoredChunk) Result {
	return Result{
		ID:      "chunk_" + h.ID,
		Name:    fmt.Sprintf("Chunk %d", h.ChunkIndex),
		Type:    "chunk",
		Label:   "Chunk",
		Content: truncate(h.Content, contentPreviewLen),
		Score:   float64(h.Score),
		Source:  "vector",
	}
}

// dedupeByID keeps the first occurrence of each id.
func dedupeByID(results []Result) []Result {
	seen := map[string]bool{}
	out := results[:0]
	for _, r := range results {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

// truncate cuts at a rune boundary, never mid-codepoint.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func idString(v any) string {
	switch t := v.(type) {
	case float64:
		return fmt.Sprintf("%d", int64(t))
	case string:
		return t
	}
	return ""
}

func labelString(v any) string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return s
			}
		}
	}
	return "Unknown"
}

// Package project manages tenant namespaces. Each project owns one Postgres
// row, one AGE graph, and one vector collection, all derived from its slug.
package project

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/contextgraph/context-graph/engine/domain"
	"github.com/contextgraph/context-graph/engine/graph"
)

var (
	slugSpaceRe    = regexp.MustCompile(`[\s_]+`)
	slugStripRe    = regexp.MustCompile(`[^a-z0-9-]+`)
	slugCollapseRe = regexp.MustCompile(`-{2,}`)
)

// Slugify derives a URL-safe slug from a display name. Whitespace and
// underscores become hyphens; everything else outside [a-z0-9-] is dropped.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugSpaceRe.ReplaceAllString(s, "-")
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugCollapseRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// GraphName derives the AGE graph name for a slug. AGE identifiers cannot
// contain hyphens.
func GraphName(slug string) string {
	return "project_" + strings.ReplaceAll(slug, "-", "_")
}

// Project is a tenant namespace.
type Project struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	GraphName   string         `json:"graph_name"`
	Description string         `json:"description,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	Stats *graph.Stats `json:"stats,omitempty"`
}

// Ref is the light project handle other engines consume.
type Ref struct {
	ID        string
	Slug      string
	GraphName string
}

// Create describes a new project.
type Create struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
}

// Store is the relational slice the project engine needs.
type Store interface {
	Execute(ctx context.Context, sql string, args ...any) error
	FetchOne(ctx context.Context, sql string, args ...any) (map[string]any, error)
	FetchAll(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
}

// GraphAdmin creates and drops per-project graphs.
type GraphAdmin interface {
	CreateGraph(ctx context.Context, name string) error
	DropGraph(ctx context.Context, name string) error
	Stats(ctx context.Context, graphName string) (graph.Stats, error)
}

// VectorAdmin creates and drops per-project collections.
type VectorAdmin interface {
	CreateCollection(ctx context.Context, slug string) error
	DeleteCollection(ctx context.Context, slug string) error
}

// Service manages project lifecycle.
type Service struct {
	db     Store
	graph  GraphAdmin
	vector VectorAdmin
	log    *slog.Logger
}

// New creates the project service.
func New(db Store, g GraphAdmin, v VectorAdmin, log *slog.Logger) *Service {
	return &Service{db: db, graph: g, vector: v, log: log}
}

// Create provisions a project: row, graph, vector collection. A duplicate
// slug is a conflict.
func (s *Service) Create(ctx context.Context, in Create) (*Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", in.Name, domain.ErrInvalidEntity)
	}
	slug := Slugify(name)
	if slug == "" {
		return nil, domain.NewValidationError("name", in.Name, domain.ErrInvalidEntity)
	}

	existing, err := s.db.FetchOne(ctx,
		`SELECT id::text FROM projects WHERE slug = $1`, slug)
	if err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	}
	if existing != nil {
		return nil, domain.Conflictf("project %q already exists", slug)
	}

	graphName := GraphName(slug)
	row, err := s.db.FetchOne(ctx, `INSERT INTO projects
		(name, slug, graph_name, description, settings)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, created_at, updated_at`,
		name, slug, graphName, in.Description, settingsJSON(in.Settings))
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	if err := s.graph.CreateGraph(ctx, graphName); err != nil {
		return nil, fmt.Errorf("create graph: %w", err)
	}
	if err := s.vector.CreateCollection(ctx, slug); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	p := &Project{
		Name: name, Slug: slug, GraphName: graphName,
		Description: in.Description, Settings: in.Settings,
	}
	if row != nil {
		p.ID, _ = row["id"].(string)
		p.CreatedAt, _ = row["created_at"].(time.Time)
		p.UpdatedAt, _ = row["updated_at"].(time.Time)
	}
	s.log.Info("project created", "slug", slug, "graph", graphName)
	return p, nil
}

// List returns all projects, newest first.
func (s *Service) List(ctx context.Context) ([]Project, error) {
	rows, err := s.db.FetchAll(ctx, `SELECT id::text, name, slug, graph_name,
		description, settings, created_at, updated_at
		FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	out := make([]Project, 0, len(rows))
	for _, row := range rows {
		out = append(out, projectFromRow(row))
	}
	return out, nil
}

// Get returns one project by slug, optionally with live graph stats.
func (s *Service) Get(ctx context.Context, slug string, withStats bool) (*Project, error) {
	row, err := s.db.FetchOne(ctx, `SELECT id::text, name, slug, graph_name,
		description, settings, created_at, updated_at
		FROM projects WHERE slug = $1`, slug)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.NotFoundf("project %q not found", slug)
	}
	p := projectFromRow(row)
	if withStats {
		stats, err := s.graph.Stats(ctx, p.GraphName)
		if err != nil {
			s.log.Warn("graph stats failed", "slug", slug, "error", err)
		} else {
			p.Stats = &stats
		}
	}
	return &p, nil
}

// GetRef is the light lookup the other engines use on every request.
func (s *Service) GetRef(ctx context.Context, slug string) (Ref, error) {
	row, err := s.db.FetchOne(ctx,
		`SELECT id::text, slug, graph_name FROM projects WHERE slug = $1`, slug)
	if err != nil {
		return Ref{}, err
	}
	if row == nil {
		return Ref{}, domain.NotFoundf("project %q not found", slug)
	}
	ref := Ref{}
	ref.ID, _ = row["id"].(string)
	ref.Slug, _ = row["slug"].(string)
	ref.GraphName, _ = row["graph_name"].(string)
	return ref, nil
}

// Delete removes the project and all of its data. Graph and collection drops
// are best-effort; the row delete cascades to documents and chunks.
func (s *Service) Delete(ctx context.Context, slug string) error {
	ref, err := s.GetRef(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.graph.DropGraph(ctx, ref.GraphName); err != nil {
		s.log.Warn("drop graph failed", "slug", slug, "error", err)
	}
	if err := s.vector.DeleteCollection(ctx, slug); err != nil {
		s.log.Warn("delete collection failed", "slug", slug, "error", err)
	}
	if err := s.db.Execute(ctx, `DELETE FROM projects WHERE id = $1`, ref.ID); err != nil {
		return fmt.Errorf("delete project row: %w", err)
	}
	s.log.Info("project deleted", "slug", slug)
	return nil
}

func projectFromRow(row map[string]any) Project {
	p := Project{}
	p.ID, _ = row["id"].(string)
	p.Name, _ = row["name"].(string)
	p.Slug, _ = row["slug"].(string)
	p.GraphName, _ = row["graph_name"].(string)
	if d, ok := row["description"].(string); ok {
		p.Description = d
	}
	if m, ok := row["settings"].(map[string]any); ok {
		p.Settings = m
	}
	p.CreatedAt, _ = row["created_at"].(time.Time)
	p.UpdatedAt, _ = row["updated_at"].(time.Time)
	return p
}

func settingsJSON(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

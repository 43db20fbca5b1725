// Package api exposes the knowledge graph service over HTTP JSON. Handlers
// stay thin: decode, resolve the project, call an engine, encode.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/contextgraph/context-graph/engine/document"
	"github.com/contextgraph/context-graph/engine/domain"
	"github.com/contextgraph/context-graph/engine/graph"
	"github.com/contextgraph/context-graph/engine/ingest"
	"github.com/contextgraph/context-graph/engine/project"
	"github.com/contextgraph/context-graph/engine/search"
	"github.com/contextgraph/context-graph/engine/snapshot"
	"github.com/contextgraph/context-graph/pkg/auth"
	"github.com/contextgraph/context-graph/pkg/metrics"
)

// ServiceName and Version identify the service in health responses.
const (
	ServiceName = "context-graph"
	Version     = "1.0.0"
)

// Batch request caps.
const (
	MaxBatchEntities      = 100
	MaxBatchRelationships = 500
)

// Projects is the project engine surface the API consumes.
type Projects interface {
	Create(ctx context.Context, in project.Create) (*project.Project, error)
	List(ctx context.Context) ([]project.Project, error)
	Get(ctx context.Context, slug string, withStats bool) (*project.Project, error)
	GetRef(ctx context.Context, slug string) (project.Ref, error)
	Delete(ctx context.Context, slug string) error
}

// Documents is the document engine surface.
type Documents interface {
	Create(ctx context.Context, projectID string, in document.CreateIn) (*document.Document, error)
	List(ctx context.Context, projectID string, filter document.ListFilter) ([]document.Document, int, error)
	Get(ctx context.Context, projectID, documentID string) (*document.Document, error)
	Delete(ctx context.Context, projectID, slug, documentID string) error
}

// Ingestor runs the processing pipeline.
type Ingestor interface {
	ProcessDocument(ctx context.Context, project ingest.ProjectRef, documentID string) (ingest.Result, error)
}

// Graph is the graph engine surface.
type Graph interface {
	CreateEntity(ctx context.Context, graphName string, in graph.EntityCreate) (graph.Entity, error)
	GetEntity(ctx context.Context, graphName, id string) (*graph.Entity, error)
	ListEntities(ctx context.Context, graphName, entityType string, limit, offset int) ([]graph.Entity, error)
	FindEntities(ctx context.Context, graphName, name, entityType string, limit int) ([]graph.Entity, error)
	UpsertEntity(ctx context.Context, graphName string, in graph.EntityCreate, description string) (graph.UpsertResult, error)
	UpdateEntity(ctx context.Context, graphName, id string, props domain.Properties) (*graph.Entity, error)
	DeleteEntity(ctx context.Context, graphName, id string) error
	CreateRelationship(ctx context.Context, graphName string, in graph.RelationshipCreate) (graph.Relationship, error)
	ListRelationships(ctx context.Context, graphName string, limit int) ([]graph.Relationship, error)
	EntityRelationships(ctx context.Context, graphName, id, direction string, relType domain.RelationshipType) ([]graph.EntityRelationship, error)
	BatchCreate(ctx context.Context, graphName string, entities []graph.BatchEntity, rels []graph.BatchRelationship) graph.BatchResult
	BatchDelete(ctx context.Context, graphName string, ids []string) graph.BatchDeleteResult
	FindDuplicates(ctx context.Context, graphName, entityType string) ([]graph.DuplicateGroup, error)
	Deduplicate(ctx context.Context, graphName string, dryRun bool) (graph.DeduplicateResult, error)
	ExecuteReadQuery(ctx context.Context, graphName, query string) ([]map[string]any, error)
	LocalGraph(ctx context.Context, graphName, id string, depth int) (graph.GraphData, error)
	FullGraph(ctx context.Context, graphName string, entityTypes []string, limit int) (graph.GraphData, error)
}

// Searcher runs per-project and fanned-out searches.
type Searcher interface {
	Search(ctx context.Context, project search.ProjectRef, req search.Request, embedding []float32) (search.Response, error)
	Fanout(ctx context.Context, projects []search.ProjectRef, req search.Request) (search.FanoutResponse, error)
}

// Snapshots is the snapshot engine surface.
type Snapshots interface {
	Create(ctx context.Context, projectID, graphName, label, trigger string) (snapshot.Snapshot, error)
	List(ctx context.Context, projectID string, limit int) ([]snapshot.Snapshot, error)
	Get(ctx context.Context, projectID, snapshotID string) (*snapshot.Detail, error)
	Delete(ctx context.Context, projectID, snapshotID string) error
	Restore(ctx context.Context, projectID, graphName, snapshotID string) (snapshot.RestoreResult, error)
}

// Server holds the engines behind the HTTP surface.
type Server struct {
	projects  Projects
	documents Documents
	ingestor  Ingestor
	graph     Graph
	search    Searcher
	snapshots Snapshots
	registry  *metrics.Registry
	jwtSecret string
	log       *slog.Logger
}

// New wires the server. registry may be nil, which drops the metrics
// endpoint; jwtSecret must be the shared forward-auth secret.
func New(projects Projects, documents Documents, ingestor Ingestor, g Graph, searcher Searcher, snapshots Snapshots, registry *metrics.Registry, jwtSecret string, log *slog.Logger) *Server {
	return &Server{
		projects: projects, documents: documents, ingestor: ingestor,
		graph: g, search: searcher, snapshots: snapshots,
		registry: registry, jwtSecret: jwtSecret, log: log,
	}
}

// Routes builds the full route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	if s.registry != nil {
		mux.Handle("GET /metrics", s.registry.Handler())
	}
	mux.Handle("GET /auth/verify", auth.VerifyHandler(s.jwtSecret, s.log))

	mux.HandleFunc("POST /api/v1/projects", s.handleProjectCreate)
	mux.HandleFunc("GET /api/v1/projects", s.handleProjectList)
	mux.HandleFunc("GET /api/v1/projects/{slug}", s.handleProjectGet)
	mux.HandleFunc("DELETE /api/v1/projects/{slug}", s.handleProjectDelete)

	mux.HandleFunc("POST /api/v1/projects/{slug}/documents", s.handleDocumentCreate)
	mux.HandleFunc("GET /api/v1/projects/{slug}/documents", s.handleDocumentList)
	mux.HandleFunc("GET /api/v1/projects/{slug}/documents/{id}", s.handleDocumentGet)
	mux.HandleFunc("DELETE /api/v1/projects/{slug}/documents/{id}", s.handleDocumentDelete)
	mux.HandleFunc("POST /api/v1/projects/{slug}/documents/{id}/process", s.handleDocumentProcess)

	mux.HandleFunc("POST /api/v1/projects/{slug}/entities", s.handleEntityCreate)
	mux.HandleFunc("GET /api/v1/projects/{slug}/entities", s.handleEntityList)
	mux.HandleFunc("PUT /api/v1/projects/{slug}/entities", s.handleEntityUpsert)
	mux.HandleFunc("GET /api/v1/projects/{slug}/entities/find", s.handleEntityFind)
	mux.HandleFunc("GET /api/v1/projects/{slug}/entities/duplicates", s.handleEntityDuplicates)
	mux.HandleFunc("POST /api/v1/projects/{slug}/entities/deduplicate", s.handleEntityDeduplicate)
	mux.HandleFunc("DELETE /api/v1/projects/{slug}/entities/batch", s.handleEntityBatchDelete)
	mux.HandleFunc("GET /api/v1/projects/{slug}/entities/{id}", s.handleEntityGet)
	mux.HandleFunc("PATCH /api/v1/projects/{slug}/entities/{id}", s.handleEntityUpdate)
	mux.HandleFunc("DELETE /api/v1/projects/{slug}/entities/{id}", s.handleEntityDelete)
	mux.HandleFunc("GET /api/v1/projects/{slug}/entities/{id}/relationships", s.handleEntityRelationships)

	mux.HandleFunc("POST /api/v1/projects/{slug}/relationships", s.handleRelationshipCreate)
	mux.HandleFunc("GET /api/v1/projects/{slug}/relationships", s.handleRelationshipList)
	mux.HandleFunc("POST /api/v1/projects/{slug}/query/cypher", s.handleCypherQuery)
	mux.HandleFunc("POST /api/v1/projects/{slug}/batch", s.handleBatchCreate)

	mux.HandleFunc("POST /api/v1/projects/{slug}/search", s.handleSearch)
	mux.HandleFunc("POST /api/v1/search", s.handleFanoutSearch)

	mux.HandleFunc("GET /api/v1/projects/{slug}/visualization/graph", s.handleFullGraph)
	mux.HandleFunc("GET /api/v1/projects/{slug}/visualization/graph/local/{id}", s.handleLocalGraph)

	mux.HandleFunc("POST /api/v1/projects/{slug}/snapshots", s.handleSnapshotCreate)
	mux.HandleFunc("GET /api/v1/projects/{slug}/snapshots", s.handleSnapshotList)
	mux.HandleFunc("GET /api/v1/projects/{slug}/snapshots/{id}", s.handleSnapshotGet)
	mux.HandleFunc("DELETE /api/v1/projects/{slug}/snapshots/{id}", s.handleSnapshotDelete)
	mux.HandleFunc("POST /api/v1/projects/{slug}/snapshots/{id}/restore", s.handleSnapshotRestore)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
		"version": Version,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": ServiceName,
		"version": Version,
		"docs":    "/api/v1",
	})
}

// resolveRef turns the slug path segment into a project ref, writing the
// error response itself on failure.
func (s *Server) resolveRef(w http.ResponseWriter, r *http.Request) (project.Ref, bool) {
	ref, err := s.projects.GetRef(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.writeError(w, err)
		return project.Ref{}, false
	}
	return ref, true
}

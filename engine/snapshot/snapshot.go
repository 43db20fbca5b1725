// Package snapshot captures and restores whole project graphs through the
// kg_snapshots table.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/contextgraph/context-graph/engine/domain"
	"github.com/contextgraph/context-graph/engine/graph"
)

// MaxPerProject caps retained snapshots; older ones are pruned on create.
const MaxPerProject = 20

// exportPage is the page size used to drain a graph during export.
const exportPage = 100000

// Triggers recorded on automatic snapshots.
const (
	TriggerManual           = "manual"
	TriggerPreBatchDelete   = "auto_pre_batch_delete"
	TriggerPreDeduplicate   = "auto_pre_deduplicate"
	TriggerPreRestore       = "auto_pre_restore"
)

// Store is the relational slice the snapshot engine needs.
type Store interface {
	Execute(ctx context.Context, sql string, args ...any) error
	FetchOne(ctx context.Context, sql string, args ...any) (map[string]any, error)
	FetchAll(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
}

// Graph is the slice of the graph engine used for export and restore.
type Graph interface {
	ListEntities(ctx context.Context, graphName, entityType string, limit, offset int) ([]graph.Entity, error)
	ListRelationships(ctx context.Context, graphName string, limit int) ([]graph.Relationship, error)
	CreateGraph(ctx context.Context, name string) error
	DropGraph(ctx context.Context, name string) error
	CreateEntity(ctx context.Context, graphName string, in graph.EntityCreate) (graph.Entity, error)
	CreateRelationship(ctx context.Context, graphName string, in graph.RelationshipCreate) (graph.Relationship, error)
}

// ExportedEntity is the canonical snapshot shape of a node. AgeID is only a
// correlation handle inside the snapshot; restore assigns fresh ids.
type ExportedEntity struct {
	AgeID      string            `json:"age_id"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Properties domain.Properties `json:"properties,omitempty"`
}

// ExportedRelationship is the canonical snapshot shape of an edge.
type ExportedRelationship struct {
	AgeID      string            `json:"age_id"`
	SourceID   string            `json:"source_id"`
	TargetID   string            `json:"target_id"`
	SourceName string            `json:"source_name,omitempty"`
	TargetName string            `json:"target_name,omitempty"`
	Type       string            `json:"type"`
	Properties domain.Properties `json:"properties,omitempty"`
}

// GraphExport is a full graph capture.
type GraphExport struct {
	Entities      []ExportedEntity       `json:"entities"`
	Relationships []ExportedRelationship `json:"relationships"`
}

// Snapshot is the stored metadata row.
type Snapshot struct {
	ID                string    `json:"id"`
	ProjectID         string    `json:"project_id"`
	Label             string    `json:"label,omitempty"`
	Trigger           string    `json:"trigger"`
	EntityCount       int       `json:"entity_count"`
	RelationshipCount int       `json:"relationship_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// Detail is a snapshot with its graph data.
type Detail struct {
	Snapshot
	GraphData GraphExport `json:"graph_data"`
}

// RestoreResult reports a restore run.
type RestoreResult struct {
	SnapshotID            string `json:"snapshot_id"`
	SafetySnapshotID      string `json:"pre_restore_snapshot_id"`
	EntitiesRestored      int    `json:"entities_restored"`
	RelationshipsRestored int    `json:"relationships_restored"`
	RelationshipsSkipped  int    `json:"relationships_skipped"`
}

// Service owns snapshot lifecycle.
type Service struct {
	db    Store
	graph Graph
	log   *slog.Logger
}

// New creates the snapshot service.
func New(db Store, g Graph, log *slog.Logger) *Service {
	return &Service{db: db, graph: g, log: log}
}

// EnsureTable creates the snapshot table.
func (s *Service) EnsureTable(ctx context.Context) error {
	return s.db.Execute(ctx, `CREATE TABLE IF NOT EXISTS public.kg_snapshots (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		project_id UUID NOT NULL REFERENCES public.projects(id) ON DELETE CASCADE,
		label TEXT,
		"trigger" TEXT NOT NULL DEFAULT 'manual',
		entity_count INT NOT NULL,
		relationship_count INT NOT NULL,
		graph_data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`)
}

// Export drains the graph into the canonical shape.
func (s *Service) Export(ctx context.Context, graphName string) (GraphExport, error) {
	export := GraphExport{Entities: []ExportedEntity{}, Relationships: []ExportedRelationship{}}

	entities, err := s.graph.ListEntities(ctx, graphName, "", exportPage, 0)
	if err != nil {
		return export, fmt.Errorf("export entities: %w", err)
	}
	for _, e := range entities {
		export.Entities = append(export.Entities, ExportedEntity{
			AgeID: e.ID, Name: e.Name, Type: e.Type, Properties: e.Properties,
		})
	}

	rels, err := s.graph.ListRelationships(ctx, graphName, exportPage)
	if err != nil {
		return export, fmt.Errorf("export relationships: %w", err)
	}
	for _, r := range rels {
		export.Relationships = append(export.Relationships, ExportedRelationship{
			AgeID: r.ID, SourceID: r.SourceID, TargetID: r.TargetID,
			SourceName: r.SourceName, TargetName: r.TargetName,
			Type: r.Type, Properties: r.Properties,
		})
	}
	return export, nil
}

// Create captures the graph, stores it, and prunes history beyond
// MaxPerProject.
func (s *Service) Create(ctx context.Context, projectID, graphName, label, trigger string) (Snapshot, error) {
	if trigger == "" {
		trigger = TriggerManual
	}
	export, err := s.Export(ctx, graphName)
	if err != nil {
		return Snapshot{}, err
	}
	data, err := json.Marshal(export)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}

	row, err := s.db.FetchOne(ctx, `INSERT INTO kg_snapshots
		(project_id, label, "trigger", entity_count, relationship_count, graph_data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, created_at`,
		projectID, nullable(label), trigger,
		len(export.Entities), len(export.Relationships), data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}

	snap := Snapshot{
		ProjectID:         projectID,
		Label:             label,
		Trigger:           trigger,
		EntityCount:       len(export.Entities),
		RelationshipCount: len(export.Relationships),
	}
	if row != nil {
		snap.ID, _ = row["id"].(string)
		snap.CreatedAt, _ = row["created_at"].(time.Time)
	}

	if err := s.prune(ctx, projectID); err != nil {
		s.log.Warn("snapshot prune failed", "project_id", projectID, "error", err)
	}
	return snap, nil
}

func (s *Service) prune(ctx context.Context, projectID string) error {
	return s.db.Execute(ctx, `DELETE FROM kg_snapshots WHERE id IN (
		SELECT id FROM kg_snapshots WHERE project_id = $1
		ORDER BY created_at DESC OFFSET $2)`,
		projectID, MaxPerProject)
}

// List returns snapshots newest first.
func (s *Service) List(ctx context.Context, projectID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.FetchAll(ctx, `SELECT id::text, project_id::text, label, "trigger",
		entity_count, relationship_count, created_at
		FROM kg_snapshots WHERE project_id = $1
		ORDER BY created_at DESC LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, snapshotFromRow(row))
	}
	return out, nil
}

// Get returns one snapshot with its graph data.
func (s *Service) Get(ctx context.Context, projectID, snapshotID string) (*Detail, error) {
	row, err := s.db.FetchOne(ctx, `SELECT id::text, project_id::text, label, "trigger",
		entity_count, relationship_count, created_at, graph_data::text
		FROM kg_snapshots WHERE id = $1 AND project_id = $2`, snapshotID, projectID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.NotFoundf("snapshot %s not found", snapshotID)
	}
	detail := Detail{Snapshot: snapshotFromRow(row)}
	if raw, ok := row["graph_data"].(string); ok {
		if err := json.Unmarshal([]byte(raw), &detail.GraphData); err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", snapshotID, err)
		}
	}
	return &detail, nil
}

// Delete removes a snapshot.
func (s *Service) Delete(ctx context.Context, projectID, snapshotID string) error {
	row, err := s.db.FetchOne(ctx,
		`SELECT id::text FROM kg_snapshots WHERE id = $1 AND project_id = $2`,
		snapshotID, projectID)
	if err != nil {
		return err
	}
	if row == nil {
		return domain.NotFoundf("snapshot %s not found", snapshotID)
	}
	return s.db.Execute(ctx, `DELETE FROM kg_snapshots WHERE id = $1`, snapshotID)
}

// Restore replaces the live graph with a snapshot's contents. A safety
// snapshot is taken first. Restored nodes get fresh ids; edges whose
// endpoints failed to restore are skipped with a warning.
func (s *Service) Restore(ctx context.Context, projectID, graphName, snapshotID string) (RestoreResult, error) {
	detail, err := s.Get(ctx, projectID, snapshotID)
	if err != nil {
		return RestoreResult{}, err
	}

	safety, err := s.Create(ctx, projectID, graphName, "pre-restore safety", TriggerPreRestore)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("safety snapshot: %w", err)
	}
	result := RestoreResult{SnapshotID: snapshotID, SafetySnapshotID: safety.ID}

	if err := s.graph.DropGraph(ctx, graphName); err != nil {
		s.log.Warn("drop graph before restore failed", "graph", graphName, "error", err)
	}
	if err := s.graph.CreateGraph(ctx, graphName); err != nil {
		return result, fmt.Errorf("recreate graph: %w", err)
	}

	idMap := make(map[string]string, len(detail.GraphData.Entities))
	for _, e := range detail.GraphData.Entities {
		props := domain.Properties{}
		for k, v := range e.Properties {
			props[k] = v
		}
		delete(props, "name")
		node, err := s.graph.CreateEntity(ctx, graphName, graph.EntityCreate{
			Name: e.Name, Type: domain.EntityType(e.Type), Properties: props,
		})
		if err != nil {
			s.log.Warn("restore entity failed", "graph", graphName, "name", e.Name, "error", err)
			continue
		}
		idMap[e.AgeID] = node.ID
		result.EntitiesRestored++
	}

	for _, r := range detail.GraphData.Relationships {
		src, okS := idMap[r.SourceID]
		dst, okT := idMap[r.TargetID]
		if !okS || !okT {
			result.RelationshipsSkipped++
			s.log.Warn("restore relationship skipped, endpoint missing",
				"graph", graphName, "type", r.Type)
			continue
		}
		if _, err := s.graph.CreateRelationship(ctx, graphName, graph.RelationshipCreate{
			SourceID: src, TargetID: dst,
			Type: domain.RelationshipType(r.Type), Properties: r.Properties,
		}); err != nil {
			result.RelationshipsSkipped++
			s.log.Warn("restore relationship failed", "graph", graphName, "type", r.Type, "error", err)
			continue
		}
		result.RelationshipsRestored++
	}
	return result, nil
}

func snapshotFromRow(row map[string]any) Snapshot {
	snap := Snapshot{}
	snap.ID, _ = row["id"].(string)
	snap.ProjectID, _ = row["project_id"].(string)
	if label, ok := row["label"].(string); ok {
		snap.Label = label
	}
	snap.Trigger, _ = row["trigger"].(string)
	snap.EntityCount = intFrom(row["entity_count"])
	snap.RelationshipCount = intFrom(row["relationship_count"])
	snap.CreatedAt, _ = row["created_at"].(time.Time)
	return snap
}

func intFrom(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

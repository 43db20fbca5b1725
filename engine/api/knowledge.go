package api

import (
	"net/http"
	"strings"

	"github.com/contextgraph/context-graph/engine/domain"
	"github.com/contextgraph/context-graph/engine/graph"
	"github.com/contextgraph/context-graph/engine/snapshot"
)

type entityIn struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Properties  domain.Properties `json:"properties,omitempty"`
}

func (in entityIn) toCreate() (graph.EntityCreate, error) {
	if strings.TrimSpace(in.Name) == "" {
		return graph.EntityCreate{}, domain.NewValidationError("name", in.Name, domain.ErrInvalidEntity)
	}
	et, err := domain.ParseEntityType(in.Type)
	if err != nil {
		return graph.EntityCreate{}, err
	}
	return graph.EntityCreate{Name: in.Name, Type: et, Properties: in.Properties}, nil
}

func (s *Server) handleEntityCreate(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	var in entityIn
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	create, err := in.toCreate()
	if err != nil {
		s.writeError(w, err)
		return
	}
	entity, err := s.graph.CreateEntity(r.Context(), ref.GraphName, create)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entity)
}

func (s *Server) handleEntityList(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	entityType := r.URL.Query().Get("type")
	if entityType != "" {
		if _, err := domain.ParseEntityType(entityType); err != nil {
			s.writeError(w, err)
			return
		}
	}
	entities, err := s.graph.ListEntities(r.Context(), ref.GraphName, entityType,
		queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": entities,
		"total":    len(entities),
	})
}

func (s *Server) handleEntityFind(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		s.writeError(w, domain.NewValidationError("name", "", domain.ErrInvalidEntity))
		return
	}
	entityType := r.URL.Query().Get("type")
	if entityType != "" {
		if _, err := domain.ParseEntityType(entityType); err != nil {
			s.writeError(w, err)
			return
		}
	}
	entities, err := s.graph.FindEntities(r.Context(), ref.GraphName, name, entityType, queryInt(r, "limit", 20))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": entities,
		"total":    len(entities),
	})
}

func (s *Server) handleEntityUpsert(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	var in entityIn
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	create, err := in.toCreate()
	if err != nil {
		s.writeError(w, err)
		return
	}
	description := in.Description
	if description == "" {
		description = r.URL.Query().Get("description")
	}
	result, err := s.graph.UpsertEntity(r.Context(), ref.GraphName, create, description)
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (s *Server) handleEntityGet(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	entity, err := s.graph.GetEntity(r.Context(), ref.GraphName, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (s *Server) handleEntityUpdate(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	var in struct {
		Properties domain.Properties `json:"properties"`
	}
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	entity, err := s.graph.UpdateEntity(r.Context(), ref.GraphName, r.PathValue("id"), in.Properties)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (s *Server) handleEntityDelete(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	if err := s.graph.DeleteEntity(r.Context(), ref.GraphName, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEntityRelationships(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	var relType domain.RelationshipType
	if raw := r.URL.Query().Get("type"); raw != "" {
		rt, err := domain.ParseRelationshipType(raw)
		if err != nil {
			s.writeError(w, err)
			return
		}
		relType = rt
	}
	direction := r.URL.Query().Get("direction")
	if direction == "" {
		direction = "all"
	}
	rels, err := s.graph.EntityRelationships(r.Context(), ref.GraphName, r.PathValue("id"), direction, relType)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"relationships": rels,
		"total":         len(rels),
	})
}

func (s *Server) handleRelationshipCreate(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	var in struct {
		SourceID   string            `json:"source_id"`
		TargetID   string            `json:"target_id"`
		Type       string            `json:"type"`
		Properties domain.Properties `json:"properties,omitempty"`
	}
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	rt, err := domain.ParseRelationshipType(in.Type)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rel, err := s.graph.CreateRelationship(r.Context(), ref.GraphName, graph.RelationshipCreate{
		SourceID: in.SourceID, TargetID: in.TargetID, Type: rt, Properties: in.Properties,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

func (s *Server) handleRelationshipList(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	rels, err := s.graph.ListRelationships(r.Context(), ref.GraphName, queryInt(r, "limit", 100))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"relationships": rels,
		"total":         len(rels),
	})
}

func (s *Server) handleCypherQuery(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	var in struct {
		Query string `json:"query"`
	}
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	rows, err := s.graph.ExecuteReadQuery(r.Context(), ref.GraphName, in.Query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": rows,
		"total":   len(rows),
	})
}

func (s *Server) handleBatchCreate(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	var in struct {
		Entities      []graph.BatchEntity       `json:"entities"`
		Relationships []graph.BatchRelationship `json:"relationships"`
	}
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	if len(in.Entities) > MaxBatchEntities {
		s.writeError(w, domain.NewValidationError("entities", "too many", domain.ErrInvalidEntity))
		return
	}
	if len(in.Relationships) > MaxBatchRelationships {
		s.writeError(w, domain.NewValidationError("relationships", "too many", domain.ErrInvalidRelation))
		return
	}
	result := s.graph.BatchCreate(r.Context(), ref.GraphName, in.Entities, in.Relationships)
	writeJSON(w, http.StatusOK, result)
}

// handleEntityBatchDelete snapshots the graph before the destructive batch.
func (s *Server) handleEntityBatchDelete(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	var in struct {
		IDs []string `json:"ids"`
	}
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	if len(in.IDs) == 0 {
		s.writeError(w, domain.NewValidationError("ids", "empty", domain.ErrInvalidID))
		return
	}
	if _, err := s.snapshots.Create(r.Context(), ref.ID, ref.GraphName,
		"before batch delete", snapshot.TriggerPreBatchDelete); err != nil {
		s.log.Warn("pre-delete snapshot failed", "project", ref.Slug, "error", err)
	}
	result := s.graph.BatchDelete(r.Context(), ref.GraphName, in.IDs)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEntityDuplicates(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	entityType := r.URL.Query().Get("type")
	if entityType != "" {
		if _, err := domain.ParseEntityType(entityType); err != nil {
			s.writeError(w, err)
			return
		}
	}
	groups, err := s.graph.FindDuplicates(r.Context(), ref.GraphName, entityType)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groups": groups,
		"total":  len(groups),
	})
}

// handleEntityDeduplicate merges duplicate groups. A non-dry run with work
// to do gets a safety snapshot first.
func (s *Server) handleEntityDeduplicate(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	var in struct {
		DryRun bool `json:"dry_run"`
	}
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	if !in.DryRun {
		groups, err := s.graph.FindDuplicates(r.Context(), ref.GraphName, "")
		if err != nil {
			s.writeError(w, err)
			return
		}
		if len(groups) > 0 {
			if _, err := s.snapshots.Create(r.Context(), ref.ID, ref.GraphName,
				"before deduplicate", snapshot.TriggerPreDeduplicate); err != nil {
				s.log.Warn("pre-dedup snapshot failed", "project", ref.Slug, "error", err)
			}
		}
	}
	result, err := s.graph.Deduplicate(r.Context(), ref.GraphName, in.DryRun)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleFullGraph serves the whole graph, or a neighbourhood when focus= is
// given.
func (s *Server) handleFullGraph(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	if focus := r.URL.Query().Get("focus"); focus != "" {
		data, err := s.graph.LocalGraph(r.Context(), ref.GraphName, focus, queryInt(r, "depth", 2))
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vizEnvelope(data))
		return
	}
	var types []string
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, entityType := range strings.Split(raw, ",") {
			entityType = strings.TrimSpace(entityType)
			if entityType == "" {
				continue
			}
			if _, err := domain.ParseEntityType(entityType); err != nil {
				s.writeError(w, err)
				return
			}
			types = append(types, entityType)
		}
	}
	data, err := s.graph.FullGraph(r.Context(), ref.GraphName, types, queryInt(r, "limit", 500))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vizEnvelope(data))
}

// vizEnvelope wraps graph data with node and edge counts plus per-type node
// counts.
func vizEnvelope(data graph.GraphData) map[string]any {
	nodeTypes := map[string]int{}
	for _, n := range data.Nodes {
		nodeTypes[n.Type]++
	}
	return map[string]any{
		"nodes": data.Nodes,
		"edges": data.Edges,
		"stats": map[string]any{
			"node_count": len(data.Nodes),
			"edge_count": len(data.Edges),
			"node_types": nodeTypes,
		},
	}
}

func (s *Server) handleLocalGraph(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	data, err := s.graph.LocalGraph(r.Context(), ref.GraphName, r.PathValue("id"), queryInt(r, "depth", 2))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// Package graph implements all property-graph operations against Apache AGE
// named graphs, one graph per project.
package graph

import "github.com/contextgraph/context-graph/engine/domain"

// EntityCreate is the input for creating a node.
type EntityCreate struct {
	Name       string            `json:"name"`
	Type       domain.EntityType `json:"type"`
	Properties domain.Properties `json:"properties,omitempty"`
}

// Entity is a graph node. ID is the AGE node id rendered as a decimal string.
type Entity struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Properties  domain.Properties `json:"properties"`
	Connections []Connection      `json:"connections,omitempty"`
}

// Connection is a one-hop neighbour summary on an Entity.
type Connection struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Relationship string `json:"relationship"`
	Direction    string `json:"direction"`
}

// RelationshipCreate is the input for creating an edge.
type RelationshipCreate struct {
	SourceID   string                  `json:"source_id"`
	TargetID   string                  `json:"target_id"`
	Type       domain.RelationshipType `json:"type"`
	Properties domain.Properties       `json:"properties,omitempty"`
}

// Relationship is a graph edge.
type Relationship struct {
	ID         string            `json:"id"`
	SourceID   string            `json:"source_id"`
	TargetID   string            `json:"target_id"`
	Type       string            `json:"type"`
	Properties domain.Properties `json:"properties"`
	SourceName string            `json:"source_name,omitempty"`
	TargetName string            `json:"target_name,omitempty"`
}

// EntityRelationship is an edge viewed from one endpoint.
type EntityRelationship struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Direction  string            `json:"direction"`
	OtherID    string            `json:"other_id"`
	OtherName  string            `json:"other_name"`
	OtherType  string            `json:"other_type"`
	Properties domain.Properties `json:"properties"`
}

// UpsertResult reports an upsert outcome.
type UpsertResult struct {
	Entity           Entity   `json:"entity"`
	Created          bool     `json:"created"`
	MergedProperties []string `json:"merged_properties"`
}

// BatchEntity is one item of a batch create. Ref is a caller-chosen handle
// that batch relationships can point at.
type BatchEntity struct {
	Name       string            `json:"name"`
	Type       domain.EntityType `json:"type"`
	Ref        string            `json:"ref,omitempty"`
	Properties domain.Properties `json:"properties,omitempty"`
}

// BatchRelationship references endpoints by ref or by existing entity name.
type BatchRelationship struct {
	From       string                  `json:"from"`
	To         string                  `json:"to"`
	Type       domain.RelationshipType `json:"type"`
	Properties domain.Properties       `json:"properties,omitempty"`
}

// BatchResult carries per-item outcomes of a batch create.
type BatchResult struct {
	EntitiesCreated      []Entity       `json:"entities_created"`
	RelationshipsCreated []Relationship `json:"relationships_created"`
	Errors               []string       `json:"errors"`
}

// BatchDeleteResult carries the outcome of a batch delete.
type BatchDeleteResult struct {
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors"`
}

// DuplicateGroup is a set of same-name same-label nodes.
type DuplicateGroup struct {
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	Entities        []Entity `json:"entities"`
	RecommendedKeep string   `json:"recommended_keep"`
}

// DeduplicateResult reports a deduplication run.
type DeduplicateResult struct {
	DryRun         bool             `json:"dry_run"`
	GroupsFound    int              `json:"groups_found"`
	EntitiesMerged int              `json:"entities_merged"`
	Groups         []DuplicateGroup `json:"groups"`
}

// Node and Edge are the visualization shapes.
type Node struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Properties domain.Properties `json:"properties,omitempty"`
}

type Edge struct {
	ID         string            `json:"id"`
	Source     string            `json:"source"`
	Target     string            `json:"target"`
	Type       string            `json:"type"`
	Properties domain.Properties `json:"properties,omitempty"`
}

// GraphData is a subgraph for visualization.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Stats summarises a project graph.
type Stats struct {
	TotalEntities      int            `json:"total_entities"`
	TotalRelationships int            `json:"total_relationships"`
	EntityCounts       map[string]int `json:"entity_counts"`
}

package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/contextgraph/context-graph/engine/domain"
)

// LocalGraph returns the neighbourhood of a node to the given depth. A node
// with no edges yields itself and an empty edge list.
func (s *Service) LocalGraph(ctx context.Context, graphName, id string, depth int) (GraphData, error) {
	nid, err := NormalizeID(id)
	if err != nil {
		return GraphData{}, err
	}
	if depth < 1 {
		depth = 1
	} else if depth > 5 {
		depth = 5
	}

	q := fmt.Sprintf(
		"MATCH p = (n)-[*1..%d]-(m) WHERE id(n) = %d RETURN nodes(p) AS nodes, relationships(p) AS edges",
		depth, nid)
	rows, err := s.db.ExecuteCypher(ctx, graphName, q)
	if err != nil {
		return GraphData{}, err
	}

	data := GraphData{Nodes: []Node{}, Edges: []Edge{}}
	seenNodes := map[string]bool{}
	seenEdges := map[string]bool{}
	for _, row := range rows {
		if nodes, ok := row["nodes"].([]any); ok {
			for _, nv := range nodes {
				if e, ok := entityFromVertex(nv); ok && !seenNodes[e.ID] {
					seenNodes[e.ID] = true
					data.Nodes = append(data.Nodes, nodeFromEntity(e))
				}
			}
		}
		if edges, ok := row["edges"].([]any); ok {
			for _, ev := range edges {
				if rel, ok := relationshipFromEdge(ev); ok && !seenEdges[rel.ID] {
					seenEdges[rel.ID] = true
					data.Edges = append(data.Edges, edgeFromRelationship(rel))
				}
			}
		}
	}
	if len(data.Nodes) > 0 {
		return data, nil
	}

	// Disconnected focus node: return it alone.
	focus, err := s.db.ExecuteCypher(ctx, graphName,
		fmt.Sprintf("MATCH (n) WHERE id(n) = %d RETURN n", nid))
	if err != nil {
		return GraphData{}, err
	}
	if len(focus) == 0 {
		return GraphData{}, domain.NotFoundf("entity %s not found", id)
	}
	if e, ok := entityFromVertex(focus[0]["n"]); ok {
		data.Nodes = append(data.Nodes, nodeFromEntity(e))
	}
	return data, nil
}

// FullGraph returns up to limit nodes (optionally restricted to labels) plus
// the edges between them.
func (s *Service) FullGraph(ctx context.Context, graphName string, entityTypes []string, limit int) (GraphData, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	data := GraphData{Nodes: []Node{}, Edges: []Edge{}}
	seen := map[string]bool{}
	collect := func(rows []map[string]any) {
		for _, row := range rows {
			if e, ok := entityFromVertex(row["n"]); ok && !seen[e.ID] {
				seen[e.ID] = true
				data.Nodes = append(data.Nodes, nodeFromEntity(e))
			}
		}
	}

	if len(entityTypes) > 0 {
		for _, et := range entityTypes {
			rows, err := s.db.ExecuteCypher(ctx, graphName,
				fmt.Sprintf("MATCH (n:%s) RETURN n LIMIT %d", et, limit))
			if err != nil {
				return GraphData{}, err
			}
			collect(rows)
		}
	} else {
		rows, err := s.db.ExecuteCypher(ctx, graphName,
			fmt.Sprintf("MATCH (n) RETURN n LIMIT %d", limit))
		if err != nil {
			return GraphData{}, err
		}
		collect(rows)
	}

	if len(data.Nodes) == 0 {
		return data, nil
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	q := fmt.Sprintf(
		"MATCH (a)-[r]->(b) WHERE id(a) IN [%s] AND id(b) IN [%s] RETURN r LIMIT %d",
		strings.Join(ids, ", "), strings.Join(ids, ", "), limit*4)
	rows, err := s.db.ExecuteCypher(ctx, graphName, q)
	if err != nil {
		return GraphData{}, err
	}
	for _, row := range rows {
		if rel, ok := relationshipFromEdge(row["r"]); ok {
			data.Edges = append(data.Edges, edgeFromRelationship(rel))
		}
	}
	return data, nil
}

// Stats counts nodes per label and total edges.
func (s *Service) Stats(ctx context.Context, graphName string) (Stats, error) {
	stats := Stats{EntityCounts: map[string]int{}}

	rows, err := s.db.ExecuteCypher(ctx, graphName,
		"MATCH (n) RETURN labels(n) AS labels, count(n) AS cnt")
	if err != nil {
		return stats, err
	}
	for _, row := range rows {
		label := NormalizeLabel(row["labels"])
		n := int(int64From(row["cnt"]))
		stats.EntityCounts[label] += n
		stats.TotalEntities += n
	}

	rows, err = s.db.ExecuteCypher(ctx, graphName,
		"MATCH ()-[r]->() RETURN count(r) AS cnt")
	if err != nil {
		return stats, err
	}
	if len(rows) > 0 {
		stats.TotalRelationships = int(int64From(rows[0]["cnt"]))
	}
	return stats, nil
}

func nodeFromEntity(e Entity) Node {
	return Node{ID: e.ID, Name: e.Name, Type: e.Type, Properties: e.Properties}
}

func edgeFromRelationship(r Relationship) Edge {
	return Edge{ID: r.ID, Source: r.SourceID, Target: r.TargetID, Type: r.Type, Properties: r.Properties}
}

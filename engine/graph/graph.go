package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/contextgraph/context-graph/engine/domain"
)

// Cypher is the slice of the relational gateway the graph engine needs.
type Cypher interface {
	ExecuteCypher(ctx context.Context, graphName, query string) ([]map[string]any, error)
	Execute(ctx context.Context, sql string, args ...any) error
}

// Service runs property-graph operations against named AGE graphs.
type Service struct {
	db  Cypher
	log *slog.Logger
}

// New creates the graph service.
func New(db Cypher, log *slog.Logger) *Service {
	return &Service{db: db, log: log}
}

// CreateGraph creates a named graph, tolerating an existing one.
func (s *Service) CreateGraph(ctx context.Context, name string) error {
	err := s.db.Execute(ctx, "SELECT ag_catalog.create_graph($1);", name)
	if err != nil && strings.Contains(err.Error(), "already exists") {
		return nil
	}
	return err
}

// DropGraph removes a named graph and everything in it.
func (s *Service) DropGraph(ctx context.Context, name string) error {
	return s.db.Execute(ctx, "SELECT ag_catalog.drop_graph($1, true);", name)
}

// CreateEntity creates a node. Name rides in the property bag.
func (s *Service) CreateEntity(ctx context.Context, graphName string, in EntityCreate) (Entity, error) {
	props := make(domain.Properties, len(in.Properties)+1)
	for k, v := range in.Properties {
		props[k] = v
	}
	props["name"] = in.Name

	q := fmt.Sprintf("CREATE (n:%s %s) RETURN n", in.Type, EncodeMap(props))
	rows, err := s.db.ExecuteCypher(ctx, graphName, q)
	if err != nil {
		return Entity{}, err
	}
	if len(rows) == 0 {
		return Entity{}, fmt.Errorf("create entity %q returned no node", in.Name)
	}
	e, ok := entityFromVertex(rows[0]["n"])
	if !ok {
		return Entity{}, fmt.Errorf("create entity %q: unexpected result shape", in.Name)
	}
	return e, nil
}

// GetEntity returns a node with its one-hop connections.
func (s *Service) GetEntity(ctx context.Context, graphName, id string) (*Entity, error) {
	nid, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.ExecuteCypher(ctx, graphName,
		fmt.Sprintf("MATCH (n) WHERE id(n) = %d RETURN n", nid))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NotFoundf("entity %s not found", id)
	}
	e, ok := entityFromVertex(rows[0]["n"])
	if !ok {
		return nil, fmt.Errorf("entity %s: unexpected result shape", id)
	}
	conns, err := s.connections(ctx, graphName, nid)
	if err != nil {
		s.log.Warn("fetch connections failed", "graph", graphName, "entity", id, "error", err)
	} else {
		e.Connections = conns
	}
	return &e, nil
}

func (s *Service) connections(ctx context.Context, graphName string, nid int64) ([]Connection, error) {
	var conns []Connection
	dirs := []struct {
		pattern   string
		direction string
	}{
		{"MATCH (n)-[r]->(m) WHERE id(n) = %d RETURN type(r) AS rel, m AS other LIMIT 25", "outgoing"},
		{"MATCH (n)<-[r]-(m) WHERE id(n) = %d RETURN type(r) AS rel, m AS other LIMIT 25", "incoming"},
	}
	for _, d := range dirs {
		rows, err := s.db.ExecuteCypher(ctx, graphName, fmt.Sprintf(d.pattern, nid))
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			other, ok := entityFromVertex(row["other"])
			if !ok {
				continue
			}
			conns = append(conns, Connection{
				ID:           other.ID,
				Name:         other.Name,
				Type:         other.Type,
				Relationship: str(row["rel"]),
				Direction:    d.direction,
			})
		}
	}
	return conns, nil
}

// ListEntities pages nodes, optionally restricted to one label.
func (s *Service) ListEntities(ctx context.Context, graphName string, entityType string, limit, offset int) ([]Entity, error) {
	label := ""
	if entityType != "" {
		label = ":" + entityType
	}
	q := fmt.Sprintf("MATCH (n%s) RETURN n ORDER BY n.name SKIP %d LIMIT %d", label, offset, limit)
	rows, err := s.db.ExecuteCypher(ctx, graphName, q)
	if err != nil {
		return nil, err
	}
	out := make([]Entity, 0, len(rows))
	for _, row := range rows {
		if e, ok := entityFromVertex(row["n"]); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// UpdateEntity applies a partial property update. Nil values remove the key;
// an empty update returns the node unchanged.
func (s *Service) UpdateEntity(ctx context.Context, graphName, id string, props domain.Properties) (*Entity, error) {
	nid, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return s.GetEntity(ctx, graphName, id)
	}

	var sets, removes []string
	for k, v := range props {
		key := cleanKey(k)
		if key == "" {
			continue
		}
		if v == nil {
			removes = append(removes, "n."+key)
		} else {
			sets = append(sets, fmt.Sprintf("n.%s = %s", key, EncodeValue(v)))
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (n) WHERE id(n) = %d", nid)
	if len(sets) > 0 {
		b.WriteString(" SET " + strings.Join(sets, ", "))
	}
	if len(removes) > 0 {
		b.WriteString(" REMOVE " + strings.Join(removes, ", "))
	}
	b.WriteString(" RETURN n")

	rows, err := s.db.ExecuteCypher(ctx, graphName, b.String())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NotFoundf("entity %s not found", id)
	}
	e, ok := entityFromVertex(rows[0]["n"])
	if !ok {
		return nil, fmt.Errorf("entity %s: unexpected result shape", id)
	}
	return &e, nil
}

// DeleteEntity removes a node and its edges.
func (s *Service) DeleteEntity(ctx context.Context, graphName, id string) error {
	nid, err := NormalizeID(id)
	if err != nil {
		return err
	}
	rows, err := s.db.ExecuteCypher(ctx, graphName,
		fmt.Sprintf("MATCH (n) WHERE id(n) = %d RETURN id(n) AS found", nid))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return domain.NotFoundf("entity %s not found", id)
	}
	_, err = s.db.ExecuteCypher(ctx, graphName,
		fmt.Sprintf("MATCH (n) WHERE id(n) = %d DETACH DELETE n", nid))
	return err
}

// UpsertEntity matches by case-insensitive name within the label, overlaying
// properties on a hit and creating otherwise. A non-empty description is
// merged into the property bag. MergedProperties lists the keys that were
// overwritten.
func (s *Service) UpsertEntity(ctx context.Context, graphName string, in EntityCreate, description string) (UpsertResult, error) {
	if description != "" {
		props := domain.Properties{}
		for k, v := range in.Properties {
			props[k] = v
		}
		props["description"] = description
		in.Properties = props
	}
	q := fmt.Sprintf("MATCH (n:%s) WHERE toLower(n.name) = toLower('%s') RETURN n LIMIT 1",
		in.Type, escapeString(in.Name))
	rows, err := s.db.ExecuteCypher(ctx, graphName, q)
	if err != nil {
		return UpsertResult{}, err
	}
	if len(rows) == 0 {
		e, err := s.CreateEntity(ctx, graphName, in)
		if err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{Entity: e, Created: true, MergedProperties: []string{}}, nil
	}

	existing, ok := entityFromVertex(rows[0]["n"])
	if !ok {
		return UpsertResult{}, fmt.Errorf("upsert %q: unexpected result shape", in.Name)
	}
	merged := []string{}
	for k := range in.Properties {
		if _, had := existing.Properties[k]; had {
			merged = append(merged, k)
		}
	}
	if len(in.Properties) > 0 {
		updated, err := s.UpdateEntity(ctx, graphName, existing.ID, in.Properties)
		if err != nil {
			return UpsertResult{}, err
		}
		existing = *updated
	}
	return UpsertResult{Entity: existing, Created: false, MergedProperties: merged}, nil
}

// FindEntities matches nodes by case-insensitive exact name, optionally
// scoped to one label.
func (s *Service) FindEntities(ctx context.Context, graphName, name, entityType string, limit int) ([]Entity, error) {
	if limit <= 0 {
		limit = 20
	}
	label := ""
	if entityType != "" {
		label = ":" + entityType
	}
	q := fmt.Sprintf("MATCH (n%s) WHERE toLower(n.name) = toLower('%s') RETURN n LIMIT %d",
		label, escapeString(name), limit)
	rows, err := s.db.ExecuteCypher(ctx, graphName, q)
	if err != nil {
		return nil, err
	}
	out := make([]Entity, 0, len(rows))
	for _, row := range rows {
		e, ok := entityFromVertex(row["n"])
		if !ok {
			continue
		}
		nid, err := NormalizeID(e.ID)
		if err == nil {
			if conns, err := s.connections(ctx, graphName, nid); err == nil {
				e.Connections = conns
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// CreateRelationship creates an edge between two existing nodes.
func (s *Service) CreateRelationship(ctx context.Context, graphName string, in RelationshipCreate) (Relationship, error) {
	src, err := NormalizeID(in.SourceID)
	if err != nil {
		return Relationship{}, err
	}
	dst, err := NormalizeID(in.TargetID)
	if err != nil {
		return Relationship{}, err
	}
	propsStr := ""
	if len(in.Properties) > 0 {
		propsStr = " " + EncodeMap(in.Properties)
	}
	q := fmt.Sprintf(
		"MATCH (a), (b) WHERE id(a) = %d AND id(b) = %d CREATE (a)-[r:%s%s]->(b) RETURN r",
		src, dst, in.Type, propsStr)
	rows, err := s.db.ExecuteCypher(ctx, graphName, q)
	if err != nil {
		return Relationship{}, err
	}
	if len(rows) == 0 {
		return Relationship{}, domain.NotFoundf("source or target entity not found")
	}
	rel, ok := relationshipFromEdge(rows[0]["r"])
	if !ok {
		return Relationship{}, fmt.Errorf("create relationship: unexpected result shape")
	}
	return rel, nil
}

// ListRelationships pages edges with endpoint names.
func (s *Service) ListRelationships(ctx context.Context, graphName string, limit int) ([]Relationship, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(
		"MATCH (a)-[r]->(b) RETURN r, a.name AS source_name, b.name AS target_name LIMIT %d", limit)
	rows, err := s.db.ExecuteCypher(ctx, graphName, q)
	if err != nil {
		return nil, err
	}
	out := make([]Relationship, 0, len(rows))
	for _, row := range rows {
		rel, ok := relationshipFromEdge(row["r"])
		if !ok {
			continue
		}
		rel.SourceName = str(row["source_name"])
		rel.TargetName = str(row["target_name"])
		out = append(out, rel)
	}
	return out, nil
}

// EntityRelationships lists the edges touching a node, filtered by direction
// (incoming, outgoing, all) and optionally by type.
func (s *Service) EntityRelationships(ctx context.Context, graphName, id, direction string, relType domain.RelationshipType) ([]EntityRelationship, error) {
	nid, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}
	typePart := ""
	if relType != "" {
		typePart = ":" + string(relType)
	}

	type dirQuery struct {
		pattern   string
		direction string
	}
	var queries []dirQuery
	if direction == "outgoing" || direction == "all" || direction == "" {
		queries = append(queries, dirQuery{
			fmt.Sprintf("MATCH (n)-[r%s]->(m) WHERE id(n) = %d RETURN r, m", typePart, nid), "outgoing"})
	}
	if direction == "incoming" || direction == "all" || direction == "" {
		queries = append(queries, dirQuery{
			fmt.Sprintf("MATCH (n)<-[r%s]-(m) WHERE id(n) = %d RETURN r, m", typePart, nid), "incoming"})
	}

	var out []EntityRelationship
	for _, dq := range queries {
		rows, err := s.db.ExecuteCypher(ctx, graphName, dq.pattern)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			rel, ok := relationshipFromEdge(row["r"])
			if !ok {
				continue
			}
			other, ok := entityFromVertex(row["m"])
			if !ok {
				continue
			}
			out = append(out, EntityRelationship{
				ID:         rel.ID,
				Type:       rel.Type,
				Direction:  dq.direction,
				OtherID:    other.ID,
				OtherName:  other.Name,
				OtherType:  other.Type,
				Properties: rel.Properties,
			})
		}
	}
	return out, nil
}

// BatchCreate creates entities then relationships, capturing per-item errors
// instead of failing the batch. Relationship endpoints resolve by entity ref
// first, then by name lookup in the graph.
func (s *Service) BatchCreate(ctx context.Context, graphName string, entities []BatchEntity, rels []BatchRelationship) BatchResult {
	result := BatchResult{
		EntitiesCreated:      []Entity{},
		RelationshipsCreated: []Relationship{},
		Errors:               []string{},
	}
	refs := map[string]string{} // ref or name -> entity id

	for i, be := range entities {
		e, err := s.CreateEntity(ctx, graphName, EntityCreate{
			Name: be.Name, Type: be.Type, Properties: be.Properties,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("entity %d (%s): %v", i, be.Name, err))
			continue
		}
		result.EntitiesCreated = append(result.EntitiesCreated, e)
		if be.Ref != "" {
			refs[be.Ref] = e.ID
		}
		refs[be.Name] = e.ID
	}

	for i, br := range rels {
		srcID, err := s.resolveEndpoint(ctx, graphName, refs, br.From)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("relationship %d: from %q: %v", i, br.From, err))
			continue
		}
		dstID, err := s.resolveEndpoint(ctx, graphName, refs, br.To)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("relationship %d: to %q: %v", i, br.To, err))
			continue
		}
		rel, err := s.CreateRelationship(ctx, graphName, RelationshipCreate{
			SourceID: srcID, TargetID: dstID, Type: br.Type, Properties: br.Properties,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("relationship %d (%s): %v", i, br.Type, err))
			continue
		}
		result.RelationshipsCreated = append(result.RelationshipsCreated, rel)
	}
	return result
}

func (s *Service) resolveEndpoint(ctx context.Context, graphName string, refs map[string]string, handle string) (string, error) {
	if id, ok := refs[handle]; ok {
		return id, nil
	}
	if _, err := NormalizeID(handle); err == nil {
		return handle, nil
	}
	rows, err := s.db.ExecuteCypher(ctx, graphName,
		fmt.Sprintf("MATCH (n) WHERE toLower(n.name) = toLower('%s') RETURN n LIMIT 1", escapeString(handle)))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", domain.NotFoundf("no entity matches %q", handle)
	}
	e, ok := entityFromVertex(rows[0]["n"])
	if !ok {
		return "", fmt.Errorf("unexpected result shape")
	}
	return e.ID, nil
}

// BatchDelete removes nodes by id, capturing per-item errors.
func (s *Service) BatchDelete(ctx context.Context, graphName string, ids []string) BatchDeleteResult {
	result := BatchDeleteResult{Errors: []string{}}
	for _, id := range ids {
		if err := s.DeleteEntity(ctx, graphName, id); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		result.Deleted++
	}
	return result
}

// ExecuteReadQuery runs a caller-supplied cypher query after the mutation
// gate.
func (s *Service) ExecuteReadQuery(ctx context.Context, graphName, query string) ([]map[string]any, error) {
	if HasRestrictedKeywords(query) {
		return nil, domain.ErrRestrictedQuery
	}
	return s.db.ExecuteCypher(ctx, graphName, query)
}

// entityFromVertex maps a decoded agtype vertex into an Entity.
func entityFromVertex(v any) (Entity, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Entity{}, false
	}
	props := domain.Properties{}
	if pm, ok := m["properties"].(map[string]any); ok {
		for k, val := range pm {
			props[k] = val
		}
	}
	name := str(props["name"])
	delete(props, "name")
	return Entity{
		ID:         idString(m["id"]),
		Name:       name,
		Type:       NormalizeLabel(m["label"]),
		Properties: props,
	}, true
}

// relationshipFromEdge maps a decoded agtype edge into a Relationship.
func relationshipFromEdge(v any) (Relationship, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Relationship{}, false
	}
	props := domain.Properties{}
	if pm, ok := m["properties"].(map[string]any); ok {
		for k, val := range pm {
			props[k] = val
		}
	}
	return Relationship{
		ID:         idString(m["id"]),
		SourceID:   idString(m["start_id"]),
		TargetID:   idString(m["end_id"]),
		Type:       NormalizeLabel(m["label"]),
		Properties: props,
	}, true
}

func idString(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case string:
		return t
	default:
		return ""
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

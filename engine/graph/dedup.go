package graph

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FindDuplicates groups nodes sharing a case-insensitive name and label,
// optionally restricted to one label. The grouping happens client-side; AGE
// has no usable string aggregation here.
func (s *Service) FindDuplicates(ctx context.Context, graphName, entityType string) ([]DuplicateGroup, error) {
	label := ""
	if entityType != "" {
		label = ":" + entityType
	}
	rows, err := s.db.ExecuteCypher(ctx, graphName, fmt.Sprintf("MATCH (n%s) RETURN n", label))
	if err != nil {
		return nil, err
	}

	type key struct{ name, label string }
	groups := map[key][]Entity{}
	var order []key
	for _, row := range rows {
		e, ok := entityFromVertex(row["n"])
		if !ok || e.Name == "" {
			continue
		}
		k := key{strings.ToLower(e.Name), e.Type}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}

	var out []DuplicateGroup
	for _, k := range order {
		members := groups[k]
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			return idLess(members[i].ID, members[j].ID)
		})
		out = append(out, DuplicateGroup{
			Name:            k.name,
			Type:            k.label,
			Entities:        members,
			RecommendedKeep: members[0].ID,
		})
	}
	return out, nil
}

// Deduplicate merges each duplicate group into its lowest-id keeper. With
// dryRun it only reports the groups.
func (s *Service) Deduplicate(ctx context.Context, graphName string, dryRun bool) (DeduplicateResult, error) {
	groups, err := s.FindDuplicates(ctx, graphName, "")
	if err != nil {
		return DeduplicateResult{}, err
	}
	result := DeduplicateResult{
		DryRun:      dryRun,
		GroupsFound: len(groups),
		Groups:      groups,
	}
	if dryRun {
		return result, nil
	}
	for _, g := range groups {
		for _, dup := range g.Entities[1:] {
			if err := s.mergeInto(ctx, graphName, g.RecommendedKeep, dup.ID); err != nil {
				s.log.Warn("merge failed", "graph", graphName,
					"keeper", g.RecommendedKeep, "duplicate", dup.ID, "error", err)
				continue
			}
			result.EntitiesMerged++
		}
	}
	return result, nil
}

// mergeInto re-points the duplicate's edges onto the keeper, preserving type
// and properties, then deletes the duplicate. Edges already touching the
// keeper are skipped. A failed re-point in one direction is logged, not
// fatal.
func (s *Service) mergeInto(ctx context.Context, graphName, keeperID, dupID string) error {
	keeper, err := NormalizeID(keeperID)
	if err != nil {
		return err
	}
	dup, err := NormalizeID(dupID)
	if err != nil {
		return err
	}

	outgoing, err := s.db.ExecuteCypher(ctx, graphName, fmt.Sprintf(
		"MATCH (d)-[r]->(m) WHERE id(d) = %d AND id(m) <> %d RETURN id(m) AS other, type(r) AS rel, properties(r) AS props",
		dup, keeper))
	if err != nil {
		s.log.Warn("merge: read outgoing failed", "graph", graphName, "duplicate", dupID, "error", err)
	} else {
		s.repointEdges(ctx, graphName, keeper, outgoing, true)
	}

	incoming, err := s.db.ExecuteCypher(ctx, graphName, fmt.Sprintf(
		"MATCH (d)<-[r]-(m) WHERE id(d) = %d AND id(m) <> %d RETURN id(m) AS other, type(r) AS rel, properties(r) AS props",
		dup, keeper))
	if err != nil {
		s.log.Warn("merge: read incoming failed", "graph", graphName, "duplicate", dupID, "error", err)
	} else {
		s.repointEdges(ctx, graphName, keeper, incoming, false)
	}

	_, err = s.db.ExecuteCypher(ctx, graphName,
		fmt.Sprintf("MATCH (d) WHERE id(d) = %d DETACH DELETE d", dup))
	return err
}

func (s *Service) repointEdges(ctx context.Context, graphName string, keeper int64, rows []map[string]any, outgoing bool) {
	for _, row := range rows {
		relType := str(row["rel"])
		if relType == "" {
			continue
		}
		other := int64From(row["other"])
		propsStr := ""
		if pm, ok := row["props"].(map[string]any); ok && len(pm) > 0 {
			propsStr = " " + EncodeMap(pm)
		}
		var q string
		if outgoing {
			q = fmt.Sprintf(
				"MATCH (k), (m) WHERE id(k) = %d AND id(m) = %d CREATE (k)-[r:%s%s]->(m) RETURN id(r) AS rid",
				keeper, other, relType, propsStr)
		} else {
			q = fmt.Sprintf(
				"MATCH (k), (m) WHERE id(k) = %d AND id(m) = %d CREATE (m)-[r:%s%s]->(k) RETURN id(r) AS rid",
				keeper, other, relType, propsStr)
		}
		if _, err := s.db.ExecuteCypher(ctx, graphName, q); err != nil {
			s.log.Warn("merge: re-point edge failed", "graph", graphName,
				"keeper", keeper, "other", other, "type", relType, "error", err)
		}
	}
}

func idLess(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}

func int64From(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	}
	return 0
}

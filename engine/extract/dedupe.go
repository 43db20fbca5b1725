package extract

import (
	"fmt"
	"strings"
	"unicode"
)

// dedupeEntities collapses entities sharing a case-insensitive name and type.
// The surviving entity takes the name with the most uppercase letters (the
// most deliberate casing) and the union of all properties. It returns the
// survivors, renumbered d0..dN in first-seen order, plus an old-to-new id map.
func dedupeEntities(entities []Entity) ([]Entity, map[string]string) {
	type key struct{ name, typ string }
	groups := map[key][]Entity{}
	var order []key
	for _, e := range entities {
		k := key{strings.ToLower(e.Name), e.Type}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}

	idMap := map[string]string{}
	out := make([]Entity, 0, len(order))
	for seq, k := range order {
		members := groups[k]
		base := members[0]
		for _, m := range members[1:] {
			if uppercaseCount(m.Name) > uppercaseCount(base.Name) {
				base = m
			}
		}
		merged := Entity{
			TempID:     fmt.Sprintf("d%d", seq),
			Name:       base.Name,
			Type:       base.Type,
			Properties: map[string]any{},
		}
		for _, m := range members {
			mergeProperties(merged.Properties, m.Properties)
			idMap[m.TempID] = merged.TempID
		}
		if len(merged.Properties) == 0 {
			merged.Properties = nil
		}
		out = append(out, merged)
	}
	return out, idMap
}

// mergeProperties folds src into dst: first value wins for equal keys with
// equal values, conflicting scalars become a list, lists union.
func mergeProperties(dst, src map[string]any) {
	for k, v := range src {
		if v == nil {
			continue
		}
		old, had := dst[k]
		if !had {
			dst[k] = v
			continue
		}
		oldList, oldIsList := old.([]any)
		newList, newIsList := v.([]any)
		switch {
		case oldIsList && newIsList:
			dst[k] = unionList(oldList, newList)
		case oldIsList:
			dst[k] = unionList(oldList, []any{v})
		case newIsList:
			dst[k] = unionList([]any{old}, newList)
		default:
			if fmt.Sprint(old) != fmt.Sprint(v) {
				dst[k] = []any{old, v}
			}
		}
	}
}

func unionList(a, b []any) []any {
	out := append([]any(nil), a...)
	seen := map[string]bool{}
	for _, v := range a {
		seen[fmt.Sprint(v)] = true
	}
	for _, v := range b {
		if s := fmt.Sprint(v); !seen[s] {
			seen[s] = true
			out = append(out, v)
		}
	}
	return out
}

// reconcileRelationships remaps endpoints through the dedupe id map, then
// drops self-loops, dangling references, and duplicate (source, target, type)
// triples. A duplicate's properties backfill keys the survivor lacks.
func reconcileRelationships(rels []Relationship, idMap map[string]string) []Relationship {
	out := make([]Relationship, 0, len(rels))
	index := map[string]int{}
	for _, r := range rels {
		src, okS := idMap[r.Source]
		dst, okT := idMap[r.Target]
		if !okS || !okT || src == dst {
			continue
		}
		r.Source, r.Target = src, dst
		k := src + "\x00" + dst + "\x00" + r.Type
		if i, dup := index[k]; dup {
			if len(r.Properties) > 0 {
				if out[i].Properties == nil {
					out[i].Properties = map[string]any{}
				}
				for pk, pv := range r.Properties {
					if _, had := out[i].Properties[pk]; !had {
						out[i].Properties[pk] = pv
					}
				}
			}
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

func uppercaseCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			n++
		}
	}
	return n
}

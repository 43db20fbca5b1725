package graph

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/contextgraph/context-graph/engine/domain"
)

var (
	idPrefixes  = []string{"entity_", "chunk_"}
	identRe     = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	digitLeadRe = regexp.MustCompile(`^[0-9]`)
)

// NormalizeID turns an external entity id into an AGE numeric id. Accepts
// bare decimals and the entity_/chunk_ prefixed forms.
func NormalizeID(id string) (int64, error) {
	s := strings.TrimSpace(id)
	for _, p := range idPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimPrefix(s, p)
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError("id", id, domain.ErrInvalidID)
	}
	return n, nil
}

// NormalizeLabel collapses an agtype labels() value into a single label.
func NormalizeLabel(v any) string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "Unknown"
		}
		return t
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok && s != "" {
				return s
			}
		}
	}
	return "Unknown"
}

// escapeString makes a value safe inside a single-quoted cypher literal.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return s
}

// EncodeValue renders a Go value as a cypher literal. Strings are
// single-quoted, numbers and bools are raw, anything structured is stored as
// a quoted JSON string.
func EncodeValue(v any) string {
	switch t := v.(type) {
	case string:
		return "'" + escapeString(t) + "'"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "'" + escapeString(fmt.Sprint(v)) + "'"
		}
		return "'" + escapeString(string(b)) + "'"
	}
}

// EncodeMap renders a property bag as a cypher map literal with sorted keys.
// Nil values and unusable keys are dropped.
func EncodeMap(props map[string]any) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		if props[k] == nil {
			continue
		}
		if clean := cleanKey(k); clean != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, cleanKey(k)+": "+EncodeValue(props[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func cleanKey(k string) string {
	c := identRe.ReplaceAllString(k, "_")
	c = strings.Trim(c, "_")
	if c == "" || digitLeadRe.MatchString(c) {
		return ""
	}
	return c
}

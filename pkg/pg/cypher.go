package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// AGE returns agtype cells; the wrapping SELECT needs the column list spelled
// out, so it is synthesised from the query's RETURN clause.

var (
	returnClauseRe = regexp.MustCompile(`(?is)\bRETURN\s+(.+?)(?:\s+ORDER\s+BY\b|\s+LIMIT\b|\s+SKIP\b|\s*$)`)
	asAliasRe      = regexp.MustCompile(`(?is)\s+AS\s+(\w+)\s*$`)
	identCleanRe   = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	typeTagRe      = regexp.MustCompile(`::(vertex|edge|path)\s*$`)
)

// ExecuteCypher runs a cypher query against the named graph and returns the
// decoded rows. Each call loads the AGE extension and sets the search path on
// the session before wrapping the query in ag_catalog.cypher().
func (db *DB) ExecuteCypher(ctx context.Context, graphName, query string) ([]map[string]any, error) {
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LOAD 'age';"); err != nil {
		return nil, fmt.Errorf("load age: %w", err)
	}
	if _, err := conn.Exec(ctx, "SET search_path = ag_catalog, public;"); err != nil {
		return nil, fmt.Errorf("set search_path: %w", err)
	}

	cols := returnColumns(query)
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c + " agtype"
	}
	sql := fmt.Sprintf("SELECT * FROM cypher('%s', $$%s$$) AS (%s);",
		graphName, query, strings.Join(defs, ", "))

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("cypher on %s: %w", graphName, err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if i < len(vals) {
				row[c] = decodeAgtype(vals[i])
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// returnColumns derives the SELECT column names from the query's RETURN
// clause. Items split on top-level commas only; an AS alias wins, otherwise
// the last dotted path segment is cleaned into an identifier. Queries without
// a RETURN get a single throwaway column.
func returnColumns(query string) []string {
	m := returnClauseRe.FindStringSubmatch(query)
	if m == nil {
		return []string{"data"}
	}
	items := splitTopLevel(m[1])
	if len(items) == 0 {
		return []string{"data"}
	}
	cols := make([]string, 0, len(items))
	seen := map[string]int{}
	for i, item := range items {
		name := columnName(item, i)
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n)
		} else {
			seen[name] = 1
		}
		cols = append(cols, name)
	}
	return cols
}

func columnName(item string, idx int) string {
	item = strings.TrimSpace(item)
	if m := asAliasRe.FindStringSubmatch(item); m != nil {
		return strings.ToLower(m[1])
	}
	if i := strings.LastIndex(item, "."); i >= 0 {
		item = item[i+1:]
	}
	name := identCleanRe.ReplaceAllString(item, "_")
	name = strings.Trim(name, "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		return fmt.Sprintf("col%d", idx)
	}
	return strings.ToLower(name)
}

// splitTopLevel splits on commas outside (), [], {} and quotes.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote && (i == 0 || s[i-1] != '\\') {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				if p := strings.TrimSpace(s[start:i]); p != "" {
					parts = append(parts, p)
				}
				start = i + 1
			}
		}
	}
	if p := strings.TrimSpace(s[start:]); p != "" {
		parts = append(parts, p)
	}
	return parts
}

// decodeAgtype turns an agtype cell into Go data: vertex/edge/path tags are
// stripped and the remainder JSON-decoded; anything unparseable comes back as
// the raw string.
func decodeAgtype(v any) any {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return v
	}
	s = strings.TrimSpace(typeTagRe.ReplaceAllString(s, ""))
	if s == "" {
		return nil
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return s
	}
	return out
}

package graph

import (
	"regexp"
	"strings"
)

// restrictedKeywords are the mutation forms the raw query endpoint refuses.
var restrictedKeywords = map[string]bool{
	"DELETE": true, "CREATE": true, "DROP": true, "SET": true,
	"REMOVE": true, "MERGE": true, "DETACH": true, "CALL": true,
}

var (
	lineCommentRe  = regexp.MustCompile(`//[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	wordRe         = regexp.MustCompile(`\b[A-Z]+\b`)
)

// HasRestrictedKeywords reports whether a raw cypher query contains a
// mutation keyword. Comments are stripped first so they can't hide one, and
// matching is on word boundaries so names like "SETTING" pass.
func HasRestrictedKeywords(query string) bool {
	cleaned := blockCommentRe.ReplaceAllString(query, " ")
	cleaned = lineCommentRe.ReplaceAllString(cleaned, " ")
	for _, w := range wordRe.FindAllString(strings.ToUpper(cleaned), -1) {
		if restrictedKeywords[w] {
			return true
		}
	}
	return false
}

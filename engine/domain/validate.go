package domain

// ParseEntityType validates a node label against the closed set.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !ValidEntityTypes[t] {
		return "", NewValidationError("type", s, ErrInvalidEntity)
	}
	return t, nil
}

// ParseRelationshipType validates an edge label against the closed set.
func ParseRelationshipType(s string) (RelationshipType, error) {
	t := RelationshipType(s)
	if !ValidRelationshipTypes[t] {
		return "", NewValidationError("type", s, ErrInvalidRelation)
	}
	return t, nil
}

// ParseContentType validates a document content type. Empty defaults to general.
func ParseContentType(s string) (ContentType, error) {
	if s == "" {
		return ContentGeneral, nil
	}
	t := ContentType(s)
	if !ValidContentTypes[t] {
		return "", NewValidationError("content_type", s, ErrInvalidContent)
	}
	return t, nil
}

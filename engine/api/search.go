package api

import (
	"net/http"
	"strings"

	"github.com/contextgraph/context-graph/engine/domain"
	"github.com/contextgraph/context-graph/engine/search"
)

func parseSearchRequest(r *http.Request) (search.Request, error) {
	var in search.Request
	if err := decode(r, &in); err != nil {
		return in, err
	}
	if strings.TrimSpace(in.Query) == "" {
		return in, domain.NewValidationError("query", "", domain.ErrEmptyContent)
	}
	switch in.Mode {
	case "", search.ModeHybrid, search.ModeVector, search.ModeGraph:
	default:
		return in, domain.NewValidationError("mode", string(in.Mode), domain.ErrInvalidContent)
	}
	for _, et := range in.EntityTypes {
		if _, err := domain.ParseEntityType(string(et)); err != nil {
			return in, err
		}
	}
	return in, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	req, err := parseSearchRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := s.search.Search(r.Context(), search.ProjectRef{
		Slug: ref.Slug, GraphName: ref.GraphName,
	}, req, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFanoutSearch searches every project at once.
func (s *Server) handleFanoutSearch(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	projects, err := s.projects.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	refs := make([]search.ProjectRef, len(projects))
	for i, p := range projects {
		refs[i] = search.ProjectRef{Slug: p.Slug, GraphName: p.GraphName}
	}
	resp, err := s.search.Fanout(r.Context(), refs, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

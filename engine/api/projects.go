package api

import (
	"net/http"

	"github.com/contextgraph/context-graph/engine/document"
	"github.com/contextgraph/context-graph/engine/ingest"
	"github.com/contextgraph/context-graph/engine/project"
)

func (s *Server) handleProjectCreate(w http.ResponseWriter, r *http.Request) {
	var in project.Create
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	p, err := s.projects.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleProjectList(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"total":    len(projects),
	})
}

func (s *Server) handleProjectGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.projects.Get(r.Context(), r.PathValue("slug"), true)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProjectDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.projects.Delete(r.Context(), r.PathValue("slug")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDocumentCreate(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	var in document.CreateIn
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	doc, err := s.documents.Create(r.Context(), ref.ID, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleDocumentList(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	filter := document.ListFilter{
		ContentType: r.URL.Query().Get("content_type"),
		Processed:   queryBool(r, "processed"),
		Limit:       queryInt(r, "limit", 50),
		Offset:      queryInt(r, "offset", 0),
	}
	docs, total, err := s.documents.List(r.Context(), ref.ID, filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     total,
	})
}

func (s *Server) handleDocumentGet(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	doc, err := s.documents.Get(r.Context(), ref.ID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	if err := s.documents.Delete(r.Context(), ref.ID, ref.Slug, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDocumentProcess(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	result, err := s.ingestor.ProcessDocument(r.Context(), ingest.ProjectRef{
		ID: ref.ID, Slug: ref.Slug, GraphName: ref.GraphName,
	}, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

package api

import (
	"net/http"
)

func (s *Server) handleSnapshotCreate(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	var in struct {
		Label string `json:"label"`
	}
	if r.ContentLength > 0 {
		if err := decode(r, &in); err != nil {
			s.writeError(w, err)
			return
		}
	}
	snap, err := s.snapshots.Create(r.Context(), ref.ID, ref.GraphName, in.Label, "")
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleSnapshotList(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	snaps, err := s.snapshots.List(r.Context(), ref.ID, queryInt(r, "limit", 50))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": snaps,
		"total":     len(snaps),
	})
}

func (s *Server) handleSnapshotGet(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	detail, err := s.snapshots.Get(r.Context(), ref.ID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleSnapshotDelete(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	if err := s.snapshots.Delete(r.Context(), ref.ID, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshotRestore(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.resolveRef(w, r)
	if !ok {
		return
	}
	result, err := s.snapshots.Restore(r.Context(), ref.ID, ref.GraphName, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

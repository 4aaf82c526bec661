package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/patentalloy/internal/pathstore"
)

// handleGetDocument returns the published alloy properties for a document.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		jsonError(w, "result store not configured", http.StatusServiceUnavailable)
		return
	}
	docID := chi.URLParam(r, "docID")
	if !pathstore.ValidDocID(docID) {
		jsonError(w, pathstore.ErrInvalidDocID.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.results.GetResult(r.Context(), docID)
	if err != nil {
		s.log.Error("result lookup failed", "doc_id", docID, "error", err)
		jsonError(w, "failed to read result: "+err.Error(), http.StatusBadGateway)
		return
	}
	if res == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

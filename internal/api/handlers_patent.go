package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/patentalloy/internal/extract"
	"github.com/dgallion1/patentalloy/internal/parser"
	"github.com/dgallion1/patentalloy/internal/pathstore"
	"github.com/dgallion1/patentalloy/internal/pipeline"
)

type patentMetadata struct {
	Pages int `json:"pages"`
}

type patentResponse struct {
	Message       string         `json:"message"`
	Status        string         `json:"status"`
	JobID         string         `json:"job_id"`
	ExtractedText string         `json:"extracted_text"`
	Metadata      patentMetadata `json:"metadata"`
	AlloyInfo     string         `json:"alloy_info"`
}

// handlePatent accepts a PDF upload and answers once extraction finishes.
// Errors use a {"detail": ...} body.
func (s *Server) handlePatent(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readUpload(w, r, detailError)
	if !ok {
		return
	}
	if !parser.IsPDF(data) {
		detailError(w, "invalid PDF file", http.StatusBadRequest)
		return
	}

	docID := r.FormValue("doc_id")
	if docID != "" && !pathstore.ValidDocID(docID) {
		detailError(w, pathstore.ErrInvalidDocID.Error(), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(filename, docID, "", data)
	s.orchestrator.Run(r.Context(), job)

	snap := job.Snapshot()
	if snap.Status == pipeline.StatusFailed {
		s.failPatent(w, snap, job.Err())
		return
	}

	writeJSON(w, http.StatusOK, patentResponse{
		Message:       "Patent file received and processed",
		Status:        "processed",
		JobID:         snap.ID,
		ExtractedText: job.Text(),
		Metadata:      patentMetadata{Pages: snap.Pages},
		AlloyInfo:     snap.AlloyInfo,
	})
}

func (s *Server) failPatent(w http.ResponseWriter, snap pipeline.JobSnapshot, err error) {
	var cfgErr *extract.ConfigError
	switch {
	case snap.Phase == "parsing":
		detailError(w, "error processing PDF: "+err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &cfgErr):
		s.log.Error("model not available", "path", cfgErr.Path, "error", err)
		detailError(w, "model not available", http.StatusServiceUnavailable)
	default:
		detailError(w, "alloy extraction failed: "+err.Error(), http.StatusInternalServerError)
	}
}

func detailError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"detail": msg})
}

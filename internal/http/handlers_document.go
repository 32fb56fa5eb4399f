package http

import (
	"net/http"

	"autocare/internal/core"
	applog "autocare/internal/log"
)

type documentRequest struct {
	Title      string `json:"title"`
	Image      string `json:"image,omitempty"`
	ExpiryDate string `json:"expiryDate,omitempty"`
}

func (req documentRequest) toRecord() (core.DocumentRecord, error) {
	record := core.DocumentRecord{
		Title: sanitizeInput(req.Title),
		Image: req.Image,
	}
	if req.ExpiryDate != "" {
		expiry, err := core.ParseDate(req.ExpiryDate)
		if err != nil {
			return core.DocumentRecord{}, err
		}
		record.ExpiryDate = expiry
	}
	return record, nil
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.svc.ListDocuments(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).Error("List documents failed", applog.FieldError, err)
		writeDomainError(w, err)
		return
	}
	if docs == nil {
		docs = []core.DocumentRecord{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := req.toRecord()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := s.svc.CreateDocument(r.Context(), record)
	if err != nil {
		applog.FromContext(r.Context()).Error("Create document failed", applog.FieldError, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.svc.DeleteDocument(r.Context(), id); err != nil {
		applog.FromContext(r.Context()).Error("Delete document failed",
			applog.FieldDocumentID, id, applog.FieldError, err)
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

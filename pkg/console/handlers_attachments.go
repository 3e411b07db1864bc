package console

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/api"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/workflow"
)

func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, contracts.MaxAttachmentBytes+(1<<20))
	if err := r.ParseMultipartForm(contracts.MaxAttachmentBytes); err != nil {
		api.WriteBadRequest(w, r, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.WriteBadRequest(w, r, "missing file part")
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	att, err := s.workflow.UploadAttachment(r.Context(), r.PathValue("id"), workflow.UploadAttachmentInput{
		Filename:    header.Filename,
		ContentType: contentType,
		Description: r.FormValue("description"),
		Content:     file,
	}, api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

func (s *Server) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	atts, err := s.workflow.ListAttachments(r.Context(), r.PathValue("id"))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attachments": atts, "count": len(atts)})
}

func (s *Server) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	att, blob, err := s.workflow.OpenAttachment(r.Context(), r.PathValue("id"), r.PathValue("attachmentId"), api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	defer func() { _ = blob.Close() }()

	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", att.SizeBytes))
	_, _ = io.Copy(w, blob)
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason,omitempty"`
	}
	// DELETE bodies are optional.
	_ = decodeJSON(r, &body)

	err := s.workflow.DeleteAttachment(r.Context(), r.PathValue("id"), r.PathValue("attachmentId"), body.Reason, api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRedactAttachment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		api.WriteFault(w, r, err)
		return
	}
	err := s.workflow.RedactAttachment(r.Context(), r.PathValue("id"), r.PathValue("attachmentId"), body.Reason, api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package console

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/api"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/workflow"
)

// submissionResponse pairs the created submission with its case view.
type submissionResponse struct {
	Submission *contracts.Submission `json:"submission"`
	Case       *contracts.Case       `json:"case,omitempty"`
}

func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		api.WriteBadRequest(w, r, "request body unreadable")
		return
	}

	// Schema validation runs on the decoded generic form so error paths
	// point at the offending field.
	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		api.WriteBadRequest(w, r, "invalid JSON body")
		return
	}
	if err := s.submissionSchema.Validate(generic); err != nil {
		api.WriteBadRequest(w, r, err.Error())
		return
	}

	var in workflow.CreateSubmissionInput
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&in); err != nil {
		api.WriteBadRequest(w, r, "invalid JSON body")
		return
	}

	sub, c, err := s.workflow.CreateSubmission(r.Context(), in, api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, submissionResponse{Submission: sub, Case: c})
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.workflow.GetSubmission(r.Context(), r.PathValue("id"))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handlePatchSubmission(w http.ResponseWriter, r *http.Request) {
	var patch workflow.SubmissionPatch
	if err := decodeJSON(r, &patch); err != nil {
		api.WriteFault(w, r, err)
		return
	}
	sub, err := s.workflow.PatchSubmission(r.Context(), r.PathValue("id"), patch, api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleCancelSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.workflow.CancelSubmission(r.Context(), r.PathValue("id"), api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

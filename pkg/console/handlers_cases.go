package console

import (
	"net/http"
	"strconv"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/api"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/store"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/workflow"
)

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.CaseFilter{
		AssignedTo:   q.Get("assignedTo"),
		DecisionType: q.Get("decisionType"),
		Query:        q.Get("q"),
		Overdue:      q.Get("overdue") == "true",
		Unassigned:   q.Get("unassigned") == "true",
	}
	if raw := q.Get("status"); raw != "" {
		status, ok := contracts.ParseCaseStatus(raw)
		if !ok {
			api.WriteBadRequest(w, r, "unknown status "+raw)
			return
		}
		filter.Status = status
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	views, err := s.workflow.ListCases(r.Context(), filter)
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cases": views, "count": len(views)})
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	view, err := s.workflow.GetCase(r.Context(), r.PathValue("id"))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePatchCase(w http.ResponseWriter, r *http.Request) {
	var patch workflow.CasePatch
	if err := decodeJSON(r, &patch); err != nil {
		api.WriteFault(w, r, err)
		return
	}
	if patch.Status != nil {
		if _, ok := contracts.ParseCaseStatus(string(*patch.Status)); !ok {
			api.WriteBadRequest(w, r, "unknown status "+string(*patch.Status))
			return
		}
	}
	view, err := s.workflow.PatchCase(r.Context(), r.PathValue("id"), patch, api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Assignee string `json:"assignee"`
	}
	if err := decodeJSON(r, &body); err != nil {
		api.WriteFault(w, r, err)
		return
	}
	view, err := s.workflow.Assign(r.Context(), r.PathValue("id"), body.Assignee, api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUnassign(w http.ResponseWriter, r *http.Request) {
	view, err := s.workflow.Unassign(r.Context(), r.PathValue("id"), api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
		Reason string `json:"reason,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		api.WriteFault(w, r, err)
		return
	}
	status, ok := contracts.ParseCaseStatus(body.Status)
	if !ok {
		api.WriteBadRequest(w, r, "unknown status "+body.Status)
		return
	}
	view, err := s.workflow.SetStatus(r.Context(), r.PathValue("id"), status, body.Reason, api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := s.workflow.ListEvents(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Note string `json:"note"`
	}
	if err := decodeJSON(r, &body); err != nil {
		api.WriteFault(w, r, err)
		return
	}
	event, err := s.workflow.AddNote(r.Context(), r.PathValue("id"), body.Note, api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) handleRequestInfo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &body); err != nil {
		api.WriteFault(w, r, err)
		return
	}
	view, err := s.workflow.RequestInfo(r.Context(), r.PathValue("id"), body.Message, api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAttachEvidence(w http.ResponseWriter, r *http.Request) {
	var in workflow.AttachEvidenceInput
	if err := decodeJSON(r, &in); err != nil {
		api.WriteFault(w, r, err)
		return
	}
	item, err := s.workflow.AttachEvidence(r.Context(), r.PathValue("id"), in, api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListEvidence(w http.ResponseWriter, r *http.Request) {
	items, err := s.workflow.ListEvidence(r.Context(), r.PathValue("id"))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evidence": items, "count": len(items)})
}

func (s *Server) handleSetPacket(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EvidenceIDs []string `json:"evidence_ids"`
	}
	if err := decodeJSON(r, &body); err != nil {
		api.WriteFault(w, r, err)
		return
	}
	view, err := s.workflow.SetPacketEvidence(r.Context(), r.PathValue("id"), body.EvidenceIDs, api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRemoveEvidence(w http.ResponseWriter, r *http.Request) {
	err := s.workflow.RemoveEvidence(r.Context(), r.PathValue("id"), r.PathValue("evidenceId"), api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

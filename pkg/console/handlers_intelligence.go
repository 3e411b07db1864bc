package console

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/api"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/privacy"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/recompute"
)

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason,omitempty"`
		Force  bool   `json:"force,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		api.WriteFault(w, r, err)
		return
	}
	if body.Reason == "" {
		body.Reason = "manual_recompute"
	}

	caseID := r.PathValue("id")
	actor := api.ActorFrom(r.Context())

	// Detached from the request: a client disconnect must not abort a
	// recompute in flight.
	ctx := context.WithoutCancel(r.Context())

	opts := recompute.Options{Actor: actor}
	if body.Force {
		opts.Throttle = -1
	}
	recomputed := s.recomputer.MaybeRecompute(ctx, caseID, body.Reason, opts)

	// Return the newest entry either way; a throttled call hands back
	// the existing one.
	entries, err := s.intel.History(ctx, caseID, 1)
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	if len(entries) == 0 {
		api.WriteFault(w, r, fault.NotFound("intelligence history"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recomputed": recomputed,
		"entry":      entries[0],
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.intel.History(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries, "count": len(entries)})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includePayload := q.Get("include_payload") == "true"

	mode := privacy.Mode(q.Get("mode"))
	if mode == "" {
		mode = privacy.ModeSafe
	}
	if !privacy.ValidMode(mode) {
		api.WriteBadRequest(w, r, "unknown redaction mode "+string(mode))
		return
	}

	bundle, err := s.exporter.Export(r.Context(), r.PathValue("id"), includePayload, mode, api.ActorFrom(r.Context()))
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

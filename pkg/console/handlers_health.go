package console

import (
	"net/http"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/api"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/workflow"
)

// handleHealthz is the liveness probe. It must answer fast and touches
// no storage.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealthDetails reports environment validation. Secret values are
// never included, only presence flags.
func (s *Server) handleHealthDetails(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Validate())
}

// handleDevSeed creates a demo submission and case. The endpoint is
// enabled only when DEV_SEED_TOKEN is configured and the caller presents
// it.
func (s *Server) handleDevSeed(w http.ResponseWriter, r *http.Request) {
	if s.cfg.DevSeedToken == "" {
		api.WriteNotFound(w, r, "seed endpoint unavailable")
		return
	}
	if r.Header.Get("X-Seed-Token") != s.cfg.DevSeedToken {
		api.WriteUnauthorized(w, r, "invalid seed token")
		return
	}

	sub, c, err := s.workflow.CreateSubmission(r.Context(), workflow.CreateSubmissionInput{
		DecisionType: "csf",
		SubmittedBy:  "seed@autocomply.dev",
		FormData: map[string]any{
			"name":          "Dr. Jane Seed",
			"licenseNumber": "NP.000001",
			"address":       "100 Demo Way",
			"state":         "OH",
			"specialty":     "CNP",
			"experience":    "10y",
			"zip":           "43215",
			"email":         "jane.seed@example.com",
		},
	}, contracts.Actor{Role: contracts.RoleAdmin, ID: "seed"})
	if err != nil {
		api.WriteFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, submissionResponse{Submission: sub, Case: c})
}

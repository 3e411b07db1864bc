// Package console serves the reviewer-facing REST API: submissions,
// cases, evidence, attachments, intelligence, and audit export.
package console

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/api"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/config"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/export"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/intelligence"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/observability"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/recompute"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/workflow"
)

//go:embed submission.schema.json
var submissionSchemaJSON string

// Server is the console HTTP server.
type Server struct {
	cfg        *config.Config
	workflow   *workflow.Service
	intel      *intelligence.Repository
	recomputer *recompute.Recomputer
	exporter   *export.Exporter
	metrics    *observability.Provider
	logger     *slog.Logger

	submissionSchema *jsonschema.Schema
	httpServer       *http.Server
}

// New wires the console over the assembled services.
func New(cfg *config.Config, wf *workflow.Service, intel *intelligence.Repository,
	rc *recompute.Recomputer, exp *export.Exporter, metrics *observability.Provider) (*Server, error) {

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("submission.schema.json", strings.NewReader(submissionSchemaJSON)); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "load submission schema", err)
	}
	schema, err := compiler.Compile("submission.schema.json")
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "compile submission schema", err)
	}

	s := &Server{
		cfg:              cfg,
		workflow:         wf,
		intel:            intel,
		recomputer:       rc,
		exporter:         exp,
		metrics:          metrics,
		logger:           slog.Default().With("component", "console"),
		submissionSchema: schema,
	}

	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler builds the full middleware chain around the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /health/details", s.handleHealthDetails)

	mux.HandleFunc("POST /submissions", s.handleCreateSubmission)
	mux.HandleFunc("GET /submissions/{id}", s.handleGetSubmission)
	mux.HandleFunc("PATCH /submissions/{id}", s.handlePatchSubmission)
	mux.HandleFunc("DELETE /submissions/{id}", s.handleCancelSubmission)

	mux.HandleFunc("GET /cases", s.handleListCases)
	mux.HandleFunc("GET /cases/{id}", s.handleGetCase)
	mux.HandleFunc("PATCH /cases/{id}", s.handlePatchCase)
	mux.HandleFunc("POST /cases/{id}/assign", s.handleAssign)
	mux.HandleFunc("POST /cases/{id}/unassign", s.handleUnassign)
	mux.HandleFunc("POST /cases/{id}/status", s.handleSetStatus)
	mux.HandleFunc("GET /cases/{id}/events", s.handleListEvents)
	mux.HandleFunc("POST /cases/{id}/audit", s.handleAddNote)
	mux.HandleFunc("POST /cases/{id}/request-info", s.handleRequestInfo)

	mux.HandleFunc("POST /cases/{id}/evidence/attach", s.handleAttachEvidence)
	mux.HandleFunc("GET /cases/{id}/evidence", s.handleListEvidence)
	mux.HandleFunc("PATCH /cases/{id}/evidence/packet", s.handleSetPacket)
	mux.HandleFunc("DELETE /cases/{id}/evidence/{evidenceId}", s.handleRemoveEvidence)

	mux.HandleFunc("POST /cases/{id}/attachments", s.handleUploadAttachment)
	mux.HandleFunc("GET /cases/{id}/attachments", s.handleListAttachments)
	mux.HandleFunc("GET /cases/{id}/attachments/{attachmentId}/download", s.handleDownloadAttachment)
	mux.HandleFunc("DELETE /cases/{id}/attachments/{attachmentId}", s.handleDeleteAttachment)
	mux.HandleFunc("POST /cases/{id}/attachments/{attachmentId}/redact", s.handleRedactAttachment)

	mux.HandleFunc("POST /cases/{id}/intelligence/recompute", s.handleRecompute)
	mux.HandleFunc("GET /cases/{id}/intelligence/history", s.handleHistory)
	mux.HandleFunc("GET /cases/{id}/audit/export", s.handleExport)

	mux.HandleFunc("POST /dev/seed", s.handleDevSeed)

	limiter := api.NewGlobalRateLimiter(50, 100)

	var h http.Handler = mux
	h = api.WithMetrics(s.metrics, h)
	h = api.WithActor(s.cfg.JWTSecret, h)
	h = limiter.Middleware(h)
	h = api.WithCORS(s.cfg.CORSOrigins, h)
	h = api.WithRequestID(h)
	return h
}

// ListenAndServe runs the server until the context is cancelled, then
// drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("console listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// writeJSON serializes a success response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON parses a request body, rejecting unknown shapes lazily.
func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fault.Wrap(fault.KindBadRequest, "invalid JSON body", err)
	}
	return nil
}

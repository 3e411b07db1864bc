// Package api — RFC 7807 Problem Detail responses and HTTP middleware
// for the AutoComply console.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
// All API error responses must use this format.
type ProblemDetail struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`
	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`
	// Status is the HTTP status code.
	Status int `json:"status"`
	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
	// Instance is a URI reference identifying the specific occurrence.
	Instance string `json:"instance,omitempty"`
	// TraceID links the response to the request log line.
	TraceID string `json:"trace_id,omitempty"`
}

// Error implements the error interface.
func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// statusForKind maps the fault taxonomy onto HTTP status codes.
func statusForKind(kind fault.Kind) (int, string) {
	switch kind {
	case fault.KindNotFound:
		return http.StatusNotFound, "Not Found"
	case fault.KindBadRequest:
		return http.StatusBadRequest, "Bad Request"
	case fault.KindConflict:
		return http.StatusConflict, "Conflict"
	case fault.KindGone:
		return http.StatusGone, "Gone"
	case fault.KindUnavailableForLegalReasons:
		return http.StatusUnavailableForLegalReasons, "Unavailable For Legal Reasons"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// WriteError writes an RFC 7807 Problem Detail JSON response.
func WriteError(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	problem := &ProblemDetail{
		Type:     fmt.Sprintf("https://autocomply.dev/errors/%d", status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
		TraceID:  w.Header().Get("X-Request-ID"),
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteFault maps a fault-kinded error to its problem response. Internal
// causes are logged but never exposed to the client.
func WriteFault(w http.ResponseWriter, r *http.Request, err error) {
	kind := fault.KindOf(err)
	status, title := statusForKind(kind)

	detail := fault.MessageOf(err)
	if kind == fault.KindInternal {
		slog.Error("internal server error", "path", r.URL.Path, "error", err)
		detail = "An unexpected error occurred. Please try again later."
	}
	WriteError(w, r, status, title, detail)
}

// WriteBadRequest writes a 400 error response.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	WriteError(w, r, http.StatusBadRequest, "Bad Request", detail)
}

// WriteUnauthorized writes a 401 error response.
func WriteUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	if detail == "" {
		detail = "Authentication required"
	}
	WriteError(w, r, http.StatusUnauthorized, "Unauthorized", detail)
}

// WriteNotFound writes a 404 error response.
func WriteNotFound(w http.ResponseWriter, r *http.Request, detail string) {
	WriteError(w, r, http.StatusNotFound, "Not Found", detail)
}

// WriteMethodNotAllowed writes a 405 error response.
func WriteMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusMethodNotAllowed, "Method Not Allowed",
		"The HTTP method is not supported for this endpoint")
}

// WriteTooManyRequests writes a 429 error response with Retry-After header.
func WriteTooManyRequests(w http.ResponseWriter, r *http.Request, retryAfterSecs int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
	WriteError(w, r, http.StatusTooManyRequests, "Too Many Requests",
		"Rate limit exceeded. Retry after the specified interval.")
}

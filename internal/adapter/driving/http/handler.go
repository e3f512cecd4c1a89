package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/qbridge-io/qbridge/internal/application"
	"github.com/qbridge-io/qbridge/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	submitSvc *application.SubmitService
	jobStore  driven.JobStore
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(submitSvc *application.SubmitService, jobStore driven.JobStore, logger *slog.Logger) *Handler {
	return &Handler{
		submitSvc: submitSvc,
		jobStore:  jobStore,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and
// wrapped with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/connect-qiskit", h.ConnectQiskit)
	mux.HandleFunc("GET /api/v1/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /api/v1/backend", h.BackendStatus)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ConnectQiskit accepts a provider token, runs the fixed circuit on the
// configured backend, and returns the measurement counts. The call blocks
// until the remote job completes or the configured wait bound expires.
func (h *Handler) ConnectQiskit(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	counts, err := h.submitSvc.Submit(r.Context(), req.Token, req.Save)
	if err != nil {
		h.writeClassified(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SubmitResponse{
		Status: "SUCCESS",
		Counts: counts,
	})
}

// ListJobs returns the submission history, newest first.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, toJobResponse(job))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetJob returns a single submission record by its local ID.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	job, err := h.jobStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get job", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(*job))
}

// BackendStatus returns the target backend's availability using the stored
// default credential.
func (h *Handler) BackendStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.submitSvc.BackendInfo(r.Context())
	if err != nil {
		h.writeClassified(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBackendResponse(status))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeClassified maps an application error kind to an HTTP status and
// writes the structured error body. Unclassified errors become an opaque
// 500 so no internal detail leaks.
func (h *Handler) writeClassified(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *application.Error
	if !errors.As(err, &appErr) {
		h.logger.Error("unclassified error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := statusForKind(appErr.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", appErr)
	}

	writeError(w, status, appErr.Error())
}

// statusForKind maps the error taxonomy to HTTP status codes. Downstream
// provider failures are gateway errors, not internal ones.
func statusForKind(kind application.ErrorKind) int {
	switch kind {
	case application.KindBadRequest:
		return http.StatusBadRequest
	case application.KindTimeout:
		return http.StatusGatewayTimeout
	case application.KindAuth, application.KindProvisioning, application.KindExecution:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

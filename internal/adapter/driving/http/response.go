package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/qbridge-io/qbridge/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"ERROR","message":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes the structured error body with the given status code.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: "ERROR", Message: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ConnectRequest is the JSON body for the connect endpoint. Save persists
// the token as the process default credential.
type ConnectRequest struct {
	Token string `json:"token"`
	Save  bool   `json:"save,omitempty"`
}

// SubmitResponse is the success body for the connect endpoint.
type SubmitResponse struct {
	Status string       `json:"status"`
	Counts model.Counts `json:"counts"`
}

// JobResponse is the JSON representation of one submission record.
type JobResponse struct {
	ID            string       `json:"id"`
	ProviderJobID string       `json:"provider_job_id"`
	Backend       string       `json:"backend"`
	Shots         int          `json:"shots"`
	Status        string       `json:"status"`
	Counts        model.Counts `json:"counts,omitempty"`
	ErrorMessage  string       `json:"error_message,omitempty"`
	SubmittedAt   string       `json:"submitted_at"`
	CompletedAt   string       `json:"completed_at,omitempty"`
}

// BackendResponse is the JSON representation of the target backend status.
type BackendResponse struct {
	Name        string `json:"name"`
	Operational bool   `json:"operational"`
	PendingJobs int    `json:"pending_jobs"`
	Message     string `json:"message,omitempty"`
	CheckedAt   string `json:"checked_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toJobResponse converts a domain Job to its JSON response representation.
func toJobResponse(job model.Job) JobResponse {
	resp := JobResponse{
		ID:            job.ID,
		ProviderJobID: job.ProviderJobID,
		Backend:       job.Backend,
		Shots:         job.Shots,
		Status:        string(job.Status),
		Counts:        job.Counts,
		ErrorMessage:  job.ErrorMessage,
		SubmittedAt:   job.SubmittedAt.UTC().Format(time.RFC3339),
	}
	if !job.CompletedAt.IsZero() {
		resp.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// toBackendResponse converts a domain BackendStatus to its JSON representation.
func toBackendResponse(s *model.BackendStatus) BackendResponse {
	return BackendResponse{
		Name:        s.Name,
		Operational: s.Operational,
		PendingJobs: s.PendingJobs,
		Message:     s.Message,
		CheckedAt:   s.CheckedAt.UTC().Format(time.RFC3339),
	}
}

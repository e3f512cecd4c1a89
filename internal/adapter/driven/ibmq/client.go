// Package ibmq implements the QuantumClient port against the IBM Quantum
// Runtime REST API.
package ibmq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gregjones/httpcache"

	"github.com/qbridge-io/qbridge/internal/domain/model"
	"github.com/qbridge-io/qbridge/internal/domain/port/driven"
)

// defaultBaseURL is the production runtime endpoint.
const defaultBaseURL = "https://api.quantum-computing.ibm.com/runtime"

// Terminal job states reported by the runtime API.
const (
	jobStateCompleted = "Completed"
	jobStateFailed    = "Failed"
	jobStateCancelled = "Cancelled"
)

// Compile-time interface satisfaction check.
var _ driven.QuantumClient = (*Client)(nil)

// HubConfig identifies the organizational scope jobs are billed against.
type HubConfig struct {
	Hub     string
	Group   string
	Project string
}

// Client implements the driven.QuantumClient port over the runtime REST
// API. The API token is passed per call, never stored, so one Client is
// safely shared across requests carrying different credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
	hub        HubConfig
	pollMin    time.Duration
	pollMax    time.Duration
}

// NewClient creates a Client for the production API. Conditional GETs
// (backend status, job status) go through an in-memory ETag cache.
func NewClient(hub HubConfig) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()

	return &Client{
		httpClient: &http.Client{
			Transport: cacheTransport,
			Timeout:   30 * time.Second,
		},
		baseURL: defaultBaseURL,
		hub:     hub,
		pollMin: time.Second,
		pollMax: 10 * time.Second,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and
// base URL, allowing injection of an httptest server or an alternate
// runtime endpoint.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, hub HubConfig) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(u.String(), "/"),
		hub:        hub,
		pollMin:    time.Second,
		pollMax:    10 * time.Second,
	}, nil
}

// VerifyToken checks the token against the identity endpoint.
func (c *Client) VerifyToken(ctx context.Context, token string) error {
	var me struct {
		Email string `json:"email"`
	}
	if err := c.get(ctx, token, "/users/me", &me); err != nil {
		return fmt.Errorf("verifying account: %w", err)
	}
	return nil
}

// backendStatusResponse is the wire shape of GET /backends/{name}/status.
type backendStatusResponse struct {
	State       bool   `json:"state"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	LengthQueue int    `json:"length_queue"`
}

// BackendStatus returns availability for the named backend.
func (c *Client) BackendStatus(ctx context.Context, token, backend string) (*model.BackendStatus, error) {
	var resp backendStatusResponse
	if err := c.get(ctx, token, "/backends/"+url.PathEscape(backend)+"/status", &resp); err != nil {
		return nil, fmt.Errorf("backend %s status: %w", backend, err)
	}

	return &model.BackendStatus{
		Name:        backend,
		Operational: resp.State,
		PendingJobs: resp.LengthQueue,
		Message:     resp.Message,
		CheckedAt:   time.Now().UTC(),
	}, nil
}

// SubmitJob submits the circuit via the sampler program and returns the
// runtime job ID. Submission is billable; no retries happen here.
func (c *Client) SubmitJob(ctx context.Context, token string, circuit model.Circuit, backend string, shots int) (string, error) {
	payload := map[string]any{
		"program_id": "sampler",
		"hub":        c.hub.Hub,
		"group":      c.hub.Group,
		"project":    c.hub.Project,
		"backend":    backend,
		"params": map[string]any{
			"circuits": []string{circuitToQASM(circuit)},
			"shots":    shots,
		},
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, token, "/jobs", payload, &resp); err != nil {
		return "", fmt.Errorf("submitting job: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("submitting job: %w: empty job id in response", driven.ErrJobFailed)
	}

	slog.Debug("runtime job created", "provider_job_id", resp.ID, "backend", backend, "shots", shots)
	return resp.ID, nil
}

// jobResponse is the wire shape of GET /jobs/{id}.
type jobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// AwaitResult polls job status with exponential backoff until the job is
// terminal, then fetches its counts. The wait is bounded by ctx.
func (c *Client) AwaitResult(ctx context.Context, token, jobID string) (model.Counts, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.pollMin
	bo.MaxInterval = c.pollMax
	bo.MaxElapsedTime = 0 // Bounded by ctx, not wall clock.

	var job jobResponse
	poll := func() error {
		var err error
		job, err = c.jobStatus(ctx, token, jobID)
		if err != nil {
			return backoff.Permanent(err)
		}

		switch job.Status {
		case jobStateCompleted:
			return nil
		case jobStateFailed, jobStateCancelled:
			reason := job.Reason
			if reason == "" {
				reason = strings.ToLower(job.Status)
			}
			return backoff.Permanent(fmt.Errorf("job %s: %w: %s", jobID, driven.ErrJobFailed, reason))
		default:
			return fmt.Errorf("job %s not terminal: %s", jobID, job.Status)
		}
	}

	if err := backoff.Retry(poll, backoff.WithContext(bo, ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	return c.jobResult(ctx, token, jobID)
}

// CancelJob requests cancellation of a queued or running job.
func (c *Client) CancelJob(ctx context.Context, token, jobID string) error {
	if err := c.post(ctx, token, "/jobs/"+url.PathEscape(jobID)+"/cancel", nil, nil); err != nil {
		return fmt.Errorf("cancelling job %s: %w", jobID, err)
	}
	return nil
}

// jobStatus fetches the current runtime state of a job.
func (c *Client) jobStatus(ctx context.Context, token, jobID string) (jobResponse, error) {
	var resp jobResponse
	if err := c.get(ctx, token, "/jobs/"+url.PathEscape(jobID), &resp); err != nil {
		return jobResponse{}, fmt.Errorf("job %s status: %w", jobID, err)
	}
	return resp, nil
}

// jobResultResponse is the wire shape of GET /jobs/{id}/results. The
// sampler program returns one entry per submitted circuit.
type jobResultResponse struct {
	Results []struct {
		Counts map[string]int `json:"counts"`
		Shots  int            `json:"shots"`
	} `json:"results"`
}

// jobResult fetches and decodes the counts for a completed job.
func (c *Client) jobResult(ctx context.Context, token, jobID string) (model.Counts, error) {
	var resp jobResultResponse
	if err := c.get(ctx, token, "/jobs/"+url.PathEscape(jobID)+"/results", &resp); err != nil {
		return nil, fmt.Errorf("job %s results: %w", jobID, err)
	}

	if len(resp.Results) == 0 || len(resp.Results[0].Counts) == 0 {
		return nil, fmt.Errorf("job %s: %w: result has no counts", jobID, driven.ErrJobFailed)
	}

	return model.Counts(resp.Results[0].Counts), nil
}

// get performs an authenticated GET and decodes the JSON response into v.
func (c *Client) get(ctx context.Context, token, path string, v any) error {
	return c.do(ctx, token, http.MethodGet, path, nil, v)
}

// post performs an authenticated POST with a JSON body, decoding the
// response into v when v is non-nil.
func (c *Client) post(ctx context.Context, token, path string, payload, v any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, token, http.MethodPost, path, body, v)
}

// do issues one API request with bearer auth and maps error status codes
// to the port sentinels.
func (c *Client) do(ctx context.Context, token, method, path string, body io.Reader, v any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// checkStatus maps non-2xx responses to port sentinel errors, carrying the
// provider's message where one is present.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := readAPIError(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", driven.ErrInvalidCredentials, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", driven.ErrBackendNotFound, msg)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", driven.ErrBackendUnavailable, msg)
	default:
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, msg)
	}
}

// readAPIError extracts the error message from an API error body, falling
// back to the raw body when it is not the documented JSON shape.
func readAPIError(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return "no error detail"
	}

	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return strings.TrimSpace(string(data))
}

// Package driven defines the outbound ports implemented by adapter packages.
package driven

import (
	"context"
	"errors"

	"github.com/qbridge-io/qbridge/internal/domain/model"
)

// Sentinel errors the QuantumClient adapter wraps so the application layer
// can classify failures without knowing provider wire details.
var (
	// ErrInvalidCredentials means the provider rejected the API token.
	ErrInvalidCredentials = errors.New("provider rejected credentials")

	// ErrBackendNotFound means the named backend does not exist under the
	// configured hub/group/project.
	ErrBackendNotFound = errors.New("backend not found")

	// ErrBackendUnavailable means the backend exists but is not accepting
	// jobs (maintenance, offline).
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrJobFailed means the remote job reached a failed or cancelled
	// terminal state, or returned a malformed result.
	ErrJobFailed = errors.New("job failed")
)

// QuantumClient defines the driven port for the remote quantum provider.
// The API token is an explicit parameter on every call: the adapter holds
// no ambient per-account state, so concurrent requests with different
// tokens cannot run under each other's credentials.
type QuantumClient interface {
	// VerifyToken checks the token against the provider's identity
	// endpoint. Returns ErrInvalidCredentials if rejected.
	VerifyToken(ctx context.Context, token string) error

	// BackendStatus returns availability for the named backend.
	// Returns ErrBackendNotFound or ErrBackendUnavailable as appropriate.
	BackendStatus(ctx context.Context, token, backend string) (*model.BackendStatus, error)

	// SubmitJob submits the circuit to the named backend for the given
	// shot count and returns the provider's job ID. Submission is
	// billable and is never retried by the adapter.
	SubmitJob(ctx context.Context, token string, circuit model.Circuit, backend string, shots int) (string, error)

	// AwaitResult blocks until the job reaches a terminal state and
	// returns its measurement counts. The wait is bounded by ctx; on
	// cancellation the remote job keeps running and AwaitResult returns
	// ctx.Err(). A failed or cancelled job yields ErrJobFailed.
	AwaitResult(ctx context.Context, token, jobID string) (model.Counts, error)

	// CancelJob requests cancellation of a queued or running job.
	CancelJob(ctx context.Context, token, jobID string) error
}

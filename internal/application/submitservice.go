package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qbridge-io/qbridge/internal/domain/model"
	"github.com/qbridge-io/qbridge/internal/domain/port/driven"
)

// credentialService is the CredentialStore key under which the default
// provider token is persisted.
const credentialService = "ibmq"

// SubmitService orchestrates one circuit submission end to end: token
// verification, backend lookup, job submission, bounded wait, result
// extraction, and history persistence. Failures are classified into the
// application error taxonomy before they leave this package.
type SubmitService struct {
	client     driven.QuantumClient
	jobs       driven.JobStore
	creds      driven.CredentialStore
	tokens     *TokenProvider
	backend    string
	shots      int
	jobTimeout time.Duration
	logger     *slog.Logger
}

// NewSubmitService creates a SubmitService with all required dependencies.
// creds may be nil when credential persistence is disabled.
func NewSubmitService(
	client driven.QuantumClient,
	jobs driven.JobStore,
	creds driven.CredentialStore,
	tokens *TokenProvider,
	backend string,
	shots int,
	jobTimeout time.Duration,
	logger *slog.Logger,
) *SubmitService {
	return &SubmitService{
		client:     client,
		jobs:       jobs,
		creds:      creds,
		tokens:     tokens,
		backend:    backend,
		shots:      shots,
		jobTimeout: jobTimeout,
		logger:     logger,
	}
}

// Submit runs the fixed circuit on the configured backend under the given
// token and returns the measurement counts. If save is true the token is
// also persisted as the process default, replacing any previous value.
// No external call is made when the token is missing.
func (s *SubmitService) Submit(ctx context.Context, token string, save bool) (model.Counts, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, badRequestf("token is required")
	}

	if err := s.client.VerifyToken(ctx, token); err != nil {
		return nil, classify(fmt.Errorf("verifying token: %w", err))
	}

	if save {
		if err := s.saveToken(ctx, token); err != nil {
			return nil, err
		}
	}

	status, err := s.client.BackendStatus(ctx, token, s.backend)
	if err != nil {
		return nil, classify(fmt.Errorf("looking up backend %s: %w", s.backend, err))
	}
	if !status.Operational {
		return nil, classify(fmt.Errorf("backend %s: %w", s.backend, driven.ErrBackendUnavailable))
	}

	circuit := model.BellCircuit()

	providerJobID, err := s.client.SubmitJob(ctx, token, circuit, s.backend, s.shots)
	if err != nil {
		return nil, classify(fmt.Errorf("submitting job to %s: %w", s.backend, err))
	}

	job := model.Job{
		ID:            uuid.NewString(),
		ProviderJobID: providerJobID,
		Backend:       s.backend,
		Shots:         s.shots,
		Status:        model.JobStatusQueued,
		SubmittedAt:   time.Now().UTC(),
	}
	if err := s.jobs.Insert(ctx, job); err != nil {
		// The remote job is already running; history is best effort here.
		s.logger.Error("failed to record job", "job_id", job.ID, "error", err)
	}

	s.logger.Info("job submitted",
		"job_id", job.ID,
		"provider_job_id", providerJobID,
		"backend", s.backend,
		"shots", s.shots,
	)

	counts, err := s.await(ctx, token, providerJobID)
	if err != nil {
		s.recordOutcome(job, nil, err)
		return nil, err
	}

	s.recordOutcome(job, counts, nil)
	return counts, nil
}

// await blocks until the remote job completes, bounded by the configured
// job timeout. On expiry it attempts a best-effort cancel and returns a
// KindTimeout error.
func (s *SubmitService) await(ctx context.Context, token, providerJobID string) (model.Counts, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	counts, err := s.client.AwaitResult(waitCtx, token, providerJobID)
	if err == nil {
		return counts, nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		// The remote job keeps consuming device time otherwise. Use a
		// fresh context: the wait context is already dead.
		cancelCtx, cancelCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancelCancel()
		if cancelErr := s.client.CancelJob(cancelCtx, token, providerJobID); cancelErr != nil {
			s.logger.Warn("failed to cancel timed-out job", "provider_job_id", providerJobID, "error", cancelErr)
		}
		return nil, &Error{
			Kind: KindTimeout,
			Err:  fmt.Errorf("job %s did not complete within %s", providerJobID, s.jobTimeout),
		}
	}

	return nil, classify(fmt.Errorf("awaiting job %s: %w", providerJobID, err))
}

// recordOutcome updates the job history record with the terminal result.
func (s *SubmitService) recordOutcome(job model.Job, counts model.Counts, submitErr error) {
	job.CompletedAt = time.Now().UTC()

	switch {
	case submitErr == nil:
		job.Status = model.JobStatusCompleted
		job.Counts = counts
	default:
		job.Status = model.JobStatusFailed
		job.ErrorMessage = submitErr.Error()
		var appErr *Error
		if errors.As(submitErr, &appErr) && appErr.Kind == KindTimeout {
			job.Status = model.JobStatusTimeout
		}
	}

	// History writes survive request cancellation.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.jobs.Update(ctx, job); err != nil {
		s.logger.Error("failed to update job record", "job_id", job.ID, "error", err)
	}
}

// saveToken persists the token as the process default and hot-swaps the
// in-memory provider.
func (s *SubmitService) saveToken(ctx context.Context, token string) error {
	if s.creds == nil {
		return badRequestf("credential persistence is disabled")
	}
	if err := s.creds.Set(ctx, credentialService, token); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			return badRequestf("credential persistence is disabled: %v", err)
		}
		return &Error{Kind: KindExecution, Err: fmt.Errorf("saving credential: %w", err)}
	}
	s.tokens.Replace(token)
	s.logger.Info("default credential replaced")
	return nil
}

// BackendInfo returns the configured backend's availability using the
// stored default token. Callers get a KindAuth error when no default
// credential exists.
func (s *SubmitService) BackendInfo(ctx context.Context) (*model.BackendStatus, error) {
	token := s.tokens.Get()
	if token == "" {
		return nil, &Error{
			Kind: KindAuth,
			Err:  fmt.Errorf("no default credential configured: %w", driven.ErrInvalidCredentials),
		}
	}

	status, err := s.client.BackendStatus(ctx, token, s.backend)
	if err != nil {
		return nil, classify(fmt.Errorf("looking up backend %s: %w", s.backend, err))
	}
	return status, nil
}

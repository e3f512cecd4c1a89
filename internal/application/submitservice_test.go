package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qbridge-io/qbridge/internal/domain/model"
	"github.com/qbridge-io/qbridge/internal/domain/port/driven"
)

// --- Mock implementations ---

// mockQuantumClient records calls and serves canned responses.
type mockQuantumClient struct {
	mu sync.Mutex

	verifyErr    error
	statusResult *model.BackendStatus
	statusErr    error
	submitID     string
	submitErr    error
	counts       model.Counts
	awaitErr     error
	awaitBlocks  bool

	verifyCalls []string
	submitCalls int
	cancelCalls []string
}

func (m *mockQuantumClient) VerifyToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyCalls = append(m.verifyCalls, token)
	return m.verifyErr
}

func (m *mockQuantumClient) BackendStatus(_ context.Context, _, backend string) (*model.BackendStatus, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	if m.statusResult != nil {
		return m.statusResult, nil
	}
	return &model.BackendStatus{Name: backend, Operational: true}, nil
}

func (m *mockQuantumClient) SubmitJob(_ context.Context, _ string, _ model.Circuit, _ string, _ int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitCalls++
	if m.submitErr != nil {
		return "", m.submitErr
	}
	if m.submitID == "" {
		return "job-1", nil
	}
	return m.submitID, nil
}

func (m *mockQuantumClient) AwaitResult(ctx context.Context, _, _ string) (model.Counts, error) {
	if m.awaitBlocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.awaitErr != nil {
		return nil, m.awaitErr
	}
	return m.counts, nil
}

func (m *mockQuantumClient) CancelJob(_ context.Context, _, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelCalls = append(m.cancelCalls, jobID)
	return nil
}

func (m *mockQuantumClient) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.verifyCalls) + m.submitCalls + len(m.cancelCalls)
}

// mockJobStore keeps job records in memory.
type mockJobStore struct {
	mu   sync.Mutex
	jobs map[string]model.Job
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{jobs: make(map[string]model.Job)}
}

func (m *mockJobStore) Insert(_ context.Context, job model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobStore) Update(_ context.Context, job model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobStore) GetByID(_ context.Context, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		return &job, nil
	}
	return nil, nil
}

func (m *mockJobStore) ListAll(_ context.Context) ([]model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]model.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		all = append(all, job)
	}
	return all, nil
}

// mockCredentialStore is an in-memory CredentialStore.
type mockCredentialStore struct {
	values map[string]string
	setErr error
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{values: make(map[string]string)}
}

func (m *mockCredentialStore) Set(_ context.Context, service, plaintext string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[service] = plaintext
	return nil
}

func (m *mockCredentialStore) Get(_ context.Context, service string) (string, error) {
	return m.values[service], nil
}

func (m *mockCredentialStore) List(_ context.Context) ([]model.Credential, error) {
	return nil, nil
}

func (m *mockCredentialStore) Delete(_ context.Context, service string) error {
	delete(m.values, service)
	return nil
}

func newTestService(client driven.QuantumClient, jobs driven.JobStore, creds driven.CredentialStore) *SubmitService {
	return NewSubmitService(client, jobs, creds, NewTokenProvider(""), "ibmq_manila", 1024, 100*time.Millisecond, slog.Default())
}

// --- Tests ---

func TestSubmit_MissingToken(t *testing.T) {
	client := &mockQuantumClient{}
	svc := newTestService(client, newMockJobStore(), nil)

	for _, token := range []string{"", "   "} {
		counts, err := svc.Submit(context.Background(), token, false)

		assert.Nil(t, counts)
		var appErr *Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, KindBadRequest, appErr.Kind)
	}

	assert.Zero(t, client.totalCalls(), "no external call may happen without a token")
}

func TestSubmit_Success(t *testing.T) {
	client := &mockQuantumClient{
		counts: model.Counts{"00": 512, "11": 512},
	}
	jobs := newMockJobStore()
	svc := newTestService(client, jobs, nil)

	counts, err := svc.Submit(context.Background(), "abc123", false)

	require.NoError(t, err)
	assert.Equal(t, model.Counts{"00": 512, "11": 512}, counts)
	assert.Equal(t, 1024, counts.TotalShots())
	assert.Equal(t, []string{"abc123"}, client.verifyCalls)

	all, err := jobs.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.JobStatusCompleted, all[0].Status)
	assert.Equal(t, counts, all[0].Counts)
	assert.False(t, all[0].CompletedAt.IsZero())
}

func TestSubmit_NotDeduplicated(t *testing.T) {
	client := &mockQuantumClient{counts: model.Counts{"00": 1024}}
	jobs := newMockJobStore()
	svc := newTestService(client, jobs, nil)

	_, err := svc.Submit(context.Background(), "abc123", false)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), "abc123", false)
	require.NoError(t, err)

	assert.Equal(t, 2, client.submitCalls, "identical requests are independent billable jobs")
	all, _ := jobs.ListAll(context.Background())
	assert.Len(t, all, 2)
}

func TestSubmit_InvalidToken(t *testing.T) {
	client := &mockQuantumClient{
		verifyErr: fmt.Errorf("401: %w", driven.ErrInvalidCredentials),
	}
	svc := newTestService(client, newMockJobStore(), nil)

	_, err := svc.Submit(context.Background(), "bad-token", false)

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindAuth, appErr.Kind)
	assert.Zero(t, client.submitCalls)
}

func TestSubmit_BackendNotFound(t *testing.T) {
	client := &mockQuantumClient{
		statusErr: fmt.Errorf("404: %w", driven.ErrBackendNotFound),
	}
	svc := newTestService(client, newMockJobStore(), nil)

	_, err := svc.Submit(context.Background(), "abc123", false)

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindProvisioning, appErr.Kind)
	assert.Zero(t, client.submitCalls, "no job may be submitted against a missing backend")
}

func TestSubmit_BackendNotOperational(t *testing.T) {
	client := &mockQuantumClient{
		statusResult: &model.BackendStatus{Name: "ibmq_manila", Operational: false, Message: "maintenance"},
	}
	svc := newTestService(client, newMockJobStore(), nil)

	_, err := svc.Submit(context.Background(), "abc123", false)

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindProvisioning, appErr.Kind)
}

func TestSubmit_JobFailure(t *testing.T) {
	client := &mockQuantumClient{
		awaitErr: fmt.Errorf("job job-1: %w: compilation error", driven.ErrJobFailed),
	}
	jobs := newMockJobStore()
	svc := newTestService(client, jobs, nil)

	_, err := svc.Submit(context.Background(), "abc123", false)

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindExecution, appErr.Kind)

	all, _ := jobs.ListAll(context.Background())
	require.Len(t, all, 1)
	assert.Equal(t, model.JobStatusFailed, all[0].Status)
	assert.Contains(t, all[0].ErrorMessage, "compilation error")
}

func TestSubmit_Timeout(t *testing.T) {
	client := &mockQuantumClient{awaitBlocks: true}
	jobs := newMockJobStore()
	svc := newTestService(client, jobs, nil)

	start := time.Now()
	_, err := svc.Submit(context.Background(), "abc123", false)
	elapsed := time.Since(start)

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindTimeout, appErr.Kind)
	assert.Less(t, elapsed, 5*time.Second, "handler must return instead of blocking indefinitely")
	assert.Equal(t, []string{"job-1"}, client.cancelCalls, "timed-out job should be cancelled")

	all, _ := jobs.ListAll(context.Background())
	require.Len(t, all, 1)
	assert.Equal(t, model.JobStatusTimeout, all[0].Status)
}

func TestSubmit_SaveToken(t *testing.T) {
	client := &mockQuantumClient{counts: model.Counts{"00": 1024}}
	creds := newMockCredentialStore()
	tokens := NewTokenProvider("")
	svc := NewSubmitService(client, newMockJobStore(), creds, tokens, "ibmq_manila", 1024, time.Second, slog.Default())

	_, err := svc.Submit(context.Background(), "abc123", true)

	require.NoError(t, err)
	assert.Equal(t, "abc123", creds.values["ibmq"])
	assert.Equal(t, "abc123", tokens.Get())
}

func TestSubmit_SaveToken_Overwrites(t *testing.T) {
	client := &mockQuantumClient{counts: model.Counts{"00": 1024}}
	creds := newMockCredentialStore()
	tokens := NewTokenProvider("old-token")
	svc := NewSubmitService(client, newMockJobStore(), creds, tokens, "ibmq_manila", 1024, time.Second, slog.Default())

	_, err := svc.Submit(context.Background(), "new-token", true)

	require.NoError(t, err)
	assert.Equal(t, "new-token", tokens.Get())
}

func TestSubmit_SaveToken_NoStore(t *testing.T) {
	client := &mockQuantumClient{counts: model.Counts{"00": 1024}}
	svc := newTestService(client, newMockJobStore(), nil)

	_, err := svc.Submit(context.Background(), "abc123", true)

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindBadRequest, appErr.Kind)
}

func TestSubmit_SaveToken_KeyNotSet(t *testing.T) {
	client := &mockQuantumClient{counts: model.Counts{"00": 1024}}
	creds := newMockCredentialStore()
	creds.setErr = driven.ErrEncryptionKeyNotSet
	tokens := NewTokenProvider("")
	svc := NewSubmitService(client, newMockJobStore(), creds, tokens, "ibmq_manila", 1024, time.Second, slog.Default())

	_, err := svc.Submit(context.Background(), "abc123", true)

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindBadRequest, appErr.Kind)
	assert.False(t, tokens.HasToken())
}

func TestBackendInfo_NoDefaultCredential(t *testing.T) {
	client := &mockQuantumClient{}
	svc := newTestService(client, newMockJobStore(), nil)

	_, err := svc.BackendInfo(context.Background())

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindAuth, appErr.Kind)
}

func TestBackendInfo_UsesStoredToken(t *testing.T) {
	client := &mockQuantumClient{
		statusResult: &model.BackendStatus{Name: "ibmq_manila", Operational: true, PendingJobs: 3},
	}
	tokens := NewTokenProvider("stored-token")
	svc := NewSubmitService(client, newMockJobStore(), nil, tokens, "ibmq_manila", 1024, time.Second, slog.Default())

	status, err := svc.BackendInfo(context.Background())

	require.NoError(t, err)
	assert.True(t, status.Operational)
	assert.Equal(t, 3, status.PendingJobs)
}

func TestClassify_Unrecognized(t *testing.T) {
	appErr := classify(errors.New("connection reset"))
	assert.Equal(t, KindExecution, appErr.Kind)
}

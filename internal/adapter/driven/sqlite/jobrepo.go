package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/qbridge-io/qbridge/internal/domain/model"
	"github.com/qbridge-io/qbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.JobStore = (*JobRepo)(nil)

// JobRepo is the SQLite implementation of the JobStore port interface.
// Counts are stored as a JSON object in counts_json.
type JobRepo struct {
	db *DB
}

// NewJobRepo creates a new JobRepo backed by the given DB.
func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

// Insert records a freshly submitted job.
func (r *JobRepo) Insert(ctx context.Context, job model.Job) error {
	const query = `INSERT INTO jobs (id, provider_job_id, backend, shots, status, counts_json, error_message, submitted_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	countsJSON, err := encodeCounts(job.Counts)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}

	submittedAt := job.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now().UTC()
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		job.ID, job.ProviderJobID, job.Backend, job.Shots, string(job.Status),
		countsJSON, job.ErrorMessage, submittedAt, nullableTime(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}

	return nil
}

// Update replaces the stored record for job.ID with the given state.
func (r *JobRepo) Update(ctx context.Context, job model.Job) error {
	const query = `UPDATE jobs SET status = ?, counts_json = ?, error_message = ?, completed_at = ? WHERE id = ?`

	countsJSON, err := encodeCounts(job.Counts)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		string(job.Status), countsJSON, job.ErrorMessage, nullableTime(job.CompletedAt), job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update job %s: no such job", job.ID)
	}

	return nil
}

// GetByID returns the job with the given local ID, or nil, nil if no such
// job exists.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	const query = `SELECT id, provider_job_id, backend, shots, status, counts_json, error_message, submitted_at, completed_at
		FROM jobs WHERE id = ?`

	job, err := scanJob(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}

	return job, nil
}

// ListAll returns all recorded jobs, newest first.
func (r *JobRepo) ListAll(ctx context.Context) ([]model.Job, error) {
	const query = `SELECT id, provider_job_id, backend, shots, status, counts_json, error_message, submitted_at, completed_at
		FROM jobs ORDER BY submitted_at DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	return jobs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*model.Job, error) {
	var (
		job         model.Job
		status      string
		countsJSON  string
		submittedAt string
		completedAt sql.NullString
	)

	if err := s.Scan(&job.ID, &job.ProviderJobID, &job.Backend, &job.Shots,
		&status, &countsJSON, &job.ErrorMessage, &submittedAt, &completedAt); err != nil {
		return nil, err
	}

	job.Status = model.JobStatus(status)

	if countsJSON != "" {
		if err := json.Unmarshal([]byte(countsJSON), &job.Counts); err != nil {
			return nil, fmt.Errorf("decode counts: %w", err)
		}
	}

	var err error
	job.SubmittedAt, err = parseTime(submittedAt)
	if err != nil {
		return nil, fmt.Errorf("parse submitted_at: %w", err)
	}

	if completedAt.Valid && completedAt.String != "" {
		job.CompletedAt, err = parseTime(completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
	}

	return &job, nil
}

// encodeCounts serializes counts to JSON, or "" for a nil map.
func encodeCounts(counts model.Counts) (string, error) {
	if counts == nil {
		return "", nil
	}
	data, err := json.Marshal(counts)
	if err != nil {
		return "", fmt.Errorf("encode counts: %w", err)
	}
	return string(data), nil
}

// nullableTime converts a zero time to NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// parseTime tries the datetime formats SQLite hands back.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}

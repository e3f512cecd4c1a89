package driven

import (
	"context"

	"github.com/qbridge-io/qbridge/internal/domain/model"
)

// JobStore defines the driven port for job submission history.
type JobStore interface {
	// Insert records a freshly submitted job.
	Insert(ctx context.Context, job model.Job) error

	// Update replaces the stored record for job.ID with the given state.
	Update(ctx context.Context, job model.Job) error

	// GetByID returns the job with the given local ID, or nil, nil if no
	// such job exists.
	GetByID(ctx context.Context, id string) (*model.Job, error)

	// ListAll returns all recorded jobs, newest first.
	ListAll(ctx context.Context) ([]model.Job, error)
}

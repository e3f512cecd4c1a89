package model

import "time"

// JobStatus is the lifecycle state of a submitted job as tracked locally.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusTimeout   JobStatus = "timeout"
)

// Counts maps a measured bitstring outcome to the number of shots that
// produced it. Keys have length equal to the circuit's qubit count.
type Counts map[string]int

// TotalShots returns the sum of all outcome counts.
func (c Counts) TotalShots() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Job is the local record of one submission to the remote provider.
// ProviderJobID is the provider's identifier; ID is ours.
type Job struct {
	ID            string
	ProviderJobID string
	Backend       string
	Shots         int
	Status        JobStatus
	Counts        Counts
	ErrorMessage  string
	SubmittedAt   time.Time
	CompletedAt   time.Time
}

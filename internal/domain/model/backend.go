package model

import "time"

// BackendStatus is a snapshot of a remote execution target's availability
// as reported by the provider.
type BackendStatus struct {
	Name        string
	Operational bool
	PendingJobs int
	Message     string
	CheckedAt   time.Time
}

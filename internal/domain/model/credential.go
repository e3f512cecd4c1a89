package model

import "time"

// Credential holds a stored provider credential. Service identifies the
// external system ("ibmq" is the only one today); Value is the plaintext
// API token at the domain boundary.
type Credential struct {
	ID        int64
	Service   string
	Value     string
	UpdatedAt time.Time
}

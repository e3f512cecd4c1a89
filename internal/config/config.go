// Package config loads application configuration from environment variables.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string

	Hub     string
	Group   string
	Project string
	Backend string
	Shots   int

	JobTimeout time.Duration
	APIURL     string

	// SecretKey is the 32-byte AES key for credential persistence.
	// nil disables the credential store.
	SecretKey []byte
}

// HasSecretKey returns true when credential persistence is enabled.
func (c *Config) HasSecretKey() bool {
	return len(c.SecretKey) == 32
}

// Load reads configuration from environment variables and returns a
// validated Config. Everything is optional with defaults; QBRIDGE_SECRET_KEY
// is base64 and must decode to exactly 32 bytes when set.
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("QBRIDGE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "qbridge.db"
	if v, ok := os.LookupEnv("QBRIDGE_DB_PATH"); ok {
		dbPath = v
	}

	hub := "ibm-q"
	if v, ok := os.LookupEnv("QBRIDGE_HUB"); ok {
		hub = v
	}

	group := "open"
	if v, ok := os.LookupEnv("QBRIDGE_GROUP"); ok {
		group = v
	}

	project := "main"
	if v, ok := os.LookupEnv("QBRIDGE_PROJECT"); ok {
		project = v
	}

	backend := "ibmq_manila"
	if v, ok := os.LookupEnv("QBRIDGE_BACKEND"); ok {
		backend = v
	}

	shots := 1024
	if v, ok := os.LookupEnv("QBRIDGE_SHOTS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("QBRIDGE_SHOTS has invalid value %q: want a positive integer", v)
		}
		shots = parsed
	}

	jobTimeout := 5 * time.Minute
	if v, ok := os.LookupEnv("QBRIDGE_JOB_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("QBRIDGE_JOB_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("QBRIDGE_JOB_TIMEOUT must be positive, got %q", v)
		}
		jobTimeout = parsed
	}

	apiURL := ""
	if v, ok := os.LookupEnv("QBRIDGE_API_URL"); ok {
		apiURL = v
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("QBRIDGE_SECRET_KEY"); ok && v != "" {
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("QBRIDGE_SECRET_KEY is not valid base64: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("QBRIDGE_SECRET_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		secretKey = decoded
	}

	return &Config{
		ListenAddr: listenAddr,
		DBPath:     dbPath,
		Hub:        hub,
		Group:      group,
		Project:    project,
		Backend:    backend,
		Shots:      shots,
		JobTimeout: jobTimeout,
		APIURL:     apiURL,
		SecretKey:  secretKey,
	}, nil
}

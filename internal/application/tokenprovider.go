package application

import "sync"

// TokenProvider holds the process-wide default API token used when a
// request does not carry one (the backend status endpoint, future
// scheduled work). Per-request tokens never pass through here; they are
// threaded explicitly into the QuantumClient calls. Replace implements the
// overwrite-on-save semantics: the last saved token wins, which is the one
// documented concurrency hazard of the default credential.
type TokenProvider struct {
	mu    sync.RWMutex
	token string
}

// NewTokenProvider creates a provider seeded with the given token, which
// may be empty when no default credential is configured.
func NewTokenProvider(token string) *TokenProvider {
	return &TokenProvider{token: token}
}

// Get returns the current default token, or "" if none is set.
func (p *TokenProvider) Get() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// Replace swaps the default token. The next caller of Get observes the new
// value.
func (p *TokenProvider) Replace(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
}

// HasToken returns true if a non-empty default token is held.
func (p *TokenProvider) HasToken() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token != ""
}

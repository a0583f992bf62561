package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// RevocationStore remembers tokens invalidated before their natural expiry.
// Entries only need to live until the token would have expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// StripBearer removes a leading "Bearer " transport prefix.
func StripBearer(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

// MemoryRevocationStore is a process-local RevocationStore. Revocations are
// lost on restart and not shared between instances; use the Redis store for
// anything beyond a single node.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{entries: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevocationStore) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep()
	if !expiresAt.After(m.now()) {
		return nil
	}
	if prev, ok := m.entries[token]; !ok || expiresAt.After(prev) {
		m.entries[token] = expiresAt
	}
	return nil
}

func (m *MemoryRevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.entries[token]
	if !ok {
		return false, nil
	}
	if !exp.After(m.now()) {
		delete(m.entries, token)
		return false, nil
	}
	return true, nil
}

// Len returns the number of live entries.
func (m *MemoryRevocationStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	return len(m.entries)
}

// sweep drops expired entries. Caller holds mu.
func (m *MemoryRevocationStore) sweep() {
	now := m.now()
	for tok, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, tok)
		}
	}
}

package statestore

import (
	"context"
	"sync"
	"time"
)

// Memory is the single-instance store used when no Redis is configured.
type Memory struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{expires: make(map[string]time.Time), now: time.Now}
}

func (m *Memory) Save(ctx context.Context, state string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)
	m.expires[state] = now.Add(ttl)
	return nil
}

func (m *Memory) Consume(ctx context.Context, state string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.expires[state]
	if !ok {
		return false, nil
	}
	delete(m.expires, state)
	return m.now().Before(exp), nil
}

// sweep drops expired states; caller holds mu.
func (m *Memory) sweep(now time.Time) {
	for k, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.expires, k)
		}
	}
}

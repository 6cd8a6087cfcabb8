package theme

import (
	"context"
	"sync"
)

const subscriberBuffer = 4

type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]Theme
	subs   map[string]map[chan Theme]struct{}
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values: make(map[string]Theme),
		subs:   make(map[string]map[chan Theme]struct{}),
	}
}

func (m *MemoryBackend) Load(ctx context.Context, owner string) (Theme, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.values[owner]
	return t, ok, nil
}

func (m *MemoryBackend) Save(ctx context.Context, owner string, t Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[owner] = t
	for ch := range m.subs[owner] {
		// drop when the listener is behind
		select {
		case ch <- t:
		default:
		}
	}
	return nil
}

func (m *MemoryBackend) Subscribe(ctx context.Context, owner string) (<-chan Theme, error) {
	ch := make(chan Theme, subscriberBuffer)

	m.mu.Lock()
	if m.subs[owner] == nil {
		m.subs[owner] = make(map[chan Theme]struct{})
	}
	m.subs[owner][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs[owner], ch)
		if len(m.subs[owner]) == 0 {
			delete(m.subs, owner)
		}
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

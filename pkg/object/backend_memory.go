package object

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryBackend keeps envelopes in a map. Useful for tests and for callers
// that want an ephemeral store.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[Hash][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[Hash][]byte)}
}

func (m *MemoryBackend) ReadRaw(h Hash) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.objects[h]
	if !ok {
		return nil, fmt.Errorf("object read %s: %w", h, ErrNotFound)
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (m *MemoryBackend) WriteRaw(h Hash, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[h]; ok {
		return nil
	}
	stored := make([]byte, len(raw))
	copy(stored, raw)
	m.objects[h] = stored
	return nil
}

func (m *MemoryBackend) HasRaw(h Hash) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[h]
	return ok, nil
}

func (m *MemoryBackend) DeleteRaw(h Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[h]; !ok {
		return fmt.Errorf("object delete %s: %w", h, ErrNotFound)
	}
	delete(m.objects, h)
	return nil
}

func (m *MemoryBackend) ListHashes() ([]Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Hash, 0, len(m.objects))
	for h := range m.objects {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

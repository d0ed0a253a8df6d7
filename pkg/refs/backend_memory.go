package refs

import (
	"fmt"
	"strings"
	"sync"
)

// MemoryBackend keeps all references in a map. Creating or moving a
// reference is a map write under one lock.
type MemoryBackend struct {
	mu   sync.RWMutex
	refs map[string]Target
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{refs: make(map[string]Target)}
}

func (m *MemoryBackend) Read(name string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	target, ok := m.refs[name]
	if !ok {
		return Record{}, fmt.Errorf("read ref %q: %w", name, ErrNotFound)
	}
	return Record{Name: name, Target: target}, nil
}

func (m *MemoryBackend) Create(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refs[rec.Name]; ok {
		return fmt.Errorf("create ref %q: %w", rec.Name, ErrAlreadyExists)
	}
	m.refs[rec.Name] = rec.Target
	return nil
}

func (m *MemoryBackend) Update(rec Record, old *Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, exists := m.refs[rec.Name]
	if old != nil {
		if *old == (Target{}) && exists {
			return fmt.Errorf("update ref %q: %w", rec.Name, ErrAlreadyExists)
		}
		if *old != (Target{}) && (!exists || current != *old) {
			return fmt.Errorf("update ref %q: %w (expected %s, found %s)", rec.Name, ErrStaleTarget, old, current)
		}
	}
	m.refs[rec.Name] = rec.Target
	return nil
}

func (m *MemoryBackend) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refs[name]; !ok {
		return fmt.Errorf("delete ref %q: %w", name, ErrNotFound)
	}
	delete(m.refs, name)
	return nil
}

func (m *MemoryBackend) Names(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.refs))
	for name := range m.refs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

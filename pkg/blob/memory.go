package blob

import (
	"context"
	"sync"

	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// Memory is an in-process Store used by tests and by callers that do not
// need durability.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, path string, data []byte) error {
	cp := append([]byte(nil), data...)
	m.mu.Lock()
	m.objects[path] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, xerr.New(xerr.NotFound, "blob not found", "path", path)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return xerr.New(xerr.NotFound, "blob not found", "path", path)
	}
	delete(m.objects, path)
	return nil
}

func (m *Memory) Exists(_ context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[path]
	return ok, nil
}

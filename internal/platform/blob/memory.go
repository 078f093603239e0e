package blob

import (
	"context"
	"strings"
	"sync"
)

type Object struct {
	ContentType string
	Data        []byte
}

// MemoryStore keeps objects in process. Used in dev mode and tests.
type MemoryStore struct {
	mu      sync.Mutex
	base    string
	objects map[string]Object
}

func NewMemory(publicBase string) *MemoryStore {
	if publicBase == "" {
		publicBase = "memory://blob"
	}
	return &MemoryStore{base: strings.TrimRight(publicBase, "/"), objects: map[string]Object{}}
}

func (m *MemoryStore) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{ContentType: contentType, Data: append([]byte(nil), data...)}
	return m.base + "/" + key, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}

// Keys lists stored keys with the given prefix.
func (m *MemoryStore) Keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

package objectstore

import (
	"context"
	"sync"
)

// object is a stored blob with its content type.
type object struct {
	data     []byte
	mimeType string
}

// MemoryFetcher is an in-process Fetcher used in tests and local
// development; sourceURL is treated as an opaque key.
type MemoryFetcher struct {
	mu      sync.RWMutex
	objects map[string]object
}

// NewMemoryFetcher builds an empty MemoryFetcher.
func NewMemoryFetcher() *MemoryFetcher {
	return &MemoryFetcher{objects: make(map[string]object)}
}

// Put registers bytes under sourceURL for later Fetch calls.
func (m *MemoryFetcher) Put(sourceURL string, data []byte, mimeType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[sourceURL] = object{data: data, mimeType: mimeType}
}

func (m *MemoryFetcher) Fetch(_ context.Context, sourceURL string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[sourceURL]
	if !ok {
		return nil, "", ErrNotFound
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, obj.mimeType, nil
}

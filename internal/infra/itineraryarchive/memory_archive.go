package itineraryarchive

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/yanqian/route-forecast/internal/domain/routeplanner"
)

// MemoryArchive keeps archived documents in memory. Useful for tests and local dev.
type MemoryArchive struct {
	mu      sync.RWMutex
	prefix  string
	objects map[string][]byte
}

// NewMemoryArchive constructs the archive.
func NewMemoryArchive(prefix string) *MemoryArchive {
	return &MemoryArchive{prefix: prefix, objects: make(map[string][]byte)}
}

// Archive stores the encoded itinerary under the same key layout as ObjectArchive.
func (a *MemoryArchive) Archive(_ context.Context, it routeplanner.Itinerary) (string, error) {
	payload, err := json.Marshal(it)
	if err != nil {
		return "", err
	}
	key := objectKey(a.prefix, it)
	a.mu.Lock()
	a.objects[key] = payload
	a.mu.Unlock()
	return key, nil
}

// Object returns a stored document.
func (a *MemoryArchive) Object(key string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.objects[key]
	return data, ok
}

var _ routeplanner.ItineraryArchive = (*MemoryArchive)(nil)

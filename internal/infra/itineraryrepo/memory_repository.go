package itineraryrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/route-forecast/internal/domain/routeplanner"
)

// MemoryRepository is an in-memory ItineraryRepository used for tests/dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	byOwner map[string][]routeplanner.Itinerary
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byOwner: make(map[string][]routeplanner.Itinerary)}
}

// Save implements routeplanner.ItineraryRepository.
func (r *MemoryRepository) Save(_ context.Context, it routeplanner.Itinerary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byOwner[it.OwnerID] {
		if existing.ID == it.ID {
			return nil
		}
	}
	r.byOwner[it.OwnerID] = append(r.byOwner[it.OwnerID], it)
	return nil
}

// ListByOwner implements routeplanner.ItineraryRepository.
func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string, limit int) ([]routeplanner.Itinerary, error) {
	r.mu.RLock()
	items := append([]routeplanner.Itinerary(nil), r.byOwner[ownerID]...)
	r.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

var _ routeplanner.ItineraryRepository = (*MemoryRepository)(nil)

package routeplanner

import (
	"context"
	"time"
)

// Itinerary is a delivered route forecast.
type Itinerary struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Days      int       `json:"days"`
	Stops     []Stop    `json:"stops"`
	CreatedAt time.Time `json:"createdAt"`
}

// ItineraryRepository keeps the history of delivered itineraries.
type ItineraryRepository interface {
	Save(ctx context.Context, it Itinerary) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]Itinerary, error)
}

// ItineraryArchive exports delivered itineraries to object storage.
type ItineraryArchive interface {
	Archive(ctx context.Context, it Itinerary) (string, error)
}

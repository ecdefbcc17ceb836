package itineraryrepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/route-forecast/internal/domain/routeplanner"
)

func TestMemoryRepositoryListsNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Save(context.Background(), routeplanner.Itinerary{
			ID:        id,
			OwnerID:   "owner",
			Days:      2,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Save(context.Background(), routeplanner.Itinerary{ID: "a", OwnerID: "owner", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, repo.Save(context.Background(), routeplanner.Itinerary{ID: "z", OwnerID: "other", CreatedAt: base}))

	items, err := repo.ListByOwner(context.Background(), "owner", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "c", items[0].ID)
	require.Equal(t, "b", items[1].ID)

	all, err := repo.ListByOwner(context.Background(), "owner", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

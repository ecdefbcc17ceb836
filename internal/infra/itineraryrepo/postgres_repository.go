package itineraryrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/route-forecast/internal/domain/routeplanner"
)

const schema = `
	CREATE TABLE IF NOT EXISTS itineraries (
		id         UUID PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		days       SMALLINT NOT NULL,
		stops      JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS itineraries_owner_created_idx ON itineraries (owner_id, created_at DESC);
`

// PostgresRepository implements routeplanner.ItineraryRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the itineraries table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure itinerary schema: %w", err)
	}
	return nil
}

// Save inserts a delivered itinerary.
func (r *PostgresRepository) Save(ctx context.Context, it routeplanner.Itinerary) error {
	stops, err := json.Marshal(it.Stops)
	if err != nil {
		return fmt.Errorf("encode stops: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO itineraries (id, owner_id, days, stops, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, it.ID, it.OwnerID, it.Days, stops, it.CreatedAt)
	return err
}

// ListByOwner returns the owner's most recent itineraries first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]routeplanner.Itinerary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, owner_id, days, stops, created_at
		FROM itineraries
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []routeplanner.Itinerary
	for rows.Next() {
		it, err := scanItinerary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItinerary(row rowScanner) (routeplanner.Itinerary, error) {
	var (
		it    routeplanner.Itinerary
		days  int16
		stops []byte
	)
	if err := row.Scan(&it.ID, &it.OwnerID, &days, &stops, &it.CreatedAt); err != nil {
		return routeplanner.Itinerary{}, err
	}
	it.Days = int(days)
	if err := json.Unmarshal(stops, &it.Stops); err != nil {
		return routeplanner.Itinerary{}, fmt.Errorf("decode stops: %w", err)
	}
	return it, nil
}

var _ routeplanner.ItineraryRepository = (*PostgresRepository)(nil)

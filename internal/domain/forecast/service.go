package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Gateway returns ordered daily summaries for a city.
type Gateway interface {
	FetchForecast(ctx context.Context, city string, days int) ([]DaySummary, error)
}

// Geocoder resolves a free text city name. Unknown cities yield ErrCityNotFound.
type Geocoder interface {
	Resolve(ctx context.Context, city string) (Location, error)
}

// SampleSource returns the raw sub-day series for a location.
type SampleSource interface {
	Samples(ctx context.Context, loc Location) ([]Sample, error)
}

// Cache stores aggregated forecasts keyed by request fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) ([]DaySummary, bool, error)
	Save(ctx context.Context, key string, days []DaySummary, ttl time.Duration) error
}

type service struct {
	cfg      Config
	geocoder Geocoder
	source   SampleSource
	cache    Cache
	logger   *slog.Logger
}

// NewService wires the local gateway that geocodes, fetches and aggregates.
func NewService(cfg Config, geocoder Geocoder, source SampleSource, cache Cache, logger *slog.Logger) Gateway {
	return &service{
		cfg:      cfg,
		geocoder: geocoder,
		source:   source,
		cache:    cache,
		logger:   logger.With("component", "forecast.service"),
	}
}

func (s *service) FetchForecast(ctx context.Context, city string, days int) ([]DaySummary, error) {
	city = NormalizeCity(city)
	if city == "" {
		return nil, fmt.Errorf("%w: city cannot be empty", ErrInvalidRequest)
	}
	if days < MinDays || days > MaxDays {
		return nil, fmt.Errorf("%w: days must be between %d and %d", ErrInvalidRequest, MinDays, MaxDays)
	}

	key := Fingerprint(city, days)
	if cached, ok := s.lookupCache(ctx, key); ok {
		return cached, nil
	}

	loc, err := s.geocoder.Resolve(ctx, city)
	if err != nil {
		return nil, classify(ctx, err)
	}
	samples, err := s.source.Samples(ctx, loc)
	if err != nil {
		return nil, classify(ctx, err)
	}
	summaries, err := Aggregate(samples, days)
	if err != nil {
		s.logger.Warn("forecast aggregation failed", "city", city, "days", days, "samples", len(samples), "error", err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Save(ctx, key, summaries, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("forecast cache save failed", "key", key, "error", err)
		}
	}
	s.logger.Info("forecast fetched", "city", city, "days", days, "lat", loc.Lat, "lon", loc.Lon)
	return summaries, nil
}

func (s *service) lookupCache(ctx context.Context, key string) ([]DaySummary, bool) {
	if s.cache == nil {
		return nil, false
	}
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("forecast cache lookup failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	s.logger.Debug("forecast cache hit", "key", key)
	return cached, true
}

// NormalizeCity trims and collapses whitespace in a city name.
func NormalizeCity(city string) string {
	return strings.Join(strings.Fields(city), " ")
}

// Fingerprint is the cache key for a forecast request.
func Fingerprint(city string, days int) string {
	return fmt.Sprintf("%s|%d", strings.ToLower(NormalizeCity(city)), days)
}

// classify keeps known failure classes and maps everything else onto them.
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrCityNotFound),
		errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrTransport):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
}

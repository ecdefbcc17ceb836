package forecast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServiceFetchForecastAggregatesAndCaches(t *testing.T) {
	geo := &stubGeocoder{loc: Location{Name: "Moscow", Lat: 55.75, Lon: 37.61}}
	src := &stubSource{samples: series(t, "2024-05-01T15:00:00Z", 4, nil)}
	cache := newStubCache()
	svc := NewService(Config{CacheTTL: time.Minute}, geo, src, cache, newTestLogger())

	got, err := svc.FetchForecast(context.Background(), "  Moscow ", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "Moscow", geo.lastCity)
	require.Equal(t, time.Minute, cache.lastTTL)

	again, err := svc.FetchForecast(context.Background(), "moscow", 3)
	require.NoError(t, err)
	require.Equal(t, got, again)
	require.Equal(t, 1, geo.calls)
	require.Equal(t, 1, src.calls)
}

func TestServiceFetchForecastValidatesInput(t *testing.T) {
	svc := NewService(Config{}, &stubGeocoder{}, &stubSource{}, nil, newTestLogger())

	_, err := svc.FetchForecast(context.Background(), "   ", 3)
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.FetchForecast(context.Background(), "Paris", 6)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestServiceFetchForecastClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		geoErr error
		srcErr error
		want   error
	}{
		{name: "not found passes through", geoErr: ErrCityNotFound, want: ErrCityNotFound},
		{name: "unavailable passes through", srcErr: ErrServiceUnavailable, want: ErrServiceUnavailable},
		{name: "deadline becomes timeout", srcErr: context.DeadlineExceeded, want: ErrTimeout},
		{name: "unknown becomes transport", geoErr: errors.New("connection reset"), want: ErrTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			geo := &stubGeocoder{err: tc.geoErr}
			src := &stubSource{err: tc.srcErr, samples: series(t, "2024-05-01T15:00:00Z", 3, nil)}
			cache := newStubCache()
			svc := NewService(Config{}, geo, src, cache, newTestLogger())

			_, err := svc.FetchForecast(context.Background(), "Paris", 1)
			require.ErrorIs(t, err, tc.want)
			require.Empty(t, cache.items)
		})
	}
}

func TestServiceFetchForecastInsufficientData(t *testing.T) {
	src := &stubSource{samples: series(t, "2024-05-01T15:00:00Z", 2, nil)}
	svc := NewService(Config{}, &stubGeocoder{}, src, newStubCache(), newTestLogger())

	_, err := svc.FetchForecast(context.Background(), "Paris", 3)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestFingerprintIsCaseInsensitive(t *testing.T) {
	require.Equal(t, Fingerprint("New  York", 2), Fingerprint(" new york", 2))
	require.NotEqual(t, Fingerprint("Paris", 2), Fingerprint("Paris", 3))
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubGeocoder struct {
	loc      Location
	err      error
	calls    int
	lastCity string
}

func (s *stubGeocoder) Resolve(_ context.Context, city string) (Location, error) {
	s.calls++
	s.lastCity = city
	if s.err != nil {
		return Location{}, s.err
	}
	return s.loc, nil
}

type stubSource struct {
	samples []Sample
	err     error
	calls   int
}

func (s *stubSource) Samples(_ context.Context, _ Location) ([]Sample, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.samples, nil
}

type stubCache struct {
	mu      sync.Mutex
	items   map[string][]DaySummary
	lastTTL time.Duration
}

func newStubCache() *stubCache {
	return &stubCache{items: make(map[string][]DaySummary)}
}

func (c *stubCache) Get(_ context.Context, key string) ([]DaySummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	days, ok := c.items[key]
	return days, ok, nil
}

func (c *stubCache) Save(_ context.Context, key string, days []DaySummary, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = days
	c.lastTTL = ttl
	return nil
}

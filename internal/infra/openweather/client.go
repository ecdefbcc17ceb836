package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yanqian/route-forecast/internal/domain/forecast"
)

const (
	defaultBaseURL   = "https://api.openweathermap.org"
	geocodePath      = "/geo/1.0/direct"
	forecastPath     = "/data/2.5/forecast"
	geocodeLimit     = 5
	maxResponseBytes = 2 << 20
	dtTextLayout     = "2006-01-02 15:04:05"
)

// Options configures the OpenWeather client.
type Options struct {
	BaseURL         string
	APIKey          string
	Lang            string
	Timeout         time.Duration
	BreakerTimeout  time.Duration
	BreakerFailures uint32
}

// Client geocodes cities and fetches the 3-hourly forecast from OpenWeather.
// It makes exactly one attempt per call; repeated upstream failures open the breaker.
type Client struct {
	baseURL    string
	apiKey     string
	lang       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient builds an API client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = time.Minute
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	log := logger.With("component", "openweather.client")
	failures := opts.BreakerFailures
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  opts.APIKey,
		lang:    opts.Lang,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openweather",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     opts.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
		logger: log,
	}
}

// Resolve implements forecast.Geocoder using the first direct geocoding hit.
func (c *Client) Resolve(ctx context.Context, city string) (forecast.Location, error) {
	query := url.Values{}
	query.Set("q", city)
	query.Set("limit", strconv.Itoa(geocodeLimit))

	var hits []geoHit
	if err := c.getJSON(ctx, geocodePath, query, &hits); err != nil {
		return forecast.Location{}, err
	}
	if len(hits) == 0 {
		return forecast.Location{}, fmt.Errorf("%w: %q", forecast.ErrCityNotFound, city)
	}
	hit := hits[0]
	return forecast.Location{Name: hit.Name, Country: hit.Country, Lat: hit.Lat, Lon: hit.Lon}, nil
}

// Samples implements forecast.SampleSource.
func (c *Client) Samples(ctx context.Context, loc forecast.Location) ([]forecast.Sample, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	query.Set("units", "metric")
	if c.lang != "" {
		query.Set("lang", c.lang)
	}

	var raw forecastResponse
	if err := c.getJSON(ctx, forecastPath, query, &raw); err != nil {
		return nil, err
	}
	samples := normalizeItems(raw.List)
	c.logger.Debug("forecast samples fetched", "location", loc.Name, "samples", len(samples))
	return samples, nil
}

type upstreamResponse struct {
	status int
	body   []byte
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	query.Set("appid", c.apiKey)
	endpoint := c.baseURL + path + "?" + query.Encode()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build openweather request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("read openweather response: %w", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: status=%d body=%s", forecast.ErrServiceUnavailable, resp.StatusCode, snippet(body))
		}
		return upstreamResponse{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		return classify(ctx, err)
	}

	resp, ok := result.(upstreamResponse)
	if !ok {
		return fmt.Errorf("%w: unexpected breaker result %T", forecast.ErrTransport, result)
	}
	switch {
	case resp.status == http.StatusNotFound:
		return fmt.Errorf("%w: status=%d", forecast.ErrCityNotFound, resp.status)
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return fmt.Errorf("%w: openweather rejected credentials (status=%d)", forecast.ErrServiceUnavailable, resp.status)
	case resp.status >= 300:
		return fmt.Errorf("%w: status=%d body=%s", forecast.ErrTransport, resp.status, snippet(resp.body))
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("%w: decode openweather response: %v", forecast.ErrTransport, err)
	}
	return nil
}

func classify(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %v", forecast.ErrServiceUnavailable, err)
	case errors.Is(err, forecast.ErrServiceUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", forecast.ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", forecast.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", forecast.ErrTransport, err)
	}
}

func snippet(body []byte) string {
	const limit = 4 << 10
	if len(body) > limit {
		body = body[:limit]
	}
	return string(body)
}

type geoHit struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type forecastResponse struct {
	List []forecastItem `json:"list"`
}

type forecastItem struct {
	Dt    int64   `json:"dt"`
	DtTxt string  `json:"dt_txt"`
	Pop   float64 `json:"pop"`
	Main  struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// normalizeItems converts upstream items into UTC samples ordered by time.
func normalizeItems(items []forecastItem) []forecast.Sample {
	out := make([]forecast.Sample, 0, len(items))
	for _, item := range items {
		ts := parseItemTime(item)
		if ts.IsZero() {
			continue
		}
		out = append(out, forecast.Sample{
			Time:                     ts,
			TemperatureC:             item.Main.Temp,
			WindSpeed:                item.Wind.Speed,
			PrecipitationProbability: item.Pop,
			HumidityPct:              item.Main.Humidity,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}

func parseItemTime(item forecastItem) time.Time {
	if txt := strings.TrimSpace(item.DtTxt); txt != "" {
		if ts, err := time.ParseInLocation(dtTextLayout, txt, time.UTC); err == nil {
			return ts
		}
	}
	if item.Dt > 0 {
		return time.Unix(item.Dt, 0).UTC()
	}
	return time.Time{}
}

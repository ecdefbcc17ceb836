package forecast

import (
	"errors"
	"time"
)

const (
	// MinDays and MaxDays bound every forecast request.
	MinDays = 1
	MaxDays = 5

	dateLayout = "2006-01-02"
)

// Verdict is the derived walk recommendation for a single day.
type Verdict string

const (
	VerdictFavorable   Verdict = "FAVORABLE"
	VerdictUnfavorable Verdict = "UNFAVORABLE"
)

var (
	ErrCityNotFound       = errors.New("city not found")
	ErrServiceUnavailable = errors.New("weather service unavailable")
	ErrTimeout            = errors.New("weather service timeout")
	ErrTransport          = errors.New("weather transport error")
	ErrInsufficientData   = errors.New("insufficient forecast data")
	ErrInvalidRequest     = errors.New("invalid forecast request")
)

// Sample is one sub-day reading returned by the upstream provider.
type Sample struct {
	Time                     time.Time
	TemperatureC             float64
	WindSpeed                float64
	PrecipitationProbability float64
	HumidityPct              float64
}

// DaySummary is the aggregated forecast for one calendar day.
type DaySummary struct {
	Date                     string  `json:"date"`
	TemperatureC             float64 `json:"temperature"`
	WindSpeed                float64 `json:"wind_speed"`
	PrecipitationProbability float64 `json:"probability_of_precipitation"`
	HumidityPct              int     `json:"humidity"`
	Verdict                  Verdict `json:"verdict"`
}

// Favorable reports whether the day is a good time for a walk.
func (d DaySummary) Favorable() bool {
	return d.Verdict == VerdictFavorable
}

// Location is a geocoded city.
type Location struct {
	Name    string
	Country string
	Lat     float64
	Lon     float64
}

// Config holds runtime knobs for the local gateway.
type Config struct {
	CacheTTL time.Duration
}

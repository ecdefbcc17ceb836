package forecast

import (
	"fmt"
	"math"
	"sort"
)

const (
	minFavorableTemp   = 0.0
	maxFavorableTemp   = 35.0
	maxFavorableWind   = 50.0
	maxFavorablePrecip = 0.70
)

type dayBucket struct {
	date     string
	temp     float64
	wind     float64
	humidity float64
	precip   float64
	count    int
}

func (b *dayBucket) add(s Sample) {
	if b.count == 0 || s.PrecipitationProbability > b.precip {
		b.precip = s.PrecipitationProbability
	}
	b.temp += s.TemperatureC
	b.wind += s.WindSpeed
	b.humidity += s.HumidityPct
	b.count++
}

func (b *dayBucket) summary() DaySummary {
	n := float64(b.count)
	day := DaySummary{
		Date:                     b.date,
		TemperatureC:             roundTo(b.temp/n, 1),
		WindSpeed:                roundTo(b.wind/n, 1),
		PrecipitationProbability: b.precip,
		HumidityPct:              int(math.RoundToEven(b.humidity / n)),
	}
	day.Verdict = Judge(day.TemperatureC, day.WindSpeed, day.PrecipitationProbability)
	return day
}

// Aggregate reduces sub-day samples into at most maxDays daily summaries.
// The first calendar day in the series is treated as partial and skipped.
func Aggregate(samples []Sample, maxDays int) ([]DaySummary, error) {
	if maxDays < MinDays || maxDays > MaxDays {
		return nil, fmt.Errorf("%w: days must be between %d and %d, got %d", ErrInsufficientData, MinDays, MaxDays, maxDays)
	}

	index := make(map[string]*dayBucket)
	for _, s := range samples {
		date := s.Time.Format(dateLayout)
		b, ok := index[date]
		if !ok {
			b = &dayBucket{date: date}
			index[date] = b
		}
		b.add(s)
	}

	buckets := make([]*dayBucket, 0, len(index))
	for _, b := range index {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].date < buckets[j].date
	})

	if len(buckets) > 0 {
		buckets = buckets[1:]
	}
	if len(buckets) < maxDays {
		return nil, fmt.Errorf("%w: need %d full days, have %d", ErrInsufficientData, maxDays, len(buckets))
	}

	out := make([]DaySummary, 0, maxDays)
	for _, b := range buckets[:maxDays] {
		out = append(out, b.summary())
	}
	return out, nil
}

// Judge derives the verdict for already rounded daily values.
func Judge(tempC, wind, precip float64) Verdict {
	if tempC >= minFavorableTemp && tempC <= maxFavorableTemp && wind <= maxFavorableWind && precip <= maxFavorablePrecip {
		return VerdictFavorable
	}
	return VerdictUnfavorable
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}

package forecast

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregateDropsFirstDayAndTruncates(t *testing.T) {
	samples := series(t, "2024-05-01T15:00:00Z", 6, func(i int, s *Sample) {
		s.TemperatureC = float64(i)
	})

	for days := MinDays; days <= MaxDays; days++ {
		got, err := Aggregate(samples, days)
		require.NoError(t, err)
		require.Len(t, got, days)
		for i, d := range got {
			require.NotEqual(t, "2024-05-01", d.Date)
			require.Equal(t, fmt.Sprintf("2024-05-%02d", i+2), d.Date)
		}
	}
}

func TestAggregateComputesBucketValues(t *testing.T) {
	day := func(clock string) time.Time {
		ts, err := time.Parse(time.RFC3339, "2024-05-02T"+clock+"Z")
		require.NoError(t, err)
		return ts
	}
	samples := []Sample{
		{Time: mustTime(t, "2024-05-01T21:00:00Z"), TemperatureC: 40, WindSpeed: 1, PrecipitationProbability: 1, HumidityPct: 10},
		{Time: day("00:00:00"), TemperatureC: 10.04, WindSpeed: 3.25, PrecipitationProbability: 0.1, HumidityPct: 60},
		{Time: day("03:00:00"), TemperatureC: 12.0, WindSpeed: 4.0, PrecipitationProbability: 0.65, HumidityPct: 61},
		{Time: day("06:00:00"), TemperatureC: 14.0, WindSpeed: 5.0, PrecipitationProbability: 0.2, HumidityPct: 62},
		{Time: day("09:00:00"), TemperatureC: 16.0, WindSpeed: 2.0, PrecipitationProbability: 0.0, HumidityPct: 64},
	}

	got, err := Aggregate(samples, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "2024-05-02", got[0].Date)
	require.Equal(t, 13.0, got[0].TemperatureC)
	require.Equal(t, 3.6, got[0].WindSpeed)
	require.Equal(t, 0.65, got[0].PrecipitationProbability)
	require.Equal(t, 62, got[0].HumidityPct)
	require.Equal(t, VerdictFavorable, got[0].Verdict)
}

func TestAggregateRoundsHalfToEven(t *testing.T) {
	samples := []Sample{
		{Time: mustTime(t, "2024-05-01T21:00:00Z"), TemperatureC: 18, WindSpeed: 4, HumidityPct: 50},
		{Time: mustTime(t, "2024-05-02T00:00:00Z"), TemperatureC: 0.2, WindSpeed: 1.0, HumidityPct: 54},
		{Time: mustTime(t, "2024-05-02T03:00:00Z"), TemperatureC: 0.3, WindSpeed: 1.5, HumidityPct: 55},
		{Time: mustTime(t, "2024-05-03T00:00:00Z"), TemperatureC: 18, WindSpeed: 4, HumidityPct: 55},
		{Time: mustTime(t, "2024-05-03T03:00:00Z"), TemperatureC: 18, WindSpeed: 4, HumidityPct: 56},
	}

	got, err := Aggregate(samples, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 54, got[0].HumidityPct)
	require.Equal(t, 0.2, got[0].TemperatureC)
	require.Equal(t, 1.2, got[0].WindSpeed)
	require.Equal(t, 56, got[1].HumidityPct)
}

func TestAggregatePrecipitationIsMaximum(t *testing.T) {
	probs := []float64{0.1, 0.9, 0.2, 0.3}
	samples := []Sample{{Time: mustTime(t, "2024-05-01T21:00:00Z")}}
	start := mustTime(t, "2024-05-02T00:00:00Z")
	for i, p := range probs {
		samples = append(samples, Sample{Time: start.Add(time.Duration(i) * 3 * time.Hour), TemperatureC: 20, PrecipitationProbability: p})
	}

	got, err := Aggregate(samples, 1)
	require.NoError(t, err)
	require.Equal(t, 0.9, got[0].PrecipitationProbability)
	require.Equal(t, VerdictUnfavorable, got[0].Verdict)
}

func TestAggregateOrdersOutOfOrderInput(t *testing.T) {
	samples := []Sample{
		{Time: mustTime(t, "2024-05-03T12:00:00Z"), TemperatureC: 3},
		{Time: mustTime(t, "2024-05-01T12:00:00Z"), TemperatureC: 1},
		{Time: mustTime(t, "2024-05-02T12:00:00Z"), TemperatureC: 2},
	}

	got, err := Aggregate(samples, 2)
	require.NoError(t, err)
	require.Equal(t, "2024-05-02", got[0].Date)
	require.Equal(t, "2024-05-03", got[1].Date)
}

func TestAggregateInsufficientData(t *testing.T) {
	samples := series(t, "2024-05-01T15:00:00Z", 3, nil)

	_, err := Aggregate(samples, 3)
	require.ErrorIs(t, err, ErrInsufficientData)

	_, err = Aggregate(nil, 1)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestAggregateRejectsDayCountOutOfRange(t *testing.T) {
	samples := series(t, "2024-05-01T15:00:00Z", 7, nil)
	for _, days := range []int{-1, 0, 6} {
		_, err := Aggregate(samples, days)
		require.ErrorIs(t, err, ErrInsufficientData, "days=%d", days)
	}
}

func TestJudgeBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		temp   float64
		wind   float64
		precip float64
		want   Verdict
	}{
		{name: "all at lower edge", temp: 0, wind: 0, precip: 0, want: VerdictFavorable},
		{name: "all at upper edge", temp: 35, wind: 50, precip: 0.70, want: VerdictFavorable},
		{name: "below freezing", temp: -0.1, wind: 10, precip: 0.1, want: VerdictUnfavorable},
		{name: "too hot", temp: 35.1, wind: 10, precip: 0.1, want: VerdictUnfavorable},
		{name: "too windy", temp: 20, wind: 50.1, precip: 0.1, want: VerdictUnfavorable},
		{name: "too wet", temp: 20, wind: 10, precip: 0.71, want: VerdictUnfavorable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Judge(tc.temp, tc.wind, tc.precip))
		})
	}
}

// series builds eight 3-hourly samples per day for the given number of days.
func series(t *testing.T, start string, days int, mutate func(i int, s *Sample)) []Sample {
	t.Helper()
	begin := mustTime(t, start)
	end := begin.Truncate(24*time.Hour).AddDate(0, 0, days)
	var out []Sample
	for ts, i := begin, 0; ts.Before(end); ts, i = ts.Add(3*time.Hour), i+1 {
		s := Sample{Time: ts, TemperatureC: 18, WindSpeed: 4, PrecipitationProbability: 0.1, HumidityPct: 55}
		if mutate != nil {
			mutate(i, &s)
		}
		out = append(out, s)
	}
	return out
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

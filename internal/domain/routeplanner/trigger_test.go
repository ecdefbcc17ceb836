package routeplanner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/route-forecast/internal/domain/forecast"
)

func TestClassifyTrigger(t *testing.T) {
	cases := []struct {
		ev   Event
		want TriggerKind
	}{
		{ev: Event{Text: "/start"}, want: TriggerStart},
		{ev: Event{Text: "/HELP"}, want: TriggerHelp},
		{ev: Event{Text: "/weather@route_bot"}, want: TriggerWeather},
		{ev: Event{Text: "Cancel"}, want: TriggerCancel},
		{ev: Event{Text: "add   stop"}, want: TriggerAddStop},
		{ev: Event{Choice: ChoiceViewRoute, Text: "ignored"}, want: TriggerViewRoute},
		{ev: Event{Text: "Show forecast"}, want: TriggerConfirm},
		{ev: Event{Choice: "3"}, want: TriggerText},
		{ev: Event{Text: "Saint Petersburg"}, want: TriggerText},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, classifyTrigger(tc.ev).kind, "event %+v", tc.ev)
	}
	require.Equal(t, "New York", classifyTrigger(Event{Text: "  New York "}).value)
}

func TestRenderDay(t *testing.T) {
	got := renderDay(forecast.DaySummary{
		Date:                     "2024-05-02",
		TemperatureC:             21.4,
		WindSpeed:                3,
		PrecipitationProbability: 0.35,
		HumidityPct:              48,
		Verdict:                  forecast.VerdictFavorable,
	})
	require.Contains(t, got, "2024-05-02")
	require.Contains(t, got, "21.4°C")
	require.Contains(t, got, "3.0 m/s")
	require.Contains(t, got, "Precipitation: 35%")
	require.Contains(t, got, textFavorable)
}

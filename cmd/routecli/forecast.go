package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanqian/route-forecast/internal/domain/forecast"
)

func newForecastCmd(app *app) *cobra.Command {
	var days int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "forecast <city>",
		Short: "Fetch the daily forecast for one city",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			city := strings.Join(args, " ")
			summaries, err := app.gateway.FetchForecast(cmd.Context(), city, days)
			if err != nil {
				return fmt.Errorf("fetch forecast for %q: %w", city, err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}
			for _, day := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %5.1f°C  wind %4.1f m/s  precip %3.0f%%  humidity %3d%%  %s\n",
					day.Date, day.TemperatureC, day.WindSpeed, day.PrecipitationProbability*100, day.HumidityPct, day.Verdict)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", forecast.MaxDays, "Number of days (1-5)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

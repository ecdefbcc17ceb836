package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanqian/route-forecast/internal/domain/forecast"
	"github.com/yanqian/route-forecast/internal/domain/routeplanner"
	"github.com/yanqian/route-forecast/internal/infra/config"
	"github.com/yanqian/route-forecast/internal/infra/forecastapi"
	"github.com/yanqian/route-forecast/internal/infra/forecastcache"
	"github.com/yanqian/route-forecast/internal/infra/itineraryrepo"
	"github.com/yanqian/route-forecast/internal/infra/openweather"
)

type app struct {
	gateway forecast.Gateway
	planner routeplanner.Service
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "routecli",
		Short:         "Plan a multi-city route and check the weather along it",
		Long:          "routecli runs the route conversation in the terminal and fetches one-off city forecasts using the same configuration as the server.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newChatCmd(app),
		newForecastCmd(app),
	)
	return rootCmd
}

// wireApp builds an in-process stack: sessions and history live in memory.
func wireApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var gateway forecast.Gateway
	if cfg.Gateway.Mode == config.GatewayModeRemote {
		gateway = forecastapi.NewClient(cfg.Gateway.RemoteBaseURL, cfg.Gateway.Timeout, logger)
	} else {
		client := openweather.NewClient(openweather.Options{
			BaseURL:        cfg.OpenWeather.BaseURL,
			APIKey:         cfg.OpenWeather.APIKey,
			Lang:           cfg.OpenWeather.Lang,
			Timeout:        cfg.OpenWeather.Timeout,
			BreakerTimeout: cfg.OpenWeather.BreakerTimeout,
		}, logger)
		gateway = forecast.NewService(forecast.Config{CacheTTL: cfg.Cache.TTL}, client, client, forecastcache.NewMemoryStore(), logger)
	}

	planner := routeplanner.NewService(routeplanner.Config{
		FetchTimeout:  cfg.Conversation.FetchTimeout,
		RecordTimeout: cfg.Conversation.RecordTimeout,
		MaxCityLength: cfg.Conversation.MaxCityLength,
		HistoryLimit:  cfg.Conversation.HistoryLimit,
	}, routeplanner.NewRegistry(1), gateway, itineraryrepo.NewMemoryRepository(), nil, logger)

	return &app{gateway: gateway, planner: planner}, nil
}

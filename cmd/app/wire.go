//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/route-forecast/internal/bootstrap"
	"github.com/yanqian/route-forecast/internal/domain/routeplanner"
	"github.com/yanqian/route-forecast/internal/infra/config"
	httpiface "github.com/yanqian/route-forecast/internal/interface/http"
	"github.com/yanqian/route-forecast/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideForecastConfig,
		providePlannerConfig,
		provideOpenWeatherClient,
		provideForecastCache,
		provideForecastGateway,
		provideItineraryRepository,
		provideItineraryArchive,
		provideRegistry,
		provideSweeper,
		routeplanner.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}

package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/route-forecast/internal/domain/forecast"
	"github.com/yanqian/route-forecast/internal/domain/routeplanner"
	"github.com/yanqian/route-forecast/internal/infra/config"
	"github.com/yanqian/route-forecast/internal/infra/forecastapi"
	"github.com/yanqian/route-forecast/internal/infra/forecastcache"
	"github.com/yanqian/route-forecast/internal/infra/itineraryarchive"
	"github.com/yanqian/route-forecast/internal/infra/itineraryrepo"
	"github.com/yanqian/route-forecast/internal/infra/openweather"
	"github.com/yanqian/route-forecast/internal/infra/scheduler"
)

func provideForecastConfig(cfg *config.Config) forecast.Config {
	return forecast.Config{CacheTTL: cfg.Cache.TTL}
}

func providePlannerConfig(cfg *config.Config) routeplanner.Config {
	return routeplanner.Config{
		FetchTimeout:  cfg.Conversation.FetchTimeout,
		RecordTimeout: cfg.Conversation.RecordTimeout,
		MaxCityLength: cfg.Conversation.MaxCityLength,
		HistoryLimit:  cfg.Conversation.HistoryLimit,
	}
}

func provideOpenWeatherClient(cfg *config.Config, logger *slog.Logger) *openweather.Client {
	return openweather.NewClient(openweather.Options{
		BaseURL:        cfg.OpenWeather.BaseURL,
		APIKey:         cfg.OpenWeather.APIKey,
		Lang:           cfg.OpenWeather.Lang,
		Timeout:        cfg.OpenWeather.Timeout,
		BreakerTimeout: cfg.OpenWeather.BreakerTimeout,
	}, logger)
}

func provideForecastGateway(cfg *config.Config, fcfg forecast.Config, client *openweather.Client, cache forecast.Cache, logger *slog.Logger) forecast.Gateway {
	if cfg.Gateway.Mode == config.GatewayModeRemote {
		logger.Info("using remote forecast gateway", "base_url", cfg.Gateway.RemoteBaseURL)
		return forecastapi.NewClient(cfg.Gateway.RemoteBaseURL, cfg.Gateway.Timeout, logger)
	}
	logger.Info("using local forecast gateway", "base_url", cfg.OpenWeather.BaseURL)
	return forecast.NewService(fcfg, client, client, cache, logger)
}

func provideForecastCache(cfg *config.Config, logger *slog.Logger) forecast.Cache {
	if cfg.Cache.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return forecastcache.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return forecastcache.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
			client.Close()
		} else {
			logger.Info("forecast valkey cache enabled", "addr", cfg.Cache.Valkey.Addr)
			return forecastcache.NewValkeyStore(client, cfg.Cache.Valkey.Prefix)
		}
	}
	return forecastcache.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	if strings.Contains(cfg.Cache.Valkey.Addr, "://") {
		return valkey.ParseURL(cfg.Cache.Valkey.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Cache.Valkey.Addr}}, nil
}

func provideItineraryRepository(cfg *config.Config, logger *slog.Logger) routeplanner.ItineraryRepository {
	fallback := itineraryrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Itineraries.Postgres.DSN)
	if dsn == "" {
		logger.Info("itinerary postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.Itineraries.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Itineraries.Postgres.MaxConns
	}
	if cfg.Itineraries.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Itineraries.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	repo := itineraryrepo.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("itinerary schema setup failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("itinerary postgres repository enabled")
	return repo
}

func provideItineraryArchive(cfg *config.Config, logger *slog.Logger) routeplanner.ItineraryArchive {
	arch := cfg.Itineraries.Archive
	if !arch.Enabled {
		return nil
	}
	archive, err := itineraryarchive.NewObjectArchive(itineraryarchive.Options{
		Endpoint:  arch.Endpoint,
		AccessKey: arch.AccessKey,
		SecretKey: arch.SecretKey,
		Bucket:    arch.Bucket,
		Region:    arch.Region,
		Prefix:    arch.Prefix,
	}, logger)
	if err != nil {
		logger.Error("itinerary archive disabled", "error", err)
		return nil
	}
	logger.Info("itinerary archive enabled", "endpoint", arch.Endpoint, "bucket", arch.Bucket)
	return archive
}

func provideRegistry(cfg *config.Config) *routeplanner.Registry {
	return routeplanner.NewRegistry(cfg.Sessions.Shards)
}

func provideSweeper(cfg *config.Config, registry *routeplanner.Registry, logger *slog.Logger) *scheduler.Sweeper {
	return scheduler.NewSweeper(registry, cfg.Sessions.IdleTTL, cfg.Sessions.SweepInterval, logger)
}

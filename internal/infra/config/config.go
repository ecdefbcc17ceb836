package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	GatewayModeLocal  = "local"
	GatewayModeRemote = "remote"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Conversation ConversationConfig `yaml:"conversation"`
	Gateway      GatewayConfig      `yaml:"gateway"`
	OpenWeather  OpenWeatherConfig  `yaml:"openWeather"`
	Cache        CacheConfig        `yaml:"cache"`
	Itineraries  ItineraryConfig    `yaml:"itineraries"`
	Sessions     SessionConfig      `yaml:"sessions"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the per-client limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// ConversationConfig tunes the route conversation.
type ConversationConfig struct {
	FetchTimeout  time.Duration `yaml:"fetchTimeout"`
	RecordTimeout time.Duration `yaml:"recordTimeout"`
	MaxCityLength int           `yaml:"maxCityLength"`
	HistoryLimit  int           `yaml:"historyLimit"`
}

// GatewayConfig selects where forecasts come from. Local mode calls
// OpenWeather directly, remote mode calls another instance's forecast API.
type GatewayConfig struct {
	Mode          string        `yaml:"mode"`
	RemoteBaseURL string        `yaml:"remoteBaseUrl"`
	Timeout       time.Duration `yaml:"timeout"`
}

// OpenWeatherConfig contains upstream API settings.
type OpenWeatherConfig struct {
	APIKey         string        `yaml:"apiKey"`
	BaseURL        string        `yaml:"baseUrl"`
	Lang           string        `yaml:"lang"`
	Timeout        time.Duration `yaml:"timeout"`
	BreakerTimeout time.Duration `yaml:"breakerTimeout"`
}

// CacheConfig controls the forecast cache.
type CacheConfig struct {
	TTL    time.Duration `yaml:"ttl"`
	Valkey ValkeyConfig  `yaml:"valkey"`
}

// ValkeyConfig contains connection information for cache storage.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// ItineraryConfig controls where delivered itineraries are kept.
type ItineraryConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ArchiveConfig points at S3 compatible storage (R2, MinIO).
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

// SessionConfig controls the session registry and its sweeper.
type SessionConfig struct {
	Shards        int           `yaml:"shards"`
	IdleTTL       time.Duration `yaml:"idleTtl"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

// Load reads configuration from .env, a YAML file and environment variables.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString("HTTP_ADDRESS", &cfg.HTTP.Address)
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setBool("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	setInt("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	setInt("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)

	setDuration("CONVERSATION_FETCH_TIMEOUT", &cfg.Conversation.FetchTimeout)
	setDuration("CONVERSATION_RECORD_TIMEOUT", &cfg.Conversation.RecordTimeout)
	setInt("CONVERSATION_MAX_CITY_LENGTH", &cfg.Conversation.MaxCityLength)
	setInt("CONVERSATION_HISTORY_LIMIT", &cfg.Conversation.HistoryLimit)

	setString("GATEWAY_MODE", &cfg.Gateway.Mode)
	setString("GATEWAY_REMOTE_BASE_URL", &cfg.Gateway.RemoteBaseURL)
	setDuration("GATEWAY_TIMEOUT", &cfg.Gateway.Timeout)

	setString("OPENWEATHER_API_KEY", &cfg.OpenWeather.APIKey)
	setString("OPENWEATHER_BASE_URL", &cfg.OpenWeather.BaseURL)
	setString("OPENWEATHER_LANG", &cfg.OpenWeather.Lang)
	setDuration("OPENWEATHER_TIMEOUT", &cfg.OpenWeather.Timeout)
	setDuration("OPENWEATHER_BREAKER_TIMEOUT", &cfg.OpenWeather.BreakerTimeout)

	setDuration("CACHE_TTL", &cfg.Cache.TTL)
	setBool("CACHE_VALKEY_ENABLED", &cfg.Cache.Valkey.Enabled)
	setString("CACHE_VALKEY_ADDR", &cfg.Cache.Valkey.Addr)
	setString("CACHE_VALKEY_PREFIX", &cfg.Cache.Valkey.Prefix)

	setString("ITINERARY_POSTGRES_DSN", &cfg.Itineraries.Postgres.DSN)
	if v := os.Getenv("ITINERARY_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Itineraries.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("ITINERARY_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Itineraries.Postgres.MinConns = int32(parsed)
		}
	}
	setBool("ITINERARY_ARCHIVE_ENABLED", &cfg.Itineraries.Archive.Enabled)
	setString("ITINERARY_ARCHIVE_ENDPOINT", &cfg.Itineraries.Archive.Endpoint)
	setString("ITINERARY_ARCHIVE_ACCESS_KEY", &cfg.Itineraries.Archive.AccessKey)
	setString("ITINERARY_ARCHIVE_SECRET_KEY", &cfg.Itineraries.Archive.SecretKey)
	setString("ITINERARY_ARCHIVE_BUCKET", &cfg.Itineraries.Archive.Bucket)
	setString("ITINERARY_ARCHIVE_REGION", &cfg.Itineraries.Archive.Region)
	setString("ITINERARY_ARCHIVE_PREFIX", &cfg.Itineraries.Archive.Prefix)

	setInt("SESSION_SHARDS", &cfg.Sessions.Shards)
	setDuration("SESSION_IDLE_TTL", &cfg.Sessions.IdleTTL)
	setDuration("SESSION_SWEEP_INTERVAL", &cfg.Sessions.SweepInterval)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		Conversation: ConversationConfig{
			FetchTimeout:  5 * time.Second,
			RecordTimeout: 5 * time.Second,
			MaxCityLength: 100,
			HistoryLimit:  20,
		},
		Gateway: GatewayConfig{
			Mode:          GatewayModeLocal,
			RemoteBaseURL: "http://127.0.0.1:8080",
			Timeout:       5 * time.Second,
		},
		OpenWeather: OpenWeatherConfig{
			BaseURL:        "https://api.openweathermap.org",
			Lang:           "en",
			Timeout:        5 * time.Second,
			BreakerTimeout: time.Minute,
		},
		Cache: CacheConfig{
			TTL: 30 * time.Minute,
			Valkey: ValkeyConfig{
				Prefix: "forecast",
			},
		},
		Itineraries: ItineraryConfig{
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
			Archive: ArchiveConfig{
				Bucket: "itineraries",
				Region: "auto",
				Prefix: "itineraries",
			},
		},
		Sessions: SessionConfig{
			Shards:        32,
			IdleTTL:       time.Hour,
			SweepInterval: 5 * time.Minute,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.Conversation.FetchTimeout <= 0 {
		return errors.New("conversation.fetchTimeout must be positive")
	}
	if c.Conversation.RecordTimeout <= 0 {
		return errors.New("conversation.recordTimeout must be positive")
	}
	if c.Conversation.MaxCityLength <= 0 {
		return errors.New("conversation.maxCityLength must be positive")
	}
	switch c.Gateway.Mode {
	case GatewayModeLocal:
		if strings.TrimSpace(c.OpenWeather.BaseURL) == "" {
			return errors.New("openWeather.baseUrl cannot be empty")
		}
	case GatewayModeRemote:
		if strings.TrimSpace(c.Gateway.RemoteBaseURL) == "" {
			return errors.New("gateway.remoteBaseUrl cannot be empty in remote mode")
		}
	default:
		return fmt.Errorf("gateway.mode must be %q or %q", GatewayModeLocal, GatewayModeRemote)
	}
	if c.Gateway.Timeout <= 0 {
		return errors.New("gateway.timeout must be positive")
	}
	if c.OpenWeather.Timeout <= 0 {
		return errors.New("openWeather.timeout must be positive")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl cannot be negative")
	}
	if c.Cache.Valkey.Enabled && strings.TrimSpace(c.Cache.Valkey.Addr) == "" {
		return errors.New("cache.valkey.addr cannot be empty when valkey cache is enabled")
	}
	if c.Itineraries.Archive.Enabled {
		a := c.Itineraries.Archive
		if strings.TrimSpace(a.Endpoint) == "" || strings.TrimSpace(a.Bucket) == "" {
			return errors.New("itineraries.archive.endpoint and bucket are required when archive is enabled")
		}
	}
	if c.Sessions.IdleTTL <= 0 {
		return errors.New("sessions.idleTtl must be positive")
	}
	if c.Sessions.SweepInterval <= 0 {
		return errors.New("sessions.sweepInterval must be positive")
	}
	return nil
}

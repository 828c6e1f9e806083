package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Retry     RetryConfig
	Debounce  DebounceConfig
	Freshness FreshnessConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type CacheConfig struct {
	TTL time.Duration
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

type DebounceConfig struct {
	QuietPeriod time.Duration
}

type FreshnessConfig struct {
	DefaultWindow time.Duration
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 3306)
	viper.SetDefault("DB_USER", "absstitch")
	viper.SetDefault("DB_PASSWORD", "secret")
	viper.SetDefault("DB_NAME", "absstitch")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("CACHE_TTL", "5m")
	viper.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	viper.SetDefault("RETRY_BASE_DELAY", "200ms")
	viper.SetDefault("DEBOUNCE_QUIET_PERIOD", "300ms")
	viper.SetDefault("FRESHNESS_DEFAULT_WINDOW", "24h")
	viper.SetDefault("LOG_LEVEL", "info")

	connMaxLifetime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, err
	}
	cacheTTL, err := time.ParseDuration(viper.GetString("CACHE_TTL"))
	if err != nil {
		return nil, err
	}
	baseDelay, err := time.ParseDuration(viper.GetString("RETRY_BASE_DELAY"))
	if err != nil {
		return nil, err
	}
	quietPeriod, err := time.ParseDuration(viper.GetString("DEBOUNCE_QUIET_PERIOD"))
	if err != nil {
		return nil, err
	}
	defaultWindow, err := time.ParseDuration(viper.GetString("FRESHNESS_DEFAULT_WINDOW"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Cache: CacheConfig{
			TTL: cacheTTL,
		},
		Retry: RetryConfig{
			MaxAttempts: viper.GetInt("RETRY_MAX_ATTEMPTS"),
			BaseDelay:   baseDelay,
		},
		Debounce: DebounceConfig{
			QuietPeriod: quietPeriod,
		},
		Freshness: FreshnessConfig{
			DefaultWindow: defaultWindow,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	return cfg, nil
}

// Package config loads harvester settings from defaults, an optional YAML file, .env and GEOPULSE_* variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. GEOPULSE_DATABASE_PATH.
const EnvPrefix = "GEOPULSE"

var (
	ErrInvalidLogLevel       = errors.New("log.level must be one of: debug, info, warn, error")
	ErrMissingHTTPAddr       = errors.New("http.addr is required")
	ErrMissingDatabasePath   = errors.New("database.path is required")
	ErrInvalidMaxOpenConns   = errors.New("database.max_open_conns must be at least 1")
	ErrMissingStatePath      = errors.New("state.path is required")
	ErrInvalidInterval       = errors.New("aggregation.interval must be at least 1s")
	ErrInvalidRequestTimeout = errors.New("aggregation.request_timeout must be positive")
	ErrTimeoutExceedsTick    = errors.New("aggregation.request_timeout cannot exceed aggregation.interval")
	ErrInvalidSweepWorkers   = errors.New("aggregation.sweep_workers must be at least 1")
	ErrMissingNewsAPIBaseURL = errors.New("news_api.base_url is required")
	ErrInvalidPageSize       = errors.New("news_api.page_size must be between 1 and 100")
)

type Config struct {
	Log         LogConfig
	HTTP        HTTPConfig
	Database    DatabaseConfig
	State       StateConfig
	Aggregation AggregationConfig
	NewsAPI     NewsAPIConfig
	Weather     WeatherConfig
	Sources     FileConfig
	Publishers  FileConfig
}

type LogConfig struct {
	Level string
}

type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Path         string
	MaxOpenConns int
}

type StateConfig struct {
	Path string
}

type AggregationConfig struct {
	Interval       time.Duration
	RequestTimeout time.Duration
	SweepWorkers   int
	Enrich         bool
}

type NewsAPIConfig struct {
	BaseURL  string
	Key      string
	PageSize int
	Language string
}

type WeatherConfig struct {
	BaseURL string
	APIKey  string
}

// FileConfig points at an optional registry file; empty means built-in defaults or none.
type FileConfig struct {
	File string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("http.addr", ":3000")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("database.path", "geopulse.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("state.path", "geopulse-state.db")
	v.SetDefault("aggregation.interval", "60s")
	v.SetDefault("aggregation.request_timeout", "10s")
	v.SetDefault("aggregation.sweep_workers", 4)
	v.SetDefault("aggregation.enrich", false)
	v.SetDefault("news_api.base_url", "https://newsapi.org/v2")
	v.SetDefault("news_api.key", "")
	v.SetDefault("news_api.page_size", 50)
	v.SetDefault("news_api.language", "en")
	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("sources.file", "")
	v.SetDefault("publishers.file", "")
}

// Load reads configuration. path may be empty; a missing .env file is not an error.
// NEWS_API_KEY and WEATHER_API_KEY are honoured when the prefixed variables are unset.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("news_api.key", EnvPrefix+"_NEWS_API_KEY", "NEWS_API_KEY")
	_ = v.BindEnv("weather.api_key", EnvPrefix+"_WEATHER_API_KEY", "WEATHER_API_KEY")

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Log: LogConfig{Level: strings.ToLower(strings.TrimSpace(v.GetString("log.level")))},
		HTTP: HTTPConfig{
			Addr:         strings.TrimSpace(v.GetString("http.addr")),
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
		},
		Database: DatabaseConfig{
			Path:         strings.TrimSpace(v.GetString("database.path")),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
		},
		State: StateConfig{Path: strings.TrimSpace(v.GetString("state.path"))},
		Aggregation: AggregationConfig{
			Interval:       v.GetDuration("aggregation.interval"),
			RequestTimeout: v.GetDuration("aggregation.request_timeout"),
			SweepWorkers:   v.GetInt("aggregation.sweep_workers"),
			Enrich:         v.GetBool("aggregation.enrich"),
		},
		NewsAPI: NewsAPIConfig{
			BaseURL:  strings.TrimRight(strings.TrimSpace(v.GetString("news_api.base_url")), "/"),
			Key:      strings.TrimSpace(v.GetString("news_api.key")),
			PageSize: v.GetInt("news_api.page_size"),
			Language: strings.TrimSpace(v.GetString("news_api.language")),
		},
		Weather: WeatherConfig{
			BaseURL: strings.TrimSpace(v.GetString("weather.base_url")),
			APIKey:  strings.TrimSpace(v.GetString("weather.api_key")),
		},
		Sources:    FileConfig{File: strings.TrimSpace(v.GetString("sources.file"))},
		Publishers: FileConfig{File: strings.TrimSpace(v.GetString("publishers.file"))},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and required values.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	if c.HTTP.Addr == "" {
		return ErrMissingHTTPAddr
	}
	if c.Database.Path == "" {
		return ErrMissingDatabasePath
	}
	if c.Database.MaxOpenConns < 1 {
		return ErrInvalidMaxOpenConns
	}
	if c.State.Path == "" {
		return ErrMissingStatePath
	}
	if c.Aggregation.Interval < time.Second {
		return ErrInvalidInterval
	}
	if c.Aggregation.RequestTimeout <= 0 {
		return ErrInvalidRequestTimeout
	}
	if c.Aggregation.RequestTimeout > c.Aggregation.Interval {
		return ErrTimeoutExceedsTick
	}
	if c.Aggregation.SweepWorkers < 1 {
		return ErrInvalidSweepWorkers
	}
	if c.NewsAPI.BaseURL == "" {
		return ErrMissingNewsAPIBaseURL
	}
	if c.NewsAPI.PageSize < 1 || c.NewsAPI.PageSize > 100 {
		return ErrInvalidPageSize
	}
	return nil
}

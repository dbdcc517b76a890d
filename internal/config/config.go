package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Storage  StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Store    StoreConfig      `yaml:"store" mapstructure:"store"`
	Database DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Fetch    FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Serve    ServeConfig      `yaml:"serve" mapstructure:"serve"`
	Monitor  MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log      LogConfig        `yaml:"log" mapstructure:"log"`
}

// StorageConfig holds the object-storage URIs the pipeline reads and writes.
// Raw is where fetched extracts land; Clean is where transformed tables go.
// Any registered scheme works (file://, s3://, gs://); a bare path means the
// local filesystem.
type StorageConfig struct {
	Raw   string `yaml:"raw" mapstructure:"raw"`
	Clean string `yaml:"clean" mapstructure:"clean"`
}

// StoreConfig configures the run-log backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DatabaseConfig configures the warehouse Postgres used by migrate and load.
type DatabaseConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// FetchConfig configures extract downloads.
type FetchConfig struct {
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit  float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	Parallel   int           `yaml:"parallel" mapstructure:"parallel"`
	Manifest   string        `yaml:"manifest" mapstructure:"manifest"`
}

// ServeConfig configures the HTTP API.
type ServeConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// MonitoringConfig tunes the background health checks serve runs alongside
// the API. A dataset alerts once its failure streak reaches FailureStreak
// or its last success is older than StaleAfterHours. Alerts post to
// WebhookURL as JSON when it is set.
type MonitoringConfig struct {
	CheckIntervalSecs int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	StaleAfterHours   int    `yaml:"stale_after_hours" mapstructure:"stale_after_hours"`
	FailureStreak     int    `yaml:"failure_streak" mapstructure:"failure_streak"`
	WebhookURL        string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.market-etl")
	v.AddConfigPath("/etc/market-etl")

	// Environment
	v.SetEnvPrefix("MARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("storage.raw", "file:///var/lib/market-etl/raw")
	v.SetDefault("storage.clean", "file:///var/lib/market-etl/clean")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "market-etl.db")
	v.SetDefault("fetch.timeout", "120s")
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_limit", 2.0)
	v.SetDefault("fetch.parallel", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.stale_after_hours", 192)
	v.SetDefault("monitoring.failure_streak", 3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Package config loads orderdesk configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Sheet   SheetConfig   `yaml:"sheet" mapstructure:"sheet"`
	Sync    SyncConfig    `yaml:"sync" mapstructure:"sync"`
	Archive ArchiveConfig `yaml:"archive" mapstructure:"archive"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig locates the persisted JSON stores.
type StoreConfig struct {
	DataDir        string `yaml:"data_dir" mapstructure:"data_dir"`
	CacheFile      string `yaml:"cache_file" mapstructure:"cache_file"`
	ManualFile     string `yaml:"manual_file" mapstructure:"manual_file"`
	CompletionFile string `yaml:"completion_file" mapstructure:"completion_file"`
	SequenceFile   string `yaml:"sequence_file" mapstructure:"sequence_file"`
}

// SheetConfig configures the published-spreadsheet feed.
type SheetConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	Format      string `yaml:"format" mapstructure:"format"` // csv or xlsx
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// SyncConfig configures the refresh strategies and their schedules.
type SyncConfig struct {
	MaxRows           int  `yaml:"max_rows" mapstructure:"max_rows"` // 0 = unlimited
	QuickCount        int  `yaml:"quick_count" mapstructure:"quick_count"`
	FullIntervalMins  int  `yaml:"full_interval_mins" mapstructure:"full_interval_mins"`
	QuickIntervalMins int  `yaml:"quick_interval_mins" mapstructure:"quick_interval_mins"`
	QuickDelayMins    int  `yaml:"quick_delay_mins" mapstructure:"quick_delay_mins"`
	DisableAuto       bool `yaml:"disable_auto" mapstructure:"disable_auto"`
}

// ArchiveConfig configures the optional SQL completion-event archive.
type ArchiveConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, or off
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An explicit path
// must exist; with an empty path the default ./config.yaml is optional.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("ORDERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("store.cache_file", "orders_cache.json")
	v.SetDefault("store.manual_file", "manual_orders.json")
	v.SetDefault("store.completion_file", "order_completion_log.json")
	v.SetDefault("store.sequence_file", "order_sequence.json")
	v.SetDefault("sheet.format", "csv")
	v.SetDefault("sheet.user_agent", "orderdesk/1.0")
	v.SetDefault("sheet.timeout_secs", 10)
	v.SetDefault("sheet.max_retries", 3)
	v.SetDefault("sync.max_rows", 0)
	v.SetDefault("sync.quick_count", 20)
	v.SetDefault("sync.full_interval_mins", 60)
	v.SetDefault("sync.quick_interval_mins", 60)
	v.SetDefault("sync.quick_delay_mins", 5)
	v.SetDefault("archive.driver", "off")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

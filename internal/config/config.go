// Package config loads and validates runtime configuration.
// Fail-fast: a missing required setting aborts the invocation before any
// fetch begins.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// maxPageSize is the largest page the SAM.gov search endpoint accepts
// without throttling the caller.
const maxPageSize = 90

// NAICSCategory is one classification code the sync pass is partitioned by.
type NAICSCategory struct {
	Code string `mapstructure:"code"`
	Desc string `mapstructure:"desc"`
}

// SAMConfig configures the external SAM.gov search client.
type SAMConfig struct {
	APIKey          string `mapstructure:"api-key"`
	BaseURL         string `mapstructure:"base-url"`
	PageSize        int    `mapstructure:"page-size"`
	ThrottleSeconds int    `mapstructure:"throttle-seconds"`
}

// SyncConfig configures the incremental sync pass.
type SyncConfig struct {
	LookbackDays     int             `mapstructure:"lookback-days"`
	IntervalHours    int             `mapstructure:"interval-hours"`
	MaxRecordsPerRun int             `mapstructure:"max-records-per-run"`
	Categories       []NAICSCategory `mapstructure:"categories"`
}

// Config holds all runtime configuration for the opportunity service.
type Config struct {
	Port        string     `mapstructure:"port"`
	DatabaseURL string     `mapstructure:"database-url"`
	RedisURL    string     `mapstructure:"redis-url"`
	SAM         SAMConfig  `mapstructure:"sam"`
	Sync        SyncConfig `mapstructure:"sync"`
}

// Load unmarshals the already-initialised viper state into a validated
// Config. Secrets come from the environment; everything else from the
// config file.
func Load() (*Config, error) {
	bindEnv()
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func bindEnv() {
	viper.BindEnv("database-url", "DATABASE_URL")
	viper.BindEnv("redis-url", "REDIS_URL")
	viper.BindEnv("sam.api-key", "SAM_API_KEY")
	viper.BindEnv("port", "PORT")
}

func setDefaults() {
	viper.SetDefault("port", "8080")
	viper.SetDefault("sam.base-url", "https://api.sam.gov/opportunities/v2/search")
	viper.SetDefault("sam.page-size", maxPageSize)
	viper.SetDefault("sam.throttle-seconds", 2)
	viper.SetDefault("sync.lookback-days", 30)
	viper.SetDefault("sync.interval-hours", 6)
	viper.SetDefault("sync.max-records-per-run", 90)
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.SAM.APIKey == "" {
		return fmt.Errorf("SAM_API_KEY is required")
	}
	if len(c.Sync.Categories) == 0 {
		return fmt.Errorf("at least one sync category (sync.categories) is required")
	}
	for i, cat := range c.Sync.Categories {
		if cat.Code == "" {
			return fmt.Errorf("sync.categories[%d]: code is required", i)
		}
	}
	if c.Sync.LookbackDays < 1 {
		return fmt.Errorf("sync.lookback-days must be a positive integer, got %d", c.Sync.LookbackDays)
	}
	if c.Sync.IntervalHours < 1 {
		return fmt.Errorf("sync.interval-hours must be a positive integer, got %d", c.Sync.IntervalHours)
	}
	if c.Sync.MaxRecordsPerRun < 1 {
		return fmt.Errorf("sync.max-records-per-run must be a positive integer, got %d", c.Sync.MaxRecordsPerRun)
	}
	if c.SAM.PageSize < 1 || c.SAM.PageSize > maxPageSize {
		c.SAM.PageSize = maxPageSize
	}
	return nil
}

// Package config loads application configuration from a YAML file with
// environment variable overrides. Every engine constant has a code
// default; a missing config file is not an error.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"import-scout/internal/engine"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Feeds struct {
		APIKey          string `yaml:"api_key"`
		AuctionURL      string `yaml:"auction_url"`
		ListingURL      string `yaml:"listing_url"`
		RegistrationURL string `yaml:"registration_url"`
		RetentionDays   int    `yaml:"retention_days"`
	} `yaml:"feeds"`
	Rates struct {
		BaseURL        string  `yaml:"base_url"`
		SourceCurrency string  `yaml:"source_currency"`
		DestCurrency   string  `yaml:"dest_currency"`
		StaticRate     float64 `yaml:"static_rate"`
	} `yaml:"rates"`
	Schedule struct {
		AuctionCron      string `yaml:"auction_cron"`
		ListingCron      string `yaml:"listing_cron"`
		RegistrationCron string `yaml:"registration_cron"`
		AnalysisCron     string `yaml:"analysis_cron"`
	} `yaml:"schedule"`
	Analysis struct {
		MinSourceSamples      int                   `yaml:"min_source_samples"`
		MinDestinationSamples int                   `yaml:"min_destination_samples"`
		LookupTimeoutSeconds  int                   `yaml:"lookup_timeout_seconds"`
		Concurrency           int                   `yaml:"concurrency"`
		Costs                 engine.CostModel      `yaml:"costs"`
		Weights               engine.ScoringWeights `yaml:"weights"`
		Bonuses               engine.Bonuses        `yaml:"bonuses"`
	} `yaml:"analysis"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides, then fills any remaining zero values with defaults.
func Load(path string) (*Config, error) {
	// Start from the full defaults so a partial analysis block in the
	// file overrides single constants, not the whole model.
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("IMPORT_SCOUT_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("IMPORT_SCOUT_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("FEEDS_API_KEY"); v != "" {
		cfg.Feeds.APIKey = v
	}
	if v := os.Getenv("AUCTION_FEED_URL"); v != "" {
		cfg.Feeds.AuctionURL = v
	}
	if v := os.Getenv("LISTING_FEED_URL"); v != "" {
		cfg.Feeds.ListingURL = v
	}
	if v := os.Getenv("REGISTRATION_FEED_URL"); v != "" {
		cfg.Feeds.RegistrationURL = v
	}
	if v := os.Getenv("EXCHANGE_RATE_URL"); v != "" {
		cfg.Rates.BaseURL = v
	}
	if v := os.Getenv("STATIC_EXCHANGE_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Rates.StaticRate = rate
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the configuration with every default applied and no
// file or environment input.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/import-scout.db"
	}
	if c.Feeds.RetentionDays == 0 {
		c.Feeds.RetentionDays = 180
	}
	if c.Rates.BaseURL == "" {
		c.Rates.BaseURL = "https://api.exchangerate-api.com/v4/latest"
	}
	if c.Rates.SourceCurrency == "" {
		c.Rates.SourceCurrency = "JPY"
	}
	if c.Rates.DestCurrency == "" {
		c.Rates.DestCurrency = "GBP"
	}
	if c.Schedule.AuctionCron == "" {
		c.Schedule.AuctionCron = "0 */12 * * *"
	}
	if c.Schedule.ListingCron == "" {
		c.Schedule.ListingCron = "0 */6 * * *"
	}
	if c.Schedule.RegistrationCron == "" {
		c.Schedule.RegistrationCron = "30 2 * * *"
	}
	if c.Schedule.AnalysisCron == "" {
		c.Schedule.AnalysisCron = "0 7 * * *"
	}
	if c.Analysis.MinSourceSamples == 0 {
		c.Analysis.MinSourceSamples = 3
	}
	if c.Analysis.MinDestinationSamples == 0 {
		c.Analysis.MinDestinationSamples = 3
	}
	if c.Analysis.LookupTimeoutSeconds == 0 {
		c.Analysis.LookupTimeoutSeconds = 30
	}
	if c.Analysis.Concurrency == 0 {
		c.Analysis.Concurrency = 8
	}
	if c.Analysis.Costs == (engine.CostModel{}) {
		c.Analysis.Costs = engine.DefaultCostModel()
	}
	if c.Analysis.Weights == (engine.ScoringWeights{}) {
		c.Analysis.Weights = engine.DefaultScoringWeights()
	}
	if c.Analysis.Bonuses == (engine.Bonuses{}) {
		c.Analysis.Bonuses = engine.DefaultBonuses()
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Analysis.MinSourceSamples < 1 || c.Analysis.MinDestinationSamples < 1 {
		return fmt.Errorf("analysis sample minimums must be at least 1")
	}
	if c.Rates.StaticRate < 0 {
		return fmt.Errorf("rates.static_rate must not be negative")
	}
	return nil
}

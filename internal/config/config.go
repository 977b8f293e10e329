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
	History    HistoryConfig    `yaml:"history" mapstructure:"history"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Registry   RegistryConfig   `yaml:"registry" mapstructure:"registry"`
	Sink       SinkConfig       `yaml:"sink" mapstructure:"sink"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// HistoryConfig configures the cross-run identity history store.
type HistoryConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// QueryWindowHours is the re-admission window for raw query text.
	QueryWindowHours int `yaml:"query_window_hours" mapstructure:"query_window_hours"`
	// LeadWindowDays is the re-admission window for organization names.
	LeadWindowDays int `yaml:"lead_window_days" mapstructure:"lead_window_days"`
	// EventDateToleranceDays separates two events for the same org.
	EventDateToleranceDays int `yaml:"event_date_tolerance_days" mapstructure:"event_date_tolerance_days"`
}

// QueryWindow returns the query re-admission window as a duration.
func (c HistoryConfig) QueryWindow() time.Duration {
	return time.Duration(c.QueryWindowHours) * time.Hour
}

// LeadWindow returns the lead re-admission window as a duration.
func (c HistoryConfig) LeadWindow() time.Duration {
	return time.Duration(c.LeadWindowDays) * 24 * time.Hour
}

// EventDateTolerance returns the event-date tolerance as a duration.
func (c HistoryConfig) EventDateTolerance() time.Duration {
	return time.Duration(c.EventDateToleranceDays) * 24 * time.Hour
}

// SearchConfig holds search collaborator settings.
type SearchConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	// BlockedDomains are rejected during candidate collection.
	BlockedDomains []string `yaml:"blocked_domains" mapstructure:"blocked_domains"`
}

// ClassifierConfig holds LLM classifier settings.
type ClassifierConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// RegistryConfig holds nonprofit registry lookup settings.
type RegistryConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	FallbackURL string  `yaml:"fallback_url" mapstructure:"fallback_url"`
	Key         string  `yaml:"key" mapstructure:"key"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// SinkConfig configures the output sink.
type SinkConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PipelineConfig configures orchestrator behavior.
type PipelineConfig struct {
	BaseThreshold      float64 `yaml:"base_threshold" mapstructure:"base_threshold"`
	ThresholdFloor     float64 `yaml:"threshold_floor" mapstructure:"threshold_floor"`
	ThresholdDecrement float64 `yaml:"threshold_decrement" mapstructure:"threshold_decrement"`
	MinLeads           int     `yaml:"min_leads" mapstructure:"min_leads"`
	MaxEscalations     int     `yaml:"max_escalations" mapstructure:"max_escalations"`
	// SeedAttempt is the escalation attempt on which the state machine
	// moves from relaxed search to seed fallback.
	SeedAttempt         int     `yaml:"seed_attempt" mapstructure:"seed_attempt"`
	SeedThreshold       float64 `yaml:"seed_threshold" mapstructure:"seed_threshold"`
	SeedFile            string  `yaml:"seed_file" mapstructure:"seed_file"`
	MaxQueries          int     `yaml:"max_queries" mapstructure:"max_queries"`
	MaxCandidates       int     `yaml:"max_candidates" mapstructure:"max_candidates"`
	MaxLeads            int     `yaml:"max_leads" mapstructure:"max_leads"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	// ForwardWindowDays bounds how far ahead an event date may be and
	// still count as a confirmed future date.
	ForwardWindowDays int `yaml:"forward_window_days" mapstructure:"forward_window_days"`
	// ValidWindowStart and ValidWindowEnd bound the event dates a
	// candidate may carry, in any form ParseEventDate accepts
	// ("January 2, 2006", "2006-01-02"). An empty bound is open.
	ValidWindowStart string   `yaml:"valid_window_start" mapstructure:"valid_window_start"`
	ValidWindowEnd   string   `yaml:"valid_window_end" mapstructure:"valid_window_end"`
	Periods          []string `yaml:"periods" mapstructure:"periods"`
	GeoTags          []string `yaml:"geo_tags" mapstructure:"geo_tags"`
	DryRun           bool     `yaml:"dry_run" mapstructure:"dry_run"`
}

// PricingConfig holds per-provider flat call pricing (USD per call).
type PricingConfig struct {
	SearchPerQuery   float64 `yaml:"search_per_query" mapstructure:"search_per_query"`
	ClassifyPerCall  float64 `yaml:"classify_per_call" mapstructure:"classify_per_call"`
	VerifyPerCall    float64 `yaml:"verify_per_call" mapstructure:"verify_per_call"`
	RunBudgetWarnUSD float64 `yaml:"run_budget_warn_usd" mapstructure:"run_budget_warn_usd"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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

	// Environment
	v.SetEnvPrefix("EVENTSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.path", "eventscout.db")
	v.SetDefault("history.query_window_hours", 24)
	v.SetDefault("history.lead_window_days", 7)
	v.SetDefault("history.event_date_tolerance_days", 7)
	v.SetDefault("search.timeout_secs", 15)
	v.SetDefault("search.rate_per_sec", 1.0)
	v.SetDefault("search.blocked_domains", []string{
		"facebook.com", "instagram.com", "twitter.com", "x.com",
		"pinterest.com", "yelp.com", "tripadvisor.com",
	})
	v.SetDefault("classifier.model", "claude-haiku-4-5-20251001")
	v.SetDefault("classifier.max_tokens", 1024)
	v.SetDefault("classifier.timeout_secs", 30)
	v.SetDefault("classifier.rate_per_sec", 1.0)
	v.SetDefault("registry.timeout_secs", 15)
	v.SetDefault("registry.rate_per_sec", 2.0)
	v.SetDefault("sink.path", "leads.xlsx")
	v.SetDefault("pipeline.base_threshold", 0.60)
	v.SetDefault("pipeline.threshold_floor", 0.35)
	v.SetDefault("pipeline.threshold_decrement", 0.10)
	v.SetDefault("pipeline.min_leads", 5)
	v.SetDefault("pipeline.max_escalations", 3)
	v.SetDefault("pipeline.seed_attempt", 2)
	v.SetDefault("pipeline.seed_threshold", 0.20)
	v.SetDefault("pipeline.max_queries", 100)
	v.SetDefault("pipeline.max_candidates", 500)
	v.SetDefault("pipeline.max_leads", 10)
	v.SetDefault("pipeline.similarity_threshold", 0.85)
	v.SetDefault("pipeline.forward_window_days", 365)
	v.SetDefault("pipeline.valid_window_start", "")
	v.SetDefault("pipeline.valid_window_end", "")
	v.SetDefault("pipeline.periods", []string{"monthly"})
	v.SetDefault("pricing.search_per_query", 0.005)
	v.SetDefault("pricing.classify_per_call", 0.004)
	v.SetDefault("pricing.verify_per_call", 0.001)
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

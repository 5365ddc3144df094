package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Probe      ProbeConfig      `yaml:"probe"`
	Validation ValidationConfig `yaml:"validation"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Regions    []RegionConfig   `yaml:"regions"`
	Cache      CacheConfig      `yaml:"cache"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Search     SearchConfig     `yaml:"search"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// UpstreamConfig describes the published-workbook endpoint.
type UpstreamConfig struct {
	// TabURLTemplate receives the url-escaped tab name via %s.
	TabURLTemplate string `yaml:"tab_url_template"`
	// IndexURL is the published HTML overview page listing all tabs.
	// Optional; when set it serves as a discovery fallback.
	IndexURL          string `yaml:"index_url"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	MaxRetries        int    `yaml:"max_retries"`
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
	UserAgent         string `yaml:"user_agent"`
}

// ProbeConfig controls candidate generation and probe fan-out.
// The timestamp suffix grid is deliberately configuration data: the
// publisher's exact publish second is unknowable and the curated set
// in DefaultConfig was tuned against the live workbook.
type ProbeConfig struct {
	DateFormats     []string `yaml:"date_formats"`
	TimeSuffixes    []string `yaml:"time_suffixes"`
	Concurrency     int      `yaml:"concurrency"`
	MinBodyBytes    int      `yaml:"min_body_bytes"`
	MaxLookbackDays int      `yaml:"max_lookback_days"`
	BaseDelayMs     int      `yaml:"base_delay_ms"`
	JitterMs        int      `yaml:"jitter_ms"`
	MaxInFlight     int      `yaml:"max_in_flight"`
}

// ValidationConfig holds the row-acceptance rules.
type ValidationConfig struct {
	Categories            []string `yaml:"categories"`
	TrackableCategories   []string `yaml:"trackable_categories"`
	RequiredLinkSubstring string   `yaml:"required_link_substring"`
	ExcludedNames         []string `yaml:"excluded_names"`
}

// AnalyticsConfig holds derived-stat thresholds.
type AnalyticsConfig struct {
	DefaultWindowDays      int `yaml:"default_window_days"`
	MaxWindowDays          int `yaml:"max_window_days"`
	ImmediateThresholdDays int `yaml:"immediate_threshold_days"`
	RankSize               int `yaml:"rank_size"`
	WeekMinimumDelta       int `yaml:"week_minimum_delta"`
	ResolveTimeoutSeconds  int `yaml:"resolve_timeout_seconds"`
}

// RegionConfig maps a region label to its location/name keywords.
// Matching is naive substring lookup; order matters, first match wins.
type RegionConfig struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CacheConfig controls the per-date snapshot memo cache.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

// RateLimitConfig contains API rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
}

// ArchiveConfig contains snapshot persistence settings
type ArchiveConfig struct {
	Enabled       bool           `yaml:"enabled"`
	Type          string         `yaml:"type"` // "mysql" or "postgres"
	RetentionDays int            `yaml:"retention_days"`
	MySQL         MySQLConfig    `yaml:"mysql"`
	Postgres      PostgresConfig `yaml:"postgres"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
}

// SchedulerConfig contains the daily cache-warm settings
type SchedulerConfig struct {
	DailyWarmEnabled bool   `yaml:"daily_warm_enabled"`
	DailyWarmTime    string `yaml:"daily_warm_time"`
	WarmWindowDays   int    `yaml:"warm_window_days"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			TabURLTemplate:    "https://docs.google.com/spreadsheets/d/1X4mK9qTmFvJc/gviz/tq?tqx=out:csv&sheet=%s",
			IndexURL:          "",
			TimeoutSeconds:    15,
			MaxRetries:        1,
			RetryDelaySeconds: 1,
			UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		},
		Probe: ProbeConfig{
			DateFormats: []string{"01-02-2006", "2006-01-02"},
			// The publish window runs roughly 05:00-07:30; these are the
			// offsets observed on the live workbook.
			TimeSuffixes: []string{
				"5:00:01", "5:00:02", "5:15:01", "5:30:01", "5:30:02", "5:45:01",
				"6:00:01", "6:00:02", "6:00:03", "6:15:01", "6:15:02", "6:30:01",
				"6:30:02", "6:45:01", "6:45:02", "7:00:01", "7:00:02", "7:00:03",
				"7:15:01", "7:15:02", "7:30:01", "7:30:02",
			},
			Concurrency:     8,
			MinBodyBytes:    64,
			MaxLookbackDays: 3,
			BaseDelayMs:     0,
			JitterMs:        0,
			MaxInFlight:     8,
		},
		Validation: ValidationConfig{
			Categories:            []string{"Health System", "Pharmacy", "Provider"},
			TrackableCategories:   []string{"Health System", "Pharmacy"},
			RequiredLinkSubstring: "vaccinefinder.org",
			ExcludedNames:         []string{},
		},
		Analytics: AnalyticsConfig{
			DefaultWindowDays:      14,
			MaxWindowDays:          31,
			ImmediateThresholdDays: 3,
			RankSize:               10,
			WeekMinimumDelta:       2,
			ResolveTimeoutSeconds:  60,
		},
		Regions: []RegionConfig{
			{Name: "West", Keywords: []string{"WA", "OR", "CA", "NV", "AZ"}},
			{Name: "Mountain", Keywords: []string{"MT", "ID", "WY", "UT", "CO", "NM"}},
			{Name: "Midwest", Keywords: []string{"ND", "SD", "NE", "KS", "MN", "IA", "MO", "WI", "IL", "MI", "IN", "OH"}},
			{Name: "South", Keywords: []string{"TX", "OK", "AR", "LA", "MS", "AL", "TN", "KY", "GA", "FL", "SC", "NC", "VA", "WV"}},
			{Name: "Northeast", Keywords: []string{"PA", "NY", "NJ", "CT", "RI", "MA", "VT", "NH", "ME", "MD", "DE"}},
		},
		Cache: CacheConfig{
			TTLMinutes: 30,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			RequestsPerHour:   600,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			Type:          "mysql",
			RetentionDays: 90,
		},
		Scheduler: SchedulerConfig{
			DailyWarmEnabled: false,
			DailyWarmTime:    "06:45",
			WarmWindowDays:   14,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	// Read file
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// GetTimeout returns the upstream request timeout as a duration
func (c *UpstreamConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetRetryDelay returns the retry delay as a duration
func (c *UpstreamConfig) GetRetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// GetTTL returns the snapshot cache TTL as a duration
func (c *CacheConfig) GetTTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// GetResolveTimeout returns the whole-window resolution budget
func (c *AnalyticsConfig) GetResolveTimeout() time.Duration {
	return time.Duration(c.ResolveTimeoutSeconds) * time.Second
}

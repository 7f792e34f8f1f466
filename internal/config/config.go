// Package config provides configuration management for the audit engine.
// It defines configuration structures and default values for crawl parameters.
package config

import (
	"time"

	"github.com/pagelens/pagelens/internal/crawler"
)

// Config holds engine configuration.
type Config struct {
	// Database configuration
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"` // Path to SQLite database file

	// Fetching parameters
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`       // HTTP User-Agent header
	RequestDelay time.Duration `mapstructure:"request_delay" yaml:"request_delay"` // Minimum delay between requests to one host

	// Audit defaults, overridable per audit on the command line
	PageBudget      int  `mapstructure:"page_budget" yaml:"page_budget"`           // Pages to crawl per audit
	AllowSubdomains bool `mapstructure:"allow_subdomains" yaml:"allow_subdomains"` // Treat subdomains as in scope

	// Continuation loop
	RunInterval time.Duration `mapstructure:"run_interval" yaml:"run_interval"` // Pause between continuation invocations in run mode

	// Logging
	LogLevel string `mapstructure:"log_level" yaml:"log_level"` // debug, info, warn, error
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`   // Empty means stderr
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "./pagelens.db",
		UserAgent:    crawler.DefaultUserAgent,
		RequestDelay: 200 * time.Millisecond,
		PageBudget:   crawler.DefaultPageBudget,
		RunInterval:  1 * time.Second,
		LogLevel:     "info",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return ErrEmptyDatabasePath
	}
	if c.UserAgent == "" {
		return ErrEmptyUserAgent
	}
	if c.PageBudget < 0 {
		return ErrInvalidPageBudget
	}
	if c.RequestDelay < 0 {
		return ErrInvalidRequestDelay
	}
	if c.RunInterval < 0 {
		return ErrInvalidRunInterval
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}
